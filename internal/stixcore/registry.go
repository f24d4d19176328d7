package stixcore

import (
	"github.com/google/uuid"
)

// Registry maps (kind, natural code) pairs to opaque identifiers. It is filled
// by the entity builder in a single pass and only read afterwards, so it
// carries no lock.
type Registry struct {
	ids   map[Kind]map[string]string
	order map[Kind][]string
	newID func() string
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithIDGenerator replaces the random UUID generator.
func WithIDGenerator(fn func() string) RegistryOption {
	return func(r *Registry) {
		if fn != nil {
			r.newID = fn
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		ids:   make(map[Kind]map[string]string),
		order: make(map[Kind][]string),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Assign mints an identifier for (kind, code). Assigning the same pair twice
// fails with ErrDuplicateAssignment.
func (r *Registry) Assign(kind Kind, code string) (string, error) {
	byCode, ok := r.ids[kind]
	if !ok {
		byCode = make(map[string]string)
		r.ids[kind] = byCode
	}
	if _, dup := byCode[code]; dup {
		return "", &RegistryError{Op: "assign", Kind: kind, Code: code, Err: ErrDuplicateAssignment}
	}
	id := r.newID()
	byCode[code] = id
	r.order[kind] = append(r.order[kind], id)
	return id, nil
}

// Resolve returns the identifier assigned to (kind, code), or
// ErrUnknownReference. It never mints.
func (r *Registry) Resolve(kind Kind, code string) (string, error) {
	if id, ok := r.ids[kind][code]; ok {
		return id, nil
	}
	return "", &RegistryError{Op: "resolve", Kind: kind, Code: code, Err: ErrUnknownReference}
}

// ResolveAny resolves a code whose kind is not known. It succeeds only when
// exactly one kind owns the code.
func (r *Registry) ResolveAny(code string) (string, Kind, error) {
	owners := r.KindsOf(code)
	switch len(owners) {
	case 0:
		return "", "", &RegistryError{Op: "resolve", Code: code, Err: ErrUnknownReference}
	case 1:
		return r.ids[owners[0]][code], owners[0], nil
	default:
		return "", "", &RegistryError{Op: "resolve", Code: code, Err: ErrAmbiguousReference}
	}
}

// KindsOf lists the kinds under which code is registered, in build order.
func (r *Registry) KindsOf(code string) []Kind {
	var owners []Kind
	for _, k := range Kinds {
		if _, ok := r.ids[k][code]; ok {
			owners = append(owners, k)
		}
	}
	return owners
}

// All returns the identifiers of a kind in assignment order.
func (r *Registry) All(kind Kind) []string {
	ids := r.order[kind]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// Len reports how many identifiers a kind holds.
func (r *Registry) Len(kind Kind) int {
	return len(r.order[kind])
}

// Mint returns a fresh identifier that is not bound to any code. Edges,
// bundles and synthetic objects use it.
func (r *Registry) Mint() string {
	return r.newID()
}
