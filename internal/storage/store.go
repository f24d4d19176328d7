package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/boltdb/bolt"

	"stixgraph/internal/stixcore"
)

// BundleBucket holds aggregate bundles by name. Objects live in one bucket per
// STIX type, keyed by id.
const BundleBucket = "bundles"

// Store is a BoltDB document store for exported STIX objects.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the store at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(BundleBucket)); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", BundleBucket, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveBundle stores b under name and every object in its type bucket, in one
// transaction.
func (s *Store) SaveBundle(name string, b *stixcore.Bundle) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal bundle %s: %w", name, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket([]byte(BundleBucket)).Put([]byte(name), data); err != nil {
			return fmt.Errorf("failed to save bundle %s: %w", name, err)
		}
		for _, o := range b.Objects {
			if err := putObject(tx, o); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveObject stores a single object.
func (s *Store) SaveObject(o stixcore.Object) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putObject(tx, o)
	})
}

func putObject(tx *bolt.Tx, o stixcore.Object) error {
	typ, id := o.Type(), o.ID()
	if typ == "" || id == "" {
		return fmt.Errorf("object is missing type or id")
	}
	if typ == BundleBucket {
		return fmt.Errorf("object type %q collides with the bundle bucket", typ)
	}
	b, err := tx.CreateBucketIfNotExists([]byte(typ))
	if err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", typ, err)
	}
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", id, err)
	}
	return b.Put([]byte(id), data)
}

// GetBundle returns the bundle saved under name.
func (s *Store) GetBundle(name string) (*stixcore.Bundle, error) {
	var bundle stixcore.Bundle
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(BundleBucket)).Get([]byte(name))
		if data == nil {
			return fmt.Errorf("bundle %s not found", name)
		}
		return json.Unmarshal(data, &bundle)
	})
	if err != nil {
		return nil, err
	}
	return &bundle, nil
}

// GetObject looks an object up by its STIX id; the type is the part before "--".
func (s *Store) GetObject(id string) (stixcore.Object, error) {
	typ, _, ok := strings.Cut(id, "--")
	if !ok {
		return nil, fmt.Errorf("malformed object id %q", id)
	}
	var obj stixcore.Object
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(typ))
		if b == nil {
			return fmt.Errorf("object %s not found", id)
		}
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("object %s not found", id)
		}
		return json.Unmarshal(data, &obj)
	})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// ListObjects returns every stored object of one type, or of all types when
// typ is empty.
func (s *Store) ListObjects(typ string) ([]stixcore.Object, error) {
	var objects []stixcore.Object
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, b *bolt.Bucket) error {
			if string(name) == BundleBucket || (typ != "" && string(name) != typ) {
				return nil
			}
			return b.ForEach(func(k, v []byte) error {
				var o stixcore.Object
				if err := json.Unmarshal(v, &o); err != nil {
					return fmt.Errorf("failed to unmarshal %s: %w", k, err)
				}
				objects = append(objects, o)
				return nil
			})
		})
	})
	if err != nil {
		return nil, err
	}
	return objects, nil
}

// Stats counts stored objects per type.
func (s *Store) Stats() (map[string]int, error) {
	stats := make(map[string]int)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, b *bolt.Bucket) error {
			if string(name) == BundleBucket {
				return nil
			}
			stats[string(name)] = b.Stats().KeyN
			return nil
		})
	})
	return stats, err
}

// Types lists the object types present, sorted.
func (s *Store) Types() ([]string, error) {
	stats, err := s.Stats()
	if err != nil {
		return nil, err
	}
	types := make([]string, 0, len(stats))
	for t := range stats {
		types = append(types, t)
	}
	sort.Strings(types)
	return types, nil
}
