package search

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/cors"

	"stixgraph/internal/logger"
)

const maxResults = 50

// Server exposes the index over HTTP.
type Server struct {
	index *Index
	log   *logger.Logger
}

func NewServer(index *Index, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{index: index, log: log.With("component", "SearchAPI")}
}

// Response is the body of GET /api/search.
type Response struct {
	Query   string   `json:"query"`
	Total   uint64   `json:"total"`
	Results []Result `json:"results"`
}

// Handler returns the CORS-wrapped API mux.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/api/search", s.handleSearch)
	mux.HandleFunc("/api/count", s.handleCount)
	return c.Handler(mux)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	query := r.URL.Query().Get("query")
	if query == "" {
		http.Error(w, "Query parameter 'query' is required", http.StatusBadRequest)
		return
	}
	size := 10
	if v := r.URL.Query().Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "Query parameter 'size' must be a positive integer", http.StatusBadRequest)
			return
		}
		size = min(n, maxResults)
	}

	results, total, err := s.index.Search(query, size)
	if err != nil {
		s.log.Error("search failed", "query", query, "error", err)
		http.Error(w, "Internal server error: search failed", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, Response{Query: query, Total: total, Results: results})
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.index.Count()
	if err != nil {
		s.log.Error("count failed", "error", err)
		http.Error(w, "Internal server error: count failed", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, map[string]uint64{"documents": n})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to encode response", "error", err)
	}
}
