package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"topicrank/internal/store"
	"topicrank/pkg/scoring"
)

// Server provides the HTTP API.
type Server struct {
	store  store.Store
	engine *scoring.Engine
	port   int
}

// New creates a new HTTP server.
func New(s store.Store, engine *scoring.Engine, port int) *Server {
	if port == 0 {
		port = 8080
	}
	return &Server{store: s, engine: engine, port: port}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/v1/topics", s.handleTopics)
	mux.HandleFunc("/api/v1/topics/", s.handleTopic)
	mux.HandleFunc("/api/v1/rankings", s.handleRankings)
	mux.HandleFunc("/api/v1/score", s.handleScore)

	addr := fmt.Sprintf(":%d", s.port)
	fmt.Printf("topicrank server listening on %s\n", addr)
	return http.ListenAndServe(addr, mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	opts := store.ListOpts{}
	if cat := r.URL.Query().Get("category"); cat != "" {
		opts.Category = cat
	}

	topics, err := s.store.ListTopics(r.Context(), opts)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  topics,
		"count": len(topics),
	})
}

func (s *Server) handleTopic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/topics/")
	topic, err := s.store.GetTopic(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, topic)
}

func (s *Server) handleRankings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	topics, err := s.store.ListTopics(r.Context(), store.ListOpts{})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	by := r.URL.Query().Get("by")
	sort.SliceStable(topics, func(i, j int) bool {
		if by == "activity" {
			return topics[i].Activity > topics[j].Activity
		}
		return topics[i].Impact > topics[j].Impact
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  topics,
		"count": len(topics),
	})
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	if id := r.URL.Query().Get("topic"); id != "" {
		topic, err := s.engine.ScoreTopic(r.Context(), id)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, topic)
		return
	}

	if err := s.engine.ScoreAll(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "scored"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
