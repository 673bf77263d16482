package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"optsel/pkg/features"
	"optsel/pkg/selector"
	"optsel/pkg/sql"
)

// Server exposes the selector over HTTP so a database sidecar or
// benchmark harness can ask for decisions and report latencies without
// linking the library.
type Server struct {
	ctrl *selector.Controller
	mux  *http.ServeMux

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]*selector.Feedback
}

func NewServer(ctrl *selector.Controller) *Server {
	s := &Server{
		ctrl:    ctrl,
		mux:     http.NewServeMux(),
		pending: make(map[uint64]*selector.Feedback),
	}
	s.mux.HandleFunc("/api/decide", s.handleDecide)
	s.mux.HandleFunc("/api/feedback", s.handleFeedback)
	s.mux.HandleFunc("/api/stats", s.handleStats)
	return s
}

// Handler returns the route table, for embedding in another server.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) Start(addr string) {
	log.Printf("[API] Server listening on %s ...", addr)
	log.Fatal(http.ListenAndServe(addr, s.mux))
}

// DecideRequest carries the SQL text to decide for.
type DecideRequest struct {
	Query string `json:"query"`
}

// DecideResponse reports the chosen combination. DecisionID is nonzero
// only when the cache explored: the caller must then POST the observed
// latency to /api/feedback under that id (or the measurement is lost).
type DecideResponse struct {
	Combination string `json:"combination"`
	Origin      string `json:"origin"`
	CE          bool   `json:"ce"`
	CM          bool   `json:"cm"`
	JN          bool   `json:"jn"`
	DecisionID  uint64 `json:"decision_id,omitempty"`
}

type FeedbackRequest struct {
	DecisionID uint64  `json:"decision_id"`
	LatencyMS  float64 `json:"latency_ms"`
	Discard    bool    `json:"discard,omitempty"`
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req DecideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid body", http.StatusBadRequest)
		return
	}

	// A parse failure just means no structured refinement; the text
	// path still decides.
	var structured features.StructuredQuery
	if stmt, err := sql.Parse(req.Query); err == nil {
		structured = stmt
	}

	d := s.ctrl.Decide(req.Query, structured)
	resp := DecideResponse{
		Combination: d.Combination.String(),
		Origin:      string(d.Origin),
		CE:          d.Combination.HasCE(),
		CM:          d.Combination.HasCM(),
		JN:          d.Combination.HasJN(),
	}
	if d.Feedback != nil {
		s.mu.Lock()
		s.nextID++
		resp.DecisionID = s.nextID
		s.pending[resp.DecisionID] = d.Feedback
		s.mu.Unlock()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	fb, ok := s.pending[req.DecisionID]
	delete(s.pending, req.DecisionID)
	s.mu.Unlock()
	if !ok {
		http.Error(w, "Unknown decision id", http.StatusNotFound)
		return
	}

	if req.Discard {
		fb.Discard()
	} else {
		fb.CompleteLatency(req.LatencyMS)
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")

	stats := s.ctrl.Stats().Snapshot()
	s.mu.Lock()
	stats["pending_feedback"] = uint64(len(s.pending))
	s.mu.Unlock()
	json.NewEncoder(w).Encode(stats)
}
