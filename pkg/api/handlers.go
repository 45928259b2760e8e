package api

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/ssargent/brokerdb/pkg/metrics"
	"github.com/ssargent/brokerdb/pkg/store"
)

// Server holds the API server state: the checkpoint store and the state
// last loaded from it
type Server struct {
	store   ICheckpointStore
	config  ServerConfig
	metrics *metrics.Metrics
	log     *logrus.Entry

	mutex  sync.RWMutex
	state  *store.State
	loaded *store.LoadResult
}

// NewServer creates a new API server holding an empty state. Call Reload to
// read the checkpoint. m and log may be nil.
func NewServer(checkpoints ICheckpointStore, config ServerConfig, m *metrics.Metrics, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{
		store:   checkpoints,
		config:  config,
		metrics: m,
		log:     log.WithField("component", "api"),
		state:   store.NewState(),
	}
}

// Reload replaces the held state with the checkpoint on disk. A missing
// checkpoint leaves an empty state.
func (s *Server) Reload(ctx context.Context) error {
	if !s.store.Exists() {
		s.mutex.Lock()
		s.state, s.loaded = store.NewState(), nil
		s.mutex.Unlock()
		return nil
	}

	state, result, err := s.store.Load(ctx)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	s.state, s.loaded = state, result
	s.mutex.Unlock()
	return nil
}

// snapshot returns the held state. Handlers only read it.
func (s *Server) snapshot() (*store.State, *store.LoadResult) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.state, s.loaded
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, loaded := s.snapshot()
	sendSuccess(w, map[string]interface{}{
		"status": "healthy",
		"loaded": loaded != nil,
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	state, loaded := s.snapshot()

	resp := StateResponse{
		Path:    s.store.Path(),
		Loaded:  loaded != nil,
		Summary: state.Summary(),
	}
	if loaded != nil {
		resp.Digest = loaded.Digest
		resp.Chunks = loaded.Chunks
		resp.Skipped = loaded.Skipped
		for _, issue := range loaded.Issues {
			resp.Issues = append(resp.Issues, issue.String())
		}
	}
	sendSuccess(w, resp)
}

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	state, _ := s.snapshot()

	clients := make([]ClientResponse, 0, len(state.Clients))
	for _, c := range state.Clients {
		clients = append(clients, newClientResponse(c))
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].ID < clients[j].ID
	})
	sendSuccess(w, clients)
}

func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		sendError(w, "Client id is required", http.StatusBadRequest)
		return
	}

	state, _ := s.snapshot()
	view, ok := state.ClientView(id)
	if !ok {
		sendError(w, "Client not found", http.StatusNotFound)
		return
	}

	resp := ClientDetailResponse{
		Client:        newClientResponse(view.Client),
		Messages:      make([]ClientMessageResponse, 0, len(view.Messages)),
		Subscriptions: make([]SubscriptionResponse, 0, len(view.Subscriptions)),
	}
	for _, m := range view.Messages {
		msg := ClientMessageResponse{
			StoreID:   m.StoreID,
			MID:       m.MID,
			QoS:       m.QoS,
			State:     m.State.String(),
			Direction: m.Direction.String(),
			Retain:    m.Retain,
			Dup:       m.Dup,
		}
		if stored, ok := state.Message(m.StoreID); ok {
			msg.Topic = stored.Topic
		}
		resp.Messages = append(resp.Messages, msg)
	}
	for _, sub := range view.Subscriptions {
		resp.Subscriptions = append(resp.Subscriptions, SubscriptionResponse{
			Topic:      sub.Topic,
			QoS:        sub.QoS,
			Options:    sub.Options,
			Identifier: sub.Identifier,
		})
	}
	sendSuccess(w, resp)
}

func (s *Server) handleRetained(w http.ResponseWriter, r *http.Request) {
	state, _ := s.snapshot()

	retained := make([]RetainedResponse, 0, len(state.Retains))
	for _, ret := range state.Retains {
		m, ok := state.Message(ret.StoreID)
		if !ok {
			// Reported by validation; nothing to show
			continue
		}
		retained = append(retained, RetainedResponse{
			StoreID:  m.StoreID,
			Topic:    m.Topic,
			QoS:      m.QoS,
			SourceID: m.SourceID,
			Payload:  m.Payload,
		})
	}
	sendSuccess(w, retained)
}

// handleCheckpoint writes the held state back out as a new checkpoint
func (s *Server) handleCheckpoint(w http.ResponseWriter, r *http.Request) {
	state, _ := s.snapshot()

	result, err := s.store.Save(r.Context(), state)
	if err != nil {
		s.log.WithError(err).Error("checkpoint request failed")
		sendError(w, "Failed to write checkpoint", http.StatusInternalServerError)
		return
	}

	sendSuccess(w, CheckpointResponse{
		ID:         result.ID.String(),
		Path:       result.Path,
		Chunks:     result.Chunks,
		Bytes:      result.Bytes,
		Digest:     result.Digest,
		DurationMS: result.Duration.Milliseconds(),
	})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if err := s.Reload(ctx); err != nil {
		s.log.WithError(err).Error("reload request failed")
		sendError(w, "Failed to load checkpoint", http.StatusInternalServerError)
		return
	}
	s.handleState(w, r)
}
