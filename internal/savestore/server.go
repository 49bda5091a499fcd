package savestore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/tatianab/franco-game/internal/engine"
	"github.com/tatianab/franco-game/internal/persistence"
)

const maxRequestBytes = 1 << 20

// GamePath is where the save API is mounted.
const GamePath = "/game"

type Server struct {
	server      *http.Server
	repository  Repository
	engine      *engine.Engine
	logger      *zap.Logger
	allowOrigin string
}

type NewServerOptions struct {
	Addr       string
	Repository Repository
	// Engine, when set, rejects snapshots that do not fit its world.
	Engine      *engine.Engine
	Logger      *zap.Logger
	AllowOrigin string
}

func NewServer(opts NewServerOptions) *Server {
	s := &Server{
		repository:  opts.Repository,
		engine:      opts.Engine,
		logger:      opts.Logger,
		allowOrigin: opts.AllowOrigin,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.allowOrigin == "" {
		s.allowOrigin = "*"
	}
	s.server = &http.Server{
		Addr:    opts.Addr,
		Handler: s.Handler(),
	}
	return s
}

// Handler returns the router serving the save API.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.cors)
	r.HandleFunc(GamePath, s.handleGame).Methods(http.MethodPost)
	r.HandleFunc(GamePath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodOptions)
	return r
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	s.logger.Info("save store listening", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			s.logger.Info("save store closed")
			return nil
		}
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	var req persistence.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Action != persistence.ActionTest && req.UserID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	log := s.logger.With(zap.String("action", req.Action), zap.String("user_id", req.UserID))
	ctx := r.Context()

	switch req.Action {
	case persistence.ActionSave:
		if req.GameData == nil || req.GameData.CurrentRoom == "" {
			http.Error(w, "gameData.currentRoom is required", http.StatusBadRequest)
			return
		}
		if s.engine != nil {
			if _, err := s.engine.Hydrate(*req.GameData); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		if err := s.repository.Save(ctx, req.UserID, *req.GameData); err != nil {
			log.Error("failed to save game", zap.Error(err))
			http.Error(w, "Failed to save game", http.StatusInternalServerError)
			return
		}
		log.Debug("saved game", zap.String("room", req.GameData.CurrentRoom))
		writeJSON(w, log, map[string]string{"status": "saved"})

	case persistence.ActionLoad:
		snap, err := s.repository.Load(ctx, req.UserID)
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "No saved game", http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error("failed to load game", zap.Error(err))
			http.Error(w, "Failed to load game", http.StatusInternalServerError)
			return
		}
		writeJSON(w, log, snap)

	case persistence.ActionDelete:
		if err := s.repository.Delete(ctx, req.UserID); err != nil {
			log.Error("failed to delete game", zap.Error(err))
			http.Error(w, "Failed to delete game", http.StatusInternalServerError)
			return
		}
		writeJSON(w, log, map[string]string{"status": "deleted"})

	case persistence.ActionTest:
		if err := s.repository.Ping(ctx); err != nil {
			log.Error("repository unavailable", zap.Error(err))
			http.Error(w, "Repository unavailable", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, log, map[string]string{"status": "ok"})

	default:
		http.Error(w, "Unknown action", http.StatusBadRequest)
	}
}

func writeJSON(w http.ResponseWriter, log *zap.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response", zap.Error(err))
	}
}
