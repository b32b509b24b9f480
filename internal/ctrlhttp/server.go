// Package ctrlhttp runs a loopback HTTP API so external tooling (bots,
// shell scripts) can drive the table without going through the desktop UI.
// Every action route answers with the resulting view; invalid actions are
// no-ops and still answer 200 with the unchanged view.
package ctrlhttp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MJE43/mines-desktop-go/internal/table"
)

// Server serves the control API on 127.0.0.1 only.
type Server struct {
	table      *table.Module
	token      string
	addr       string
	httpServer *http.Server
	logger     *log.Logger
}

// New creates a control server. token may be empty to disable auth.
func New(tbl *table.Module, port int, token string) *Server {
	if port <= 0 {
		port = 17889
	}
	return &Server{
		table:  tbl,
		token:  token,
		addr:   fmt.Sprintf("127.0.0.1:%d", port),
		logger: log.New(os.Stdout, "[ctrl] ", log.LstdFlags),
	}
}

// Addr returns the bind address.
func (s *Server) Addr() string { return s.addr }

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requireToken)

	r.Route("/table", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/verify/{roundID}", s.handleVerify)

		r.Post("/deposit", s.handleDeposit)
		r.Post("/stake", s.handleStake)
		r.Post("/hazards", s.handleHazards)
		r.Post("/reveal", s.handleReveal)
		r.Post("/lock", s.action((*table.Module).LockIn))
		r.Post("/new", s.action((*table.Module).NewRound))
		r.Post("/cashout", s.action((*table.Module).CashOut))
	})

	return r
}

// Start binds the loopback socket and serves in the background. It returns
// once the socket is bound.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      s.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("control API bind failed: %w", err)
	}
	s.logger.Printf("control API listening at http://%s", s.addr)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("control API stopped: %v", err)
		}
	}()
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.token {
				writeError(w, http.StatusUnauthorized, "invalid or missing token")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.table.View())
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	roundID := chi.URLParam(r, "roundID")
	res, err := s.table.VerifyRound(roundID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount float64 `json:"amount"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.table.Deposit(req.Amount))
}

func (s *Server) handleStake(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Stake float64 `json:"stake"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.table.SetStake(req.Stake))
}

func (s *Server) handleHazards(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Count int `json:"count"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.table.SetHazardCount(req.Count))
}

func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index int `json:"index"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.table.Reveal(req.Index))
}

// action adapts the bodyless table actions to handlers.
func (s *Server) action(fn func(*table.Module) table.View) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, fn(s.table))
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
