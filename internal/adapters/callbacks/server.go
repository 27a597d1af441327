// Package callbacks serves the endpoint the computation network posts job
// results to, plus read access to the job table.
package callbacks

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/trebuchet-org/conclave/internal/adapters/httpx"
	"github.com/trebuchet-org/conclave/internal/domain"
	"github.com/trebuchet-org/conclave/internal/domain/circuit"
	"github.com/trebuchet-org/conclave/internal/usecase"
)

// Server receives results and hands them to the callback handler
type Server struct {
	handler *usecase.HandleCallback
	jobs    usecase.JobTable
	log     *slog.Logger
}

// NewServer creates a callback server
func NewServer(handler *usecase.HandleCallback, jobs usecase.JobTable, log *slog.Logger) *Server {
	return &Server{handler: handler, jobs: jobs, log: log}
}

// CallbackResponse reports what a delivered result did
type CallbackResponse struct {
	Offset      uint64   `json:"offset"`
	Status      string   `json:"status"`
	Events      []string `json:"events"`
	GoalUpdated bool     `json:"goalUpdated"`
	// Error is set when the job was resolved but its effect was refused,
	// or when the job resolved as aborted
	Error string `json:"error,omitempty"`
}

// Routes returns the server's router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Route("/v1", func(api chi.Router) {
		api.Post("/callbacks", s.handleCallback)
		api.Get("/jobs/{offset}", s.handleGetJob)
	})
	return r
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	var result circuit.Result
	if err := httpx.ReadJSON(w, r, &result); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_BODY", err.Error(), nil)
		return
	}

	res, err := s.handler.Execute(r.Context(), &result)
	if err != nil && res == nil {
		s.log.Warn("callback rejected", "offset", result.Offset, "code", domain.CodeOf(err), "error", err)
		httpx.WriteDomainError(w, err)
		return
	}

	resp := CallbackResponse{
		Offset:      result.Offset,
		Status:      string(res.Job.Status),
		Events:      []string{},
		GoalUpdated: res.GoalUpdated,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	for _, e := range res.Events {
		resp.Events = append(resp.Events, e.EventName())
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	offset, err := strconv.ParseUint(chi.URLParam(r, "offset"), 10, 64)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, string(domain.CodeBadArguments), "offset must be an unsigned integer", nil)
		return
	}
	job, err := s.jobs.GetJob(r.Context(), offset)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, job)
}

// ListenAndServe serves handler on addr until ctx is cancelled
func ListenAndServe(ctx context.Context, addr string, handler http.Handler, log *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
