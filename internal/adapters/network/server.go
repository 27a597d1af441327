package network

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/trebuchet-org/conclave/internal/adapters/httpx"
	"github.com/trebuchet-org/conclave/internal/domain/circuit"
)

// ClusterServer exposes a cluster over HTTP. Accepted jobs are evaluated in
// the background and their results posted to the job's callback URL.
type ClusterServer struct {
	cluster *Cluster
	client  *http.Client
	latency time.Duration
	log     *slog.Logger
	wg      sync.WaitGroup
}

// NewClusterServer creates a server for cluster
func NewClusterServer(cluster *Cluster, client *http.Client, latency time.Duration, log *slog.Logger) *ClusterServer {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &ClusterServer{cluster: cluster, client: client, latency: latency, log: log}
}

// Routes returns the cluster's router
func (s *ClusterServer) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Route("/v1", func(api chi.Router) {
		api.Get("/cluster", s.handleInfo)
		api.Post("/jobs", s.handleJob)
	})
	return r
}

// Info returns what the cluster publishes about itself
func (s *ClusterServer) Info() ClusterInfo {
	return ClusterInfo{
		PublicKey: s.cluster.PublicKey(),
		Address:   s.cluster.Address(),
	}
}

func (s *ClusterServer) handleInfo(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, s.Info())
}

func (s *ClusterServer) handleJob(w http.ResponseWriter, r *http.Request) {
	var req JobRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_BODY", err.Error(), nil)
		return
	}
	if req.Job == nil || req.CallbackURL == "" {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_ARGUMENTS", "job and callbackUrl are required", nil)
		return
	}

	job := req.Job
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if s.latency > 0 {
			time.Sleep(s.latency)
		}
		s.post(req.CallbackURL, s.cluster.Execute(job))
	}()

	s.log.Debug("job accepted", "offset", job.Offset, "circuit", job.Circuit)
	httpx.WriteJSON(w, http.StatusAccepted, JobAccepted{Offset: job.Offset})
}

func (s *ClusterServer) post(url string, result *circuit.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpx.PostJSON(ctx, s.client, url, result, nil); err != nil {
		s.log.Error("failed to deliver result", "offset", result.Offset, "callback", url, "error", err)
		return
	}
	s.log.Debug("result delivered", "offset", result.Offset, "outcome", result.Outcome)
}

// Drain blocks until every accepted job has been delivered
func (s *ClusterServer) Drain() {
	s.wg.Wait()
}
