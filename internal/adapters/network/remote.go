package network

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/conclave/internal/adapters/httpx"
	"github.com/trebuchet-org/conclave/internal/domain/circuit"
	"github.com/trebuchet-org/conclave/internal/domain/models"
	"github.com/trebuchet-org/conclave/internal/usecase"
)

// ClusterInfo is what a cluster publishes about itself
type ClusterInfo struct {
	PublicKey circuit.PublicKey `json:"publicKey"`
	Address   common.Address    `json:"address"`
}

// JobRequest is the body of a job submission to a remote cluster
type JobRequest struct {
	Job         *models.ComputationJob `json:"job"`
	CallbackURL string                 `json:"callbackUrl"`
}

// JobAccepted acknowledges a submission
type JobAccepted struct {
	Offset uint64 `json:"offset"`
}

// RemoteNetwork submits jobs to a cluster over HTTP. Results come back
// through the callback server, not through this client. The cluster's keys
// are fetched on first use.
type RemoteNetwork struct {
	endpoint    string
	callbackURL string
	client      *http.Client

	mu   sync.Mutex
	info *ClusterInfo
}

var _ usecase.ComputationNetwork = (*RemoteNetwork)(nil)

// NewRemoteNetwork creates a client for the cluster at endpoint
func NewRemoteNetwork(endpoint, callbackURL string, client *http.Client) (*RemoteNetwork, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("network endpoint is required in remote mode")
	}
	if callbackURL == "" {
		return nil, fmt.Errorf("callback url is required in remote mode")
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &RemoteNetwork{
		endpoint:    strings.TrimRight(endpoint, "/"),
		callbackURL: callbackURL,
		client:      client,
	}, nil
}

// FetchClusterInfo reads the cluster's public key and signer address
func FetchClusterInfo(ctx context.Context, client *http.Client, endpoint string) (*ClusterInfo, error) {
	var info ClusterInfo
	if err := httpx.GetJSON(ctx, client, strings.TrimRight(endpoint, "/")+"/v1/cluster", &info); err != nil {
		return nil, fmt.Errorf("failed to fetch cluster info: %w", err)
	}
	if info.PublicKey.IsZero() {
		return nil, fmt.Errorf("cluster at %s published an empty public key", endpoint)
	}
	return &info, nil
}

// Info returns the cluster's published keys, fetching them once
func (n *RemoteNetwork) Info(ctx context.Context) (*ClusterInfo, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.info != nil {
		return n.info, nil
	}
	info, err := FetchClusterInfo(ctx, n.client, n.endpoint)
	if err != nil {
		return nil, err
	}
	n.info = info
	return info, nil
}

// PublicKey implements usecase.ComputationNetwork
func (n *RemoteNetwork) PublicKey(ctx context.Context) (circuit.PublicKey, error) {
	info, err := n.Info(ctx)
	if err != nil {
		return circuit.PublicKey{}, err
	}
	return info.PublicKey, nil
}

// Enqueue implements usecase.ComputationNetwork
func (n *RemoteNetwork) Enqueue(ctx context.Context, job *models.ComputationJob) error {
	var accepted JobAccepted
	err := httpx.PostJSON(ctx, n.client, n.endpoint+"/v1/jobs", JobRequest{Job: job, CallbackURL: n.callbackURL}, &accepted)
	if err != nil {
		return fmt.Errorf("cluster rejected job %d: %w", job.Offset, err)
	}
	if accepted.Offset != job.Offset {
		return fmt.Errorf("cluster acknowledged offset %d for job %d", accepted.Offset, job.Offset)
	}
	return nil
}
