// Package httpx holds the JSON envelope shared by the HTTP surfaces.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/trebuchet-org/conclave/internal/domain"
)

const maxBodyBytes = 1 << 20

func NewRequestID() string { return "req_" + uuid.NewString() }

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func ReadJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// ErrorBody is the error envelope
type ErrorBody struct {
	RequestID string      `json:"request_id"`
	Error     ErrorDetail `json:"error"`
}

// ErrorDetail carries the stable code and message of a failure
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func WriteError(w http.ResponseWriter, status int, code, message string, details any) {
	WriteJSON(w, status, ErrorBody{
		RequestID: NewRequestID(),
		Error:     ErrorDetail{Code: code, Message: message, Details: details},
	})
}

// WriteDomainError maps err to a status by its domain code
func WriteDomainError(w http.ResponseWriter, err error) {
	code := domain.CodeOf(err)
	WriteError(w, StatusFor(code), string(code), err.Error(), nil)
}

// StatusFor maps a domain code to an HTTP status
func StatusFor(code domain.Code) int {
	switch code {
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeUnauthorized:
		return http.StatusForbidden
	case domain.CodeBadArguments, domain.CodeNameTooLong, domain.CodeInvalidTargetAmount, domain.CodeInvalidDeadline:
		return http.StatusBadRequest
	case domain.CodeStaleJob, domain.CodeDuplicateJobOffset, domain.CodeAlreadyExists,
		domain.CodeAggregationInFlight, domain.CodeAlreadyFinalized, domain.CodeTransferAlreadyApproved,
		domain.CodeMemberAlreadyExists, domain.CodeContributionExists:
		return http.StatusConflict
	case domain.CodeAbortedComputation, domain.CodeGoalNotActive, domain.CodeGoalNotFinalized,
		domain.CodeCannotFinalizeYet, domain.CodeMaxMembersReached, domain.CodeInsufficientVaultBalance:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// PostJSON sends v to url and decodes a 2xx response into out when out is
// non-nil. Error envelopes are returned as *RemoteError.
func PostJSON(ctx context.Context, client *http.Client, url string, v, out any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("content-type", "application/json")
	return do(client, req, out)
}

// GetJSON fetches url and decodes a 2xx response into out
func GetJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return do(client, req, out)
}

func do(client *http.Client, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		remote := &RemoteError{Status: resp.StatusCode}
		var envelope ErrorBody
		if json.Unmarshal(data, &envelope) == nil {
			remote.Code = envelope.Error.Code
			remote.Message = envelope.Error.Message
		}
		return remote
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

// RemoteError is a non-2xx response
type RemoteError struct {
	Status  int
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("remote returned %d", e.Status)
	}
	return fmt.Sprintf("remote returned %d %s: %s", e.Status, e.Code, e.Message)
}

// IsCode reports whether err is a remote error with the given code
func IsCode(err error, code domain.Code) bool {
	var remote *RemoteError
	return errors.As(err, &remote) && remote.Code == string(code)
}
