package domain

import (
	"context"
	"errors"
	"time"
)

const (
	RelayStatusReceived    RelayStatus = "RECEIVED"
	RelayStatusBroadcasted RelayStatus = "BROADCASTED"
	RelayStatusFailed      RelayStatus = "FAILED"
)

var (
	// ErrRelayRequestNotFound ...
	ErrRelayRequestNotFound = errors.New("relay request not found")
	// ErrRelayRequestAlreadyExists ...
	ErrRelayRequestAlreadyExists = errors.New("relay request already exists")
	// ErrRelayRequestFinalized is returned when trying to move a request that
	// is already broadcasted or failed.
	ErrRelayRequestFinalized = errors.New("relay request is already finalized")
)

// RelayStatus is the status of a relay request.
type RelayStatus string

// IsFinal ...
func (s RelayStatus) IsFinal() bool {
	return s == RelayStatusBroadcasted || s == RelayStatusFailed
}

// RelayRequest is the audit record of a withdrawal submitted to the relayer.
// It is stored as Received before any validation and moves exactly once to
// either Broadcasted or Failed.
type RelayRequest struct {
	ID        string
	Timestamp int64
	ChainID   uint64
	Status    RelayStatus
	Payload   []byte
	TxHash    string
	Error     string
	UpdatedAt int64
}

// NewRelayRequest returns a request in Received status.
func NewRelayRequest(id string, timestamp int64, chainID uint64, payload []byte) *RelayRequest {
	return &RelayRequest{
		ID:        id,
		Timestamp: timestamp,
		ChainID:   chainID,
		Status:    RelayStatusReceived,
		Payload:   payload,
		UpdatedAt: timestamp,
	}
}

// Broadcast moves the request to Broadcasted.
func (r *RelayRequest) Broadcast(txHash string) error {
	if r.Status.IsFinal() {
		return ErrRelayRequestFinalized
	}
	r.Status = RelayStatusBroadcasted
	r.TxHash = txHash
	r.UpdatedAt = time.Now().UnixMilli()
	return nil
}

// Fail moves the request to Failed.
func (r *RelayRequest) Fail(reason string) error {
	if r.Status.IsFinal() {
		return ErrRelayRequestFinalized
	}
	r.Status = RelayStatusFailed
	r.Error = reason
	r.UpdatedAt = time.Now().UnixMilli()
	return nil
}

// IsBroadcasted ...
func (r *RelayRequest) IsBroadcasted() bool {
	return r.Status == RelayStatusBroadcasted
}

// IsFailed ...
func (r *RelayRequest) IsFailed() bool {
	return r.Status == RelayStatusFailed
}

// RelayRequestRepository is the abstraction for any kind of database intended
// to persist relay requests. Each request is only ever updated by the task
// that created it, so implementations don't need cross-request locking.
type RelayRequestRepository interface {
	// AddRequest stores a new request, failing if the id is already taken.
	AddRequest(ctx context.Context, req *RelayRequest) error
	// GetRequest returns the request with the given id.
	GetRequest(ctx context.Context, id string) (*RelayRequest, error)
	// GetAllRequests returns all requests, most recent first.
	GetAllRequests(ctx context.Context) ([]RelayRequest, error)
	// GetRequestsByStatus ...
	GetRequestsByStatus(ctx context.Context, status RelayStatus) ([]RelayRequest, error)
	// UpdateRequest allows to commit multiple changes to the same request in a
	// transactional way.
	UpdateRequest(
		ctx context.Context, id string,
		updateFn func(r *RelayRequest) (*RelayRequest, error),
	) error
	Close()
}
