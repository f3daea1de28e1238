package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/privacy-pool-network/pool-daemon/internal/core/domain"
)

type relayRequestRepository struct {
	locker   *sync.RWMutex
	requests map[string]domain.RelayRequest
}

// NewRelayRequestRepository returns an empty in-memory request log.
func NewRelayRequestRepository() domain.RelayRequestRepository {
	return &relayRequestRepository{
		locker:   &sync.RWMutex{},
		requests: make(map[string]domain.RelayRequest),
	}
}

func (r *relayRequestRepository) AddRequest(
	ctx context.Context, req *domain.RelayRequest,
) error {
	r.locker.Lock()
	defer r.locker.Unlock()

	if _, ok := r.requests[req.ID]; ok {
		return domain.ErrRelayRequestAlreadyExists
	}
	r.requests[req.ID] = copyRequest(*req)
	return nil
}

func (r *relayRequestRepository) GetRequest(
	ctx context.Context, id string,
) (*domain.RelayRequest, error) {
	r.locker.RLock()
	defer r.locker.RUnlock()

	req, ok := r.requests[id]
	if !ok {
		return nil, domain.ErrRelayRequestNotFound
	}
	cp := copyRequest(req)
	return &cp, nil
}

func (r *relayRequestRepository) GetAllRequests(
	ctx context.Context,
) ([]domain.RelayRequest, error) {
	return r.filter(func(domain.RelayRequest) bool { return true }), nil
}

func (r *relayRequestRepository) GetRequestsByStatus(
	ctx context.Context, status domain.RelayStatus,
) ([]domain.RelayRequest, error) {
	return r.filter(func(req domain.RelayRequest) bool {
		return req.Status == status
	}), nil
}

func (r *relayRequestRepository) UpdateRequest(
	ctx context.Context, id string,
	updateFn func(*domain.RelayRequest) (*domain.RelayRequest, error),
) error {
	r.locker.Lock()
	defer r.locker.Unlock()

	req, ok := r.requests[id]
	if !ok {
		return domain.ErrRelayRequestNotFound
	}

	cp := copyRequest(req)
	updated, err := updateFn(&cp)
	if err != nil {
		return err
	}
	r.requests[id] = copyRequest(*updated)
	return nil
}

func (r *relayRequestRepository) Close() {}

func (r *relayRequestRepository) filter(
	match func(domain.RelayRequest) bool,
) []domain.RelayRequest {
	r.locker.RLock()
	defer r.locker.RUnlock()

	list := make([]domain.RelayRequest, 0, len(r.requests))
	for _, req := range r.requests {
		if match(req) {
			list = append(list, copyRequest(req))
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Timestamp > list[j].Timestamp
	})
	return list
}

func copyRequest(req domain.RelayRequest) domain.RelayRequest {
	cp := req
	cp.Payload = append([]byte(nil), req.Payload...)
	return cp
}
