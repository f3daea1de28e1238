package dbbadger

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger/v3"
	"github.com/timshannon/badgerhold/v4"

	"github.com/privacy-pool-network/pool-daemon/internal/core/domain"
)

const relayRequestsDir = "requests"

type relayRequestRepository struct {
	store *badgerhold.Store
}

// NewRelayRequestRepository opens the request log under baseDbDir, or in
// memory if baseDbDir is empty.
func NewRelayRequestRepository(
	baseDbDir string, logger badger.Logger,
) (domain.RelayRequestRepository, error) {
	var dir string
	if len(baseDbDir) > 0 {
		dir = filepath.Join(baseDbDir, relayRequestsDir)
	}

	store, err := createDb(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening relay requests db: %w", err)
	}
	return &relayRequestRepository{store}, nil
}

func (r *relayRequestRepository) AddRequest(
	ctx context.Context, req *domain.RelayRequest,
) error {
	if err := r.store.Insert(req.ID, req); err != nil {
		if err == badgerhold.ErrKeyExists {
			return domain.ErrRelayRequestAlreadyExists
		}
		return err
	}
	return nil
}

func (r *relayRequestRepository) GetRequest(
	ctx context.Context, id string,
) (*domain.RelayRequest, error) {
	var req domain.RelayRequest
	if err := r.store.Get(id, &req); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrRelayRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (r *relayRequestRepository) GetAllRequests(
	ctx context.Context,
) ([]domain.RelayRequest, error) {
	query := badgerhold.Where("Timestamp").Ge(int64(0))
	return r.findRequests(query)
}

func (r *relayRequestRepository) GetRequestsByStatus(
	ctx context.Context, status domain.RelayStatus,
) ([]domain.RelayRequest, error) {
	query := badgerhold.Where("Status").Eq(status)
	return r.findRequests(query)
}

func (r *relayRequestRepository) UpdateRequest(
	ctx context.Context, id string,
	updateFn func(*domain.RelayRequest) (*domain.RelayRequest, error),
) error {
	req, err := r.GetRequest(ctx, id)
	if err != nil {
		return err
	}

	updatedReq, err := updateFn(req)
	if err != nil {
		return err
	}

	return r.store.Update(id, updatedReq)
}

func (r *relayRequestRepository) Close() {
	r.store.Close()
}

func (r *relayRequestRepository) findRequests(
	query *badgerhold.Query,
) ([]domain.RelayRequest, error) {
	var requests []domain.RelayRequest
	if err := r.store.Find(
		&requests, query.SortBy("Timestamp").Reverse(),
	); err != nil {
		return nil, err
	}
	return requests, nil
}
