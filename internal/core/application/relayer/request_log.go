package relayer

import (
	"context"
	"time"

	"github.com/privacy-pool-network/pool-daemon/internal/core/domain"
)

// requestLog records the lifecycle of every relay request.
type requestLog struct {
	repo domain.RelayRequestRepository
}

func (l requestLog) createNewRequest(
	ctx context.Context, id string, timestamp int64, chainID uint64,
	payload []byte,
) error {
	return l.repo.AddRequest(
		ctx, domain.NewRelayRequest(id, timestamp, chainID, payload),
	)
}

func (l requestLog) updateBroadcastedRequest(
	ctx context.Context, id, txHash string,
) error {
	return l.repo.UpdateRequest(
		ctx, id, func(r *domain.RelayRequest) (*domain.RelayRequest, error) {
			if err := r.Broadcast(txHash); err != nil {
				return nil, err
			}
			return r, nil
		},
	)
}

func (l requestLog) updateFailedRequest(
	ctx context.Context, id, reason string,
) error {
	return l.repo.UpdateRequest(
		ctx, id, func(r *domain.RelayRequest) (*domain.RelayRequest, error) {
			if err := r.Fail(reason); err != nil {
				return nil, err
			}
			return r, nil
		},
	)
}

// detached returns a context that survives the cancellation of ctx, so the
// outcome of a request is recorded even if the caller went away.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
}
