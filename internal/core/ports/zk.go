package ports

import (
	"context"

	"github.com/privacy-pool-network/pool-daemon/internal/core/domain"
)

// Prover generates a withdrawal proof for the given circuit inputs.
type Prover interface {
	Prove(
		ctx context.Context, signals domain.WithdrawalSignals,
	) (*domain.WithdrawalProof, error)
}

// Verifier checks a withdrawal proof against its public signals. An invalid
// proof is reported with false and a nil error, an error means the proof
// could not be checked at all.
type Verifier interface {
	Verify(ctx context.Context, proof domain.WithdrawalProof) (bool, error)
}
