package ports

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/privacy-pool-network/pool-daemon/internal/core/domain"
)

// EventSource returns the pool events emitted on a given chain, sorted by
// block number and log index.
type EventSource interface {
	GetDeposits(
		ctx context.Context, chainID uint64, pool common.Address,
		filter domain.EventFilter,
	) ([]domain.DepositEvent, error)
	GetWithdrawals(
		ctx context.Context, chainID uint64, pool common.Address,
		filter domain.EventFilter,
	) ([]domain.WithdrawalEvent, error)
	GetRagequits(
		ctx context.Context, chainID uint64, pool common.Address,
		filter domain.EventFilter,
	) ([]domain.RagequitEvent, error)
}

// Ledger gives read access to the on-chain state the prover and the relayer
// depend on.
type Ledger interface {
	// ScopeData resolves a scope to its pool and the asset the pool holds.
	ScopeData(
		ctx context.Context, chainID uint64, scope *big.Int,
	) (*domain.ScopeData, error)
	// StateLeaves returns the leaves of the pool state tree in insertion
	// order.
	StateLeaves(
		ctx context.Context, chainID uint64, pool common.Address,
	) ([]*big.Int, error)
	// ASPLeaves returns the labels approved for the given scope in insertion
	// order.
	ASPLeaves(
		ctx context.Context, chainID uint64, scope *big.Int,
	) ([]*big.Int, error)
	GasPrice(ctx context.Context, chainID uint64) (*big.Int, error)
}

// RelayTx is what the relayer submits on chain on behalf of a user.
type RelayTx struct {
	Withdrawal domain.Withdrawal
	Proof      domain.WithdrawalProof
	Scope      *big.Int
}

// Broadcaster submits relay transactions and returns their hash.
type Broadcaster interface {
	Relay(ctx context.Context, chainID uint64, tx RelayTx) (string, error)
}

// PriceQuoter prices the native asset of a chain in terms of another asset.
type PriceQuoter interface {
	QuoteNativeInAsset(
		ctx context.Context, chainID uint64, asset common.Address,
		amountIn *big.Int,
	) (*domain.Rate, error)
}
