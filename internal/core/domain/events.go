package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// DepositEvent is emitted when value enters a pool under a new label.
type DepositEvent struct {
	Depositor     common.Address
	Commitment    *big.Int
	Label         *big.Int
	Value         *big.Int
	Precommitment *big.Int
	BlockNumber   uint64
	TxHash        common.Hash
}

// WithdrawalEvent is emitted when a commitment is spent, revealing its
// nullifier hash and inserting the descendant commitment.
type WithdrawalEvent struct {
	Processooor    common.Address
	Withdrawn      *big.Int
	SpentNullifier *big.Int
	NewCommitment  *big.Int
	BlockNumber    uint64
	TxHash         common.Hash
}

// RagequitEvent is emitted when a depositor exits publicly, closing the
// pool account for good.
type RagequitEvent struct {
	Ragequitter common.Address `json:"ragequitter"`
	Commitment  *big.Int       `json:"commitment"`
	Label       *big.Int       `json:"label"`
	Value       *big.Int       `json:"value"`
	BlockNumber uint64         `json:"blockNumber"`
	TxHash      common.Hash    `json:"txHash"`
}

// EventFilter bounds an event query. A nil ToBlock means latest.
type EventFilter struct {
	FromBlock uint64
	ToBlock   *uint64
}

// PoolInfo identifies a pool to recover an account from.
type PoolInfo struct {
	ChainID         uint64
	Address         common.Address
	Scope           *big.Int
	DeploymentBlock uint64
}

// ScopeData is what a scope resolves to on chain.
type ScopeData struct {
	PoolAddress  common.Address
	AssetAddress common.Address
}
