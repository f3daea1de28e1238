package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/privacy-pool-network/pool-daemon/pkg/field"
)

// Commitment is an owned note of the pool: its hash, the preimage needed to
// spend it and where it was created.
type Commitment struct {
	Hash        *big.Int    `json:"hash"`
	Value       *big.Int    `json:"value"`
	Label       *big.Int    `json:"label"`
	Nullifier   *big.Int    `json:"nullifier"`
	Secret      *big.Int    `json:"secret"`
	BlockNumber uint64      `json:"blockNumber"`
	TxHash      common.Hash `json:"txHash"`
}

// NewCommitment builds the commitment H(value, label, H(nullifier, secret)).
func NewCommitment(
	value, label, nullifier, secret *big.Int,
	blockNumber uint64, txHash common.Hash,
) (*Commitment, error) {
	if field.IsZero(nullifier) {
		return nil, ErrInvalidInput.WithMessage("invalid input: nullifier cannot be zero")
	}
	if field.IsZero(label) {
		return nil, ErrInvalidInput.WithMessage("invalid input: label cannot be zero")
	}
	if field.IsZero(secret) {
		return nil, ErrInvalidInput.WithMessage("invalid input: secret cannot be zero")
	}
	if value == nil || value.Sign() < 0 {
		return nil, ErrInvalidInput.WithMessage("invalid input: value must not be negative")
	}

	precommitment := field.MustHash(nullifier, secret)
	return &Commitment{
		Hash:        CommitmentHash(value, label, precommitment),
		Value:       new(big.Int).Set(value),
		Label:       new(big.Int).Set(label),
		Nullifier:   new(big.Int).Set(nullifier),
		Secret:      new(big.Int).Set(secret),
		BlockNumber: blockNumber,
		TxHash:      txHash,
	}, nil
}

// CommitmentHash ...
func CommitmentHash(value, label, precommitment *big.Int) *big.Int {
	return field.MustHash(value, label, precommitment)
}

// NullifierHash is the value revealed on chain when a commitment is spent.
func NullifierHash(nullifier *big.Int) *big.Int {
	return field.MustHash(nullifier)
}

// Precommitment ...
func (c Commitment) Precommitment() *big.Int {
	return field.MustHash(c.Nullifier, c.Secret)
}

// NullifierHash ...
func (c Commitment) NullifierHash() *big.Int {
	return NullifierHash(c.Nullifier)
}

// IsValid checks the commitment hash against its preimage.
func (c Commitment) IsValid() bool {
	if c.Hash == nil || c.Value == nil || c.Label == nil ||
		c.Nullifier == nil || c.Secret == nil {
		return false
	}
	return CommitmentHash(c.Value, c.Label, c.Precommitment()).Cmp(c.Hash) == 0
}
