package withdrawal_test

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"

	"github.com/privacy-pool-network/pool-daemon/internal/core/domain"
)

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) ScopeData(
	ctx context.Context, chainID uint64, scope *big.Int,
) (*domain.ScopeData, error) {
	args := m.Called(ctx, chainID, scope)

	var res *domain.ScopeData
	if a := args.Get(0); a != nil {
		res = a.(*domain.ScopeData)
	}
	return res, args.Error(1)
}

func (m *mockLedger) StateLeaves(
	ctx context.Context, chainID uint64, pool common.Address,
) ([]*big.Int, error) {
	args := m.Called(ctx, chainID, pool)

	var res []*big.Int
	if a := args.Get(0); a != nil {
		res = a.([]*big.Int)
	}
	return res, args.Error(1)
}

func (m *mockLedger) ASPLeaves(
	ctx context.Context, chainID uint64, scope *big.Int,
) ([]*big.Int, error) {
	args := m.Called(ctx, chainID, scope)

	var res []*big.Int
	if a := args.Get(0); a != nil {
		res = a.([]*big.Int)
	}
	return res, args.Error(1)
}

func (m *mockLedger) GasPrice(ctx context.Context, chainID uint64) (*big.Int, error) {
	args := m.Called(ctx, chainID)

	var res *big.Int
	if a := args.Get(0); a != nil {
		res = a.(*big.Int)
	}
	return res, args.Error(1)
}

type mockProver struct {
	mock.Mock
}

func (m *mockProver) Prove(
	ctx context.Context, signals domain.WithdrawalSignals,
) (*domain.WithdrawalProof, error) {
	args := m.Called(ctx, signals)

	var res *domain.WithdrawalProof
	if a := args.Get(0); a != nil {
		res = a.(*domain.WithdrawalProof)
	}
	return res, args.Error(1)
}

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) Verify(
	ctx context.Context, proof domain.WithdrawalProof,
) (bool, error) {
	args := m.Called(ctx, proof)
	return args.Bool(0), args.Error(1)
}

type mockSecrets struct {
	mock.Mock
}

func (m *mockSecrets) CreateWithdrawalSecrets(
	commitment domain.Commitment,
) (*domain.Secrets, error) {
	args := m.Called(commitment)

	var res *domain.Secrets
	if a := args.Get(0); a != nil {
		res = a.(*domain.Secrets)
	}
	return res, args.Error(1)
}
