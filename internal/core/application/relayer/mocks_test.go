package relayer_test

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"

	"github.com/privacy-pool-network/pool-daemon/internal/core/domain"
	"github.com/privacy-pool-network/pool-daemon/internal/core/ports"
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

type mockQuoter struct {
	mock.Mock
}

func (m *mockQuoter) QuoteNativeInAsset(
	ctx context.Context, chainID uint64, asset common.Address, amountIn *big.Int,
) (*domain.Rate, error) {
	args := m.Called(ctx, chainID, asset, amountIn)

	var res *domain.Rate
	if a := args.Get(0); a != nil {
		res = a.(*domain.Rate)
	}
	return res, args.Error(1)
}

type mockBroadcaster struct {
	mock.Mock
}

func (m *mockBroadcaster) Relay(
	ctx context.Context, chainID uint64, tx ports.RelayTx,
) (string, error) {
	args := m.Called(ctx, chainID, tx)
	return args.String(0), args.Error(1)
}

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) VerifyWithdrawal(
	ctx context.Context, proof domain.WithdrawalProof,
) (bool, error) {
	args := m.Called(ctx, proof)
	return args.Bool(0), args.Error(1)
}
