package account_test

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"

	"github.com/privacy-pool-network/pool-daemon/internal/core/domain"
)

type mockEventSource struct {
	mock.Mock
}

func (m *mockEventSource) GetDeposits(
	ctx context.Context, chainID uint64, pool common.Address,
	filter domain.EventFilter,
) ([]domain.DepositEvent, error) {
	args := m.Called(ctx, chainID, pool, filter)

	var res []domain.DepositEvent
	if a := args.Get(0); a != nil {
		res = a.([]domain.DepositEvent)
	}
	return res, args.Error(1)
}

func (m *mockEventSource) GetWithdrawals(
	ctx context.Context, chainID uint64, pool common.Address,
	filter domain.EventFilter,
) ([]domain.WithdrawalEvent, error) {
	args := m.Called(ctx, chainID, pool, filter)

	var res []domain.WithdrawalEvent
	if a := args.Get(0); a != nil {
		res = a.([]domain.WithdrawalEvent)
	}
	return res, args.Error(1)
}

func (m *mockEventSource) GetRagequits(
	ctx context.Context, chainID uint64, pool common.Address,
	filter domain.EventFilter,
) ([]domain.RagequitEvent, error) {
	args := m.Called(ctx, chainID, pool, filter)

	var res []domain.RagequitEvent
	if a := args.Get(0); a != nil {
		res = a.([]domain.RagequitEvent)
	}
	return res, args.Error(1)
}
