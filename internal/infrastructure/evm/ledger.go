package evm

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/privacy-pool-network/pool-daemon/internal/core/domain"
)

// ASPSource returns the labels approved by the association set provider of
// a scope, in insertion order.
type ASPSource interface {
	ASPLeaves(ctx context.Context, chainID uint64, scope *big.Int) ([]*big.Int, error)
}

// Ledger reads the on-chain state of the pools.
type Ledger struct {
	events *EventSource
	asp    ASPSource

	lock       *sync.RWMutex
	scopeCache map[string]domain.ScopeData
}

// NewLedger returns a Ledger reading events through events. If asp is nil,
// every deposited label of a scope is considered approved.
func NewLedger(events *EventSource, asp ASPSource) (*Ledger, error) {
	if events == nil {
		return nil, fmt.Errorf("missing event source")
	}
	l := &Ledger{
		events:     events,
		lock:       &sync.RWMutex{},
		scopeCache: make(map[string]domain.ScopeData),
	}
	if asp == nil {
		asp = openASP{l}
	}
	l.asp = asp
	return l, nil
}

// ScopeData resolves scope through the entrypoint. Results are cached since
// a scope is bound to its pool for good.
func (l *Ledger) ScopeData(
	ctx context.Context, chainID uint64, scope *big.Int,
) (*domain.ScopeData, error) {
	if scope == nil {
		return nil, domain.ErrInvalidRequest.WithMessage("missing scope")
	}
	key := fmt.Sprintf("%d:%s", chainID, scope)

	l.lock.RLock()
	data, ok := l.scopeCache[key]
	l.lock.RUnlock()
	if ok {
		return &data, nil
	}

	chain, err := l.events.chains.get(chainID)
	if err != nil {
		return nil, err
	}

	pool, err := l.callAddress(
		ctx, chainID, chain.Entrypoint, entrypointABIMethod("scopeToPool"), scope,
	)
	if err != nil {
		return nil, err
	}
	if pool == (common.Address{}) {
		return nil, domain.ErrAssetNotSupported.WithMessage(
			"No pool found for scope %s", scope,
		)
	}
	asset, err := l.callAddress(ctx, chainID, pool, poolABIMethod("ASSET"))
	if err != nil {
		return nil, err
	}

	data = domain.ScopeData{PoolAddress: pool, AssetAddress: asset}
	l.lock.Lock()
	l.scopeCache[key] = data
	l.lock.Unlock()

	return &data, nil
}

func (l *Ledger) StateLeaves(
	ctx context.Context, chainID uint64, pool common.Address,
) ([]*big.Int, error) {
	chain, err := l.events.chains.get(chainID)
	if err != nil {
		return nil, err
	}
	return l.events.StateLeaves(ctx, chainID, pool, chain.StartBlock)
}

func (l *Ledger) ASPLeaves(
	ctx context.Context, chainID uint64, scope *big.Int,
) ([]*big.Int, error) {
	return l.asp.ASPLeaves(ctx, chainID, scope)
}

func (l *Ledger) GasPrice(ctx context.Context, chainID uint64) (*big.Int, error) {
	return call(l.events.chains, chainID, func(c Client) (*big.Int, error) {
		return c.SuggestGasPrice(ctx)
	})
}

func (l *Ledger) callAddress(
	ctx context.Context, chainID uint64, to common.Address,
	method abiMethod, args ...interface{},
) (common.Address, error) {
	input, err := method.abi.Pack(method.name, args...)
	if err != nil {
		return common.Address{}, domain.ErrInvalidRequest.Wrap(err)
	}

	out, err := call(l.events.chains, chainID, func(c Client) ([]byte, error) {
		return c.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	})
	if err != nil {
		return common.Address{}, err
	}

	values, err := method.abi.Unpack(method.name, out)
	if err != nil || len(values) != 1 {
		return common.Address{}, domain.ErrNetwork.WithMessage(
			"unexpected %s result from %s", method.name, to.Hex(),
		)
	}
	addr, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, domain.ErrNetwork.WithMessage(
			"unexpected %s result from %s", method.name, to.Hex(),
		)
	}
	return addr, nil
}

// openASP approves every label deposited in the pool of a scope.
type openASP struct {
	ledger *Ledger
}

func (a openASP) ASPLeaves(
	ctx context.Context, chainID uint64, scope *big.Int,
) ([]*big.Int, error) {
	data, err := a.ledger.ScopeData(ctx, chainID, scope)
	if err != nil {
		return nil, err
	}
	chain, err := a.ledger.events.chains.get(chainID)
	if err != nil {
		return nil, err
	}

	deposits, err := a.ledger.events.GetDeposits(
		ctx, chainID, data.PoolAddress,
		domain.EventFilter{FromBlock: chain.StartBlock},
	)
	if err != nil {
		return nil, err
	}
	labels := make([]*big.Int, 0, len(deposits))
	for _, d := range deposits {
		labels = append(labels, d.Label)
	}
	return labels, nil
}
