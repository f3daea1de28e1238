package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sony/gobreaker"

	"github.com/privacy-pool-network/pool-daemon/internal/core/domain"
	"github.com/privacy-pool-network/pool-daemon/pkg/circuitbreaker"
)

// Client is the subset of the JSON-RPC API of a node used by this package.
// *ethclient.Client satisfies it.
type Client interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	CallContract(
		ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int,
	) ([]byte, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Chain is a node connection together with the protocol contracts deployed
// on that chain. Logs are never queried before StartBlock. SignerKey is
// required only to broadcast.
type Chain struct {
	ID         uint64
	Client     Client
	Entrypoint common.Address
	StartBlock uint64
	SignerKey  *ecdsa.PrivateKey
}

// Dial connects to the node at rpcURL and checks it serves chainID.
func Dial(ctx context.Context, rpcURL string, chainID uint64) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, domain.ErrNetwork.WithMessage("failed to dial %s", rpcURL).Wrap(err)
	}
	id, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, domain.ErrNetwork.Wrap(err)
	}
	if id.Uint64() != chainID {
		client.Close()
		return nil, domain.ErrInvalidConfig.WithMessage(
			"node at %s serves chain %d, expected %d", rpcURL, id, chainID,
		)
	}
	return client, nil
}

// chainSet is the chains an adapter can serve, each behind its own circuit
// breaker.
type chainSet struct {
	chains   map[uint64]Chain
	breakers map[uint64]*gobreaker.CircuitBreaker
}

func newChainSet(chains []Chain) (*chainSet, error) {
	if len(chains) <= 0 {
		return nil, domain.ErrMissingConfig.WithMessage("no chain configured")
	}
	set := &chainSet{
		chains:   make(map[uint64]Chain, len(chains)),
		breakers: make(map[uint64]*gobreaker.CircuitBreaker, len(chains)),
	}
	for _, c := range chains {
		if c.Client == nil {
			return nil, fmt.Errorf("missing client for chain %d", c.ID)
		}
		if _, ok := set.chains[c.ID]; ok {
			return nil, domain.ErrInvalidConfig.WithMessage(
				"chain %d configured more than once", c.ID,
			)
		}
		set.chains[c.ID] = c
		set.breakers[c.ID] = circuitbreaker.NewCircuitBreaker(
			fmt.Sprintf("rpc-%d", c.ID),
		)
	}
	return set, nil
}

func (s *chainSet) get(chainID uint64) (Chain, error) {
	c, ok := s.chains[chainID]
	if !ok {
		return Chain{}, domain.ErrChainNotConfigured.WithMessage(
			"no client configured for chain %d", chainID,
		)
	}
	return c, nil
}

// call runs fn against the node of the given chain through its circuit
// breaker. Node failures are reported as network errors.
func call[T any](
	s *chainSet, chainID uint64, fn func(Client) (T, error),
) (T, error) {
	var zero T
	c, err := s.get(chainID)
	if err != nil {
		return zero, err
	}

	res, err := s.breakers[chainID].Execute(func() (interface{}, error) {
		return fn(c.Client)
	})
	if err != nil {
		if _, ok := domain.AsError(err); ok {
			return zero, err
		}
		return zero, domain.ErrNetwork.WithMessage(
			"rpc call to chain %d failed", chainID,
		).Wrap(err)
	}
	return res.(T), nil
}
