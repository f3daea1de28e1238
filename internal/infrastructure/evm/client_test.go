package evm

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// fakeClient serves a fixed set of logs and answers contract calls through
// the call func.
type fakeClient struct {
	lock    sync.Mutex
	head    uint64
	logs    []types.Log
	call    func(msg ethereum.CallMsg) ([]byte, error)
	queries []ethereum.FilterQuery
	sent    []*types.Transaction
	failing bool
}

func (c *fakeClient) BlockNumber(ctx context.Context) (uint64, error) {
	return c.head, nil
}

func (c *fakeClient) FilterLogs(
	ctx context.Context, q ethereum.FilterQuery,
) ([]types.Log, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.queries = append(c.queries, q)
	if c.failing {
		return nil, fmt.Errorf("connection refused")
	}

	res := make([]types.Log, 0)
	for _, l := range c.logs {
		if l.BlockNumber < q.FromBlock.Uint64() || l.BlockNumber > q.ToBlock.Uint64() {
			continue
		}
		if len(q.Addresses) > 0 && l.Address != q.Addresses[0] {
			continue
		}
		if !matchTopic(q.Topics, l) {
			continue
		}
		res = append(res, l)
	}
	return res, nil
}

func matchTopic(topics [][]common.Hash, l types.Log) bool {
	if len(topics) == 0 || len(topics[0]) == 0 {
		return true
	}
	for _, t := range topics[0] {
		if len(l.Topics) > 0 && l.Topics[0] == t {
			return true
		}
	}
	return false
}

func (c *fakeClient) CallContract(
	ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int,
) ([]byte, error) {
	return c.call(msg)
}

func (c *fakeClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(3_000_000_000), nil
}

func (c *fakeClient) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (c *fakeClient) HeaderByNumber(
	ctx context.Context, number *big.Int,
) (*types.Header, error) {
	return &types.Header{BaseFee: big.NewInt(2_000_000_000)}, nil
}

func (c *fakeClient) PendingNonceAt(
	ctx context.Context, account common.Address,
) (uint64, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return uint64(len(c.sent)), nil
}

func (c *fakeClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return 500_000, nil
}

func (c *fakeClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.sent = append(c.sent, tx)
	return nil
}
