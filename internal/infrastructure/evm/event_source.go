package evm

import (
	"context"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"

	"github.com/privacy-pool-network/pool-daemon/internal/core/domain"
)

const (
	// DefaultBlockRange is the widest block window of a single log query.
	DefaultBlockRange = 10_000
	// DefaultRequestsPerSecond caps the log queries sent to a node.
	DefaultRequestsPerSecond = 10
)

// EventSource reads pool events from the logs of a node.
type EventSource struct {
	chains     *chainSet
	limiter    ratelimit.Limiter
	blockRange uint64
}

// NewEventSource returns an EventSource querying logs in windows of
// blockRange blocks at most, and at most rps queries per second.
func NewEventSource(chains []Chain, blockRange uint64, rps int) (*EventSource, error) {
	set, err := newChainSet(chains)
	if err != nil {
		return nil, err
	}
	if blockRange <= 0 {
		blockRange = DefaultBlockRange
	}
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	return &EventSource{
		chains:     set,
		limiter:    ratelimit.New(rps),
		blockRange: blockRange,
	}, nil
}

func (s *EventSource) GetDeposits(
	ctx context.Context, chainID uint64, pool common.Address,
	filter domain.EventFilter,
) ([]domain.DepositEvent, error) {
	logs, err := s.filterLogs(ctx, chainID, pool, filter, depositedEvent.ID)
	if err != nil {
		return nil, err
	}

	deposits := make([]domain.DepositEvent, 0, len(logs))
	for _, l := range logs {
		values, err := unpackEvent(depositedEvent, l, 4)
		if err != nil {
			return nil, err
		}
		depositor := common.BytesToAddress(l.Topics[1].Bytes())
		if depositor == (common.Address{}) ||
			isZero(values[0]) || isZero(values[1]) || isZero(values[2]) {
			return nil, invalidLog("deposit", "missing required fields")
		}
		deposits = append(deposits, domain.DepositEvent{
			Depositor:     depositor,
			Commitment:    values[0],
			Label:         values[1],
			Value:         values[2],
			Precommitment: values[3],
			BlockNumber:   l.BlockNumber,
			TxHash:        l.TxHash,
		})
	}
	return deposits, nil
}

func (s *EventSource) GetWithdrawals(
	ctx context.Context, chainID uint64, pool common.Address,
	filter domain.EventFilter,
) ([]domain.WithdrawalEvent, error) {
	logs, err := s.filterLogs(ctx, chainID, pool, filter, withdrawnEvent.ID)
	if err != nil {
		return nil, err
	}

	withdrawals := make([]domain.WithdrawalEvent, 0, len(logs))
	for _, l := range logs {
		values, err := unpackEvent(withdrawnEvent, l, 3)
		if err != nil {
			return nil, err
		}
		if isZero(values[0]) || isZero(values[1]) || isZero(values[2]) {
			return nil, invalidLog("withdrawal", "missing required fields")
		}
		withdrawals = append(withdrawals, domain.WithdrawalEvent{
			Processooor:    common.BytesToAddress(l.Topics[1].Bytes()),
			Withdrawn:      values[0],
			SpentNullifier: values[1],
			NewCommitment:  values[2],
			BlockNumber:    l.BlockNumber,
			TxHash:         l.TxHash,
		})
	}
	return withdrawals, nil
}

func (s *EventSource) GetRagequits(
	ctx context.Context, chainID uint64, pool common.Address,
	filter domain.EventFilter,
) ([]domain.RagequitEvent, error) {
	logs, err := s.filterLogs(ctx, chainID, pool, filter, ragequitEvent.ID)
	if err != nil {
		return nil, err
	}

	ragequits := make([]domain.RagequitEvent, 0, len(logs))
	for _, l := range logs {
		values, err := unpackEvent(ragequitEvent, l, 3)
		if err != nil {
			return nil, err
		}
		ragequitter := common.BytesToAddress(l.Topics[1].Bytes())
		if ragequitter == (common.Address{}) ||
			isZero(values[0]) || isZero(values[1]) || isZero(values[2]) {
			return nil, invalidLog("ragequit", "missing required fields")
		}
		ragequits = append(ragequits, domain.RagequitEvent{
			Ragequitter: ragequitter,
			Commitment:  values[0],
			Label:       values[1],
			Value:       values[2],
			BlockNumber: l.BlockNumber,
			TxHash:      l.TxHash,
		})
	}
	return ragequits, nil
}

// StateLeaves returns the commitments inserted in the state tree of pool,
// deposits and withdrawal descendants alike, in emission order.
func (s *EventSource) StateLeaves(
	ctx context.Context, chainID uint64, pool common.Address, fromBlock uint64,
) ([]*big.Int, error) {
	logs, err := s.filterLogs(
		ctx, chainID, pool, domain.EventFilter{FromBlock: fromBlock},
		depositedEvent.ID, withdrawnEvent.ID,
	)
	if err != nil {
		return nil, err
	}

	leaves := make([]*big.Int, 0, len(logs))
	for _, l := range logs {
		switch l.Topics[0] {
		case depositedEvent.ID:
			values, err := unpackEvent(depositedEvent, l, 4)
			if err != nil {
				return nil, err
			}
			leaves = append(leaves, values[0])
		case withdrawnEvent.ID:
			values, err := unpackEvent(withdrawnEvent, l, 3)
			if err != nil {
				return nil, err
			}
			leaves = append(leaves, values[2])
		}
	}
	return leaves, nil
}

// filterLogs returns the logs of pool matching any of the given event ids,
// sorted by block number and log index. Ranges are queried in windows of
// blockRange blocks.
func (s *EventSource) filterLogs(
	ctx context.Context, chainID uint64, pool common.Address,
	filter domain.EventFilter, events ...common.Hash,
) ([]types.Log, error) {
	toBlock, err := s.toBlock(ctx, chainID, filter)
	if err != nil {
		return nil, err
	}

	logger := log.WithFields(log.Fields{
		"chain": chainID,
		"pool":  pool.Hex(),
	})
	logger.Debugf("fetching logs from block %d to %d", filter.FromBlock, toBlock)

	logs := make([]types.Log, 0)
	for from := filter.FromBlock; from <= toBlock; from += s.blockRange {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		to := from + s.blockRange - 1
		if to > toBlock {
			to = toBlock
		}

		query := ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(from),
			ToBlock:   new(big.Int).SetUint64(to),
			Addresses: []common.Address{pool},
			Topics:    [][]common.Hash{events},
		}

		s.limiter.Take()
		window, err := call(s.chains, chainID, func(c Client) ([]types.Log, error) {
			return c.FilterLogs(ctx, query)
		})
		if err != nil {
			return nil, err
		}
		for _, l := range window {
			if l.Removed {
				continue
			}
			logs = append(logs, l)
		}
	}

	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		return logs[i].Index < logs[j].Index
	})
	return logs, nil
}

func (s *EventSource) toBlock(
	ctx context.Context, chainID uint64, filter domain.EventFilter,
) (uint64, error) {
	if filter.ToBlock != nil {
		return *filter.ToBlock, nil
	}
	return call(s.chains, chainID, func(c Client) (uint64, error) {
		return c.BlockNumber(ctx)
	})
}

// unpackEvent decodes the non-indexed uint256 fields of l. The indexed
// address is expected as second topic.
func unpackEvent(event abi.Event, l types.Log, numFields int) ([]*big.Int, error) {
	if len(l.Topics) < 2 {
		return nil, invalidLog(event.Name, "missing topics")
	}
	values, err := event.Inputs.NonIndexed().Unpack(l.Data)
	if err != nil {
		return nil, invalidLog(event.Name, err.Error())
	}
	if len(values) < numFields {
		return nil, invalidLog(event.Name, "insufficient data")
	}

	fields := make([]*big.Int, 0, numFields)
	for _, v := range values[:numFields] {
		n, ok := v.(*big.Int)
		if !ok {
			return nil, invalidLog(event.Name, "unexpected field type")
		}
		fields = append(fields, n)
	}
	return fields, nil
}

func invalidLog(event, reason string) error {
	return domain.ErrInvalidLog.WithMessage("invalid %s log: %s", event, reason)
}

func isZero(n *big.Int) bool {
	return n == nil || n.Sign() == 0
}
