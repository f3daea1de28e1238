package evm

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	log "github.com/sirupsen/logrus"

	"github.com/privacy-pool-network/pool-daemon/internal/core/domain"
	"github.com/privacy-pool-network/pool-daemon/internal/core/ports"
)

type withdrawalArg struct {
	Processooor common.Address
	Data        []byte
}

type proofArg struct {
	PA         [2]*big.Int
	PB         [2][2]*big.Int
	PC         [2]*big.Int
	PubSignals [8]*big.Int
}

// Broadcaster relays withdrawals through the entrypoint of each chain,
// signing with the chain signer key.
type Broadcaster struct {
	chains *chainSet
	locks  map[uint64]*sync.Mutex
}

func NewBroadcaster(chains []Chain) (*Broadcaster, error) {
	set, err := newChainSet(chains)
	if err != nil {
		return nil, err
	}
	locks := make(map[uint64]*sync.Mutex, len(chains))
	for _, c := range chains {
		if c.SignerKey == nil {
			return nil, domain.ErrMissingConfig.WithMessage(
				"missing signer key for chain %d", c.ID,
			)
		}
		locks[c.ID] = &sync.Mutex{}
	}
	return &Broadcaster{set, locks}, nil
}

// Relay simulates the relay call and, if it would succeed, signs and sends
// it. Sends are serialized per chain to keep nonces in order.
func (b *Broadcaster) Relay(
	ctx context.Context, chainID uint64, tx ports.RelayTx,
) (string, error) {
	chain, err := b.chains.get(chainID)
	if err != nil {
		return "", err
	}
	input, err := packRelay(tx)
	if err != nil {
		return "", err
	}

	opts, err := bind.NewKeyedTransactorWithChainID(
		chain.SignerKey, new(big.Int).SetUint64(chainID),
	)
	if err != nil {
		return "", domain.ErrTxFailed.Wrap(err)
	}
	msg := ethereum.CallMsg{From: opts.From, To: &chain.Entrypoint, Data: input}

	// A revert is a valid answer of the node and doesn't count against the
	// breaker.
	reverted, err := call(b.chains, chainID, func(c Client) (*domain.Error, error) {
		_, err := c.CallContract(ctx, msg, nil)
		return revertError(err)
	})
	if err != nil {
		return "", domain.ErrTxFailed.WithMessage("simulation failed").Wrap(err)
	}
	if reverted != nil {
		return "", reverted
	}

	lock := b.locks[chainID]
	lock.Lock()
	defer lock.Unlock()

	signedTx, err := b.buildTx(ctx, chain, opts, msg)
	if err != nil {
		return "", err
	}

	if _, err := call(b.chains, chainID, func(c Client) (struct{}, error) {
		return struct{}{}, c.SendTransaction(ctx, signedTx)
	}); err != nil {
		return "", domain.ErrTxFailed.Wrap(err)
	}

	log.WithFields(log.Fields{
		"chain": chainID,
		"tx":    signedTx.Hash().Hex(),
	}).Debug("relay transaction sent")

	return signedTx.Hash().Hex(), nil
}

func (b *Broadcaster) buildTx(
	ctx context.Context, chain Chain, opts *bind.TransactOpts,
	msg ethereum.CallMsg,
) (*types.Transaction, error) {
	nonce, err := call(b.chains, chain.ID, func(c Client) (uint64, error) {
		return c.PendingNonceAt(ctx, opts.From)
	})
	if err != nil {
		return nil, err
	}
	gasLimit, err := call(b.chains, chain.ID, func(c Client) (uint64, error) {
		return c.EstimateGas(ctx, msg)
	})
	if err != nil {
		return nil, err
	}
	tip, err := call(b.chains, chain.ID, func(c Client) (*big.Int, error) {
		return c.SuggestGasTipCap(ctx)
	})
	if err != nil {
		return nil, err
	}
	head, err := call(b.chains, chain.ID, func(c Client) (*types.Header, error) {
		return c.HeaderByNumber(ctx, nil)
	})
	if err != nil {
		return nil, err
	}

	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}

	unsigned := types.NewTx(&types.DynamicFeeTx{
		ChainID:   new(big.Int).SetUint64(chain.ID),
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        msg.To,
		Data:      msg.Data,
	})
	signed, err := opts.Signer(opts.From, unsigned)
	if err != nil {
		return nil, domain.ErrTxFailed.Wrap(err)
	}
	return signed, nil
}

func packRelay(tx ports.RelayTx) ([]byte, error) {
	if tx.Scope == nil {
		return nil, domain.ErrInvalidRequest.WithMessage("missing scope")
	}
	signals := tx.Proof.PublicSignals
	if len(signals) != domain.NumPublicSignals {
		return nil, domain.ErrInvalidSignals.WithMessage(
			"expected %d public signals, got %d",
			domain.NumPublicSignals, len(signals),
		)
	}

	p := tx.Proof.Proof
	proof := proofArg{
		PA: [2]*big.Int{orZero(p.A[0]), orZero(p.A[1])},
		// G2 coordinates are swapped for the solidity verifier.
		PB: [2][2]*big.Int{
			{orZero(p.B[0][1]), orZero(p.B[0][0])},
			{orZero(p.B[1][1]), orZero(p.B[1][0])},
		},
		PC: [2]*big.Int{orZero(p.C[0]), orZero(p.C[1])},
	}
	for i, s := range signals {
		proof.PubSignals[i] = orZero(s)
	}

	input, err := entrypointABI.Pack(
		"relay",
		withdrawalArg{tx.Withdrawal.Processooor, tx.Withdrawal.Data},
		proof,
		tx.Scope,
	)
	if err != nil {
		return nil, domain.ErrInvalidRequest.Wrap(err)
	}
	return input, nil
}

// revertError turns the error of a simulation the node reverted into a
// transaction error carrying the revert reason, when there is one. Any other
// error is returned as is.
func revertError(err error) (*domain.Error, error) {
	if err == nil {
		return nil, nil
	}
	var dataErr interface{ ErrorData() interface{} }
	if !errors.As(err, &dataErr) {
		return nil, err
	}
	if raw, ok := dataErr.ErrorData().(string); ok {
		if data, decodeErr := hexutil.Decode(raw); decodeErr == nil {
			if reason, unpackErr := abi.UnpackRevert(data); unpackErr == nil {
				return domain.ErrTxFailed.WithMessage("%s", reason), nil
			}
		}
	}
	return domain.ErrTxFailed.WithMessage("simulation reverted: %s", err), nil
}

func orZero(n *big.Int) *big.Int {
	if n == nil {
		return new(big.Int)
	}
	return n
}
