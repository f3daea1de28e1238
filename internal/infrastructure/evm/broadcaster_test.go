package evm

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/privacy-pool-network/pool-daemon/internal/core/domain"
	"github.com/privacy-pool-network/pool-daemon/internal/core/ports"
	"github.com/privacy-pool-network/pool-daemon/pkg/circuitbreaker"
)

type revertErr struct {
	data string
}

func (e revertErr) Error() string          { return "execution reverted" }
func (e revertErr) ErrorData() interface{} { return e.data }

func revertData(t *testing.T, reason string) string {
	stringType, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	packed, err := abi.Arguments{{Type: stringType}}.Pack(reason)
	require.NoError(t, err)
	selector := crypto.Keccak256([]byte("Error(string)"))[:4]
	return hexutil.Encode(append(selector, packed...))
}

func testRelayTx() ports.RelayTx {
	signals := make([]*big.Int, domain.NumPublicSignals)
	for i := range signals {
		signals[i] = big.NewInt(int64(i + 1))
	}
	return ports.RelayTx{
		Withdrawal: domain.Withdrawal{Processooor: testEntrypoint, Data: []byte{0x01}},
		Proof: domain.WithdrawalProof{
			Proof: domain.Groth16Proof{
				A: [2]*big.Int{big.NewInt(1), big.NewInt(2)},
				B: [2][2]*big.Int{
					{big.NewInt(3), big.NewInt(4)},
					{big.NewInt(5), big.NewInt(6)},
				},
				C: [2]*big.Int{big.NewInt(7), big.NewInt(8)},
			},
			PublicSignals: signals,
		},
		Scope: testScope,
	}
}

func TestBroadcasterRelay(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	var simulated []ethereum.CallMsg
	client := &fakeClient{
		call: func(msg ethereum.CallMsg) ([]byte, error) {
			simulated = append(simulated, msg)
			return nil, nil
		},
	}
	broadcaster, err := NewBroadcaster([]Chain{{
		ID: testChainID, Client: client, Entrypoint: testEntrypoint, SignerKey: key,
	}})
	require.NoError(t, err)

	hash, err := broadcaster.Relay(context.Background(), testChainID, testRelayTx())
	require.NoError(t, err)
	require.Len(t, client.sent, 1)
	require.Len(t, simulated, 1)

	tx := client.sent[0]
	require.Equal(t, tx.Hash().Hex(), hash)
	require.Equal(t, testEntrypoint, *tx.To())
	require.Equal(t, uint64(500_000), tx.Gas())
	require.Equal(t, int64(5_000_000_000), tx.GasFeeCap().Int64())

	sender, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	require.NoError(t, err)
	require.Equal(t, crypto.PubkeyToAddress(key.PublicKey), sender)
	require.Equal(t, sender, simulated[0].From)

	args, err := entrypointABI.Methods["relay"].Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	require.Len(t, args, 3)
	require.Zero(t, testScope.Cmp(args[2].(*big.Int)))

	// the nonce follows the sent transactions
	_, err = broadcaster.Relay(context.Background(), testChainID, testRelayTx())
	require.NoError(t, err)
	require.Equal(t, uint64(1), client.sent[1].Nonce())
}

func TestBroadcasterRelayReverted(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	client := &fakeClient{
		call: func(msg ethereum.CallMsg) ([]byte, error) {
			return nil, revertErr{revertData(t, "InvalidProof")}
		},
	}
	broadcaster, err := NewBroadcaster([]Chain{{
		ID: testChainID, Client: client, Entrypoint: testEntrypoint, SignerKey: key,
	}})
	require.NoError(t, err)

	_, err = broadcaster.Relay(context.Background(), testChainID, testRelayTx())
	require.ErrorIs(t, err, domain.ErrTxFailed)
	e, ok := domain.AsError(err)
	require.True(t, ok)
	require.Equal(t, "InvalidProof", e.Message)
	require.Empty(t, client.sent)

	client.call = func(msg ethereum.CallMsg) ([]byte, error) {
		return nil, revertErr{"0x1234"}
	}
	_, err = broadcaster.Relay(context.Background(), testChainID, testRelayTx())
	require.ErrorIs(t, err, domain.ErrTxFailed)
	require.Empty(t, client.sent)

	client.call = func(msg ethereum.CallMsg) ([]byte, error) {
		return nil, fmt.Errorf("out of gas")
	}
	_, err = broadcaster.Relay(context.Background(), testChainID, testRelayTx())
	require.ErrorIs(t, err, domain.ErrTxFailed)
	require.ErrorIs(t, err, domain.ErrNetwork)
}

func TestBroadcasterSimulationBreaker(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	attempts := circuitbreaker.MaxNumOfFailingRequests + 2

	t.Run("reverts keep the breaker closed", func(t *testing.T) {
		calls := 0
		client := &fakeClient{
			call: func(msg ethereum.CallMsg) ([]byte, error) {
				calls++
				return nil, revertErr{revertData(t, "InvalidProof")}
			},
		}
		broadcaster, err := NewBroadcaster([]Chain{{
			ID: testChainID, Client: client, Entrypoint: testEntrypoint, SignerKey: key,
		}})
		require.NoError(t, err)

		for i := 0; i < attempts; i++ {
			_, err := broadcaster.Relay(context.Background(), testChainID, testRelayTx())
			require.ErrorIs(t, err, domain.ErrTxFailed)
		}
		require.Equal(t, attempts, calls)
	})

	t.Run("node failures open the breaker", func(t *testing.T) {
		calls := 0
		client := &fakeClient{
			call: func(msg ethereum.CallMsg) ([]byte, error) {
				calls++
				return nil, fmt.Errorf("connection refused")
			},
		}
		broadcaster, err := NewBroadcaster([]Chain{{
			ID: testChainID, Client: client, Entrypoint: testEntrypoint, SignerKey: key,
		}})
		require.NoError(t, err)

		for i := 0; i < attempts; i++ {
			_, err := broadcaster.Relay(context.Background(), testChainID, testRelayTx())
			require.ErrorIs(t, err, domain.ErrNetwork)
		}
		require.Less(t, calls, attempts)
		require.Empty(t, client.sent)
	})
}

func TestPackRelay(t *testing.T) {
	tx := testRelayTx()
	input, err := packRelay(tx)
	require.NoError(t, err)

	args, err := entrypointABI.Methods["relay"].Inputs.Unpack(input[4:])
	require.NoError(t, err)

	proof := *abi.ConvertType(args[1], new(proofArg)).(*proofArg)
	require.Equal(t, int64(4), proof.PB[0][0].Int64())
	require.Equal(t, int64(3), proof.PB[0][1].Int64())
	require.Equal(t, int64(8), proof.PubSignals[7].Int64())

	tx.Proof.PublicSignals = tx.Proof.PublicSignals[:2]
	_, err = packRelay(tx)
	require.ErrorIs(t, err, domain.ErrInvalidSignals)

	tx = testRelayTx()
	tx.Scope = nil
	_, err = packRelay(tx)
	require.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = NewBroadcaster([]Chain{{ID: 1, Client: &fakeClient{}}})
	require.ErrorIs(t, err, domain.ErrMissingConfig)
}
