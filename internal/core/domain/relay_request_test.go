package domain_test

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/privacy-pool-network/pool-daemon/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func TestRelayRequestBroadcast(t *testing.T) {
	req := domain.NewRelayRequest("id", time.Now().UnixMilli(), 1, nil)
	require.Equal(t, domain.RelayStatusReceived, req.Status)

	require.NoError(t, req.Broadcast("0xabc"))
	require.True(t, req.IsBroadcasted())
	require.Equal(t, "0xabc", req.TxHash)

	require.ErrorIs(t, req.Fail("late failure"), domain.ErrRelayRequestFinalized)
	require.ErrorIs(t, req.Broadcast("0xdef"), domain.ErrRelayRequestFinalized)
	require.Equal(t, "0xabc", req.TxHash)
}

func TestRelayRequestFail(t *testing.T) {
	req := domain.NewRelayRequest("id", time.Now().UnixMilli(), 1, nil)

	require.NoError(t, req.Fail("context mismatch"))
	require.True(t, req.IsFailed())
	require.Equal(t, "context mismatch", req.Error)

	require.ErrorIs(t, req.Broadcast("0xabc"), domain.ErrRelayRequestFinalized)
}

func TestFeeCommitment(t *testing.T) {
	now := time.Now()
	c := domain.FeeCommitment{
		WithdrawalData: []byte{1, 2, 3},
		Expiration:     now.Add(time.Minute).UnixMilli(),
	}

	require.False(t, c.IsExpired(now))
	require.True(t, c.IsExpired(now.Add(2*time.Minute)))
	require.True(t, c.Matches([]byte{1, 2, 3}))
	require.False(t, c.Matches([]byte{1, 2}))
}

func TestFeeCommitmentSignature(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := crypto.PubkeyToAddress(key.PublicKey)

	c := domain.FeeCommitment{
		WithdrawalData: []byte{0xca, 0xfe},
		Expiration:     time.Now().Add(20 * time.Second).UnixMilli(),
	}
	require.NoError(t, c.Sign(1, key))
	require.Len(t, c.Signature, 65)
	require.GreaterOrEqual(t, c.Signature[64], byte(27))

	recovered, err := c.Signer(1)
	require.NoError(t, err)
	require.Equal(t, signer, recovered)

	// bound to the chain id
	other, err := c.Signer(5)
	require.NoError(t, err)
	require.NotEqual(t, signer, other)

	// bound to the withdrawal data
	tampered := c
	tampered.WithdrawalData = []byte{0xca, 0xff}
	recovered, err = tampered.Signer(1)
	require.NoError(t, err)
	require.NotEqual(t, signer, recovered)

	tampered.Signature = []byte{0x01}
	_, err = tampered.Signer(1)
	require.ErrorIs(t, err, domain.ErrInvalidFeeCommitment)
}
