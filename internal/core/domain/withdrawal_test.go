package domain_test

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/privacy-pool-network/pool-daemon/internal/core/domain"
	"github.com/privacy-pool-network/pool-daemon/pkg/field"
	"github.com/stretchr/testify/require"
)

var (
	entrypoint   = common.HexToAddress("0x6818809EefCe719E480a7526D76bD3e561526b46")
	recipient    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	feeRecipient = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func TestWithdrawalContext(t *testing.T) {
	scope := big.NewInt(12345)

	dataA, err := domain.FeeData{
		Recipient: recipient, FeeRecipient: feeRecipient, RelayFeeBPS: big.NewInt(100),
	}.Encode()
	require.NoError(t, err)
	dataB, err := domain.FeeData{
		Recipient: recipient, FeeRecipient: feeRecipient, RelayFeeBPS: big.NewInt(101),
	}.Encode()
	require.NoError(t, err)

	wA := domain.Withdrawal{Processooor: entrypoint, Data: dataA}
	wB := domain.Withdrawal{Processooor: entrypoint, Data: dataB}

	ctxA, err := wA.Context(scope)
	require.NoError(t, err)
	ctxA2, err := wA.Context(scope)
	require.NoError(t, err)
	ctxB, err := wB.Context(scope)
	require.NoError(t, err)
	ctxScope, err := wA.Context(big.NewInt(54321))
	require.NoError(t, err)

	require.True(t, field.IsValid(ctxA))
	require.Zero(t, ctxA.Cmp(ctxA2))
	require.NotZero(t, ctxA.Cmp(ctxB))
	require.NotZero(t, ctxA.Cmp(ctxScope))

	_, err = wA.Context(nil)
	require.ErrorIs(t, err, domain.ErrInvalidProofInput)
}

func TestFeeData(t *testing.T) {
	fd := domain.FeeData{
		Recipient:    recipient,
		FeeRecipient: feeRecipient,
		RelayFeeBPS:  big.NewInt(250),
	}
	data, err := fd.Encode()
	require.NoError(t, err)
	require.Len(t, data, 96)

	decoded, err := domain.DecodeFeeData(data)
	require.NoError(t, err)
	require.Equal(t, recipient, decoded.Recipient)
	require.Equal(t, feeRecipient, decoded.FeeRecipient)
	require.Equal(t, int64(250), decoded.RelayFeeBPS.Int64())

	_, err = domain.DecodeFeeData([]byte{0x01, 0x02})
	require.ErrorIs(t, err, domain.ErrInvalidWithdrawalData)
}

func TestParsePublicSignals(t *testing.T) {
	signals := make([]*big.Int, domain.NumPublicSignals)
	for i := range signals {
		signals[i] = big.NewInt(int64(i + 1))
	}

	parsed, err := domain.ParsePublicSignals(signals)
	require.NoError(t, err)
	require.Equal(t, int64(1), parsed.NewCommitmentHash.Int64())
	require.Equal(t, int64(2), parsed.ExistingNullifierHash.Int64())
	require.Equal(t, int64(3), parsed.WithdrawnValue.Int64())
	require.Equal(t, int64(4), parsed.StateRoot.Int64())
	require.Equal(t, int64(5), parsed.StateTreeDepth.Int64())
	require.Equal(t, int64(6), parsed.ASPRoot.Int64())
	require.Equal(t, int64(7), parsed.ASPTreeDepth.Int64())
	require.Equal(t, int64(8), parsed.Context.Int64())
	require.Equal(t, signals, parsed.Vector())

	_, err = domain.ParsePublicSignals(signals[:7])
	require.ErrorIs(t, err, domain.ErrInvalidSignals)

	signals[3] = nil
	_, err = domain.ParsePublicSignals(signals)
	require.ErrorIs(t, err, domain.ErrInvalidSignals)
}

func TestWithdrawalSignals(t *testing.T) {
	s := domain.WithdrawalSignals{
		WithdrawnValue:    big.NewInt(30),
		StateRoot:         big.NewInt(1),
		StateTreeDepth:    big.NewInt(2),
		ASPRoot:           big.NewInt(3),
		ASPTreeDepth:      big.NewInt(4),
		Context:           big.NewInt(5),
		Label:             big.NewInt(6),
		ExistingValue:     big.NewInt(100),
		ExistingNullifier: big.NewInt(7),
		ExistingSecret:    big.NewInt(8),
		NewNullifier:      big.NewInt(9),
		NewSecret:         big.NewInt(10),
		StateSiblings:     []*big.Int{big.NewInt(0), big.NewInt(0)},
		StateIndex:        big.NewInt(0),
		ASPSiblings:       []*big.Int{big.NewInt(0), big.NewInt(0)},
		ASPIndex:          big.NewInt(1),
	}

	public := s.PublicSignals()
	expectedCommitment := field.MustHash(
		big.NewInt(70), big.NewInt(6), field.MustHash(big.NewInt(9), big.NewInt(10)),
	)
	require.Zero(t, expectedCommitment.Cmp(public.NewCommitmentHash))
	require.Zero(t, field.MustHash(big.NewInt(7)).Cmp(public.ExistingNullifierHash))
	require.Len(t, s.PrivateInputs(), 6+2+1+2+1)

	inputs := s.CircuitInputs()
	require.Equal(t, "30", inputs["withdrawnValue"])
	require.Equal(t, []string{"0", "0"}, inputs["ASPSiblings"])
}

func TestGroth16ProofJSON(t *testing.T) {
	raw := `{
		"pi_a": ["1", "2", "1"],
		"pi_b": [["3", "4"], ["5", "6"], ["1", "0"]],
		"pi_c": ["7", "8", "1"],
		"protocol": "groth16",
		"curve": "bn128"
	}`

	var proof domain.Groth16Proof
	require.NoError(t, json.Unmarshal([]byte(raw), &proof))
	require.Equal(t, int64(1), proof.A[0].Int64())
	require.Equal(t, int64(6), proof.B[1][1].Int64())
	require.Equal(t, int64(8), proof.C[1].Int64())

	buf, err := json.Marshal(proof)
	require.NoError(t, err)
	require.JSONEq(t, raw, string(buf))

	require.Error(t, json.Unmarshal([]byte(`{"pi_a": ["1"]}`), &proof))
}
