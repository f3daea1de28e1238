package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/privacy-pool-network/pool-daemon/pkg/field"
)

var (
	withdrawalTupleType = mustNewType("tuple", []abi.ArgumentMarshaling{
		{Name: "processooor", Type: "address"},
		{Name: "data", Type: "bytes"},
	})
	feeDataTupleType = mustNewType("tuple", []abi.ArgumentMarshaling{
		{Name: "recipient", Type: "address"},
		{Name: "feeRecipient", Type: "address"},
		{Name: "relayFeeBPS", Type: "uint256"},
	})
	uint256Type = mustNewType("uint256", nil)

	contextArgs = abi.Arguments{{Type: withdrawalTupleType}, {Type: uint256Type}}
	feeDataArgs = abi.Arguments{{Type: feeDataTupleType}}
)

// Withdrawal is the descriptor a withdrawal proof is bound to: who processes
// it and the opaque data telling the processor how to route funds and fees.
type Withdrawal struct {
	Processooor common.Address
	Data        []byte
}

type withdrawalTuple struct {
	Processooor common.Address
	Data        []byte
}

// Context returns keccak256(abi.encode(withdrawal, scope)) reduced into the
// field. Proofs generated for one context can't be replayed under another.
func (w Withdrawal) Context(scope *big.Int) (*big.Int, error) {
	if scope == nil {
		return nil, ErrInvalidProofInput.WithMessage("missing scope")
	}
	packed, err := contextArgs.Pack(
		withdrawalTuple{Processooor: w.Processooor, Data: w.Data}, scope,
	)
	if err != nil {
		return nil, ErrInvalidProofInput.Wrap(err)
	}
	hash := new(big.Int).SetBytes(crypto.Keccak256(packed))
	return hash.Mod(hash, field.Modulus), nil
}

// FeeData is the content of Withdrawal.Data when the processor is the
// entrypoint relaying on behalf of a user.
type FeeData struct {
	Recipient    common.Address
	FeeRecipient common.Address
	RelayFeeBPS  *big.Int
}

// DecodeFeeData ...
func DecodeFeeData(data []byte) (*FeeData, error) {
	out, err := feeDataArgs.Unpack(data)
	if err != nil {
		return nil, ErrInvalidWithdrawalData.Wrap(err)
	}
	if len(out) != 1 {
		return nil, ErrInvalidWithdrawalData
	}
	fd := *abi.ConvertType(out[0], new(FeeData)).(*FeeData)
	return &fd, nil
}

// Encode returns the ABI encoding of the fee data.
func (f FeeData) Encode() ([]byte, error) {
	bps := f.RelayFeeBPS
	if bps == nil {
		bps = new(big.Int)
	}
	return feeDataArgs.Pack(FeeData{f.Recipient, f.FeeRecipient, bps})
}

func mustNewType(t string, components []abi.ArgumentMarshaling) abi.Type {
	typ, err := abi.NewType(t, "", components)
	if err != nil {
		panic(err)
	}
	return typ
}
