package relayer

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/privacy-pool-network/pool-daemon/internal/core/domain"
	"github.com/privacy-pool-network/pool-daemon/pkg/field"
)

var (
	// NativeAsset is the pseudo address of the native asset of a chain.
	NativeAsset = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")
	// DefaultMinWithdrawAmount applies to assets with no configured minimum.
	DefaultMinWithdrawAmount = big.NewInt(100000)
)

// Asset is the relaying policy for one asset of a chain.
type Asset struct {
	Address           common.Address
	FeeBPS            *big.Int
	MinWithdrawAmount *big.Int
}

func (a Asset) minWithdrawAmount() *big.Int {
	if a.MinWithdrawAmount == nil {
		return DefaultMinWithdrawAmount
	}
	return a.MinWithdrawAmount
}

// Chain is the relaying policy for one chain. SignerKey signs fee
// commitments: without it quotes carry no commitment and requests with one
// are rejected.
type Chain struct {
	ID          uint64
	Entrypoint  common.Address
	FeeReceiver common.Address
	SignerKey   *ecdsa.PrivateKey
	MaxGasPrice *big.Int
	Assets      map[common.Address]Asset
}

func (c Chain) signer() (common.Address, bool) {
	if c.SignerKey == nil {
		return common.Address{}, false
	}
	return crypto.PubkeyToAddress(c.SignerKey.PublicKey), true
}

// WithdrawalRequest is a withdrawal a user asks the relayer to submit.
type WithdrawalRequest struct {
	ChainID       uint64
	Scope         *big.Int
	Withdrawal    domain.Withdrawal
	Proof         domain.WithdrawalProof
	FeeCommitment *domain.FeeCommitment
}

// Response is the outcome of a relay request.
type Response struct {
	Success   bool   `json:"success"`
	Timestamp int64  `json:"timestamp"`
	RequestID string `json:"requestId"`
	TxHash    string `json:"txHash,omitempty"`
	Error     string `json:"error,omitempty"`
	Code      string `json:"code,omitempty"`
}

// QuoteRequest asks for the fee of relaying a withdrawal of Amount. When a
// Recipient is given the quote comes with a signed fee commitment.
type QuoteRequest struct {
	ChainID   uint64
	Amount    *big.Int
	Asset     common.Address
	Recipient *common.Address
	ExtraGas  bool
}

// QuoteDetail breaks down the native cost a fee covers.
type QuoteDetail struct {
	GasUnits   *big.Int
	NativeCost *big.Int
	Rate       domain.Rate
}

// Quote ...
type Quote struct {
	BaseFeeBPS    *big.Int
	FeeBPS        *big.Int
	GasPrice      *big.Int
	Detail        QuoteDetail
	FeeCommitment *domain.FeeCommitment
}

// Details is the public relaying policy for an asset of a chain.
type Details struct {
	ChainID            uint64
	FeeBPS             *big.Int
	MinWithdrawAmount  *big.Int
	FeeReceiverAddress common.Address
	AssetAddress       common.Address
	MaxGasPrice        *big.Int
}

// RequestBody is the JSON shape of a relay request.
type RequestBody struct {
	ChainID       uint64              `json:"chainId"`
	Scope         string              `json:"scope,omitempty"`
	Withdrawal    WithdrawalBody      `json:"withdrawal"`
	Proof         domain.Groth16Proof `json:"proof"`
	PublicSignals []string            `json:"publicSignals"`
	FeeCommitment *FeeCommitmentBody  `json:"feeCommitment,omitempty"`
}

// WithdrawalBody ...
type WithdrawalBody struct {
	Processooor string        `json:"processooor"`
	Scope       string        `json:"scope,omitempty"`
	Data        hexutil.Bytes `json:"data"`
}

// FeeCommitmentBody ...
type FeeCommitmentBody struct {
	Expiration              int64         `json:"expiration"`
	WithdrawalData          hexutil.Bytes `json:"withdrawalData"`
	Amount                  string        `json:"amount,omitempty"`
	ExtraGas                bool          `json:"extraGas"`
	SignedRelayerCommitment hexutil.Bytes `json:"signedRelayerCommitment"`
}

// Parse validates the body and converts it into a WithdrawalRequest.
func (b RequestBody) Parse() (*WithdrawalRequest, error) {
	if !common.IsHexAddress(b.Withdrawal.Processooor) {
		return nil, domain.ErrInvalidRequest.WithMessage(
			"invalid processooor address %q", b.Withdrawal.Processooor,
		)
	}

	rawScope := b.Scope
	if rawScope == "" {
		rawScope = b.Withdrawal.Scope
	}
	scope, err := field.FromString(rawScope)
	if err != nil {
		return nil, domain.ErrInvalidRequest.WithMessage("invalid scope").Wrap(err)
	}

	if len(b.PublicSignals) != domain.NumPublicSignals {
		return nil, domain.ErrInvalidRequest.WithMessage(
			"expected %d public signals, got %d",
			domain.NumPublicSignals, len(b.PublicSignals),
		)
	}
	signals := make([]*big.Int, 0, len(b.PublicSignals))
	for i, s := range b.PublicSignals {
		n, err := field.FromString(s)
		if err != nil {
			return nil, domain.ErrInvalidRequest.WithMessage(
				"invalid public signal %d", i,
			).Wrap(err)
		}
		signals = append(signals, n)
	}

	req := &WithdrawalRequest{
		ChainID: b.ChainID,
		Scope:   scope,
		Withdrawal: domain.Withdrawal{
			Processooor: common.HexToAddress(b.Withdrawal.Processooor),
			Data:        b.Withdrawal.Data,
		},
		Proof: domain.WithdrawalProof{
			Proof:         b.Proof,
			PublicSignals: signals,
		},
	}

	if c := b.FeeCommitment; c != nil {
		var amount *big.Int
		if c.Amount != "" {
			if amount, err = field.FromString(c.Amount); err != nil {
				return nil, domain.ErrInvalidRequest.WithMessage(
					"invalid fee commitment amount",
				).Wrap(err)
			}
		}
		req.FeeCommitment = &domain.FeeCommitment{
			WithdrawalData: c.WithdrawalData,
			Expiration:     c.Expiration,
			Amount:         amount,
			ExtraGas:       c.ExtraGas,
			Signature:      c.SignedRelayerCommitment,
		}
	}

	return req, nil
}

// Body is the inverse of RequestBody.Parse.
func (r WithdrawalRequest) Body() RequestBody {
	signals := make([]string, 0, len(r.Proof.PublicSignals))
	for _, s := range r.Proof.PublicSignals {
		signals = append(signals, s.String())
	}
	body := RequestBody{
		ChainID: r.ChainID,
		Scope:   r.Scope.String(),
		Withdrawal: WithdrawalBody{
			Processooor: r.Withdrawal.Processooor.Hex(),
			Data:        r.Withdrawal.Data,
		},
		Proof:         r.Proof.Proof,
		PublicSignals: signals,
	}
	if c := r.FeeCommitment; c != nil {
		body.FeeCommitment = &FeeCommitmentBody{
			Expiration:              c.Expiration,
			WithdrawalData:          c.WithdrawalData,
			ExtraGas:                c.ExtraGas,
			SignedRelayerCommitment: c.Signature,
		}
		if c.Amount != nil {
			body.FeeCommitment.Amount = c.Amount.String()
		}
	}
	return body
}
