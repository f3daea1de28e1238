package domain

import (
	"bytes"
	"crypto/ecdsa"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

const (
	feeCommitmentDomainName    = "Privacy Pools Relayer"
	feeCommitmentDomainVersion = "1"
	feeCommitmentPrimaryType   = "RelayerCommitment"
)

var feeCommitmentTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
	},
	feeCommitmentPrimaryType: {
		{Name: "withdrawalData", Type: "bytes"},
		{Name: "expiration", Type: "uint256"},
	},
}

// FeeCommitment is a fee quote signed by the relayer. A withdrawal carrying
// it is accepted at the quoted fee until Expiration (unix milliseconds),
// regardless of gas price movements.
type FeeCommitment struct {
	WithdrawalData []byte
	Expiration     int64
	Amount         *big.Int
	ExtraGas       bool
	Signature      []byte
}

// IsExpired ...
func (c FeeCommitment) IsExpired(now time.Time) bool {
	return now.UnixMilli() > c.Expiration
}

// Matches returns whether the commitment covers the given withdrawal data.
func (c FeeCommitment) Matches(data []byte) bool {
	return bytes.Equal(c.WithdrawalData, data)
}

// ExpirationBig ...
func (c FeeCommitment) ExpirationBig() *big.Int {
	return big.NewInt(c.Expiration)
}

// Hash returns the EIP-712 digest of the commitment for the given chain.
func (c FeeCommitment) Hash(chainID uint64) ([]byte, error) {
	typedData := apitypes.TypedData{
		Types:       feeCommitmentTypes,
		PrimaryType: feeCommitmentPrimaryType,
		Domain: apitypes.TypedDataDomain{
			Name:    feeCommitmentDomainName,
			Version: feeCommitmentDomainVersion,
			ChainId: math.NewHexOrDecimal256(int64(chainID)),
		},
		Message: apitypes.TypedDataMessage{
			"withdrawalData": c.WithdrawalData,
			"expiration":     c.ExpirationBig(),
		},
	}
	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, ErrInvalidFeeCommitment.Wrap(err)
	}
	return hash, nil
}

// Sign sets the signature of the commitment made with key.
func (c *FeeCommitment) Sign(chainID uint64, key *ecdsa.PrivateKey) error {
	hash, err := c.Hash(chainID)
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(hash, key)
	if err != nil {
		return ErrInvalidFeeCommitment.Wrap(err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	c.Signature = sig
	return nil
}

// Signer recovers the address that signed the commitment.
func (c FeeCommitment) Signer(chainID uint64) (common.Address, error) {
	if len(c.Signature) != crypto.SignatureLength {
		return common.Address{}, ErrInvalidFeeCommitment.WithMessage(
			"invalid signature length %d", len(c.Signature),
		)
	}
	hash, err := c.Hash(chainID)
	if err != nil {
		return common.Address{}, err
	}

	sig := make([]byte, crypto.SignatureLength)
	copy(sig, c.Signature)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pubkey, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return common.Address{}, ErrInvalidFeeCommitment.Wrap(err)
	}
	return crypto.PubkeyToAddress(*pubkey), nil
}

// Rate is the price of the native asset expressed in another asset, as the
// ratio between an amount in and the amount out of a swap.
type Rate struct {
	Num *big.Int
	Den *big.Int
}

// NativeRate ...
func NativeRate() Rate {
	return Rate{Num: big.NewInt(1), Den: big.NewInt(1)}
}
