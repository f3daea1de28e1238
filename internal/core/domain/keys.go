package domain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/privacy-pool-network/pool-daemon/pkg/field"
	"github.com/tyler-smith/go-bip39"
)

const (
	purpose  = 44
	coinType = 60
	// mnemonic entropy in bits
	entropySize = 128
)

// MasterKeys are the two roots every nullifier and secret of an account is
// derived from.
type MasterKeys struct {
	Nullifier *big.Int `json:"nullifier"`
	Secret    *big.Int `json:"secret"`
}

// NewMnemonic generates a fresh 12 words mnemonic.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(entropySize)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// NewMasterKeysFromMnemonic derives the Ethereum private keys of accounts 0
// and 1 (m/44'/60'/i'/0/0) and hashes each of them into a master key.
func NewMasterKeysFromMnemonic(mnemonic string) (*MasterKeys, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrAccountInit.WithMessage("invalid mnemonic")
	}
	seed := bip39.NewSeed(mnemonic, "")

	keys := make([]*big.Int, 0, 2)
	for account := uint32(0); account < 2; account++ {
		key, err := deriveAccountKey(seed, account)
		if err != nil {
			return nil, ErrAccountInit.Wrap(err)
		}
		keys = append(keys, field.MustHash(key))
	}

	return &MasterKeys{Nullifier: keys[0], Secret: keys[1]}, nil
}

// NewMasterKeysFromSeed derives master keys from a hex encoded seed as
// H(H(seed), 1) and H(H(seed), 2).
func NewMasterKeysFromSeed(seed string) (*MasterKeys, error) {
	n, err := field.FromString(seed)
	if err != nil || !strings.HasPrefix(strings.ToLower(strings.TrimSpace(seed)), "0x") {
		return nil, ErrAccountInit.WithMessage("seed must be a hex string")
	}
	preimage := field.MustHash(n)
	return &MasterKeys{
		Nullifier: field.MustHash(preimage, big.NewInt(1)),
		Secret:    field.MustHash(preimage, big.NewInt(2)),
	}, nil
}

// DepositSecrets returns the nullifier and secret of the index-th deposit in
// the pool identified by scope.
func (k MasterKeys) DepositSecrets(scope *big.Int, index uint64) Secrets {
	i := new(big.Int).SetUint64(index)
	return newSecrets(
		field.MustHash(k.Nullifier, scope, i),
		field.MustHash(k.Secret, scope, i),
	)
}

// WithdrawalSecrets returns the nullifier and secret of the index-th
// descendant of the deposit identified by label.
func (k MasterKeys) WithdrawalSecrets(label *big.Int, index uint64) Secrets {
	i := new(big.Int).SetUint64(index)
	return newSecrets(
		field.MustHash(k.Nullifier, label, i),
		field.MustHash(k.Secret, label, i),
	)
}

// Secrets is a nullifier/secret pair with its precommitment.
type Secrets struct {
	Nullifier     *big.Int
	Secret        *big.Int
	Precommitment *big.Int
}

func newSecrets(nullifier, secret *big.Int) Secrets {
	return Secrets{
		Nullifier:     nullifier,
		Secret:        secret,
		Precommitment: field.MustHash(nullifier, secret),
	}
}

// GenerateSecrets returns a random nullifier/secret pair.
func GenerateSecrets() (*Secrets, error) {
	nullifier, err := field.Random()
	if err != nil {
		return nil, err
	}
	secret, err := field.Random()
	if err != nil {
		return nil, err
	}
	s := newSecrets(nullifier, secret)
	return &s, nil
}

func deriveAccountKey(seed []byte, account uint32) (*big.Int, error) {
	node, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, err
	}
	path := []uint32{
		hdkeychain.HardenedKeyStart + purpose,
		hdkeychain.HardenedKeyStart + coinType,
		hdkeychain.HardenedKeyStart + account,
		0,
		0,
	}
	for _, step := range path {
		node, err = node.Derive(step)
		if err != nil {
			return nil, fmt.Errorf("failed to derive path step %d: %w", step, err)
		}
	}
	privkey, err := node.ECPrivKey()
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(privkey.Serialize()), nil
}
