package field

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/iden3/go-iden3-crypto/poseidon"
)

var (
	// Modulus is the order of the BN254 scalar field, the field every
	// commitment, nullifier and tree node lives in.
	Modulus = fr.Modulus()
	// Zero ...
	Zero = big.NewInt(0)
)

// Reduce returns x mod Modulus as a new value. Nil is treated as zero.
func Reduce(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return new(big.Int).Mod(x, Modulus)
}

// IsValid returns whether x is a canonical field element.
func IsValid(x *big.Int) bool {
	return x != nil && x.Sign() >= 0 && x.Cmp(Modulus) < 0
}

// IsZero ...
func IsZero(x *big.Int) bool {
	return x == nil || x.Sign() == 0
}

// Hash is the circom-compatible Poseidon hash of the given inputs. Inputs are
// reduced into the field before hashing.
func Hash(inputs ...*big.Int) (*big.Int, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("poseidon: missing inputs")
	}
	reduced := make([]*big.Int, 0, len(inputs))
	for _, in := range inputs {
		reduced = append(reduced, Reduce(in))
	}
	return poseidon.Hash(reduced)
}

// MustHash is like Hash but panics on error. It is meant for inputs whose
// arity is known at compile time.
func MustHash(inputs ...*big.Int) *big.Int {
	h, err := Hash(inputs...)
	if err != nil {
		panic(err)
	}
	return h
}

// HashPair hashes two tree nodes.
func HashPair(left, right *big.Int) *big.Int {
	return MustHash(left, right)
}

// Random returns a uniformly random field element.
func Random() (*big.Int, error) {
	var e fr.Element
	if _, err := e.SetRandom(); err != nil {
		return nil, err
	}
	return e.BigInt(new(big.Int)), nil
}

// FromString parses a decimal or 0x-prefixed hex string.
func FromString(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if len(s) <= 0 {
		return nil, fmt.Errorf("empty string")
	}
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
		base = 16
	}
	n, ok := new(big.Int).SetString(s, base)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	return n, nil
}


// ToHex formats x as a 0x-prefixed 32 bytes hex string.
func ToHex(x *big.Int) string {
	if x == nil {
		x = Zero
	}
	return fmt.Sprintf("0x%064x", x)
}
