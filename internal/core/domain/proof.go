package domain

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/privacy-pool-network/pool-daemon/pkg/field"
)

// NumPublicSignals is the length of the public signals of a withdrawal proof.
const NumPublicSignals = 8

// Groth16Proof is a proof over BN254. It (un)marshals to the snarkjs JSON
// layout with pi_a, pi_b and pi_c in projective form.
type Groth16Proof struct {
	A [2]*big.Int
	B [2][2]*big.Int
	C [2]*big.Int
}

type snarkjsProof struct {
	PiA      []string   `json:"pi_a"`
	PiB      [][]string `json:"pi_b"`
	PiC      []string   `json:"pi_c"`
	Protocol string     `json:"protocol,omitempty"`
	Curve    string     `json:"curve,omitempty"`
}

func (p Groth16Proof) MarshalJSON() ([]byte, error) {
	return json.Marshal(snarkjsProof{
		PiA: []string{str(p.A[0]), str(p.A[1]), "1"},
		PiB: [][]string{
			{str(p.B[0][0]), str(p.B[0][1])},
			{str(p.B[1][0]), str(p.B[1][1])},
			{"1", "0"},
		},
		PiC:      []string{str(p.C[0]), str(p.C[1]), "1"},
		Protocol: "groth16",
		Curve:    "bn128",
	})
}

func (p *Groth16Proof) UnmarshalJSON(data []byte) error {
	var raw snarkjsProof
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.PiA) < 2 || len(raw.PiC) < 2 || len(raw.PiB) < 2 ||
		len(raw.PiB[0]) != 2 || len(raw.PiB[1]) != 2 {
		return fmt.Errorf("malformed groth16 proof")
	}

	values := []string{
		raw.PiA[0], raw.PiA[1],
		raw.PiB[0][0], raw.PiB[0][1], raw.PiB[1][0], raw.PiB[1][1],
		raw.PiC[0], raw.PiC[1],
	}
	parsed := make([]*big.Int, 0, len(values))
	for _, v := range values {
		n, err := field.FromString(v)
		if err != nil {
			return fmt.Errorf("malformed groth16 proof: %w", err)
		}
		parsed = append(parsed, n)
	}

	p.A = [2]*big.Int{parsed[0], parsed[1]}
	p.B = [2][2]*big.Int{{parsed[2], parsed[3]}, {parsed[4], parsed[5]}}
	p.C = [2]*big.Int{parsed[6], parsed[7]}
	return nil
}

// WithdrawalProof is a proof together with its public signals.
type WithdrawalProof struct {
	Proof         Groth16Proof `json:"proof"`
	PublicSignals []*big.Int   `json:"publicSignals"`
}

// PublicSignals is the named view of the public signals. The order of
// Vector is part of the on-chain verifier interface.
type PublicSignals struct {
	NewCommitmentHash     *big.Int
	ExistingNullifierHash *big.Int
	WithdrawnValue        *big.Int
	StateRoot             *big.Int
	StateTreeDepth        *big.Int
	ASPRoot               *big.Int
	ASPTreeDepth          *big.Int
	Context               *big.Int
}

// ParsePublicSignals ...
func ParsePublicSignals(signals []*big.Int) (*PublicSignals, error) {
	if len(signals) != NumPublicSignals {
		return nil, ErrInvalidSignals.WithMessage(
			"expected %d public signals, got %d", NumPublicSignals, len(signals),
		)
	}
	for i, s := range signals {
		if s == nil {
			return nil, ErrInvalidSignals.WithMessage("signal %d is undefined", i)
		}
	}
	return &PublicSignals{
		NewCommitmentHash:     signals[0],
		ExistingNullifierHash: signals[1],
		WithdrawnValue:        signals[2],
		StateRoot:             signals[3],
		StateTreeDepth:        signals[4],
		ASPRoot:               signals[5],
		ASPTreeDepth:          signals[6],
		Context:               signals[7],
	}, nil
}

// Vector ...
func (s PublicSignals) Vector() []*big.Int {
	return []*big.Int{
		s.NewCommitmentHash,
		s.ExistingNullifierHash,
		s.WithdrawnValue,
		s.StateRoot,
		s.StateTreeDepth,
		s.ASPRoot,
		s.ASPTreeDepth,
		s.Context,
	}
}

// WithdrawalSignals is the full input set of the withdrawal circuit.
type WithdrawalSignals struct {
	WithdrawnValue *big.Int
	StateRoot      *big.Int
	StateTreeDepth *big.Int
	ASPRoot        *big.Int
	ASPTreeDepth   *big.Int
	Context        *big.Int

	Label             *big.Int
	ExistingValue     *big.Int
	ExistingNullifier *big.Int
	ExistingSecret    *big.Int
	NewNullifier      *big.Int
	NewSecret         *big.Int
	StateSiblings     []*big.Int
	StateIndex        *big.Int
	ASPSiblings       []*big.Int
	ASPIndex          *big.Int
}

// PublicSignals computes the public signals the circuit outputs for this
// input set.
func (s WithdrawalSignals) PublicSignals() PublicSignals {
	remaining := new(big.Int).Sub(s.ExistingValue, s.WithdrawnValue)
	newPrecommitment := field.MustHash(s.NewNullifier, s.NewSecret)
	return PublicSignals{
		NewCommitmentHash:     CommitmentHash(remaining, s.Label, newPrecommitment),
		ExistingNullifierHash: NullifierHash(s.ExistingNullifier),
		WithdrawnValue:        s.WithdrawnValue,
		StateRoot:             s.StateRoot,
		StateTreeDepth:        s.StateTreeDepth,
		ASPRoot:               s.ASPRoot,
		ASPTreeDepth:          s.ASPTreeDepth,
		Context:               s.Context,
	}
}

// PrivateInputs returns the private inputs in circuit order.
func (s WithdrawalSignals) PrivateInputs() []*big.Int {
	inputs := []*big.Int{
		s.Label,
		s.ExistingValue,
		s.ExistingNullifier,
		s.ExistingSecret,
		s.NewNullifier,
		s.NewSecret,
	}
	inputs = append(inputs, s.StateSiblings...)
	inputs = append(inputs, s.StateIndex)
	inputs = append(inputs, s.ASPSiblings...)
	inputs = append(inputs, s.ASPIndex)
	return inputs
}

// CircuitInputs returns the named input set as expected by circom provers.
func (s WithdrawalSignals) CircuitInputs() map[string]interface{} {
	return map[string]interface{}{
		"withdrawnValue":    str(s.WithdrawnValue),
		"stateRoot":         str(s.StateRoot),
		"stateTreeDepth":    str(s.StateTreeDepth),
		"ASPRoot":           str(s.ASPRoot),
		"ASPTreeDepth":      str(s.ASPTreeDepth),
		"context":           str(s.Context),
		"label":             str(s.Label),
		"existingValue":     str(s.ExistingValue),
		"existingNullifier": str(s.ExistingNullifier),
		"existingSecret":    str(s.ExistingSecret),
		"newNullifier":      str(s.NewNullifier),
		"newSecret":         str(s.NewSecret),
		"stateSiblings":     strs(s.StateSiblings),
		"stateIndex":        str(s.StateIndex),
		"ASPSiblings":       strs(s.ASPSiblings),
		"ASPIndex":          str(s.ASPIndex),
	}
}

func str(n *big.Int) string {
	if n == nil {
		return "0"
	}
	return n.String()
}

func strs(ns []*big.Int) []string {
	out := make([]string, 0, len(ns))
	for _, n := range ns {
		out = append(out, str(n))
	}
	return out
}
