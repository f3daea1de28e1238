package zkgnark

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/consensys/gnark/backend/groth16"
	groth16bn254 "github.com/consensys/gnark/backend/groth16/bn254"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/constraint"
	log "github.com/sirupsen/logrus"

	"github.com/privacy-pool-network/pool-daemon/internal/core/domain"
	"github.com/privacy-pool-network/pool-daemon/pkg/field"
)

// Backend proves and verifies withdrawals with Groth16 over BN254. The
// constraint system takes the public signals in wire order followed by the
// private inputs in circuit order.
type Backend struct {
	ccs constraint.ConstraintSystem
	pk  groth16.ProvingKey
	vk  groth16.VerifyingKey
}

// NewBackend returns a Backend from in-memory artifacts. ccs and pk may be
// nil for a verify-only backend.
func NewBackend(
	ccs constraint.ConstraintSystem, pk groth16.ProvingKey, vk groth16.VerifyingKey,
) (*Backend, error) {
	if vk == nil {
		return nil, fmt.Errorf("missing verifying key")
	}
	if (ccs == nil) != (pk == nil) {
		return nil, fmt.Errorf("constraint system and proving key go together")
	}
	return &Backend{ccs, pk, vk}, nil
}

// LoadBackend reads the artifacts from the given files. Empty ccsPath and
// pkPath give a verify-only backend.
func LoadBackend(ccsPath, pkPath, vkPath string) (*Backend, error) {
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if err := readFrom(vkPath, vk); err != nil {
		return nil, fmt.Errorf("failed to read verifying key: %w", err)
	}
	if ccsPath == "" && pkPath == "" {
		return NewBackend(nil, nil, vk)
	}

	ccs := groth16.NewCS(ecc.BN254)
	if err := readFrom(ccsPath, ccs); err != nil {
		return nil, fmt.Errorf("failed to read constraint system: %w", err)
	}
	pk := groth16.NewProvingKey(ecc.BN254)
	if err := readFrom(pkPath, pk); err != nil {
		return nil, fmt.Errorf("failed to read proving key: %w", err)
	}

	log.Debugf(
		"loaded withdrawal circuit with %d constraints", ccs.GetNbConstraints(),
	)
	return NewBackend(ccs, pk, vk)
}

func (b *Backend) Prove(
	ctx context.Context, signals domain.WithdrawalSignals,
) (*domain.WithdrawalProof, error) {
	if b.pk == nil {
		return nil, domain.ErrProofGeneration.WithMessage("backend is verify only")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	public := signals.PublicSignals().Vector()
	private := signals.PrivateInputs()
	full, err := newWitness(public, private)
	if err != nil {
		return nil, domain.ErrInvalidProofInput.Wrap(err)
	}

	proof, err := groth16.Prove(b.ccs, b.pk, full)
	if err != nil {
		return nil, domain.ErrProofGeneration.Wrap(err)
	}
	bnProof, ok := proof.(*groth16bn254.Proof)
	if !ok {
		return nil, domain.ErrProofGeneration.WithMessage("unexpected proof curve")
	}

	return &domain.WithdrawalProof{
		Proof:         fromGnarkProof(bnProof),
		PublicSignals: public,
	}, nil
}

// Verify reports whether proof is valid for its public signals. Malformed
// proofs are invalid, not errors.
func (b *Backend) Verify(ctx context.Context, proof domain.WithdrawalProof) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if len(proof.PublicSignals) != domain.NumPublicSignals {
		return false, domain.ErrInvalidSignals.WithMessage(
			"expected %d public signals, got %d",
			domain.NumPublicSignals, len(proof.PublicSignals),
		)
	}

	bnProof, ok := toGnarkProof(proof.Proof)
	if !ok {
		return false, nil
	}
	public, err := newWitness(proof.PublicSignals, nil)
	if err != nil {
		return false, domain.ErrProofVerification.Wrap(err)
	}

	if err := groth16.Verify(bnProof, b.vk, public); err != nil {
		log.WithError(err).Debug("withdrawal proof rejected")
		return false, nil
	}
	return true, nil
}

func newWitness(public, private []*big.Int) (witness.Witness, error) {
	w, err := witness.New(ecc.BN254.ScalarField())
	if err != nil {
		return nil, err
	}

	values := make(chan any, len(public)+len(private))
	for _, v := range append(append([]*big.Int{}, public...), private...) {
		if !field.IsValid(v) {
			close(values)
			return nil, fmt.Errorf("input out of field")
		}
		values <- v
	}
	close(values)

	if err := w.Fill(len(public), len(private), values); err != nil {
		return nil, err
	}
	return w, nil
}

func fromGnarkProof(p *groth16bn254.Proof) domain.Groth16Proof {
	return domain.Groth16Proof{
		A: [2]*big.Int{p.Ar.X.BigInt(new(big.Int)), p.Ar.Y.BigInt(new(big.Int))},
		B: [2][2]*big.Int{
			{p.Bs.X.A0.BigInt(new(big.Int)), p.Bs.X.A1.BigInt(new(big.Int))},
			{p.Bs.Y.A0.BigInt(new(big.Int)), p.Bs.Y.A1.BigInt(new(big.Int))},
		},
		C: [2]*big.Int{p.Krs.X.BigInt(new(big.Int)), p.Krs.Y.BigInt(new(big.Int))},
	}
}

func toGnarkProof(p domain.Groth16Proof) (*groth16bn254.Proof, bool) {
	for _, n := range []*big.Int{
		p.A[0], p.A[1], p.B[0][0], p.B[0][1], p.B[1][0], p.B[1][1], p.C[0], p.C[1],
	} {
		if n == nil || n.Sign() < 0 || n.Cmp(fp.Modulus()) >= 0 {
			return nil, false
		}
	}

	var proof groth16bn254.Proof
	proof.Ar.X.SetBigInt(p.A[0])
	proof.Ar.Y.SetBigInt(p.A[1])
	proof.Bs.X.A0.SetBigInt(p.B[0][0])
	proof.Bs.X.A1.SetBigInt(p.B[0][1])
	proof.Bs.Y.A0.SetBigInt(p.B[1][0])
	proof.Bs.Y.A1.SetBigInt(p.B[1][1])
	proof.Krs.X.SetBigInt(p.C[0])
	proof.Krs.Y.SetBigInt(p.C[1])

	if !validG1(&proof.Ar) || !validG1(&proof.Krs) ||
		!proof.Bs.IsOnCurve() || !proof.Bs.IsInSubGroup() {
		return nil, false
	}
	return &proof, true
}

func validG1(p *bn254.G1Affine) bool {
	return p.IsOnCurve() && p.IsInSubGroup()
}

func readFrom(path string, dst io.ReaderFrom) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = dst.ReadFrom(f)
	return err
}
