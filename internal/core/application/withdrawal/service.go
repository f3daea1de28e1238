package withdrawal

import (
	"context"
	"fmt"
	"math/big"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/privacy-pool-network/pool-daemon/internal/core/domain"
	"github.com/privacy-pool-network/pool-daemon/internal/core/ports"
	"github.com/privacy-pool-network/pool-daemon/pkg/merkle"
)

// SecretsSource derives the secrets of the commitment created by spending
// another one.
type SecretsSource interface {
	CreateWithdrawalSecrets(commitment domain.Commitment) (*domain.Secrets, error)
}

// Service prepares and verifies withdrawal proofs.
type Service struct {
	ledger   ports.Ledger
	prover   ports.Prover
	verifier ports.Verifier
	secrets  SecretsSource
}

func NewService(
	ledger ports.Ledger, prover ports.Prover, verifier ports.Verifier,
	secrets SecretsSource,
) (*Service, error) {
	if ledger == nil {
		return nil, fmt.Errorf("missing ledger")
	}
	if prover == nil {
		return nil, fmt.Errorf("missing prover")
	}
	if verifier == nil {
		return nil, fmt.Errorf("missing verifier")
	}
	if secrets == nil {
		return nil, fmt.Errorf("missing secrets source")
	}
	return &Service{ledger, prover, verifier, secrets}, nil
}

// NewVerifierService returns a Service that can only verify proofs, as
// needed by a relayer that holds no account.
func NewVerifierService(verifier ports.Verifier) (*Service, error) {
	if verifier == nil {
		return nil, fmt.Errorf("missing verifier")
	}
	return &Service{verifier: verifier}, nil
}

// ProveWithdrawal proves that amount can be withdrawn from commitment, with
// the proof bound to the given withdrawal and scope.
func (s *Service) ProveWithdrawal(
	ctx context.Context, chainID uint64, commitment domain.Commitment,
	amount *big.Int, withdrawal domain.Withdrawal, scope *big.Int,
) (*domain.WithdrawalProof, error) {
	if s.prover == nil {
		return nil, domain.ErrProofGeneration.WithMessage("service can only verify proofs")
	}
	if scope == nil {
		return nil, domain.ErrInvalidProofInput.WithMessage("missing scope")
	}
	if err := validateCommitment(commitment); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, domain.ErrInvalidProofInput.WithMessage(
			"withdrawn amount must be positive",
		)
	}
	if amount.Cmp(commitment.Value) > 0 {
		return nil, domain.ErrInvalidProofInput.WithMessage(
			"withdrawn amount %s exceeds commitment value %s",
			amount, commitment.Value,
		)
	}

	withdrawalCtx, err := withdrawal.Context(scope)
	if err != nil {
		return nil, err
	}

	stateTree, aspTree, err := s.buildTrees(ctx, chainID, scope)
	if err != nil {
		return nil, err
	}

	stateProof, err := stateTree.GenerateProofForLeaf(commitment.Hash)
	if err != nil {
		return nil, domain.ErrMerkle.WithMessage(
			"commitment %s not found in state tree", commitment.Hash,
		).Wrap(err)
	}
	aspProof, err := aspTree.GenerateProofForLeaf(commitment.Label)
	if err != nil {
		return nil, domain.ErrMerkle.WithMessage(
			"label %s not found in ASP tree", commitment.Label,
		).Wrap(err)
	}
	stateSiblings, err := stateProof.PaddedSiblings(merkle.MaxDepth)
	if err != nil {
		return nil, domain.ErrMerkle.Wrap(err)
	}
	aspSiblings, err := aspProof.PaddedSiblings(merkle.MaxDepth)
	if err != nil {
		return nil, domain.ErrMerkle.Wrap(err)
	}

	secrets, err := s.secrets.CreateWithdrawalSecrets(commitment)
	if err != nil {
		return nil, err
	}

	signals := domain.WithdrawalSignals{
		WithdrawnValue:    new(big.Int).Set(amount),
		StateRoot:         stateProof.Root,
		StateTreeDepth:    big.NewInt(int64(stateTree.Depth())),
		ASPRoot:           aspProof.Root,
		ASPTreeDepth:      big.NewInt(int64(aspTree.Depth())),
		Context:           withdrawalCtx,
		Label:             commitment.Label,
		ExistingValue:     commitment.Value,
		ExistingNullifier: commitment.Nullifier,
		ExistingSecret:    commitment.Secret,
		NewNullifier:      secrets.Nullifier,
		NewSecret:         secrets.Secret,
		StateSiblings:     stateSiblings,
		StateIndex:        new(big.Int).SetUint64(stateProof.Index),
		ASPSiblings:       aspSiblings,
		ASPIndex:          new(big.Int).SetUint64(aspProof.Index),
	}

	proof, err := s.prover.Prove(ctx, signals)
	if err != nil {
		if domain.IsKind(err, domain.KindProof) {
			return nil, err
		}
		return nil, domain.ErrProofGeneration.Wrap(err)
	}

	log.WithFields(log.Fields{
		"chain":      chainID,
		"commitment": commitment.Hash.String(),
	}).Debug("withdrawal proof generated")

	return proof, nil
}

// VerifyWithdrawal returns whether proof is valid. An error means the proof
// could not be checked, not that it is invalid.
func (s *Service) VerifyWithdrawal(
	ctx context.Context, proof domain.WithdrawalProof,
) (bool, error) {
	if _, err := domain.ParsePublicSignals(proof.PublicSignals); err != nil {
		return false, domain.ErrProofVerification.Wrap(err)
	}

	ok, err := s.verifier.Verify(ctx, proof)
	if err != nil {
		return false, domain.ErrProofVerification.Wrap(err)
	}
	return ok, nil
}

func validateCommitment(c domain.Commitment) error {
	fields := []struct {
		name  string
		value *big.Int
	}{
		{"hash", c.Hash},
		{"label", c.Label},
		{"value", c.Value},
		{"nullifier", c.Nullifier},
		{"secret", c.Secret},
	}
	for _, f := range fields {
		if f.value == nil {
			return domain.ErrInvalidProofInput.WithMessage(
				"commitment is missing its %s", f.name,
			)
		}
	}
	return nil
}

func (s *Service) buildTrees(
	ctx context.Context, chainID uint64, scope *big.Int,
) (*merkle.Tree, *merkle.Tree, error) {
	scopeData, err := s.ledger.ScopeData(ctx, chainID, scope)
	if err != nil {
		return nil, nil, err
	}

	var stateLeaves, aspLeaves []*big.Int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		leaves, err := s.ledger.StateLeaves(gctx, chainID, scopeData.PoolAddress)
		stateLeaves = leaves
		return err
	})
	g.Go(func() error {
		leaves, err := s.ledger.ASPLeaves(gctx, chainID, scope)
		aspLeaves = leaves
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	stateTree := merkle.NewPoseidonTree()
	stateTree.InsertMany(stateLeaves)
	aspTree := merkle.NewPoseidonTree()
	aspTree.InsertMany(aspLeaves)

	return stateTree, aspTree, nil
}
