package account

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/privacy-pool-network/pool-daemon/internal/core/domain"
	"github.com/privacy-pool-network/pool-daemon/internal/core/ports"
	"github.com/privacy-pool-network/pool-daemon/pkg/field"
)

// Service owns a privacy pool account and keeps it in sync with the events
// emitted by the pools it is used with.
type Service struct {
	eventSource ports.EventSource

	lock    *sync.RWMutex
	account *domain.PrivacyPoolAccount
}

func NewService(
	eventSource ports.EventSource, keys domain.MasterKeys,
) (*Service, error) {
	if keys.Nullifier == nil || keys.Secret == nil {
		return nil, domain.ErrAccountInit.WithMessage("missing master keys")
	}
	return newService(eventSource, domain.NewPrivacyPoolAccount(keys))
}

// NewServiceFromSnapshot restores a service from the output of Snapshot.
func NewServiceFromSnapshot(
	eventSource ports.EventSource, snapshot []byte,
) (*Service, error) {
	account := &domain.PrivacyPoolAccount{}
	if err := json.Unmarshal(snapshot, account); err != nil {
		return nil, domain.ErrAccountInit.Wrap(err)
	}
	if account.MasterKeys.Nullifier == nil || account.MasterKeys.Secret == nil {
		return nil, domain.ErrAccountInit.WithMessage("snapshot has no master keys")
	}
	return newService(eventSource, account)
}

func newService(
	eventSource ports.EventSource, account *domain.PrivacyPoolAccount,
) (*Service, error) {
	if eventSource == nil {
		return nil, fmt.Errorf("missing event source")
	}
	return &Service{eventSource, &sync.RWMutex{}, account}, nil
}

// Snapshot serializes the whole account, secrets included.
func (s *Service) Snapshot() ([]byte, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return json.Marshal(s.account)
}

func (s *Service) MasterKeys() domain.MasterKeys {
	return s.account.MasterKeys
}

// Scopes returns the scopes of the pools the account has deposited into.
func (s *Service) Scopes() []*big.Int {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.account.Scopes()
}

// PoolAccounts returns a copy of the pool accounts of the given scope.
func (s *Service) PoolAccounts(scope *big.Int) []domain.PoolAccount {
	s.lock.RLock()
	defer s.lock.RUnlock()

	accounts := s.account.Accounts(scope)
	list := make([]domain.PoolAccount, 0, len(accounts))
	for _, a := range accounts {
		cp := *a
		cp.Children = append([]domain.Commitment{}, a.Children...)
		list = append(list, cp)
	}
	return list
}

// RetrieveHistory rebuilds the pool accounts of every given pool from chain
// events. Pools are scanned concurrently and the account is updated only
// once all of them succeeded.
func (s *Service) RetrieveHistory(
	ctx context.Context, pools []domain.PoolInfo,
) error {
	results := make([][]*domain.PoolAccount, len(pools))

	g, gctx := errgroup.WithContext(ctx)
	for i := range pools {
		g.Go(func() error {
			accounts, err := s.historyForPool(gctx, pools[i])
			if err != nil {
				return err
			}
			results[i] = accounts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	for i, pool := range pools {
		if len(results[i]) <= 0 {
			continue
		}
		s.account.SetPoolAccounts(pool.Scope, results[i])
	}
	return nil
}

// GetSpendableCommitments returns, by scope, the latest commitment of every
// pool account that can still be spent.
func (s *Service) GetSpendableCommitments() map[string][]domain.Commitment {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.account.SpendableCommitments()
}

// CreateDepositSecrets returns the secrets for the next deposit into the
// pool with the given scope.
func (s *Service) CreateDepositSecrets(scope *big.Int) (*domain.Secrets, error) {
	if err := validateNonZero("scope", scope); err != nil {
		return nil, err
	}

	s.lock.RLock()
	index := int64(len(s.account.Accounts(scope)))
	s.lock.RUnlock()

	return s.CreateDepositSecretsAt(scope, index)
}

// CreateDepositSecretsAt returns the secrets of the deposit at the given
// index.
func (s *Service) CreateDepositSecretsAt(
	scope *big.Int, index int64,
) (*domain.Secrets, error) {
	if err := validateNonZero("scope", scope); err != nil {
		return nil, err
	}
	if index < 0 {
		return nil, domain.ErrInvalidIndex.WithMessage(
			"invalid index: %d must be non-negative", index,
		)
	}
	secrets := s.account.MasterKeys.DepositSecrets(scope, uint64(index))
	return &secrets, nil
}

// CreateWithdrawalSecrets returns the secrets of the commitment created by
// spending the given one.
func (s *Service) CreateWithdrawalSecrets(
	commitment domain.Commitment,
) (*domain.Secrets, error) {
	if err := validateNonZero("label", commitment.Label); err != nil {
		return nil, err
	}

	s.lock.RLock()
	account, _, ok := s.account.FindByLabel(commitment.Label)
	var index int64
	if ok {
		index = int64(len(account.Children))
	}
	s.lock.RUnlock()

	if !ok {
		return nil, domain.ErrCommitmentNotFound.WithMessage(
			"no account found for label %s", commitment.Label,
		)
	}
	return s.CreateWithdrawalSecretsAt(commitment, index)
}

// CreateWithdrawalSecretsAt is like CreateWithdrawalSecrets with an explicit
// child index.
func (s *Service) CreateWithdrawalSecretsAt(
	commitment domain.Commitment, index int64,
) (*domain.Secrets, error) {
	if err := validateNonZero("label", commitment.Label); err != nil {
		return nil, err
	}
	if index < 0 {
		return nil, domain.ErrInvalidIndex.WithMessage(
			"invalid index: %d must be non-negative", index,
		)
	}

	s.lock.RLock()
	_, _, ok := s.account.FindByLabel(commitment.Label)
	s.lock.RUnlock()
	if !ok {
		return nil, domain.ErrCommitmentNotFound.WithMessage(
			"no account found for label %s", commitment.Label,
		)
	}

	secrets := s.account.MasterKeys.WithdrawalSecrets(commitment.Label, uint64(index))
	return &secrets, nil
}

// AddPoolAccount records a deposit made by the owner of the account.
func (s *Service) AddPoolAccount(
	scope, value, nullifier, secret, label *big.Int,
	blockNumber uint64, txHash common.Hash,
) (*domain.PoolAccount, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	account, err := s.account.AddPoolAccount(
		scope, value, nullifier, secret, label, blockNumber, txHash,
	)
	if err != nil {
		return nil, err
	}
	cp := *account
	return &cp, nil
}

// AddWithdrawalCommitment records the commitment created by spending parent.
func (s *Service) AddWithdrawalCommitment(
	parent domain.Commitment, value, nullifier, secret *big.Int,
	blockNumber uint64, txHash common.Hash,
) (*domain.Commitment, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.account.AddWithdrawalCommitment(
		parent, value, nullifier, secret, blockNumber, txHash,
	)
}

// AddRagequitToAccount marks the pool account with the event's label as
// publicly exited.
func (s *Service) AddRagequitToAccount(
	event domain.RagequitEvent,
) (*domain.PoolAccount, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	account, err := s.account.AddRagequit(event)
	if err != nil {
		return nil, err
	}
	cp := *account
	return &cp, nil
}

func (s *Service) historyForPool(
	ctx context.Context, pool domain.PoolInfo,
) ([]*domain.PoolAccount, error) {
	if pool.Scope == nil {
		return nil, domain.ErrInvalidInput.WithMessage("pool %s has no scope", pool.Address)
	}
	logger := log.WithFields(log.Fields{
		"chain": pool.ChainID,
		"pool":  pool.Address.Hex(),
	})
	logger.Debugf("processing pool from block %d", pool.DeploymentBlock)

	deposits, err := s.eventSource.GetDeposits(
		ctx, pool.ChainID, pool.Address,
		domain.EventFilter{FromBlock: pool.DeploymentBlock},
	)
	if err != nil {
		return nil, err
	}
	logger.Debugf("found %d deposits", len(deposits))

	// Rebuilt on a scratch account, RetrieveHistory copies the result over.
	scratch := domain.NewPrivacyPoolAccount(s.account.MasterKeys)
	firstBlock, err := scanDeposits(scratch, pool.Scope, deposits)
	if err != nil {
		return nil, err
	}

	accounts := scratch.Accounts(pool.Scope)
	if len(accounts) <= 0 {
		logger.Debugf("no pool accounts found for scope %s", pool.Scope)
		return nil, nil
	}
	logger.Debugf("found %d pool accounts", len(accounts))

	filter := domain.EventFilter{FromBlock: firstBlock}
	withdrawals, err := s.eventSource.GetWithdrawals(
		ctx, pool.ChainID, pool.Address, filter,
	)
	if err != nil {
		return nil, err
	}
	logger.Debugf("found %d withdrawals", len(withdrawals))

	if err := scanWithdrawals(scratch, accounts, withdrawals); err != nil {
		return nil, err
	}

	ragequits, err := s.eventSource.GetRagequits(
		ctx, pool.ChainID, pool.Address, filter,
	)
	if err != nil {
		return nil, err
	}
	for _, r := range ragequits {
		if _, _, ok := scratch.FindByLabel(r.Label); !ok {
			continue
		}
		if _, err := scratch.AddRagequit(r); err != nil {
			return nil, err
		}
		logger.Debugf("pool account with label %s ragequitted", r.Label)
	}

	return scratch.Accounts(pool.Scope), nil
}

// scanDeposits derives deposit secrets at increasing indexes until one has
// no matching deposit, and returns the block of the earliest match.
func scanDeposits(
	account *domain.PrivacyPoolAccount, scope *big.Int,
	deposits []domain.DepositEvent,
) (uint64, error) {
	byPrecommitment := make(map[string]domain.DepositEvent, len(deposits))
	for _, d := range deposits {
		if d.Precommitment == nil {
			continue
		}
		byPrecommitment[d.Precommitment.String()] = d
	}

	var firstBlock uint64
	for i := 0; i < len(byPrecommitment); i++ {
		secrets := account.MasterKeys.DepositSecrets(scope, uint64(i))
		deposit, ok := byPrecommitment[secrets.Precommitment.String()]
		if !ok {
			break
		}
		if i == 0 || deposit.BlockNumber < firstBlock {
			firstBlock = deposit.BlockNumber
		}

		if _, err := account.AddPoolAccount(
			scope, deposit.Value, secrets.Nullifier, secrets.Secret,
			deposit.Label, deposit.BlockNumber, deposit.TxHash,
		); err != nil {
			return 0, err
		}
	}
	return firstBlock, nil
}

// scanWithdrawals follows the chain of every pool account, probing the
// nullifier hash of the next child until one was never spent.
func scanWithdrawals(
	account *domain.PrivacyPoolAccount, accounts []*domain.PoolAccount,
	withdrawals []domain.WithdrawalEvent,
) error {
	bySpentNullifier := make(map[string]domain.WithdrawalEvent, len(withdrawals))
	for _, w := range withdrawals {
		if w.SpentNullifier == nil {
			continue
		}
		bySpentNullifier[w.SpentNullifier.String()] = w
	}

	for _, pa := range accounts {
		parent := pa.Deposit
		for j := 0; j < len(bySpentNullifier); j++ {
			secrets := account.MasterKeys.WithdrawalSecrets(parent.Label, uint64(j))
			spent := domain.NullifierHash(secrets.Nullifier)
			withdrawal, ok := bySpentNullifier[spent.String()]
			if !ok {
				break
			}

			remaining := new(big.Int).Sub(parent.Value, withdrawal.Withdrawn)
			child, err := account.AddWithdrawalCommitment(
				parent, remaining, secrets.Nullifier, secrets.Secret,
				withdrawal.BlockNumber, withdrawal.TxHash,
			)
			if err != nil {
				return err
			}
			parent = *child
		}
	}
	return nil
}

// validateNonZero rejects a missing value or one that is zero in the field.
func validateNonZero(name string, v *big.Int) error {
	if v == nil {
		return domain.ErrInvalidInput.WithMessage("missing %s", name)
	}
	if field.IsZero(field.Reduce(v)) {
		return domain.ErrInvalidInput.WithMessage("%s must be non-zero", name)
	}
	return nil
}
