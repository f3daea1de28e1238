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

func TestNewCommitment(t *testing.T) {
	value, label := big.NewInt(100), big.NewInt(5)
	nullifier, secret := big.NewInt(11), big.NewInt(22)

	c, err := domain.NewCommitment(value, label, nullifier, secret, 1, common.Hash{})
	require.NoError(t, err)
	expected := field.MustHash(value, label, field.MustHash(nullifier, secret))
	require.Zero(t, expected.Cmp(c.Hash))
	require.True(t, c.IsValid())
	require.Zero(t, field.MustHash(nullifier).Cmp(c.NullifierHash()))

	tests := []struct {
		name                     string
		label, nullifier, secret *big.Int
	}{
		{"zero nullifier", label, big.NewInt(0), secret},
		{"zero label", big.NewInt(0), nullifier, secret},
		{"zero secret", label, nullifier, big.NewInt(0)},
		{"nil secret", label, nullifier, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.NewCommitment(value, tt.label, tt.nullifier, tt.secret, 1, common.Hash{})
			require.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestPrivacyPoolAccount(t *testing.T) {
	t.Run("AddPoolAccount", testAddPoolAccount())
	t.Run("AddWithdrawalCommitment", testAddWithdrawalCommitment())
	t.Run("AddRagequit", testAddRagequit())
	t.Run("SpendableCommitments", testSpendableCommitments())
	t.Run("SetPoolAccounts", testSetPoolAccounts())
	t.Run("JSON", testAccountJSON())
}

func testAddPoolAccount() func(*testing.T) {
	return func(t *testing.T) {
		account := domain.NewPrivacyPoolAccount(testMasterKeys(t))
		scope := big.NewInt(1)
		s := account.MasterKeys.DepositSecrets(scope, 0)

		pa, err := account.AddPoolAccount(
			scope, big.NewInt(100), s.Nullifier, s.Secret, big.NewInt(9), 10, common.Hash{},
		)
		require.NoError(t, err)
		require.Len(t, account.Accounts(scope), 1)
		require.Empty(t, pa.Children)

		found, foundScope, ok := account.FindByLabel(big.NewInt(9))
		require.True(t, ok)
		require.Equal(t, pa, found)
		require.Zero(t, scope.Cmp(foundScope))

		_, err = account.AddPoolAccount(
			scope, big.NewInt(100), s.Nullifier, s.Secret, big.NewInt(0), 10, common.Hash{},
		)
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	}
}

func testAddWithdrawalCommitment() func(*testing.T) {
	return func(t *testing.T) {
		account, scope, label := accountWithDeposit(t, 100)
		deposit := account.Accounts(scope)[0].Deposit
		w := account.MasterKeys.WithdrawalSecrets(label, 0)

		child, err := account.AddWithdrawalCommitment(
			deposit, big.NewInt(70), w.Nullifier, w.Secret, 11, common.Hash{},
		)
		require.NoError(t, err)
		require.Zero(t, label.Cmp(child.Label))
		require.Equal(t, int64(70), child.Value.Int64())
		require.Len(t, account.Accounts(scope)[0].Children, 1)

		unknown := deposit
		unknown.Hash = big.NewInt(123)
		_, err = account.AddWithdrawalCommitment(
			unknown, big.NewInt(70), w.Nullifier, w.Secret, 11, common.Hash{},
		)
		require.ErrorIs(t, err, domain.ErrCommitmentNotFound)

		unknown = deposit
		unknown.Label = big.NewInt(4242)
		_, err = account.AddWithdrawalCommitment(
			unknown, big.NewInt(70), w.Nullifier, w.Secret, 11, common.Hash{},
		)
		require.ErrorIs(t, err, domain.ErrCommitmentNotFound)
	}
}

func testAddRagequit() func(*testing.T) {
	return func(t *testing.T) {
		account, scope, label := accountWithDeposit(t, 100)

		pa, err := account.AddRagequit(domain.RagequitEvent{
			Label: label, Value: big.NewInt(100), BlockNumber: 20,
		})
		require.NoError(t, err)
		require.NotNil(t, pa.Ragequit)
		require.False(t, account.Accounts(scope)[0].IsSpendable())

		_, err = account.AddRagequit(domain.RagequitEvent{Label: big.NewInt(1234)})
		require.ErrorIs(t, err, domain.ErrCommitmentNotFound)
	}
}

func testSpendableCommitments() func(*testing.T) {
	return func(t *testing.T) {
		account, scope, label := accountWithDeposit(t, 100)
		key := domain.ScopeKey(scope)

		spendable := account.SpendableCommitments()
		require.Len(t, spendable[key], 1)
		require.Equal(t, int64(100), spendable[key][0].Value.Int64())

		// spend everything
		w := account.MasterKeys.WithdrawalSecrets(label, 0)
		_, err := account.AddWithdrawalCommitment(
			account.Accounts(scope)[0].Deposit, big.NewInt(0), w.Nullifier, w.Secret, 12, common.Hash{},
		)
		require.NoError(t, err)

		spendable = account.SpendableCommitments()
		require.NotContains(t, spendable, key)
	}
}

func testSetPoolAccounts() func(*testing.T) {
	return func(t *testing.T) {
		account, scope, label := accountWithDeposit(t, 100)

		account.SetPoolAccounts(scope, nil)
		_, _, ok := account.FindByLabel(label)
		require.False(t, ok)
		require.Empty(t, account.Accounts(scope))
	}
}

func testAccountJSON() func(*testing.T) {
	return func(t *testing.T) {
		account, scope, label := accountWithDeposit(t, 100)

		buf, err := json.Marshal(account)
		require.NoError(t, err)

		restored := &domain.PrivacyPoolAccount{}
		require.NoError(t, json.Unmarshal(buf, restored))

		// label index is rebuilt
		pa, foundScope, ok := restored.FindByLabel(label)
		require.True(t, ok)
		require.Zero(t, scope.Cmp(foundScope))
		require.True(t, pa.Deposit.IsValid())
		require.Zero(t, account.MasterKeys.Nullifier.Cmp(restored.MasterKeys.Nullifier))
	}
}

func accountWithDeposit(t *testing.T, value int64) (*domain.PrivacyPoolAccount, *big.Int, *big.Int) {
	account := domain.NewPrivacyPoolAccount(testMasterKeys(t))
	scope, label := big.NewInt(1), big.NewInt(9)
	s := account.MasterKeys.DepositSecrets(scope, 0)
	_, err := account.AddPoolAccount(
		scope, big.NewInt(value), s.Nullifier, s.Secret, label, 10, common.Hash{},
	)
	require.NoError(t, err)
	return account, scope, label
}
