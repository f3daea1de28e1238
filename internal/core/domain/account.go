package domain

import (
	"encoding/json"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// PoolAccount is the chain of commitments originated by a single deposit.
// Every child shares the deposit label, and the last element of the chain is
// the only one that can still be spent.
type PoolAccount struct {
	Label    *big.Int       `json:"label"`
	Deposit  Commitment     `json:"deposit"`
	Children []Commitment   `json:"children"`
	Ragequit *RagequitEvent `json:"ragequit,omitempty"`
}

// LastCommitment returns the latest child, or the deposit if never spent.
func (a *PoolAccount) LastCommitment() Commitment {
	if len(a.Children) > 0 {
		return a.Children[len(a.Children)-1]
	}
	return a.Deposit
}

// IsSpendable returns whether the account still holds value that can be
// withdrawn privately.
func (a *PoolAccount) IsSpendable() bool {
	if a.Ragequit != nil {
		return false
	}
	last := a.LastCommitment()
	return last.Value != nil && last.Value.Sign() != 0
}

func (a *PoolAccount) owns(hash *big.Int) bool {
	if a.Deposit.Hash.Cmp(hash) == 0 {
		return true
	}
	for _, c := range a.Children {
		if c.Hash.Cmp(hash) == 0 {
			return true
		}
	}
	return false
}

// PrivacyPoolAccount is the whole state of a user across pools: its master
// keys and the pool accounts found for every scope.
// It must be mutated only through its Add* and SetPoolAccounts methods,
// which keep the label index in sync. It is not safe for concurrent use.
type PrivacyPoolAccount struct {
	MasterKeys          MasterKeys                `json:"masterKeys"`
	PoolAccounts        map[string][]*PoolAccount `json:"poolAccounts"`
	CreationTimestamp   int64                     `json:"creationTimestamp"`
	LastUpdateTimestamp int64                     `json:"lastUpdateTimestamp"`

	labels map[string]labelRef
}

type labelRef struct {
	scope   string
	account *PoolAccount
}

// NewPrivacyPoolAccount returns an account with no pool accounts.
func NewPrivacyPoolAccount(keys MasterKeys) *PrivacyPoolAccount {
	now := time.Now().Unix()
	return &PrivacyPoolAccount{
		MasterKeys:          keys,
		PoolAccounts:        make(map[string][]*PoolAccount),
		CreationTimestamp:   now,
		LastUpdateTimestamp: now,
		labels:              make(map[string]labelRef),
	}
}

// ScopeKey is the key of a scope in PoolAccounts.
func ScopeKey(scope *big.Int) string {
	return scope.String()
}

// Accounts returns the pool accounts of the given scope.
func (p *PrivacyPoolAccount) Accounts(scope *big.Int) []*PoolAccount {
	return p.PoolAccounts[ScopeKey(scope)]
}

// Scopes returns the scopes with at least one entry, sorted.
func (p *PrivacyPoolAccount) Scopes() []*big.Int {
	scopes := make([]*big.Int, 0, len(p.PoolAccounts))
	for key := range p.PoolAccounts {
		scope, _ := new(big.Int).SetString(key, 10)
		scopes = append(scopes, scope)
	}
	sort.Slice(scopes, func(i, j int) bool {
		return scopes[i].Cmp(scopes[j]) < 0
	})
	return scopes
}

// FindByLabel returns the pool account with the given label and its scope.
func (p *PrivacyPoolAccount) FindByLabel(label *big.Int) (*PoolAccount, *big.Int, bool) {
	if label == nil {
		return nil, nil, false
	}
	ref, ok := p.labels[label.String()]
	if !ok {
		return nil, nil, false
	}
	scope, _ := new(big.Int).SetString(ref.scope, 10)
	return ref.account, scope, true
}

// AddPoolAccount records a new deposit into the pool identified by scope.
func (p *PrivacyPoolAccount) AddPoolAccount(
	scope, value, nullifier, secret, label *big.Int,
	blockNumber uint64, txHash common.Hash,
) (*PoolAccount, error) {
	if scope == nil {
		return nil, ErrInvalidInput.WithMessage("invalid input: missing scope")
	}
	deposit, err := NewCommitment(value, label, nullifier, secret, blockNumber, txHash)
	if err != nil {
		return nil, err
	}

	account := &PoolAccount{
		Label:    deposit.Label,
		Deposit:  *deposit,
		Children: make([]Commitment, 0),
	}
	key := ScopeKey(scope)
	p.PoolAccounts[key] = append(p.PoolAccounts[key], account)
	p.index(key, account)
	p.touch()

	return account, nil
}

// AddWithdrawalCommitment appends the descendant created by spending parent.
// value is what remains after the withdrawal.
func (p *PrivacyPoolAccount) AddWithdrawalCommitment(
	parent Commitment, value, nullifier, secret *big.Int,
	blockNumber uint64, txHash common.Hash,
) (*Commitment, error) {
	account, _, ok := p.FindByLabel(parent.Label)
	if !ok || parent.Hash == nil || !account.owns(parent.Hash) {
		return nil, ErrCommitmentNotFound.WithDetails(map[string]interface{}{
			"commitment": parent.Hash,
		})
	}

	child, err := NewCommitment(value, parent.Label, nullifier, secret, blockNumber, txHash)
	if err != nil {
		return nil, err
	}

	account.Children = append(account.Children, *child)
	p.touch()

	return child, nil
}

// AddRagequit marks the pool account with the event's label as exited.
func (p *PrivacyPoolAccount) AddRagequit(event RagequitEvent) (*PoolAccount, error) {
	account, _, ok := p.FindByLabel(event.Label)
	if !ok {
		return nil, ErrCommitmentNotFound.WithDetails(map[string]interface{}{
			"label": event.Label,
		})
	}

	ev := event
	account.Ragequit = &ev
	p.touch()

	return account, nil
}

// SetPoolAccounts replaces every pool account of scope.
func (p *PrivacyPoolAccount) SetPoolAccounts(scope *big.Int, accounts []*PoolAccount) {
	key := ScopeKey(scope)
	for _, a := range p.PoolAccounts[key] {
		delete(p.labels, a.Label.String())
	}
	p.PoolAccounts[key] = accounts
	for _, a := range accounts {
		p.index(key, a)
	}
	p.touch()
}

// SpendableCommitments returns, by scope, the latest commitment of every
// pool account that still holds value and didn't ragequit. Scopes without
// any are omitted.
func (p *PrivacyPoolAccount) SpendableCommitments() map[string][]Commitment {
	result := make(map[string][]Commitment)
	for key, accounts := range p.PoolAccounts {
		spendable := make([]Commitment, 0, len(accounts))
		for _, a := range accounts {
			if a.IsSpendable() {
				spendable = append(spendable, a.LastCommitment())
			}
		}
		if len(spendable) > 0 {
			result[key] = spendable
		}
	}
	return result
}

func (p *PrivacyPoolAccount) UnmarshalJSON(data []byte) error {
	type alias PrivacyPoolAccount
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*p = PrivacyPoolAccount(a)
	if p.PoolAccounts == nil {
		p.PoolAccounts = make(map[string][]*PoolAccount)
	}
	p.labels = make(map[string]labelRef)
	for key, accounts := range p.PoolAccounts {
		for _, account := range accounts {
			p.index(key, account)
		}
	}
	return nil
}

func (p *PrivacyPoolAccount) index(scope string, account *PoolAccount) {
	if p.labels == nil {
		p.labels = make(map[string]labelRef)
	}
	p.labels[account.Label.String()] = labelRef{scope, account}
}

func (p *PrivacyPoolAccount) touch() {
	p.LastUpdateTimestamp = time.Now().Unix()
}
