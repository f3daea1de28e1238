package application

import (
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"
	log "github.com/sirupsen/logrus"

	"github.com/privacy-pool-network/pool-daemon/internal/core/application/account"
	"github.com/privacy-pool-network/pool-daemon/internal/core/application/relayer"
	"github.com/privacy-pool-network/pool-daemon/internal/core/application/withdrawal"
	"github.com/privacy-pool-network/pool-daemon/internal/core/domain"
	"github.com/privacy-pool-network/pool-daemon/internal/core/ports"
	dbbadger "github.com/privacy-pool-network/pool-daemon/internal/infrastructure/storage/db/badger"
	"github.com/privacy-pool-network/pool-daemon/internal/infrastructure/storage/db/inmemory"
)

const (
	DBBadger   = "badger"
	DBInMemory = "inmemory"
)

var (
	SupportedDBType = map[string]struct{}{
		DBBadger:   {},
		DBInMemory: {},
	}
)

// Config wires the application services. Services are built lazily on
// first use and cached. A relayer daemon needs Chains, the chain adapters
// and a Verifier. An account holder needs MasterKeys, the EventSource, the
// Ledger, a Prover and a Verifier, and may leave Chains empty.
type Config struct {
	DBType   string
	DBConfig interface{}

	Chains          []relayer.Chain
	QuoteExpiration time.Duration

	EventSource ports.EventSource
	Ledger      ports.Ledger
	Broadcaster ports.Broadcaster
	PriceQuoter ports.PriceQuoter
	Prover      ports.Prover
	Verifier    ports.Verifier
	MasterKeys  *domain.MasterKeys

	repo       domain.RelayRequestRepository
	account    *account.Service
	withdrawal *withdrawal.Service
	quote      *relayer.QuoteService
	relayer    *relayer.Service
}

func (c *Config) Validate() error {
	if len(c.Chains) <= 0 && c.MasterKeys == nil {
		return domain.ErrMissingConfig.WithMessage(
			"either chains to relay on or master keys are required",
		)
	}
	if len(c.Chains) > 0 {
		if _, ok := SupportedDBType[c.DBType]; !ok {
			return fmt.Errorf("db type %q not supported", c.DBType)
		}
		if _, err := c.repository(); err != nil {
			return err
		}
		if _, err := c.relayerService(); err != nil {
			return err
		}
	}
	if c.MasterKeys != nil {
		if _, err := c.withdrawalService(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) RelayRequestRepository() domain.RelayRequestRepository {
	repo, _ := c.repository()
	return repo
}

func (c *Config) AccountService() *account.Service {
	svc, _ := c.accountService()
	return svc
}

func (c *Config) WithdrawalService() *withdrawal.Service {
	svc, _ := c.withdrawalService()
	return svc
}

func (c *Config) QuoteService() *relayer.QuoteService {
	svc, _ := c.quoteService()
	return svc
}

func (c *Config) RelayerService() *relayer.Service {
	svc, _ := c.relayerService()
	return svc
}

func (c *Config) repository() (domain.RelayRequestRepository, error) {
	if c.repo == nil {
		switch c.DBType {
		case DBBadger:
			datadir, ok := c.DBConfig.(string)
			if !ok {
				return nil, fmt.Errorf("badger db requires a datadir")
			}
			repo, err := dbbadger.NewRelayRequestRepository(datadir, newBadgerLogger())
			if err != nil {
				return nil, err
			}
			c.repo = repo
		case DBInMemory:
			c.repo = inmemory.NewRelayRequestRepository()
		default:
			return nil, fmt.Errorf("db type %q not supported", c.DBType)
		}
	}
	return c.repo, nil
}

func (c *Config) accountService() (*account.Service, error) {
	if c.account == nil {
		if c.MasterKeys == nil {
			return nil, domain.ErrAccountInit.WithMessage("missing master keys")
		}
		svc, err := account.NewService(c.EventSource, *c.MasterKeys)
		if err != nil {
			return nil, err
		}
		c.account = svc
	}
	return c.account, nil
}

func (c *Config) withdrawalService() (*withdrawal.Service, error) {
	if c.withdrawal == nil {
		var (
			svc *withdrawal.Service
			err error
		)
		if c.MasterKeys == nil {
			svc, err = withdrawal.NewVerifierService(c.Verifier)
		} else {
			var accountSvc *account.Service
			if accountSvc, err = c.accountService(); err != nil {
				return nil, err
			}
			svc, err = withdrawal.NewService(
				c.Ledger, c.Prover, c.Verifier, accountSvc,
			)
		}
		if err != nil {
			return nil, err
		}
		c.withdrawal = svc
	}
	return c.withdrawal, nil
}

func (c *Config) quoteService() (*relayer.QuoteService, error) {
	if c.quote == nil {
		svc, err := relayer.NewQuoteService(c.Ledger, c.PriceQuoter)
		if err != nil {
			return nil, err
		}
		c.quote = svc
	}
	return c.quote, nil
}

func (c *Config) relayerService() (*relayer.Service, error) {
	if c.relayer == nil {
		repo, err := c.repository()
		if err != nil {
			return nil, err
		}
		verifier, err := c.withdrawalService()
		if err != nil {
			return nil, err
		}
		quotes, err := c.quoteService()
		if err != nil {
			return nil, err
		}
		svc, err := relayer.NewService(
			c.Chains, repo, c.Ledger, verifier, c.Broadcaster, quotes,
			c.QuoteExpiration,
		)
		if err != nil {
			return nil, err
		}
		c.relayer = svc
	}
	return c.relayer, nil
}

func newBadgerLogger() badger.Logger {
	logger := log.New()
	logger.SetLevel(log.GetLevel())
	return logger
}
