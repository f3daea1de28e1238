package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	log "github.com/sirupsen/logrus"

	"github.com/privacy-pool-network/pool-daemon/internal/config"
	"github.com/privacy-pool-network/pool-daemon/internal/core/application"
	"github.com/privacy-pool-network/pool-daemon/internal/core/application/relayer"
	"github.com/privacy-pool-network/pool-daemon/internal/infrastructure/evm"
	"github.com/privacy-pool-network/pool-daemon/internal/infrastructure/uniswap"
	zkgnark "github.com/privacy-pool-network/pool-daemon/internal/infrastructure/zk/gnark"
	httpinterface "github.com/privacy-pool-network/pool-daemon/internal/interfaces/http"
	"github.com/privacy-pool-network/pool-daemon/pkg/stats"
)

func main() {
	if err := config.InitConfig(); err != nil {
		log.WithError(err).Fatal("failed to initialize config")
	}

	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chainConfigs, err := config.GetChains()
	if err != nil {
		log.WithError(err).Fatal("failed to load chains")
	}

	clients, evmChains, relayerChains, err := dialChains(ctx, chainConfigs)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to chains")
	}
	defer func() {
		for _, c := range clients {
			c.Close()
		}
	}()

	eventSource, err := evm.NewEventSource(
		evmChains,
		config.GetUint64(config.BlockRangeKey),
		config.GetInt(config.RPCRateLimitKey),
	)
	if err != nil {
		log.WithError(err).Fatal("failed to create event source")
	}
	ledger, err := evm.NewLedger(eventSource, nil)
	if err != nil {
		log.WithError(err).Fatal("failed to create ledger")
	}
	broadcaster, err := evm.NewBroadcaster(evmChains)
	if err != nil {
		log.WithError(err).Fatal("failed to create broadcaster")
	}
	quoter, err := uniswap.NewQuoter(quoterCallers(clients))
	if err != nil {
		log.WithError(err).Fatal("failed to create price quoter")
	}

	verifier, err := zkgnark.LoadBackend(
		"", "", config.GetString(config.VerifyingKeyKey),
	)
	if err != nil {
		log.WithError(err).Fatal("failed to load verifying key")
	}

	appConfig := &application.Config{
		DBType:          config.GetString(config.DBTypeKey),
		DBConfig:        config.GetDbDatadir(),
		Chains:          relayerChains,
		QuoteExpiration: config.GetDuration(config.QuoteExpirationKey),
		EventSource:     eventSource,
		Ledger:          ledger,
		Broadcaster:     broadcaster,
		PriceQuoter:     quoter,
		Verifier:        verifier,
	}
	if err := appConfig.Validate(); err != nil {
		log.WithError(err).Fatal("invalid app config")
	}
	defer appConfig.RelayRequestRepository().Close()

	svc, err := httpinterface.NewService(httpinterface.ServiceOpts{
		Address:    fmt.Sprintf(":%d", config.GetInt(config.HTTPListeningPortKey)),
		RelayerSvc: appConfig.RelayerService(),
	})
	if err != nil {
		log.WithError(err).Fatal("failed to create http interface")
	}

	if config.GetBool(config.EnableProfilerKey) {
		stats.EnableMemoryStatistics(
			ctx,
			config.GetDuration(config.StatsIntervalKey),
			filepath.Join(config.GetDatadir(), config.ProfilerLocation),
		)
	}

	log.Info("starting daemon")
	defer log.Info("shutdown")

	if err := svc.Start(); err != nil {
		log.WithError(err).Fatal("failed to start http interface")
	}
	defer svc.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	<-sigChan

	log.Info("shutting down daemon")
}

func dialChains(
	ctx context.Context, configs []config.ChainConfig,
) (map[uint64]*ethclient.Client, []evm.Chain, []relayer.Chain, error) {
	clients := make(map[uint64]*ethclient.Client, len(configs))
	evmChains := make([]evm.Chain, 0, len(configs))
	relayerChains := make([]relayer.Chain, 0, len(configs))

	for _, c := range configs {
		relayerChain, err := c.RelayerChain()
		if err != nil {
			return nil, nil, nil, err
		}
		client, err := evm.Dial(ctx, c.RPCURL, c.ChainID)
		if err != nil {
			return nil, nil, nil, err
		}
		clients[c.ChainID] = client

		evmChains = append(evmChains, evm.Chain{
			ID:         c.ChainID,
			Client:     client,
			Entrypoint: common.HexToAddress(c.EntrypointAddress),
			StartBlock: c.StartBlock,
			SignerKey:  relayerChain.SignerKey,
		})
		relayerChains = append(relayerChains, relayerChain)

		log.WithField("chain", c.ChainID).Debug("connected to node")
	}
	return clients, evmChains, relayerChains, nil
}

// quoterCallers returns the clients of the chains with a known Uniswap
// deployment. ERC20 fees can't be quoted on the others.
func quoterCallers(
	clients map[uint64]*ethclient.Client,
) map[uint64]ethereum.ContractCaller {
	callers := make(map[uint64]ethereum.ContractCaller)
	for chainID, client := range clients {
		if _, ok := uniswap.QuoterAddresses[chainID]; !ok {
			log.WithField("chain", chainID).Warn(
				"no uniswap quoter known, only native asset fees can be quoted",
			)
			continue
		}
		callers[chainID] = client
	}
	return callers
}
