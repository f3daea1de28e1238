package main

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"github.com/privacy-pool-network/pool-daemon/internal/core/application"
	"github.com/privacy-pool-network/pool-daemon/internal/core/application/relayer"
	"github.com/privacy-pool-network/pool-daemon/internal/core/domain"
	"github.com/privacy-pool-network/pool-daemon/internal/core/ports"
	"github.com/privacy-pool-network/pool-daemon/internal/infrastructure/evm"
	zkgnark "github.com/privacy-pool-network/pool-daemon/internal/infrastructure/zk/gnark"
	zkremote "github.com/privacy-pool-network/pool-daemon/internal/infrastructure/zk/remote"
	"github.com/privacy-pool-network/pool-daemon/pkg/field"
)

var withdraw = cli.Command{
	Name: "withdraw",
	Usage: "prove a withdrawal from a spendable commitment and print the " +
		"request to submit to a relayer",
	Flags: []cli.Flag{
		mnemonicFlag,
		seedFlag,
		scopeFlag,
		&cli.StringFlag{
			Name:     "rpc",
			Usage:    "the JSON-RPC endpoint of a node",
			Required: true,
		},
		&cli.Uint64Flag{
			Name:     "chain-id",
			Usage:    "the id of the chain the pool is deployed on",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "entrypoint",
			Usage:    "the address of the entrypoint the pool is registered to",
			Required: true,
		},
		&cli.Uint64Flag{
			Name:  "from-block",
			Usage: "the block the entrypoint was deployed at",
		},
		&cli.Uint64Flag{
			Name:  "block-range",
			Usage: "the max number of blocks scanned per log query",
			Value: 10000,
		},
		&cli.StringFlag{
			Name:     "label",
			Usage:    "the label of the commitment to spend",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "amount",
			Usage:    "the value to withdraw, in the smallest unit of the asset",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "processooor",
			Usage: "the address allowed to process the withdrawal, defaults to the entrypoint",
		},
		&cli.StringFlag{
			Name:  "data",
			Usage: "the hex encoded withdrawal data",
		},
		&cli.StringFlag{
			Name:  "recipient",
			Usage: "the recipient of a relayed withdrawal, to encode the data",
		},
		&cli.StringFlag{
			Name:  "fee-recipient",
			Usage: "the relayer fee recipient, to encode the data",
		},
		&cli.Uint64Flag{
			Name:  "fee-bps",
			Usage: "the relay fee in basis points, to encode the data",
		},
		&cli.StringFlag{
			Name:     "verifying-key",
			Usage:    "the path of the Groth16 verifying key of the circuit",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "circuit",
			Usage: "the path of the compiled withdrawal circuit, to prove locally",
		},
		&cli.StringFlag{
			Name:  "proving-key",
			Usage: "the path of the Groth16 proving key, to prove locally",
		},
		&cli.StringFlag{
			Name:  "prover-url",
			Usage: "the endpoint of a remote prover, instead of proving locally",
		},
		&cli.DurationFlag{
			Name:  "prover-timeout",
			Usage: "the max duration of a remote proof",
			Value: zkremote.DefaultTimeout,
		},
	},
	Action: withdrawAction,
}

func withdrawAction(ctx *cli.Context) error {
	masterKeys, err := getMasterKeys(ctx)
	if err != nil {
		return err
	}
	scope, err := parseNonZero(ctx, scopeFlag.Name)
	if err != nil {
		return err
	}
	label, err := parseNonZero(ctx, "label")
	if err != nil {
		return err
	}
	amount, ok := new(big.Int).SetString(ctx.String("amount"), 10)
	if !ok || amount.Sign() <= 0 {
		return fmt.Errorf("invalid --amount: must be a positive integer")
	}
	withdrawal, err := withdrawalFromFlags(ctx)
	if err != nil {
		return err
	}
	prover, verifier, err := proverFromFlags(ctx)
	if err != nil {
		return err
	}

	chainID := ctx.Uint64("chain-id")
	client, err := evm.Dial(ctx.Context, ctx.String("rpc"), chainID)
	if err != nil {
		return err
	}
	defer client.Close()

	eventSource, err := evm.NewEventSource([]evm.Chain{{
		ID:         chainID,
		Client:     client,
		Entrypoint: withdrawal.entrypoint,
		StartBlock: ctx.Uint64("from-block"),
	}}, ctx.Uint64("block-range"), 0)
	if err != nil {
		return err
	}
	ledger, err := evm.NewLedger(eventSource, nil)
	if err != nil {
		return err
	}

	appConfig := &application.Config{
		EventSource: eventSource,
		Ledger:      ledger,
		Prover:      prover,
		Verifier:    verifier,
		MasterKeys:  masterKeys,
	}
	if err := appConfig.Validate(); err != nil {
		return err
	}

	scopeData, err := ledger.ScopeData(ctx.Context, chainID, scope)
	if err != nil {
		return err
	}
	pool := domain.PoolInfo{
		ChainID:         chainID,
		Address:         scopeData.PoolAddress,
		Scope:           scope,
		DeploymentBlock: ctx.Uint64("from-block"),
	}
	accountSvc := appConfig.AccountService()
	if err := accountSvc.RetrieveHistory(
		ctx.Context, []domain.PoolInfo{pool},
	); err != nil {
		return err
	}

	commitment, err := findCommitment(
		accountSvc.GetSpendableCommitments()[domain.ScopeKey(scope)], label,
	)
	if err != nil {
		return err
	}

	proof, err := appConfig.WithdrawalService().ProveWithdrawal(
		ctx.Context, chainID, *commitment, amount, withdrawal.Withdrawal, scope,
	)
	if err != nil {
		return err
	}

	printJSON(relayer.WithdrawalRequest{
		ChainID:    chainID,
		Scope:      scope,
		Withdrawal: withdrawal.Withdrawal,
		Proof:      *proof,
	}.Body())
	return nil
}

type flagWithdrawal struct {
	domain.Withdrawal
	entrypoint common.Address
}

// withdrawalFromFlags builds the withdrawal to prove. The processooor
// defaults to the entrypoint, as relayed withdrawals require.
func withdrawalFromFlags(ctx *cli.Context) (*flagWithdrawal, error) {
	entrypoint := ctx.String("entrypoint")
	if !common.IsHexAddress(entrypoint) {
		return nil, fmt.Errorf("invalid --entrypoint address")
	}
	processooor := entrypoint
	if p := ctx.String("processooor"); p != "" {
		if !common.IsHexAddress(p) {
			return nil, fmt.Errorf("invalid --processooor address")
		}
		processooor = p
	}

	data, err := withdrawalData(ctx)
	if err != nil {
		return nil, err
	}
	return &flagWithdrawal{
		Withdrawal: domain.Withdrawal{
			Processooor: common.HexToAddress(processooor),
			Data:        data,
		},
		entrypoint: common.HexToAddress(entrypoint),
	}, nil
}

// proverFromFlags loads the circuit artifacts. With --prover-url proofs are
// generated remotely and only the verifying key is loaded.
func proverFromFlags(ctx *cli.Context) (ports.Prover, ports.Verifier, error) {
	circuit, provingKey := ctx.String("circuit"), ctx.String("proving-key")
	url := ctx.String("prover-url")

	if url != "" {
		if circuit != "" || provingKey != "" {
			return nil, nil, fmt.Errorf(
				"--prover-url can't be used with --circuit and --proving-key",
			)
		}
		backend, err := zkgnark.LoadBackend("", "", ctx.String("verifying-key"))
		if err != nil {
			return nil, nil, err
		}
		prover, err := zkremote.NewProver(url, ctx.Duration("prover-timeout"))
		if err != nil {
			return nil, nil, err
		}
		return prover, backend, nil
	}

	if circuit == "" || provingKey == "" {
		return nil, nil, fmt.Errorf(
			"either --prover-url or both --circuit and --proving-key are required",
		)
	}
	backend, err := zkgnark.LoadBackend(
		circuit, provingKey, ctx.String("verifying-key"),
	)
	if err != nil {
		return nil, nil, err
	}
	return backend, backend, nil
}

func findCommitment(
	spendable []domain.Commitment, label *big.Int,
) (*domain.Commitment, error) {
	for i := range spendable {
		if spendable[i].Label != nil && spendable[i].Label.Cmp(label) == 0 {
			return &spendable[i], nil
		}
	}
	return nil, domain.ErrCommitmentNotFound.WithMessage(
		"no spendable commitment with label %s", field.ToHex(label),
	)
}
