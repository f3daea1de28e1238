package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"github.com/privacy-pool-network/pool-daemon/internal/core/application/account"
	"github.com/privacy-pool-network/pool-daemon/internal/core/domain"
	"github.com/privacy-pool-network/pool-daemon/internal/infrastructure/evm"
	"github.com/privacy-pool-network/pool-daemon/pkg/field"
	"github.com/privacy-pool-network/pool-daemon/pkg/mathutil"
)

var recoverAccount = cli.Command{
	Name:  "recover",
	Usage: "rebuild the account of a pool from chain events and print its spendable commitments",
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
			Name:     "pool",
			Usage:    "the address of the pool",
			Required: true,
		},
		&cli.Uint64Flag{
			Name:  "from-block",
			Usage: "the block the pool was deployed at",
		},
		&cli.Uint64Flag{
			Name:  "block-range",
			Usage: "the max number of blocks scanned per log query",
			Value: 10000,
		},
		&cli.IntFlag{
			Name:  "decimals",
			Usage: "the decimals of the pool asset, to display values in units",
			Value: 18,
		},
	},
	Action: recoverAccountAction,
}

type commitmentInfo struct {
	Hash        string `json:"hash"`
	Label       string `json:"label"`
	Value       string `json:"value"`
	Amount      string `json:"amount"`
	BlockNumber uint64 `json:"blockNumber"`
	TxHash      string `json:"txHash"`
}

func recoverAccountAction(ctx *cli.Context) error {
	masterKeys, err := getMasterKeys(ctx)
	if err != nil {
		return err
	}
	scope, err := parseBigInt(ctx, scopeFlag.Name)
	if err != nil {
		return err
	}
	poolAddress := ctx.String("pool")
	if !common.IsHexAddress(poolAddress) {
		return fmt.Errorf("invalid --pool address")
	}
	chainID := ctx.Uint64("chain-id")

	client, err := evm.Dial(ctx.Context, ctx.String("rpc"), chainID)
	if err != nil {
		return err
	}
	defer client.Close()

	eventSource, err := evm.NewEventSource(
		[]evm.Chain{{ID: chainID, Client: client}}, ctx.Uint64("block-range"), 0,
	)
	if err != nil {
		return err
	}
	svc, err := account.NewService(eventSource, *masterKeys)
	if err != nil {
		return err
	}

	pool := domain.PoolInfo{
		ChainID:         chainID,
		Address:         common.HexToAddress(poolAddress),
		Scope:           scope,
		DeploymentBlock: ctx.Uint64("from-block"),
	}
	if err := svc.RetrieveHistory(ctx.Context, []domain.PoolInfo{pool}); err != nil {
		return err
	}

	decimals := int32(ctx.Int("decimals"))
	spendable := svc.GetSpendableCommitments()[domain.ScopeKey(scope)]
	res := make([]commitmentInfo, 0, len(spendable))
	for _, c := range spendable {
		res = append(res, commitmentInfo{
			Hash:        field.ToHex(c.Hash),
			Label:       field.ToHex(c.Label),
			Value:       c.Value.String(),
			Amount:      mathutil.ToUnits(c.Value, decimals).String(),
			BlockNumber: c.BlockNumber,
			TxHash:      c.TxHash.Hex(),
		})
	}

	scopes := make([]string, 0)
	for _, s := range svc.Scopes() {
		scopes = append(scopes, field.ToHex(s))
	}

	printJSON(map[string]interface{}{
		"scopes":    scopes,
		"accounts":  len(svc.PoolAccounts(scope)),
		"spendable": res,
	})
	return nil
}
