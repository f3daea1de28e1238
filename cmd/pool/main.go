package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/privacy-pool-network/pool-daemon/internal/core/domain"
	"github.com/privacy-pool-network/pool-daemon/pkg/field"
)

var (
	mnemonicFlag = &cli.StringFlag{
		Name:    "mnemonic",
		Usage:   "the BIP-39 mnemonic the account keys are derived from",
		EnvVars: []string{"POOL_MNEMONIC"},
	}
	seedFlag = &cli.StringFlag{
		Name:  "seed",
		Usage: "a hex seed to derive the account keys from, instead of a mnemonic",
	}
	scopeFlag = &cli.StringFlag{
		Name:     "scope",
		Usage:    "the scope of the pool, as decimal or 0x hex",
		Required: true,
	}
)

func main() {
	app := cli.NewApp()

	app.Version = "0.0.1"
	app.Name = "pool"
	app.Usage = "Command line interface for privacy pool accounts"
	app.Commands = append(
		app.Commands,
		&keys,
		&depositSecrets,
		&withdrawalSecrets,
		&withdrawalContext,
		&recoverAccount,
		&withdraw,
		&fee,
	)

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}

func getMasterKeys(ctx *cli.Context) (*domain.MasterKeys, error) {
	if seed := ctx.String(seedFlag.Name); seed != "" {
		return domain.NewMasterKeysFromSeed(seed)
	}
	mnemonic := ctx.String(mnemonicFlag.Name)
	if mnemonic == "" {
		return nil, fmt.Errorf("either --mnemonic or --seed is required")
	}
	return domain.NewMasterKeysFromMnemonic(mnemonic)
}

func parseBigInt(ctx *cli.Context, name string) (*big.Int, error) {
	n, err := field.FromString(ctx.String(name))
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %s", name, err)
	}
	return n, nil
}

func parseNonZero(ctx *cli.Context, name string) (*big.Int, error) {
	n, err := parseBigInt(ctx, name)
	if err != nil {
		return nil, err
	}
	if field.IsZero(n) {
		return nil, fmt.Errorf("invalid --%s: must be non-zero", name)
	}
	return n, nil
}

func printJSON(resp interface{}) {
	out, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		fatal(err)
	}
	fmt.Println(string(out))
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[pool] %v\n", err)
	os.Exit(1)
}
