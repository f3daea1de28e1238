package main

import (
	"github.com/urfave/cli/v2"
)

var depositSecrets = cli.Command{
	Name:  "deposit-secrets",
	Usage: "derive the secrets of a deposit to a pool",
	Flags: []cli.Flag{
		mnemonicFlag,
		seedFlag,
		scopeFlag,
		&cli.Uint64Flag{
			Name:  "index",
			Usage: "the index of the deposit in the pool",
		},
	},
	Action: depositSecretsAction,
}

func depositSecretsAction(ctx *cli.Context) error {
	masterKeys, err := getMasterKeys(ctx)
	if err != nil {
		return err
	}
	scope, err := parseNonZero(ctx, scopeFlag.Name)
	if err != nil {
		return err
	}

	index := ctx.Uint64("index")
	printJSON(secretsInfo(masterKeys.DepositSecrets(scope, index)))
	return nil
}

var withdrawalSecrets = cli.Command{
	Name:  "withdrawal-secrets",
	Usage: "derive the secrets of the commitment created by a withdrawal",
	Flags: []cli.Flag{
		mnemonicFlag,
		seedFlag,
		&cli.StringFlag{
			Name:     "label",
			Usage:    "the label of the deposit the withdrawn commitment descends from",
			Required: true,
		},
		&cli.Uint64Flag{
			Name:  "index",
			Usage: "the number of withdrawals already made from the deposit",
		},
	},
	Action: withdrawalSecretsAction,
}

func withdrawalSecretsAction(ctx *cli.Context) error {
	masterKeys, err := getMasterKeys(ctx)
	if err != nil {
		return err
	}
	label, err := parseNonZero(ctx, "label")
	if err != nil {
		return err
	}

	index := ctx.Uint64("index")
	printJSON(secretsInfo(masterKeys.WithdrawalSecrets(label, index)))
	return nil
}
