package main

import (
	"fmt"
	"math/big"

	"github.com/urfave/cli/v2"

	"github.com/privacy-pool-network/pool-daemon/internal/core/domain"
	"github.com/privacy-pool-network/pool-daemon/pkg/field"
)

var (
	keys = cli.Command{
		Name:        "keys",
		Usage:       "generate or show the master keys of an account",
		Subcommands: []*cli.Command{keysNewCmd, keysShowCmd},
	}

	keysNewCmd = &cli.Command{
		Name:   "new",
		Usage:  "generate a new mnemonic and print its master keys",
		Action: keysNewAction,
	}
	keysShowCmd = &cli.Command{
		Name:   "show",
		Usage:  "print the master keys derived from a mnemonic or a seed",
		Flags:  []cli.Flag{mnemonicFlag, seedFlag},
		Action: keysShowAction,
	}
)

func keysNewAction(ctx *cli.Context) error {
	mnemonic, err := domain.NewMnemonic()
	if err != nil {
		return err
	}
	masterKeys, err := domain.NewMasterKeysFromMnemonic(mnemonic)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(mnemonic)
	fmt.Println()
	printJSON(keysInfo(*masterKeys))
	return nil
}

func keysShowAction(ctx *cli.Context) error {
	masterKeys, err := getMasterKeys(ctx)
	if err != nil {
		return err
	}
	printJSON(keysInfo(*masterKeys))
	return nil
}

func keysInfo(k domain.MasterKeys) map[string]string {
	return map[string]string{
		"masterNullifier": field.ToHex(k.Nullifier),
		"masterSecret":    field.ToHex(k.Secret),
	}
}

func secretsInfo(s domain.Secrets) map[string]string {
	return map[string]string{
		"nullifier":     hexOrEmpty(s.Nullifier),
		"secret":        hexOrEmpty(s.Secret),
		"precommitment": hexOrEmpty(s.Precommitment),
	}
}

func hexOrEmpty(n *big.Int) string {
	if n == nil {
		return ""
	}
	return field.ToHex(n)
}
