package main

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/privacy-pool-network/pool-daemon/internal/core/domain"
)

const testMnemonic = "test test test test test test test test test test test junk"

func runCommand(args ...string) error {
	app := cli.NewApp()
	app.Commands = []*cli.Command{
		&keys, &depositSecrets, &withdrawalSecrets, &withdrawalContext, &withdraw, &fee,
	}
	return app.Run(append([]string{"pool"}, args...))
}

func TestKeys(t *testing.T) {
	require.NoError(t, runCommand("keys", "new"))
	require.NoError(t, runCommand("keys", "show", "--mnemonic", testMnemonic))
	require.NoError(t, runCommand("keys", "show", "--seed", "0xabcdef"))

	require.Error(t, runCommand("keys", "show"))
	require.Error(t, runCommand("keys", "show", "--mnemonic", "not a mnemonic"))
}

func TestSecrets(t *testing.T) {
	require.NoError(t, runCommand(
		"deposit-secrets", "--seed", "0xabcdef", "--scope", "0x2a", "--index", "3",
	))
	require.NoError(t, runCommand(
		"withdrawal-secrets", "--mnemonic", testMnemonic, "--label", "1001",
	))

	require.Error(t, runCommand("deposit-secrets", "--seed", "0xabcdef"))
	require.Error(t, runCommand(
		"deposit-secrets", "--seed", "0xabcdef", "--scope", "scope",
	))
	require.Error(t, runCommand(
		"deposit-secrets", "--seed", "0xabcdef", "--scope", "0",
	))
	require.Error(t, runCommand(
		"withdrawal-secrets", "--mnemonic", testMnemonic, "--label", "0x0",
	))
}

func TestWithdraw(t *testing.T) {
	args := func(extra ...string) []string {
		return append([]string{
			"withdraw", "--seed", "0xabcdef", "--scope", "42",
			"--rpc", "http://127.0.0.1:1", "--chain-id", "1",
			"--entrypoint", "0x1111111111111111111111111111111111111111",
			"--label", "1001",
			"--recipient", "0x2222222222222222222222222222222222222222",
			"--fee-recipient", "0x3333333333333333333333333333333333333333",
			"--fee-bps", "100",
		}, extra...)
	}
	vk := t.TempDir() + "/missing.vk"

	require.Error(t, runCommand(args("--amount", "0", "--verifying-key", vk)...))
	require.Error(t, runCommand(args("--amount", "ten", "--verifying-key", vk)...))
	require.Error(t, runCommand(args(
		"--amount", "10", "--verifying-key", vk, "--processooor", "0x11",
	)...))
	// Neither a remote prover nor local artifacts.
	require.Error(t, runCommand(args("--amount", "10", "--verifying-key", vk)...))
	require.Error(t, runCommand(args(
		"--amount", "10", "--verifying-key", vk,
		"--prover-url", "http://127.0.0.1:1", "--circuit", "withdraw.ccs",
	)...))
	require.Error(t, runCommand(args(
		"--amount", "10", "--verifying-key", vk, "--prover-url", "http://127.0.0.1:1",
	)...))
}

func TestFindCommitment(t *testing.T) {
	spendable := []domain.Commitment{
		{Hash: big.NewInt(1), Label: big.NewInt(10), Value: big.NewInt(100)},
		{Hash: big.NewInt(2), Label: big.NewInt(20), Value: big.NewInt(200)},
	}

	c, err := findCommitment(spendable, big.NewInt(20))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(2), c.Hash)

	_, err = findCommitment(spendable, big.NewInt(30))
	require.ErrorIs(t, err, domain.ErrCommitmentNotFound)

	_, err = findCommitment(nil, big.NewInt(10))
	require.ErrorIs(t, err, domain.ErrCommitmentNotFound)
}

func TestContext(t *testing.T) {
	require.NoError(t, runCommand(
		"context", "--scope", "42",
		"--processooor", "0x1111111111111111111111111111111111111111",
		"--data", "0xcafe",
	))
	require.NoError(t, runCommand(
		"context", "--scope", "42",
		"--processooor", "0x1111111111111111111111111111111111111111",
		"--recipient", "0x2222222222222222222222222222222222222222",
		"--fee-recipient", "0x3333333333333333333333333333333333333333",
		"--fee-bps", "100",
	))

	require.Error(t, runCommand(
		"context", "--scope", "42", "--processooor", "0x11", "--data", "0x",
	))
	require.Error(t, runCommand(
		"context", "--scope", "42",
		"--processooor", "0x1111111111111111111111111111111111111111",
	))
}

func TestFee(t *testing.T) {
	require.NoError(t, runCommand(
		"fee", "--base-bps", "50", "--gas-price", "10", "--amount", "1000000000000000000",
	))
	require.NoError(t, runCommand(
		"fee", "--gas-price", "1000000000", "--amount", "1000000",
		"--rate-num", "400000000000000", "--rate-den", "1000000", "--decimals", "6",
		"--extra-gas",
	))

	require.Error(t, runCommand("fee", "--gas-price", "10", "--amount", "0"))
	require.Error(t, runCommand("fee", "--gas-price", "ten", "--amount", "1"))
}
