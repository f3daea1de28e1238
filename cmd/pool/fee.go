package main

import (
	"math/big"

	"github.com/urfave/cli/v2"

	"github.com/privacy-pool-network/pool-daemon/internal/core/application/relayer"
	"github.com/privacy-pool-network/pool-daemon/pkg/mathutil"
)

var fee = cli.Command{
	Name:  "fee",
	Usage: "compute the fee a relayer charges for a withdrawal",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "base-bps",
			Usage: "the base fee of the relayer in basis points",
			Value: "0",
		},
		&cli.StringFlag{
			Name:     "gas-price",
			Usage:    "the gas price in wei",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "amount",
			Usage:    "the withdrawn amount in the smallest unit of the asset",
			Required: true,
		},
		&cli.BoolFlag{
			Name:  "extra-gas",
			Usage: "whether the recipient is also funded with native asset for gas",
		},
		&cli.StringFlag{
			Name:  "rate-num",
			Usage: "the native amount obtained for --rate-den units of the asset",
			Value: "1",
		},
		&cli.StringFlag{
			Name:  "rate-den",
			Usage: "the asset amount the rate is quoted for",
			Value: "1",
		},
		&cli.IntFlag{
			Name:  "decimals",
			Usage: "the decimals of the asset, to display amounts in units",
			Value: 18,
		},
	},
	Action: feeAction,
}

func feeAction(ctx *cli.Context) error {
	values := make(map[string]*big.Int)
	for _, name := range []string{
		"base-bps", "gas-price", "amount", "rate-num", "rate-den",
	} {
		n, err := parseBigInt(ctx, name)
		if err != nil {
			return err
		}
		values[name] = n
	}

	gasUnits := big.NewInt(relayer.RelayTxCost)
	if ctx.Bool("extra-gas") {
		gasUnits.Add(
			gasUnits, big.NewInt(relayer.ExtraGasTxCost+relayer.ExtraGasFundAmount),
		)
	}

	feeBPS, err := mathutil.FeeBPS(
		values["base-bps"], values["amount"], values["gas-price"], gasUnits,
		values["rate-num"], values["rate-den"],
	)
	if err != nil {
		return err
	}

	decimals := int32(ctx.Int("decimals"))
	net, feeAmount := mathutil.LessFee(values["amount"], feeBPS)

	printJSON(map[string]string{
		"feeBPS":     feeBPS.String(),
		"percentage": mathutil.BPSToPercentage(feeBPS).String() + "%",
		"gasUnits":   gasUnits.String(),
		"fee":        mathutil.ToUnits(feeAmount, decimals).String(),
		"net":        mathutil.ToUnits(net, decimals).String(),
	})
	return nil
}
