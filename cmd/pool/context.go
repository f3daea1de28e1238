package main

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"

	"github.com/privacy-pool-network/pool-daemon/internal/core/domain"
	"github.com/privacy-pool-network/pool-daemon/pkg/field"
)

var withdrawalContext = cli.Command{
	Name:  "context",
	Usage: "compute the context a withdrawal proof is bound to",
	Flags: []cli.Flag{
		scopeFlag,
		&cli.StringFlag{
			Name:     "processooor",
			Usage:    "the address allowed to process the withdrawal",
			Required: true,
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
	},
	Action: withdrawalContextAction,
}

func withdrawalContextAction(ctx *cli.Context) error {
	scope, err := parseBigInt(ctx, scopeFlag.Name)
	if err != nil {
		return err
	}
	processooor := ctx.String("processooor")
	if !common.IsHexAddress(processooor) {
		return fmt.Errorf("invalid --processooor address")
	}

	data, err := withdrawalData(ctx)
	if err != nil {
		return err
	}

	withdrawal := domain.Withdrawal{
		Processooor: common.HexToAddress(processooor),
		Data:        data,
	}
	withdrawalCtx, err := withdrawal.Context(scope)
	if err != nil {
		return err
	}

	printJSON(map[string]string{
		"data":    hexutil.Encode(data),
		"context": field.ToHex(withdrawalCtx),
	})
	return nil
}

func withdrawalData(ctx *cli.Context) ([]byte, error) {
	if raw := ctx.String("data"); raw != "" {
		data, err := hexutil.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid --data: %s", err)
		}
		return data, nil
	}

	recipient, feeRecipient := ctx.String("recipient"), ctx.String("fee-recipient")
	if !common.IsHexAddress(recipient) || !common.IsHexAddress(feeRecipient) {
		return nil, fmt.Errorf(
			"either --data or valid --recipient and --fee-recipient are required",
		)
	}
	return domain.FeeData{
		Recipient:    common.HexToAddress(recipient),
		FeeRecipient: common.HexToAddress(feeRecipient),
		RelayFeeBPS:  new(big.Int).SetUint64(ctx.Uint64("fee-bps")),
	}.Encode()
}
