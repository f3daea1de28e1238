package relayer

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/privacy-pool-network/pool-daemon/internal/core/domain"
	"github.com/privacy-pool-network/pool-daemon/internal/core/ports"
	"github.com/privacy-pool-network/pool-daemon/pkg/mathutil"
)

const (
	// RelayTxCost is the gas a relay transaction is assumed to consume.
	RelayTxCost = 650_000
	// ExtraGasTxCost is the gas of the swap funding native gas to the
	// recipient.
	ExtraGasTxCost = 200_000
	// ExtraGasFundAmount is the gas worth of native asset sent to the
	// recipient.
	ExtraGasFundAmount = 600_000
)

// FeeQuote is the fee for relaying a withdrawal and how it was computed.
type FeeQuote struct {
	FeeBPS   *big.Int
	GasPrice *big.Int
	Detail   QuoteDetail
}

// QuoteService prices the relay of a withdrawal in basis points of the
// withdrawn amount.
type QuoteService struct {
	ledger ports.Ledger
	quoter ports.PriceQuoter
}

func NewQuoteService(
	ledger ports.Ledger, quoter ports.PriceQuoter,
) (*QuoteService, error) {
	if ledger == nil {
		return nil, fmt.Errorf("missing ledger")
	}
	if quoter == nil {
		return nil, fmt.Errorf("missing price quoter")
	}
	return &QuoteService{ledger, quoter}, nil
}

// QuoteFeeBPS returns baseFeeBPS plus the cost of the relay transaction at
// the current gas price, converted into the withdrawn asset.
func (q *QuoteService) QuoteFeeBPS(
	ctx context.Context, chainID uint64, asset common.Address,
	amount, baseFeeBPS *big.Int, extraGas bool,
) (*FeeQuote, error) {
	gasPrice, err := q.ledger.GasPrice(ctx, chainID)
	if err != nil {
		return nil, err
	}

	gasUnits := big.NewInt(RelayTxCost)
	if extraGas {
		gasUnits.Add(gasUnits, big.NewInt(ExtraGasTxCost+ExtraGasFundAmount))
	}

	rate := domain.NativeRate()
	if asset != NativeAsset {
		quoted, err := q.quoter.QuoteNativeInAsset(ctx, chainID, asset, amount)
		if err != nil {
			return nil, err
		}
		rate = *quoted
	}

	feeBPS, err := mathutil.FeeBPS(
		baseFeeBPS, amount, gasPrice, gasUnits, rate.Num, rate.Den,
	)
	if err != nil {
		return nil, domain.ErrInvalidWithdrawalData.WithMessage(
			"cannot quote fee: %s", err,
		)
	}

	return &FeeQuote{
		FeeBPS:   feeBPS,
		GasPrice: gasPrice,
		Detail: QuoteDetail{
			GasUnits:   gasUnits,
			NativeCost: new(big.Int).Mul(gasPrice, gasUnits),
			Rate:       rate,
		},
	}, nil
}
