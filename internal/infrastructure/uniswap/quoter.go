package uniswap

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sony/gobreaker"

	"github.com/privacy-pool-network/pool-daemon/internal/core/domain"
	"github.com/privacy-pool-network/pool-daemon/pkg/circuitbreaker"
)

// FeeTierLow is the 0.05% pool fee tier.
const FeeTierLow = 500

const quoterV2ABIJSON = `[
	{"type":"function","name":"quoteExactInputSingle","stateMutability":"nonpayable",
		"inputs":[{"name":"params","type":"tuple","components":[
			{"name":"tokenIn","type":"address"},
			{"name":"tokenOut","type":"address"},
			{"name":"amountIn","type":"uint256"},
			{"name":"fee","type":"uint24"},
			{"name":"sqrtPriceLimitX96","type":"uint160"}]}],
		"outputs":[
			{"name":"amountOut","type":"uint256"},
			{"name":"sqrtPriceX96After","type":"uint160"},
			{"name":"initializedTicksCrossed","type":"uint32"},
			{"name":"gasEstimate","type":"uint256"}]}
]`

var (
	quoterV2ABI = func() abi.ABI {
		parsed, err := abi.JSON(strings.NewReader(quoterV2ABIJSON))
		if err != nil {
			panic(err)
		}
		return parsed
	}()

	// QuoterAddresses are the QuoterV2 deployments by chain id.
	QuoterAddresses = map[uint64]common.Address{
		1:        common.HexToAddress("0x61fFE014bA17989E743c5F6cB21bF9697530B21e"),
		10:       common.HexToAddress("0x61fFE014bA17989E743c5F6cB21bF9697530B21e"),
		137:      common.HexToAddress("0x61fFE014bA17989E743c5F6cB21bF9697530B21e"),
		42161:    common.HexToAddress("0x61fFE014bA17989E743c5F6cB21bF9697530B21e"),
		11155111: common.HexToAddress("0xEd1f6473345F45b75F8179591dd5bA1888cf2FB3"),
	}

	// WrappedNativeAddresses are the wrapped native tokens by chain id.
	WrappedNativeAddresses = map[uint64]common.Address{
		1:        common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
		10:       common.HexToAddress("0x4200000000000000000000000000000000000006"),
		137:      common.HexToAddress("0x0000000000000000000000000000000000001010"),
		42161:    common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"),
		11155111: common.HexToAddress("0xfff9976782d46cc05630d1f6ebab18b2324d6b14"),
	}
)

type quoteParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	AmountIn          *big.Int
	Fee               *big.Int
	SqrtPriceLimitX96 *big.Int
}

// Quoter prices the native asset of a chain through Uniswap V3 pools.
type Quoter struct {
	callers  map[uint64]ethereum.ContractCaller
	breakers map[uint64]*gobreaker.CircuitBreaker
}

// NewQuoter returns a Quoter for the given chains. Only chains with a known
// QuoterV2 deployment and wrapped native token are accepted.
func NewQuoter(callers map[uint64]ethereum.ContractCaller) (*Quoter, error) {
	breakers := make(map[uint64]*gobreaker.CircuitBreaker, len(callers))
	for chainID := range callers {
		if _, ok := QuoterAddresses[chainID]; !ok {
			return nil, domain.ErrInvalidConfig.WithMessage(
				"no uniswap quoter known for chain %d", chainID,
			)
		}
		if _, ok := WrappedNativeAddresses[chainID]; !ok {
			return nil, domain.ErrInvalidConfig.WithMessage(
				"no wrapped native token known for chain %d", chainID,
			)
		}
		breakers[chainID] = circuitbreaker.NewCircuitBreaker(
			fmt.Sprintf("uniswap-%d", chainID),
		)
	}
	return &Quoter{callers, breakers}, nil
}

// QuoteNativeInAsset quotes a swap of amountIn of asset into the wrapped
// native token. The rate is the native amount out over amountIn.
func (q *Quoter) QuoteNativeInAsset(
	ctx context.Context, chainID uint64, asset common.Address, amountIn *big.Int,
) (*domain.Rate, error) {
	caller, ok := q.callers[chainID]
	if !ok {
		return nil, domain.ErrChainNotConfigured.WithMessage(
			"no price quoter for chain %d", chainID,
		)
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, domain.ErrInvalidRequest.WithMessage("amount must be positive")
	}

	input, err := quoterV2ABI.Pack("quoteExactInputSingle", quoteParams{
		TokenIn:           asset,
		TokenOut:          WrappedNativeAddresses[chainID],
		AmountIn:          amountIn,
		Fee:               big.NewInt(FeeTierLow),
		SqrtPriceLimitX96: new(big.Int),
	})
	if err != nil {
		return nil, domain.ErrInvalidRequest.Wrap(err)
	}

	quoter := QuoterAddresses[chainID]
	res, err := q.breakers[chainID].Execute(func() (interface{}, error) {
		return caller.CallContract(
			ctx, ethereum.CallMsg{To: &quoter, Data: input}, nil,
		)
	})
	if err != nil {
		return nil, domain.ErrTxFailed.WithMessage(
			"failed to quote %s on chain %d", asset.Hex(), chainID,
		).Wrap(err)
	}

	out, err := quoterV2ABI.Unpack("quoteExactInputSingle", res.([]byte))
	if err != nil || len(out) == 0 {
		return nil, domain.ErrTxFailed.WithMessage("unexpected quote result")
	}
	amountOut, ok := out[0].(*big.Int)
	if !ok || amountOut.Sign() <= 0 {
		return nil, domain.ErrTxFailed.WithMessage(
			"no liquidity to quote %s on chain %d", asset.Hex(), chainID,
		)
	}

	return &domain.Rate{Num: amountOut, Den: new(big.Int).Set(amountIn)}, nil
}
