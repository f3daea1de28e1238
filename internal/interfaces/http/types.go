package httpinterface

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/privacy-pool-network/pool-daemon/internal/core/application/relayer"
	"github.com/privacy-pool-network/pool-daemon/internal/core/domain"
)

type quoteBody struct {
	ChainID   uint64 `json:"chainId"`
	Amount    string `json:"amount"`
	Asset     string `json:"asset"`
	Recipient string `json:"recipient,omitempty"`
	ExtraGas  bool   `json:"extraGas"`
}

type quoteDetail struct {
	GasUnits   string `json:"gasUnits"`
	NativeCost string `json:"nativeCost"`
	RateNum    string `json:"rateNum"`
	RateDen    string `json:"rateDen"`
}

type quoteResponse struct {
	BaseFeeBPS    string                     `json:"baseFeeBPS"`
	FeeBPS        string                     `json:"feeBPS"`
	GasPrice      string                     `json:"gasPrice"`
	Detail        quoteDetail                `json:"detail"`
	FeeCommitment *relayer.FeeCommitmentBody `json:"feeCommitment,omitempty"`
}

type detailsResponse struct {
	ChainID            uint64  `json:"chainId"`
	FeeBPS             string  `json:"feeBPS"`
	MinWithdrawAmount  string  `json:"minWithdrawAmount"`
	FeeReceiverAddress string  `json:"feeReceiverAddress"`
	AssetAddress       string  `json:"assetAddress"`
	MaxGasPrice        *string `json:"maxGasPrice"`
}

type requestInfo struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	ChainID   uint64 `json:"chainId"`
	Status    string `json:"status"`
	TxHash    string `json:"txHash,omitempty"`
	Error     string `json:"error,omitempty"`
	UpdatedAt int64  `json:"updatedAt,omitempty"`
}

type errorInfo struct {
	Name    string                 `json:"name"`
	Message string                 `json:"message"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

type errorResponse struct {
	Error interface{} `json:"error"`
}

func toQuoteResponse(q *relayer.Quote) quoteResponse {
	res := quoteResponse{
		BaseFeeBPS: q.BaseFeeBPS.String(),
		FeeBPS:     q.FeeBPS.String(),
		GasPrice:   q.GasPrice.String(),
		Detail: quoteDetail{
			GasUnits:   q.Detail.GasUnits.String(),
			NativeCost: q.Detail.NativeCost.String(),
			RateNum:    q.Detail.Rate.Num.String(),
			RateDen:    q.Detail.Rate.Den.String(),
		},
	}
	if c := q.FeeCommitment; c != nil {
		res.FeeCommitment = &relayer.FeeCommitmentBody{
			Expiration:              c.Expiration,
			WithdrawalData:          hexutil.Bytes(c.WithdrawalData),
			Amount:                  bigString(c.Amount),
			ExtraGas:                c.ExtraGas,
			SignedRelayerCommitment: hexutil.Bytes(c.Signature),
		}
	}
	return res
}

func toDetailsResponse(d *relayer.Details) detailsResponse {
	res := detailsResponse{
		ChainID:            d.ChainID,
		FeeBPS:             d.FeeBPS.String(),
		MinWithdrawAmount:  d.MinWithdrawAmount.String(),
		FeeReceiverAddress: d.FeeReceiverAddress.Hex(),
		AssetAddress:       d.AssetAddress.Hex(),
	}
	if d.MaxGasPrice != nil {
		maxGasPrice := d.MaxGasPrice.String()
		res.MaxGasPrice = &maxGasPrice
	}
	return res
}

func toRequestInfo(r *domain.RelayRequest) requestInfo {
	return requestInfo{
		ID:        r.ID,
		Timestamp: r.Timestamp,
		ChainID:   r.ChainID,
		Status:    string(r.Status),
		TxHash:    r.TxHash,
		Error:     r.Error,
		UpdatedAt: r.UpdatedAt,
	}
}

func toErrorInfo(e *domain.Error) errorInfo {
	return errorInfo{
		Name:    e.Kind.String(),
		Message: e.Error(),
		Code:    e.Code,
		Details: e.Details,
	}
}

func bigString(n *big.Int) string {
	if n == nil {
		return ""
	}
	return n.String()
}
