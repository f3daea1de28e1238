package httpinterface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/privacy-pool-network/pool-daemon/internal/core/application/relayer"
	"github.com/privacy-pool-network/pool-daemon/internal/core/domain"
)

type mockRelayer struct {
	mock.Mock
}

func (m *mockRelayer) HandleWithdrawalRequest(
	ctx context.Context, req relayer.WithdrawalRequest,
) (*relayer.Response, error) {
	args := m.Called(ctx, req)
	var res *relayer.Response
	if a := args.Get(0); a != nil {
		res = a.(*relayer.Response)
	}
	return res, args.Error(1)
}

func (m *mockRelayer) Quote(
	ctx context.Context, req relayer.QuoteRequest,
) (*relayer.Quote, error) {
	args := m.Called(ctx, req)
	var res *relayer.Quote
	if a := args.Get(0); a != nil {
		res = a.(*relayer.Quote)
	}
	return res, args.Error(1)
}

func (m *mockRelayer) Details(
	chainID uint64, asset common.Address,
) (*relayer.Details, error) {
	args := m.Called(chainID, asset)
	var res *relayer.Details
	if a := args.Get(0); a != nil {
		res = a.(*relayer.Details)
	}
	return res, args.Error(1)
}

func (m *mockRelayer) GetRequest(
	ctx context.Context, id string,
) (*domain.RelayRequest, error) {
	args := m.Called(ctx, id)
	var res *domain.RelayRequest
	if a := args.Get(0); a != nil {
		res = a.(*domain.RelayRequest)
	}
	return res, args.Error(1)
}

func (m *mockRelayer) ListRequests(
	ctx context.Context, status domain.RelayStatus,
) ([]domain.RelayRequest, error) {
	args := m.Called(ctx, status)
	var res []domain.RelayRequest
	if a := args.Get(0); a != nil {
		res = a.([]domain.RelayRequest)
	}
	return res, args.Error(1)
}

var (
	testAsset = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

func serve(svc RelayerService, method, target string, body []byte) *httptest.ResponseRecorder {
	router := newRouter(ServiceOpts{Address: ":0", RelayerSvc: svc})
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorInfo {
	var res struct {
		Error errorInfo `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res.Error
}

func validRequestBody() relayer.RequestBody {
	signals := make([]string, domain.NumPublicSignals)
	for i := range signals {
		signals[i] = fmt.Sprint(i + 1)
	}
	return relayer.RequestBody{
		ChainID: 1,
		Scope:   "42",
		Withdrawal: relayer.WithdrawalBody{
			Processooor: "0x1111111111111111111111111111111111111111",
			Data:        []byte{0xca, 0xfe},
		},
		Proof: domain.Groth16Proof{
			A: [2]*big.Int{big.NewInt(1), big.NewInt(2)},
			B: [2][2]*big.Int{
				{big.NewInt(1), big.NewInt(2)}, {big.NewInt(3), big.NewInt(4)},
			},
			C: [2]*big.Int{big.NewInt(5), big.NewInt(6)},
		},
		PublicSignals: signals,
	}
}

func TestRelayRequest(t *testing.T) {
	t.Run("broadcasted", func(t *testing.T) {
		svc := &mockRelayer{}
		svc.On("HandleWithdrawalRequest", mock.Anything, mock.Anything).
			Return(&relayer.Response{
				Success: true, RequestID: "abc", TxHash: "0x01", Timestamp: 10,
			}, nil)

		body, err := json.Marshal(validRequestBody())
		require.NoError(t, err)

		w := serve(svc, http.MethodPost, "/relayer/request", body)
		require.Equal(t, http.StatusOK, w.Code)

		var res relayer.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		require.True(t, res.Success)
		require.Equal(t, "0x01", res.TxHash)

		req := svc.Calls[0].Arguments.Get(1).(relayer.WithdrawalRequest)
		require.Equal(t, uint64(1), req.ChainID)
		require.Equal(t, int64(42), req.Scope.Int64())
		require.Len(t, req.Proof.PublicSignals, domain.NumPublicSignals)
	})

	t.Run("rejected", func(t *testing.T) {
		svc := &mockRelayer{}
		svc.On("HandleWithdrawalRequest", mock.Anything, mock.Anything).
			Return(&relayer.Response{
				Success: false, RequestID: "abc", Error: "fee too low", Code: "FEE_TOO_LOW",
			}, nil)

		body, err := json.Marshal(validRequestBody())
		require.NoError(t, err)

		w := serve(svc, http.MethodPost, "/relayer/request", body)
		require.Equal(t, http.StatusOK, w.Code)

		var res relayer.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		require.False(t, res.Success)
		require.Equal(t, "FEE_TOO_LOW", res.Code)
	})

	t.Run("malformed payload", func(t *testing.T) {
		svc := &mockRelayer{}
		w := serve(svc, http.MethodPost, "/relayer/request", []byte("{not json"))
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, "INVALID_INPUT", decodeError(t, w).Code)
		svc.AssertNotCalled(t, "HandleWithdrawalRequest", mock.Anything, mock.Anything)
	})

	t.Run("wrong number of signals", func(t *testing.T) {
		svc := &mockRelayer{}
		body := validRequestBody()
		body.PublicSignals = body.PublicSignals[:3]
		raw, err := json.Marshal(body)
		require.NoError(t, err)

		w := serve(svc, http.MethodPost, "/relayer/request", raw)
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, "WithdrawalValidationError", decodeError(t, w).Name)
	})

	t.Run("request not recorded", func(t *testing.T) {
		svc := &mockRelayer{}
		svc.On("HandleWithdrawalRequest", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("db is closed"))

		body, err := json.Marshal(validRequestBody())
		require.NoError(t, err)

		w := serve(svc, http.MethodPost, "/relayer/request", body)
		require.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestQuote(t *testing.T) {
	recipient := common.HexToAddress("0x9999999999999999999999999999999999999999")

	svc := &mockRelayer{}
	svc.On("Quote", mock.Anything, mock.MatchedBy(func(req relayer.QuoteRequest) bool {
		return req.ChainID == 1 && req.Amount.Int64() == 1_000_000 &&
			req.Asset == testAsset && req.Recipient != nil &&
			*req.Recipient == recipient && !req.ExtraGas
	})).Return(&relayer.Quote{
		BaseFeeBPS: big.NewInt(10),
		FeeBPS:     big.NewInt(39),
		GasPrice:   big.NewInt(1),
		Detail: relayer.QuoteDetail{
			GasUnits:   big.NewInt(650000),
			NativeCost: big.NewInt(650000),
			Rate:       domain.NativeRate(),
		},
		FeeCommitment: &domain.FeeCommitment{
			WithdrawalData: []byte{0x01},
			Expiration:     1234,
			Amount:         big.NewInt(1_000_000),
			Signature:      []byte{0x02},
		},
	}, nil)

	body := []byte(fmt.Sprintf(
		`{"chainId":1,"amount":"1000000","asset":"%s","recipient":"%s"}`,
		testAsset.Hex(), recipient.Hex(),
	))
	w := serve(svc, http.MethodPost, "/relayer/quote", body)
	require.Equal(t, http.StatusOK, w.Code)

	var res quoteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Equal(t, "10", res.BaseFeeBPS)
	require.Equal(t, "39", res.FeeBPS)
	require.NotNil(t, res.FeeCommitment)
	require.Equal(t, int64(1234), res.FeeCommitment.Expiration)
	require.Equal(t, "1000000", res.FeeCommitment.Amount)

	t.Run("invalid amount", func(t *testing.T) {
		w := serve(&mockRelayer{}, http.MethodPost, "/relayer/quote",
			[]byte(`{"chainId":1,"amount":"lots","asset":"0x3333333333333333333333333333333333333333"}`))
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unsupported asset", func(t *testing.T) {
		svc := &mockRelayer{}
		svc.On("Quote", mock.Anything, mock.Anything).
			Return(nil, domain.ErrAssetNotSupported.WithMessage("nope"))
		w := serve(svc, http.MethodPost, "/relayer/quote",
			[]byte(`{"chainId":1,"amount":"10","asset":"0x3333333333333333333333333333333333333333"}`))
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, "ASSET_NOT_SUPPORTED", decodeError(t, w).Code)
	})
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{
			"node unreachable",
			domain.ErrNetwork.WithMessage("dial failed").Wrap(fmt.Errorf("refused")),
			http.StatusServiceUnavailable,
			"NETWORK_ERROR",
		},
		{
			"chain rejects the transaction",
			domain.ErrTxFailed.WithMessage("execution reverted"),
			http.StatusBadGateway,
			domain.ErrTxFailed.Code,
		},
		{
			"chain not served",
			domain.ErrChainNotConfigured,
			http.StatusBadRequest,
			domain.ErrChainNotConfigured.Code,
		},
		{
			"invalid input",
			domain.ErrWithdrawnValueTooSmall,
			http.StatusBadRequest,
			domain.ErrWithdrawnValueTooSmall.Code,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockRelayer{}
			svc.On("Quote", mock.Anything, mock.Anything).Return(nil, tt.err)
			w := serve(svc, http.MethodPost, "/relayer/quote",
				[]byte(`{"chainId":1,"amount":"10","asset":"0x3333333333333333333333333333333333333333"}`))
			require.Equal(t, tt.expectedStatus, w.Code)
			require.Equal(t, tt.expectedCode, decodeError(t, w).Code)
		})
	}
}

func TestDetails(t *testing.T) {
	svc := &mockRelayer{}
	svc.On("Details", uint64(1), testAsset).Return(&relayer.Details{
		ChainID:            1,
		FeeBPS:             big.NewInt(10),
		MinWithdrawAmount:  big.NewInt(5_000_000),
		FeeReceiverAddress: common.HexToAddress("0x22"),
		AssetAddress:       testAsset,
	}, nil)

	w := serve(svc, http.MethodGet,
		"/relayer/details?chainId=1&assetAddress="+testAsset.Hex(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var res map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Equal(t, "10", res["feeBPS"])
	require.Equal(t, "5000000", res["minWithdrawAmount"])
	require.Nil(t, res["maxGasPrice"])

	tests := []struct {
		name   string
		target string
	}{
		{"missing chain id", "/relayer/details?assetAddress=" + testAsset.Hex()},
		{"missing asset", "/relayer/details?chainId=1"},
		{"invalid chain id", "/relayer/details?chainId=one&assetAddress=" + testAsset.Hex()},
		{"invalid asset", "/relayer/details?chainId=1&assetAddress=0x12"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			w := serve(&mockRelayer{}, http.MethodGet, tt.target, nil)
			require.Equal(t, http.StatusBadRequest, w.Code)
			require.Equal(t, "INVALID_INPUT", decodeError(t, w).Code)
		})
	}
}

func TestGetRequest(t *testing.T) {
	svc := &mockRelayer{}
	svc.On("GetRequest", mock.Anything, "abc").Return(&domain.RelayRequest{
		ID: "abc", ChainID: 1, Status: domain.RelayStatusBroadcasted, TxHash: "0x01",
	}, nil)
	svc.On("GetRequest", mock.Anything, "missing").
		Return(nil, domain.ErrRelayRequestNotFound)

	w := serve(svc, http.MethodGet, "/relayer/request/abc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res requestInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Equal(t, "BROADCASTED", res.Status)
	require.Equal(t, "0x01", res.TxHash)

	w = serve(svc, http.MethodGet, "/relayer/request/missing", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestListRequests(t *testing.T) {
	svc := &mockRelayer{}
	svc.On("ListRequests", mock.Anything, domain.RelayStatusFailed).
		Return([]domain.RelayRequest{{ID: "a", Status: domain.RelayStatusFailed}}, nil)

	w := serve(svc, http.MethodGet, "/relayer/requests?status=FAILED", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res []requestInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res, 1)

	w = serve(svc, http.MethodGet, "/relayer/requests?status=LOST", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	w := serve(&mockRelayer{}, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(&mockRelayer{}, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(&mockRelayer{}, http.MethodGet, "/nowhere", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestNewService(t *testing.T) {
	_, err := NewService(ServiceOpts{RelayerSvc: &mockRelayer{}})
	require.Error(t, err)

	_, err = NewService(ServiceOpts{Address: ":0"})
	require.Error(t, err)

	svc, err := NewService(ServiceOpts{Address: "127.0.0.1:0", RelayerSvc: &mockRelayer{}})
	require.NoError(t, err)
	require.NoError(t, svc.Start())
	svc.Stop()
}
