package httpinterface

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/privacy-pool-network/pool-daemon/internal/core/application/relayer"
	"github.com/privacy-pool-network/pool-daemon/internal/core/domain"
	"github.com/privacy-pool-network/pool-daemon/pkg/field"
)

const maxBodySize = 1 << 20

// RelayerService is the application service exposed by the handler.
type RelayerService interface {
	HandleWithdrawalRequest(
		ctx context.Context, req relayer.WithdrawalRequest,
	) (*relayer.Response, error)
	Quote(ctx context.Context, req relayer.QuoteRequest) (*relayer.Quote, error)
	Details(chainID uint64, asset common.Address) (*relayer.Details, error)
	GetRequest(ctx context.Context, id string) (*domain.RelayRequest, error)
	ListRequests(
		ctx context.Context, status domain.RelayStatus,
	) ([]domain.RelayRequest, error)
}

type relayerHandler struct {
	svc RelayerService
}

func newRelayerHandler(svc RelayerService) *relayerHandler {
	return &relayerHandler{svc}
}

func (h *relayerHandler) RegisterRoutes(r chi.Router) {
	r.Route("/relayer", func(r chi.Router) {
		r.Get("/details", h.details)
		r.Post("/quote", h.quote)
		r.Post("/request", h.request)
		r.Get("/requests", h.listRequests)
		r.Get("/request/{id}", h.getRequest)
	})
}

func (h *relayerHandler) request(w http.ResponseWriter, r *http.Request) {
	var body relayer.RequestBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	req, err := body.Parse()
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.svc.HandleWithdrawalRequest(r.Context(), *req)
	if err != nil {
		log.WithError(err).Warn("failed to handle relay request")
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: "Internal Server Error",
		})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *relayerHandler) quote(w http.ResponseWriter, r *http.Request) {
	var body quoteBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	amount, err := field.FromString(body.Amount)
	if err != nil {
		writeError(w, domain.ErrInvalidRequest.WithMessage("invalid amount"))
		return
	}
	if !common.IsHexAddress(body.Asset) {
		writeError(w, domain.ErrInvalidRequest.WithMessage("invalid asset address"))
		return
	}
	req := relayer.QuoteRequest{
		ChainID:  body.ChainID,
		Amount:   amount,
		Asset:    common.HexToAddress(body.Asset),
		ExtraGas: body.ExtraGas,
	}
	if body.Recipient != "" {
		if !common.IsHexAddress(body.Recipient) {
			writeError(w, domain.ErrInvalidRequest.WithMessage("invalid recipient address"))
			return
		}
		recipient := common.HexToAddress(body.Recipient)
		req.Recipient = &recipient
	}

	quote, err := h.svc.Quote(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuoteResponse(quote))
}

func (h *relayerHandler) details(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	rawChainID, rawAsset := query.Get("chainId"), query.Get("assetAddress")
	if rawChainID == "" {
		writeError(w, domain.ErrInvalidRequest.WithMessage("Chain ID is required"))
		return
	}
	if rawAsset == "" {
		writeError(w, domain.ErrInvalidRequest.WithMessage("Asset address is required"))
		return
	}
	chainID, err := strconv.ParseUint(rawChainID, 10, 64)
	if err != nil {
		writeError(w, domain.ErrInvalidRequest.WithMessage("Invalid chain ID format"))
		return
	}
	if !common.IsHexAddress(rawAsset) {
		writeError(w, domain.ErrInvalidRequest.WithMessage("Invalid asset address format"))
		return
	}

	details, err := h.svc.Details(chainID, common.HexToAddress(rawAsset))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDetailsResponse(details))
}

func (h *relayerHandler) getRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.svc.GetRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrRelayRequestNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestInfo(req))
}

func (h *relayerHandler) listRequests(w http.ResponseWriter, r *http.Request) {
	status := domain.RelayStatus(r.URL.Query().Get("status"))
	switch status {
	case "", domain.RelayStatusReceived, domain.RelayStatusBroadcasted,
		domain.RelayStatusFailed:
	default:
		writeError(w, domain.ErrInvalidRequest.WithMessage("invalid status %q", status))
		return
	}

	requests, err := h.svc.ListRequests(r.Context(), status)
	if err != nil {
		writeError(w, err)
		return
	}
	res := make([]requestInfo, 0, len(requests))
	for i := range requests {
		res = append(res, toRequestInfo(&requests[i]))
	}
	writeJSON(w, http.StatusOK, res)
}

func decodeBody(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := dec.Decode(dst); err != nil {
		return domain.ErrInvalidRequest.WithMessage("Payload format error").Wrap(err)
	}
	return nil
}

// writeError replies with the structured error for domain errors and 500
// for anything else. Node and chain failures get a 5xx status.
func writeError(w http.ResponseWriter, err error) {
	if e, ok := domain.AsError(err); ok {
		writeJSON(w, errorStatus(e), errorResponse{Error: toErrorInfo(e)})
		return
	}
	log.WithError(err).Warn("internal error")
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error: "Internal Server Error",
	})
}

func errorStatus(e *domain.Error) int {
	switch {
	case errors.Is(e, domain.ErrNetwork):
		return http.StatusServiceUnavailable
	case e.Kind == domain.KindBlockchain:
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Debug("failed to write response")
	}
}
