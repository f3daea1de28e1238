package relayer

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/privacy-pool-network/pool-daemon/internal/core/domain"
	"github.com/privacy-pool-network/pool-daemon/internal/core/ports"
)

// DefaultQuoteExpiration is how long a signed fee commitment is valid.
const DefaultQuoteExpiration = 20 * time.Second

// ProofVerifier checks withdrawal proofs.
type ProofVerifier interface {
	VerifyWithdrawal(ctx context.Context, proof domain.WithdrawalProof) (bool, error)
}

// Service validates withdrawal requests against the relaying policy of each
// chain and broadcasts the valid ones.
type Service struct {
	chains          map[uint64]Chain
	requests        requestLog
	ledger          ports.Ledger
	verifier        ProofVerifier
	broadcaster     ports.Broadcaster
	quotes          *QuoteService
	quoteExpiration time.Duration
}

func NewService(
	chains []Chain,
	repo domain.RelayRequestRepository,
	ledger ports.Ledger,
	verifier ProofVerifier,
	broadcaster ports.Broadcaster,
	quotes *QuoteService,
	quoteExpiration time.Duration,
) (*Service, error) {
	if len(chains) <= 0 {
		return nil, domain.ErrMissingConfig.WithMessage("no chain configured")
	}
	if repo == nil {
		return nil, fmt.Errorf("missing relay request repository")
	}
	if ledger == nil {
		return nil, fmt.Errorf("missing ledger")
	}
	if verifier == nil {
		return nil, fmt.Errorf("missing proof verifier")
	}
	if broadcaster == nil {
		return nil, fmt.Errorf("missing broadcaster")
	}
	if quotes == nil {
		return nil, fmt.Errorf("missing quote service")
	}
	if quoteExpiration <= 0 {
		quoteExpiration = DefaultQuoteExpiration
	}

	chainsByID := make(map[uint64]Chain, len(chains))
	for _, c := range chains {
		if _, ok := chainsByID[c.ID]; ok {
			return nil, domain.ErrInvalidConfig.WithMessage(
				"chain %d configured more than once", c.ID,
			)
		}
		chainsByID[c.ID] = c
	}

	return &Service{
		chains:          chainsByID,
		requests:        requestLog{repo},
		ledger:          ledger,
		verifier:        verifier,
		broadcaster:     broadcaster,
		quotes:          quotes,
		quoteExpiration: quoteExpiration,
	}, nil
}

// HandleWithdrawalRequest records, validates and broadcasts a withdrawal.
// Any failure after the request is recorded is reported in the response
// rather than as an error. An error is returned only if the request could
// not be recorded.
func (s *Service) HandleWithdrawalRequest(
	ctx context.Context, req WithdrawalRequest,
) (*Response, error) {
	requestID := uuid.New().String()
	timestamp := time.Now().UnixMilli()

	payload, err := json.Marshal(req.Body())
	if err != nil {
		return nil, err
	}
	if err := s.requests.createNewRequest(
		ctx, requestID, timestamp, req.ChainID, payload,
	); err != nil {
		return nil, err
	}

	logger := log.WithField("request", requestID)

	txHash, err := s.relay(ctx, req)

	storeCtx, cancel := detached(ctx)
	defer cancel()

	if err != nil {
		message, code := errorInfo(err)
		if err := s.requests.updateFailedRequest(storeCtx, requestID, message); err != nil {
			logger.WithError(err).Warn("failed to record relay request failure")
		}
		relayRequestsTotal.WithLabelValues(string(domain.RelayStatusFailed)).Inc()
		relayFailuresTotal.WithLabelValues(code).Inc()
		logger.WithError(err).Info("relay request rejected")

		return &Response{
			Success:   false,
			Timestamp: timestamp,
			RequestID: requestID,
			Error:     message,
			Code:      code,
		}, nil
	}

	if err := s.requests.updateBroadcastedRequest(storeCtx, requestID, txHash); err != nil {
		logger.WithError(err).Warn("failed to record relay request broadcast")
	}
	relayRequestsTotal.WithLabelValues(string(domain.RelayStatusBroadcasted)).Inc()
	logger.WithField("tx", txHash).Info("relay request broadcasted")

	return &Response{
		Success:   true,
		Timestamp: timestamp,
		RequestID: requestID,
		TxHash:    txHash,
	}, nil
}

// Quote prices the relay of a withdrawal of the given amount.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	chain, err := s.chain(req.ChainID)
	if err != nil {
		return nil, err
	}
	asset, err := chain.asset(req.Asset)
	if err != nil {
		return nil, err
	}
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, domain.ErrInvalidRequest.WithMessage("amount must be positive")
	}

	feeQuote, err := s.quotes.QuoteFeeBPS(
		ctx, chain.ID, asset.Address, req.Amount, asset.FeeBPS, req.ExtraGas,
	)
	if err != nil {
		return nil, err
	}
	quotedFeeBPS.WithLabelValues(strconv.FormatUint(chain.ID, 10)).
		Observe(float64(feeQuote.FeeBPS.Int64()))

	quote := &Quote{
		BaseFeeBPS: asset.FeeBPS,
		FeeBPS:     feeQuote.FeeBPS,
		GasPrice:   feeQuote.GasPrice,
		Detail:     feeQuote.Detail,
	}
	if req.Recipient == nil || chain.SignerKey == nil {
		return quote, nil
	}

	data, err := domain.FeeData{
		Recipient:    *req.Recipient,
		FeeRecipient: chain.FeeReceiver,
		RelayFeeBPS:  feeQuote.FeeBPS,
	}.Encode()
	if err != nil {
		return nil, domain.ErrInvalidWithdrawalData.Wrap(err)
	}
	commitment := &domain.FeeCommitment{
		WithdrawalData: data,
		Expiration:     time.Now().Add(s.quoteExpiration).UnixMilli(),
		Amount:         new(big.Int).Set(req.Amount),
		ExtraGas:       req.ExtraGas,
	}
	if err := commitment.Sign(chain.ID, chain.SignerKey); err != nil {
		return nil, err
	}
	quote.FeeCommitment = commitment

	return quote, nil
}

// Details returns the relaying policy for an asset of a chain.
func (s *Service) Details(chainID uint64, assetAddress common.Address) (*Details, error) {
	chain, err := s.chain(chainID)
	if err != nil {
		return nil, err
	}
	asset, err := chain.asset(assetAddress)
	if err != nil {
		return nil, err
	}
	return &Details{
		ChainID:            chain.ID,
		FeeBPS:             asset.FeeBPS,
		MinWithdrawAmount:  asset.minWithdrawAmount(),
		FeeReceiverAddress: chain.FeeReceiver,
		AssetAddress:       asset.Address,
		MaxGasPrice:        chain.MaxGasPrice,
	}, nil
}

// GetRequest returns a recorded relay request.
func (s *Service) GetRequest(ctx context.Context, id string) (*domain.RelayRequest, error) {
	return s.requests.repo.GetRequest(ctx, id)
}

// ListRequests returns the recorded relay requests, optionally filtered by
// status.
func (s *Service) ListRequests(
	ctx context.Context, status domain.RelayStatus,
) ([]domain.RelayRequest, error) {
	if status == "" {
		return s.requests.repo.GetAllRequests(ctx)
	}
	return s.requests.repo.GetRequestsByStatus(ctx, status)
}

func (s *Service) relay(ctx context.Context, req WithdrawalRequest) (string, error) {
	chain, err := s.chain(req.ChainID)
	if err != nil {
		return "", err
	}

	if err := s.validateWithdrawal(ctx, chain, req); err != nil {
		return "", err
	}

	ok, err := s.verifier.VerifyWithdrawal(ctx, req.Proof)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", domain.ErrInvalidProof
	}

	return s.broadcaster.Relay(ctx, chain.ID, ports.RelayTx{
		Withdrawal: req.Withdrawal,
		Proof:      req.Proof,
		Scope:      req.Scope,
	})
}

func (s *Service) validateWithdrawal(
	ctx context.Context, chain Chain, req WithdrawalRequest,
) error {
	signals, err := domain.ParsePublicSignals(req.Proof.PublicSignals)
	if err != nil {
		return err
	}

	if req.Withdrawal.Processooor != chain.Entrypoint {
		return domain.ErrProcessooorMismatch.WithMessage(
			`Processooor mismatch: expected "%s", got "%s".`,
			chain.Entrypoint.Hex(), req.Withdrawal.Processooor.Hex(),
		)
	}

	feeData, err := domain.DecodeFeeData(req.Withdrawal.Data)
	if err != nil {
		return err
	}

	if feeData.FeeRecipient != chain.FeeReceiver {
		return domain.ErrFeeReceiverMismatch.WithMessage(
			`Fee recipient mismatch: expected "%s", got "%s".`,
			chain.FeeReceiver.Hex(), feeData.FeeRecipient.Hex(),
		)
	}

	withdrawalCtx, err := req.Withdrawal.Context(req.Scope)
	if err != nil {
		return err
	}
	if signals.Context.Cmp(withdrawalCtx) != 0 {
		return domain.ErrContextMismatch.WithMessage(
			`Context mismatch: expected "%x", got "%x".`,
			withdrawalCtx, signals.Context,
		)
	}

	scopeData, err := s.ledger.ScopeData(ctx, chain.ID, req.Scope)
	if err != nil {
		return err
	}
	asset, err := chain.asset(scopeData.AssetAddress)
	if err != nil {
		return err
	}

	minAmount := asset.minWithdrawAmount()
	if signals.WithdrawnValue.Cmp(minAmount) < 0 {
		return domain.ErrWithdrawnValueTooSmall.WithMessage(
			`Withdrawn value too small: expected minimum "%s", got "%s".`,
			minAmount, signals.WithdrawnValue,
		)
	}

	if req.FeeCommitment != nil {
		if err := validateFeeCommitment(chain, req.Withdrawal.Data, *req.FeeCommitment); err != nil {
			return err
		}
	} else {
		quote, err := s.quotes.QuoteFeeBPS(
			ctx, chain.ID, asset.Address, signals.WithdrawnValue, asset.FeeBPS, false,
		)
		if err != nil {
			return err
		}
		if quote.FeeBPS.Cmp(feeData.RelayFeeBPS) > 0 {
			return domain.ErrFeeTooLow.WithMessage(
				`Relay fee too low: expected at least "%s", got "%s".`,
				quote.FeeBPS, feeData.RelayFeeBPS,
			)
		}
	}

	return nil
}

func validateFeeCommitment(chain Chain, data []byte, c domain.FeeCommitment) error {
	if c.IsExpired(time.Now()) {
		return domain.ErrFeeCommitmentExpired.WithMessage("Relay quote expired.")
	}
	if !c.Matches(data) {
		return domain.ErrInvalidFeeCommitment.WithMessage(
			"Relay quote does not match the withdrawal data.",
		)
	}

	expected, ok := chain.signer()
	if !ok {
		return domain.ErrInvalidFeeCommitment.WithMessage(
			"Fee commitments are not accepted on chain %d.", chain.ID,
		)
	}
	signer, err := c.Signer(chain.ID)
	if err != nil {
		return err
	}
	if signer != expected {
		return domain.ErrInvalidFeeCommitment.WithMessage(
			"Invalid relayer commitment signature.",
		)
	}
	return nil
}

func (s *Service) chain(chainID uint64) (Chain, error) {
	chain, ok := s.chains[chainID]
	if !ok {
		return Chain{}, domain.ErrChainNotConfigured.WithMessage(
			"chain %d is not supported", chainID,
		)
	}
	return chain, nil
}

func (c Chain) asset(address common.Address) (Asset, error) {
	asset, ok := c.Assets[address]
	if !ok {
		return Asset{}, domain.ErrAssetNotSupported.WithMessage(
			"Asset %s not supported on chain %d", address.Hex(), c.ID,
		)
	}
	asset.Address = address
	if asset.FeeBPS == nil {
		asset.FeeBPS = new(big.Int)
	}
	return asset, nil
}

func errorInfo(err error) (message, code string) {
	if e, ok := domain.AsError(err); ok {
		return e.Error(), e.Code
	}
	return err.Error(), "UNKNOWN_ERROR"
}
