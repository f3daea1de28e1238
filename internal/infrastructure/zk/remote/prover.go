package zkremote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/privacy-pool-network/pool-daemon/internal/core/domain"
	"github.com/privacy-pool-network/pool-daemon/pkg/circuitbreaker"
	"github.com/privacy-pool-network/pool-daemon/pkg/field"
)

// DefaultTimeout bounds a proving request.
const DefaultTimeout = 2 * time.Minute

type proveResponse struct {
	Proof         domain.Groth16Proof `json:"proof"`
	PublicSignals []string            `json:"publicSignals"`
}

// Prover delegates proof generation to a prover service that takes the
// named circuit inputs and answers with a snarkjs proof.
type Prover struct {
	url    string
	client *http.Client
	cb     *gobreaker.CircuitBreaker
}

func NewProver(url string, timeout time.Duration) (*Prover, error) {
	if url == "" {
		return nil, fmt.Errorf("missing prover url")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prover{
		url:    url,
		client: &http.Client{Timeout: timeout},
		cb:     circuitbreaker.NewCircuitBreaker("prover"),
	}, nil
}

func (p *Prover) Prove(
	ctx context.Context, signals domain.WithdrawalSignals,
) (*domain.WithdrawalProof, error) {
	body, err := json.Marshal(signals.CircuitInputs())
	if err != nil {
		return nil, domain.ErrInvalidProofInput.Wrap(err)
	}

	res, err := p.cb.Execute(func() (interface{}, error) {
		return p.post(ctx, body)
	})
	if err != nil {
		return nil, domain.ErrProofGeneration.Wrap(err)
	}

	var resp proveResponse
	if err := json.Unmarshal(res.([]byte), &resp); err != nil {
		return nil, domain.ErrProofGeneration.WithMessage(
			"malformed prover response",
		).Wrap(err)
	}

	publicSignals := make([]*big.Int, 0, len(resp.PublicSignals))
	for _, s := range resp.PublicSignals {
		n, err := field.FromString(s)
		if err != nil {
			return nil, domain.ErrProofGeneration.WithMessage(
				"malformed public signal",
			).Wrap(err)
		}
		publicSignals = append(publicSignals, n)
	}
	if _, err := domain.ParsePublicSignals(publicSignals); err != nil {
		return nil, domain.ErrProofGeneration.Wrap(err)
	}

	return &domain.WithdrawalProof{
		Proof:         resp.Proof,
		PublicSignals: publicSignals,
	}, nil
}

func (p *Prover) post(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, p.url, bytes.NewReader(body),
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	rs, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer rs.Body.Close()

	respBody, err := io.ReadAll(rs.Body)
	if err != nil {
		return nil, err
	}
	if rs.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("prover answered %d: %s", rs.StatusCode, respBody)
	}
	return respBody, nil
}
