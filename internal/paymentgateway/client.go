package paymentgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/gym-membership/internal"
	"github.com/frahmantamala/gym-membership/internal/core/checksum"
	pgtypes "github.com/frahmantamala/gym-membership/internal/core/datamodel/paymentgateway"
)

// maxResponseBytes caps how much of a provider reply is read.
const maxResponseBytes = 1 << 20

type Config struct {
	MerchantID string
	SaltKey    string
	SaltIndex  string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

func ConfigFrom(cfg internal.GatewayConfig) Config {
	return Config{
		MerchantID: cfg.MerchantID,
		SaltKey:    cfg.SaltKey,
		SaltIndex:  cfg.SaltIndex,
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout,
	}
}

func (c Config) salt() checksum.Salt {
	return checksum.Salt{Key: c.SaltKey, Index: c.SaltIndex}
}

// StatusResult is the provider's view of one order.
type StatusResult struct {
	State       pgtypes.State
	Code        string
	Transaction *pgtypes.TransactionData
	Raw         json.RawMessage
}

type RefundResult struct {
	Success bool
	Code    string
	Raw     json.RawMessage
}

// Client talks to the provider. Every call is signed and bounded by Config.Timeout;
// transport failures come back as ErrProviderUnreachable, meaning the outcome is unknown.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		cfg:    cfg,
		http:   hc,
		logger: logger,
	}
}

// ToMinorUnits converts a major-unit amount to the provider's smallest unit.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// CreatePayment registers a payment and returns the hosted page URL. A reply
// without a redirect URL counts as a rejection.
func (c *Client) CreatePayment(ctx context.Context, req *pgtypes.PayRequest) (string, error) {
	if req.MerchantID == "" {
		req.MerchantID = c.cfg.MerchantID
	}
	if err := req.Validate(); err != nil {
		return "", internal.ErrProviderRejected.Wrap(fmt.Errorf("invalid pay request: %w", err))
	}

	resp, err := c.post(ctx, pgtypes.PathPay, req)
	if err != nil {
		return "", err
	}
	if !resp.Success {
		c.logger.Warn("provider rejected payment", "order_id", req.MerchantTransactionID, "code", resp.Code)
		return "", internal.ErrProviderRejected.Wrap(fmt.Errorf("pay: %s", resp.Code))
	}

	var data pgtypes.PayResponseData
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			return "", internal.ErrProviderRejected.Wrap(fmt.Errorf("decode pay data: %w", err))
		}
	}
	url := strings.TrimSpace(data.InstrumentResponse.RedirectInfo.URL)
	if url == "" {
		return "", internal.ErrProviderRejected.Wrap(errors.New("pay: missing redirect url"))
	}
	return url, nil
}

// CheckStatus asks the provider for the state of orderID. It is a pure read.
func (c *Client) CheckStatus(ctx context.Context, orderID string) (*StatusResult, error) {
	path := fmt.Sprintf("%s/%s/%s", pgtypes.PathStatus, c.cfg.MerchantID, orderID)

	ctx, cancel := internal.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}
	httpReq.Header.Set(pgtypes.HeaderVerify, checksum.Sign(nil, path, c.cfg.salt()))
	httpReq.Header.Set(pgtypes.HeaderMerchantID, c.cfg.MerchantID)

	resp, raw, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	result := &StatusResult{
		State: pgtypes.StateFromCode(resp.Code),
		Code:  resp.Code,
		Raw:   raw,
	}
	if len(resp.Data) > 0 {
		var tx pgtypes.TransactionData
		if err := json.Unmarshal(resp.Data, &tx); err == nil {
			result.Transaction = &tx
			if tx.State != "" {
				result.State = pgtypes.State(tx.State)
			}
		}
	}
	return result, nil
}

// InitiateRefund asks the provider to refund amount (minor units) of originalOrderID.
func (c *Client) InitiateRefund(ctx context.Context, refundID, originalOrderID string, amount int64, memberRef string) (*RefundResult, error) {
	req := &pgtypes.RefundRequest{
		MerchantID:            c.cfg.MerchantID,
		MerchantUserID:        memberRef,
		OriginalTransactionID: originalOrderID,
		MerchantTransactionID: refundID,
		Amount:                amount,
	}

	resp, err := c.post(ctx, pgtypes.PathRefund, req)
	if err != nil {
		return nil, err
	}

	raw, _ := json.Marshal(resp)
	return &RefundResult{
		Success: resp.Success,
		Code:    resp.Code,
		Raw:     raw,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (*pgtypes.Response, error) {
	body, err := checksum.Canonicalize(payload)
	if err != nil {
		return nil, err
	}
	encoded, err := checksum.Encode(body)
	if err != nil {
		return nil, err
	}
	envelope, err := json.Marshal(pgtypes.SignedRequest{Request: encoded})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}

	ctx, cancel := internal.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(envelope))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(pgtypes.HeaderVerify, checksum.SignEncoded(encoded, path, c.cfg.salt()))
	httpReq.Header.Set(pgtypes.HeaderMerchantID, c.cfg.MerchantID)

	resp, _, err := c.do(httpReq)
	return resp, err
}

func (c *Client) do(httpReq *http.Request) (*pgtypes.Response, json.RawMessage, error) {
	start := time.Now()
	res, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Warn("provider call failed", "path", httpReq.URL.Path, "error", err, "elapsed", time.Since(start))
		return nil, nil, internal.ErrProviderUnreachable.Wrap(err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, nil, internal.ErrProviderUnreachable.Wrap(fmt.Errorf("read reply: %w", err))
	}

	c.logger.Debug("provider replied", "path", httpReq.URL.Path, "status", res.StatusCode, "elapsed", time.Since(start))

	if res.StatusCode >= http.StatusInternalServerError {
		return nil, nil, internal.ErrProviderUnreachable.Wrap(fmt.Errorf("provider status %d", res.StatusCode))
	}

	var resp pgtypes.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, nil, internal.ErrProviderRejected.Wrap(fmt.Errorf("decode reply (status %d): %w", res.StatusCode, err))
	}
	return &resp, raw, nil
}
