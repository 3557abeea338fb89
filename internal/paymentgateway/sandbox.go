package paymentgateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/google/uuid"

	"github.com/frahmantamala/gym-membership/internal/core/checksum"
	pgtypes "github.com/frahmantamala/gym-membership/internal/core/datamodel/paymentgateway"
)

const sandboxCheckoutPath = "/sandbox/checkout"

type SandboxConfig struct {
	MerchantID string
	SaltKey    string
	SaltIndex  string
	// PublicURL is where members reach the sandbox's hosted page.
	PublicURL  string
	MaxWorkers int
	QueueSize  int
	// Delay is how long a payment stays pending before the webhook fires.
	Delay func() time.Duration
	// Decide picks the final state of an order. Defaults to 90% success.
	Decide     func(orderID string, amount int64) pgtypes.State
	HTTPClient *http.Client
}

type sandboxTxn struct {
	data        pgtypes.TransactionData
	callbackURL string
	redirectURL string
	refunds     map[string]*pgtypes.Response
}

// Sandbox is an in-process stand-in for the payment provider. It checks X-VERIFY
// on every call, keeps transactions in memory and settles each payment on a
// worker pool, posting a signed webhook to the callback URL of the order.
type Sandbox struct {
	cfg    SandboxConfig
	salt   checksum.Salt
	logger *slog.Logger
	http   *http.Client
	router chi.Router

	mu   sync.Mutex
	txns map[string]*sandboxTxn

	pool   *pool
	ctx    context.Context
	cancel context.CancelFunc
}

func NewSandbox(cfg SandboxConfig, logger *slog.Logger) *Sandbox {
	if cfg.Delay == nil {
		cfg.Delay = func() time.Duration { return time.Duration(1+rand.Intn(4)) * time.Second }
	}
	if cfg.Decide == nil {
		cfg.Decide = func(string, int64) pgtypes.State {
			if rand.Float32() < 0.9 {
				return pgtypes.StateCompleted
			}
			return pgtypes.StateFailed
		}
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Sandbox{
		cfg:    cfg,
		salt:   checksum.Salt{Key: cfg.SaltKey, Index: cfg.SaltIndex},
		logger: logger,
		http:   hc,
		txns:   make(map[string]*sandboxTxn),
		pool:   newPool(cfg.MaxWorkers, cfg.QueueSize, logger),
		ctx:    ctx,
		cancel: cancel,
	}

	r := chi.NewRouter()
	r.Post(pgtypes.PathPay, s.handlePay)
	r.Get(pgtypes.PathStatus+"/{merchantId}/{orderId}", s.handleStatus)
	r.Post(pgtypes.PathRefund, s.handleRefund)
	r.Get(sandboxCheckoutPath+"/{orderId}", s.handleCheckout)
	s.router = r

	s.pool.start(ctx, s.settle)
	return s
}

func (s *Sandbox) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Sandbox) Shutdown() {
	s.logger.Info("shutting down payment sandbox")
	s.cancel()
	s.pool.wg.Wait()
}

// Transaction returns a snapshot of an order as the sandbox sees it.
func (s *Sandbox) Transaction(orderID string) (pgtypes.TransactionData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txns[orderID]
	if !ok {
		return pgtypes.TransactionData{}, false
	}
	return t.data, true
}

func (s *Sandbox) handlePay(w http.ResponseWriter, r *http.Request) {
	var req pgtypes.PayRequest
	if !s.readSigned(w, r, pgtypes.PathPay, &req) {
		return
	}
	if err := req.Validate(); err != nil || req.MerchantID != s.cfg.MerchantID {
		s.reply(w, http.StatusBadRequest, pgtypes.Response{Code: pgtypes.CodeBadRequest, Message: "invalid pay request"})
		return
	}

	s.mu.Lock()
	if _, exists := s.txns[req.MerchantTransactionID]; exists {
		s.mu.Unlock()
		s.reply(w, http.StatusBadRequest, pgtypes.Response{Code: pgtypes.CodeBadRequest, Message: "duplicate merchantTransactionId"})
		return
	}
	s.txns[req.MerchantTransactionID] = &sandboxTxn{
		data: pgtypes.TransactionData{
			MerchantID:            req.MerchantID,
			MerchantTransactionID: req.MerchantTransactionID,
			TransactionID:         "T" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:20],
			Amount:                req.Amount,
			State:                 string(pgtypes.StatePending),
			ResponseCode:          pgtypes.CodePaymentPending,
		},
		callbackURL: req.CallbackURL,
		redirectURL: req.RedirectURL,
		refunds:     make(map[string]*pgtypes.Response),
	}
	s.mu.Unlock()

	if !s.pool.submit(CallbackJob{OrderID: req.MerchantTransactionID}) {
		s.logger.Warn("sandbox queue full, order stays pending", "order_id", req.MerchantTransactionID)
	}

	data, _ := json.Marshal(pgtypes.PayResponseData{
		MerchantID:            req.MerchantID,
		MerchantTransactionID: req.MerchantTransactionID,
		InstrumentResponse: pgtypes.InstrumentResponse{
			Type: "PAY_PAGE",
			RedirectInfo: pgtypes.RedirectInfo{
				URL:    s.cfg.PublicURL + sandboxCheckoutPath + "/" + req.MerchantTransactionID,
				Method: http.MethodGet,
			},
		},
	})
	s.reply(w, http.StatusOK, pgtypes.Response{Success: true, Code: pgtypes.CodePaymentInitiated, Message: "Payment initiated", Data: data})
}

func (s *Sandbox) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !checksum.VerifyPath(r.Header.Get(pgtypes.HeaderVerify), nil, r.URL.Path, s.salt) {
		s.reply(w, http.StatusUnauthorized, pgtypes.Response{Code: pgtypes.CodeAuthorizedFailed, Message: "checksum mismatch"})
		return
	}

	s.mu.Lock()
	t, ok := s.txns[chi.URLParam(r, "orderId")]
	var data pgtypes.TransactionData
	if ok {
		data = t.data
	}
	s.mu.Unlock()

	if !ok || chi.URLParam(r, "merchantId") != s.cfg.MerchantID {
		s.reply(w, http.StatusOK, pgtypes.Response{Code: pgtypes.CodeTxnNotFound, Message: "transaction not found"})
		return
	}

	raw, _ := json.Marshal(data)
	s.reply(w, http.StatusOK, pgtypes.Response{
		Success: data.State == string(pgtypes.StateCompleted),
		Code:    data.ResponseCode,
		Message: "status",
		Data:    raw,
	})
}

func (s *Sandbox) handleRefund(w http.ResponseWriter, r *http.Request) {
	var req pgtypes.RefundRequest
	if !s.readSigned(w, r, pgtypes.PathRefund, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.txns[req.OriginalTransactionID]
	if !ok {
		s.reply(w, http.StatusOK, pgtypes.Response{Code: pgtypes.CodeTxnNotFound, Message: "original transaction not found"})
		return
	}
	if prior, done := t.refunds[req.MerchantTransactionID]; done {
		s.reply(w, http.StatusOK, *prior)
		return
	}
	if t.data.State != string(pgtypes.StateCompleted) || req.Amount <= 0 || req.Amount > t.data.Amount {
		s.reply(w, http.StatusOK, pgtypes.Response{Code: pgtypes.CodeBadRequest, Message: "refund not allowed"})
		return
	}

	raw, _ := json.Marshal(pgtypes.TransactionData{
		MerchantID:            s.cfg.MerchantID,
		MerchantTransactionID: req.MerchantTransactionID,
		TransactionID:         "R" + t.data.TransactionID,
		Amount:                req.Amount,
		State:                 string(pgtypes.StateCompleted),
		ResponseCode:          pgtypes.CodePaymentSuccess,
	})
	resp := &pgtypes.Response{Success: true, Code: pgtypes.CodePaymentSuccess, Message: "refund accepted", Data: raw}
	t.refunds[req.MerchantTransactionID] = resp
	s.reply(w, http.StatusOK, *resp)
}

// handleCheckout stands in for the hosted payment page: it sends the browser
// straight back to the merchant.
func (s *Sandbox) handleCheckout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	t, ok := s.txns[chi.URLParam(r, "orderId")]
	var target string
	if ok {
		target = t.redirectURL
	}
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Sandbox) settle(job CallbackJob) {
	select {
	case <-time.After(s.cfg.Delay()):
	case <-s.ctx.Done():
		return
	}

	s.mu.Lock()
	t, ok := s.txns[job.OrderID]
	if !ok || t.data.State != string(pgtypes.StatePending) {
		s.mu.Unlock()
		return
	}
	state := s.cfg.Decide(job.OrderID, t.data.Amount)
	t.data.State = string(state)
	switch state {
	case pgtypes.StateCompleted:
		t.data.ResponseCode = pgtypes.CodePaymentSuccess
	case pgtypes.StateFailed:
		t.data.ResponseCode = pgtypes.CodePaymentDeclined
	default:
		t.data.ResponseCode = pgtypes.CodePaymentPending
	}
	data := t.data
	callbackURL := t.callbackURL
	s.mu.Unlock()

	s.logger.Info("sandbox settled payment", "order_id", job.OrderID, "state", data.State)
	if err := s.sendWebhook(callbackURL, data); err != nil {
		s.logger.Error("sandbox webhook failed", "order_id", job.OrderID, "error", err)
	}
}

func (s *Sandbox) sendWebhook(callbackURL string, data pgtypes.TransactionData) error {
	inner, _ := json.Marshal(data)
	payload, err := json.Marshal(pgtypes.Response{
		Success: data.State == string(pgtypes.StateCompleted),
		Code:    data.ResponseCode,
		Message: "callback",
		Data:    inner,
	})
	if err != nil {
		return err
	}
	body, err := json.Marshal(pgtypes.CallbackEnvelope{Response: base64.StdEncoding.EncodeToString(payload)})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(pgtypes.HeaderVerify, checksum.Sign(body, "", s.salt))

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("merchant replied %d", resp.StatusCode)
	}
	return nil
}

// readSigned decodes the {"request": base64} envelope into v after checking X-VERIFY.
func (s *Sandbox) readSigned(w http.ResponseWriter, r *http.Request, path string, v any) bool {
	var env pgtypes.SignedRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxResponseBytes)).Decode(&env); err != nil {
		s.reply(w, http.StatusBadRequest, pgtypes.Response{Code: pgtypes.CodeBadRequest, Message: "malformed envelope"})
		return false
	}
	decoded, err := base64.StdEncoding.DecodeString(env.Request)
	if err != nil {
		s.reply(w, http.StatusBadRequest, pgtypes.Response{Code: pgtypes.CodeBadRequest, Message: "malformed request"})
		return false
	}
	if !checksum.VerifyPath(r.Header.Get(pgtypes.HeaderVerify), decoded, path, s.salt) {
		s.reply(w, http.StatusUnauthorized, pgtypes.Response{Code: pgtypes.CodeAuthorizedFailed, Message: "checksum mismatch"})
		return false
	}
	if err := json.Unmarshal(decoded, v); err != nil {
		s.reply(w, http.StatusBadRequest, pgtypes.Response{Code: pgtypes.CodeBadRequest, Message: "malformed request"})
		return false
	}
	return true
}

func (s *Sandbox) reply(w http.ResponseWriter, status int, resp pgtypes.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("sandbox failed to encode reply", "error", err)
	}
}
