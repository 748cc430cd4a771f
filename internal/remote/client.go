package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/m3rciful/walletbot/core/buildinfo"
	coreconfig "github.com/m3rciful/walletbot/core/config"
	"github.com/m3rciful/walletbot/core/logger"
	"github.com/m3rciful/walletbot/core/telegram/netutil"
	"github.com/m3rciful/walletbot/internal/domain"
)

const (
	pathRequestOTP    = "/api/auth/email-otp/request"
	pathAuthenticate  = "/api/auth/email-otp/authenticate"
	pathMe            = "/api/auth/me"
	pathWallets       = "/api/wallets"
	pathBalances      = "/api/wallets/balances"
	pathDefaultWallet = "/api/wallets/default"
	pathSend          = "/api/transfers/send"
	pathWithdraw      = "/api/transfers/wallet-withdraw"
	pathTransfers     = "/api/transfers"
	pathKYC           = "/api/kycs"

	maxErrorBody = 64 * 1024
)

// Client calls the wallet API over HTTP. Outbound calls share one rate limiter.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient builds a client from the api config section. A nil httpClient
// selects the retrying client from netutil.
func NewClient(cfg coreconfig.APIConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = netutil.BuildHTTPClient(netutil.ClientOptions{
			Timeout:         cfg.Timeout,
			ResponseTimeout: cfg.Timeout,
			MaxRetries:      2,
			RetryBackoff:    500 * time.Millisecond,
		})
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		limiter: rate.NewLimiter(limit, burst),
	}
}

var _ Service = (*Client)(nil)

func (c *Client) RequestOTP(ctx context.Context, email string) (OTPRequest, error) {
	var out OTPRequest
	err := c.do(ctx, http.MethodPost, pathRequestOTP, "", map[string]string{"email": email}, &out)
	if err != nil {
		return OTPRequest{}, err
	}
	if out.RequestID == "" {
		return OTPRequest{}, fmt.Errorf("remote: otp request returned no sid")
	}
	return out, nil
}

type authResponse struct {
	AccessToken string          `json:"accessToken"`
	User        *domain.Profile `json:"user"`
}

func (c *Client) Authenticate(ctx context.Context, email, code, requestID string) (AuthResult, error) {
	var out authResponse
	body := map[string]string{"email": email, "otp": code, "sid": requestID}
	if err := c.do(ctx, http.MethodPost, pathAuthenticate, "", body, &out); err != nil {
		return AuthResult{}, err
	}
	if out.AccessToken == "" {
		return AuthResult{}, fmt.Errorf("remote: authenticate returned no token")
	}
	res := AuthResult{Token: out.AccessToken, User: out.User}
	if out.User != nil {
		res.OrganizationID = out.User.OrganizationID
	}
	return res, nil
}

func (c *Client) GetProfile(ctx context.Context, token string) (domain.Profile, error) {
	var out domain.Profile
	err := c.do(ctx, http.MethodGet, pathMe, token, nil, &out)
	return out, err
}

func (c *Client) ListWallets(ctx context.Context, token string) ([]domain.Wallet, error) {
	var out []domain.Wallet
	err := c.doList(ctx, pathWallets, token, &out)
	return out, err
}

func (c *Client) GetBalances(ctx context.Context, token string) ([]domain.WalletBalance, error) {
	var out []domain.WalletBalance
	err := c.doList(ctx, pathBalances, token, &out)
	return out, err
}

func (c *Client) GetDefaultWallet(ctx context.Context, token string) (domain.Wallet, error) {
	var out domain.Wallet
	err := c.do(ctx, http.MethodGet, pathDefaultWallet, token, nil, &out)
	return out, err
}

func (c *Client) SetDefaultWallet(ctx context.Context, token, walletID string) (domain.Wallet, error) {
	var out domain.Wallet
	err := c.do(ctx, http.MethodPost, pathDefaultWallet, token, map[string]string{"walletId": walletID}, &out)
	return out, err
}

func (c *Client) SendFunds(ctx context.Context, token, walletID, amount, recipient string) (domain.Transaction, error) {
	var out domain.Transaction
	body := map[string]string{"walletId": walletID, "amount": amount, "recipient": recipient}
	err := c.do(ctx, http.MethodPost, pathSend, token, body, &out)
	return out, err
}

func (c *Client) Withdraw(ctx context.Context, token string, req WithdrawRequest) (domain.Transaction, error) {
	var out domain.Transaction
	body := map[string]string{
		"walletId":      req.WalletID,
		"walletAddress": req.Address,
		"amount":        req.Amount,
	}
	if req.Network != "" {
		body["network"] = req.Network
	}
	err := c.do(ctx, http.MethodPost, pathWithdraw, token, body, &out)
	return out, err
}

func (c *Client) ListTransactions(ctx context.Context, token, walletID string, limit, offset int) ([]domain.Transaction, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	if walletID != "" {
		q.Set("walletId", walletID)
	}
	var out []domain.Transaction
	err := c.doList(ctx, pathTransfers+"?"+q.Encode(), token, &out)
	return out, err
}

func (c *Client) GetKYCStatus(ctx context.Context, token string) (domain.KYC, error) {
	var out []domain.KYC
	if err := c.doList(ctx, pathKYC, token, &out); err != nil {
		return domain.KYC{}, err
	}
	if len(out) == 0 {
		return domain.KYC{Status: "none"}, nil
	}
	return out[0], nil
}

// doList decodes either a bare JSON array or a {"data": [...]} envelope.
func (c *Client) doList(ctx context.Context, path, token string, out any) error {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, token, nil, &raw); err != nil {
		return err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return fmt.Errorf("remote: decode %s: %w", path, err)
		}
		trimmed = env.Data
	}
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("remote: decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	start := time.Now()
	logPath := path
	if i := strings.IndexByte(logPath, '?'); i >= 0 {
		logPath = logPath[:i]
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("remote: encode %s: %w", logPath, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("remote: build %s: %w", logPath, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", buildinfo.UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		logCall(ctx, method, logPath, 0, start, err)
		return fmt.Errorf("%w: %s %s: %v", ErrNetwork, method, logPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			Status:  resp.StatusCode,
			Message: readErrorMessage(resp.Body),
			Method:  method,
			Path:    logPath,
		}
		logCall(ctx, method, logPath, resp.StatusCode, start, apiErr)
		return apiErr
	}

	logCall(ctx, method, logPath, resp.StatusCode, start, nil)
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("remote: decode %s: %w", logPath, err)
	}
	return nil
}

// readErrorMessage extracts "message" from an error body. The API returns
// either a string or a list of validation messages.
func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var env struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(data, &env); err != nil || len(env.Message) == 0 {
		return ""
	}
	var single string
	if err := json.Unmarshal(env.Message, &single); err == nil {
		return strings.TrimSpace(single)
	}
	var many []string
	if err := json.Unmarshal(env.Message, &many); err == nil {
		return strings.TrimSpace(strings.Join(many, "; "))
	}
	return ""
}

func logCall(ctx context.Context, method, path string, status int, start time.Time, err error) {
	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.String("method", method),
		slog.String("path", path),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	}
	if status != 0 {
		attrs = append(attrs, slog.Int("http_code", status))
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
		logger.Warn(ctx, "remote", "api.call", attrs...)
		return
	}
	logger.Debug(ctx, "remote", "api.call", attrs...)
}
