package momo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/mopay/agent-service/internal/models"
	"github.com/mopay/agent-service/internal/storage"
	"github.com/sirupsen/logrus"
)

// Config controls timeout and retry behaviour for outbound API calls.
// RetryAttempts is the total number of send attempts for transport failures;
// backoff between attempts is linear (attempt * RetryDelay).
type Config struct {
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// DefaultConfig returns the production call policy.
func DefaultConfig() Config {
	return Config{
		Timeout:       30 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
	}
}

// Client talks to one network's mobile-money API. Auth headers are injected
// from the secure store on every request; tokens are never cached beyond a
// single request/refresh cycle.
type Client struct {
	network models.Network
	cfg     Config
	client  *http.Client
	secrets storage.SecureStore
	log     *logrus.Logger
}

// NewClient initializes a client for the given network.
func NewClient(network models.Network, cfg Config, secrets storage.SecureStore, log *logrus.Logger) *Client {
	return &Client{
		network: network,
		cfg:     cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		secrets: secrets,
		log:     log,
	}
}

// Network returns the descriptor this client was built for.
func (c *Client) Network() models.Network {
	return c.network
}

// send performs a single HTTP exchange with auth headers attached.
func (c *Client) send(ctx context.Context, method, path string, body []byte, query url.Values) (int, []byte, error) {
	endpoint := c.network.APIBaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "MoPay/1.0")
	req.Header.Set("X-Request-ID", uuid.NewString())

	if token, err := c.secrets.Get(ctx, c.network.ID+"_auth_token"); err == nil && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if apiKey, err := c.secrets.Get(ctx, c.network.ID+"_api_key"); err == nil && apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// do executes a request with the full pipeline: linear-backoff retries on
// transport failures, and a single refresh-then-retransmit cycle on 401.
// err is non-nil only when every retry attempt failed at the transport level.
func (c *Client) do(ctx context.Context, method, path string, payload interface{}, query url.Values) (int, []byte, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
	}

	for attempt := 1; attempt <= c.cfg.RetryAttempts; attempt++ {
		status, respBody, err := c.send(ctx, method, path, body, query)
		if err != nil {
			if attempt == c.cfg.RetryAttempts {
				return 0, nil, err
			}
			c.log.Debugf("momo %s: %s %s attempt %d failed: %v", c.network.ID, method, path, attempt, err)
			select {
			case <-time.After(time.Duration(attempt) * c.cfg.RetryDelay):
			case <-ctx.Done():
				return 0, nil, ctx.Err()
			}
			continue
		}

		if status == http.StatusUnauthorized {
			if !c.refreshAuthToken(ctx) {
				// No usable refresh token: clear the pair and surface the 401.
				c.clearAuthTokens(ctx)
				return status, respBody, nil
			}
			return c.send(ctx, method, path, body, query)
		}

		return status, respBody, nil
	}

	return 0, nil, fmt.Errorf("request failed after %d attempts", c.cfg.RetryAttempts)
}

// refreshAuthToken exchanges the stored refresh token for a new access token.
// It reports whether the original request should be retransmitted.
func (c *Client) refreshAuthToken(ctx context.Context) bool {
	refreshToken, err := c.secrets.Get(ctx, c.network.ID+"_refresh_token")
	if err != nil || refreshToken == "" {
		return false
	}

	body, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return false
	}

	status, respBody, err := c.send(ctx, http.MethodPost, "/auth/refresh", body, nil)
	if err != nil || status != http.StatusOK {
		c.log.Warnf("momo %s: token refresh failed (status %d): %v", c.network.ID, status, err)
		return false
	}

	var data struct {
		AccessToken     string `json:"accessToken"`
		NewRefreshToken string `json:"newRefreshToken"`
	}
	if err := json.Unmarshal(respBody, &data); err != nil || data.AccessToken == "" {
		return false
	}

	if err := c.secrets.Set(ctx, c.network.ID+"_auth_token", data.AccessToken); err != nil {
		c.log.Warnf("momo %s: failed to store refreshed auth token: %v", c.network.ID, err)
		return false
	}
	if data.NewRefreshToken != "" {
		if err := c.secrets.Set(ctx, c.network.ID+"_refresh_token", data.NewRefreshToken); err != nil {
			c.log.Warnf("momo %s: failed to store rotated refresh token: %v", c.network.ID, err)
		}
	}
	return true
}

// clearAuthTokens drops both stored tokens so the caller must re-authenticate.
func (c *Client) clearAuthTokens(ctx context.Context) {
	if err := c.secrets.Delete(ctx, c.network.ID+"_auth_token"); err != nil {
		c.log.Warnf("momo %s: failed to clear auth token: %v", c.network.ID, err)
	}
	if err := c.secrets.Delete(ctx, c.network.ID+"_refresh_token"); err != nil {
		c.log.Warnf("momo %s: failed to clear refresh token: %v", c.network.ID, err)
	}
}

// remoteError extracts the server-supplied message from an error body,
// falling back to the operation's generic message.
func remoteError(body []byte, fallback string) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return fallback
}

func success(status int) bool {
	return status >= 200 && status < 300
}

// Authenticate logs the agent into this network and stores the returned
// access/refresh token pair in the secure store.
func (c *Client) Authenticate(ctx context.Context, creds Credentials) AuthResult {
	status, body, err := c.do(ctx, http.MethodPost, "/auth/login", creds, nil)
	if err != nil {
		c.log.Warnf("momo %s: login request failed: %v", c.network.ID, err)
		return AuthResult{Result: failed("Authentication failed")}
	}
	if !success(status) {
		return AuthResult{Result: failed(remoteError(body, "Authentication failed"))}
	}

	var data struct {
		AccessToken  string                 `json:"accessToken"`
		RefreshToken string                 `json:"refreshToken"`
		User         map[string]interface{} `json:"user"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return AuthResult{Result: failed("Authentication failed")}
	}

	if err := c.secrets.Set(ctx, c.network.ID+"_auth_token", data.AccessToken); err != nil {
		c.log.Warnf("momo %s: failed to store auth token: %v", c.network.ID, err)
	}
	if err := c.secrets.Set(ctx, c.network.ID+"_refresh_token", data.RefreshToken); err != nil {
		c.log.Warnf("momo %s: failed to store refresh token: %v", c.network.ID, err)
	}

	return AuthResult{Result: ok(), User: data.User}
}

// GetBalance fetches the live balance for an account on this network.
func (c *Client) GetBalance(ctx context.Context, accountID string) BalanceResult {
	status, body, err := c.do(ctx, http.MethodGet, "/accounts/"+accountID+"/balance", nil, nil)
	if err != nil {
		c.log.Warnf("momo %s: balance request failed: %v", c.network.ID, err)
		return BalanceResult{Result: failed("Failed to get balance")}
	}
	if !success(status) {
		return BalanceResult{Result: failed(remoteError(body, "Failed to get balance"))}
	}

	var data struct {
		Balance  float64 `json:"balance"`
		Currency string  `json:"currency"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return BalanceResult{Result: failed("Failed to get balance")}
	}
	return BalanceResult{Result: ok(), Balance: data.Balance, Currency: data.Currency}
}

// HistoryParams narrows a transaction history query.
type HistoryParams struct {
	Page    int
	PerPage int
	From    string
	To      string
}

func (p HistoryParams) values() url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PerPage > 0 {
		q.Set("perPage", strconv.Itoa(p.PerPage))
	}
	if p.From != "" {
		q.Set("from", p.From)
	}
	if p.To != "" {
		q.Set("to", p.To)
	}
	return q
}

// GetTransactionHistory fetches a page of the remote transaction history.
func (c *Client) GetTransactionHistory(ctx context.Context, accountID string, params HistoryParams) HistoryResult {
	status, body, err := c.do(ctx, http.MethodGet, "/accounts/"+accountID+"/transactions", nil, params.values())
	if err != nil {
		c.log.Warnf("momo %s: history request failed: %v", c.network.ID, err)
		return HistoryResult{Result: failed("Failed to get transactions")}
	}
	if !success(status) {
		return HistoryResult{Result: failed(remoteError(body, "Failed to get transactions"))}
	}

	var data struct {
		Transactions []RemoteTransaction `json:"transactions"`
		Pagination   *Pagination         `json:"pagination"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return HistoryResult{Result: failed("Failed to get transactions")}
	}
	return HistoryResult{Result: ok(), Transactions: data.Transactions, Pagination: data.Pagination}
}

// transfer posts a money-movement payload and decodes the common response.
func (c *Client) transfer(ctx context.Context, path string, payload interface{}, fallback string) TransferResult {
	status, body, err := c.do(ctx, http.MethodPost, path, payload, nil)
	if err != nil {
		c.log.Warnf("momo %s: %s request failed: %v", c.network.ID, path, err)
		return TransferResult{Result: failed(fallback)}
	}
	if !success(status) {
		return TransferResult{Result: failed(remoteError(body, fallback))}
	}

	var data struct {
		TransactionID string `json:"transactionId"`
		Status        string `json:"status"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return TransferResult{Result: failed(fallback)}
	}
	return TransferResult{Result: ok(), TransactionID: data.TransactionID, Status: data.Status}
}

// SendMoney transfers funds from an account to a phone number.
func (c *Client) SendMoney(ctx context.Context, fromAccountID, toPhoneNumber string, amount float64, description string) TransferResult {
	return c.transfer(ctx, "/transactions/send", map[string]interface{}{
		"fromAccountId": fromAccountID,
		"toPhoneNumber": toPhoneNumber,
		"amount":        amount,
		"description":   description,
		"networkId":     c.network.ID,
	}, "Transaction failed")
}

// CashIn deposits physical cash into a customer's wallet.
func (c *Client) CashIn(ctx context.Context, agentPhoneNumber, customerPhoneNumber string, amount float64) TransferResult {
	return c.transfer(ctx, "/transactions/cash-in", map[string]interface{}{
		"agentPhoneNumber":    agentPhoneNumber,
		"customerPhoneNumber": customerPhoneNumber,
		"amount":              amount,
		"networkId":           c.network.ID,
	}, "Cash-in failed")
}

// CashOut pays physical cash out of a customer's wallet.
func (c *Client) CashOut(ctx context.Context, agentPhoneNumber, customerPhoneNumber string, amount float64) TransferResult {
	return c.transfer(ctx, "/transactions/cash-out", map[string]interface{}{
		"agentPhoneNumber":    agentPhoneNumber,
		"customerPhoneNumber": customerPhoneNumber,
		"amount":              amount,
		"networkId":           c.network.ID,
	}, "Cash-out failed")
}

// BuyAirtime tops up airtime for a phone number.
func (c *Client) BuyAirtime(ctx context.Context, phoneNumber string, amount float64) TransferResult {
	return c.transfer(ctx, "/transactions/airtime", map[string]interface{}{
		"phoneNumber": phoneNumber,
		"amount":      amount,
		"networkId":   c.network.ID,
	}, "Airtime purchase failed")
}

// PayBill settles a bill with one of the network's supported billers.
func (c *Client) PayBill(ctx context.Context, billerID, accountNumber string, amount float64, reference string) TransferResult {
	return c.transfer(ctx, "/transactions/pay-bill", map[string]interface{}{
		"billerId":      billerID,
		"accountNumber": accountNumber,
		"amount":        amount,
		"reference":     reference,
		"networkId":     c.network.ID,
	}, "Bill payment failed")
}

// CheckTransactionStatus polls the remote status of a transaction.
func (c *Client) CheckTransactionStatus(ctx context.Context, transactionID string) StatusResult {
	status, body, err := c.do(ctx, http.MethodGet, "/transactions/"+transactionID+"/status", nil, nil)
	if err != nil {
		c.log.Warnf("momo %s: status request failed: %v", c.network.ID, err)
		return StatusResult{Result: failed("Status check failed")}
	}
	if !success(status) {
		return StatusResult{Result: failed(remoteError(body, "Status check failed"))}
	}

	var details map[string]interface{}
	if err := json.Unmarshal(body, &details); err != nil {
		return StatusResult{Result: failed("Status check failed")}
	}
	remoteStatus, _ := details["status"].(string)
	return StatusResult{Result: ok(), Status: remoteStatus, Details: details}
}

// GetSupportedBillers lists the billers available for bill payment.
func (c *Client) GetSupportedBillers(ctx context.Context) BillersResult {
	status, body, err := c.do(ctx, http.MethodGet, "/billers", nil, nil)
	if err != nil {
		c.log.Warnf("momo %s: billers request failed: %v", c.network.ID, err)
		return BillersResult{Result: failed("Failed to get billers")}
	}
	if !success(status) {
		return BillersResult{Result: failed(remoteError(body, "Failed to get billers"))}
	}

	var data struct {
		Billers []Biller `json:"billers"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return BillersResult{Result: failed("Failed to get billers")}
	}
	return BillersResult{Result: ok(), Billers: data.Billers}
}
