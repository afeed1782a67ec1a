package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/resexchange/marketplace/internal/application/ports"
	domainErrors "github.com/resexchange/marketplace/internal/domain/errors"
	"github.com/resexchange/marketplace/internal/infrastructure/monitoring"
	"github.com/resexchange/marketplace/internal/pkg/logger"
)

type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Client talks to the provider's REST payments API. It implements
// ports.PaymentGateway: CreateIntent opens a payment the buyer approves on
// the provider's site, ConfirmIntent executes it after approval.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *logger.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewClient(cfg Config, log *logger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// token returns a cached OAuth2 client-credentials token, refreshing it
// shortly before expiry.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token request failed: %v", domainErrors.ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: token request returned %d: %s", domainErrors.ErrGateway, resp.StatusCode, body)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("%w: invalid token response: %v", domainErrors.ErrGateway, err)
	}

	c.accessToken = tr.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - time.Minute)

	return c.accessToken, nil
}

type paymentRequest struct {
	Intent       string        `json:"intent"`
	Payer        payer         `json:"payer"`
	Transactions []transaction `json:"transactions"`
	RedirectURLs redirectURLs  `json:"redirect_urls"`
}

type payer struct {
	PaymentMethod string `json:"payment_method"`
}

type transaction struct {
	Amount      amount `json:"amount"`
	Description string `json:"description"`
}

type amount struct {
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

type redirectURLs struct {
	ReturnURL string `json:"return_url"`
	CancelURL string `json:"cancel_url"`
}

type paymentResponse struct {
	ID    string `json:"id"`
	State string `json:"state"`
	Payer struct {
		PayerInfo struct {
			PayerID string `json:"payer_id"`
		} `json:"payer_info"`
	} `json:"payer"`
	Links []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
}

func (c *Client) CreateIntent(ctx context.Context, req ports.CreateIntentRequest) (*ports.PaymentIntent, error) {
	token, err := c.token(ctx)
	if err != nil {
		monitoring.RecordPaymentIntent("error")
		return nil, err
	}

	body := paymentRequest{
		Intent: "sale",
		Payer:  payer{PaymentMethod: "paypal"},
		Transactions: []transaction{{
			Amount: amount{
				Total:    req.Amount.StringFixed(2),
				Currency: req.Currency,
			},
			Description: req.Description,
		}},
		RedirectURLs: redirectURLs{
			ReturnURL: req.SuccessURL,
			CancelURL: req.CancelURL,
		},
	}

	var pr paymentResponse
	if err := c.post(ctx, "/v1/payments/payment", token, body, &pr); err != nil {
		monitoring.RecordPaymentIntent("error")
		return nil, err
	}

	approvalURL := ""
	for _, link := range pr.Links {
		if link.Rel == "approval_url" {
			approvalURL = link.Href
			break
		}
	}
	if pr.ID == "" || approvalURL == "" {
		monitoring.RecordPaymentIntent("error")
		return nil, fmt.Errorf("%w: payment response missing id or approval link", domainErrors.ErrGateway)
	}

	monitoring.RecordPaymentIntent("created")
	c.log.Info("Payment intent created", "intent_id", pr.ID, "total", req.Amount.StringFixed(2), "currency", req.Currency)

	return &ports.PaymentIntent{
		ID:          pr.ID,
		ApprovalURL: approvalURL,
		Amount:      req.Amount,
		Currency:    req.Currency,
		ListingIDs:  req.ListingIDs,
	}, nil
}

func (c *Client) ConfirmIntent(ctx context.Context, intentID, payerToken string) (ports.PaymentOutcome, error) {
	token, err := c.token(ctx)
	if err != nil {
		return ports.PaymentOutcome{}, err
	}

	body := map[string]string{"payer_id": payerToken}

	var pr paymentResponse
	path := fmt.Sprintf("/v1/payments/payment/%s/execute", intentID)
	if err := c.post(ctx, path, token, body, &pr); err != nil {
		return ports.PaymentOutcome{}, err
	}

	state := ports.OutcomeRejected
	if strings.EqualFold(pr.State, "approved") {
		state = ports.OutcomeApproved
	}

	return ports.PaymentOutcome{
		State:   state,
		PayerID: pr.Payer.PayerInfo.PayerID,
	}, nil
}

func (c *Client) post(ctx context.Context, path, token string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request to %s failed: %v", domainErrors.ErrGateway, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %s returned %d: %s", domainErrors.ErrGateway, path, resp.StatusCode, respBody)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: invalid response from %s: %v", domainErrors.ErrGateway, path, err)
	}

	return nil
}
