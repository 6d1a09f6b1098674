// Package alpaca implements the live broker backend against an Alpaca-style
// trading REST API.
package alpaca

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"alphadesk/internal/broker"
	"alphadesk/internal/config"
	"alphadesk/internal/types"
)

// Client wraps the subset of the trading API the coordinator needs.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	apiKey     string
	apiSecret  string
}

// NewClient constructs a broker client from configuration.
func NewClient(cfg config.BrokerConfig) (*Client, error) {
	raw := strings.TrimSpace(cfg.APIURL)
	if raw == "" {
		return nil, fmt.Errorf("broker.api_url cannot be empty")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing broker.api_url failed: %w", err)
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402
		} else {
			transport.TLSClientConfig.InsecureSkipVerify = true // #nosec G402
		}
	}
	return &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: timeout, Transport: transport},
		apiKey:     strings.TrimSpace(cfg.APIKey),
		apiSecret:  strings.TrimSpace(cfg.APISecret),
	}, nil
}

// SetHTTPClient sets the HTTP client for testing.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

func (c *Client) Name() string { return "alpaca" }

type accountResponse struct {
	Cash        string `json:"cash"`
	BuyingPower string `json:"buying_power"`
	Equity      string `json:"equity"`
}

func (c *Client) GetAccount(ctx context.Context) (types.AccountSnapshot, error) {
	var resp accountResponse
	if err := c.doRequest(ctx, http.MethodGet, "/v2/account", nil, &resp); err != nil {
		return types.AccountSnapshot{}, err
	}
	return types.AccountSnapshot{
		Cash:        parseDollars(resp.Cash),
		BuyingPower: parseDollars(resp.BuyingPower),
		Equity:      parseDollars(resp.Equity),
		UpdatedAt:   time.Now(),
	}, nil
}

type positionResponse struct {
	Symbol      string `json:"symbol"`
	Qty         string `json:"qty"`
	CostBasis   string `json:"cost_basis"`
	MarketValue string `json:"market_value"`
}

func (c *Client) GetAllPositions(ctx context.Context) ([]types.BrokerPosition, error) {
	var resp []positionResponse
	if err := c.doRequest(ctx, http.MethodGet, "/v2/positions", nil, &resp); err != nil {
		return nil, err
	}
	positions := make([]types.BrokerPosition, 0, len(resp))
	for _, p := range resp {
		qty, _ := strconv.Atoi(strings.TrimSpace(p.Qty))
		positions = append(positions, types.BrokerPosition{
			Symbol:      p.Symbol,
			Qty:         qty,
			CostBasis:   parseDollars(p.CostBasis),
			MarketValue: parseDollars(p.MarketValue),
		})
	}
	return positions, nil
}

type orderPayload struct {
	Symbol      string `json:"symbol"`
	Qty         string `json:"qty"`
	Side        string `json:"side"`
	Type        string `json:"type"`
	TimeInForce string `json:"time_in_force"`
	LimitPrice  string `json:"limit_price,omitempty"`
}

type orderResponse struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	FilledQty      string `json:"filled_qty"`
	FilledAvgPrice string `json:"filled_avg_price"`
}

func (c *Client) SubmitOrder(ctx context.Context, spec types.OrderSpec) (broker.OrderReceipt, error) {
	if err := spec.Validate(); err != nil {
		return broker.OrderReceipt{}, err
	}
	payload := orderPayload{
		Symbol:      spec.Symbol,
		Qty:         strconv.Itoa(spec.Qty),
		Side:        string(spec.Side),
		Type:        string(spec.Type),
		TimeInForce: string(spec.TimeInForce),
	}
	if spec.Type == types.OrderTypeLimit && spec.LimitPrice != nil {
		payload.LimitPrice = strconv.FormatFloat(*spec.LimitPrice, 'f', 2, 64)
	}
	var resp orderResponse
	if err := c.doRequest(ctx, http.MethodPost, "/v2/orders", payload, &resp); err != nil {
		return broker.OrderReceipt{}, err
	}
	filledQty, _ := strconv.Atoi(strings.TrimSpace(resp.FilledQty))
	return broker.OrderReceipt{
		ID:             resp.ID,
		Status:         resp.Status,
		FilledQty:      filledQty,
		FilledAvgPrice: parseDollars(resp.FilledAvgPrice),
	}, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, payload any, out any) error {
	if c == nil {
		return fmt.Errorf("broker client not initialized")
	}
	endpoint, err := c.resolveEndpoint(path)
	if err != nil {
		return err
	}
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshaling request failed: %w", err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return fmt.Errorf("building request failed: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("APCA-API-KEY-ID", c.apiKey)
	req.Header.Set("APCA-API-SECRET-KEY", c.apiSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("broker request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if len(data) == 0 {
			return fmt.Errorf("broker returned %s", resp.Status)
		}
		return fmt.Errorf("broker returned %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding broker response failed: %w", err)
	}
	return nil
}

func (c *Client) resolveEndpoint(path string) (*url.URL, error) {
	if c.baseURL == nil {
		return nil, fmt.Errorf("broker API URL not set")
	}
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		trimmed = "/"
	}
	ref := &url.URL{Path: strings.TrimLeft(trimmed, "/")}
	base := *c.baseURL
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	return base.ResolveReference(ref), nil
}

// parseDollars tolerates the API's string-encoded decimals; empty strings
// read as zero.
func parseDollars(raw string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return f
}
