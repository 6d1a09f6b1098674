package marketdata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"alphadesk/internal/config"

	"github.com/tidwall/gjson"
)

const dateLayout = "2006-01-02"

// Client talks to the market data REST API. Responses are parsed with gjson
// so unexpected extra fields never break a release.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(cfg config.MarketDataConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		baseURL: cfg.APIURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	endpoint := fmt.Sprintf("%s%s?%s", c.baseURL, path, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-KEY", c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("market data request failed (%s): %w", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("market data %s returned %s: %s", path, resp.Status, truncate(body, 200))
	}
	return body, nil
}

func (c *Client) Prices(ctx context.Context, ticker string, start, end time.Time) ([]Bar, error) {
	q := url.Values{}
	q.Set("ticker", ticker)
	q.Set("interval", "day")
	q.Set("interval_multiplier", "1")
	q.Set("start_date", start.Format(dateLayout))
	q.Set("end_date", end.Format(dateLayout))
	body, err := c.get(ctx, "/prices/", q)
	if err != nil {
		return nil, err
	}
	rows := gjson.GetBytes(body, "prices")
	if !rows.Exists() {
		return nil, fmt.Errorf("prices response for %s missing prices array", ticker)
	}
	var bars []Bar
	rows.ForEach(func(_, row gjson.Result) bool {
		ts, err := time.Parse(time.RFC3339, row.Get("time").String())
		if err != nil {
			return true
		}
		bars = append(bars, Bar{
			Time:   ts,
			Open:   row.Get("open").Float(),
			High:   row.Get("high").Float(),
			Low:    row.Get("low").Float(),
			Close:  row.Get("close").Float(),
			Volume: row.Get("volume").Float(),
		})
		return true
	})
	return bars, nil
}

// LatestPrice returns the most recent daily close at or before asOf.
func (c *Client) LatestPrice(ctx context.Context, ticker string, asOf time.Time) (float64, error) {
	bars, err := c.Prices(ctx, ticker, asOf.AddDate(0, 0, -10), asOf)
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, fmt.Errorf("no price bars for %s as of %s", ticker, asOf.Format(dateLayout))
	}
	return bars[len(bars)-1].Close, nil
}

func (c *Client) Metrics(ctx context.Context, ticker string, asOf time.Time) (*FinancialMetrics, error) {
	q := url.Values{}
	q.Set("ticker", ticker)
	q.Set("report_period_lte", asOf.Format(dateLayout))
	q.Set("period", "ttm")
	q.Set("limit", "1")
	body, err := c.get(ctx, "/financial-metrics/", q)
	if err != nil {
		return nil, err
	}
	row := gjson.GetBytes(body, "financial_metrics.0")
	if !row.Exists() {
		return nil, fmt.Errorf("no financial metrics for %s", ticker)
	}
	return &FinancialMetrics{
		Ticker:                  ticker,
		ReportPeriod:            row.Get("report_period").String(),
		MarketCap:               row.Get("market_cap").Float(),
		PriceToEarningsRatio:    row.Get("price_to_earnings_ratio").Float(),
		PriceToBookRatio:        row.Get("price_to_book_ratio").Float(),
		PriceToSalesRatio:       row.Get("price_to_sales_ratio").Float(),
		ReturnOnEquity:          row.Get("return_on_equity").Float(),
		NetMargin:               row.Get("net_margin").Float(),
		OperatingMargin:         row.Get("operating_margin").Float(),
		RevenueGrowth:           row.Get("revenue_growth").Float(),
		EarningsGrowth:          row.Get("earnings_growth").Float(),
		BookValueGrowth:         row.Get("book_value_growth").Float(),
		CurrentRatio:            row.Get("current_ratio").Float(),
		DebtToEquity:            row.Get("debt_to_equity").Float(),
		FreeCashFlowPerShare:    row.Get("free_cash_flow_per_share").Float(),
		EarningsPerShare:        row.Get("earnings_per_share").Float(),
		PayoutRatio:             row.Get("payout_ratio").Float(),
		ReturnOnInvestedCapital: row.Get("return_on_invested_capital").Float(),
	}, nil
}

func (c *Client) InsiderTrades(ctx context.Context, ticker string, asOf time.Time, limit int) ([]InsiderTrade, error) {
	if limit <= 0 {
		limit = 100
	}
	q := url.Values{}
	q.Set("ticker", ticker)
	q.Set("filing_date_lte", asOf.Format(dateLayout))
	q.Set("limit", strconv.Itoa(limit))
	body, err := c.get(ctx, "/insider-trades/", q)
	if err != nil {
		return nil, err
	}
	var trades []InsiderTrade
	gjson.GetBytes(body, "insider_trades").ForEach(func(_, row gjson.Result) bool {
		date, _ := time.Parse(dateLayout, row.Get("transaction_date").String())
		trades = append(trades, InsiderTrade{
			Ticker:          ticker,
			Name:            row.Get("name").String(),
			TransactionDate: date,
			Shares:          row.Get("transaction_shares").Float(),
			Value:           row.Get("transaction_value").Float(),
		})
		return true
	})
	return trades, nil
}

func (c *Client) News(ctx context.Context, ticker string, asOf time.Time, limit int) ([]NewsItem, error) {
	if limit <= 0 {
		limit = 100
	}
	q := url.Values{}
	q.Set("ticker", ticker)
	q.Set("end_date", asOf.Format(dateLayout))
	q.Set("limit", strconv.Itoa(limit))
	body, err := c.get(ctx, "/news/", q)
	if err != nil {
		return nil, err
	}
	var items []NewsItem
	gjson.GetBytes(body, "news").ForEach(func(_, row gjson.Result) bool {
		date, _ := time.Parse(dateLayout, row.Get("date").String())
		items = append(items, NewsItem{
			Ticker:    ticker,
			Title:     row.Get("title").String(),
			Source:    row.Get("source").String(),
			Date:      date,
			Sentiment: row.Get("sentiment").String(),
		})
		return true
	})
	return items, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
