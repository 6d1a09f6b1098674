package backtest

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"alphadesk/internal/logger"

	"github.com/chromedp/chromedp"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// WriteEquityCurve renders the daily portfolio value as an HTML line chart
// and returns the written file path.
func WriteEquityCurve(reportDir, runID string, days []string, values []float64) (string, error) {
	if len(days) == 0 || len(days) != len(values) {
		return "", fmt.Errorf("report: day and value series must align, got %d/%d", len(days), len(values))
	}
	if err := os.MkdirAll(reportDir, 0o755); err != nil {
		return "", err
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Equity Curve",
			Subtitle: fmt.Sprintf("run %s", runID),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "day"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "portfolio value", Scale: opts.Bool(true)}),
	)

	points := make([]opts.LineData, len(values))
	for i, v := range values {
		points[i] = opts.LineData{Value: v}
	}
	line.SetXAxis(days).AddSeries("total value", points).
		SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))

	path := filepath.Join(reportDir, fmt.Sprintf("backtest_%s.html", runID))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := line.Render(f); err != nil {
		return "", err
	}
	return path, nil
}

// SnapshotPNG renders the HTML report to a PNG next to it using headless
// Chrome. Failures are non-fatal to the run; callers log and move on.
func SnapshotPNG(ctx context.Context, htmlPath string) (string, error) {
	html, err := os.ReadFile(htmlPath)
	if err != nil {
		return "", err
	}
	parent, cancel := chromedp.NewContext(ctx)
	defer cancel()
	timeoutCtx, cancelTimeout := context.WithTimeout(parent, 20*time.Second)
	defer cancelTimeout()

	dataURI := "data:text/html;base64," + base64.StdEncoding.EncodeToString(html)
	var screenshot []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(1200, 600),
		chromedp.Navigate(dataURI),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(1500 * time.Millisecond),
		chromedp.FullScreenshot(&screenshot, 90),
	}
	if err := chromedp.Run(timeoutCtx, tasks); err != nil {
		return "", fmt.Errorf("report snapshot failed: %w", err)
	}
	pngPath := htmlPath[:len(htmlPath)-len(filepath.Ext(htmlPath))] + ".png"
	if err := os.WriteFile(pngPath, screenshot, 0o644); err != nil {
		return "", err
	}
	logger.Infof("report snapshot written: %s", pngPath)
	return pngPath, nil
}
