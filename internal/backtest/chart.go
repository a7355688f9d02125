package backtest

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const (
	chartWidthPx  = 1200
	chartHeightPx = 520

	colorBackground = "#111827"
	colorEquity     = "#34d399"
	colorText       = "#e5e7eb"
)

// RenderEquityHTML 把资金曲线渲染为单页 HTML。
func RenderEquityHTML(res Result) ([]byte, error) {
	if len(res.Equity) == 0 {
		return nil, fmt.Errorf("equity curve is empty")
	}
	xAxis := make([]string, 0, len(res.Equity))
	points := make([]opts.LineData, 0, len(res.Equity))
	for _, p := range res.Equity {
		xAxis = append(xAxis, time.UnixMilli(p.TS).UTC().Format("01-02 15:04"))
		points = append(points, opts.LineData{Value: p.Equity})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", chartHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:      fmt.Sprintf("Equity %s %s (%s)", res.Symbol, res.Timeframe, res.Strategy),
			TitleStyle: &opts.TextStyle{Color: colorText},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Color: colorText}}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true), AxisLabel: &opts.AxisLabel{Color: colorText}}),
	)
	line.SetXAxis(xAxis)
	line.AddSeries("equity", points,
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorEquity, Width: 2}),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var (
	headlessOnce sync.Once
	headlessErr  error
)

// EnsureHeadlessAvailable 探测本机 headless Chrome 是否可用。
func EnsureHeadlessAvailable(ctx context.Context) error {
	headlessOnce.Do(func() {
		if ctx == nil {
			ctx = context.Background()
		}
		parent, cancel := chromedp.NewContext(ctx)
		defer cancel()
		headlessErr = chromedp.Run(parent)
	})
	return headlessErr
}

// RenderEquityPNG 借 headless Chrome 截图资金曲线。
// 无 Chrome 环境时返回错误，调用方退化为只给 HTML。
func RenderEquityPNG(ctx context.Context, res Result) ([]byte, error) {
	if err := EnsureHeadlessAvailable(ctx); err != nil {
		return nil, fmt.Errorf("headless chrome unavailable: %w", err)
	}
	html, err := RenderEquityHTML(res)
	if err != nil {
		return nil, err
	}

	parent, cancel := chromedp.NewContext(ctx)
	defer cancel()
	timeoutCtx, cancelTimeout := context.WithTimeout(parent, 20*time.Second)
	defer cancelTimeout()

	dataURI := "data:text/html;base64," + base64.StdEncoding.EncodeToString(html)
	var screenshot []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(chartWidthPx), int64(chartHeightPx)),
		chromedp.Navigate(dataURI),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(1500 * time.Millisecond),
		chromedp.FullScreenshot(&screenshot, 0),
	}
	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return nil, err
	}
	return screenshot, nil
}
