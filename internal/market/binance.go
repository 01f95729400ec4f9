package market

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/futures"
)

const maxKlineLimit = 1500

// BinanceSource 基于 go-binance SDK 拉取 USDT 合约 K 线。
type BinanceSource struct {
	client *futures.Client
}

// NewBinanceSource 构造数据源；baseURL 为空时使用官方地址。
func NewBinanceSource(baseURL string, timeout time.Duration) *BinanceSource {
	client := futures.NewClient("", "")
	if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
		client.BaseURL = trimmed
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client.HTTPClient = &http.Client{Timeout: timeout}
	return &BinanceSource{client: client}
}

func (s *BinanceSource) Name() string { return "binance" }

// Fetch 拉取一页 K 线（按 open_time 升序）。
func (s *BinanceSource) Fetch(ctx context.Context, req FetchRequest) ([]Candle, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	interval := strings.ToLower(strings.TrimSpace(req.Interval))
	if symbol == "" || interval == "" {
		return nil, fmt.Errorf("symbol/interval 不能为空")
	}
	limit := req.Limit
	if limit <= 0 || limit > maxKlineLimit {
		limit = 1000
	}
	svc := s.client.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit)
	if req.Start > 0 {
		svc = svc.StartTime(req.Start)
	}
	if req.End > 0 {
		svc = svc.EndTime(req.End)
	}
	kls, err := svc.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines 请求失败: %w", err)
	}
	out := make([]Candle, 0, len(kls))
	for _, k := range kls {
		if k == nil {
			continue
		}
		out = append(out, Candle{
			OpenTime:  k.OpenTime,
			CloseTime: k.CloseTime,
			Open:      parseFloat(k.Open),
			High:      parseFloat(k.High),
			Low:       parseFloat(k.Low),
			Close:     parseFloat(k.Close),
			Volume:    parseFloat(k.Volume),
		})
	}
	return out, nil
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
