package backtest

import (
	"context"
	"fmt"

	"martlet/internal/logger"
	"martlet/internal/market"
)

// DataError 表示数据准备失败：区间内无数据或拉取/缓存出错。
type DataError struct {
	Symbol    string
	Timeframe string
	Reason    string
	Err       error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("数据准备失败 %s@%s: %s: %v", e.Symbol, e.Timeframe, e.Reason, e.Err)
	}
	return fmt.Sprintf("数据准备失败 %s@%s: %s", e.Symbol, e.Timeframe, e.Reason)
}

func (e *DataError) Unwrap() error { return e.Err }

// DataService 负责在回测前把目标区间的 K 线准备到本地缓存。
// 缓存命中且无缺口时不访问远端。
type DataService struct {
	store  *Store
	source market.CandleSource
	// 单次远端请求最多拉取的根数
	pageLimit int
}

func NewDataService(store *Store, source market.CandleSource) *DataService {
	return &DataService{store: store, source: source, pageLimit: 1000}
}

// Ensure 返回 start~end 区间的完整 K 线序列（open_time 升序）。
// 缺口部分从远端分页补齐后写入缓存。
func (s *DataService) Ensure(ctx context.Context, symbol string, tf Timeframe, start, end int64) ([]market.Candle, error) {
	start, end = tf.AlignRange(start, end)
	report, err := s.store.CheckIntegrity(ctx, symbol, tf, start, end)
	if err != nil {
		return nil, &DataError{Symbol: symbol, Timeframe: tf.Key, Reason: "缓存检查失败", Err: err}
	}
	if !report.Complete() {
		if s.source == nil {
			return nil, &DataError{Symbol: symbol, Timeframe: tf.Key, Reason: "缓存不完整且未配置数据源"}
		}
		for _, gap := range report.Gaps {
			if err := s.fillGap(ctx, symbol, tf, gap[0], gap[1]); err != nil {
				return nil, err
			}
		}
	}
	candles, err := s.store.RangeCandles(ctx, symbol, tf.Key, start, end)
	if err != nil {
		return nil, &DataError{Symbol: symbol, Timeframe: tf.Key, Reason: "读取缓存失败", Err: err}
	}
	if len(candles) == 0 {
		return nil, &DataError{Symbol: symbol, Timeframe: tf.Key, Reason: "区间内无数据", Err: market.ErrNoData}
	}
	if err := market.ValidateSeries(candles); err != nil {
		return nil, &DataError{Symbol: symbol, Timeframe: tf.Key, Reason: "缓存序列非法", Err: err}
	}
	return candles, nil
}

func (s *DataService) fillGap(ctx context.Context, symbol string, tf Timeframe, gapStart, gapEnd int64) error {
	step := tf.durationMillis()
	cursor := gapStart
	for cursor <= gapEnd {
		batch, err := s.source.Fetch(ctx, market.FetchRequest{
			Symbol:   symbol,
			Interval: tf.SourceInterval,
			Start:    cursor,
			End:      gapEnd + step - 1,
			Limit:    s.pageLimit,
		})
		if err != nil {
			return &DataError{Symbol: symbol, Timeframe: tf.Key, Reason: "远端拉取失败", Err: err}
		}
		if len(batch) == 0 {
			// 远端在该段没有更多数据（上市前或停牌段），放弃补齐
			logger.Warnf("数据源 %s 在 %s@%s [%d,%d] 无数据", s.source.Name(), symbol, tf.Key, cursor, gapEnd)
			return nil
		}
		if _, err := s.store.InsertCandles(ctx, symbol, tf.Key, batch); err != nil {
			return &DataError{Symbol: symbol, Timeframe: tf.Key, Reason: "写入缓存失败", Err: err}
		}
		next := batch[len(batch)-1].OpenTime + step
		if next <= cursor {
			break
		}
		cursor = next
	}
	return nil
}
