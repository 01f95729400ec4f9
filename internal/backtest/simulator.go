package backtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"martlet/internal/config"
	"martlet/internal/config/loader"
	"martlet/internal/logger"

	"github.com/google/uuid"
)

// ErrRunNotFound 表示查询的 run_id 不存在。
var ErrRunNotFound = fmt.Errorf("run 不存在")

// Simulator 负责回测任务的编排：参数解析、数据准备、执行与落库。
// 并发量由信号量限制，超出的提交会排队等待。
type Simulator struct {
	profiles *loader.ProfileStore
	data     *DataService
	results  *ResultStore

	// Lookback 为指标预热根数：在请求区间之前额外取这么多根 K 线，
	// 预热段只喂指标，不产生成交和统计。
	Lookback int

	sem chan struct{}
	wg  sync.WaitGroup
}

func NewSimulator(profiles *loader.ProfileStore, data *DataService, results *ResultStore, maxConcurrent int) *Simulator {
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}
	return &Simulator{
		profiles: profiles,
		data:     data,
		results:  results,
		sem:      make(chan struct{}, maxConcurrent),
	}
}

// Wait 阻塞到所有后台 run 结束（进程退出前调用）。
func (s *Simulator) Wait() { s.wg.Wait() }

func (s *Simulator) resolveParams(profile string) (config.StrategyParams, error) {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		params, _ := s.profiles.Get("")
		return params, nil
	}
	params, ok := s.profiles.Get(profile)
	if !ok {
		return config.StrategyParams{}, fmt.Errorf("未知 profile: %s", profile)
	}
	return params, nil
}

func (s *Simulator) prepare(req RunRequest) (Run, Timeframe, error) {
	tf, err := ParseTimeframe(req.Timeframe)
	if err != nil {
		return Run{}, Timeframe{}, err
	}
	if req.StartTS <= 0 || req.EndTS <= 0 || req.EndTS < req.StartTS {
		return Run{}, Timeframe{}, fmt.Errorf("start_ts/end_ts 非法: [%d, %d]", req.StartTS, req.EndTS)
	}
	params, err := s.resolveParams(req.Profile)
	if err != nil {
		return Run{}, Timeframe{}, err
	}
	if err := params.Validate(); err != nil {
		return Run{}, Timeframe{}, err
	}
	start, end := tf.AlignRange(req.StartTS, req.EndTS)
	run := Run{
		ID:        uuid.NewString(),
		Symbol:    strings.ToUpper(strings.TrimSpace(req.Symbol)),
		Timeframe: tf.Key,
		Profile:   strings.TrimSpace(req.Profile),
		Status:    RunStatusPending,
		StartTS:   start,
		EndTS:     end,
		Params:    params,
	}
	return run, tf, nil
}

// StartRun 异步提交：立即返回登记好的 run，执行在后台进行。
func (s *Simulator) StartRun(ctx context.Context, req RunRequest) (Run, error) {
	run, tf, err := s.prepare(req)
	if err != nil {
		return Run{}, err
	}
	if err := s.results.InsertRun(ctx, run); err != nil {
		return Run{}, err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// 后台执行与请求生命周期脱钩
		s.execute(context.Background(), run, tf)
	}()
	return run, nil
}

// RunSync 同步执行：阻塞到回测完成并返回最终 run。
func (s *Simulator) RunSync(ctx context.Context, req RunRequest) (Run, error) {
	run, tf, err := s.prepare(req)
	if err != nil {
		return Run{}, err
	}
	if err := s.results.InsertRun(ctx, run); err != nil {
		return Run{}, err
	}
	s.execute(ctx, run, tf)
	final, found, err := s.results.GetRun(ctx, run.ID)
	if err != nil {
		return Run{}, err
	}
	if !found {
		return Run{}, ErrRunNotFound
	}
	return final, nil
}

func (s *Simulator) execute(ctx context.Context, run Run, tf Timeframe) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		s.fail(run.ID, ctx.Err())
		return
	}
	defer func() { <-s.sem }()

	started := time.Now()
	if err := s.results.UpdateRunStatus(ctx, run.ID, RunStatusRunning, ""); err != nil {
		logger.Errorf("run %s 状态更新失败: %v", run.ID, err)
	}

	fetchStart := run.StartTS
	if s.Lookback > 0 {
		fetchStart -= int64(s.Lookback) * tf.durationMillis()
		if fetchStart <= 0 {
			fetchStart = run.StartTS
		}
	}
	candles, err := s.data.Ensure(ctx, run.Symbol, tf, fetchStart, run.EndTS)
	if err != nil {
		s.fail(run.ID, err)
		return
	}

	driver, err := NewDriver(run.Params)
	if err != nil {
		s.fail(run.ID, err)
		return
	}
	for _, c := range candles {
		if c.OpenTime >= run.StartTS {
			break
		}
		driver.Warmup++
	}
	lastReported := 0
	driver.Progress = func(processed, total int) {
		// 每 500 根上报一次，避免写放大
		if processed-lastReported < 500 && processed != total {
			return
		}
		lastReported = processed
		if err := s.results.UpdateRunProgress(ctx, run.ID, int64(processed)); err != nil {
			logger.Warnf("run %s 进度写入失败: %v", run.ID, err)
		}
	}

	result := driver.Run(ctx, candles)
	if err := s.results.SaveResult(ctx, run.ID, result); err != nil {
		s.fail(run.ID, err)
		return
	}
	logger.Infof("run %s 完成: %s@%s bars=%d trades=%d equity=%.2f 耗时=%s",
		run.ID, run.Symbol, run.Timeframe, result.Stats.Bars, result.Stats.Trades,
		result.Stats.FinalEquity, time.Since(started).Round(time.Millisecond))
}

func (s *Simulator) fail(runID string, cause error) {
	logger.Errorf("run %s 失败: %v", runID, cause)
	if err := s.results.UpdateRunStatus(context.Background(), runID, RunStatusFailed, cause.Error()); err != nil {
		logger.Errorf("run %s 失败状态写入失败: %v", runID, err)
	}
}
