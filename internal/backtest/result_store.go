package backtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ResultStore 使用 Gorm + SQLite 落地回测结果（run / 成交 / 权益曲线）。
type ResultStore struct {
	db *gorm.DB
}

type runModel struct {
	ID          int64          `gorm:"column:id;primaryKey"`
	RunID       string         `gorm:"column:run_id;uniqueIndex"`
	Symbol      string         `gorm:"column:symbol;index"`
	Timeframe   string         `gorm:"column:timeframe"`
	Profile     string         `gorm:"column:profile"`
	StartTS     int64          `gorm:"column:start_ts"`
	EndTS       int64          `gorm:"column:end_ts"`
	Status      string         `gorm:"column:status;index"`
	Message     string         `gorm:"column:message"`
	ParamsJSON  datatypes.JSON `gorm:"column:params_json"`
	StatsJSON   datatypes.JSON `gorm:"column:stats_json"`
	CreatedAt   int64          `gorm:"column:created_at"`
	UpdatedAt   int64          `gorm:"column:updated_at"`
	FinishedAt  int64          `gorm:"column:finished_at"`
	BarProgress int64          `gorm:"column:bar_progress"`
}

func (runModel) TableName() string { return "runs" }

type tradeModel struct {
	ID    int64   `gorm:"column:id;primaryKey"`
	RunID string  `gorm:"column:run_id;index"`
	Seq   int     `gorm:"column:seq"`
	TS    int64   `gorm:"column:ts"`
	Side  string  `gorm:"column:side"`
	Price float64 `gorm:"column:price"`
	Size  float64 `gorm:"column:size"`
}

func (tradeModel) TableName() string { return "trades" }

type equityModel struct {
	ID     int64   `gorm:"column:id;primaryKey"`
	RunID  string  `gorm:"column:run_id;index"`
	TS     int64   `gorm:"column:ts"`
	Equity float64 `gorm:"column:equity"`
}

func (equityModel) TableName() string { return "equity_points" }

// NewResultStore 打开（必要时创建）结果库并完成迁移。
func NewResultStore(path string) (*ResultStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("result store: 路径不能为空")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&runModel{}, &tradeModel{}, &equityModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL：允许少量并发读，写仍然串行。
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &ResultStore{db: db}, nil
}

func (s *ResultStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InsertRun 登记一次新的回测 run（状态 pending）。
func (s *ResultStore) InsertRun(ctx context.Context, run Run) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("result store 未初始化")
	}
	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("run_id 必填")
	}
	now := time.Now().UnixMilli()
	paramsJSON, err := json.Marshal(run.Params)
	if err != nil {
		return err
	}
	model := runModel{
		RunID:      run.ID,
		Symbol:     strings.ToUpper(strings.TrimSpace(run.Symbol)),
		Timeframe:  strings.ToLower(strings.TrimSpace(run.Timeframe)),
		Profile:    strings.TrimSpace(run.Profile),
		StartTS:    run.StartTS,
		EndTS:      run.EndTS,
		Status:     run.Status,
		ParamsJSON: datatypes.JSON(paramsJSON),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "run_id"}},
			DoNothing: true,
		}).
		Create(&model).Error
}

// UpdateRunStatus 推进 run 状态；failed 时附带错误信息。
func (s *ResultStore) UpdateRunStatus(ctx context.Context, runID string, status string, message string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("result store 未初始化")
	}
	payload := map[string]interface{}{
		"status":     status,
		"message":    strings.TrimSpace(message),
		"updated_at": time.Now().UnixMilli(),
	}
	if status == RunStatusDone || status == RunStatusFailed {
		payload["finished_at"] = time.Now().UnixMilli()
	}
	res := s.db.WithContext(ctx).Model(&runModel{}).
		Where("run_id = ?", runID).
		Updates(payload)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateRunProgress 记录已处理的 bar 数，供轮询接口展示。
func (s *ResultStore) UpdateRunProgress(ctx context.Context, runID string, bars int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("result store 未初始化")
	}
	return s.db.WithContext(ctx).Model(&runModel{}).
		Where("run_id = ?", runID).
		Updates(map[string]interface{}{
			"bar_progress": bars,
			"updated_at":   time.Now().UnixMilli(),
		}).Error
}

// SaveResult 在 run 完成后写入统计、成交与权益曲线。
func (s *ResultStore) SaveResult(ctx context.Context, runID string, result Result) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("result store 未初始化")
	}
	statsJSON, err := json.Marshal(result.Stats)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&runModel{}).
			Where("run_id = ?", runID).
			Updates(map[string]interface{}{
				"stats_json":   datatypes.JSON(statsJSON),
				"status":       RunStatusDone,
				"finished_at":  time.Now().UnixMilli(),
				"updated_at":   time.Now().UnixMilli(),
				"bar_progress": result.Stats.Bars,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if len(result.Trades) > 0 {
			trades := make([]tradeModel, 0, len(result.Trades))
			for i, t := range result.Trades {
				trades = append(trades, tradeModel{
					RunID: runID,
					Seq:   i,
					TS:    t.Time.UnixMilli(),
					Side:  string(t.Side),
					Price: t.Price,
					Size:  t.Size,
				})
			}
			if err := tx.Create(&trades).Error; err != nil {
				return err
			}
		}
		if len(result.Curve) > 0 {
			points := make([]equityModel, 0, len(result.Curve))
			for _, p := range result.Curve {
				points = append(points, equityModel{RunID: runID, TS: p.TS, Equity: p.Equity})
			}
			if err := tx.CreateInBatches(&points, 500).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetRun 按 run_id 查询；不存在时 found=false。
func (s *ResultStore) GetRun(ctx context.Context, runID string) (Run, bool, error) {
	if s == nil || s.db == nil {
		return Run{}, false, fmt.Errorf("result store 未初始化")
	}
	var model runModel
	if err := s.db.WithContext(ctx).Where("run_id = ?", runID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Run{}, false, nil
		}
		return Run{}, false, err
	}
	run, err := runModelToRun(model)
	if err != nil {
		return Run{}, false, err
	}
	return run, true, nil
}

// ListRuns 按创建时间倒序分页。
func (s *ResultStore) ListRuns(ctx context.Context, symbol string, limit, offset int) ([]Run, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("result store 未初始化")
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := s.db.WithContext(ctx).Model(&runModel{})
	if sym := strings.ToUpper(strings.TrimSpace(symbol)); sym != "" {
		query = query.Where("symbol = ?", sym)
	}
	var models []runModel
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]Run, 0, len(models))
	for _, m := range models {
		run, err := runModelToRun(m)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, nil
}

// ListTrades 返回某 run 的成交记录，按发生顺序。
func (s *ResultStore) ListTrades(ctx context.Context, runID string) ([]TradeRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("result store 未初始化")
	}
	var models []tradeModel
	if err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("seq ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]TradeRecord, 0, len(models))
	for _, m := range models {
		out = append(out, TradeRecord{
			Time:  time.UnixMilli(m.TS).UTC(),
			Side:  TradeSide(m.Side),
			Price: m.Price,
			Size:  m.Size,
		})
	}
	return out, nil
}

// ListEquityCurve 返回某 run 的权益曲线，按时间升序。
func (s *ResultStore) ListEquityCurve(ctx context.Context, runID string) ([]EquityPoint, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("result store 未初始化")
	}
	var models []equityModel
	if err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("ts ASC, id ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]EquityPoint, 0, len(models))
	for _, m := range models {
		out = append(out, EquityPoint{TS: m.TS, Equity: m.Equity})
	}
	return out, nil
}

func runModelToRun(m runModel) (Run, error) {
	run := Run{
		ID:        m.RunID,
		Symbol:    m.Symbol,
		Timeframe: m.Timeframe,
		Profile:   m.Profile,
		StartTS:   m.StartTS,
		EndTS:     m.EndTS,
		Status:    m.Status,
		Message:   m.Message,
		Progress:  m.BarProgress,
		CreatedAt: time.UnixMilli(m.CreatedAt).UTC(),
		UpdatedAt: time.UnixMilli(m.UpdatedAt).UTC(),
	}
	if m.FinishedAt > 0 {
		ts := time.UnixMilli(m.FinishedAt).UTC()
		run.DoneAt = &ts
	}
	if len(m.ParamsJSON) > 0 {
		if err := json.Unmarshal(m.ParamsJSON, &run.Params); err != nil {
			return Run{}, err
		}
	}
	if len(m.StatsJSON) > 0 {
		if err := json.Unmarshal(m.StatsJSON, &run.Stats); err != nil {
			return Run{}, err
		}
	}
	return run, nil
}
