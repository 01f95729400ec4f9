package app

import (
	"context"
	"fmt"
	"path/filepath"

	"martlet/internal/backtest"
	mcfg "martlet/internal/config"
	"martlet/internal/config/loader"
	"martlet/internal/logger"
	"martlet/internal/market"
	apihttp "martlet/internal/transport/http/api"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化依赖→启动服务。
type App struct {
	cfg      *mcfg.Config
	store    *backtest.Store
	results  *backtest.ResultStore
	profiles *loader.ProfileStore
	sim      *backtest.Simulator
	server   *apihttp.Server
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *mcfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	store, err := backtest.NewStore(cfg.Backtest.DataDir)
	if err != nil {
		return nil, fmt.Errorf("初始化数据缓存失败: %w", err)
	}
	results, err := backtest.NewResultStore(filepath.Join(cfg.Backtest.ResultsDir, "results.db"))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("初始化结果存储失败: %w", err)
	}
	profiles, err := loader.NewProfileStore(cfg.Backtest.ProfilesPath, cfg.Strategy)
	if err != nil {
		_ = store.Close()
		_ = results.Close()
		return nil, fmt.Errorf("加载策略档案失败: %w", err)
	}

	source := market.NewBinanceSource(cfg.Source.RESTBaseURL, cfg.Source.Timeout())
	data := backtest.NewDataService(store, source)
	sim := backtest.NewSimulator(profiles, data, results, cfg.Backtest.MaxConcurrent)
	sim.Lookback = cfg.Backtest.Lookback

	a := &App{
		cfg:      cfg,
		store:    store,
		results:  results,
		profiles: profiles,
		sim:      sim,
	}
	if cfg.Server.Enabled {
		server, err := apihttp.NewServer(apihttp.Config{
			Addr:      cfg.Server.Addr,
			Simulator: sim,
			Results:   results,
			Store:     store,
			Profiles:  profiles,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("初始化 HTTP 服务失败: %w", err)
		}
		a.server = server
	}
	return a, nil
}

// Simulator 暴露编排器（CLI 同步回测用）。
func (a *App) Simulator() *backtest.Simulator { return a.sim }

// Run 启动 HTTP 服务与档案热加载，阻塞直到 ctx 取消。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	group, ctx := errgroup.WithContext(ctx)

	if a.server != nil {
		group.Go(func() error {
			logger.Infof("HTTP 服务启动：%s", a.cfg.Server.Addr)
			if err := a.server.Start(ctx); err != nil {
				return fmt.Errorf("http server error: %w", err)
			}
			return nil
		})
	}
	if a.cfg.Backtest.ProfilesPath != "" {
		group.Go(func() error {
			return a.profiles.Watch(ctx)
		})
	}
	if a.server == nil && a.cfg.Backtest.ProfilesPath == "" {
		<-ctx.Done()
	}

	err := group.Wait()
	a.sim.Wait()
	return err
}

// Close 释放全部存储句柄。
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.results != nil {
		_ = a.results.Close()
	}
}
