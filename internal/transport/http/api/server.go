package apihttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"martlet/internal/backtest"
	"martlet/internal/config/loader"
	"martlet/internal/export"

	"github.com/gin-gonic/gin"
)

// Server 提供回测相关的 HTTP API。
type Server struct {
	addr     string
	sim      *backtest.Simulator
	results  *backtest.ResultStore
	store    *backtest.Store
	profiles *loader.ProfileStore
	router   *gin.Engine
}

// Config 描述 HTTP Server 的依赖。
type Config struct {
	Addr      string
	Simulator *backtest.Simulator
	Results   *backtest.ResultStore
	Store     *backtest.Store
	Profiles  *loader.ProfileStore
}

// NewServer 构建 HTTP Server。
func NewServer(cfg Config) (*Server, error) {
	if cfg.Simulator == nil {
		return nil, errors.New("simulator 不能为空")
	}
	if cfg.Results == nil {
		return nil, errors.New("result store 不能为空")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9991"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		addr:     cfg.Addr,
		sim:      cfg.Simulator,
		results:  cfg.Results,
		store:    cfg.Store,
		profiles: cfg.Profiles,
		router:   router,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	api := s.router.Group("/api/backtest")
	api.GET("/data", s.handleManifest)
	api.GET("/profiles", s.handleProfiles)
	api.POST("/runs", s.handleRunStart)
	api.GET("/runs", s.handleRunList)
	api.GET("/runs/:id", s.handleRunDetail)
	api.GET("/runs/:id/trades", s.handleRunTrades)
	api.GET("/runs/:id/curve", s.handleRunCurve)
	api.GET("/runs/:id/export/csv", s.handleExportCSV)
	api.GET("/runs/:id/export/pine", s.handleExportPine)
	api.GET("/runs/:id/chart", s.handleChart)
}

// Handler 暴露路由（测试用）。
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleManifest(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "数据缓存未启用"})
		return
	}
	symbol := c.Query("symbol")
	tf := c.Query("timeframe")
	if symbol == "" || tf == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol/timeframe 必填"})
		return
	}
	info, err := s.store.Manifest(c.Request.Context(), symbol, tf)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"manifest": info})
}

func (s *Server) handleProfiles(c *gin.Context) {
	if s.profiles == nil {
		c.JSON(http.StatusOK, gin.H{"profiles": []string{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profiles": s.profiles.Names()})
}

func (s *Server) handleRunStart(c *gin.Context) {
	var req backtest.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	run, err := s.sim.StartRun(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"run": run})
}

func (s *Server) handleRunList(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	runs, err := s.results.ListRuns(c.Request.Context(), c.Query("symbol"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleRunDetail(c *gin.Context) {
	run, found, err := s.results.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "run 不存在"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run})
}

func (s *Server) handleRunTrades(c *gin.Context) {
	trades, err := s.results.ListTrades(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (s *Server) handleRunCurve(c *gin.Context) {
	curve, err := s.results.ListEquityCurve(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"curve": curve})
}

func (s *Server) loadDoneRun(c *gin.Context) (backtest.Run, []backtest.TradeRecord, bool) {
	id := c.Param("id")
	run, found, err := s.results.GetRun(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return backtest.Run{}, nil, false
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "run 不存在"})
		return backtest.Run{}, nil, false
	}
	if run.Status != backtest.RunStatusDone {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("run 尚未完成: %s", run.Status)})
		return backtest.Run{}, nil, false
	}
	trades, err := s.results.ListTrades(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return backtest.Run{}, nil, false
	}
	return run, trades, true
}

func (s *Server) handleExportCSV(c *gin.Context) {
	run, trades, ok := s.loadDoneRun(c)
	if !ok {
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s_trades.csv", run.ID))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	if err := export.WriteTradesCSV(c.Writer, trades); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (s *Server) handleExportPine(c *gin.Context) {
	run, trades, ok := s.loadDoneRun(c)
	if !ok {
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pine", run.ID))
	c.Header("Content-Type", "text/plain; charset=utf-8")
	if err := export.WritePineScript(c.Writer, trades); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (s *Server) handleChart(c *gin.Context) {
	run, trades, ok := s.loadDoneRun(c)
	if !ok {
		return
	}
	curve, err := s.results.ListEquityCurve(c.Request.Context(), run.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	err = export.RenderEquityChart(c.Writer, export.ChartInput{
		Title:  fmt.Sprintf("%s %s", run.Symbol, run.Timeframe),
		Stats:  run.Stats,
		Curve:  curve,
		Trades: trades,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

// Start 启动 HTTP 服务，阻塞直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
