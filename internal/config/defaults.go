package config

// DefaultStrategy 返回与原始策略一致的默认参数。
func DefaultStrategy() StrategyParams {
	return StrategyParams{
		RSIPeriod:      14,
		MACDShort:      12,
		MACDLong:       26,
		MACDSignal:     9,
		RSIOversold:    30,
		RSIOverbought:  70,
		RiskPerTrade:   0.1,
		MaxLoss:        0.1,
		MaxProfit:      5.0,
		InitialCash:    10000,
		CommissionRate: 0.001,
	}
}

// Default 返回全量默认配置。
func Default() *Config {
	return &Config{
		App: AppConfig{
			LogLevel: "info",
		},
		Server: ServerConfig{
			Enabled: true,
			Addr:    ":9985",
		},
		Source: SourceConfig{
			TimeoutSeconds: 15,
		},
		Backtest: BacktestConfig{
			DataDir:       "data/candles",
			ResultsDir:    "data/results",
			MaxConcurrent: 2,
			Lookback:      300,
		},
		Strategy: DefaultStrategy(),
	}
}

func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = def.App.LogLevel
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = def.Server.Addr
	}
	if cfg.Source.TimeoutSeconds <= 0 {
		cfg.Source.TimeoutSeconds = def.Source.TimeoutSeconds
	}
	if cfg.Backtest.DataDir == "" {
		cfg.Backtest.DataDir = def.Backtest.DataDir
	}
	if cfg.Backtest.ResultsDir == "" {
		cfg.Backtest.ResultsDir = def.Backtest.ResultsDir
	}
	if cfg.Backtest.MaxConcurrent <= 0 {
		cfg.Backtest.MaxConcurrent = def.Backtest.MaxConcurrent
	}
	if cfg.Backtest.Lookback <= 0 {
		cfg.Backtest.Lookback = def.Backtest.Lookback
	}
	applyStrategyDefaults(&cfg.Strategy)
}

func applyStrategyDefaults(p *StrategyParams) {
	def := DefaultStrategy()
	if p.RSIPeriod == 0 {
		p.RSIPeriod = def.RSIPeriod
	}
	if p.MACDShort == 0 {
		p.MACDShort = def.MACDShort
	}
	if p.MACDLong == 0 {
		p.MACDLong = def.MACDLong
	}
	if p.MACDSignal == 0 {
		p.MACDSignal = def.MACDSignal
	}
	if p.RSIOversold == 0 {
		p.RSIOversold = def.RSIOversold
	}
	if p.RSIOverbought == 0 {
		p.RSIOverbought = def.RSIOverbought
	}
	if p.RiskPerTrade == 0 {
		p.RiskPerTrade = def.RiskPerTrade
	}
	if p.MaxLoss == 0 {
		p.MaxLoss = def.MaxLoss
	}
	if p.MaxProfit == 0 {
		p.MaxProfit = def.MaxProfit
	}
	if p.InitialCash == 0 {
		p.InitialCash = def.InitialCash
	}
	if p.CommissionRate == 0 {
		p.CommissionRate = def.CommissionRate
	}
}
