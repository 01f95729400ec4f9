package config

import "time"

// Config 为进程级配置，启动时加载一次，运行期间不可变。
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Source   SourceConfig   `mapstructure:"source"`
	Backtest BacktestConfig `mapstructure:"backtest"`
	Strategy StrategyParams `mapstructure:"strategy"`
}

// AppConfig 控制日志行为。
type AppConfig struct {
	LogLevel string `mapstructure:"log_level"`
	LogPath  string `mapstructure:"log_path"`
}

// ServerConfig 控制 HTTP 服务。
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// SourceConfig 描述 K 线数据源。
type SourceConfig struct {
	RESTBaseURL    string `mapstructure:"rest_base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

func (s SourceConfig) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// BacktestConfig 控制数据与结果的落盘位置、并发度。
type BacktestConfig struct {
	DataDir       string `mapstructure:"data_dir"`
	ResultsDir    string `mapstructure:"results_dir"`
	ProfilesPath  string `mapstructure:"profiles_path"`
	MaxConcurrent int    `mapstructure:"max_concurrent"`
	Lookback      int    `mapstructure:"lookback"`
}

// StrategyParams 为一次回测的全部策略参数，运行开始后不可变。
type StrategyParams struct {
	RSIPeriod      int     `mapstructure:"rsi_period" json:"rsi_period"`
	MACDShort      int     `mapstructure:"macd_short" json:"macd_short"`
	MACDLong       int     `mapstructure:"macd_long" json:"macd_long"`
	MACDSignal     int     `mapstructure:"macd_signal" json:"macd_signal"`
	RSIOversold    float64 `mapstructure:"rsi_oversold" json:"rsi_oversold"`
	RSIOverbought  float64 `mapstructure:"rsi_overbought" json:"rsi_overbought"`
	RiskPerTrade   float64 `mapstructure:"risk_per_trade" json:"risk_per_trade"`
	MaxLoss        float64 `mapstructure:"max_loss" json:"max_loss"`
	MaxProfit      float64 `mapstructure:"max_profit" json:"max_profit"`
	InitialCash    float64 `mapstructure:"initial_cash" json:"initial_cash"`
	CommissionRate float64 `mapstructure:"commission_rate" json:"commission_rate"`
}

// MinBalance 为亏损熔断线，回测开始时一次性确定。
func (p StrategyParams) MinBalance() float64 {
	return p.InitialCash * (1 - p.MaxLoss)
}

// MaxBalance 为止盈熔断线。
func (p StrategyParams) MaxBalance() float64 {
	return p.InitialCash * (1 + p.MaxProfit)
}
