package conf

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/kr/pretty"
	"gopkg.in/validator.v2"
	"gopkg.in/yaml.v2"
)

var (
	conf *Config
	once sync.Once
)

type Config struct {
	Env        string
	Hertz      Hertz      `yaml:"hertz"`
	Postgres   Postgres   `yaml:"postgres"`
	Redis      Redis      `yaml:"redis"`
	Kafka      Kafka      `yaml:"kafka"`
	Commission Commission `yaml:"commission"`
	OrderQueue OrderQueue `yaml:"order_queue"`
	Registry   Registry   `yaml:"registry"`
}

type Postgres struct {
	DSN string `yaml:"dsn"`
	// ReplicaDSNs 只读副本，留空则读写同库
	ReplicaDSNs []string `yaml:"replica_dsns"`
}

type Redis struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	Username string `yaml:"username"`
	DB       int    `yaml:"db"`
}

type Kafka struct {
	Brokers            []string `yaml:"brokers"`
	TradeProfitTopic   string   `yaml:"trade_profit_topic"`
	CommissionTopic    string   `yaml:"commission_topic"`
	OrderDispatchTopic string   `yaml:"order_dispatch_topic"`
}

// Commission 分账比例配置，均以字符串小数表示
type Commission struct {
	PlatformFeeRate string `yaml:"platform_fee_rate"` // 默认 0.10
	FirstGenRate    string `yaml:"first_gen_rate"`    // 默认 0.20，基于毛利润
	SecondGenRate   string `yaml:"second_gen_rate"`   // 默认 0.10，基于毛利润
	AuditLogFile    string `yaml:"audit_log_file"`
}

type OrderQueue struct {
	MaxRetries      int `yaml:"max_retries"`       // 默认 3
	RetryDelaySecs  int `yaml:"retry_delay_secs"`  // 默认 5
	Workers         int `yaml:"workers"`           // ants 池大小，默认 64
	RateLimitPerSec int `yaml:"rate_limit_per_sec"`
}

type Registry struct {
	RegistryAddress []string `yaml:"registry_address"`
	ServiceName     string   `yaml:"service_name"`
	Username        string   `yaml:"username"`
	Password        string   `yaml:"password"`
}

type Hertz struct {
	Service         string `yaml:"service"`
	Address         string `yaml:"address"`
	EnablePprof     bool   `yaml:"enable_pprof"`
	EnableGzip      bool   `yaml:"enable_gzip"`
	EnableAccessLog bool   `yaml:"enable_access_log"`
	LogLevel        string `yaml:"log_level"`
	LogFileName     string `yaml:"log_file_name"`
	LogMaxSize      int    `yaml:"log_max_size"`
	LogMaxBackups   int    `yaml:"log_max_backups"`
	LogMaxAge       int    `yaml:"log_max_age"`
	WsPort          string `yaml:"ws_port"`
}

// GetConf gets configuration instance
func GetConf() *Config {
	once.Do(initConf)
	return conf
}

func initConf() {
	prefix := "conf"
	confFileRelPath := filepath.Join(prefix, filepath.Join(GetEnv(), "conf.yaml"))
	content, err := os.ReadFile(confFileRelPath)
	if err != nil {
		panic(err)
	}

	conf = new(Config)
	err = yaml.Unmarshal(content, conf)
	if err != nil {
		hlog.Error("parse yaml error - %v", err)
		panic(err)
	}
	if err := validator.Validate(conf); err != nil {
		hlog.Error("validate config error - %v", err)
		panic(err)
	}

	conf.Env = GetEnv()

	pretty.Printf("%+v\n", conf)
}

func GetEnv() string {
	e := os.Getenv("GO_ENV")
	if len(e) == 0 {
		return "test"
	}
	return e
}

func LogLevel() hlog.Level {
	level := GetConf().Hertz.LogLevel
	switch level {
	case "trace":
		return hlog.LevelTrace
	case "debug":
		return hlog.LevelDebug
	case "info":
		return hlog.LevelInfo
	case "notice":
		return hlog.LevelNotice
	case "warn":
		return hlog.LevelWarn
	case "error":
		return hlog.LevelError
	case "fatal":
		return hlog.LevelFatal
	default:
		return hlog.LevelInfo
	}
}
