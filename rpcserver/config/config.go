package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 全局配置
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Snowflake SnowflakeConfig `yaml:"snowflake"`
	Login     LoginConfig     `yaml:"login"`
	Chat      ChatConfig      `yaml:"chat"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig gRPC 服务配置
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Mode string `yaml:"mode"`
}

// GetTCPAddr 获取监听地址
func (s *ServerConfig) GetTCPAddr() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

// MetricsConfig Prometheus 指标端口，Addr 为空时不启动
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string `yaml:"driver"` // mysql, postgres, sqlite3
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	Database        string `yaml:"database"` // sqlite3 时为文件路径
	Charset         string `yaml:"charset"`
	SSLMode         string `yaml:"ssl_mode"`
	AutoMigrate     bool   `yaml:"auto_migrate"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"` // 秒
}

// GetDSN 按驱动拼接连接字符串，时间统一按 UTC 存取
func (d *DatabaseConfig) GetDSN() string {
	switch d.Driver {
	case "postgres", "pgsql":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			d.Host, d.Port, d.Username, d.Password, d.Database, d.SSLMode)
	case "sqlite3", "sqlite":
		return d.Database + "?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=true&loc=UTC",
			d.Username, d.Password, d.Host, d.Port, d.Database, d.Charset)
	}
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Password     string `yaml:"password"`
	DB           int    `yaml:"db"`
	PoolSize     int    `yaml:"pool_size"`
	MinIdleConns int    `yaml:"min_idle_conns"`
	MaxRetries   int    `yaml:"max_retries"`
	DialTimeout  int    `yaml:"dial_timeout"`  // 秒
	ReadTimeout  int    `yaml:"read_timeout"`  // 秒
	WriteTimeout int    `yaml:"write_timeout"` // 秒
}

// GetAddr 获取Redis地址
func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (r *RedisConfig) GetDialTimeout() time.Duration {
	return time.Duration(r.DialTimeout) * time.Second
}

func (r *RedisConfig) GetReadTimeout() time.Duration {
	return time.Duration(r.ReadTimeout) * time.Second
}

func (r *RedisConfig) GetWriteTimeout() time.Duration {
	return time.Duration(r.WriteTimeout) * time.Second
}

// SnowflakeConfig 雪花ID配置
type SnowflakeConfig struct {
	MachineID int64 `yaml:"machine_id"`
}

// LoginConfig 登录失败限制：Window 秒内失败 MaxAttempts 次后锁定到窗口结束
type LoginConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
	Window      int `yaml:"window"` // 秒
}

func (l *LoginConfig) GetWindow() time.Duration {
	return time.Duration(l.Window) * time.Second
}

// ChatConfig 聊天业务配置
type ChatConfig struct {
	// Timezone 判断“新的一天”所用的时区（IANA 名称），空值为服务器本地时区
	Timezone         string `yaml:"timezone"`
	MaxMessageLength int    `yaml:"max_message_length"`
	DefaultPageSize  int    `yaml:"default_page_size"`
	MaxPageSize      int    `yaml:"max_page_size"`
}

// Location 解析时区
func (c *ChatConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("无效的时区 %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// LogConfig 日志配置
type LogConfig struct {
	Level    string `yaml:"level"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
	Format   string `yaml:"format"`
}

var globalConfig *Config

// Load 加载配置文件，${VAR} 从环境变量（含 .env）展开
func Load(configPath string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	config.applyDefaults()
	if _, err := config.Chat.Location(); err != nil {
		return nil, err
	}

	globalConfig = &config
	return &config, nil
}

// applyDefaults 填充缺省值
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 9090
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite3"
	}
	if c.Database.Driver == "sqlite3" && c.Database.Database == "" {
		c.Database.Database = "./data/chat_group.db"
	}
	if c.Database.Charset == "" {
		c.Database.Charset = "utf8mb4"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Redis.Host == "" {
		c.Redis.Host = "127.0.0.1"
	}
	if c.Login.MaxAttempts <= 0 {
		c.Login.MaxAttempts = 5
	}
	if c.Login.Window <= 0 {
		c.Login.Window = 900
	}
	if c.Chat.MaxMessageLength <= 0 {
		c.Chat.MaxMessageLength = 2000
	}
	if c.Chat.DefaultPageSize <= 0 {
		c.Chat.DefaultPageSize = 20
	}
	if c.Chat.MaxPageSize <= 0 {
		c.Chat.MaxPageSize = 100
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		panic("配置未初始化，请先调用 Load()")
	}
	return globalConfig
}

// GetDatabase 获取数据库配置
func GetDatabase() *DatabaseConfig {
	return &Get().Database
}

// GetChat 获取聊天业务配置
func GetChat() *ChatConfig {
	return &Get().Chat
}
