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
	Server   ServerConfig   `yaml:"server"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	CORS     CORSConfig     `yaml:"cors"`
	Cookie   CookieConfig   `yaml:"cookie"`
	Storage  StorageConfig  `yaml:"storage"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig HTTP Server 配置
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Mode string `yaml:"mode"`
	// MaxBodyBytes 普通请求体上限，头像上传单独限制
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
	// ShutdownTimeout 优雅关闭超时（秒）
	ShutdownTimeout int `yaml:"shutdown_timeout"`
}

// GetHTTPAddr 获取 HTTP Server 地址
func (s *ServerConfig) GetHTTPAddr() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

func (s *ServerConfig) GetShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeout) * time.Second
}

// GRPCConfig gRPC Client 配置
type GRPCConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// Timeout 单次调用超时（毫秒）
	Timeout int `yaml:"timeout"`
}

// GetAddr 获取 gRPC Server 地址
func (g *GRPCConfig) GetAddr() string {
	return g.Host + ":" + strconv.Itoa(g.Port)
}

func (g *GRPCConfig) GetTimeout() time.Duration {
	return time.Duration(g.Timeout) * time.Millisecond
}

// CORSConfig 跨域白名单
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// CookieConfig auth_token Cookie
type CookieConfig struct {
	Name   string `yaml:"name"`
	MaxAge int    `yaml:"max_age"` // 秒，与 Session 有效期一致
	Secure bool   `yaml:"secure"`
}

// StorageConfig 本地对象存储
type StorageConfig struct {
	Dir       string `yaml:"dir"`
	URLPrefix string `yaml:"url_prefix"`
	// MaxAvatarBytes 头像大小上限
	MaxAvatarBytes int64 `yaml:"max_avatar_bytes"`
}

// RealtimeConfig WebSocket 配置
type RealtimeConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	// Broker local | redis
	Broker          string `yaml:"broker"`
	MaxFrameBytes   int64  `yaml:"max_frame_bytes"`
	SendBuffer      int    `yaml:"send_buffer"`
	RateBurst       int    `yaml:"rate_burst"`
	RateRefillMS    int    `yaml:"rate_refill_ms"`
	DefaultTimezone string `yaml:"default_timezone"`
}

func (r *RealtimeConfig) GetRateRefill() time.Duration {
	return time.Duration(r.RateRefillMS) * time.Millisecond
}

// Location 默认时区
func (r *RealtimeConfig) Location() (*time.Location, error) {
	if r.DefaultTimezone == "" || r.DefaultTimezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(r.DefaultTimezone)
	if err != nil {
		return nil, fmt.Errorf("无效的时区 %q: %w", r.DefaultTimezone, err)
	}
	return loc, nil
}

// RedisConfig 仅在 realtime.broker 为 redis 时使用
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
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
	if _, err := config.Realtime.Location(); err != nil {
		return nil, err
	}
	if b := config.Realtime.Broker; b != "local" && b != "redis" {
		return nil, fmt.Errorf("不支持的 broker: %s", b)
	}

	globalConfig = &config
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.MaxBodyBytes <= 0 {
		c.Server.MaxBodyBytes = 1 << 20
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10
	}
	if c.GRPC.Host == "" {
		c.GRPC.Host = "127.0.0.1"
	}
	if c.GRPC.Port == 0 {
		c.GRPC.Port = 9090
	}
	if c.GRPC.Timeout <= 0 {
		c.GRPC.Timeout = 3000
	}
	if c.Cookie.Name == "" {
		c.Cookie.Name = "auth_token"
	}
	if c.Cookie.MaxAge <= 0 {
		c.Cookie.MaxAge = 7200
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = "./uploads"
	}
	if c.Storage.URLPrefix == "" {
		c.Storage.URLPrefix = "/uploads"
	}
	if c.Storage.MaxAvatarBytes <= 0 {
		c.Storage.MaxAvatarBytes = 5 << 20
	}
	if c.Realtime.Broker == "" {
		c.Realtime.Broker = "local"
	}
	if c.Realtime.MaxFrameBytes <= 0 {
		c.Realtime.MaxFrameBytes = 8 << 10
	}
	if c.Realtime.SendBuffer <= 0 {
		c.Realtime.SendBuffer = 256
	}
	if c.Realtime.RateBurst <= 0 {
		c.Realtime.RateBurst = 5
	}
	if c.Realtime.RateRefillMS <= 0 {
		c.Realtime.RateRefillMS = 1000
	}
	if c.Redis.Host == "" {
		c.Redis.Host = "127.0.0.1"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
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
