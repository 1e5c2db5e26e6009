package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	Gateway GatewayConfig
	Session SessionConfig
	Typing  TypingConfig
	Log     LogConfig
	AI      AIConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	gw, err := loadGatewayConfig()
	if err != nil {
		return nil, err
	}

	session, err := loadSessionConfig()
	if err != nil {
		return nil, err
	}

	typing, err := loadTypingConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		Gateway: gw,
		Session: session,
		Typing:  typing,
		Log:     loadLogConfig(),
		AI:      ai,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	origins := splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*"))

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port, AllowedOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigins: origins}, nil
}

// GatewayConfig 描述远端推荐服务。Timeout 为 0 表示不设传输超时。
type GatewayConfig struct {
	BaseURL       string
	Timeout       time.Duration
	DeleteTimeout time.Duration
}

func loadGatewayConfig() (GatewayConfig, error) {
	baseURL := strings.TrimRight(getEnvOrDefault("GATEWAY_BASE_URL", "http://127.0.0.1:8000"), "/")
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return GatewayConfig{}, fmt.Errorf("invalid GATEWAY_BASE_URL value: %q", baseURL)
	}

	timeout, err := parseSecondsEnv("GATEWAY_TIMEOUT", 0)
	if err != nil {
		return GatewayConfig{}, err
	}

	deleteTimeout, err := parseSecondsEnv("GATEWAY_DELETE_TIMEOUT", 5)
	if err != nil {
		return GatewayConfig{}, err
	}
	if deleteTimeout == 0 {
		deleteTimeout = 5 * time.Second
	}

	return GatewayConfig{BaseURL: baseURL, Timeout: timeout, DeleteTimeout: deleteTimeout}, nil
}

// SessionConfig 描述本地会话的生命周期。IdleTimeout 为 0 时不清理。
type SessionConfig struct {
	IdleTimeout time.Duration
}

func loadSessionConfig() (SessionConfig, error) {
	minutes, err := parseOptionalIntEnv("SESSION_IDLE_MINUTES")
	if err != nil {
		return SessionConfig{}, err
	}
	idle := 60
	if minutes != nil {
		if *minutes < 0 {
			return SessionConfig{}, fmt.Errorf("invalid SESSION_IDLE_MINUTES value %d", *minutes)
		}
		idle = *minutes
	}
	return SessionConfig{IdleTimeout: time.Duration(idle) * time.Minute}, nil
}

// TypingConfig 控制流式输出时逐字显示的节奏。
type TypingConfig struct {
	Delay time.Duration
}

func loadTypingConfig() (TypingConfig, error) {
	ms, err := parseOptionalIntEnv("TYPING_DELAY_MS")
	if err != nil {
		return TypingConfig{}, err
	}
	delay := 30
	if ms != nil {
		if *ms < 0 {
			return TypingConfig{}, fmt.Errorf("invalid TYPING_DELAY_MS value %d", *ms)
		}
		delay = *ms
	}
	return TypingConfig{Delay: time.Duration(delay) * time.Millisecond}, nil
}

// LogConfig 描述日志级别与输出格式。
type LogConfig struct {
	Level  string
	Format string
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Level:  getEnvOrDefault("LOG_LEVEL", "info"),
		Format: getEnvOrDefault("LOG_FORMAT", "json"),
	}
}

// AIConfig 描述大模型相关配置，仅用于完成穿搭后的点评。
type AIConfig struct {
	APIKey           string
	AccessKey        string
	SecretKey        string
	Model            string
	BaseURL          string
	Region           string
	Temperature      *float64
	TopP             *float64
	MaxTokens        *int
	NarrationEnabled bool
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	narration, err := parseBoolEnv("AI_NARRATION_ENABLED", true)
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:           strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:        strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:        strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:            strings.TrimSpace(os.Getenv("Model")),
		BaseURL:          getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:           getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:      temperature,
		TopP:             topP,
		MaxTokens:        maxTokens,
		NarrationEnabled: narration,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseSecondsEnv(key string, defaultSeconds int) (time.Duration, error) {
	seconds, err := parseOptionalIntEnv(key)
	if err != nil {
		return 0, err
	}
	value := defaultSeconds
	if seconds != nil {
		value = *seconds
	}
	if value < 0 {
		return 0, fmt.Errorf("invalid %s value %d", key, value)
	}
	return time.Duration(value) * time.Second, nil
}

func splitList(raw string) []string {
	var items []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}
