package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	"github.com/zhouzirui/moodmate/backend/internal/service/llm/groq"
)

const (
	ProviderGroq = "groq"
	ProviderArk  = "ark"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig
	AI     AIConfig
	Mood   MoodConfig
	Log    LogConfig
}

// Load 从环境变量加载配置；若设置了 MOODMATE_CONFIG，则先读取该 TOML 文件作为默认值。
func Load() (*Config, error) {
	file, err := loadFile(strings.TrimSpace(os.Getenv("MOODMATE_CONFIG")))
	if err != nil {
		return nil, err
	}

	server, err := loadServerConfig(file)
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig(file)
	if err != nil {
		return nil, err
	}

	mood, err := loadMoodConfig(file)
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Mood: mood, Log: loadLogConfig(file)}, nil
}

// fileConfig mirrors the optional TOML file. Every field is a default that the environment can override.
type fileConfig struct {
	Port string `toml:"port"`
	AI   struct {
		Provider string `toml:"provider"`
		APIKey   string `toml:"api_key"`
		BaseURL  string `toml:"base_url"`
		Model    string `toml:"model"`
		Ark      struct {
			APIKey      string   `toml:"api_key"`
			AccessKey   string   `toml:"access_key"`
			SecretKey   string   `toml:"secret_key"`
			Model       string   `toml:"model"`
			BaseURL     string   `toml:"base_url"`
			Region      string   `toml:"region"`
			Temperature *float64 `toml:"temperature"`
			TopP        *float64 `toml:"top_p"`
			MaxTokens   *int     `toml:"max_tokens"`
		} `toml:"ark"`
	} `toml:"ai"`
	Mood struct {
		Source       string `toml:"source"`
		HistoryLimit int    `toml:"history_limit"`
	} `toml:"mood"`
	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`
}

func loadFile(path string) (fileConfig, error) {
	var file fileConfig
	if path == "" {
		return file, nil
	}
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return fileConfig{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return file, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig(file fileConfig) (ServerConfig, error) {
	port := getEnvOrDefault("PORT", strings.TrimSpace(file.Port))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig 描述补全服务相关配置。
type AIConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	Ark      ArkConfig
}

// ArkConfig 描述火山方舟模型配置。
type ArkConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// NewChatModel 使用配置创建一个模型实例。Groq 凭证不做预校验，缺失时在首次调用时才会失败。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	switch c.Provider {
	case ProviderGroq:
		return groq.NewClient(groq.Config{
			APIKey:  c.APIKey,
			BaseURL: c.BaseURL,
			Model:   c.Model,
		}), nil
	case ProviderArk:
		return c.Ark.newChatModel(ctx)
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", c.Provider)
	}
}

// ModelName 返回当前提供方实际使用的模型标识。
func (c AIConfig) ModelName() string {
	if c.Provider == ProviderArk {
		return c.Ark.Model
	}
	return c.Model
}

func (c ArkConfig) newChatModel(ctx context.Context) (model.ChatModel, error) {
	if c.Model == "" || (c.APIKey == "" && (c.AccessKey == "" || c.SecretKey == "")) {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + ARK_MODEL 或 AK/SK 组合")
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

	return ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	})
}

func loadAIConfig(file fileConfig) (AIConfig, error) {
	provider := strings.ToLower(getEnvOrDefault("LLM_PROVIDER", file.AI.Provider))
	if provider == "" {
		provider = ProviderGroq
	}
	if provider != ProviderGroq && provider != ProviderArk {
		return AIConfig{}, fmt.Errorf("invalid LLM_PROVIDER value %q", provider)
	}

	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}
	if temperature == nil {
		temperature = file.AI.Ark.Temperature
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}
	if topP == nil {
		topP = file.AI.Ark.TopP
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}
	if maxTokens == nil {
		maxTokens = file.AI.Ark.MaxTokens
	}

	return AIConfig{
		Provider: provider,
		APIKey:   getEnvOrDefault("GROQ_API_KEY", file.AI.APIKey),
		BaseURL:  getEnvOrDefault("GROQ_BASE_URL", orDefault(file.AI.BaseURL, groq.DefaultBaseURL)),
		Model:    getEnvOrDefault("MOODMATE_MODEL", orDefault(file.AI.Model, groq.DefaultModel)),
		Ark: ArkConfig{
			APIKey:      getEnvOrDefault("ARK_API_KEY", file.AI.Ark.APIKey),
			AccessKey:   getEnvOrDefault("ARK_ACCESS_KEY", file.AI.Ark.AccessKey),
			SecretKey:   getEnvOrDefault("ARK_SECRET_KEY", file.AI.Ark.SecretKey),
			Model:       getEnvOrDefault("ARK_MODEL", file.AI.Ark.Model),
			BaseURL:     getEnvOrDefault("ARK_BASE_URL", orDefault(file.AI.Ark.BaseURL, "https://ark.cn-beijing.volces.com/api/v3")),
			Region:      getEnvOrDefault("ARK_REGION", orDefault(file.AI.Ark.Region, "cn-beijing")),
			Temperature: temperature,
			TopP:        topP,
			MaxTokens:   maxTokens,
		},
	}, nil
}

// MoodConfig 描述心情图表配置。
type MoodConfig struct {
	Source       string
	HistoryLimit int
}

func loadMoodConfig(file fileConfig) (MoodConfig, error) {
	historyLimit := 6
	if file.Mood.HistoryLimit > 0 {
		historyLimit = file.Mood.HistoryLimit
	}
	if override, err := parseOptionalIntEnv("MOOD_HISTORY_LIMIT"); err != nil {
		return MoodConfig{}, err
	} else if override != nil {
		if *override < 1 {
			historyLimit = 1
		} else {
			historyLimit = *override
		}
	}

	return MoodConfig{
		Source:       strings.ToLower(getEnvOrDefault("MOOD_SOURCE", orDefault(file.Mood.Source, "random"))),
		HistoryLimit: historyLimit,
	}, nil
}

// LogConfig 描述日志配置。
type LogConfig struct {
	Level  string
	Format string
}

func loadLogConfig(file fileConfig) LogConfig {
	return LogConfig{
		Level:  getEnvOrDefault("LOG_LEVEL", orDefault(file.Log.Level, "info")),
		Format: getEnvOrDefault("LOG_FORMAT", orDefault(file.Log.Format, "text")),
	}
}

func orDefault(value, defaultValue string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return defaultValue
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return strings.TrimSpace(defaultValue)
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
