// Package config 负责加载和管理应用程序的配置。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"edi-assistant-go/internal/apperrors"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Tika      TikaConfig      `mapstructure:"tika"`
	MinIO     MinIOConfig     `mapstructure:"minio"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Index     IndexConfig     `mapstructure:"index"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Audit     AuditConfig     `mapstructure:"audit"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// DatabaseConfig 存储所有数据库连接的配置。MySQL 和 Redis 均为可选项，留空即不启用。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig 存储 Kafka 相关的配置（问答审计事件）。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// TikaConfig 存储 Tika 服务器相关的配置。
type TikaConfig struct {
	ServerURL string `mapstructure:"server_url"`
}

// MinIOConfig 存储 MinIO 对象存储的配置，用于分发索引产物。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
	ArtifactPrefix  string `mapstructure:"artifact_prefix"`
}

// EmbeddingConfig 存储 Embedding 模型相关的配置。
type EmbeddingConfig struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	Model          string `mapstructure:"model"`
	Dimensions     int    `mapstructure:"dimensions"`
	BatchSize      int    `mapstructure:"batch_size"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	APIKey         string              `mapstructure:"api_key"`
	BaseURL        string              `mapstructure:"base_url"`
	Model          string              `mapstructure:"model"`
	TimeoutSeconds int                 `mapstructure:"timeout_seconds"`
	Generation     LLMGenerationConfig `mapstructure:"generation"`
	Prompt         LLMPromptConfig     `mapstructure:"prompt"`
}

// LLMGenerationConfig 配置生成相关参数。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// LLMPromptConfig 配置系统提示（可选，留空使用内置规则）。
type LLMPromptConfig struct {
	Rules        string `mapstructure:"rules"`
	NoResultText string `mapstructure:"no_result_text"`
}

// IngestConfig 存储离线构建索引的参数。
type IngestConfig struct {
	DataDir      string `mapstructure:"data_dir"`
	ChunkSize    int    `mapstructure:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap"`
	MaxChunks    int    `mapstructure:"max_chunks"`
}

// IndexConfig 指定成对的索引产物路径与相似度度量。
type IndexConfig struct {
	IndexPath string `mapstructure:"index_path"`
	DocsPath  string `mapstructure:"docs_path"`
	Metric    string `mapstructure:"metric"`
}

// RetrievalConfig 存储在线检索参数。
type RetrievalConfig struct {
	TopK          int     `mapstructure:"top_k"`
	MinScore      float64 `mapstructure:"min_score"`
	MaxQueryChars int     `mapstructure:"max_query_chars"`
}

// RateLimitConfig 存储按客户端限流的配额。
type RateLimitConfig struct {
	Requests      int `mapstructure:"requests"`
	WindowSeconds int `mapstructure:"window_seconds"`
}

// AuditConfig 存储问答审计记录的配置。
type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Salt    string `mapstructure:"salt"`
	Buffer  int    `mapstructure:"buffer"`
}

// 原始部署中使用的环境变量名，继续兼容。
var legacyEnv = map[string]string{
	"embedding.api_key":         "OPENAI_API_KEY",
	"llm.api_key":               "OPENAI_API_KEY",
	"embedding.model":           "EMBED_MODEL",
	"embedding.batch_size":      "EMBED_BATCH_SIZE",
	"embedding.timeout_seconds": "OPENAI_TIMEOUT",
	"ingest.chunk_size":         "CHUNK_SIZE",
	"ingest.chunk_overlap":      "CHUNK_OVERLAP",
	"ingest.max_chunks":         "MAX_CHUNKS",
	"ingest.data_dir":           "DATA_DIR",
	"retrieval.min_score":       "MIN_SIMILARITY",
	"index.docs_path":           "DOCS_PATH",
	"index.index_path":          "FAISS_PATH",
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Errorf("加载配置失败: %w", err))
	}
	Conf = *cfg
}

// Load 读取配置文件（不存在时仅使用默认值与环境变量），并完成校验。
func Load(configPath string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("EDI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, "EDI_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("绑定环境变量 %s 失败: %w", env, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("读取配置文件失败: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.allowed_origins", []string{
		"https://elelohap.github.io",
		"https://cde.nus.edu.sg",
		"http://127.0.0.1:8080",
		"http://localhost:8080",
	})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "")
	v.SetDefault("database.mysql.dsn", "")
	v.SetDefault("database.redis.addr", "")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "edi-ask-events")
	v.SetDefault("kafka.group_id", "edi-assistant-go-consumer")
	v.SetDefault("tika.server_url", "")
	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.access_key_id", "")
	v.SetDefault("minio.secret_access_key", "")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket_name", "edi-artifacts")
	v.SetDefault("minio.artifact_prefix", "index/latest")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.base_url", "https://api.openai.com/v1")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.dimensions", 0)
	v.SetDefault("embedding.batch_size", 64)
	v.SetDefault("embedding.timeout_seconds", 60)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.timeout_seconds", 30)
	v.SetDefault("llm.generation.temperature", 0.3)
	v.SetDefault("llm.generation.top_p", 0)
	v.SetDefault("llm.generation.max_tokens", 800)
	v.SetDefault("llm.prompt.rules", "")
	v.SetDefault("llm.prompt.no_result_text", "")
	v.SetDefault("ingest.data_dir", "data")
	v.SetDefault("ingest.chunk_size", 900)
	v.SetDefault("ingest.chunk_overlap", 150)
	v.SetDefault("ingest.max_chunks", 0)
	v.SetDefault("index.index_path", "faiss.index")
	v.SetDefault("index.docs_path", "docs.json")
	v.SetDefault("index.metric", "ip")
	v.SetDefault("retrieval.top_k", 10)
	v.SetDefault("retrieval.min_score", 0.2)
	v.SetDefault("retrieval.max_query_chars", 4000)
	v.SetDefault("rate_limit.requests", 10)
	v.SetDefault("rate_limit.window_seconds", 60)
	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.salt", "")
	v.SetDefault("audit.buffer", 256)
}

// Validate 校验配置中相互约束的参数，不合法时返回 ConfigurationError。
func (c *Config) Validate() error {
	if c.Ingest.ChunkSize <= 0 {
		return fmt.Errorf("%w: ingest.chunk_size 必须大于 0, 当前为 %d", apperrors.ErrConfiguration, c.Ingest.ChunkSize)
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("%w: ingest.chunk_overlap (%d) 必须小于 chunk_size (%d)", apperrors.ErrConfiguration, c.Ingest.ChunkOverlap, c.Ingest.ChunkSize)
	}
	if c.Embedding.BatchSize < 1 || c.Embedding.BatchSize > 64 {
		return fmt.Errorf("%w: embedding.batch_size 必须在 1..64 之间, 当前为 %d", apperrors.ErrConfiguration, c.Embedding.BatchSize)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: retrieval.top_k 必须大于 0", apperrors.ErrConfiguration)
	}
	switch c.Index.Metric {
	case "ip", "l2":
	default:
		return fmt.Errorf("%w: 未知的 index.metric '%s'", apperrors.ErrConfiguration, c.Index.Metric)
	}
	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("%w: rate_limit.requests 必须大于 0, 当前为 %d", apperrors.ErrConfiguration, c.RateLimit.Requests)
	}
	if c.RateLimit.WindowSeconds <= 0 {
		return fmt.Errorf("%w: rate_limit.window_seconds 必须大于 0, 当前为 %d", apperrors.ErrConfiguration, c.RateLimit.WindowSeconds)
	}
	return nil
}
