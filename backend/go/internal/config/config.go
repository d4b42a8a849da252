package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// IndexConfig 定义了 Milvus 集合中向量索引的配置。
type IndexConfig struct {
	IndexType string                 `yaml:"indexType"` // 索引类型 (例如: "HNSW", "IVF_FLAT", "AUTOINDEX")
	Params    map[string]interface{} `yaml:"params"`    // 索引参数 (例如: {"M": 16, "efConstruction": 200})
	// SearchParams 查询时使用的参数 (例如: {"ef": 128} 或 {"nprobe": 16})
	SearchParams map[string]interface{} `yaml:"searchParams"`
}

// MilvusConfig 定义了 Milvus 数据库的连接和集合配置。
// 度量类型固定为内积 (IP)，维度取自 embedding.dimension。
type MilvusConfig struct {
	Address        string      `yaml:"address"`
	Username       string      `yaml:"username"`
	Password       string      `yaml:"password"`
	CollectionName string      `yaml:"collectionName"`
	Description    string      `yaml:"description"`
	Index          IndexConfig `yaml:"index"`
}

// RedisConfig 定义了 Redis 数据库的连接配置。
type RedisConfig struct {
	Address  string `yaml:"address"`  // Redis 服务器地址 (例如: "localhost:6379")
	Password string `yaml:"password"` // Redis 密码
	DB       int    `yaml:"db"`       // Redis 数据库编号
}

// MySQLConfig 定义了 MySQL 数据库的连接配置。
type MySQLConfig struct {
	Address         string `yaml:"address"`         // MySQL 服务器地址
	Username        string `yaml:"username"`        // 用户名
	Password        string `yaml:"password"`        // 密码
	Database        string `yaml:"database"`        // 数据库名称
	MaxOpenConns    int    `yaml:"maxOpenConns"`    // 最大打开连接数
	MaxIdleConns    int    `yaml:"maxIdleConns"`    // 最大空闲连接数
	ConnMaxLifetime int    `yaml:"connMaxLifetime"` // 连接最大生命周期 (秒)
}

// MinIOConfig 定义了 MinIO 对象存储的连接配置。
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`  // MinIO 服务端点
	AccessKey string `yaml:"accessKey"` // 访问密钥
	SecretKey string `yaml:"secretKey"` // Secret 密钥
	Bucket    string `yaml:"bucket"`    // 存储桶名称
	Secure    bool   `yaml:"secure"`    // 是否使用HTTPS
}

// MongoConfig 定义了 MongoDB 数据库的连接配置。
type MongoConfig struct {
	Address    string `yaml:"address"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"` // 查询历史集合
}

// EtcdConfig 定义了 Etcd 服务发现的连接配置。
type EtcdConfig struct {
	Endpoints []string `yaml:"endpoints"` // Etcd 节点地址列表
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	LeaseTTL  int64    `yaml:"leaseTTL"` // 注册租约 (秒)
}

// KafkaConfig 定义了 Kafka 消息队列的连接配置。
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"` // Kafka Broker 地址列表
	Topic   string   `yaml:"topic"`   // 文档事件主题
}

// DatabaseConfigs 包含所有外部存储的配置。
// 可选组件 (Redis、MongoDB、Etcd、Kafka) 的地址为空时不启用。
type DatabaseConfigs struct {
	VectorDriver string       `yaml:"vectorDriver"` // "milvus" 或 "memory"
	BlobDriver   string       `yaml:"blobDriver"`   // "minio" (MinIO + MySQL) 或 "memory"
	Milvus       MilvusConfig `yaml:"milvus"`
	Redis        RedisConfig  `yaml:"redis"`
	MySQL        MySQLConfig  `yaml:"mysql"`
	MinIO        MinIOConfig  `yaml:"minio"`
	MongoDB      MongoConfig  `yaml:"mongodb"`
	Etcd         EtcdConfig   `yaml:"etcd"`
	Kafka        KafkaConfig  `yaml:"kafka"`
}

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"` // 运行环境 (例如: "development", "production")
}

// ServerConfig HTTP 服务配置。
type ServerConfig struct {
	Address         string   `yaml:"address"`         // 监听地址, 例如 ":8000"
	AdvertiseAddr   string   `yaml:"advertiseAddr"`   // 注册到 etcd 的地址
	AllowedOrigins  []string `yaml:"allowedOrigins"`  // CORS 白名单
	MaxUploadMB     int64    `yaml:"maxUploadMB"`     // 上传文件大小上限
	ShutdownTimeout string   `yaml:"shutdownTimeout"` // 例如 "10s"
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level  string `yaml:"level"`  // 日志级别 (例如: "info", "debug", "warn", "error")
	Format string `yaml:"format"` // "json" 或 "text"
}

// ProviderConfig 是单个模型提供商的连接信息。
type ProviderConfig struct {
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseURL"`
	Model   string `yaml:"model"`
}

// LLMConfig 包含了不同LLM提供商的配置。
type LLMConfig struct {
	Provider    string         `yaml:"provider"` // "huggingface", "openai", "ollama", "gemini"
	HuggingFace ProviderConfig `yaml:"huggingface"`
	OpenAI      ProviderConfig `yaml:"openai"`
	Ollama      ProviderConfig `yaml:"ollama"`
	Gemini      ProviderConfig `yaml:"gemini"`
}

// EmbeddingConfig 包含了不同Embedding提供商的配置。
type EmbeddingConfig struct {
	Provider    string         `yaml:"provider"`  // "huggingface", "openai", "ollama", "gemini"
	Dimension   int            `yaml:"dimension"` // 向量维度，必须与索引一致
	BatchSize   int            `yaml:"batchSize"`
	CacheSize   int            `yaml:"cacheSize"` // 查询向量 LRU 缓存容量，0 表示关闭
	HuggingFace ProviderConfig `yaml:"huggingface"`
	OpenAI      ProviderConfig `yaml:"openai"`
	Ollama      ProviderConfig `yaml:"ollama"`
	Gemini      ProviderConfig `yaml:"gemini"`
}

// LoaderConfig 文档解析配置。
type LoaderConfig struct {
	ScratchDir    string   `yaml:"scratchDir"`    // 临时文件目录，默认系统临时目录
	ExtraFormats  []string `yaml:"extraFormats"`  // 额外启用的格式，例如 [".xlsx", ".md"]
	UnidocLicense string   `yaml:"unidocLicense"` // unioffice 授权，为空时使用内置 docx 解析
	ScratchMaxAge string   `yaml:"scratchMaxAge"` // 启动时清理超过该时长的残留临时文件
}

// Pre-delete failure policies.
const (
	PreDeleteContinue = "continue"
	PreDeleteAbort    = "abort"
)

// Document modes.
const (
	DocumentModeSingle = "single"
	DocumentModeMulti  = "multi"
)

// RAGConfig 检索增强生成的核心参数。
type RAGConfig struct {
	ChunkSize       int      `yaml:"chunkSize"`
	ChunkOverlap    int      `yaml:"chunkOverlap"`
	TopK            int      `yaml:"topK"`
	MaxTokens       int      `yaml:"maxTokens"`
	Stop            []string `yaml:"stop"`
	IngestTimeout   string   `yaml:"ingestTimeout"`
	PreDeletePolicy string   `yaml:"preDeletePolicy"` // "continue" 或 "abort"
	DocumentMode    string   `yaml:"documentMode"`    // "single" 或 "multi"
	// ConcurrentUploads 为 true 时不再串行化上传，替换流程的一致性由调用方自行保证
	ConcurrentUploads bool `yaml:"concurrentUploads"`
}

// MiddlewareConfig 包含所有中间件的配置。
type MiddlewareConfig struct {
	RateLimiter    RateLimiterConfig    `yaml:"rateLimiter"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// RateLimiterConfig 定义了限流器的配置。
type RateLimiterConfig struct {
	Enabled     bool              `yaml:"enabled"`
	Algorithm   string            `yaml:"algorithm"` // 支持: "slidingLog", "tokenBucket"
	SlidingLog  SlidingLogConfig  `yaml:"slidingLog"`
	TokenBucket TokenBucketConfig `yaml:"tokenBucket"`
}

// SlidingLogConfig 定义了滑动窗口日志算法的配置。
type SlidingLogConfig struct {
	Limit  int    `yaml:"limit"`
	Window string `yaml:"window"` // 例如: "1m", "30s"
}

// TokenBucketConfig 定义了令牌桶算法的配置。
type TokenBucketConfig struct {
	Rate     float64 `yaml:"rate"` // 每秒速率
	Capacity int     `yaml:"capacity"`
}

// CircuitBreakerConfig 定义了熔断器的配置。
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failureThreshold"`
	SuccessThreshold uint32 `yaml:"successThreshold"`
	Timeout          string `yaml:"timeout"` // 例如: "30s"
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App        AppInfo          `yaml:"app"`
	Server     ServerConfig     `yaml:"server"`
	Logger     LoggerConfig     `yaml:"logger"`
	LLM        LLMConfig        `yaml:"llm"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Loader     LoaderConfig     `yaml:"loader"`
	RAG        RAGConfig        `yaml:"rag"`
	Databases  DatabaseConfigs  `yaml:"databases"`
	Middleware MiddlewareConfig `yaml:"middleware"`
}

// LoadConfig 从指定路径加载 YAML 配置文件。
// 同目录或工作目录下的 .env 会先被加载，随后环境变量覆盖密钥类字段，最后补齐默认值。
// 不做校验，调用方需要再调用 Validate。
func LoadConfig(path string) (*AppConfig, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
	}
	return Parse(yamlFile)
}

// Parse 解析 YAML 内容并应用环境变量和默认值。
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

// envOverrides 把环境变量映射到配置字段，环境变量非空时覆盖 YAML 中的值。
func (c *AppConfig) envOverrides() map[string]*string {
	return map[string]*string{
		"HUGGINGFACEHUB_API_TOKEN": &c.LLM.HuggingFace.APIKey,
		"OPENAI_API_KEY":           &c.LLM.OpenAI.APIKey,
		"GEMINI_API_KEY":           &c.LLM.Gemini.APIKey,
		"OLLAMA_HOST":              &c.LLM.Ollama.BaseURL,
		"MILVUS_ADDRESS":           &c.Databases.Milvus.Address,
		"MILVUS_COLLECTION":        &c.Databases.Milvus.CollectionName,
		"MYSQL_ADDRESS":            &c.Databases.MySQL.Address,
		"MYSQL_PASSWORD":           &c.Databases.MySQL.Password,
		"MINIO_ENDPOINT":           &c.Databases.MinIO.Endpoint,
		"MINIO_ACCESS_KEY":         &c.Databases.MinIO.AccessKey,
		"MINIO_SECRET_KEY":         &c.Databases.MinIO.SecretKey,
		"REDIS_ADDRESS":            &c.Databases.Redis.Address,
		"MONGODB_ADDRESS":          &c.Databases.MongoDB.Address,
		"UNIDOC_LICENSE_API_KEY":   &c.Loader.UnidocLicense,
		"DOCQA_SERVER_ADDRESS":     &c.Server.Address,
	}
}

func (c *AppConfig) applyEnv() {
	for name, field := range c.envOverrides() {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			*field = v
		}
	}
	// embedding 与 llm 共用 HuggingFace/OpenAI/Gemini 的密钥，未单独配置时沿用
	if c.Embedding.HuggingFace.APIKey == "" {
		c.Embedding.HuggingFace.APIKey = c.LLM.HuggingFace.APIKey
	}
	if c.Embedding.OpenAI.APIKey == "" {
		c.Embedding.OpenAI.APIKey = c.LLM.OpenAI.APIKey
	}
	if c.Embedding.Gemini.APIKey == "" {
		c.Embedding.Gemini.APIKey = c.LLM.Gemini.APIKey
	}
	if c.Embedding.Ollama.BaseURL == "" {
		c.Embedding.Ollama.BaseURL = c.LLM.Ollama.BaseURL
	}
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}

func (c *AppConfig) applyDefaults() {
	setDefault(&c.App.Name, "docqa")
	setDefault(&c.Server.Address, ":8000")
	setDefault(&c.Server.MaxUploadMB, 32)
	setDefault(&c.Server.ShutdownTimeout, "10s")
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:3000"}
	}
	setDefault(&c.Logger.Level, "info")
	setDefault(&c.Logger.Format, "json")

	setDefault(&c.LLM.Provider, "huggingface")
	setDefault(&c.LLM.HuggingFace.BaseURL, "https://router.huggingface.co/v1")
	setDefault(&c.LLM.HuggingFace.Model, "meta-llama/Llama-3.1-8B-Instruct")
	setDefault(&c.LLM.Ollama.BaseURL, "http://localhost:11434")

	setDefault(&c.Embedding.Provider, "huggingface")
	setDefault(&c.Embedding.Dimension, 384)
	setDefault(&c.Embedding.BatchSize, 32)
	setDefault(&c.Embedding.HuggingFace.BaseURL, "https://router.huggingface.co/hf-inference/models/")
	setDefault(&c.Embedding.HuggingFace.Model, "sentence-transformers/all-MiniLM-L6-v2")
	setDefault(&c.Embedding.Ollama.BaseURL, "http://localhost:11434")
	setDefault(&c.Embedding.Ollama.Model, "all-minilm")

	setDefault(&c.Loader.ScratchMaxAge, "1h")

	setDefault(&c.RAG.ChunkSize, 1000)
	setDefault(&c.RAG.ChunkOverlap, 100)
	setDefault(&c.RAG.TopK, 79)
	setDefault(&c.RAG.MaxTokens, 550)
	if len(c.RAG.Stop) == 0 {
		c.RAG.Stop = []string{"<|eot_id|>"}
	}
	setDefault(&c.RAG.IngestTimeout, "2m")
	setDefault(&c.RAG.PreDeletePolicy, PreDeleteContinue)
	setDefault(&c.RAG.DocumentMode, DocumentModeSingle)

	setDefault(&c.Databases.VectorDriver, "milvus")
	setDefault(&c.Databases.BlobDriver, "minio")
	setDefault(&c.Databases.Milvus.CollectionName, "docqa_chunks")
	setDefault(&c.Databases.Milvus.Index.IndexType, "HNSW")
	setDefault(&c.Databases.MinIO.Bucket, "docqa-documents")
	setDefault(&c.Databases.MongoDB.Database, "docqa")
	setDefault(&c.Databases.MongoDB.Collection, "query_history")
	setDefault(&c.Databases.Etcd.LeaseTTL, int64(15))
	setDefault(&c.Databases.Kafka.Topic, "docqa-document-events")

	setDefault(&c.Middleware.RateLimiter.Algorithm, "tokenBucket")
	setDefault(&c.Middleware.CircuitBreaker.Timeout, "30s")
}

// Duration 解析时长字符串，解析失败时返回 fallback。
func Duration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
