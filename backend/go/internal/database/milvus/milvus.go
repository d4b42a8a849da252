package milvus

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"DocQA/backend/go/internal/config"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// 文档分块集合的字段名。
const (
	FieldID         = "id"
	FieldText       = "text"
	FieldDocumentID = "document_id"
	FieldFileName   = "filename"
	FieldPage       = "page"
	FieldEmbedding  = "embedding"
)

// 字段长度上限。text 需要容纳 1000 个字符的多字节文本。
const (
	maxIDLength       = 64
	maxTextLength     = 8192
	maxFileNameLength = 512
)

// MetricType 固定为内积，与归一化的 sentence-transformers 向量配合即为余弦相似度。
const MetricType = entity.IP

// MilvusClient 包含了 Milvus 客户端实例和相关配置。
type MilvusClient struct {
	Client    client.Client
	Config    config.MilvusConfig
	Dimension int
}

// NewClient 创建 Milvus 连接。dim 为集合向量维度。
func NewClient(ctx context.Context, cfg config.MilvusConfig, dim int) (*MilvusClient, error) {
	c, err := client.NewClient(ctx, client.Config{
		Address:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("无法连接到 Milvus: %w", err)
	}
	log.Println("✅ 成功连接到 Milvus!")
	return &MilvusClient{Client: c, Config: cfg, Dimension: dim}, nil
}

// Close 安全地关闭与 Milvus 的连接。
func (c *MilvusClient) Close() {
	if c.Client != nil {
		c.Client.Close()
		log.Println("ℹ️ 已安全关闭 Milvus 连接。")
	}
}

// HealthCheck 检查 Milvus 连接的健康状况。
func (c *MilvusClient) HealthCheck(ctx context.Context) error {
	if c.Client == nil {
		return fmt.Errorf("milvus client is nil")
	}
	if _, err := c.Client.ListCollections(ctx); err != nil {
		return fmt.Errorf("milvus health check failed: %w", err)
	}
	return nil
}

// EnsureCollection 确保文档分块集合存在、带有向量索引并已加载。
// 已存在的集合会校验向量维度。
func (c *MilvusClient) EnsureCollection(ctx context.Context) error {
	collName := c.Config.CollectionName
	exists, err := c.Client.HasCollection(ctx, collName)
	if err != nil {
		return fmt.Errorf("检查集合是否存在时出错: %w", err)
	}

	if exists {
		if err := c.checkDimension(ctx); err != nil {
			return err
		}
	} else {
		schema := entity.NewSchema().
			WithName(collName).
			WithDescription(c.Config.Description).
			WithField(entity.NewField().WithName(FieldID).WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(maxIDLength).WithIsPrimaryKey(true)).
			WithField(entity.NewField().WithName(FieldText).WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(maxTextLength)).
			WithField(entity.NewField().WithName(FieldDocumentID).WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(maxIDLength)).
			WithField(entity.NewField().WithName(FieldFileName).WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(maxFileNameLength)).
			WithField(entity.NewField().WithName(FieldPage).WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().WithName(FieldEmbedding).WithDataType(entity.FieldTypeFloatVector).
				WithDim(int64(c.Dimension)))

		if err := c.Client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("创建集合失败: %w", err)
		}
		idx, err := BuildIndex(c.Config.Index)
		if err != nil {
			return err
		}
		if err := c.Client.CreateIndex(ctx, collName, FieldEmbedding, idx, false); err != nil {
			return fmt.Errorf("为字段 '%s' 创建索引失败: %w", FieldEmbedding, err)
		}
		log.Printf("✅ 已创建集合 '%s' (dim=%d, metric=%s)", collName, c.Dimension, MetricType)
	}

	if err := c.Client.LoadCollection(ctx, collName, false); err != nil {
		return fmt.Errorf("加载 Milvus 集合 '%s' 失败: %w", collName, err)
	}
	return nil
}

func (c *MilvusClient) checkDimension(ctx context.Context) error {
	coll, err := c.Client.DescribeCollection(ctx, c.Config.CollectionName)
	if err != nil {
		return fmt.Errorf("读取集合 '%s' 的 schema 失败: %w", c.Config.CollectionName, err)
	}
	return checkCollectionDimension(coll, c.Dimension)
}

// checkCollectionDimension 校验已有集合的向量字段维度与 embedding 维度一致。
func checkCollectionDimension(coll *entity.Collection, want int) error {
	if coll == nil || coll.Schema == nil {
		return fmt.Errorf("集合缺少 schema")
	}
	for _, f := range coll.Schema.Fields {
		if f.Name != FieldEmbedding {
			continue
		}
		raw, ok := f.TypeParams[entity.TypeParamDim]
		if !ok {
			return fmt.Errorf("向量字段 '%s' 缺少维度参数", FieldEmbedding)
		}
		dim, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("读取向量维度失败: %w", err)
		}
		if int(dim) != want {
			return fmt.Errorf("集合 '%s' 的向量维度为 %d，但 embedding 维度为 %d", coll.Name, dim, want)
		}
		return nil
	}
	return fmt.Errorf("集合 '%s' 缺少向量字段 '%s'", coll.Name, FieldEmbedding)
}

func intParam(params map[string]interface{}, key string, fallback int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}

// BuildIndex 根据配置构建向量索引，度量类型固定为 IP。
func BuildIndex(cfg config.IndexConfig) (entity.Index, error) {
	switch cfg.IndexType {
	case "IVF_FLAT":
		return entity.NewIndexIvfFlat(MetricType, intParam(cfg.Params, "nlist", 128))
	case "HNSW":
		return entity.NewIndexHNSW(MetricType, intParam(cfg.Params, "M", 16), intParam(cfg.Params, "efConstruction", 200))
	case "IVF_SQ8":
		return entity.NewIndexIvfSQ8(MetricType, intParam(cfg.Params, "nlist", 128))
	case "FLAT":
		return entity.NewIndexFlat(MetricType)
	case "AUTOINDEX", "":
		return entity.NewIndexAUTOINDEX(MetricType)
	default:
		return nil, fmt.Errorf("不支持的索引类型: %s", cfg.IndexType)
	}
}

// BuildSearchParam 构建与索引类型匹配的搜索参数。HNSW 的 ef 不能小于 topK。
func BuildSearchParam(cfg config.IndexConfig, topK int) (entity.SearchParam, error) {
	switch cfg.IndexType {
	case "IVF_FLAT", "IVF_SQ8":
		return entity.NewIndexIvfFlatSearchParam(intParam(cfg.SearchParams, "nprobe", 16))
	case "HNSW":
		ef := intParam(cfg.SearchParams, "ef", 128)
		if ef < topK {
			ef = topK
		}
		return entity.NewIndexHNSWSearchParam(ef)
	case "FLAT":
		return entity.NewIndexFlatSearchParam()
	default:
		return entity.NewIndexAUTOINDEXSearchParam(intParam(cfg.SearchParams, "level", 1))
	}
}
