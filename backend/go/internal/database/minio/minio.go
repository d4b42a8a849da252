package minio

import (
	"context"
	"fmt"

	"DocQA/backend/go/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// NewClient 创建一个 MinIO 客户端，并确保配置的存储桶存在。
// minio-go 客户端不需要显式关闭，连接按需创建和管理。
func NewClient(ctx context.Context, cfg config.MinIOConfig) (*minio.Client, error) {
	// 使用配置中的端点、访问密钥和 Secret 密钥创建 MinIO 客户端。
	c, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""), // 静态凭证。
		Secure: cfg.Secure,                                                // 是否使用 HTTPS。
	})
	if err != nil {
		return nil, fmt.Errorf("无法创建 MinIO 客户端: %w", err)
	}

	if err := EnsureBucket(ctx, c, cfg.Bucket); err != nil {
		return nil, err
	}
	return c, nil
}

// EnsureBucket 在存储桶不存在时创建它。
func EnsureBucket(ctx context.Context, c *minio.Client, bucket string) error {
	exists, err := c.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("MinIO 初始化健康检查失败: %w", err)
	}
	if exists {
		return nil
	}
	if err := c.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("无法创建存储桶 '%s': %w", bucket, err)
	}
	return nil
}

// HealthCheck 检查 MinIO 连接的健康状况。
func HealthCheck(ctx context.Context, c *minio.Client, bucket string) error {
	if c == nil {
		return fmt.Errorf("MinIO 客户端未初始化")
	}
	if _, err := c.BucketExists(ctx, bucket); err != nil {
		return fmt.Errorf("MinIO 健康检查失败: %w", err)
	}
	return nil
}
