// Package storage 提供了与对象存储服务（如 MinIO）交互的功能，用于分发成对的索引产物。
package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"edi-assistant-go/internal/config"
	"edi-assistant-go/pkg/log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioClient 是一个全局的 MinIO 客户端实例。
var MinioClient *minio.Client

// Enabled 判断是否配置了 MinIO。
func Enabled(cfg config.MinIOConfig) bool {
	return cfg.Endpoint != "" && cfg.BucketName != ""
}

// InitMinIO 初始化 MinIO 客户端并确保指定的存储桶存在。
func InitMinIO(ctx context.Context, cfg config.MinIOConfig) error {
	var err error

	// 1. 初始化 MinIO 客户端
	MinioClient, err = minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return fmt.Errorf("初始化 MinIO 客户端失败: %w", err)
	}

	log.Info("MinIO 客户端初始化成功")

	// 2. 检查存储桶 (Bucket) 是否存在，如果不存在则创建
	bucketName := cfg.BucketName
	exists, err := MinioClient.BucketExists(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("检查 MinIO 存储桶失败: %w", err)
	}

	if !exists {
		log.Infof("存储桶 '%s' 不存在，正在创建...", bucketName)
		if err := MinioClient.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("创建 MinIO 存储桶失败: %w", err)
		}
		log.Infof("存储桶 '%s' 创建成功", bucketName)
	} else {
		log.Infof("存储桶 '%s' 已存在", bucketName)
	}
	return nil
}

// PublishArtifacts 上传索引文件和分块文件。先传分块文件，最后传索引文件。
func PublishArtifacts(ctx context.Context, cfg config.MinIOConfig, indexPath, docsPath string) error {
	uploads := []struct {
		local, contentType string
	}{
		{docsPath, "application/json"},
		{indexPath, "application/octet-stream"},
	}
	for _, u := range uploads {
		object := ObjectName(cfg.ArtifactPrefix, u.local)
		info, err := MinioClient.FPutObject(ctx, cfg.BucketName, object, u.local, minio.PutObjectOptions{ContentType: u.contentType})
		if err != nil {
			return fmt.Errorf("上传 %s 失败: %w", object, err)
		}
		log.Infof("[Storage] 已上传 %s/%s (%d bytes)", cfg.BucketName, object, info.Size)
	}
	return nil
}

// FetchArtifacts 下载索引文件和分块文件到本地路径。两者是否属于同一次构建由加载时校验。
func FetchArtifacts(ctx context.Context, cfg config.MinIOConfig, indexPath, docsPath string) error {
	for _, local := range []string{indexPath, docsPath} {
		object := ObjectName(cfg.ArtifactPrefix, local)
		if err := MinioClient.FGetObject(ctx, cfg.BucketName, object, local, minio.GetObjectOptions{}); err != nil {
			return fmt.Errorf("下载 %s 失败: %w", object, err)
		}
		log.Infof("[Storage] 已下载 %s/%s -> %s", cfg.BucketName, object, local)
	}
	return nil
}

// ObjectName 由前缀和本地文件名组成对象名。
func ObjectName(prefix, localPath string) string {
	base := filepath.Base(localPath)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return base
	}
	return path.Join(prefix, base)
}
