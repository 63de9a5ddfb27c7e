// Package storage 提供了 MinIO 对象存储的客户端功能。
package storage

import (
	"context"
	"io"
	"second-brain-go/internal/config"
	"second-brain-go/pkg/log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var MinioClient *minio.Client

// InitMinIO 初始化 MinIO 客户端，并确保目标 bucket 存在。
func InitMinIO(cfg config.MinIOConfig) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		log.Fatal("failed to create minio client", err)
	}
	MinioClient = client

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		log.Fatal("failed to check minio bucket", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			log.Fatal("failed to create minio bucket", err)
		}
		log.Infof("MinIO bucket '%s' 创建成功", cfg.BucketName)
	}

	log.Info("MinIO client connected successfully")
}

// PutObject 上传一个对象。
func PutObject(ctx context.Context, bucket, objectName string, reader io.Reader, size int64) error {
	_, err := MinioClient.PutObject(ctx, bucket, objectName, reader, size, minio.PutObjectOptions{})
	return err
}

// GetObject 获取一个对象的读取流，调用方负责 Close。
func GetObject(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	return MinioClient.GetObject(ctx, bucket, objectName, minio.GetObjectOptions{})
}
