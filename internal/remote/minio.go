package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioGateway stores one JSON object per user in a bucket. The object key
// doubles as the document id.
type MinioGateway struct {
	client *minio.Client
	bucket string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func NewMinioGateway(ctx context.Context, cfg MinioConfig) (*MinioGateway, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return &MinioGateway{client: client, bucket: cfg.Bucket}, nil
}

func objectKey(userID string) string {
	return "documents/" + userID + ".json"
}

func (g *MinioGateway) FindDocument(ctx context.Context, userID string) (*FileInfo, error) {
	key := objectKey(userID)
	info, err := g.client.StatObject(ctx, g.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return nil, nil
		}
		return nil, fmt.Errorf("stat document: %w", err)
	}
	modified := info.LastModified
	if raw, ok := info.UserMetadata["Modified-Time"]; ok {
		if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			modified = parsed
		}
	}
	return &FileInfo{ID: key, ModifiedTime: modified}, nil
}

func (g *MinioGateway) CreateDocument(ctx context.Context, userID string, data []byte) (string, error) {
	key := objectKey(userID)
	if err := g.put(ctx, key, data); err != nil {
		return "", err
	}
	return key, nil
}

func (g *MinioGateway) ReadDocument(ctx context.Context, id string) ([]byte, error) {
	obj, err := g.client.GetObject(ctx, g.bucket, id, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return data, nil
}

func (g *MinioGateway) WriteDocument(ctx context.Context, id string, data []byte) error {
	return g.put(ctx, id, data)
}

func (g *MinioGateway) put(ctx context.Context, key string, data []byte) error {
	_, err := g.client.PutObject(ctx, g.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
		UserMetadata: map[string]string{
			"Modified-Time": time.Now().UTC().Format(time.RFC3339Nano),
		},
	})
	if err != nil {
		return fmt.Errorf("put document: %w", err)
	}
	return nil
}
