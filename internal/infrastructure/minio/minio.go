package minio

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"lego-filestore/config"
	"lego-filestore/internal/domain/storage"
)

const amzACLHeader = "x-amz-acl"

// Client is the minio-go ObjectStore.
type Client struct {
	logger *zap.Logger
	cli    *minio.Client
	bucket string
	region string
	acl    bool
}

func New(logger *zap.Logger, cfg config.Storage) (*Client, error) {
	cli, err := minio.New(cfg.HostPort(), &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("minio client ready", zap.String("endpoint", cfg.HostPort()), zap.String("bucket", cfg.Bucket))

	return &Client{
		logger: logger,
		cli:    cli,
		bucket: cfg.Bucket,
		region: cfg.Region,
		acl:    cfg.PublicReadACL,
	}, nil
}

func (c *Client) Bucket() string { return c.bucket }

func (c *Client) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if c.acl {
		opts.UserMetadata = map[string]string{amzACLHeader: "public-read"}
	}

	if _, err := c.cli.PutObject(ctx, c.bucket, key, body, size, opts); err != nil {
		return mapError(err)
	}
	return nil
}

func (c *Client) StatObject(ctx context.Context, key string) (*storage.ObjectInfo, error) {
	info, err := c.cli.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, mapError(err)
	}

	return &storage.ObjectInfo{
		Key:          key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
		ETag:         info.ETag,
	}, nil
}

// GetObject stats before returning because minio-go reports a missing object
// only on first read.
func (c *Client) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := c.cli.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapError(err)
	}
	if _, err = obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, mapError(err)
	}
	return obj, nil
}

func (c *Client) RemoveObject(ctx context.Context, key string) error {
	if err := c.cli.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return mapError(err)
	}
	return nil
}

func (c *Client) ListObjects(ctx context.Context, prefix string, limit int) (storage.Objects, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var out storage.Objects
	for o := range c.cli.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if o.Err != nil {
			return nil, mapError(o.Err)
		}
		if len(out) == limit {
			break
		}
		out = append(out, storage.ObjectInfo{
			Key:          o.Key,
			Size:         o.Size,
			ContentType:  o.ContentType,
			LastModified: o.LastModified,
			ETag:         o.ETag,
		})
	}

	return out, nil
}

func (c *Client) CopyObject(ctx context.Context, srcKey, dstKey string) error {
	if _, err := c.cli.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: c.bucket, Object: dstKey},
		minio.CopySrcOptions{Bucket: c.bucket, Object: srcKey},
	); err != nil {
		return mapError(err)
	}
	return nil
}

func (c *Client) BucketExists(ctx context.Context) (bool, error) {
	return c.cli.BucketExists(ctx, c.bucket)
}

func (c *Client) MakeBucket(ctx context.Context) error {
	return c.cli.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{Region: c.region})
}

func (c *Client) SetBucketPolicy(ctx context.Context, policy string) error {
	if err := c.cli.SetBucketPolicy(ctx, c.bucket, policy); err != nil {
		return mapError(err)
	}
	return nil
}

func mapError(err error) error {
	var resp minio.ErrorResponse
	if !errors.As(err, &resp) {
		return err
	}

	switch resp.Code {
	case "NoSuchBucket":
		return storage.ErrNoSuchBucket
	case "NoSuchKey", "NotFound":
		return storage.ErrObjectNotFound
	}
	if resp.StatusCode == http.StatusNotFound && resp.Key != "" {
		return storage.ErrObjectNotFound
	}
	return err
}
