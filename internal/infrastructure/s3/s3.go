package s3

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"lego-filestore/config"
	"lego-filestore/internal/domain/storage"
)

const defaultRegion = "us-east-1"

type (
	api interface {
		s3.ListObjectsV2APIClient
		HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
		GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
		DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
		CopyObject(ctx context.Context, in *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
		HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
		CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
		PutBucketPolicy(ctx context.Context, in *s3.PutBucketPolicyInput, optFns ...func(*s3.Options)) (*s3.PutBucketPolicyOutput, error)
	}
	uploader interface {
		Upload(ctx context.Context, in *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
	}

	// Client is the aws-sdk-go-v2 ObjectStore. It always uses path-style
	// addressing so MinIO and other non-DNS deployments work.
	Client struct {
		logger   *zap.Logger
		cli      api
		uploader uploader
		bucket   string
		region   string
		acl      bool
	}
)

func New(ctx context.Context, logger *zap.Logger, cfg config.Storage) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, err
	}

	cli := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint())
		o.UsePathStyle = true
	})

	logger.Info("s3 client ready", zap.String("endpoint", cfg.Endpoint()), zap.String("bucket", cfg.Bucket))

	return newClient(logger, cli, manager.NewUploader(cli), cfg), nil
}

func newClient(logger *zap.Logger, cli api, up uploader, cfg config.Storage) *Client {
	return &Client{
		logger:   logger,
		cli:      cli,
		uploader: up,
		bucket:   cfg.Bucket,
		region:   cfg.Region,
		acl:      cfg.PublicReadACL,
	}
}

func (c *Client) Bucket() string { return c.bucket }

func (c *Client) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	in := &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	}
	if c.acl {
		in.ACL = types.ObjectCannedACLPublicRead
	}

	if _, err := c.uploader.Upload(ctx, in); err != nil {
		return mapError(err)
	}
	return nil
}

func (c *Client) StatObject(ctx context.Context, key string) (*storage.ObjectInfo, error) {
	out, err := c.cli.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, mapError(err)
	}

	return &storage.ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		LastModified: aws.ToTime(out.LastModified),
		ETag:         strings.Trim(aws.ToString(out.ETag), `"`),
	}, nil
}

func (c *Client) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := c.cli.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, mapError(err)
	}
	return out.Body, nil
}

func (c *Client) RemoveObject(ctx context.Context, key string) error {
	if _, err := c.cli.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return mapError(err)
	}
	return nil
}

func (c *Client) ListObjects(ctx context.Context, prefix string, limit int) (storage.Objects, error) {
	in := &s3.ListObjectsV2Input{
		Bucket:  aws.String(c.bucket),
		MaxKeys: aws.Int32(int32(min(limit, 1000))),
	}
	if prefix != "" {
		in.Prefix = aws.String(prefix)
	}

	var out storage.Objects
	p := s3.NewListObjectsV2Paginator(c.cli, in)
	for p.HasMorePages() && len(out) < limit {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, mapError(err)
		}
		for _, o := range page.Contents {
			if len(out) == limit {
				break
			}
			out = append(out, storage.ObjectInfo{
				Key:          aws.ToString(o.Key),
				Size:         aws.ToInt64(o.Size),
				LastModified: aws.ToTime(o.LastModified),
				ETag:         strings.Trim(aws.ToString(o.ETag), `"`),
			})
		}
	}

	return out, nil
}

func (c *Client) CopyObject(ctx context.Context, srcKey, dstKey string) error {
	if _, err := c.cli.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(c.bucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(copySource(c.bucket, srcKey)),
	}); err != nil {
		return mapError(err)
	}
	return nil
}

func (c *Client) BucketExists(ctx context.Context) (bool, error) {
	_, err := c.cli.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	if err == nil {
		return true, nil
	}
	// HeadBucket answers a plain 404 for a missing bucket.
	if mapped := mapError(err); errors.Is(mapped, storage.ErrNoSuchBucket) || errors.Is(mapped, storage.ErrObjectNotFound) {
		return false, nil
	}
	return false, err
}

func (c *Client) MakeBucket(ctx context.Context) error {
	in := &s3.CreateBucketInput{Bucket: aws.String(c.bucket)}
	if c.region != "" && c.region != defaultRegion {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(c.region),
		}
	}

	_, err := c.cli.CreateBucket(ctx, in)
	return err
}

func (c *Client) SetBucketPolicy(ctx context.Context, policy string) error {
	if _, err := c.cli.PutBucketPolicy(ctx, &s3.PutBucketPolicyInput{
		Bucket: aws.String(c.bucket),
		Policy: aws.String(policy),
	}); err != nil {
		return mapError(err)
	}
	return nil
}

// copySource is "bucket/key" with every key segment escaped.
func copySource(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return bucket + "/" + strings.Join(segments, "/")
}

// mapError turns the SDK's not-found replies into storage sentinels and
// passes everything else through.
func mapError(err error) error {
	var (
		noKey    *types.NoSuchKey
		notFound *types.NotFound
		noBucket *types.NoSuchBucket
		apiErr   smithy.APIError
	)
	switch {
	case errors.As(err, &noBucket):
		return storage.ErrNoSuchBucket
	case errors.As(err, &noKey), errors.As(err, &notFound):
		return storage.ErrObjectNotFound
	case errors.As(err, &apiErr):
		switch apiErr.ErrorCode() {
		case "NoSuchBucket":
			return storage.ErrNoSuchBucket
		case "NoSuchKey", "NotFound":
			return storage.ErrObjectNotFound
		}
	}
	return err
}
