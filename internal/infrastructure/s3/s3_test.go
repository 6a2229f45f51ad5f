package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lego-filestore/config"
	"lego-filestore/internal/domain/storage"
)

// fakeAPI embeds the interface so each test only wires what it calls.
type fakeAPI struct {
	api

	headObject   func(in *s3.HeadObjectInput) (*s3.HeadObjectOutput, error)
	headBucket   func(in *s3.HeadBucketInput) (*s3.HeadBucketOutput, error)
	listObjects  func(in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error)
	copyObject   func(in *s3.CopyObjectInput) (*s3.CopyObjectOutput, error)
	createBucket func(in *s3.CreateBucketInput) (*s3.CreateBucketOutput, error)
}

func (f *fakeAPI) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	return f.headObject(in)
}

func (f *fakeAPI) HeadBucket(_ context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return f.headBucket(in)
}

func (f *fakeAPI) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	return f.listObjects(in)
}

func (f *fakeAPI) CopyObject(_ context.Context, in *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	return f.copyObject(in)
}

func (f *fakeAPI) CreateBucket(_ context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	return f.createBucket(in)
}

type fakeUploader struct {
	got  *s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakeUploader) Upload(_ context.Context, in *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	f.got = in
	f.body, _ = io.ReadAll(in.Body)
	if f.err != nil {
		return nil, f.err
	}
	return &manager.UploadOutput{Key: in.Key}, nil
}

func testCfg() config.Storage {
	return config.Storage{Bucket: "media", Region: "eu-central-1", PublicReadACL: true}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"no such key", &types.NoSuchKey{}, storage.ErrObjectNotFound},
		{"head 404", &types.NotFound{}, storage.ErrObjectNotFound},
		{"no such bucket", &types.NoSuchBucket{}, storage.ErrNoSuchBucket},
		{"generic code", &smithy.GenericAPIError{Code: "NoSuchKey"}, storage.ErrObjectNotFound},
		{"wrapped", fmt.Errorf("op: %w", &smithy.GenericAPIError{Code: "NoSuchBucket"}), storage.ErrNoSuchBucket},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapError(tt.in), tt.want)
		})
	}

	other := &smithy.GenericAPIError{Code: "AccessDenied"}
	assert.Same(t, error(other), mapError(other))
}

func TestClient_PutObject(t *testing.T) {
	up := &fakeUploader{}
	c := newClient(zap.NewNop(), &fakeAPI{}, up, testCfg())

	err := c.PutObject(context.Background(), "a/b.png", bytes.NewReader([]byte("png")), 3, "image/png")
	require.NoError(t, err)

	assert.Equal(t, "media", aws.ToString(up.got.Bucket))
	assert.Equal(t, "a/b.png", aws.ToString(up.got.Key))
	assert.Equal(t, "image/png", aws.ToString(up.got.ContentType))
	assert.Equal(t, int64(3), aws.ToInt64(up.got.ContentLength))
	assert.Equal(t, types.ObjectCannedACLPublicRead, up.got.ACL)
	assert.Equal(t, []byte("png"), up.body)

	up.err = &types.NoSuchBucket{}
	err = c.PutObject(context.Background(), "a/b.png", bytes.NewReader(nil), 0, "image/png")
	assert.ErrorIs(t, err, storage.ErrNoSuchBucket)
}

func TestClient_StatObject(t *testing.T) {
	modified := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	c := newClient(zap.NewNop(), &fakeAPI{
		headObject: func(in *s3.HeadObjectInput) (*s3.HeadObjectOutput, error) {
			if aws.ToString(in.Key) == "missing.png" {
				return nil, &types.NotFound{}
			}
			return &s3.HeadObjectOutput{
				ContentLength: aws.Int64(2048),
				ContentType:   aws.String("image/jpeg"),
				LastModified:  aws.Time(modified),
				ETag:          aws.String(`"abc"`),
			}, nil
		},
	}, &fakeUploader{}, testCfg())

	info, err := c.StatObject(context.Background(), "photo.JPG")
	require.NoError(t, err)
	assert.Equal(t, &storage.ObjectInfo{
		Key: "photo.JPG", Size: 2048, ContentType: "image/jpeg", LastModified: modified, ETag: "abc",
	}, info)

	_, err = c.StatObject(context.Background(), "missing.png")
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
}

func TestClient_ListObjectsStopsAtLimit(t *testing.T) {
	pages := 0
	c := newClient(zap.NewNop(), &fakeAPI{
		listObjects: func(in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
			pages++
			out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(true), NextContinuationToken: aws.String(fmt.Sprint(pages))}
			for i := 0; i < 2; i++ {
				out.Contents = append(out.Contents, types.Object{
					Key:  aws.String(fmt.Sprintf("p%d-%d.png", pages, i)),
					Size: aws.Int64(10),
				})
			}
			return out, nil
		},
	}, &fakeUploader{}, testCfg())

	objs, err := c.ListObjects(context.Background(), "p", 3)
	require.NoError(t, err)
	require.Len(t, objs, 3)
	assert.Equal(t, "p2-0.png", objs[2].Key)
	assert.Equal(t, 2, pages)
}

func TestClient_BucketExists(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    bool
		wantErr bool
	}{
		{"exists", nil, true, false},
		{"missing", &types.NotFound{}, false, false},
		{"unreachable", errors.New("dial tcp: connection refused"), false, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(zap.NewNop(), &fakeAPI{
				headBucket: func(*s3.HeadBucketInput) (*s3.HeadBucketOutput, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &s3.HeadBucketOutput{}, nil
				},
			}, &fakeUploader{}, testCfg())

			ok, err := c.BucketExists(context.Background())
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

func TestClient_CopyAndMakeBucket(t *testing.T) {
	var copied *s3.CopyObjectInput
	var created *s3.CreateBucketInput
	c := newClient(zap.NewNop(), &fakeAPI{
		copyObject: func(in *s3.CopyObjectInput) (*s3.CopyObjectOutput, error) {
			copied = in
			return &s3.CopyObjectOutput{}, nil
		},
		createBucket: func(in *s3.CreateBucketInput) (*s3.CreateBucketOutput, error) {
			created = in
			return &s3.CreateBucketOutput{}, nil
		},
	}, &fakeUploader{}, testCfg())

	require.NoError(t, c.CopyObject(context.Background(), "src/my file.png", "dst/a.png"))
	assert.Equal(t, "media/src/my%20file.png", aws.ToString(copied.CopySource))
	assert.Equal(t, "dst/a.png", aws.ToString(copied.Key))

	require.NoError(t, c.MakeBucket(context.Background()))
	require.NotNil(t, created.CreateBucketConfiguration)
	assert.Equal(t, types.BucketLocationConstraint("eu-central-1"), created.CreateBucketConfiguration.LocationConstraint)
}
