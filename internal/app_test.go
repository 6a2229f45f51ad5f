package internal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"lego-filestore/config"
	"lego-filestore/internal/application/ports"
	"lego-filestore/internal/domain/storage"
	"lego-filestore/internal/infrastructure/minio"
	"lego-filestore/internal/infrastructure/s3"
)

func storageCfg(driver string) config.Storage {
	return config.Storage{
		Driver:    driver,
		Host:      "localhost",
		Port:      "9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "media",
		Region:    "us-east-1",
	}
}

func TestNewObjectStore(t *testing.T) {
	ctx := context.Background()

	store, err := NewObjectStore(ctx, zap.NewNop(), storageCfg(config.StorageDriverMinio))
	require.NoError(t, err)
	assert.IsType(t, &minio.Client{}, store)
	assert.Equal(t, "media", store.Bucket())

	store, err = NewObjectStore(ctx, zap.NewNop(), storageCfg(config.StorageDriverS3))
	require.NoError(t, err)
	assert.IsType(t, &s3.Client{}, store)

	_, err = NewObjectStore(ctx, zap.NewNop(), storageCfg("ftp"))
	require.Error(t, err)
}

func TestLoadConfig_WithoutDotEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORAGE_DRIVER", config.StorageDriverMinio)
	t.Setenv("STORAGE_HOST", "minio")
	t.Setenv("STORAGE_ACCESS_KEY", "k")
	t.Setenv("STORAGE_SECRET_KEY", "s")
	t.Setenv("STORAGE_BUCKET", "media")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "minio", cfg.Storage.Host)
}

func TestLoadConfig_InvalidStorage(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORAGE_DRIVER", "ftp")

	_, err := LoadConfig()
	require.Error(t, err)
}

type stubGateway struct {
	ports.StorageGateway
	exists    bool
	existsErr error
	ensured   int
}

func (g *stubGateway) BucketExists(context.Context) (bool, error) { return g.exists, g.existsErr }

func (g *stubGateway) EnsureBucket(context.Context) error {
	g.ensured++
	return g.existsErr
}

func TestCheckStorage(t *testing.T) {
	unreachable := storage.NewError(storage.CodeConnectionFailed, "storage backend unreachable", nil)

	tests := []struct {
		name        string
		autoCreate  bool
		gw          *stubGateway
		wantErr     error
		wantEnsured int
		wantWarn    int
	}{
		{name: "present", gw: &stubGateway{exists: true}},
		{name: "missing is reported", gw: &stubGateway{}, wantWarn: 1},
		{name: "unreachable fails", gw: &stubGateway{existsErr: unreachable}, wantErr: storage.ErrConnectionFailed},
		{name: "auto create ensures", autoCreate: true, gw: &stubGateway{}, wantEnsured: 1},
		{name: "auto create unreachable", autoCreate: true, gw: &stubGateway{existsErr: unreachable}, wantErr: storage.ErrConnectionFailed, wantEnsured: 1},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.WarnLevel)
			cfg := storageCfg(config.StorageDriverMinio)
			cfg.AutoCreateBucket = tt.autoCreate

			err := checkStorage(context.Background(), tt.gw, cfg, zap.New(core))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantEnsured, tt.gw.ensured)
			assert.Equal(t, tt.wantWarn, logs.Len())
		})
	}
}
