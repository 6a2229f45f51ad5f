package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"lego-filestore/config"
	"lego-filestore/internal/application/ports"
	"lego-filestore/internal/domain/storage"
)

const (
	defaultListLimit     = 1000
	maxCollisionAttempts = 20
	collisionStampLayout = "20060102150405"
	noExtensionType      = "(none)"
)

type StorageGateway struct {
	store      ports.ObjectStore
	cfg        config.Storage
	logger     *zap.Logger
	mCounter   *prometheus.CounterVec
	allowed    map[string]struct{}
	publicBase string
	now        func() time.Time
}

func NewStorageGateway(
	store ports.ObjectStore,
	cfg config.Storage,
	logger *zap.Logger,
	mCounter *prometheus.CounterVec,
) ports.StorageGateway {
	return newStorageGateway(store, cfg, logger, mCounter)
}

func newStorageGateway(
	store ports.ObjectStore,
	cfg config.Storage,
	logger *zap.Logger,
	mCounter *prometheus.CounterVec,
) *StorageGateway {
	allowed := make(map[string]struct{}, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		allowed[strings.ToLower(ext)] = struct{}{}
	}

	return &StorageGateway{
		store:      store,
		cfg:        cfg,
		logger:     logger,
		mCounter:   mCounter,
		allowed:    allowed,
		publicBase: cfg.PublicBase(),
		now:        time.Now,
	}
}

func (g *StorageGateway) Upload(ctx context.Context, in storage.UploadFile, customName, targetPath string) (string, error) {
	obj, err := g.Put(ctx, in, customName, targetPath)
	if err != nil {
		return "", err
	}
	return obj.URL, nil
}

func (g *StorageGateway) Put(
	ctx context.Context,
	in storage.UploadFile,
	customName, targetPath string,
) (*storage.UploadedObject, error) {
	if err := g.validate(in); err != nil {
		count(g.mCounter, "upload_rejected_total")
		return nil, err
	}
	dir, err := normalizeDir(targetPath)
	if err != nil {
		return nil, err
	}

	content, err := g.readContent(in.Content)
	if err != nil {
		count(g.mCounter, "upload_rejected_total")
		return nil, err
	}

	name := resolveFileName(customName, in.Filename)
	mimeType := mimetype.Detect(content).String()

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	key, err := g.availableKey(ctx, dir, name)
	if err != nil {
		return nil, err
	}

	if err = g.store.PutObject(ctx, key, bytes.NewReader(content), int64(len(content)), mimeType); err != nil {
		g.logger.Error("put object failed", zap.String("key", key), zap.Error(err))
		return nil, translate(storage.CodeUploadFailed, "upload of "+key+" failed", err)
	}

	count(g.mCounter, "files_uploaded_total")

	return &storage.UploadedObject{
		Key:          key,
		URL:          g.PublicURL(key),
		Name:         path.Base(key),
		OriginalName: originalBase(in.Filename),
		Size:         int64(len(content)),
		MimeType:     mimeType,
	}, nil
}

func (g *StorageGateway) validate(in storage.UploadFile) error {
	if originalBase(in.Filename) == "" || in.Content == nil {
		return storage.NewError(storage.CodeInvalidFile, "file name and content are required", nil)
	}
	if in.UploadErr != nil {
		return storage.NewError(storage.CodeInvalidFile, "upload error reported by client", in.UploadErr)
	}
	if in.Size <= 0 {
		return storage.NewError(storage.CodeInvalidFile, "file is empty", nil)
	}
	if in.Size > g.cfg.MaxFileSize {
		return g.tooLarge(humanize.IBytes(uint64(in.Size)))
	}

	ext := extensionOf(in.Filename)
	if _, ok := g.allowed[ext]; !ok {
		return storage.NewError(
			storage.CodeInvalidExtension,
			fmt.Sprintf("extension %q is not allowed; allowed: %s", ext, strings.Join(g.cfg.AllowedExtensions, ", ")),
			nil,
		)
	}

	return nil
}

func (g *StorageGateway) tooLarge(actual string) error {
	return storage.NewError(
		storage.CodeFileTooLarge,
		fmt.Sprintf("file size %s exceeds the maximum allowed %s", actual, humanize.IBytes(uint64(g.cfg.MaxFileSize))),
		nil,
	)
}

// readContent reads at most MaxFileSize+1 bytes so a body larger than its
// declared size is still rejected.
func (g *StorageGateway) readContent(r io.Reader) ([]byte, error) {
	content, err := io.ReadAll(io.LimitReader(r, g.cfg.MaxFileSize+1))
	if err != nil {
		return nil, storage.NewError(storage.CodeInvalidFile, "cannot read uploaded content", err)
	}
	if int64(len(content)) > g.cfg.MaxFileSize {
		return nil, g.tooLarge("more than " + humanize.IBytes(uint64(g.cfg.MaxFileSize)))
	}
	if len(content) == 0 {
		return nil, storage.NewError(storage.CodeInvalidFile, "file is empty", nil)
	}
	return content, nil
}

// availableKey never returns a key that already exists: on collision it
// appends a UTC timestamp, then a counter, then a random suffix.
func (g *StorageGateway) availableKey(ctx context.Context, dir, name string) (string, error) {
	key := dir + name
	taken, err := g.exists(ctx, key)
	if err != nil {
		return "", translate(storage.CodeUploadFailed, "collision check for "+key+" failed", err)
	}
	if !taken {
		return key, nil
	}

	base, ext := splitName(name)
	if ext != "" {
		ext = "." + ext
	}
	stamp := g.now().UTC().Format(collisionStampLayout)

	candidate := fmt.Sprintf("%s_%s%s", base, stamp, ext)
	for i := 2; i <= maxCollisionAttempts; i++ {
		key = dir + candidate
		if taken, err = g.exists(ctx, key); err != nil {
			return "", translate(storage.CodeUploadFailed, "collision check for "+key+" failed", err)
		}
		if !taken {
			return key, nil
		}
		candidate = fmt.Sprintf("%s_%s_%d%s", base, stamp, i, ext)
	}

	g.logger.Warn("collision attempts exhausted, using random suffix", zap.String("name", name))
	return dir + fmt.Sprintf("%s_%s%s", base, randomBaseName(), ext), nil
}

func (g *StorageGateway) exists(ctx context.Context, key string) (bool, error) {
	if _, err := g.store.StatObject(ctx, key); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (g *StorageGateway) Get(ctx context.Context, p string) (*storage.ObjectInfo, error) {
	key, err := normalizeKey(p)
	if err != nil {
		return nil, err
	}
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	info, err := g.store.StatObject(ctx, key)
	if err != nil {
		return nil, translate(storage.CodeRequestFailed, "stat of "+key+" failed", err)
	}
	info.Exists = true
	info.Key = key
	info.URL = g.PublicURL(key)

	return info, nil
}

func (g *StorageGateway) GetContent(ctx context.Context, p string) ([]byte, error) {
	key, err := normalizeKey(p)
	if err != nil {
		return nil, err
	}
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	body, err := g.store.GetObject(ctx, key)
	if err != nil {
		return nil, translate(storage.CodeRequestFailed, "download of "+key+" failed", err)
	}
	defer body.Close()

	content, err := io.ReadAll(body)
	if err != nil {
		return nil, translate(storage.CodeRequestFailed, "download of "+key+" failed", err)
	}

	return content, nil
}

func (g *StorageGateway) Delete(ctx context.Context, p string) error {
	key, err := normalizeKey(p)
	if err != nil {
		return err
	}
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	// S3 deletes are idempotent, so absence has to be checked explicitly.
	if _, err = g.store.StatObject(ctx, key); err != nil {
		return translate(storage.CodeDeleteFailed, "delete of "+key+" failed", err)
	}
	if err = g.store.RemoveObject(ctx, key); err != nil {
		return translate(storage.CodeDeleteFailed, "delete of "+key+" failed", err)
	}

	count(g.mCounter, "files_deleted_total")

	return nil
}

func (g *StorageGateway) Exists(ctx context.Context, p string) (bool, error) {
	key, err := normalizeKey(p)
	if err != nil {
		return false, err
	}
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	ok, err := g.exists(ctx, key)
	if err != nil {
		return false, translate(storage.CodeRequestFailed, "stat of "+key+" failed", err)
	}
	return ok, nil
}

func (g *StorageGateway) List(ctx context.Context, prefix string, limit int) (storage.Objects, error) {
	prefix = strings.TrimLeft(strings.ReplaceAll(strings.TrimSpace(prefix), "\\", "/"), "/")
	if limit <= 0 {
		limit = defaultListLimit
	}
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	objs, err := g.store.ListObjects(ctx, prefix, limit)
	if err != nil {
		return nil, translate(storage.CodeRequestFailed, "list of "+prefix+" failed", err)
	}
	for i := range objs {
		objs[i].Exists = true
		objs[i].URL = g.PublicURL(objs[i].Key)
	}

	return objs, nil
}

func (g *StorageGateway) Copy(ctx context.Context, src, dst string) error {
	srcKey, dstKey, err := normalizePair(src, dst)
	if err != nil {
		return err
	}
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	if err = g.store.CopyObject(ctx, srcKey, dstKey); err != nil {
		return translate(storage.CodeRequestFailed, "copy of "+srcKey+" to "+dstKey+" failed", err)
	}
	return nil
}

// Move is copy followed by delete. A failed delete leaves both objects in
// place; the returned DeleteFailed error is safe to retry.
func (g *StorageGateway) Move(ctx context.Context, src, dst string) error {
	if err := g.Copy(ctx, src, dst); err != nil {
		return err
	}
	srcKey, _, _ := normalizePair(src, dst)

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	if err := g.store.RemoveObject(ctx, srcKey); err != nil {
		g.logger.Warn("move left source behind", zap.String("src", srcKey), zap.String("dst", dst), zap.Error(err))
		return translate(storage.CodeDeleteFailed, "copied but could not remove "+srcKey, err)
	}
	return nil
}

func (g *StorageGateway) BucketExists(ctx context.Context) (bool, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	ok, err := g.store.BucketExists(ctx)
	if err != nil {
		return false, storage.NewError(storage.CodeConnectionFailed, "storage backend unreachable", detach(err))
	}
	return ok, nil
}

func (g *StorageGateway) CreateBucket(ctx context.Context) error {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	if err := g.store.MakeBucket(ctx); err != nil {
		return storage.NewError(storage.CodeBucketCreationFailed, "cannot create bucket "+g.store.Bucket(), detach(err))
	}
	g.logger.Info("bucket created", zap.String("bucket", g.store.Bucket()))
	return nil
}

func (g *StorageGateway) SetBucketPublic(ctx context.Context) error {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	if err := g.store.SetBucketPolicy(ctx, publicReadPolicy(g.store.Bucket())); err != nil {
		if errors.Is(err, storage.ErrNoSuchBucket) {
			return storage.NewError(storage.CodeBucketNotFound, "bucket "+g.store.Bucket()+" does not exist", err)
		}
		return storage.NewError(storage.CodePolicyFailed, "cannot apply public-read policy", detach(err))
	}
	return nil
}

// EnsureBucket makes the configured bucket usable: it must exist (or be
// creatable when auto-create is on) and be publicly readable.
func (g *StorageGateway) EnsureBucket(ctx context.Context) error {
	ok, err := g.BucketExists(ctx)
	if err != nil {
		return err
	}
	if !ok {
		if !g.cfg.AutoCreateBucket {
			return storage.NewError(storage.CodeBucketNotFound, "bucket "+g.store.Bucket()+" does not exist", nil)
		}
		if err = g.CreateBucket(ctx); err != nil {
			return err
		}
	}
	return g.SetBucketPublic(ctx)
}

// GetStats sums a bounded listing, so for large buckets it is an approximation.
func (g *StorageGateway) GetStats(ctx context.Context) (*storage.Stats, error) {
	limit := g.cfg.StatsMaxObjects
	if limit <= 0 {
		limit = defaultListLimit
	}
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	objs, err := g.store.ListObjects(ctx, "", limit+1)
	if err != nil {
		return nil, translate(storage.CodeRequestFailed, "listing bucket failed", err)
	}

	stats := &storage.Stats{ByType: map[string]storage.TypeStats{}}
	if len(objs) > limit {
		stats.Truncated = true
		objs = objs[:limit]
	}
	for _, o := range objs {
		ext := extensionOf(o.Key)
		if ext == "" {
			ext = noExtensionType
		}
		ts := stats.ByType[ext]
		ts.Count++
		ts.Size += o.Size
		stats.ByType[ext] = ts

		stats.Objects++
		stats.TotalSize += o.Size
	}
	stats.TotalSizeHuman = humanize.IBytes(uint64(stats.TotalSize))

	return stats, nil
}

// PublicURL is scheme://public-host/bucket/key with each key segment escaped.
func (g *StorageGateway) PublicURL(key string) string {
	segments := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return g.publicBase + "/" + strings.Join(segments, "/")
}

func (g *StorageGateway) KeyFromURL(rawURL string) (string, bool) {
	rest, ok := strings.CutPrefix(rawURL, g.publicBase+"/")
	if !ok || rest == "" {
		return "", false
	}
	key, err := url.PathUnescape(rest)
	if err != nil {
		return "", false
	}
	return key, true
}

func (g *StorageGateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.cfg.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.cfg.Timeout)
}

// translate maps a backend error to the storage taxonomy. Only the message of
// the backend error is kept.
func translate(code storage.Code, message string, err error) error {
	switch {
	case errors.Is(err, storage.ErrObjectNotFound):
		return storage.NewError(storage.CodeFileNotFound, "file not found", storage.ErrObjectNotFound)
	case errors.Is(err, storage.ErrNoSuchBucket):
		return storage.NewError(storage.CodeBucketNotFound, "bucket not found", storage.ErrNoSuchBucket)
	}
	return storage.NewError(code, message, detach(err))
}

func detach(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(err.Error())
}

func normalizeKey(p string) (string, error) {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", storage.NewError(storage.CodeInvalidFile, "path must not contain '..'", nil)
		}
	}
	key := strings.TrimPrefix(path.Clean("/"+p), "/")
	if key == "" {
		return "", storage.NewError(storage.CodeInvalidFile, "path is required", nil)
	}
	return key, nil
}

// normalizeDir turns a target path into "" or "a/b/".
func normalizeDir(p string) (string, error) {
	if strings.Trim(strings.TrimSpace(p), "/\\") == "" {
		return "", nil
	}
	key, err := normalizeKey(p)
	if err != nil {
		return "", err
	}
	return key + "/", nil
}

func normalizePair(src, dst string) (string, string, error) {
	srcKey, err := normalizeKey(src)
	if err != nil {
		return "", "", err
	}
	dstKey, err := normalizeKey(dst)
	if err != nil {
		return "", "", err
	}
	if srcKey == dstKey {
		return "", "", storage.NewError(storage.CodeInvalidFile, "source and destination are the same key "+srcKey, nil)
	}
	return srcKey, dstKey, nil
}

func publicReadPolicy(bucket string) string {
	policy := map[string]interface{}{
		"Version": "2012-10-17",
		"Statement": []map[string]interface{}{
			{
				"Effect":    "Allow",
				"Principal": map[string]interface{}{"AWS": []string{"*"}},
				"Action":    []string{"s3:GetObject"},
				"Resource":  []string{fmt.Sprintf("arn:aws:s3:::%s/*", bucket)},
			},
		},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}

// SortedTypes returns the stats' type keys in a stable order.
func SortedTypes(s *storage.Stats) []string {
	keys := make([]string, 0, len(s.ByType))
	for k := range s.ByType {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func count(c *prometheus.CounterVec, label string) {
	if c != nil {
		c.WithLabelValues(label).Inc()
	}
}
