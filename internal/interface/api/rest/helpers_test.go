package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"lego-filestore/internal/application/ports"
	domain "lego-filestore/internal/domain/file_association"
	"lego-filestore/internal/domain/storage"
	"lego-filestore/internal/domain/stored_file"
)

var errNotUsed = errors.New("not used")

type FakeStoredFileService struct {
	UploadFunc           func(ctx context.Context, in storage.UploadFile, customName, targetPath string) (*stored_file.StoredFile, error)
	FindStoredFileFunc   func(ctx context.Context, id stored_file.ID) (*stored_file.StoredFile, error)
	DeleteStoredFileFunc func(ctx context.Context, id stored_file.ID) error
}

func (f *FakeStoredFileService) Upload(ctx context.Context, in storage.UploadFile, customName, targetPath string) (*stored_file.StoredFile, error) {
	if f.UploadFunc == nil {
		return nil, errNotUsed
	}
	return f.UploadFunc(ctx, in, customName, targetPath)
}

func (f *FakeStoredFileService) FindStoredFile(ctx context.Context, id stored_file.ID) (*stored_file.StoredFile, error) {
	if f.FindStoredFileFunc == nil {
		return nil, errNotUsed
	}
	return f.FindStoredFileFunc(ctx, id)
}

func (f *FakeStoredFileService) DeleteStoredFile(ctx context.Context, id stored_file.ID) error {
	if f.DeleteStoredFileFunc == nil {
		return errNotUsed
	}
	return f.DeleteStoredFileFunc(ctx, id)
}

type FakeAssociationService struct {
	AssociateFunc                  func(ctx context.Context, fileID stored_file.ID, owner domain.OwnerRef, order int, opts domain.AssociateOptions) (*domain.FileAssociation, error)
	UploadForEntityFunc            func(ctx context.Context, owner domain.OwnerRef, in storage.UploadFile, customName, targetPath string) (*domain.Attachment, error)
	ListForEntityFunc              func(ctx context.Context, owner domain.OwnerRef) (domain.Attachments, error)
	ListAssociationsFunc           func(ctx context.Context, owner domain.OwnerRef) (domain.FileAssociations, error)
	ReplaceAllForEntityFunc        func(ctx context.Context, owner domain.OwnerRef, fileIDs []stored_file.ID) (domain.FileAssociations, error)
	ReorderFunc                    func(ctx context.Context, owner domain.OwnerRef, ids []domain.ID) (domain.FileAssociations, error)
	SetPrimaryFunc                 func(ctx context.Context, id domain.ID) error
	DeleteAssociationFunc          func(ctx context.Context, id domain.ID) error
	DeleteAssociationsAndFilesFunc func(ctx context.Context, owner domain.OwnerRef) error
}

func (f *FakeAssociationService) Associate(ctx context.Context, fileID stored_file.ID, owner domain.OwnerRef, order int, opts domain.AssociateOptions) (*domain.FileAssociation, error) {
	if f.AssociateFunc == nil {
		return nil, errNotUsed
	}
	return f.AssociateFunc(ctx, fileID, owner, order, opts)
}

func (f *FakeAssociationService) UploadForEntity(ctx context.Context, owner domain.OwnerRef, in storage.UploadFile, customName, targetPath string) (*domain.Attachment, error) {
	if f.UploadForEntityFunc == nil {
		return nil, errNotUsed
	}
	return f.UploadForEntityFunc(ctx, owner, in, customName, targetPath)
}

func (f *FakeAssociationService) ListForEntity(ctx context.Context, owner domain.OwnerRef) (domain.Attachments, error) {
	if f.ListForEntityFunc == nil {
		return nil, errNotUsed
	}
	return f.ListForEntityFunc(ctx, owner)
}

func (f *FakeAssociationService) ListAssociations(ctx context.Context, owner domain.OwnerRef) (domain.FileAssociations, error) {
	if f.ListAssociationsFunc == nil {
		return nil, errNotUsed
	}
	return f.ListAssociationsFunc(ctx, owner)
}

func (f *FakeAssociationService) ReplaceAllForEntity(ctx context.Context, owner domain.OwnerRef, fileIDs []stored_file.ID) (domain.FileAssociations, error) {
	if f.ReplaceAllForEntityFunc == nil {
		return nil, errNotUsed
	}
	return f.ReplaceAllForEntityFunc(ctx, owner, fileIDs)
}

func (f *FakeAssociationService) Reorder(ctx context.Context, owner domain.OwnerRef, ids []domain.ID) (domain.FileAssociations, error) {
	if f.ReorderFunc == nil {
		return nil, errNotUsed
	}
	return f.ReorderFunc(ctx, owner, ids)
}

func (f *FakeAssociationService) SetPrimary(ctx context.Context, id domain.ID) error {
	if f.SetPrimaryFunc == nil {
		return errNotUsed
	}
	return f.SetPrimaryFunc(ctx, id)
}

func (f *FakeAssociationService) DeleteAssociation(ctx context.Context, id domain.ID) error {
	if f.DeleteAssociationFunc == nil {
		return errNotUsed
	}
	return f.DeleteAssociationFunc(ctx, id)
}

func (f *FakeAssociationService) DeleteAssociationsAndFiles(ctx context.Context, owner domain.OwnerRef) error {
	if f.DeleteAssociationsAndFilesFunc == nil {
		return errNotUsed
	}
	return f.DeleteAssociationsAndFilesFunc(ctx, owner)
}

// FakeGateway implements only what the storage controller calls; the embedded
// nil interface panics on anything else.
type FakeGateway struct {
	ports.StorageGateway

	GetFunc        func(ctx context.Context, path string) (*storage.ObjectInfo, error)
	GetContentFunc func(ctx context.Context, path string) ([]byte, error)
	DeleteFunc     func(ctx context.Context, path string) error
	ExistsFunc     func(ctx context.Context, path string) (bool, error)
	ListFunc       func(ctx context.Context, prefix string, limit int) (storage.Objects, error)
	CopyFunc       func(ctx context.Context, src, dst string) error
	MoveFunc       func(ctx context.Context, src, dst string) error
	GetStatsFunc   func(ctx context.Context) (*storage.Stats, error)
}

func (f *FakeGateway) Get(ctx context.Context, p string) (*storage.ObjectInfo, error) {
	return f.GetFunc(ctx, p)
}

func (f *FakeGateway) GetContent(ctx context.Context, p string) ([]byte, error) {
	return f.GetContentFunc(ctx, p)
}

func (f *FakeGateway) Delete(ctx context.Context, p string) error { return f.DeleteFunc(ctx, p) }

func (f *FakeGateway) Exists(ctx context.Context, p string) (bool, error) {
	return f.ExistsFunc(ctx, p)
}

func (f *FakeGateway) List(ctx context.Context, prefix string, limit int) (storage.Objects, error) {
	return f.ListFunc(ctx, prefix, limit)
}

func (f *FakeGateway) Copy(ctx context.Context, src, dst string) error { return f.CopyFunc(ctx, src, dst) }

func (f *FakeGateway) Move(ctx context.Context, src, dst string) error { return f.MoveFunc(ctx, src, dst) }

func (f *FakeGateway) GetStats(ctx context.Context) (*storage.Stats, error) {
	return f.GetStatsFunc(ctx)
}

func (f *FakeGateway) PublicURL(key string) string { return "http://localhost:9000/media/" + key }

func (f *FakeGateway) KeyFromURL(rawURL string) (string, bool) {
	key, ok := strings.CutPrefix(rawURL, "http://localhost:9000/media/")
	return key, ok && key != ""
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func doReq(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader = http.NoBody
	switch v := body.(type) {
	case nil:
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		b, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func doMultipartReq(t *testing.T, r *gin.Engine, path string, fields map[string]string, fileName string, fileContent []byte) *httptest.ResponseRecorder {
	t.Helper()

	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := w.CreateFormFile(formFile, fileName)
		require.NoError(t, err)
		_, _ = fw.Write(fileContent)
	}
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPost, path, &b)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}
