package services

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"lego-filestore/config"
	"lego-filestore/internal/domain/file_association"
	"lego-filestore/internal/domain/stored_file"
	"lego-filestore/internal/infrastructure/mq"
)

type memStoredFileRepo struct {
	mu     sync.Mutex
	nextID stored_file.ID
	rows   map[stored_file.ID]*stored_file.StoredFile
	linked func(stored_file.ID) bool

	createErr error
}

func newMemStoredFileRepo() *memStoredFileRepo {
	return &memStoredFileRepo{nextID: 1000, rows: map[stored_file.ID]*stored_file.StoredFile{}}
}

func (m *memStoredFileRepo) seed(id stored_file.ID, key string, createdAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[id] = &stored_file.StoredFile{ID: id, StorageKey: key, SizeBytes: 1, CreatedAt: createdAt}
}

func (m *memStoredFileRepo) CreateStoredFile(_ context.Context, req *stored_file.StoredFile) (*stored_file.StoredFile, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	sf := *req
	sf.ID = m.nextID
	sf.CreatedAt = time.Now()
	m.rows[sf.ID] = &sf
	out := sf
	return &out, nil
}

func (m *memStoredFileRepo) FetchStoredFile(_ context.Context, id stored_file.ID) (*stored_file.StoredFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sf, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	out := *sf
	return &out, nil
}

func (m *memStoredFileRepo) FetchStoredFiles(_ context.Context, ids []stored_file.ID) (map[stored_file.ID]*stored_file.StoredFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[stored_file.ID]*stored_file.StoredFile, len(ids))
	for _, id := range ids {
		if sf, ok := m.rows[id]; ok {
			c := *sf
			out[id] = &c
		}
	}
	return out, nil
}

func (m *memStoredFileRepo) FetchOrphanedStoredFiles(_ context.Context, olderThan time.Time, limit int) (stored_file.StoredFiles, error) {
	m.mu.Lock()
	rows := make(stored_file.StoredFiles, 0, len(m.rows))
	for _, sf := range m.rows {
		c := *sf
		rows = append(rows, &c)
	}
	m.mu.Unlock()

	slices.SortFunc(rows, func(a, b *stored_file.StoredFile) int { return int(a.ID - b.ID) })
	out := stored_file.StoredFiles{}
	for _, sf := range rows {
		if len(out) == limit {
			break
		}
		if sf.CreatedAt.Before(olderThan) && (m.linked == nil || !m.linked(sf.ID)) {
			out = append(out, sf)
		}
	}
	return out, nil
}

func (m *memStoredFileRepo) DeleteStoredFile(_ context.Context, id stored_file.ID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[id]
	delete(m.rows, id)
	return ok, nil
}

func (m *memStoredFileRepo) has(id stored_file.ID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[id]
	return ok
}

// memAssocRepo runs WithOwnerLock callbacks against itself; the fake has no
// transactions to roll back.
type memAssocRepo struct {
	mu     sync.Mutex
	nextID file_association.ID
	rows   map[file_association.ID]*file_association.FileAssociation
	files  *memStoredFileRepo

	createErr error
}

func newMemAssocRepo(files *memStoredFileRepo) *memAssocRepo {
	r := &memAssocRepo{rows: map[file_association.ID]*file_association.FileAssociation{}, files: files}
	files.linked = r.linked
	return r
}

func (m *memAssocRepo) linked(id stored_file.ID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.FileID == id {
			return true
		}
	}
	return false
}

func (m *memAssocRepo) CreateAssociation(_ context.Context, req *file_association.FileAssociation) (*file_association.FileAssociation, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	a := *req
	a.ID = m.nextID
	a.CreatedAt = time.Now()
	m.rows[a.ID] = &a
	out := a
	return &out, nil
}

func (m *memAssocRepo) CreateAssociations(ctx context.Context, reqs file_association.FileAssociations) (file_association.FileAssociations, error) {
	out := make(file_association.FileAssociations, 0, len(reqs))
	for _, r := range reqs {
		a, err := m.CreateAssociation(ctx, r)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *memAssocRepo) FetchAssociation(_ context.Context, id file_association.ID) (*file_association.FileAssociation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	out := *a
	return &out, nil
}

func (m *memAssocRepo) FetchAssociations(_ context.Context, owner file_association.OwnerRef) (file_association.FileAssociations, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := file_association.FileAssociations{}
	for _, a := range m.rows {
		if a.Owner == owner {
			c := *a
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, file_association.Compare)
	return out, nil
}

// FetchAttachments returns rows in map order so callers must sort.
func (m *memAssocRepo) FetchAttachments(ctx context.Context, owner file_association.OwnerRef) (file_association.Attachments, error) {
	m.mu.Lock()
	rows := file_association.FileAssociations{}
	for _, a := range m.rows {
		if a.Owner == owner {
			c := *a
			rows = append(rows, &c)
		}
	}
	m.mu.Unlock()

	out := make(file_association.Attachments, 0, len(rows))
	for _, a := range rows {
		sf, _ := m.files.FetchStoredFile(ctx, a.FileID)
		out = append(out, &file_association.Attachment{Association: a, File: sf})
	}
	return out, nil
}

func (m *memAssocRepo) FetchDanglingAssociations(_ context.Context, limit int) (file_association.FileAssociations, error) {
	m.mu.Lock()
	rows := file_association.FileAssociations{}
	for _, a := range m.rows {
		c := *a
		rows = append(rows, &c)
	}
	m.mu.Unlock()

	slices.SortFunc(rows, func(a, b *file_association.FileAssociation) int { return int(a.ID - b.ID) })
	out := file_association.FileAssociations{}
	for _, a := range rows {
		if len(out) == limit {
			break
		}
		if !m.files.has(a.FileID) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAssocRepo) UpdateDisplayOrder(_ context.Context, id file_association.ID, order int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.rows[id]; ok {
		a.DisplayOrder = order
	}
	return nil
}

func (m *memAssocRepo) SetPrimaryFlag(_ context.Context, id file_association.ID, primary bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.rows[id]; ok {
		a.IsPrimary = primary
	}
	return nil
}

func (m *memAssocRepo) ClearPrimary(_ context.Context, owner file_association.OwnerRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.Owner == owner {
			a.IsPrimary = false
		}
	}
	return nil
}

func (m *memAssocRepo) DeleteAssociation(_ context.Context, id file_association.ID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[id]
	delete(m.rows, id)
	return ok, nil
}

func (m *memAssocRepo) DeleteAssociations(_ context.Context, owner file_association.OwnerRef) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, a := range m.rows {
		if a.Owner == owner {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func (m *memAssocRepo) WithOwnerLock(
	ctx context.Context,
	_ file_association.OwnerRef,
	fn func(ctx context.Context, r file_association.Repository) error,
) error {
	return fn(ctx, m)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []mq.Event
}

func (p *recordingPublisher) Publish(e mq.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Action)
	}
	return out
}

type testServices struct {
	store        *memStore
	files        *memStoredFileRepo
	assocs       *memAssocRepo
	publisher    *recordingPublisher
	gateway      *StorageGateway
	storedFiles  *StoredFileService
	associations *FileAssociationService
}

func newTestServices() *testServices {
	ts := &testServices{
		store:     newMemStore(),
		files:     newMemStoredFileRepo(),
		publisher: &recordingPublisher{},
	}
	ts.assocs = newMemAssocRepo(ts.files)
	ts.gateway = newTestGateway(ts.store)
	ts.storedFiles = NewStoredFileService(ts.gateway, ts.files, ts.publisher, zap.NewNop(), nil).(*StoredFileService)
	ts.associations = NewFileAssociationService(
		ts.assocs, ts.files, ts.storedFiles, ts.gateway, ts.publisher, zap.NewNop(), nil,
	).(*FileAssociationService)
	return ts
}

func (ts *testServices) sweeper(cfg config.Sweep) *Sweeper {
	return NewSweeper(ts.assocs, ts.files, ts.associations, ts.gateway, cfg, zap.NewNop()).(*Sweeper)
}
