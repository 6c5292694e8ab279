package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/equipkeeper/internal/common"
	"github.com/dmitrijs2005/equipkeeper/internal/dbx"
	"github.com/dmitrijs2005/equipkeeper/internal/logging"
	"github.com/dmitrijs2005/equipkeeper/internal/metrics"
	"github.com/dmitrijs2005/equipkeeper/internal/server/config"
	"github.com/dmitrijs2005/equipkeeper/internal/server/maintenance"
	"github.com/dmitrijs2005/equipkeeper/internal/server/models"
	"github.com/dmitrijs2005/equipkeeper/internal/server/repositories/accesses"
	"github.com/dmitrijs2005/equipkeeper/internal/server/repositories/assets"
	"github.com/dmitrijs2005/equipkeeper/internal/server/repositories/entries"
	"github.com/dmitrijs2005/equipkeeper/internal/server/repositories/equipments"
	"github.com/dmitrijs2005/equipkeeper/internal/server/repositories/images"
	"github.com/dmitrijs2005/equipkeeper/internal/server/repositories/tasks"
	"github.com/dmitrijs2005/equipkeeper/internal/server/repositories/users"
)

// --- in-memory store shared by the fake repositories ---

type store struct {
	mu sync.Mutex

	users      map[string]*models.User
	assets     map[string]*models.Asset
	links      map[string]*models.AssetAccess
	equipments map[string]*models.Equipment
	tasks      map[string]*models.Task
	entries    map[string]*models.Entry
	images     map[string]*models.Image

	// failOnce makes the named operation fail a single time.
	failOnce map[string]error
}

func newStore() *store {
	return &store{
		users:      map[string]*models.User{},
		assets:     map[string]*models.Asset{},
		links:      map[string]*models.AssetAccess{},
		equipments: map[string]*models.Equipment{},
		tasks:      map[string]*models.Task{},
		entries:    map[string]*models.Entry{},
		images:     map[string]*models.Image{},
		failOnce:   map[string]error{},
	}
}

func (s *store) fail(op string) error {
	if err, ok := s.failOnce[op]; ok {
		delete(s.failOnce, op)
		return err
	}
	return nil
}

func linkKey(assetID, userID string) string { return assetID + "/" + userID }

func sortedByID[T any](m map[string]*T, keep func(*T) bool) []*T {
	ids := make([]string, 0, len(m))
	for id, v := range m {
		if keep(v) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	out := make([]*T, 0, len(ids))
	for _, id := range ids {
		cp := *m[id]
		out = append(out, &cp)
	}
	return out
}

func byUIID[T any](m map[string]*T, uiid func(*T) string, want string) (*T, error) {
	for _, v := range m {
		if uiid(v) == want {
			cp := *v
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func byID[T any](m map[string]*T, id string) (*T, error) {
	v, ok := m[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *v
	return &cp, nil
}

func remove[T any](m map[string]*T, id string) error {
	if _, ok := m[id]; !ok {
		return common.ErrorNotFound
	}
	delete(m, id)
	return nil
}

// --- fake repositories ---

type fakeUsers struct{ *store }

func (f fakeUsers) Create(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return byID(f.users, id)
}

func (f fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return byUIID(f.users, func(u *models.User) string { return u.Email }, email)
}

type fakeAssets struct{ *store }

func (f fakeAssets) Create(_ context.Context, a *models.Asset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("assets.Create"); err != nil {
		return err
	}
	cp := *a
	f.assets[a.ID] = &cp
	return nil
}

func (f fakeAssets) GetByID(_ context.Context, id string) (*models.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return byID(f.assets, id)
}

func (f fakeAssets) GetByUIID(_ context.Context, uiid string) (*models.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return byUIID(f.assets, func(a *models.Asset) string { return a.UIID }, uiid)
}

func (f fakeAssets) Update(_ context.Context, a *models.Asset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.assets[a.ID]; !ok {
		return common.ErrorNotFound
	}
	cp := *a
	f.assets[a.ID] = &cp
	return nil
}

func (f fakeAssets) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return remove(f.assets, id)
}

type fakeAccesses struct{ *store }

func (f fakeAccesses) Create(_ context.Context, l *models.AssetAccess) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *l
	f.links[linkKey(l.AssetID, l.UserID)] = &cp
	return nil
}

func (f fakeAccesses) Get(_ context.Context, assetID, userID string) (*models.AssetAccess, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return byID(f.links, linkKey(assetID, userID))
}

func (f fakeAccesses) ListByUser(_ context.Context, userID string) ([]*models.AssetAccess, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return sortedByID(f.links, func(l *models.AssetAccess) bool { return l.UserID == userID }), nil
}

func (f fakeAccesses) ListByAsset(_ context.Context, assetID string) ([]*models.AssetAccess, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return sortedByID(f.links, func(l *models.AssetAccess) bool { return l.AssetID == assetID }), nil
}

func (f fakeAccesses) CountOwners(_ context.Context, assetID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, l := range f.links {
		if l.AssetID == assetID && !l.ReadOnly {
			n++
		}
	}
	return n, nil
}

func (f fakeAccesses) Delete(_ context.Context, assetID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return remove(f.links, linkKey(assetID, userID))
}

type fakeEquipments struct{ *store }

func (f fakeEquipments) Create(_ context.Context, e *models.Equipment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *e
	f.equipments[e.ID] = &cp
	return nil
}

func (f fakeEquipments) GetByID(_ context.Context, id string) (*models.Equipment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return byID(f.equipments, id)
}

func (f fakeEquipments) GetByUIID(_ context.Context, uiid string) (*models.Equipment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return byUIID(f.equipments, func(e *models.Equipment) string { return e.UIID }, uiid)
}

func (f fakeEquipments) ListByAsset(_ context.Context, assetID string) ([]*models.Equipment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return sortedByID(f.equipments, func(e *models.Equipment) bool { return e.AssetID == assetID }), nil
}

func (f fakeEquipments) Update(_ context.Context, e *models.Equipment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.equipments[e.ID]; !ok {
		return common.ErrorNotFound
	}
	cp := *e
	f.equipments[e.ID] = &cp
	return nil
}

func (f fakeEquipments) UpdateAge(_ context.Context, id string, age int, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.equipments[id]
	if !ok {
		return common.ErrorNotFound
	}
	e.Age = age
	e.AgeUpdatedAt = at
	return nil
}

func (f fakeEquipments) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return remove(f.equipments, id)
}

type fakeTasks struct{ *store }

func (f fakeTasks) Create(_ context.Context, t *models.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	f.tasks[t.ID] = &cp
	return nil
}

func (f fakeTasks) GetByID(_ context.Context, id string) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return byID(f.tasks, id)
}

func (f fakeTasks) GetByUIID(_ context.Context, uiid string) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return byUIID(f.tasks, func(t *models.Task) string { return t.UIID }, uiid)
}

func (f fakeTasks) ListByEquipment(_ context.Context, equipmentID string) ([]*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return sortedByID(f.tasks, func(t *models.Task) bool { return t.EquipmentID == equipmentID }), nil
}

func (f fakeTasks) Update(_ context.Context, t *models.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[t.ID]; !ok {
		return common.ErrorNotFound
	}
	cp := *t
	f.tasks[t.ID] = &cp
	return nil
}

func (f fakeTasks) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return remove(f.tasks, id)
}

type fakeEntries struct{ *store }

func (f fakeEntries) Create(_ context.Context, e *models.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *e
	f.entries[e.ID] = &cp
	return nil
}

func (f fakeEntries) GetByID(_ context.Context, id string) (*models.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return byID(f.entries, id)
}

func (f fakeEntries) GetByUIID(_ context.Context, uiid string) (*models.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return byUIID(f.entries, func(e *models.Entry) string { return e.UIID }, uiid)
}

func (f fakeEntries) ListByEquipment(_ context.Context, equipmentID string) ([]*models.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return sortedByID(f.entries, func(e *models.Entry) bool { return e.EquipmentID == equipmentID }), nil
}

func (f fakeEntries) ListByTask(_ context.Context, equipmentID, taskID string) ([]*models.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return sortedByID(f.entries, func(e *models.Entry) bool {
		return e.EquipmentID == equipmentID && e.TaskID != nil && *e.TaskID == taskID
	}), nil
}

func (f fakeEntries) ListOrphans(_ context.Context, equipmentID string) ([]*models.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return sortedByID(f.entries, func(e *models.Entry) bool { return e.EquipmentID == equipmentID && e.IsOrphan() }), nil
}

func (f fakeEntries) Update(_ context.Context, e *models.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.entries[e.ID]; !ok {
		return common.ErrorNotFound
	}
	cp := *e
	f.entries[e.ID] = &cp
	return nil
}

func (f fakeEntries) Acknowledge(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok {
		return common.ErrorNotFound
	}
	e.Ack = true
	return nil
}

func (f fakeEntries) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return remove(f.entries, id)
}

type fakeImages struct{ *store }

func (f fakeImages) Create(_ context.Context, img *models.Image) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *img
	f.images[img.ID] = &cp
	return nil
}

func (f fakeImages) GetByUIID(_ context.Context, uiid string) (*models.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return byUIID(f.images, func(i *models.Image) string { return i.UIID }, uiid)
}

func (f fakeImages) ListByParent(_ context.Context, parent models.ParentRef) ([]*models.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("images.ListByParent"); err != nil {
		return nil, err
	}
	return sortedByID(f.images, func(i *models.Image) bool { return i.Parent == parent }), nil
}

func (f fakeImages) MarkUploaded(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	img, ok := f.images[id]
	if !ok {
		return common.ErrorNotFound
	}
	img.UploadStatus = models.UploadCompleted
	return nil
}

func (f fakeImages) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return remove(f.images, id)
}

type fakeRepoManager struct{ s *store }

func (m fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m fakeRepoManager) Users(dbx.DBTX) users.Repository              { return fakeUsers{m.s} }
func (m fakeRepoManager) Assets(dbx.DBTX) assets.Repository            { return fakeAssets{m.s} }
func (m fakeRepoManager) Accesses(dbx.DBTX) accesses.Repository        { return fakeAccesses{m.s} }
func (m fakeRepoManager) Equipments(dbx.DBTX) equipments.Repository    { return fakeEquipments{m.s} }
func (m fakeRepoManager) Tasks(dbx.DBTX) tasks.Repository              { return fakeTasks{m.s} }
func (m fakeRepoManager) Entries(dbx.DBTX) entries.Repository          { return fakeEntries{m.s} }
func (m fakeRepoManager) Images(dbx.DBTX) images.Repository            { return fakeImages{m.s} }

// --- blob store and presigner ---

type fakeBlobs struct {
	mu      sync.Mutex
	deleted []string
	failErr error
}

func (b *fakeBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failErr != nil {
		return b.failErr
	}
	b.deleted = append(b.deleted, key)
	return nil
}

func (b *fakeBlobs) Deleted() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := append([]string(nil), b.deleted...)
	sort.Strings(out)
	return out
}

func (b *fakeBlobs) PresignPut(_ context.Context, key string) (string, error) {
	return "https://s3.local/put/" + key, nil
}

func (b *fakeBlobs) PresignGet(_ context.Context, key string) (string, error) {
	return "https://s3.local/get/" + key, nil
}

var errBoom = errors.New("boom")

// --- harness ---

var testNow = time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

type harness struct {
	db      *sql.DB
	mock    sqlmock.Sqlmock
	st      *store
	blobs   *fakeBlobs
	metrics *metrics.Metrics

	access     *AccessService
	cascade    *CascadeService
	assets     *AssetService
	equipments *EquipmentService
	tasks      *TaskService
	entries    *EntryService
	images     *ImageService
}

func newHarness(t *testing.T, retries int) *harness {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	st := newStore()
	rm := fakeRepoManager{s: st}
	blobs := &fakeBlobs{}
	mt := metrics.New()
	log := logging.Nop{}
	clock := maintenance.FixedClock{T: testNow}
	cfg := &config.Config{CascadeRetries: retries, BlobDeleteConcurrency: 2}

	access := NewAccessService(db, rm, log, mt)
	cascade := NewCascadeService(db, rm, access, blobs, log, mt, cfg)

	return &harness{
		db:         db,
		mock:       mock,
		st:         st,
		blobs:      blobs,
		metrics:    mt,
		access:     access,
		cascade:    cascade,
		assets:     NewAssetService(db, rm, access, cascade, log),
		equipments: NewEquipmentService(db, rm, access, cascade, clock, log),
		tasks:      NewTaskService(db, rm, access, cascade, maintenance.NewCalculator(clock), log, mt),
		entries:    NewEntryService(db, rm, access, cascade, log),
		images:     NewImageService(db, rm, access, cascade, blobs, clock, log),
	}
}

func (h *harness) expectTx() {
	h.mock.ExpectBegin()
	h.mock.ExpectCommit()
}

// Fixture IDs. Public IDs are the lower-case variants.
const (
	owner    = "u-owner"
	guest    = "u-guest"
	stranger = "u-stranger"
)

// seed builds one boat owned by owner and shared with guest:
//
//	asset a1 (image img-a1)
//	  equipment e1 (image img-e1)
//	    task t1 (image img-t1): entries n1 (image img-n1), n2
//	    task t2: entry n3
//	    orphan entry n4
//	  equipment e2: task t3 with entry n5
//
// plus an unrelated asset a2 with equipment e3 owned by owner.
func (h *harness) seed() {
	s := h.st
	for _, id := range []string{owner, guest, stranger} {
		s.users[id] = &models.User{ID: id, Name: id, Email: id + "@example.com"}
	}

	s.assets["A1"] = &models.Asset{ID: "A1", UIID: "a1", UserID: owner, Name: "Boat"}
	s.assets["A2"] = &models.Asset{ID: "A2", UIID: "a2", UserID: owner, Name: "Car"}
	s.links[linkKey("A1", owner)] = &models.AssetAccess{AssetID: "A1", UserID: owner}
	s.links[linkKey("A1", guest)] = &models.AssetAccess{AssetID: "A1", UserID: guest, ReadOnly: true}
	s.links[linkKey("A2", owner)] = &models.AssetAccess{AssetID: "A2", UserID: owner}

	install := time.Date(2015, time.January, 20, 0, 0, 0, 0, time.UTC)
	for _, e := range []*models.Equipment{
		{ID: "E1", UIID: "e1", AssetID: "A1", Name: "Engine", AgeAcquisitionType: models.AgeAcquisitionManualEntry, Age: 12345, Installation: install},
		{ID: "E2", UIID: "e2", AssetID: "A1", Name: "Generator", AgeAcquisitionType: models.AgeAcquisitionTime, Installation: install},
		{ID: "E3", UIID: "e3", AssetID: "A2", Name: "Motor", AgeAcquisitionType: models.AgeAcquisitionTracker, Installation: install},
	} {
		s.equipments[e.ID] = e
	}

	for _, t := range []*models.Task{
		{ID: "T1", UIID: "t1", EquipmentID: "E1", Name: "Oil", UsagePeriodInHour: 200, PeriodInMonth: 12},
		{ID: "T2", UIID: "t2", EquipmentID: "E1", Name: "Impeller", UsagePeriodInHour: models.UsageNotTracked, PeriodInMonth: 24},
		{ID: "T3", UIID: "t3", EquipmentID: "E2", Name: "Filter", UsagePeriodInHour: 100, PeriodInMonth: 6},
	} {
		s.tasks[t.ID] = t
	}

	t1, t2, t3 := "T1", "T2", "T3"
	for _, e := range []*models.Entry{
		{ID: "N1", UIID: "n1", EquipmentID: "E1", TaskID: &t1, Date: testNow.AddDate(0, -2, 0), Age: 12335, Ack: true},
		{ID: "N2", UIID: "n2", EquipmentID: "E1", TaskID: &t1, Date: testNow.AddDate(0, -14, 0), Age: 11000, Ack: true},
		{ID: "N3", UIID: "n3", EquipmentID: "E1", TaskID: &t2, Date: testNow.AddDate(0, -1, 0), Ack: true},
		{ID: "N4", UIID: "n4", EquipmentID: "E1", Date: testNow.AddDate(0, -3, 0), Ack: true},
		{ID: "N5", UIID: "n5", EquipmentID: "E2", TaskID: &t3, Date: testNow.AddDate(0, -7, 0), Ack: true},
	} {
		s.entries[e.ID] = e
	}

	for _, img := range []*models.Image{
		{ID: "IA1", UIID: "img-a1", Parent: models.ParentRef{Kind: models.ParentAsset, ID: "A1"}, StorageKey: "k/a1", UploadStatus: models.UploadCompleted},
		{ID: "IE1", UIID: "img-e1", Parent: models.ParentRef{Kind: models.ParentEquipment, ID: "E1"}, StorageKey: "k/e1", UploadStatus: models.UploadCompleted},
		{ID: "IT1", UIID: "img-t1", Parent: models.ParentRef{Kind: models.ParentTask, ID: "T1"}, StorageKey: "k/t1", UploadStatus: models.UploadPending},
		{ID: "IN1", UIID: "img-n1", Parent: models.ParentRef{Kind: models.ParentEntry, ID: "N1"}, StorageKey: "k/n1", UploadStatus: models.UploadCompleted},
	} {
		s.images[img.ID] = img
	}
}
