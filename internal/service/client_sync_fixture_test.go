package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MKhiriev/go-favsync/internal/adapter"
	"github.com/MKhiriev/go-favsync/internal/logger"
	"github.com/MKhiriev/go-favsync/internal/store"
	"github.com/MKhiriev/go-favsync/internal/workers"
	"github.com/MKhiriev/go-favsync/models"
	"github.com/stretchr/testify/require"
)

// ── deterministic collaborators ──────────────────────────────────────────────

// sequentialIDs issues "<prefix>-1", "<prefix>-2", ...
type sequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

func (g *sequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// testClock returns a strictly increasing time, step apart, on every call.
type testClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC), step: time.Second}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.t
	c.t = c.t.Add(c.step)
	return now
}

// gatedRemote blocks FetchChanges until the gate is closed, which pins a
// pipeline in the download phase.
type gatedRemote struct {
	adapter.RemoteClient
	gate    chan struct{}
	entered chan struct{}
	once    sync.Once
}

func newGatedRemote(remote adapter.RemoteClient) *gatedRemote {
	return &gatedRemote{RemoteClient: remote, gate: make(chan struct{}), entered: make(chan struct{})}
}

func (g *gatedRemote) FetchChanges(ctx context.Context, t models.EntityType, token models.ChangeToken) (models.ChangeSet, error) {
	g.once.Do(func() { close(g.entered) })
	select {
	case <-g.gate:
	case <-ctx.Done():
		return models.ChangeSet{}, ctx.Err()
	}
	return g.RemoteClient.FetchChanges(ctx, t, token)
}

// ── fixture ──────────────────────────────────────────────────────────────────

type syncFixture struct {
	storage  store.LocalStorage
	remote   *adapter.MemoryRemote
	worker   *workers.Serial
	clock    *testClock
	ids      *sequentialIDs
	resolver *conflictResolver
	svc      *clientSyncService
	changes  *localChangeService
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	wrapRemote func(adapter.RemoteClient) adapter.RemoteClient
	strict     bool
}

func withRemote(wrap func(adapter.RemoteClient) adapter.RemoteClient) fixtureOption {
	return func(c *fixtureConfig) { c.wrapRemote = wrap }
}

func withStrictConflicts() fixtureOption {
	return func(c *fixtureConfig) { c.strict = true }
}

// newSyncFixture wires the real engine over the in-memory store and remote,
// with a running serial worker.
func newSyncFixture(t *testing.T, opts ...fixtureOption) *syncFixture {
	t.Helper()

	cfg := fixtureConfig{wrapRemote: func(r adapter.RemoteClient) adapter.RemoteClient { return r }}
	for _, opt := range opts {
		opt(&cfg)
	}

	f := &syncFixture{
		storage: store.NewMemoryStorage(),
		remote:  adapter.NewMemoryRemote(),
		worker:  workers.NewSerial(4, logger.Nop()),
		clock:   newTestClock(),
		ids:     &sequentialIDs{prefix: "id"},
	}
	f.resolver = newConflictResolver(f.storage, f.ids, DefaultMergeFuncs(), f.clock.Now, logger.Nop())
	f.svc = newClientSyncService(f.storage, cfg.wrapRemote(f.remote), f.resolver, f.worker, f.ids, cfg.strict, f.clock.Now, logger.Nop())
	f.changes = newLocalChangeService(f.storage, f.ids, f.clock.Now, logger.Nop())

	f.worker.Run(context.Background())
	t.Cleanup(func() {
		f.worker.Stop()
		_ = f.storage.Close()
	})

	return f
}

// sync starts a sync and waits for its terminal snapshot.
func (f *syncFixture) sync(t *testing.T) models.SyncOperation {
	t.Helper()

	op, err := f.svc.StartSync(context.Background())
	require.NoError(t, err)

	return f.await(t, op.ID)
}

func (f *syncFixture) await(t *testing.T, id string) models.SyncOperation {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done, err := f.svc.Await(ctx, id)
	require.NoError(t, err)
	return done
}

func (f *syncFixture) addFolder(t *testing.T, name string) *models.Folder {
	t.Helper()

	folder := &models.Folder{Name: name}
	require.NoError(t, f.changes.SaveFolder(context.Background(), folder))
	return folder
}

func (f *syncFixture) folder(t *testing.T, id string) *models.Folder {
	t.Helper()

	e, err := f.storage.Entities().GetByID(context.Background(), models.EntityFolder, id)
	require.NoError(t, err)
	return e.(*models.Folder)
}

func (f *syncFixture) link(t *testing.T, et models.EntityType, localID string) models.SyncRecord {
	t.Helper()

	rec, err := f.storage.Metadata().GetSyncRecord(context.Background(), et, localID)
	require.NoError(t, err)
	return rec
}

// putFolder writes a folder record on the remote as another device would.
func (f *syncFixture) putFolder(t *testing.T, remoteID, name string, modifiedAt time.Time) models.RemoteRecord {
	t.Helper()
	return f.remote.Put(folderRecord(t, remoteID, name, modifiedAt))
}

func folderRecord(t *testing.T, remoteID, name string, modifiedAt time.Time) models.RemoteRecord {
	t.Helper()

	fields, err := (&models.Folder{Name: name}).RecordFields()
	require.NoError(t, err)

	return models.RemoteRecord{
		RecordType: models.EntityFolder,
		RemoteID:   remoteID,
		ModifiedAt: modifiedAt,
		Fields:     fields,
	}
}

// seedLinked stores e with status and a sync record last synced at
// lastSynced, as if an earlier sync had happened.
func seedLinked(t *testing.T, storage store.LocalStorage, e models.Entity, status models.EntitySyncStatus, remoteID string, lastSynced time.Time) {
	t.Helper()

	e.SetSyncStatus(status)
	err := storage.WithinTx(context.Background(), func(ctx context.Context, tx store.Storage) error {
		if err := tx.Entities().Upsert(ctx, e); err != nil {
			return err
		}
		return tx.Metadata().UpsertSyncRecord(ctx, models.SyncRecord{
			EntityType:       e.GetType(),
			LocalID:          e.GetID(),
			RemoteID:         remoteID,
			RemoteVersionTag: "v1",
			LastSynced:       lastSynced,
		})
	})
	require.NoError(t, err)
}
