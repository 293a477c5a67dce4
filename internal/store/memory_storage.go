// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/MKhiriev/go-favsync/models"
)

type entityKey struct {
	t  models.EntityType
	id string
}

// memoryState is one consistent copy of everything the local store holds.
type memoryState struct {
	entities   map[entityKey]models.Entity
	status     *models.SyncStatus
	operations map[string]models.SyncOperation
	records    map[entityKey]models.SyncRecord
	tokens     map[models.EntityType]models.ChangeToken
	conflicts  map[string]models.SyncConflict
}

func newMemoryState() *memoryState {
	return &memoryState{
		entities:   make(map[entityKey]models.Entity),
		operations: make(map[string]models.SyncOperation),
		records:    make(map[entityKey]models.SyncRecord),
		tokens:     make(map[models.EntityType]models.ChangeToken),
		conflicts:  make(map[string]models.SyncConflict),
	}
}

func (s *memoryState) clone() *memoryState {
	c := &memoryState{
		entities:   make(map[entityKey]models.Entity, len(s.entities)),
		operations: maps.Clone(s.operations),
		records:    maps.Clone(s.records),
		tokens:     maps.Clone(s.tokens),
		conflicts:  maps.Clone(s.conflicts),
	}
	for k, e := range s.entities {
		c.entities[k] = models.CloneEntity(e)
	}
	if s.status != nil {
		st := *s.status
		c.status = &st
	}

	return c
}

// memoryStorage is a [LocalStorage] kept entirely in process memory.
//
// Transactions run on a private copy of the state which replaces the
// committed one only when fn succeeds, so a failed transaction leaves no
// trace. Write transactions are serialised by txMu, reads of the committed
// state take mu.
type memoryStorage struct {
	txMu sync.Mutex

	mu    sync.RWMutex
	state *memoryState

	owner ownerLock
}

// NewMemoryStorage returns an empty in-memory store.
func NewMemoryStorage() LocalStorage {
	return &memoryStorage{state: newMemoryState()}
}

func (s *memoryStorage) Entities() EntityRepository {
	return memoryEntities{view: s.committed}
}

func (s *memoryStorage) Metadata() SyncMetadataRepository {
	return memoryMetadata{view: s.committed}
}

// committed runs fn against the committed state. Mutations through the
// committed view are applied in place under the write lock.
func (s *memoryStorage) committed(write bool, fn func(st *memoryState) error) error {
	if write {
		s.mu.Lock()
		defer s.mu.Unlock()
	} else {
		s.mu.RLock()
		defer s.mu.RUnlock()
	}

	return fn(s.state)
}

type memoryTx struct {
	st *memoryState
}

func (t memoryTx) view(_ bool, fn func(st *memoryState) error) error {
	return fn(t.st)
}

func (t memoryTx) Entities() EntityRepository       { return memoryEntities{view: t.view} }
func (t memoryTx) Metadata() SyncMetadataRepository { return memoryMetadata{view: t.view} }

func (s *memoryStorage) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Storage) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	work := s.state.clone()
	s.mu.RUnlock()

	if err := fn(ctx, memoryTx{st: work}); err != nil {
		return err
	}

	s.mu.Lock()
	s.state = work
	s.mu.Unlock()

	return nil
}

func (s *memoryStorage) Lock() error   { return s.owner.Lock() }
func (s *memoryStorage) Unlock() error { return s.owner.Unlock() }

func (s *memoryStorage) Close() error {
	return s.owner.Unlock()
}

// ── entities ─────────────────────────────────────────────────────────────────

type memoryView func(write bool, fn func(st *memoryState) error) error

type memoryEntities struct {
	view memoryView
}

func sortEntities(entities []models.Entity) {
	sort.Slice(entities, func(i, j int) bool {
		a, b := entities[i], entities[j]
		if !a.GetLastModified().Equal(b.GetLastModified()) {
			return a.GetLastModified().Before(b.GetLastModified())
		}
		return a.GetID() < b.GetID()
	})
}

func (r memoryEntities) selectEntities(t models.EntityType, match func(models.Entity) bool) ([]models.Entity, error) {
	if _, err := tableFor(t); err != nil {
		return nil, err
	}

	var entities []models.Entity
	err := r.view(false, func(st *memoryState) error {
		for k, e := range st.entities {
			if k.t == t && match(e) {
				entities = append(entities, models.CloneEntity(e))
			}
		}
		return nil
	})
	sortEntities(entities)

	return entities, err
}

func (r memoryEntities) QueryPending(_ context.Context, t models.EntityType, status models.EntitySyncStatus) ([]models.Entity, error) {
	return r.selectEntities(t, func(e models.Entity) bool { return e.GetSyncStatus() == status })
}

func (r memoryEntities) List(_ context.Context, t models.EntityType) ([]models.Entity, error) {
	return r.selectEntities(t, func(models.Entity) bool { return true })
}

func (r memoryEntities) GetByID(_ context.Context, t models.EntityType, id string) (models.Entity, error) {
	var found models.Entity
	err := r.view(false, func(st *memoryState) error {
		e, ok := st.entities[entityKey{t, id}]
		if !ok {
			return fmt.Errorf("%w: %s %s", ErrEntityNotFound, t, id)
		}
		found = models.CloneEntity(e)
		return nil
	})

	return found, err
}

func (r memoryEntities) Upsert(_ context.Context, e models.Entity) error {
	if _, err := tableFor(e.GetType()); err != nil {
		return err
	}

	return r.view(true, func(st *memoryState) error {
		st.entities[entityKey{e.GetType(), e.GetID()}] = models.CloneEntity(e)
		return nil
	})
}

func (r memoryEntities) Delete(_ context.Context, t models.EntityType, id string) error {
	return r.view(true, func(st *memoryState) error {
		delete(st.entities, entityKey{t, id})
		return nil
	})
}

func (r memoryEntities) CountUnsynced(context.Context) (int, error) {
	n := 0
	err := r.view(false, func(st *memoryState) error {
		for _, e := range st.entities {
			if e.GetSyncStatus() != models.StatusSynced {
				n++
			}
		}
		return nil
	})

	return n, err
}

// ── metadata ─────────────────────────────────────────────────────────────────

type memoryMetadata struct {
	view memoryView
}

func (r memoryMetadata) GetStatus(context.Context) (models.SyncStatus, error) {
	status := models.DefaultSyncStatus()
	err := r.view(false, func(st *memoryState) error {
		if st.status != nil {
			status = *st.status
		}
		return nil
	})

	return status, err
}

func (r memoryMetadata) SaveStatus(_ context.Context, status models.SyncStatus) error {
	return r.view(true, func(st *memoryState) error {
		st.status = &status
		return nil
	})
}

func (r memoryMetadata) SaveOperation(_ context.Context, op models.SyncOperation) error {
	return r.view(true, func(st *memoryState) error {
		st.operations[op.ID] = op
		return nil
	})
}

func (r memoryMetadata) GetOperation(_ context.Context, id string) (models.SyncOperation, error) {
	var op models.SyncOperation
	err := r.view(false, func(st *memoryState) error {
		found, ok := st.operations[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrOperationNotFound, id)
		}
		op = found
		return nil
	})

	return op, err
}

func (r memoryMetadata) ListOperationsByStatus(_ context.Context, statuses ...models.OperationStatus) ([]models.SyncOperation, error) {
	var ops []models.SyncOperation
	err := r.view(false, func(st *memoryState) error {
		for _, op := range st.operations {
			if slices.Contains(statuses, op.Status) {
				ops = append(ops, op)
			}
		}
		return nil
	})
	sort.Slice(ops, func(i, j int) bool { return ops[i].StartTime.Before(ops[j].StartTime) })

	return ops, err
}

func (r memoryMetadata) GetSyncRecord(_ context.Context, t models.EntityType, localID string) (models.SyncRecord, error) {
	var rec models.SyncRecord
	err := r.view(false, func(st *memoryState) error {
		found, ok := st.records[entityKey{t, localID}]
		if !ok {
			return ErrSyncRecordNotFound
		}
		rec = found
		return nil
	})

	return rec, err
}

func (r memoryMetadata) GetSyncRecordByRemoteID(_ context.Context, t models.EntityType, remoteID string) (models.SyncRecord, error) {
	var rec models.SyncRecord
	err := r.view(false, func(st *memoryState) error {
		for k, found := range st.records {
			if k.t == t && found.RemoteID == remoteID {
				rec = found
				return nil
			}
		}
		return ErrSyncRecordNotFound
	})

	return rec, err
}

func (r memoryMetadata) UpsertSyncRecord(_ context.Context, rec models.SyncRecord) error {
	return r.view(true, func(st *memoryState) error {
		key := entityKey{rec.EntityType, rec.LocalID}
		for k, other := range st.records {
			if k != key && k.t == rec.EntityType && other.RemoteID == rec.RemoteID {
				return fmt.Errorf("%w: remote id %s already linked to %s", ErrExecutingStatement, rec.RemoteID, other.LocalID)
			}
		}
		st.records[key] = rec
		return nil
	})
}

func (r memoryMetadata) DeleteSyncRecord(_ context.Context, t models.EntityType, localID string) error {
	return r.view(true, func(st *memoryState) error {
		delete(st.records, entityKey{t, localID})
		return nil
	})
}

func (r memoryMetadata) GetChangeToken(_ context.Context, t models.EntityType) (models.ChangeToken, error) {
	var token models.ChangeToken
	err := r.view(false, func(st *memoryState) error {
		token = slices.Clone(st.tokens[t])
		return nil
	})

	return token, err
}

func (r memoryMetadata) SaveChangeTokens(_ context.Context, tokens map[models.EntityType]models.ChangeToken) error {
	return r.view(true, func(st *memoryState) error {
		for t, token := range tokens {
			st.tokens[t] = slices.Clone(token)
		}
		return nil
	})
}

// cloneConflict copies the snapshot buffers so callers cannot alias stored
// state.
func cloneConflict(c models.SyncConflict) models.SyncConflict {
	c.LocalSnapshot = json.RawMessage(slices.Clone([]byte(c.LocalSnapshot)))
	if c.RemoteSnapshot != nil {
		rec := *c.RemoteSnapshot
		rec.Fields = json.RawMessage(slices.Clone([]byte(rec.Fields)))
		c.RemoteSnapshot = &rec
	}
	if c.Resolution != nil {
		res := *c.Resolution
		c.Resolution = &res
	}
	return c
}

func (r memoryMetadata) SaveConflict(_ context.Context, c models.SyncConflict) error {
	return r.view(true, func(st *memoryState) error {
		st.conflicts[c.ID] = cloneConflict(c)
		return nil
	})
}

func (r memoryMetadata) GetConflict(_ context.Context, id string) (models.SyncConflict, error) {
	var c models.SyncConflict
	err := r.view(false, func(st *memoryState) error {
		found, ok := st.conflicts[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrConflictNotFound, id)
		}
		c = cloneConflict(found)
		return nil
	})

	return c, err
}

func (r memoryMetadata) selectConflicts(match func(models.SyncConflict) bool) ([]models.SyncConflict, error) {
	var conflicts []models.SyncConflict
	err := r.view(false, func(st *memoryState) error {
		for _, c := range st.conflicts {
			if match(c) {
				conflicts = append(conflicts, cloneConflict(c))
			}
		}
		return nil
	})
	sort.Slice(conflicts, func(i, j int) bool {
		if !conflicts[i].CreatedAt.Equal(conflicts[j].CreatedAt) {
			return conflicts[i].CreatedAt.Before(conflicts[j].CreatedAt)
		}
		return conflicts[i].ID < conflicts[j].ID
	})

	return conflicts, err
}

func (r memoryMetadata) FindOpenConflict(_ context.Context, t models.EntityType, entityID string) (models.SyncConflict, error) {
	conflicts, err := r.selectConflicts(func(c models.SyncConflict) bool {
		return !c.Resolved && c.EntityType == t && c.EntityID == entityID
	})
	if err != nil {
		return models.SyncConflict{}, err
	}
	if len(conflicts) == 0 {
		return models.SyncConflict{}, ErrConflictNotFound
	}

	return conflicts[len(conflicts)-1], nil
}

func (r memoryMetadata) ListConflicts(_ context.Context, unresolvedOnly bool) ([]models.SyncConflict, error) {
	return r.selectConflicts(func(c models.SyncConflict) bool { return !unresolvedOnly || !c.Resolved })
}

func (r memoryMetadata) CountUnresolvedConflicts(ctx context.Context) (int, error) {
	conflicts, err := r.ListConflicts(ctx, true)
	return len(conflicts), err
}
