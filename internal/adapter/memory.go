// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/MKhiriev/go-favsync/internal/utils"
	"github.com/MKhiriev/go-favsync/models"
)

// Op names a [RemoteClient] call for failure injection.
type Op string

const (
	OpPush   Op = "push"
	OpDelete Op = "delete"
	OpFetch  Op = "fetch"
)

// FailureFunc decides whether a call fails. remoteID is empty for fetches.
type FailureFunc func(op Op, t models.EntityType, remoteID string) error

type memoryRecord struct {
	rec     models.RemoteRecord
	deleted bool
	seq     int64
}

// MemoryRemote is an in-process record server. It keeps the same contract as
// the HTTP backend: optimistic version tags, tombstoned deletes and a
// sequence-numbered change feed per record type.
type MemoryRemote struct {
	mu sync.Mutex

	seq      int64
	records  map[models.EntityType]map[string]*memoryRecord
	ids      utils.IDGenerator
	pageSize int

	available bool
	failure   FailureFunc
	calls     map[Op]int
}

// NewMemoryRemote returns an empty, available remote.
func NewMemoryRemote() *MemoryRemote {
	return &MemoryRemote{
		records:   make(map[models.EntityType]map[string]*memoryRecord),
		ids:       utils.NewUUIDGenerator(),
		available: true,
		calls:     make(map[Op]int),
	}
}

// SetAvailable toggles the availability check and makes every other call fail
// with [ErrServiceUnavailable] while false.
func (m *MemoryRemote) SetAvailable(available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = available
}

// SetPageSize limits change sets to n records; zero means unlimited.
func (m *MemoryRemote) SetPageSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageSize = n
}

// SetFailure installs fn as the failure injector; nil removes it.
func (m *MemoryRemote) SetFailure(fn FailureFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failure = fn
}

// Calls returns how many times op was invoked.
func (m *MemoryRemote) Calls(op Op) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Put writes rec as another device would and returns it with its new version
// tag.
func (m *MemoryRemote) Put(rec models.RemoteRecord) models.RemoteRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store(rec)
}

// Remove tombstones a record as another device would.
func (m *MemoryRemote) Remove(t models.EntityType, remoteID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tombstone(t, remoteID)
}

// Get returns the live record, if any.
func (m *MemoryRemote) Get(t models.EntityType, remoteID string) (models.RemoteRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[t][remoteID]
	if !ok || r.deleted {
		return models.RemoteRecord{}, false
	}
	return r.rec, true
}

// Records returns every live record of type t ordered by remote id.
func (m *MemoryRemote) Records(t models.EntityType) []models.RemoteRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.RemoteRecord
	for _, r := range m.records[t] {
		if !r.deleted {
			out = append(out, r.rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RemoteID < out[j].RemoteID })
	return out
}

func (m *MemoryRemote) store(rec models.RemoteRecord) models.RemoteRecord {
	byID, ok := m.records[rec.RecordType]
	if !ok {
		byID = make(map[string]*memoryRecord)
		m.records[rec.RecordType] = byID
	}

	m.seq++
	rec.VersionTag = m.ids.Generate()
	byID[rec.RemoteID] = &memoryRecord{rec: rec, seq: m.seq}
	return rec
}

func (m *MemoryRemote) tombstone(t models.EntityType, remoteID string) bool {
	r, ok := m.records[t][remoteID]
	if !ok || r.deleted {
		return false
	}

	m.seq++
	r.deleted = true
	r.seq = m.seq
	return true
}

// enter records the call and applies availability and failure injection.
func (m *MemoryRemote) enter(op Op, t models.EntityType, remoteID string) error {
	m.calls[op]++

	if !m.available {
		return fmt.Errorf("%w: remote is offline", ErrServiceUnavailable)
	}
	if m.failure != nil {
		return m.failure(op, t, remoteID)
	}
	return nil
}

func (m *MemoryRemote) CheckAvailability(context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

func (m *MemoryRemote) Push(ctx context.Context, rec models.RemoteRecord) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.enter(OpPush, rec.RecordType, rec.RemoteID); err != nil {
		return "", "", err
	}

	if current, ok := m.records[rec.RecordType][rec.RemoteID]; ok && !current.deleted &&
		rec.VersionTag != "" && rec.VersionTag != current.rec.VersionTag {
		return "", "", fmt.Errorf("%w: %s %s", ErrVersionConflict, rec.RecordType, rec.RemoteID)
	}

	stored := m.store(rec)
	return stored.RemoteID, stored.VersionTag, nil
}

func (m *MemoryRemote) Delete(ctx context.Context, t models.EntityType, remoteID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.enter(OpDelete, t, remoteID); err != nil {
		return err
	}

	if !m.tombstone(t, remoteID) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, t, remoteID)
	}
	return nil
}

func (m *MemoryRemote) FetchChanges(ctx context.Context, t models.EntityType, token models.ChangeToken) (models.ChangeSet, error) {
	if err := ctx.Err(); err != nil {
		return models.ChangeSet{}, err
	}

	after, err := TokenSeq(token)
	if err != nil {
		return models.ChangeSet{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err = m.enter(OpFetch, t, ""); err != nil {
		return models.ChangeSet{}, err
	}

	var pending []*memoryRecord
	for _, r := range m.records[t] {
		if r.seq > after {
			pending = append(pending, r)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].seq < pending[j].seq })

	changes := models.ChangeSet{NewToken: SeqToken(after)}
	if m.pageSize > 0 && len(pending) > m.pageSize {
		pending = pending[:m.pageSize]
		changes.MoreComing = true
	}

	for _, r := range pending {
		if r.deleted {
			changes.DeletedIDs = append(changes.DeletedIDs, r.rec.RemoteID)
		} else {
			changes.Changed = append(changes.Changed, r.rec)
		}
		changes.NewToken = SeqToken(r.seq)
	}

	return changes, nil
}
