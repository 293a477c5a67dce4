// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/MKhiriev/go-favsync/internal/adapter"
	"github.com/MKhiriev/go-favsync/internal/logger"
	"github.com/MKhiriev/go-favsync/internal/store"
	"github.com/MKhiriev/go-favsync/internal/utils"
	"github.com/MKhiriev/go-favsync/models"
)

type recordService struct {
	repo     store.RecordRepository
	ids      utils.IDGenerator
	pageSize int

	now    func() time.Time
	logger *logger.Logger
}

func NewRecordService(repo store.RecordRepository, ids utils.IDGenerator, pageSize int, log *logger.Logger) RecordService {
	return &recordService{repo: repo, ids: ids, pageSize: pageSize, now: time.Now, logger: log}
}

func (s *recordService) Push(ctx context.Context, userID int64, rec models.RemoteRecord) (models.RemoteRecord, error) {
	if rec.ModifiedAt.IsZero() {
		rec.ModifiedAt = s.now()
	}

	stored, err := s.repo.Push(ctx, userID, rec, s.ids.Generate())
	if err != nil {
		return models.RemoteRecord{}, fmt.Errorf("push %s %s: %w", rec.RecordType, rec.RemoteID, err)
	}

	return stored, nil
}

func (s *recordService) Delete(ctx context.Context, userID int64, t models.EntityType, remoteID string) error {
	if err := s.repo.Delete(ctx, userID, t, remoteID); err != nil {
		return fmt.Errorf("delete %s %s: %w", t, remoteID, err)
	}
	return nil
}

// Changes reads one row past the page to know whether more are coming.
// The returned token is the last delivered sequence, or the request's when
// the page is empty.
func (s *recordService) Changes(ctx context.Context, userID int64, t models.EntityType, token models.ChangeToken, limit int) (models.ChangeSet, error) {
	after, err := adapter.TokenSeq(token)
	if err != nil {
		return models.ChangeSet{}, fmt.Errorf("%w: %w", ErrInvalidChangeToken, err)
	}

	if limit <= 0 || limit > s.pageSize {
		limit = s.pageSize
	}

	changes, err := s.repo.Changes(ctx, userID, t, after, limit+1)
	if err != nil {
		return models.ChangeSet{}, fmt.Errorf("changes of %s: %w", t, err)
	}

	set := models.ChangeSet{NewToken: adapter.SeqToken(after)}
	if len(changes) > limit {
		changes = changes[:limit]
		set.MoreComing = true
	}

	for _, c := range changes {
		if c.Deleted {
			set.DeletedIDs = append(set.DeletedIDs, c.Record.RemoteID)
		} else {
			set.Changed = append(set.Changed, c.Record)
		}
		set.NewToken = adapter.SeqToken(c.Seq)
	}

	return set, nil
}

func (s *recordService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
