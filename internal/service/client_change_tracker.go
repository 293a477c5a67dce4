package service

import (
	"context"

	"github.com/MKhiriev/go-favsync/internal/store"
	"github.com/MKhiriev/go-favsync/models"
)

// PendingChanges is the outcome of a change scan: the entities waiting to be
// pushed and the ones waiting for a remote delete, per type.
type PendingChanges struct {
	Uploads map[models.EntityType][]models.Entity
	Deletes map[models.EntityType][]models.Entity
}

// Total is the number of records the upload phase will process.
func (p PendingChanges) Total() int {
	n := 0
	for _, es := range p.Uploads {
		n += len(es)
	}
	for _, es := range p.Deletes {
		n += len(es)
	}
	return n
}

// changeTracker scans the entity store for unsynced work.
type changeTracker struct {
	storage store.Storage
}

func newChangeTracker(storage store.Storage) *changeTracker {
	return &changeTracker{storage: storage}
}

func (c *changeTracker) Collect(ctx context.Context) (PendingChanges, error) {
	pending := PendingChanges{
		Uploads: make(map[models.EntityType][]models.Entity),
		Deletes: make(map[models.EntityType][]models.Entity),
	}

	for _, t := range models.EntityTypes {
		uploads, err := c.storage.Entities().QueryPending(ctx, t, models.StatusPendingUpload)
		if err != nil {
			return PendingChanges{}, mapStoreError(err)
		}
		deletes, err := c.storage.Entities().QueryPending(ctx, t, models.StatusPendingDelete)
		if err != nil {
			return PendingChanges{}, mapStoreError(err)
		}

		if len(uploads) > 0 {
			pending.Uploads[t] = uploads
		}
		if len(deletes) > 0 {
			pending.Deletes[t] = deletes
		}
	}

	return pending, nil
}
