// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"encoding/json"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-favsync/models"
)

const tableRecords = "records"

var (
	psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	recordColumns = []string{"record_type", "remote_id", "version_tag", "parent_remote_id", "modified_at", "fields", "deleted", "seq"}

	nextSeq = sq.Expr("nextval('records_seq')")
)

func recordKey(userID int64, t models.EntityType, remoteID string) sq.Eq {
	return sq.Eq{"user_id": userID, "record_type": string(t), "remote_id": remoteID}
}

// buildFeedLockQuery takes a transaction-scoped advisory lock on the user's
// change feed. Writers hold it from nextval to commit, so a user's seq values
// become visible in increasing order.
func buildFeedLockQuery(userID int64) (string, []any, error) {
	return psql.Select().Column(sq.Expr("pg_advisory_xact_lock(?)", userID)).ToSql()
}

func buildLockRecordQuery(userID int64, t models.EntityType, remoteID string) (string, []any, error) {
	return psql.Select("version_tag", "deleted").
		From(tableRecords).
		Where(recordKey(userID, t, remoteID)).
		Suffix("FOR UPDATE").
		ToSql()
}

func buildUpsertRecordQuery(userID int64, rec models.RemoteRecord, versionTag string) (string, []any, error) {
	fields := rec.Fields
	if len(fields) == 0 {
		fields = json.RawMessage("{}")
	}

	return psql.Insert(tableRecords).
		Columns("user_id", "record_type", "remote_id", "version_tag", "parent_remote_id", "modified_at", "fields", "deleted", "seq").
		Values(userID, string(rec.RecordType), rec.RemoteID, versionTag, rec.ParentRemoteID, rec.ModifiedAt.UTC(), string(fields), false, nextSeq).
		Suffix(upsertSuffix(
			[]string{"user_id", "record_type", "remote_id"},
			[]string{"version_tag", "parent_remote_id", "modified_at", "fields", "deleted", "seq"},
		)).
		ToSql()
}

func buildTombstoneRecordQuery(userID int64, t models.EntityType, remoteID string) (string, []any, error) {
	return psql.Update(tableRecords).
		Set("deleted", true).
		Set("seq", nextSeq).
		Set("modified_at", sq.Expr("NOW()")).
		Where(recordKey(userID, t, remoteID)).
		Where(sq.Eq{"deleted": false}).
		ToSql()
}

func buildSelectChangesQuery(userID int64, t models.EntityType, afterSeq int64, limit int) (string, []any, error) {
	return psql.Select(recordColumns...).
		From(tableRecords).
		Where(sq.Eq{"user_id": userID, "record_type": string(t)}).
		Where(sq.Gt{"seq": afterSeq}).
		OrderBy("seq").
		Limit(uint64(limit)).
		ToSql()
}
