package http

import (
	"context"
	"net/http"
	"sync"

	"github.com/MKhiriev/go-favsync/internal/logger"
	"github.com/MKhiriev/go-favsync/internal/service"
	"github.com/MKhiriev/go-favsync/models"
)

// ─────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────

// fakeRecordService implements service.RecordService and records the
// arguments of the last call.
type fakeRecordService struct {
	mu sync.Mutex

	pushFn    func(rec models.RemoteRecord) (models.RemoteRecord, error)
	deleteErr error
	changes   models.ChangeSet
	changeErr error
	pingErr   error

	userID    int64
	pushed    *models.RemoteRecord
	deleted   string
	gotType   models.EntityType
	gotToken  models.ChangeToken
	gotLimit  int
	callCount int
}

func (f *fakeRecordService) Push(_ context.Context, userID int64, rec models.RemoteRecord) (models.RemoteRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callCount++
	f.userID = userID
	f.pushed = &rec
	if f.pushFn != nil {
		return f.pushFn(rec)
	}
	rec.VersionTag = "tag-1"
	return rec, nil
}

func (f *fakeRecordService) Delete(_ context.Context, userID int64, t models.EntityType, remoteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callCount++
	f.userID, f.gotType, f.deleted = userID, t, remoteID
	return f.deleteErr
}

func (f *fakeRecordService) Changes(_ context.Context, userID int64, t models.EntityType, token models.ChangeToken, limit int) (models.ChangeSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callCount++
	f.userID, f.gotType, f.gotToken, f.gotLimit = userID, t, token, limit
	return f.changes, f.changeErr
}

func (f *fakeRecordService) Ping(_ context.Context) error {
	return f.pingErr
}

// fakeAuthService accepts exactly one token string.
type fakeAuthService struct {
	valid  string
	userID int64
}

func (f *fakeAuthService) CreateToken(_ context.Context, userID int64) (models.Token, error) {
	return models.Token{SignedString: f.valid, UserID: userID}, nil
}

func (f *fakeAuthService) ParseToken(_ context.Context, tokenString string) (models.Token, error) {
	if tokenString != f.valid {
		return models.Token{}, service.ErrTokenIsExpiredOrInvalid
	}
	return models.Token{SignedString: tokenString, UserID: f.userID}, nil
}

// mockAppInfoService implements service.AppInfoService for testing.
type mockAppInfoService struct {
	version string
}

func (m *mockAppInfoService) GetAppVersion(_ context.Context) string {
	return m.version
}

// ─────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────

const (
	testToken   = "valid-token"
	testUserID  = int64(42)
	testHashKey = "integrity-key"
)

func newTestHandler(records *fakeRecordService, hashKey string) *Handler {
	return NewHandler(&service.Services{
		RecordService:  records,
		AuthService:    &fakeAuthService{valid: testToken, userID: testUserID},
		AppInfoService: &mockAppInfoService{version: "1.0.0"},
	}, hashKey, logger.Nop())
}

// injectNopLogger puts a nop logger into the request context.
func injectNopLogger(r *http.Request) *http.Request {
	nop := logger.Nop()
	return r.WithContext(nop.Logger.WithContext(r.Context()))
}
