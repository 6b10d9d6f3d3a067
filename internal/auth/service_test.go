package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/jobflow/internal/identity"
	"github.com/hitoshi/jobflow/internal/model"
	"github.com/hitoshi/jobflow/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByExternalID(_ context.Context, _ string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) FindByExternalUsername(_ context.Context, _ string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) Create(_ context.Context, _ *model.User) (bool, error) {
	return false, nil
}

func (m *mockUserRepo) UpdateProfile(_ context.Context, _ *model.User) error {
	return nil
}

func (m *mockUserRepo) LinkExternalID(_ context.Context, _, _ string) (bool, error) {
	return false, nil
}

func (m *mockUserRepo) ClaimSeeding(_ context.Context, _ string) (bool, error) {
	return false, nil
}

type mockSessionRepo struct {
	createFn      func(ctx context.Context, session *model.Session) error
	findByIDFn    func(ctx context.Context, id string) (*model.Session, error)
	deleteByIDFn  func(ctx context.Context, id string) error
	deleteExpired func(ctx context.Context) (int64, error)
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	if m.deleteExpired != nil {
		return m.deleteExpired(ctx)
	}
	return 0, nil
}

type mockOAuthProvider struct {
	getLoginURLFn  func(state string) string
	exchangeCodeFn func(ctx context.Context, code string) (*identity.ExternalProfile, error)
}

func (m *mockOAuthProvider) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return ""
}

func (m *mockOAuthProvider) ExchangeCode(ctx context.Context, code string) (*identity.ExternalProfile, error) {
	if m.exchangeCodeFn != nil {
		return m.exchangeCodeFn(ctx, code)
	}
	return nil, nil
}

type mockResolver struct {
	resolveFn func(ctx context.Context, profile identity.ExternalProfile) (*model.User, bool, error)
}

func (m *mockResolver) Resolve(ctx context.Context, profile identity.ExternalProfile) (*model.User, bool, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, profile)
	}
	return &model.User{ID: "user-1"}, false, nil
}

type mockBootstrapper struct {
	ensureSeededFn func(ctx context.Context, user *model.User, wasCreated bool) error
}

func (m *mockBootstrapper) EnsureSeeded(ctx context.Context, user *model.User, wasCreated bool) error {
	if m.ensureSeededFn != nil {
		return m.ensureSeededFn(ctx, user, wasCreated)
	}
	return nil
}

type recordingMetrics struct {
	loginSuccess      []string
	loginFailure      []string
	usersCreated      int
	seedingIncomplete int
}

func (m *recordingMetrics) RecordLoginSuccess(method string) {
	m.loginSuccess = append(m.loginSuccess, method)
}

func (m *recordingMetrics) RecordLoginFailure(method string) {
	m.loginFailure = append(m.loginFailure, method)
}

func (m *recordingMetrics) RecordUserCreated() {
	m.usersCreated++
}

func (m *recordingMetrics) RecordSeedingIncomplete() {
	m.seedingIncomplete++
}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ repository.SessionRepository = (*mockSessionRepo)(nil)
var _ OAuthProvider = (*mockOAuthProvider)(nil)
var _ ProfileResolver = (*mockResolver)(nil)
var _ TenantBootstrapper = (*mockBootstrapper)(nil)
var _ Metrics = (*recordingMetrics)(nil)

func newTestService(
	oauth *mockOAuthProvider,
	resolver *mockResolver,
	users *mockUserRepo,
	sessions *mockSessionRepo,
	bootstrapper *mockBootstrapper,
	metrics Metrics,
) *Service {
	if oauth == nil {
		oauth = &mockOAuthProvider{}
	}
	if resolver == nil {
		resolver = &mockResolver{}
	}
	if users == nil {
		users = &mockUserRepo{}
	}
	if sessions == nil {
		sessions = &mockSessionRepo{}
	}
	if bootstrapper == nil {
		bootstrapper = &mockBootstrapper{}
	}
	return NewService(oauth, resolver, users, sessions, bootstrapper, metrics,
		ServiceConfig{SessionTTL: 7 * 24 * time.Hour})
}

// --- テスト ---

func TestGetLoginURL_DelegatesToProvider(t *testing.T) {
	oauth := &mockOAuthProvider{
		getLoginURLFn: func(state string) string {
			return "https://github.com/login/oauth/authorize?state=" + state
		},
	}
	svc := newTestService(oauth, nil, nil, nil, nil, nil)

	url := svc.GetLoginURL("test-state")
	if !strings.Contains(url, "state=test-state") {
		t.Errorf("url = %q, should contain state", url)
	}
}

func TestSimulatedLogin_Success_CreatesSession(t *testing.T) {
	var savedSession *model.Session
	sessions := &mockSessionRepo{
		createFn: func(ctx context.Context, session *model.Session) error {
			savedSession = session
			return nil
		},
	}
	resolver := &mockResolver{
		resolveFn: func(ctx context.Context, profile identity.ExternalProfile) (*model.User, bool, error) {
			return &model.User{ID: "user-sim"}, false, nil
		},
	}
	metrics := &recordingMetrics{}
	svc := newTestService(nil, resolver, nil, sessions, nil, metrics)

	result, err := svc.SimulatedLogin(context.Background(), "hitoshi")
	if err != nil {
		t.Fatalf("SimulatedLogin returned error: %v", err)
	}

	if result.Session == nil {
		t.Fatal("expected session in result")
	}
	if savedSession == nil {
		t.Fatal("expected session to be persisted")
	}
	if len(savedSession.ID) != 64 {
		t.Errorf("session ID length = %d, want 64 (32 bytes hex)", len(savedSession.ID))
	}
	if savedSession.UserID != "user-sim" {
		t.Errorf("session user ID = %q, want %q", savedSession.UserID, "user-sim")
	}

	// TTLが設定されること
	ttl := savedSession.ExpiresAt.Sub(savedSession.CreatedAt)
	if ttl != 7*24*time.Hour {
		t.Errorf("session TTL = %v, want %v", ttl, 7*24*time.Hour)
	}

	if len(metrics.loginSuccess) != 1 || metrics.loginSuccess[0] != "simulated" {
		t.Errorf("loginSuccess = %v, want [simulated]", metrics.loginSuccess)
	}
}

func TestSimulatedLogin_DerivesProfileFromUsername(t *testing.T) {
	var gotProfile identity.ExternalProfile
	resolver := &mockResolver{
		resolveFn: func(ctx context.Context, profile identity.ExternalProfile) (*model.User, bool, error) {
			gotProfile = profile
			return &model.User{ID: "user-1"}, true, nil
		},
	}
	svc := newTestService(nil, resolver, nil, nil, nil, nil)

	if _, err := svc.SimulatedLogin(context.Background(), "hitoshi"); err != nil {
		t.Fatalf("SimulatedLogin returned error: %v", err)
	}

	if gotProfile.ExternalUsername != "hitoshi" {
		t.Errorf("ExternalUsername = %q, want %q", gotProfile.ExternalUsername, "hitoshi")
	}
	if gotProfile.Email != "hitoshi@example.com" {
		t.Errorf("Email = %q, want %q", gotProfile.Email, "hitoshi@example.com")
	}
	// シミュレートログインではExternalIDを付与しない
	if gotProfile.ExternalID != "" {
		t.Errorf("ExternalID = %q, want empty", gotProfile.ExternalID)
	}
}

func TestSimulatedLogin_EmptyUsername_ReturnsInvalidProfile(t *testing.T) {
	metrics := &recordingMetrics{}
	svc := newTestService(nil, nil, nil, nil, nil, metrics)

	_, err := svc.SimulatedLogin(context.Background(), "")
	if err == nil {
		t.Fatal("expected error for empty username")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeInvalidProfile {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeInvalidProfile)
	}

	if len(metrics.loginFailure) != 1 || metrics.loginFailure[0] != "simulated" {
		t.Errorf("loginFailure = %v, want [simulated]", metrics.loginFailure)
	}
}

func TestSimulatedLogin_NewUser_RecordsUserCreated(t *testing.T) {
	resolver := &mockResolver{
		resolveFn: func(ctx context.Context, profile identity.ExternalProfile) (*model.User, bool, error) {
			return &model.User{ID: "user-new"}, true, nil
		},
	}
	metrics := &recordingMetrics{}
	svc := newTestService(nil, resolver, nil, nil, nil, metrics)

	result, err := svc.SimulatedLogin(context.Background(), "newcomer")
	if err != nil {
		t.Fatalf("SimulatedLogin returned error: %v", err)
	}
	if !result.WasCreated {
		t.Error("WasCreated = false, want true")
	}
	if metrics.usersCreated != 1 {
		t.Errorf("usersCreated = %d, want 1", metrics.usersCreated)
	}
}

func TestSimulatedLogin_SeedingIncomplete_LoginStillSucceeds(t *testing.T) {
	bootstrapper := &mockBootstrapper{
		ensureSeededFn: func(ctx context.Context, user *model.User, wasCreated bool) error {
			return model.NewSeedingIncompleteError()
		},
	}
	metrics := &recordingMetrics{}
	svc := newTestService(nil, nil, nil, nil, bootstrapper, metrics)

	result, err := svc.SimulatedLogin(context.Background(), "hitoshi")
	if err != nil {
		t.Fatalf("SimulatedLogin should succeed despite seeding failure, got %v", err)
	}
	if !result.SeedingIncomplete {
		t.Error("SeedingIncomplete = false, want true")
	}
	if result.Session == nil {
		t.Error("expected valid session despite seeding failure")
	}
	if metrics.seedingIncomplete != 1 {
		t.Errorf("seedingIncomplete = %d, want 1", metrics.seedingIncomplete)
	}
	if len(metrics.loginSuccess) != 1 {
		t.Errorf("loginSuccess = %v, want 1 entry", metrics.loginSuccess)
	}
}

func TestSimulatedLogin_BootstrapperOtherError_Fails(t *testing.T) {
	bootstrapper := &mockBootstrapper{
		ensureSeededFn: func(ctx context.Context, user *model.User, wasCreated bool) error {
			return errors.New("connection refused")
		},
	}
	svc := newTestService(nil, nil, nil, nil, bootstrapper, nil)

	_, err := svc.SimulatedLogin(context.Background(), "hitoshi")
	if err == nil {
		t.Fatal("expected error when bootstrapper fails with non-degraded error")
	}
}

func TestSimulatedLogin_SessionCreateFails_ReturnsError(t *testing.T) {
	sessions := &mockSessionRepo{
		createFn: func(ctx context.Context, session *model.Session) error {
			return errors.New("insert failed")
		},
	}
	metrics := &recordingMetrics{}
	svc := newTestService(nil, nil, nil, sessions, nil, metrics)

	_, err := svc.SimulatedLogin(context.Background(), "hitoshi")
	if err == nil {
		t.Fatal("expected error when session creation fails")
	}
	if len(metrics.loginFailure) != 1 {
		t.Errorf("loginFailure = %v, want 1 entry", metrics.loginFailure)
	}
}

func TestHandleCallback_Success(t *testing.T) {
	oauth := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*identity.ExternalProfile, error) {
			if code != "auth-code" {
				t.Errorf("code = %q, want %q", code, "auth-code")
			}
			return &identity.ExternalProfile{
				ExternalID:       "12345",
				ExternalUsername: "hitoshi",
				DisplayName:      "Hitoshi",
				Email:            "hitoshi@users.noreply.github.com",
			}, nil
		},
	}
	var gotProfile identity.ExternalProfile
	resolver := &mockResolver{
		resolveFn: func(ctx context.Context, profile identity.ExternalProfile) (*model.User, bool, error) {
			gotProfile = profile
			return &model.User{ID: "user-oauth"}, false, nil
		},
	}
	metrics := &recordingMetrics{}
	svc := newTestService(oauth, resolver, nil, nil, nil, metrics)

	result, err := svc.HandleCallback(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("HandleCallback returned error: %v", err)
	}
	if result.User.ID != "user-oauth" {
		t.Errorf("user ID = %q, want %q", result.User.ID, "user-oauth")
	}
	if gotProfile.ExternalID != "12345" {
		t.Errorf("ExternalID = %q, want %q", gotProfile.ExternalID, "12345")
	}
	if len(metrics.loginSuccess) != 1 || metrics.loginSuccess[0] != "oauth" {
		t.Errorf("loginSuccess = %v, want [oauth]", metrics.loginSuccess)
	}
}

func TestHandleCallback_ExchangeFails_RecordsFailure(t *testing.T) {
	oauth := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*identity.ExternalProfile, error) {
			return nil, errors.New("token exchange failed")
		},
	}
	metrics := &recordingMetrics{}
	svc := newTestService(oauth, nil, nil, nil, nil, metrics)

	_, err := svc.HandleCallback(context.Background(), "bad-code")
	if err == nil {
		t.Fatal("expected error when code exchange fails")
	}
	if len(metrics.loginFailure) != 1 || metrics.loginFailure[0] != "oauth" {
		t.Errorf("loginFailure = %v, want [oauth]", metrics.loginFailure)
	}
}

func TestLogout_DeletesSession(t *testing.T) {
	deleted := ""
	sessions := &mockSessionRepo{
		deleteByIDFn: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	svc := newTestService(nil, nil, nil, sessions, nil, nil)

	if err := svc.Logout(context.Background(), "session-1"); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if deleted != "session-1" {
		t.Errorf("deleted session = %q, want %q", deleted, "session-1")
	}
}

func TestLogout_EmptySessionID_IsNoOp(t *testing.T) {
	sessions := &mockSessionRepo{
		deleteByIDFn: func(ctx context.Context, id string) error {
			t.Fatal("DeleteByID should not be called for empty session ID")
			return nil
		},
	}
	svc := newTestService(nil, nil, nil, sessions, nil, nil)

	if err := svc.Logout(context.Background(), ""); err != nil {
		t.Fatalf("Logout with empty ID should succeed, got %v", err)
	}
}

func TestGetCurrentUser_ValidSession_ReturnsUser(t *testing.T) {
	sessions := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return &model.Session{ID: id, UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}
	users := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, DisplayName: "Hitoshi"}, nil
		},
	}
	svc := newTestService(nil, nil, users, sessions, nil, nil)

	user, err := svc.GetCurrentUser(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("GetCurrentUser returned error: %v", err)
	}
	if user == nil || user.ID != "user-1" {
		t.Errorf("user = %+v, want ID user-1", user)
	}
}

func TestGetCurrentUser_UnknownSession_ReturnsNil(t *testing.T) {
	sessions := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return nil, nil
		},
	}
	svc := newTestService(nil, nil, nil, sessions, nil, nil)

	user, err := svc.GetCurrentUser(context.Background(), "expired-session")
	if err != nil {
		t.Fatalf("GetCurrentUser returned error: %v", err)
	}
	if user != nil {
		t.Errorf("user = %+v, want nil", user)
	}
}

func TestGetCurrentUser_EmptySessionID_ReturnsNil(t *testing.T) {
	svc := newTestService(nil, nil, nil, nil, nil, nil)

	user, err := svc.GetCurrentUser(context.Background(), "")
	if err != nil {
		t.Fatalf("GetCurrentUser returned error: %v", err)
	}
	if user != nil {
		t.Errorf("user = %+v, want nil", user)
	}
}
