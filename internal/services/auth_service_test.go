package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"VideoCoach-admin/internal/config"
	"VideoCoach-admin/internal/models"
)

type fakeUserStore struct {
	mu       sync.Mutex
	users    map[int64]*models.User
	accounts map[int64]*models.Account
	updated  []string
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:    make(map[int64]*models.User),
		accounts: make(map[int64]*models.Account),
	}
}

func (s *fakeUserStore) FindOrCreateUserByEmail(email, name, image string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	u := &models.User{
		ID:    int64(len(s.users) + 1),
		Email: email,
		Name:  sql.NullString{String: name, Valid: name != ""},
		Image: sql.NullString{String: image, Valid: image != ""},
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *fakeUserStore) GetUserByID(id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, &models.NotFoundError{Resource: "ユーザー", ID: id}
	}
	return u, nil
}

func (s *fakeUserStore) UpsertAccount(a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = int64(len(s.accounts) + 1)
	s.accounts[a.ID] = a
	return nil
}

func (s *fakeUserStore) GetAccount(userID int64, provider string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.UserID == userID && a.Provider == provider {
			return a, nil
		}
	}
	return nil, &models.NotFoundError{Resource: "アカウント", ID: userID}
}

func (s *fakeUserStore) UpdateAccountToken(accountID int64, accessToken string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return &models.NotFoundError{Resource: "アカウント", ID: accountID}
	}
	a.AccessToken = sql.NullString{String: accessToken, Valid: true}
	a.ExpiresAt = sql.NullTime{Time: expiresAt, Valid: true}
	s.updated = append(s.updated, accessToken)
	return nil
}

func newTestAuthService(t *testing.T) (*AuthService, *fakeUserStore) {
	t.Helper()
	cfg := &config.Config{}
	cfg.OAuth.ClientID = "client-id"
	cfg.OAuth.ClientSecret = "client-secret"
	cfg.OAuth.PublicBaseURL = "https://coach.example.com"
	cfg.Session.Secret = "test-session-secret"
	cfg.Session.ExpireHours = 1
	users := newFakeUserStore()
	svc, err := NewAuthService(cfg, users)
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	return svc, users
}

func TestLoginURLRequestsOfflineAccess(t *testing.T) {
	svc, _ := newTestAuthService(t)
	url := svc.LoginURL("state123")
	for _, want := range []string{"access_type=offline", "approval_prompt=force", "state=state123", "youtube.upload"} {
		if !strings.Contains(url, want) {
			t.Errorf("login url should contain %q: %s", want, url)
		}
	}
	if !strings.Contains(url, "redirect_uri=https%3A%2F%2Fcoach.example.com%2Fauth%2Fcallback") {
		t.Errorf("login url should carry the callback redirect: %s", url)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	svc, users := newTestAuthService(t)
	user, _ := users.FindOrCreateUserByEmail("taro@example.com", "太郎", "")

	token, err := svc.issueSession(user)
	if err != nil {
		t.Fatalf("issueSession: %v", err)
	}
	userID, err := svc.VerifySession(token)
	if err != nil {
		t.Fatalf("VerifySession: %v", err)
	}
	if userID != user.ID {
		t.Fatalf("userID = %d, want %d", userID, user.ID)
	}
}

func TestVerifySessionExpired(t *testing.T) {
	svc, users := newTestAuthService(t)
	user, _ := users.FindOrCreateUserByEmail("taro@example.com", "", "")

	issued := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }
	token, err := svc.issueSession(user)
	if err != nil {
		t.Fatalf("issueSession: %v", err)
	}

	svc.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = svc.VerifySession(token)
	var authErr *models.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError for expired session, got %v", err)
	}
}

func TestVerifySessionRejectsForgedToken(t *testing.T) {
	svc, users := newTestAuthService(t)
	other, _ := newTestAuthService(t)
	other.sessionSecret = []byte("different-secret")

	user, _ := users.FindOrCreateUserByEmail("taro@example.com", "", "")
	forged, err := other.issueSession(user)
	if err != nil {
		t.Fatalf("issueSession: %v", err)
	}

	var authErr *models.AuthError
	if _, err := svc.VerifySession(forged); !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError for forged token, got %v", err)
	}
}

func TestVerifySessionEmpty(t *testing.T) {
	svc, _ := newTestAuthService(t)
	var authErr *models.AuthError
	if _, err := svc.VerifySession(""); !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}

func TestAccessTokenRequiresRefreshToken(t *testing.T) {
	svc, users := newTestAuthService(t)
	user, _ := users.FindOrCreateUserByEmail("taro@example.com", "", "")
	_ = users.UpsertAccount(&models.Account{
		UserID:            user.ID,
		Provider:          providerGoogle,
		ProviderAccountID: "g-1",
		AccessToken:       sql.NullString{String: "at", Valid: true},
	})

	var authErr *models.AuthError
	if _, err := svc.AccessToken(context.Background(), user.ID); !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError without refresh token, got %v", err)
	}
}

func TestAccessTokenReturnsStoredTokenWhileValid(t *testing.T) {
	svc, users := newTestAuthService(t)
	user, _ := users.FindOrCreateUserByEmail("taro@example.com", "", "")
	_ = users.UpsertAccount(&models.Account{
		UserID:            user.ID,
		Provider:          providerGoogle,
		ProviderAccountID: "g-1",
		AccessToken:       sql.NullString{String: "still-valid", Valid: true},
		RefreshToken:      sql.NullString{String: "rt", Valid: true},
		ExpiresAt:         sql.NullTime{Time: time.Now().Add(time.Hour), Valid: true},
	})

	token, err := svc.AccessToken(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("AccessToken: %v", err)
	}
	if token.AccessToken != "still-valid" {
		t.Fatalf("access token = %s, want stored one", token.AccessToken)
	}
	if len(users.updated) != 0 {
		t.Fatal("valid token must not be rewritten")
	}
}
