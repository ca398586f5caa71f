package google

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/teemow/workspacekit/internal/apierror"
)

func TestValidateAccountName(t *testing.T) {
	tests := []struct {
		name    string
		account string
		wantErr bool
	}{
		{"valid default", "default", false},
		{"valid work", "work", false},
		{"valid with hyphen", "work-email", false},
		{"valid with underscore", "personal_email", false},
		{"valid alphanumeric", "account123", false},
		{"empty", "", true},
		{"with spaces", "my account", true},
		{"with special chars", "account@work", true},
		{"with slash", "work/personal", true},
		{"with dot", "work.email", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAccountName(tt.account)
			assert.Equal(t, tt.wantErr, err != nil, "validateAccountName(%q) = %v", tt.account, err)
		})
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), Credentials{ClientID: "id", ClientSecret: "secret"}.Config())
	require.NoError(t, err)
	return s
}

func TestStorePath(t *testing.T) {
	s := newTestStore(t)

	path, err := s.Path("work")
	require.NoError(t, err)
	assert.Equal(t, "google-work.token", filepath.Base(path))

	_, err = s.Path("../etc")
	assert.Error(t, err)
}

func TestStoreSaveLoad(t *testing.T) {
	s := newTestStore(t)
	assert.False(t, s.HasToken("work"))

	tok := &oauth2.Token{
		AccessToken:  "access",
		TokenType:    "Bearer",
		RefreshToken: "refresh",
		Expiry:       time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.Save("work", tok))
	assert.True(t, s.HasToken("work"))
	assert.False(t, s.HasToken("personal"))

	path, _ := s.Path("work")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := s.Load("work")
	require.NoError(t, err)
	assert.Equal(t, "access", got.AccessToken)
	assert.Equal(t, "refresh", got.RefreshToken)
	assert.True(t, got.Expiry.Equal(tok.Expiry))

	require.NoError(t, s.Delete("work"))
	assert.False(t, s.HasToken("work"))
	require.NoError(t, s.Delete("work"))
}

func TestStoreLoadLegacyFormat(t *testing.T) {
	s := newTestStore(t)
	path, _ := s.Path(DefaultAccount)
	require.NoError(t, os.WriteFile(path, []byte("old_access old_refresh\n"), 0o600))

	got, err := s.Load(DefaultAccount)
	require.NoError(t, err)
	assert.Equal(t, "old_access", got.AccessToken)
	assert.Equal(t, "old_refresh", got.RefreshToken)
	assert.False(t, got.Valid(), "legacy tokens must be refreshed before use")

	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))
	_, err = s.Load(DefaultAccount)
	assert.Error(t, err)
}

func TestStoreMissingToken(t *testing.T) {
	s := newTestStore(t)

	_, err := s.TokenSource(context.Background(), "work")
	require.Error(t, err)
	assert.ErrorIs(t, err, apierror.ErrUnauthenticated)
	assert.Contains(t, err.Error(), "auth login --account work")

	_, err = s.Load("bad name")
	assert.ErrorIs(t, err, apierror.ErrInvalidQuery)
}

func TestAuthURLRequestsOfflineAccess(t *testing.T) {
	s := newTestStore(t)
	u := s.AuthURL("state-1")
	assert.Contains(t, u, "access_type=offline")
	assert.Contains(t, u, "state=state-1")
	assert.Contains(t, u, "client_id=id")
	assert.Contains(t, u, "tasks")
}

func TestAuthenticationErrorMessage(t *testing.T) {
	for _, account := range []string{"default", "work", "personal"} {
		t.Run(account, func(t *testing.T) {
			msg := AuthenticationErrorMessage(account)
			assert.Contains(t, msg, account)
			assert.Contains(t, msg, "OAuth")
		})
	}
}

func TestHTTPClientForAccount(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p := StaticTokenProvider{
		"work": {AccessToken: "tok", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)},
	}
	assert.True(t, p.HasToken("work"))
	assert.False(t, p.HasToken("home"))

	client, err := HTTPClientForAccount(context.Background(), p, "work")
	require.NoError(t, err)
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "Bearer tok", got)

	_, err = HTTPClientForAccount(context.Background(), p, "home")
	assert.ErrorIs(t, err, apierror.ErrUnauthenticated)
}
