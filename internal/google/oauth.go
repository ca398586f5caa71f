package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/teemow/workspacekit/internal/apierror"
)

const (
	// DefaultAccount is used when no account name is given.
	DefaultAccount = "default"

	appDir = "workspacekit"

	// redirectLoopback is the installed-app redirect. The code is pasted back
	// from the browser address bar.
	redirectLoopback = "http://127.0.0.1"
)

var accountNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

func validateAccountName(account string) error {
	if account == "" {
		return fmt.Errorf("account name cannot be empty")
	}
	if !accountNamePattern.MatchString(account) {
		return fmt.Errorf("invalid account name %q: only letters, digits, hyphen and underscore are allowed", account)
	}
	return nil
}

// Credentials identify the OAuth client used to obtain user tokens.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// CredentialsFromEnv reads WORKSPACE_CLIENT_ID, WORKSPACE_CLIENT_SECRET and
// WORKSPACE_REDIRECT_URL.
func CredentialsFromEnv() Credentials {
	return Credentials{
		ClientID:     os.Getenv("WORKSPACE_CLIENT_ID"),
		ClientSecret: os.Getenv("WORKSPACE_CLIENT_SECRET"),
		RedirectURL:  os.Getenv("WORKSPACE_REDIRECT_URL"),
	}
}

// Config returns the oauth2 configuration for the Google endpoint.
func (c Credentials) Config() *oauth2.Config {
	redirect := c.RedirectURL
	if redirect == "" {
		redirect = redirectLoopback
	}
	scopes := c.Scopes
	if len(scopes) == 0 {
		scopes = DefaultOAuthScopes
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirect,
		Scopes:       scopes,
	}
}

// Store keeps one token file per account below a directory.
type Store struct {
	dir  string
	conf *oauth2.Config
}

// NewStore returns a Store rooted at dir. An empty dir selects the user
// cache directory.
func NewStore(dir string, conf *oauth2.Config) (*Store, error) {
	if dir == "" {
		cache, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("failed to locate cache directory: %w", err)
		}
		dir = filepath.Join(cache, appDir)
	}
	return &Store{dir: dir, conf: conf}, nil
}

func tokenFilePath(dir, account string) string {
	return filepath.Join(dir, "google-"+account+".token")
}

// Path returns the token file of account.
func (s *Store) Path(account string) (string, error) {
	if err := validateAccountName(account); err != nil {
		return "", err
	}
	return tokenFilePath(s.dir, account), nil
}

// HasToken reports whether a token file exists for account.
func (s *Store) HasToken(account string) bool {
	path, err := s.Path(account)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// AuthURL returns the consent page URL. Offline access is requested so the
// saved token carries a refresh token.
func (s *Store) AuthURL(state string) string {
	return s.conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token and saves it.
func (s *Store) Exchange(ctx context.Context, account, code string) error {
	if err := validateAccountName(account); err != nil {
		return err
	}
	tok, err := s.conf.Exchange(ctx, strings.TrimSpace(code))
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return s.Save(account, tok)
}

// Save writes tok for account with owner-only permissions.
func (s *Store) Save(account string, tok *oauth2.Token) error {
	path, err := s.Path(account)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Load reads the token of account. Files holding "access refresh" on a
// single line are accepted and treated as expired.
func (s *Store) Load(account string) (*oauth2.Token, error) {
	path, err := s.Path(account)
	if err != nil {
		return nil, apierror.Invalid("%v", err)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &apierror.Error{
			Kind:    apierror.KindUnauthenticated,
			Service: "oauth",
			Op:      "load_token",
			ID:      account,
			Message: AuthenticationErrorMessage(account),
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	return parseToken(data)
}

func parseToken(data []byte) (*oauth2.Token, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var tok oauth2.Token
		if err := json.Unmarshal([]byte(trimmed), &tok); err != nil {
			return nil, fmt.Errorf("invalid token file: %w", err)
		}
		return &tok, nil
	}
	f := strings.Fields(trimmed)
	if len(f) != 2 {
		return nil, fmt.Errorf("invalid token format")
	}
	return &oauth2.Token{
		AccessToken:  f[0],
		TokenType:    "Bearer",
		RefreshToken: f[1],
		Expiry:       time.Unix(1, 0),
	}, nil
}

// Delete removes the token of account. A missing file is not an error.
func (s *Store) Delete(account string) error {
	path, err := s.Path(account)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}

// TokenSource returns a refreshing source for the stored token. Refreshed
// tokens are kept in memory only.
func (s *Store) TokenSource(ctx context.Context, account string) (oauth2.TokenSource, error) {
	tok, err := s.Load(account)
	if err != nil {
		return nil, err
	}
	return s.conf.TokenSource(ctx, tok), nil
}

// AuthenticationErrorMessage tells the user how to authorize account.
func AuthenticationErrorMessage(account string) string {
	return fmt.Sprintf("no Google OAuth token for account %q; run `workspacekit auth login --account %s` to authorize", account, account)
}

// HTTPClientForAccount returns an authenticated client for account.
func HTTPClientForAccount(ctx context.Context, p TokenProvider, account string) (*http.Client, error) {
	ts, err := p.TokenSource(ctx, account)
	if err != nil {
		return nil, err
	}
	client := oauth2.NewClient(ctx, ts)

	// HTTP/1.1 only; long-lived HTTP/2 connections to the API front end
	// intermittently fail with stream errors.
	if t, ok := client.Transport.(*oauth2.Transport); ok {
		t.Base = &http.Transport{
			Proxy:             http.ProxyFromEnvironment,
			ForceAttemptHTTP2: false,
		}
	}
	return client, nil
}
