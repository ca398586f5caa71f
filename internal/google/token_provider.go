package google

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/teemow/workspacekit/internal/apierror"
)

// TokenProvider supplies OAuth token sources per account.
type TokenProvider interface {
	TokenSource(ctx context.Context, account string) (oauth2.TokenSource, error)
	HasToken(account string) bool
}

var (
	_ TokenProvider = (*Store)(nil)
	_ TokenProvider = StaticTokenProvider(nil)
)

// StaticTokenProvider serves fixed tokens, keyed by account. Tokens are
// never refreshed.
type StaticTokenProvider map[string]*oauth2.Token

func (p StaticTokenProvider) TokenSource(_ context.Context, account string) (oauth2.TokenSource, error) {
	tok, ok := p[account]
	if !ok {
		return nil, &apierror.Error{
			Kind:    apierror.KindUnauthenticated,
			Service: "oauth",
			Op:      "load_token",
			ID:      account,
		}
	}
	return oauth2.StaticTokenSource(tok), nil
}

func (p StaticTokenProvider) HasToken(account string) bool {
	_, ok := p[account]
	return ok
}
