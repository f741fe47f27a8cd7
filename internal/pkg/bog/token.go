package bog

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// tokenCache keeps the last client-credentials token in memory. It is
// replaced once less than margin of its lifetime is left. Tokens without an
// expiry are fetched again on every call. Concurrent callers share a single
// exchange.
type tokenCache struct {
	cfg        *clientcredentials.Config
	httpClient *http.Client
	margin     time.Duration
	now        func() time.Time

	mu  sync.Mutex
	tok *oauth2.Token
}

func newTokenCache(cfg *clientcredentials.Config, httpClient *http.Client, margin time.Duration) *tokenCache {
	return &tokenCache{cfg: cfg, httpClient: httpClient, margin: margin, now: time.Now}
}

func (tc *tokenCache) Token(ctx context.Context) (*oauth2.Token, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.tok != nil && !tc.tok.Expiry.IsZero() && tc.now().Add(tc.margin).Before(tc.tok.Expiry) {
		return tc.tok, nil
	}

	tok, err := tc.cfg.Token(context.WithValue(ctx, oauth2.HTTPClient, tc.httpClient))
	if err != nil {
		return nil, err
	}
	tc.tok = tok
	return tok, nil
}
