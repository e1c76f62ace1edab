package google

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"

	"github.com/emailzen/emailzen/internal/storage"
)

// TokenProvider supplies OAuth2 tokens to the Gmail client and lets it
// discard an access token the API no longer accepts.
type TokenProvider interface {
	Token(ctx context.Context) (*oauth2.Token, error)
	InvalidateAccess() error
	HasToken() bool
}

// storedToken is the persisted token shape. The refresh token is the
// durable credential; the access token and expiry are a cache.
type storedToken struct {
	AccessToken  string    `json:"accessToken,omitempty"`
	RefreshToken string    `json:"refreshToken"`
	TokenType    string    `json:"tokenType,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

// Authenticator implements TokenProvider on top of a storage.Store.
type Authenticator struct {
	conf  *oauth2.Config
	store storage.Store

	mu sync.Mutex
}

// CredentialsFromEnv reads the OAuth client credentials from
// GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET.
func CredentialsFromEnv() (clientID, clientSecret string, err error) {
	clientID = os.Getenv("GOOGLE_CLIENT_ID")
	clientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		return "", "", fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set")
	}
	return clientID, clientSecret, nil
}

// NewAuthenticator builds an Authenticator for the Gmail scopes the
// organizer needs: modify for label mutations, labels for label
// management, readonly for message metadata.
func NewAuthenticator(store storage.Store, clientID, clientSecret string) *Authenticator {
	const oob = "urn:ietf:wg:oauth:2.0:oob"
	return &Authenticator{
		store: store,
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  oob,
			Scopes: []string{
				gmail.GmailModifyScope,
				gmail.GmailLabelsScope,
				gmail.GmailReadonlyScope,
			},
		},
	}
}

// AuthURL returns the URL the user visits to authorize access.
func (a *Authenticator) AuthURL() string {
	return a.conf.AuthCodeURL("state", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for tokens and persists them.
func (a *Authenticator) Exchange(ctx context.Context, authCode string) error {
	t, err := a.conf.Exchange(ctx, authCode)
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}
	if t.RefreshToken == "" {
		return fmt.Errorf("authorization response contained no refresh token, revoke access and authorize again")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.save(t)
}

// HasToken reports whether a stored credential exists.
func (a *Authenticator) HasToken() bool {
	var st storedToken
	ok, err := a.store.Get(storage.KeyToken, &st)
	return err == nil && ok && st.RefreshToken != ""
}

// Token returns a valid access token, refreshing through the stored
// refresh token when the cached one is missing or expired. Refreshed
// tokens are persisted so the next process reuses them.
func (a *Authenticator) Token(ctx context.Context) (*oauth2.Token, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var st storedToken
	ok, err := a.store.Get(storage.KeyToken, &st)
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}
	if !ok || st.RefreshToken == "" {
		return nil, fmt.Errorf("not authenticated, run 'emailzen auth' first")
	}

	cached := &oauth2.Token{
		AccessToken:  st.AccessToken,
		RefreshToken: st.RefreshToken,
		TokenType:    st.TokenType,
		Expiry:       st.Expiry,
	}
	if cached.Valid() {
		return cached, nil
	}

	fresh, err := a.conf.TokenSource(ctx, &oauth2.Token{
		RefreshToken: st.RefreshToken,
		Expiry:       time.Unix(1, 0),
	}).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh access token: %w", err)
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = st.RefreshToken
	}
	if err := a.save(fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

// InvalidateAccess drops the cached access token but keeps the refresh
// token, forcing the next Token call to mint a new access token. The
// Gmail client calls this when a request comes back 401 or 403.
func (a *Authenticator) InvalidateAccess() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var st storedToken
	ok, err := a.store.Get(storage.KeyToken, &st)
	if err != nil || !ok {
		return err
	}
	st.AccessToken = ""
	st.Expiry = time.Time{}
	return a.store.Set(storage.KeyToken, st)
}

// Logout removes the stored credential entirely.
func (a *Authenticator) Logout() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.store.Remove(storage.KeyToken, storage.KeyTokenStamp)
}

func (a *Authenticator) save(t *oauth2.Token) error {
	st := storedToken{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.Expiry,
	}
	if err := a.store.Set(storage.KeyToken, st); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}
	return a.store.Set(storage.KeyTokenStamp, time.Now().UnixMilli())
}

// TokenSource adapts the Authenticator to oauth2.TokenSource for the
// Gmail SDK. Every request asks the provider, so an invalidated access
// token is replaced without rebuilding the service.
func TokenSource(ctx context.Context, provider TokenProvider) oauth2.TokenSource {
	return tokenSource{ctx: ctx, provider: provider}
}

type tokenSource struct {
	ctx      context.Context
	provider TokenProvider
}

func (ts tokenSource) Token() (*oauth2.Token, error) {
	return ts.provider.Token(ts.ctx)
}

// HTTPClient returns an HTTP client that authenticates with the
// provider's tokens.
func HTTPClient(ctx context.Context, provider TokenProvider) *http.Client {
	return oauth2.NewClient(ctx, TokenSource(ctx, provider))
}
