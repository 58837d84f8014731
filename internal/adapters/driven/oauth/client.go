// Package oauth talks to the provider's authorization endpoint: code exchange,
// refresh-token exchange and the consent URL.
package oauth

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/custodia-labs/listingsync/internal/core/domain"
	"github.com/custodia-labs/listingsync/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.AuthorizationClient = (*Client)(nil)

// Client exchanges codes and refresh tokens with golang.org/x/oauth2.
type Client struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the provider endpoint. Defaults to Google.
func WithEndpoint(endpoint oauth2.Endpoint) Option {
	return func(c *Client) {
		c.config.Endpoint = endpoint
	}
}

// WithHTTPClient sets the HTTP client used for token requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// NewClient creates an authorization endpoint client from OAuth settings.
func NewClient(settings domain.OAuthSettings, opts ...Option) *Client {
	c := &Client{
		config: &oauth2.Config{
			ClientID:     settings.ClientID,
			ClientSecret: settings.ClientSecret,
			RedirectURL:  settings.RedirectURL,
			Scopes:       settings.Scopes,
			Endpoint:     google.Endpoint,
		},
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	// Auto-detection retries a rejected request with the other auth style,
	// which would send a single-use code twice.
	if c.config.Endpoint.AuthStyle == oauth2.AuthStyleAutoDetect {
		c.config.Endpoint.AuthStyle = oauth2.AuthStyleInParams
	}
	return c
}

// AuthCodeURL builds the consent URL. Offline access and forced consent make
// the provider return a refresh token.
func (c *Client) AuthCodeURL(state, codeChallenge string) string {
	opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent")}
	if codeChallenge != "" {
		opts = append(opts,
			oauth2.SetAuthURLParam("code_challenge", codeChallenge),
			oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		)
	}
	return c.config.AuthCodeURL(state, opts...)
}

// ExchangeCode redeems an authorization code.
func (c *Client) ExchangeCode(ctx context.Context, code, codeVerifier string) (*driven.TokenGrant, error) {
	var opts []oauth2.AuthCodeOption
	if codeVerifier != "" {
		opts = append(opts, oauth2.VerifierOption(codeVerifier))
	}

	tok, err := c.config.Exchange(c.context(ctx), code, opts...)
	if err != nil {
		return nil, classify("exchange authorization code", err)
	}
	return grant(tok), nil
}

// ExchangeRefreshToken obtains a new access token.
func (c *Client) ExchangeRefreshToken(ctx context.Context, refreshToken string) (*driven.TokenGrant, error) {
	src := c.config.TokenSource(c.context(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, classify("refresh access token", err)
	}

	g := grant(tok)
	// x/oauth2 copies the request's refresh token into the response when the
	// provider did not rotate it.
	if g.RefreshToken == refreshToken {
		g.RefreshToken = ""
	}
	return g, nil
}

func (c *Client) context(ctx context.Context) context.Context {
	if c.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func grant(tok *oauth2.Token) *driven.TokenGrant {
	g := &driven.TokenGrant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if tok.ExpiresIn > 0 {
		expiresIn := tok.ExpiresIn
		g.ExpiresInSeconds = &expiresIn
	}
	return g
}

// classify maps x/oauth2 errors onto the upstream error taxonomy.
// Context errors pass through unchanged.
func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var retrieve *oauth2.RetrieveError
	if errors.As(err, &retrieve) {
		status := 0
		if retrieve.Response != nil {
			status = retrieve.Response.StatusCode
		}
		if status >= http.StatusInternalServerError || status == http.StatusTooManyRequests {
			return &domain.UpstreamUnavailableError{Op: op, StatusCode: status, Err: err}
		}
		return &domain.UpstreamRejectedError{
			Op:         op,
			StatusCode: status,
			Code:       retrieve.ErrorCode,
			Message:    retrieve.ErrorDescription,
		}
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return &domain.UpstreamUnavailableError{Op: op, Err: err}
	}

	// Malformed success responses, e.g. a body without access_token.
	return &domain.UpstreamRejectedError{Op: op, StatusCode: http.StatusOK, Message: err.Error()}
}

