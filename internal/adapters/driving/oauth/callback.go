// Package oauth runs the local end of the browser authorization code flow:
// a loopback callback server, PKCE helpers and the login sequence that ties
// them to the credential manager.
package oauth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/custodia-labs/listingsync/internal/core/domain"
	"github.com/custodia-labs/listingsync/internal/logger"
)

// callbackResult is the outcome of the one redirect the server waits for.
type callbackResult struct {
	code string
	err  error
}

// CallbackServer receives the provider's redirect on a loopback address.
type CallbackServer struct {
	host          string
	path          string
	expectedState string
	results       chan callbackResult

	mu       sync.Mutex
	port     int
	server   *http.Server
	listener net.Listener
}

// NewCallbackServer creates a callback server for redirectURL, which must be
// an http loopback URL such as http://localhost:8085/callback. Port 0 picks
// a free port when the server starts.
func NewCallbackServer(redirectURL, expectedState string) (*CallbackServer, error) {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return nil, fmt.Errorf("%w: redirect url: %v", domain.ErrInvalidInput, err)
	}
	if u.Scheme != "http" {
		return nil, fmt.Errorf("%w: redirect url must use http, got %q", domain.ErrInvalidInput, u.Scheme)
	}
	host := u.Hostname()
	if host != "localhost" && host != "127.0.0.1" {
		return nil, fmt.Errorf("%w: redirect url must point at localhost, got %q", domain.ErrInvalidInput, host)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		return nil, fmt.Errorf("%w: redirect url needs an explicit port", domain.ErrInvalidInput)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	return &CallbackServer{
		host:          host,
		port:          port,
		path:          path,
		expectedState: expectedState,
		results:       make(chan callbackResult, 1),
	}, nil
}

// Start listens on 127.0.0.1 and serves the callback path.
func (s *CallbackServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	listener, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(s.port)))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.port, err)
	}
	s.listener = listener
	s.port = listener.Addr().(*net.TCPAddr).Port

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get(s.path, s.handleCallback)
	s.server = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.deliver(callbackResult{err: err})
		}
	}()

	logger.Debug("oauth: callback server listening on %s", s.redirectURI(s.port))
	return nil
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	// Every outcome, provider errors included, must carry our state. Anything
	// else is a stale tab or a forged request; keep waiting for the real one.
	if subtle.ConstantTimeCompare([]byte(query.Get("state")), []byte(s.expectedState)) != 1 {
		logger.Warn("oauth: ignoring callback with unexpected state")
		writeResult(w, http.StatusBadRequest, "Authorization failed", "The request did not come from this login.")
		return
	}

	if code := query.Get("error"); code != "" {
		desc := query.Get("error_description")
		s.deliver(callbackResult{err: &domain.AuthExchangeError{Code: code, Description: desc}})
		writeResult(w, http.StatusBadRequest, "Authorization failed", desc)
		return
	}

	code := query.Get("code")
	if code == "" {
		s.deliver(callbackResult{err: errors.New("no authorization code received")})
		writeResult(w, http.StatusBadRequest, "Authorization failed", "The provider sent no code.")
		return
	}

	s.deliver(callbackResult{code: code})
	writeResult(w, http.StatusOK, "Authorization successful", "You can close this window and return to the terminal.")
}

// deliver keeps the first outcome; later ones are dropped.
func (s *CallbackServer) deliver(res callbackResult) {
	select {
	case s.results <- res:
	default:
	}
}

// WaitForCode blocks until a code arrives, the provider reports an error,
// or ctx is done.
func (s *CallbackServer) WaitForCode(ctx context.Context) (string, error) {
	select {
	case res := <-s.results:
		return res.code, res.err
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for authorization callback: %w", ctx.Err())
	}
}

// Stop shuts the server down, waiting up to five seconds for the response
// page to be written.
func (s *CallbackServer) Stop() error {
	s.mu.Lock()
	server := s.server
	s.mu.Unlock()

	if server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

// Port reports the bound port once Start has run.
func (s *CallbackServer) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// RedirectURI returns the redirect URI the provider must send the user back to.
func (s *CallbackServer) RedirectURI() string {
	return s.redirectURI(s.Port())
}

func (s *CallbackServer) redirectURI(port int) string {
	u := url.URL{Scheme: "http", Host: net.JoinHostPort(s.host, strconv.Itoa(port)), Path: s.path}
	return u.String()
}

var resultPage = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>listingsync</title></head>
<body style="font-family: sans-serif; max-width: 32em; margin: 4em auto; text-align: center">
<h2>{{.Title}}</h2>
<p>{{.Message}}</p>
</body>
</html>
`))

func writeResult(w http.ResponseWriter, status int, title, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := resultPage.Execute(w, struct{ Title, Message string }{title, message}); err != nil {
		logger.Debug("oauth: writing result page: %v", err)
	}
}

// browserCommands maps GOOS to the command that opens a URL.
var browserCommands = map[string][]string{
	"darwin":  {"open"},
	"linux":   {"xdg-open"},
	"freebsd": {"xdg-open"},
	"windows": {"rundll32", "url.dll,FileProtocolHandler"},
}

// OpenBrowser opens target in the user's default browser.
func OpenBrowser(target string) error {
	argv, ok := browserCommands[runtime.GOOS]
	if !ok {
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	args := append(append([]string{}, argv[1:]...), target)
	return exec.Command(argv[0], args...).Start() //nolint:gosec // fixed command, URL built by us
}
