package oidc

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cyberblue/soc-console/internal/domain/auth"
)

// DefaultCallbackPort is the default port for the loopback redirect server.
const DefaultCallbackPort = 8765

// CallbackTimeout bounds how long a login waits for the browser redirect.
const CallbackTimeout = 10 * time.Minute

const callbackSuccessPage = `<!DOCTYPE html>
<html><head><title>Signed in</title></head>
<body><h1>Signed in</h1><p>You can close this tab and return to the console.</p></body></html>
`

const callbackErrorPage = `<!DOCTYPE html>
<html><head><title>Sign-in failed</title></head>
<body><h1>Sign-in failed</h1><p>%s</p><p>Close this tab and retry from the console.</p></body></html>
`

// callbackServer is a short-lived loopback HTTP server that receives exactly
// one authorization redirect, hands it to the waiting login flow, then shuts
// down.
type callbackServer struct {
	port     int
	server   *http.Server
	listener net.Listener
	resultCh chan *auth.Callback
	errCh    chan error
	once     sync.Once
	baseURL  string
}

func newCallbackServer(port int) *callbackServer {
	if port == 0 {
		port = DefaultCallbackPort
	}
	return &callbackServer{
		port:     port,
		resultCh: make(chan *auth.Callback, 1),
		errCh:    make(chan error, 1),
	}
}

// Start binds the loopback listener and returns the redirect URI to register
// in the authorization request. The server stops when ctx is cancelled.
func (s *callbackServer) Start(ctx context.Context) (string, error) {
	addr := fmt.Sprintf("127.0.0.1:%d", s.port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to start callback server on %s: %w", addr, err)
	}

	s.listener = listener
	s.port = listener.Addr().(*net.TCPAddr).Port
	s.baseURL = fmt.Sprintf("http://localhost:%d", s.port)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", s.handle)

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			select {
			case s.errCh <- err:
			default:
			}
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return s.RedirectURI(), nil
}

// Wait blocks until the redirect arrives, the server fails, or ctx expires.
func (s *callbackServer) Wait(ctx context.Context) (*auth.Callback, error) {
	select {
	case cb := <-s.resultCh:
		return cb, nil
	case err := <-s.errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// handle accepts the first redirect and rejects any repeat delivery.
func (s *callbackServer) handle(w http.ResponseWriter, r *http.Request) {
	var handled bool
	s.once.Do(func() {
		handled = true
		s.process(w, r)
	})
	if !handled {
		http.Error(w, "callback already processed", http.StatusBadRequest)
	}
}

func (s *callbackServer) process(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-store")

	q := r.URL.Query()
	cb := &auth.Callback{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		ErrorCode:        q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if cb.ErrorCode != "" {
		fmt.Fprintf(w, callbackErrorPage, http.StatusText(http.StatusBadRequest))
	} else {
		fmt.Fprint(w, callbackSuccessPage)
	}

	select {
	case s.resultCh <- cb:
	default:
	}

	// Let the response flush before tearing the server down.
	go func() {
		time.Sleep(time.Second)
		s.Stop()
	}()
}

// Stop shuts the server down. Safe to call more than once.
func (s *callbackServer) Stop() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

// RedirectURI is the redirect target registered with the identity provider.
func (s *callbackServer) RedirectURI() string {
	return s.baseURL + "/callback"
}
