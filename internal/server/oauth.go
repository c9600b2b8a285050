package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/shared"
)

// Exchanger trades a PKCE authorization code for a session. It is satisfied by [*services.Client].
type Exchanger interface {
	ExchangeCode(ctx context.Context, code, verifier string) (*services.Session, error)
}

// CallbackResult contains the result of a provider sign-in.
type CallbackResult struct {
	Session *services.Session
	err     error
}

func (o *CallbackResult) Err() error {
	return o.err
}

// CallbackHandler handles the redirect back from the auth provider in the PKCE flow.
//
// The auth service redirects to /callback?code=... after the user signs in with a provider. The handler exchanges
// the code together with the verifier generated before the redirect and sends the session on the result channel.
type CallbackHandler struct {
	auth        Exchanger
	verifier    string
	state       string
	resultChan  chan CallbackResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewCallbackHandler creates a handler that completes a PKCE sign-in with verifier.
// When state is non-empty the callback must echo it.
func NewCallbackHandler(auth Exchanger, verifier, state string) *CallbackHandler {
	return &CallbackHandler{
		auth:       auth,
		verifier:   verifier,
		state:      state,
		resultChan: make(chan CallbackResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{"GET /callback"}
}

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: {{.Color}}; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <p>{{.Message}}</p>
    </div>
</body>
</html>
`))

type page struct {
	Title, Message, Color string
}

func writePage(w http.ResponseWriter, status int, p page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	pageTmpl.Execute(w, p)
}

func failPage(message string) page {
	return page{Title: "Sign-in failed", Message: message, Color: "#d9534f"}
}

// ServeHTTP handles the callback request. Only the first request is processed.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		writePage(w, http.StatusBadRequest, failPage("This sign-in link was already used."))
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	q := r.URL.Query()
	if h.state != "" && q.Get("state") != h.state {
		h.Send(CallbackResult{err: fmt.Errorf("%w: invalid state parameter", shared.ErrAuthFailed)})
		writePage(w, http.StatusBadRequest, failPage("Invalid state parameter."))
		return
	}

	code := q.Get("code")
	if code == "" {
		err := fmt.Errorf("%w: %s - %s", shared.ErrAuthFailed, q.Get("error"), q.Get("error_description"))
		h.Send(CallbackResult{err: err})
		writePage(w, http.StatusBadRequest, failPage("The provider did not return an authorization code."))
		return
	}

	session, err := h.auth.ExchangeCode(r.Context(), code, h.verifier)
	if err != nil {
		h.Send(CallbackResult{err: fmt.Errorf("%w: code exchange failed: %w", shared.ErrAuthFailed, err)})
		writePage(w, http.StatusInternalServerError, failPage("Could not complete sign-in. Check the terminal for details."))
		return
	}

	h.Send(CallbackResult{Session: session})
	writePage(w, http.StatusOK, page{
		Title:   "✓ Signed in",
		Message: "You can close this window and return to the terminal.",
		Color:   "#1DB954",
	})
}

// Send sends the result through the channel (only once).
func (h *CallbackHandler) Send(result CallbackResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving sign-in completion.
//
// Channel will receive exactly one result and then be closed.
func (h *CallbackHandler) Result() <-chan CallbackResult {
	return h.resultChan
}
