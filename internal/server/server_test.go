package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/shared"
)

type fakeExchanger struct {
	code, verifier string
	err            error
	calls          int
}

func (f *fakeExchanger) ExchangeCode(_ context.Context, code, verifier string) (*services.Session, error) {
	f.calls++
	f.code, f.verifier = code, verifier
	if f.err != nil {
		return nil, f.err
	}
	return &services.Session{AccessToken: "access", RefreshToken: "refresh", User: &services.User{ID: "user-1"}}, nil
}

func TestCallbackHandler(t *testing.T) {
	t.Run("ExchangesCode", func(t *testing.T) {
		ex := &fakeExchanger{}
		h := NewCallbackHandler(ex, "verifier-123", "")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?code=abc", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Signed in") {
			t.Errorf("expected success page, got %q", rec.Body.String())
		}
		if ex.code != "abc" || ex.verifier != "verifier-123" {
			t.Errorf("unexpected exchange args: code=%q verifier=%q", ex.code, ex.verifier)
		}

		res := <-h.Result()
		if res.Err() != nil {
			t.Fatalf("unexpected error: %v", res.Err())
		}
		if res.Session.UserID() != "user-1" {
			t.Errorf("expected user-1, got %q", res.Session.UserID())
		}
	})

	t.Run("MissingCode", func(t *testing.T) {
		h := NewCallbackHandler(&fakeExchanger{}, "v", "")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?error=access_denied&error_description=nope", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		res := <-h.Result()
		if !errors.Is(res.Err(), shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", res.Err())
		}
		if !strings.Contains(res.Err().Error(), "access_denied") {
			t.Errorf("expected provider error in message, got %v", res.Err())
		}
	})

	t.Run("StateMismatch", func(t *testing.T) {
		ex := &fakeExchanger{}
		h := NewCallbackHandler(ex, "v", "expected")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?code=abc&state=other", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if ex.calls != 0 {
			t.Error("code should not be exchanged on state mismatch")
		}
		if res := <-h.Result(); !errors.Is(res.Err(), shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", res.Err())
		}
	})

	t.Run("ExchangeFails", func(t *testing.T) {
		h := NewCallbackHandler(&fakeExchanger{err: errors.New("bad code")}, "v", "")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?code=abc", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		res := <-h.Result()
		if !errors.Is(res.Err(), shared.ErrAuthFailed) || !strings.Contains(res.Err().Error(), "bad code") {
			t.Errorf("unexpected error: %v", res.Err())
		}
	})

	t.Run("SecondCallbackRejected", func(t *testing.T) {
		ex := &fakeExchanger{}
		h := NewCallbackHandler(ex, "v", "")
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?code=abc", nil))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?code=def", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for replay, got %d", rec.Code)
		}
		if ex.calls != 1 {
			t.Errorf("expected a single exchange, got %d", ex.calls)
		}
	})
}

func TestCallbackRouter(t *testing.T) {
	logger := shared.NewLogger(io.Discard)
	h := NewCallbackHandler(&fakeExchanger{}, "v", "")
	srv := httptest.NewServer(NewCallbackRouter(h, logger))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/callback", "text/plain", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for POST, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/callback?code=abc")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestMiddlewareOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	r := NewBasicRouter()
	r.Use(mark("first"), mark("second"))
	r.Handle(http.MethodGet, "/x", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		order = append(order, "handler")
	}))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	if strings.Join(order, ",") != "first,second,handler" {
		t.Errorf("unexpected order: %v", order)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	r := NewBasicRouter()
	r.Use(RecoverMiddleware(shared.NewLogger(io.Discard)))
	r.Handle(http.MethodGet, "/boom", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestWaitForCallback(t *testing.T) {
	logger := shared.NewLogger(io.Discard)

	t.Run("DeliversSession", func(t *testing.T) {
		ln, err := Listen("127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		h := NewCallbackHandler(&fakeExchanger{}, "v", "")

		go func() {
			resp, err := http.Get("http://" + ln.Addr().String() + "/callback?code=abc")
			if err == nil {
				resp.Body.Close()
			}
		}()

		res, err := WaitForCallback(context.Background(), ln, NewCallbackRouter(h, logger), h, 5*time.Second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Session.AccessToken != "access" {
			t.Errorf("unexpected session: %+v", res.Session)
		}
	})

	t.Run("ContextCancelled", func(t *testing.T) {
		ln, err := Listen("127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		h := NewCallbackHandler(&fakeExchanger{}, "v", "")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := WaitForCallback(ctx, ln, NewCallbackRouter(h, logger), h, time.Minute); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("Timeout", func(t *testing.T) {
		ln, err := Listen("127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		h := NewCallbackHandler(&fakeExchanger{}, "v", "")

		_, err = WaitForCallback(context.Background(), ln, NewCallbackRouter(h, logger), h, 50*time.Millisecond)
		if err == nil || !strings.Contains(err.Error(), "timed out") {
			t.Errorf("expected timeout error, got %v", err)
		}
	})
}
