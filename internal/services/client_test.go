package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
	tu "github.com/desertthunder/encore/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type recorded struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// recorder is an httptest backend that captures requests and answers from a route table.
type recorder struct {
	mu       sync.Mutex
	requests []recorded
	routes   map[string]func(w http.ResponseWriter, r *http.Request)
}

func newRecorder(t *testing.T) (*recorder, *Client) {
	t.Helper()
	rec := &recorder{routes: map[string]func(http.ResponseWriter, *http.Request){}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.requests = append(rec.requests, recorded{r.Method, r.URL.Path, r.URL.Query(), r.Header.Clone(), body})
		h, ok := rec.routes[r.Method+" "+r.URL.Path]
		rec.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`[]`))
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := New(Config{URL: srv.URL + "/", APIKey: "anon"})
	require.NoError(t, err)
	return rec, client
}

func (r *recorder) on(method, path string, status int, body string) {
	r.routes[method+" "+path] = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}

func (r *recorder) last() recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests[len(r.requests)-1]
}

func TestNew(t *testing.T) {
	_, err := New(Config{APIKey: "k"})
	assert.ErrorIs(t, err, shared.ErrMissingConfig)

	_, err = New(Config{URL: "http://x"})
	assert.ErrorIs(t, err, shared.ErrMissingCredentials)

	c, err := New(Config{URL: "http://x/", APIKey: "k", RateLimit: 5})
	require.NoError(t, err)
	assert.Equal(t, "http://x", c.BaseURL())
	assert.NotNil(t, c.limiter)
}

func TestQueryBuilder(t *testing.T) {
	_, c := newRecorder(t)

	t.Run("select with filters", func(t *testing.T) {
		u, err := url.Parse(c.From("tags").Select("id,name").Eq("category", models.CategoryMood).
			ILike("name", "*chill*").Order("name", true).Limit(5).URL())
		require.NoError(t, err)

		q := u.Query()
		assert.Equal(t, "/rest/v1/tags", u.Path)
		assert.Equal(t, "id,name", q.Get("select"))
		assert.Equal(t, "eq.mood", q.Get("category"))
		assert.Equal(t, "ilike.*chill*", q.Get("name"))
		assert.Equal(t, "name.asc", q.Get("order"))
		assert.Equal(t, "5", q.Get("limit"))
	})

	t.Run("inner join filter", func(t *testing.T) {
		u, err := url.Parse(c.From("songs").Select("*").InnerEq("song_album", "album_id", "a1").Order("position", false).URL())
		require.NoError(t, err)

		q := u.Query()
		assert.Equal(t, "*,song_album!inner(album_id)", q.Get("select"))
		assert.Equal(t, "eq.a1", q.Get("song_album.album_id"))
		assert.Equal(t, "position.desc", q.Get("order"))
	})

	t.Run("in and is", func(t *testing.T) {
		u, err := url.Parse(c.From("songs").In("id", "a", "b,c").Is("deleted_at", nil).URL())
		require.NoError(t, err)

		q := u.Query()
		assert.Equal(t, `in.(a,"b,c")`, q.Get("id"))
		assert.Equal(t, "is.null", q.Get("deleted_at"))
		assert.Equal(t, "*", q.Get("select"))
	})

	t.Run("writes omit select", func(t *testing.T) {
		u, err := url.Parse(c.From("albums").Eq("id", 7).Delete().URL())
		require.NoError(t, err)
		assert.Empty(t, u.Query().Get("select"))
		assert.Equal(t, "eq.7", u.Query().Get("id"))
	})
}

func TestQueryExecution(t *testing.T) {
	t.Run("upsert sends merge preference and conflict target", func(t *testing.T) {
		rec, c := newRecorder(t)
		rec.on(http.MethodPost, "/rest/v1/tags", http.StatusCreated, `[{"id":"t1","name":"jazz","category":"genre"}]`)

		var rows []models.TagRecord
		err := c.From("tags").Upsert(models.TagRecord{Name: "jazz", Category: "genre"}, "name,category").ExecuteInto(context.Background(), &rows)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "t1", rows[0].ID)

		req := rec.last()
		assert.Equal(t, "name,category", req.Query.Get("on_conflict"))
		assert.Contains(t, req.Header.Get("Prefer"), "resolution=merge-duplicates")
		assert.Contains(t, req.Header.Get("Prefer"), "return=representation")
		assert.Equal(t, "anon", req.Header.Get("apikey"))
		assert.JSONEq(t, `{"name":"jazz","category":"genre"}`, string(req.Body))
	})

	t.Run("update uses PATCH with filters", func(t *testing.T) {
		rec, c := newRecorder(t)
		err := c.From("artists").Eq("id", "u1").Update(map[string]string{"name": "Nova"}).ExecuteInto(context.Background(), nil)
		require.NoError(t, err)

		req := rec.last()
		assert.Equal(t, http.MethodPatch, req.Method)
		assert.Equal(t, "eq.u1", req.Query.Get("id"))
	})

	t.Run("single sets object accept header", func(t *testing.T) {
		rec, c := newRecorder(t)
		rec.on(http.MethodGet, "/rest/v1/platform_constants", http.StatusOK, `{"min_stream_threshold":250}`)

		var pc models.PlatformConstants
		require.NoError(t, c.From("platform_constants").Select("*").Single().ExecuteInto(context.Background(), &pc))
		assert.Equal(t, 250, pc.MinStreamThreshold)
		assert.Equal(t, "application/vnd.pgrst.object+json", rec.last().Header.Get("Accept"))
	})

	t.Run("errors decode into typed error", func(t *testing.T) {
		rec, c := newRecorder(t)
		rec.on(http.MethodGet, "/rest/v1/albums", http.StatusNotAcceptable,
			`{"code":"PGRST116","message":"JSON object requested, multiple (or no) rows returned","details":"0 rows"}`)

		err := c.From("albums").Eq("id", "x").Single().ExecuteInto(context.Background(), &models.AlbumRecord{})
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrAPIRequest)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		apiErr, ok := AsError(err)
		require.True(t, ok)
		assert.Equal(t, "PGRST116", apiErr.Code)
		assert.Equal(t, "0 rows", apiErr.Details)
	})

	t.Run("rpc posts params", func(t *testing.T) {
		rec, c := newRecorder(t)
		rec.on(http.MethodPost, "/rest/v1/rpc/delete_track", http.StatusNoContent, ``)

		require.NoError(t, c.RPC(context.Background(), "delete_track", map[string]string{"p_song_id": "s1"}, nil))
		assert.JSONEq(t, `{"p_song_id":"s1"}`, string(rec.last().Body))
	})

	t.Run("count header", func(t *testing.T) {
		h := http.Header{}
		h.Set("Content-Range", "0-9/42")
		assert.Equal(t, 42, ContentRangeTotal(h))
		h.Set("Content-Range", "0-9/*")
		assert.Equal(t, -1, ContentRangeTotal(h))
	})
}

func TestParseError(t *testing.T) {
	tc := []struct {
		name    string
		status  int
		body    string
		wantMsg string
		wantIs  error
	}{
		{name: "postgrest", status: 409, body: `{"code":"23505","message":"duplicate key"}`, wantMsg: "duplicate key", wantIs: shared.ErrAPIRequest},
		{name: "auth", status: 401, body: `{"error":"invalid_grant","error_description":"Invalid login credentials"}`, wantMsg: "Invalid login credentials", wantIs: shared.ErrNotAuthenticated},
		{name: "gotrue numeric code", status: 400, body: `{"code":400,"msg":"weak password"}`, wantMsg: "weak password", wantIs: shared.ErrAPIRequest},
		{name: "storage not found", status: 404, body: `{"statusCode":"404","error":"not_found","message":"Object not found"}`, wantMsg: "Object not found", wantIs: shared.ErrNotFound},
		{name: "plain text", status: 502, body: `bad gateway`, wantMsg: "bad gateway", wantIs: shared.ErrServiceUnavailable},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			err := parseError([]byte(tt.body), tt.status)
			assert.ErrorIs(t, err, tt.wantIs)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestStorage(t *testing.T) {
	rec, c := newRecorder(t)
	ctx := context.Background()

	require.NoError(t, c.Upload(ctx, "music", "abc.mp3", tu.MP3Header))
	req := rec.last()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/storage/v1/object/music/abc.mp3", req.Path)
	assert.Equal(t, "audio/mpeg", req.Header.Get("Content-Type"))

	require.NoError(t, c.Update(ctx, "images", "c.png", tu.PNGHeader))
	assert.Equal(t, http.MethodPut, rec.last().Method)
	assert.Equal(t, "image/png", rec.last().Header.Get("Content-Type"))

	require.NoError(t, c.Remove(ctx, "music", "a.mp3", "b.mp3"))
	assert.Equal(t, http.MethodDelete, rec.last().Method)
	assert.JSONEq(t, `{"prefixes":["a.mp3","b.mp3"]}`, string(rec.last().Body))

	before := len(rec.requests)
	require.NoError(t, c.Remove(ctx, "music"))
	assert.Len(t, rec.requests, before, "removing nothing sends no request")

	public := c.PublicURL("music", "abc.mp3")
	assert.True(t, strings.HasSuffix(public, "/storage/v1/object/public/music/abc.mp3"))
	assert.Equal(t, "abc.mp3", ObjectName(public, "music"))
	assert.Empty(t, ObjectName(public, "images"))

	assert.True(t, IsAudio(tu.MP3Header))
	assert.True(t, IsImage(tu.PNGHeader))
	assert.False(t, IsAudio(tu.PNGHeader))
}

func TestFunctions(t *testing.T) {
	rec, c := newRecorder(t)
	rec.on(http.MethodPost, "/functions/v1/record-play", http.StatusOK, `{"streams":12,"threshold_met":true}`)

	var out PlayResult
	require.NoError(t, c.Invoke(context.Background(), FnRecordPlay, map[string]string{"song_id": "s1"}, &out))
	assert.Equal(t, 12, out.Streams)
	assert.True(t, out.ThresholdMet)

	rec.on(http.MethodPost, "/functions/v1/delete-user", http.StatusForbidden, `{"error":"forbidden"}`)
	err := c.Invoke(context.Background(), FnDeleteUser, nil, nil)
	assert.ErrorIs(t, err, shared.ErrAPIRequest)
	assert.JSONEq(t, `{}`, string(rec.last().Body))
}

func TestAuth(t *testing.T) {
	ctx := context.Background()

	t.Run("sign in", func(t *testing.T) {
		rec, c := newRecorder(t)
		rec.on(http.MethodPost, "/auth/v1/token", http.StatusOK,
			`{"access_token":"at","token_type":"bearer","expires_in":3600,"refresh_token":"rt","user":{"id":"u1","email":"a@b.c"}}`)

		s, err := c.SignIn(ctx, "a@b.c", "pw")
		require.NoError(t, err)
		assert.Equal(t, "password", rec.last().Query.Get("grant_type"))
		assert.Equal(t, "u1", s.UserID())
		assert.Greater(t, s.ExpiresAt, time.Now().Unix())
		assert.True(t, s.Token().Valid())
	})

	t.Run("bad credentials", func(t *testing.T) {
		rec, c := newRecorder(t)
		rec.on(http.MethodPost, "/auth/v1/token", http.StatusBadRequest, `{"error":"invalid_grant","error_description":"Invalid login credentials"}`)

		_, err := c.SignIn(ctx, "a@b.c", "nope")
		assert.ErrorIs(t, err, shared.ErrAuthFailed)
	})

	t.Run("refresh without token", func(t *testing.T) {
		_, c := newRecorder(t)
		_, err := c.Refresh(ctx, "")
		assert.ErrorIs(t, err, shared.ErrNoRefreshToken)
	})

	t.Run("pkce exchange", func(t *testing.T) {
		rec, c := newRecorder(t)
		rec.on(http.MethodPost, "/auth/v1/token", http.StatusOK, `{"access_token":"at","refresh_token":"rt","expires_in":60}`)

		verifier := NewVerifier()
		authURL, err := url.Parse(c.AuthorizeURL("github", "http://127.0.0.1:3000/callback", verifier))
		require.NoError(t, err)
		assert.Equal(t, oauth2.S256ChallengeFromVerifier(verifier), authURL.Query().Get("code_challenge"))
		assert.Equal(t, "github", authURL.Query().Get("provider"))

		_, err = c.ExchangeCode(ctx, "code123", verifier)
		require.NoError(t, err)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.last().Body, &body))
		assert.Equal(t, "pkce", rec.last().Query.Get("grant_type"))
		assert.Equal(t, "code123", body["auth_code"])
		assert.Equal(t, verifier, body["code_verifier"])
	})

	t.Run("session bearer is used for data requests", func(t *testing.T) {
		rec, c := newRecorder(t)
		s := &Session{AccessToken: "user-at", ExpiresAt: time.Now().Add(time.Hour).Unix()}
		authed := c.WithSession(oauth2.StaticTokenSource(s.Token()))

		require.NoError(t, authed.From("albums").ExecuteInto(ctx, nil))
		assert.Equal(t, "Bearer user-at", rec.last().Header.Get("Authorization"))
		assert.Equal(t, "anon", rec.last().Header.Get("apikey"))
	})
}

type stubAuth struct {
	Authenticator
	refreshed int
	err       error
}

func (s *stubAuth) Refresh(ctx context.Context, token string) (*Session, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.refreshed++
	return &Session{AccessToken: "fresh", RefreshToken: "rt2", ExpiresAt: time.Now().Add(time.Hour).Unix()}, nil
}

func TestSessionSource(t *testing.T) {
	t.Run("refreshes expired session once", func(t *testing.T) {
		auth := &stubAuth{}
		expired := &Session{AccessToken: "old", RefreshToken: "rt", ExpiresAt: time.Now().Add(-time.Minute).Unix(), User: &User{ID: "u1"}}

		var saved *Session
		src, ts := NewSessionSource(auth, expired, func(s *Session) error { saved = s; return nil })

		tok, err := ts.Token()
		require.NoError(t, err)
		assert.Equal(t, "fresh", tok.AccessToken)

		_, err = ts.Token()
		require.NoError(t, err)
		assert.Equal(t, 1, auth.refreshed)

		require.NotNil(t, saved)
		assert.Equal(t, "u1", saved.UserID(), "user carried over")
		assert.Equal(t, "fresh", src.Session().AccessToken)
	})

	t.Run("refresh failure surfaces", func(t *testing.T) {
		auth := &stubAuth{err: shared.ErrRefreshFailed}
		expired := &Session{AccessToken: "old", RefreshToken: "rt", ExpiresAt: 1}
		_, ts := NewSessionSource(auth, expired, nil)

		_, err := ts.Token()
		assert.True(t, errors.Is(err, shared.ErrRefreshFailed))
	})
}

func TestSessionFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	_, err := LoadSession(path)
	assert.ErrorIs(t, err, shared.ErrNotAuthenticated)

	s := &Session{AccessToken: "at", RefreshToken: "rt", User: &User{ID: "u1"}}
	require.NoError(t, SaveSession(path, s))

	loaded, err := LoadSession(path)
	require.NoError(t, err)
	assert.Equal(t, "u1", loaded.UserID())

	require.NoError(t, ClearSession(path))
	require.NoError(t, ClearSession(path))
	_, err = LoadSession(path)
	assert.ErrorIs(t, err, shared.ErrNotAuthenticated)
}
