package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/shared"
	tu "github.com/desertthunder/encore/internal/testing"
)

const testArtist = "artist-1"

type testEnv struct {
	runner  *Runner
	output  *bytes.Buffer
	backend *tu.FakeBackend
	dir     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := shared.OpenStore(shared.DatabaseConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	output := &bytes.Buffer{}
	backend := tu.NewFakeBackend(testArtist, "")
	runner := NewRunner(RunnerOpts{
		Output:  output,
		Logger:  log.New(io.Discard),
		DB:      db,
		Backend: backend,
		Session: &services.Session{AccessToken: "token", User: &services.User{ID: testArtist}},
	})
	return &testEnv{runner: runner, output: output, backend: backend, dir: t.TempDir()}
}

func (e *testEnv) run(t *testing.T, args ...string) error {
	t.Helper()
	e.output.Reset()
	return newApp(e.runner).Run(context.Background(), append([]string{"encore"}, args...))
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	if err := e.run(t, args...); err != nil {
		t.Fatalf("encore %s: %v", strings.Join(args, " "), err)
	}
	return e.output.String()
}

func (e *testEnv) file(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// newDraft creates a draft with a cover and the given tracks, all paid with default settings.
func (e *testEnv) newDraft(t *testing.T, tracks ...string) {
	t.Helper()
	args := []string{"draft", "new", "--title", "Night Drive", "--artist", "The Band", "--cover", e.file(t, "cover.png", tu.PNGHeader)}
	for _, name := range tracks {
		args = append(args, e.file(t, name, tu.MP3Header))
	}
	e.mustRun(t, args...)
}

func (e *testEnv) album(t *testing.T) *models.PendingAlbum {
	t.Helper()
	_, state, err := e.runner.loadDraft("")
	if err != nil {
		t.Fatalf("failed to load draft: %v", err)
	}
	return state.Album()
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			backend := tu.NewFakeBackend(testArtist, "")
			session := &services.Session{AccessToken: "token"}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Backend:    backend,
				Session:    session,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.backend != backend {
				t.Error("expected backend to be set")
			}
			if runner.session != session {
				t.Error("expected session to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})
			if runner.config == nil {
				t.Fatal("expected default config to be set")
			}
			if runner.config.Upload.MusicBucket != "music" {
				t.Errorf("expected default music bucket, got %q", runner.config.Upload.MusicBucket)
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{HTTPClient: nil})
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/test/path/config.toml"})
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, true)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			expected := `{"key":"value"}` + "\n"
			if result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			// channels cannot be marshaled to JSON
			data := make(chan int)
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			data := map[string]string{"key": "value"}
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writePlain("hello %s", "world")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("writes plain text without formatting", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writePlain("simple text")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if result != "simple text" {
				t.Errorf("expected 'simple text', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			err := runner.writePlain("test")

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		if len(commands) == 0 {
			t.Error("expected at least one command to be registered")
		}

		for i, cmd := range commands {
			if cmd == nil {
				t.Errorf("command at index %d is nil", i)
			}
		}
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			if names[cmd.Name] {
				t.Errorf("command %q registered twice", cmd.Name)
			}
			names[cmd.Name] = true
		}
		for _, want := range []string{"setup", "auth", "draft", "payout", "tags", "upload", "uploads", "album", "fn", "listen", "api", "tui"} {
			if !names[want] {
				t.Errorf("expected command %q to be registered", want)
			}
		}
	})

	t.Run("userID", func(t *testing.T) {
		t.Run("returns the session user", func(t *testing.T) {
			env := newTestEnv(t)
			id, err := env.runner.userID()
			if err != nil || id != testArtist {
				t.Errorf("expected %s, got %q (%v)", testArtist, id, err)
			}
		})

		t.Run("fails without a user", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Session: &services.Session{AccessToken: "token"}})
			if _, err := runner.userID(); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})
	})
}

func TestParsePositions(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    []int
		wantErr bool
	}{
		{name: "single", args: []string{"1"}, want: []int{0}},
		{name: "comma separated", args: []string{"1,3, 4"}, want: []int{0, 2, 3}},
		{name: "separate args", args: []string{"2", "5"}, want: []int{1, 4}},
		{name: "empty parts skipped", args: []string{"1,,2,"}, want: []int{0, 1}},
		{name: "zero rejected", args: []string{"0"}, wantErr: true},
		{name: "word rejected", args: []string{"first"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePositions(tt.args...)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidArgument) {
					t.Errorf("expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}

func TestDraftCommands(t *testing.T) {
	t.Run("new requires a title", func(t *testing.T) {
		env := newTestEnv(t)
		if err := env.run(t, "draft", "new"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("new rejects files that are not audio", func(t *testing.T) {
		env := newTestEnv(t)
		notes := env.file(t, "notes.txt", []byte("liner notes"))
		if err := env.run(t, "draft", "new", "--title", "X", notes); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("new stores tracks named after their files", func(t *testing.T) {
		env := newTestEnv(t)
		env.newDraft(t, "intro.mp3", "outro.mp3")

		album := env.album(t)
		if album.Title != "Night Drive" || album.ArtistName != "The Band" {
			t.Errorf("unexpected album details: %+v", album)
		}
		if len(album.Tracks) != 2 || album.Tracks[0].Name != "intro" || album.Tracks[1].Name != "outro" {
			t.Fatalf("unexpected tracks: %+v", album.Tracks)
		}
		if album.CoverPath == "" {
			t.Error("expected cover path to be set")
		}
	})

	t.Run("move and remove keep positions contiguous", func(t *testing.T) {
		env := newTestEnv(t)
		env.newDraft(t, "a.mp3", "b.mp3", "c.mp3", "d.mp3")

		env.mustRun(t, "draft", "move", "4", "1")
		env.mustRun(t, "draft", "remove", "2,3")

		album := env.album(t)
		want := []string{"d", "c"}
		if len(album.Tracks) != len(want) {
			t.Fatalf("expected %d tracks, got %+v", len(want), album.Tracks)
		}
		for i, track := range album.Tracks {
			if track.Name != want[i] || track.Position != i {
				t.Errorf("track %d: expected %s at %d, got %s at %d", i, want[i], i, track.Name, track.Position)
			}
		}
	})

	t.Run("rename", func(t *testing.T) {
		env := newTestEnv(t)
		env.newDraft(t, "a.mp3")
		env.mustRun(t, "draft", "rename", "1", "Opening", "Theme")

		if got := env.album(t).Tracks[0].Name; got != "Opening Theme" {
			t.Errorf("expected renamed track, got %q", got)
		}
	})

	t.Run("list shows saved drafts", func(t *testing.T) {
		env := newTestEnv(t)
		if out := env.mustRun(t, "draft", "list"); !strings.Contains(out, "No drafts") {
			t.Errorf("expected empty list, got %q", out)
		}

		env.newDraft(t, "a.mp3")
		out := env.mustRun(t, "draft", "list")
		if !strings.Contains(out, "#1") || !strings.Contains(out, "Night Drive") {
			t.Errorf("expected draft in list, got %q", out)
		}
	})

	t.Run("export writes a text summary", func(t *testing.T) {
		env := newTestEnv(t)
		env.newDraft(t, "a.mp3")
		base := filepath.Join(env.dir, "summary")

		env.mustRun(t, "draft", "export", "--output", base)

		tu.AssertFileExists(t, base+".txt")
		if content := tu.MustReadFile(t, base+".txt"); !strings.Contains(content, "Night Drive") {
			t.Errorf("expected album title in export, got %q", content)
		}
	})
}

func TestPayoutCommands(t *testing.T) {
	t.Run("threshold below the minimum is raised", func(t *testing.T) {
		env := newTestEnv(t)
		env.newDraft(t, "a.mp3", "b.mp3")

		env.mustRun(t, "payout", "threshold", "--all", "--", "-5")

		for _, track := range env.album(t).Tracks {
			if track.StreamThreshold != 100 {
				t.Errorf("expected threshold raised to platform minimum 100, got %d", track.StreamThreshold)
			}
		}
	})

	t.Run("documented negative examples run as written", func(t *testing.T) {
		env := newTestEnv(t)
		env.newDraft(t, "a.mp3")
		for _, sub := range []string{"threshold", "percentage"} {
			var desc string
			for _, c := range env.runner.register() {
				if c.Name != "payout" {
					continue
				}
				for _, child := range c.Commands {
					if child.Name == sub {
						desc = child.Description
					}
				}
			}
			lines := strings.Split(desc, "\n")
			example := strings.Fields(lines[len(lines)-1])
			if len(example) < 2 || example[0] != "encore" || !slices.Contains(example, "--") {
				t.Fatalf("%s: expected an example using --, got %q", sub, desc)
			}

			env.mustRun(t, example[1:]...)
		}

		track := env.album(t).Tracks[0]
		if track.StreamThreshold != 100 {
			t.Errorf("expected threshold 100, got %d", track.StreamThreshold)
		}
		if track.ArtistPercentage != 0 {
			t.Errorf("expected percentage clamped to 0, got %v", track.ArtistPercentage)
		}
	})

	t.Run("threshold uses --min over the backend", func(t *testing.T) {
		env := newTestEnv(t)
		env.newDraft(t, "a.mp3")

		env.mustRun(t, "payout", "threshold", "--all", "--min", "2500", "300")

		if got := env.album(t).Tracks[0].StreamThreshold; got != 2500 {
			t.Errorf("expected 2500, got %d", got)
		}
		if env.backend.CallCount("PlatformConstants") != 0 {
			t.Error("expected platform constants not to be fetched")
		}
	})

	t.Run("percentage is clamped and applies only to selected tracks", func(t *testing.T) {
		env := newTestEnv(t)
		env.newDraft(t, "a.mp3", "b.mp3")
		before := env.album(t).Tracks[1].ArtistPercentage

		out := env.mustRun(t, "payout", "percentage", "--tracks", "1", "150")

		tracks := env.album(t).Tracks
		if tracks[0].ArtistPercentage != 100 {
			t.Errorf("expected artist 100, got %v", tracks[0].ArtistPercentage)
		}
		if tracks[1].ArtistPercentage != before {
			t.Errorf("expected unselected track unchanged, got %v", tracks[1].ArtistPercentage)
		}
		if !strings.Contains(out, "listeners 0") {
			t.Errorf("expected listener share in output, got %q", out)
		}
	})

	t.Run("selection persists between commands", func(t *testing.T) {
		env := newTestEnv(t)
		env.newDraft(t, "a.mp3", "b.mp3", "c.mp3")

		env.mustRun(t, "draft", "select", "2,3")
		env.mustRun(t, "payout", "free")

		tracks := env.album(t).Tracks
		if tracks[0].IsFree || !tracks[1].IsFree || !tracks[2].IsFree {
			t.Errorf("expected tracks 2 and 3 free, got %+v", tracks)
		}
	})

	t.Run("empty selection changes nothing", func(t *testing.T) {
		env := newTestEnv(t)
		env.newDraft(t, "a.mp3")

		out := env.mustRun(t, "payout", "free", "--none")

		if !strings.Contains(out, "No tracks selected") {
			t.Errorf("expected no-selection message, got %q", out)
		}
		if env.album(t).Tracks[0].IsFree {
			t.Error("expected track to stay paid")
		}
	})

	t.Run("mode", func(t *testing.T) {
		env := newTestEnv(t)
		env.newDraft(t, "a.mp3")

		env.mustRun(t, "payout", "mode", "--all", "jackpot")
		if got := env.album(t).Tracks[0].Mode; got != models.PayoutJackpot {
			t.Errorf("expected jackpot, got %s", got)
		}

		if err := env.run(t, "payout", "mode", "--all", "lottery"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestTagCommands(t *testing.T) {
	env := newTestEnv(t)
	env.newDraft(t, "a.mp3")

	env.mustRun(t, "tags", "add", "genre", "  Synth Pop ")
	env.mustRun(t, "tags", "add", "mood", "calm")

	if err := env.run(t, "tags", "add", "genre", "synth pop"); !errors.Is(err, shared.ErrDuplicateTag) {
		t.Errorf("expected ErrDuplicateTag, got %v", err)
	}
	if err := env.run(t, "tags", "add", "tempo", "fast"); err == nil {
		t.Error("expected unknown category to fail")
	}

	env.mustRun(t, "tags", "rename", "mood", "calm", "dreamy")
	env.mustRun(t, "tags", "delete", "genre", "synth", "pop")

	tags := env.album(t).Tags
	if len(tags) != 1 || tags[0].Name != "dreamy" || tags[0].Category != models.CategoryMood {
		t.Errorf("unexpected tags: %+v", tags)
	}

	out := env.mustRun(t, "tags", "list")
	if !strings.Contains(out, "dreamy") {
		t.Errorf("expected tag in list, got %q", out)
	}
}

func TestUploadCommand(t *testing.T) {
	t.Run("publishes the draft and discards it", func(t *testing.T) {
		env := newTestEnv(t)
		env.newDraft(t, "a.mp3", "b.mp3")
		env.mustRun(t, "payout", "free", "--tracks", "2")
		env.mustRun(t, "tags", "add", "genre", "ambient")

		out := env.mustRun(t, "upload")

		if !strings.Contains(out, "Upload Complete!") {
			t.Errorf("expected completion header, got %q", out)
		}
		if len(env.backend.AlbumRows) != 1 || len(env.backend.Songs) != 2 {
			t.Fatalf("expected 1 album and 2 songs, got %d and %d", len(env.backend.AlbumRows), len(env.backend.Songs))
		}
		if len(env.backend.SongAlbum) != 2 || len(env.backend.SongTag) != 2 {
			t.Errorf("expected 2 album links and 2 tag links, got %d and %d", len(env.backend.SongAlbum), len(env.backend.SongTag))
		}
		for _, song := range env.backend.Songs {
			if song.IsFree && (song.StreamThreshold != nil || song.ArtistPercentage != nil) {
				t.Errorf("expected free song without payout fields, got %+v", song)
			}
		}
		if env.backend.Artists[testArtist].Name != "The Band" {
			t.Errorf("expected artist name backfilled, got %q", env.backend.Artists[testArtist].Name)
		}

		if out := env.mustRun(t, "draft", "list"); !strings.Contains(out, "No drafts") {
			t.Errorf("expected draft discarded, got %q", out)
		}
		if out := env.mustRun(t, "uploads", "history"); !strings.Contains(out, "completed") {
			t.Errorf("expected completed upload in history, got %q", out)
		}
	})

	t.Run("audio upload failure keeps the album row and the draft", func(t *testing.T) {
		env := newTestEnv(t)
		env.newDraft(t, "a.mp3", "b.mp3")
		env.backend.Fail["StoreAudio"] = errors.New("bucket unavailable")

		err := env.run(t, "upload")

		if !errors.Is(err, shared.ErrUploadFailed) {
			t.Fatalf("expected ErrUploadFailed, got %v", err)
		}
		if len(env.backend.AlbumRows) != 1 {
			t.Errorf("expected album row to remain, got %d", len(env.backend.AlbumRows))
		}
		if len(env.backend.Songs) != 0 || len(env.backend.SongAlbum) != 0 || len(env.backend.SongTag) != 0 {
			t.Error("expected no songs or links")
		}
		if out := env.mustRun(t, "draft", "list"); !strings.Contains(out, "Night Drive") {
			t.Errorf("expected draft kept for retry, got %q", out)
		}
	})

	t.Run("invalid draft is rejected before any call", func(t *testing.T) {
		env := newTestEnv(t)
		env.mustRun(t, "draft", "new", "--title", "Empty")

		if err := env.run(t, "upload"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if len(env.backend.Calls) != 0 {
			t.Errorf("expected no backend calls, got %v", env.backend.Calls)
		}
	})
}

func TestAlbumCommands(t *testing.T) {
	env := newTestEnv(t)
	env.newDraft(t, "a.mp3")
	env.mustRun(t, "upload")

	var albumID string
	for id := range env.backend.AlbumRows {
		albumID = id
	}

	out := env.mustRun(t, "album", "list")
	if !strings.Contains(out, "Night Drive") {
		t.Errorf("expected album in list, got %q", out)
	}

	env.mustRun(t, "album", "edit", albumID)
	album := env.album(t)
	if album.EditingAlbumID != albumID || len(album.Tracks) != 1 || album.Tracks[0].SongID == "" {
		t.Errorf("expected editing draft with the published song, got %+v", album)
	}

	if err := env.run(t, "album", "delete", albumID); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected confirmation to be required, got %v", err)
	}
	env.mustRun(t, "album", "delete", "--yes", albumID)
	if env.backend.CallCount("DeleteAlbum") != 1 {
		t.Error("expected album to be deleted remotely")
	}
}

func TestSongArg(t *testing.T) {
	env := newTestEnv(t)
	if err := env.run(t, "listen", "like"); !errors.Is(err, shared.ErrMissingArgument) {
		t.Errorf("expected ErrMissingArgument, got %v", err)
	}
	if err := env.run(t, "fn", "tokens", "--amount", "0"); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

// withFunctions points the runner's catalog at a server answering edge function calls.
func (e *testEnv) withFunctions(t *testing.T, replies map[string]string) *[]string {
	t.Helper()
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, r.URL.Path+" "+string(body))
		reply, ok := replies[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"unknown function"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(reply))
	}))
	t.Cleanup(server.Close)

	client, err := services.New(services.Config{URL: server.URL, APIKey: "anon"})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	e.runner.catalog = services.NewCatalog(client, client, client, services.Buckets{})
	e.runner.config.Backend.SessionPath = filepath.Join(e.dir, "session.json")
	return &bodies
}

func TestFunctionCommands(t *testing.T) {
	t.Run("wallet", func(t *testing.T) {
		env := newTestEnv(t)
		bodies := env.withFunctions(t, map[string]string{
			"/functions/v1/create-wallet": `{"wallet_id":"w1","address":"0xabc"}`,
		})

		out := env.mustRun(t, "fn", "wallet")
		if !strings.Contains(out, "Wallet w1 created (address 0xabc)") {
			t.Errorf("unexpected output: %q", out)
		}
		if len(*bodies) != 1 || !strings.Contains((*bodies)[0], `"user_id":"`+testArtist+`"`) {
			t.Errorf("expected wallet request for %s, got %v", testArtist, *bodies)
		}
	})

	t.Run("play reports threshold", func(t *testing.T) {
		env := newTestEnv(t)
		env.withFunctions(t, map[string]string{
			"/functions/v1/record-play": `{"streams":1200,"threshold_met":true,"payout_triggered":true}`,
		})

		out := env.mustRun(t, "fn", "play", "song-1")
		for _, want := range []string{"1,200 total", "Threshold reached, payout triggered"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output, got %q", want, out)
			}
		}
	})

	t.Run("payout as json", func(t *testing.T) {
		env := newTestEnv(t)
		env.withFunctions(t, map[string]string{
			"/functions/v1/initiate-song-payout": `{"song_id":"song-1","status":"pending","amount":4.5,"recipients":2}`,
		})

		out := env.mustRun(t, "fn", "payout", "--json", "song-1")
		if !strings.Contains(out, `"status": "pending"`) {
			t.Errorf("expected indented JSON, got %q", out)
		}
	})

	t.Run("payout failure", func(t *testing.T) {
		env := newTestEnv(t)
		env.withFunctions(t, map[string]string{})

		if err := env.run(t, "fn", "payout", "song-1"); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("delete account", func(t *testing.T) {
		env := newTestEnv(t)
		bodies := env.withFunctions(t, map[string]string{"/functions/v1/delete-user": `{}`})
		session := env.file(t, "session.json", []byte(`{}`))

		if err := env.run(t, "fn", "delete-account"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected confirmation to be required, got %v", err)
		}
		if len(*bodies) != 0 {
			t.Fatal("expected no request without --yes")
		}

		env.mustRun(t, "fn", "delete-account", "--yes")
		if _, err := os.Stat(session); !os.IsNotExist(err) {
			t.Errorf("expected session file to be removed, got %v", err)
		}
		if env.runner.session != nil || env.runner.catalog != nil {
			t.Error("expected runner state to be cleared")
		}
	})
}
