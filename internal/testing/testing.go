// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"
	"testing"

	"github.com/desertthunder/encore/internal/models"
)

// FakeBackend is an in-memory stand-in for the backend catalog.
//
// Every call is appended to Calls. Setting Fail[method] makes that method return the error;
// FailAfter[method] lets the first N calls succeed before failing.
type FakeBackend struct {
	mu sync.Mutex

	Constants models.PlatformConstants
	Artists   map[string]models.ArtistRecord
	AlbumRows map[string]models.AlbumRecord
	Songs     map[string]models.SongRecord
	Tags      map[string]models.TagRecord
	SongAlbum []models.SongAlbumRecord
	SongTag   []models.SongTagRecord
	Objects   map[string][]byte

	Calls     []string
	Fail      map[string]error
	FailAfter map[string]int

	seq    int
	counts map[string]int
}

// NewFakeBackend returns an empty backend with a single artist.
func NewFakeBackend(artistID, artistName string) *FakeBackend {
	return &FakeBackend{
		Constants: models.PlatformConstants{MinStreamThreshold: 100},
		Artists:   map[string]models.ArtistRecord{artistID: {ID: artistID, Name: artistName}},
		AlbumRows: map[string]models.AlbumRecord{},
		Songs:     map[string]models.SongRecord{},
		Tags:      map[string]models.TagRecord{},
		Objects:   map[string][]byte{},
		Fail:      map[string]error{},
		FailAfter: map[string]int{},
		counts:    map[string]int{},
	}
}

func (f *FakeBackend) call(method string) error {
	f.Calls = append(f.Calls, method)
	f.counts[method]++
	if err, ok := f.Fail[method]; ok {
		if after, ok := f.FailAfter[method]; !ok || f.counts[method] > after {
			return err
		}
	}
	return nil
}

func (f *FakeBackend) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

// CallCount returns how many times method was called.
func (f *FakeBackend) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[method]
}

func (f *FakeBackend) PlatformConstants(ctx context.Context) (*models.PlatformConstants, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("PlatformConstants"); err != nil {
		return nil, err
	}
	pc := f.Constants
	return &pc, nil
}

func (f *FakeBackend) Artist(ctx context.Context, id string) (*models.ArtistRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("Artist"); err != nil {
		return nil, err
	}
	a, ok := f.Artists[id]
	if !ok {
		return nil, fmt.Errorf("artist %s not found", id)
	}
	return &a, nil
}

func (f *FakeBackend) SetArtistName(ctx context.Context, id, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("SetArtistName"); err != nil {
		return err
	}
	a := f.Artists[id]
	a.ID, a.Name = id, name
	f.Artists[id] = a
	return nil
}

func (f *FakeBackend) CreateAlbum(ctx context.Context, rec models.AlbumRecord) (*models.AlbumRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("CreateAlbum"); err != nil {
		return nil, err
	}
	rec.ID = f.nextID("album")
	f.AlbumRows[rec.ID] = rec
	return &rec, nil
}

func (f *FakeBackend) UpdateAlbum(ctx context.Context, rec models.AlbumRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("UpdateAlbum"); err != nil {
		return err
	}
	if _, ok := f.AlbumRows[rec.ID]; !ok {
		return fmt.Errorf("album %s not found", rec.ID)
	}
	f.AlbumRows[rec.ID] = rec
	return nil
}

func (f *FakeBackend) Album(ctx context.Context, id string) (*models.AlbumRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("Album"); err != nil {
		return nil, err
	}
	a, ok := f.AlbumRows[id]
	if !ok {
		return nil, fmt.Errorf("album %s not found", id)
	}
	return &a, nil
}

func (f *FakeBackend) Albums(ctx context.Context, artistID string) ([]models.AlbumRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("Albums"); err != nil {
		return nil, err
	}
	var albums []models.AlbumRecord
	for _, a := range f.AlbumRows {
		if a.ArtistID == artistID {
			albums = append(albums, a)
		}
	}
	sort.Slice(albums, func(i, j int) bool { return albums[i].ID < albums[j].ID })
	return albums, nil
}

func (f *FakeBackend) AlbumSongs(ctx context.Context, albumID string) ([]models.SongRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("AlbumSongs"); err != nil {
		return nil, err
	}
	var songs []models.SongRecord
	for _, link := range f.SongAlbum {
		if link.AlbumID == albumID {
			if s, ok := f.Songs[link.SongID]; ok {
				songs = append(songs, s)
			}
		}
	}
	sort.SliceStable(songs, func(i, j int) bool { return songs[i].Position < songs[j].Position })
	return songs, nil
}

func (f *FakeBackend) SongTags(ctx context.Context, songID string) ([]models.TagRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("SongTags"); err != nil {
		return nil, err
	}
	var tags []models.TagRecord
	for _, link := range f.SongTag {
		if link.SongID == songID {
			tags = append(tags, f.Tags[link.TagID])
		}
	}
	return tags, nil
}

func (f *FakeBackend) UpsertTag(ctx context.Context, rec models.TagRecord) (*models.TagRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("UpsertTag"); err != nil {
		return nil, err
	}
	for _, t := range f.Tags {
		if t.Name == rec.Name && t.Category == rec.Category {
			return &t, nil
		}
	}
	rec.ID = f.nextID("tag")
	f.Tags[rec.ID] = rec
	return &rec, nil
}

func (f *FakeBackend) DeleteTags(ctx context.Context, albumID string, tagIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("DeleteTags"); err != nil {
		return err
	}
	remove := make(map[string]bool, len(tagIDs))
	for _, id := range tagIDs {
		remove[id] = true
	}
	onAlbum := map[string]bool{}
	for _, link := range f.SongAlbum {
		if link.AlbumID == albumID {
			onAlbum[link.SongID] = true
		}
	}
	kept := f.SongTag[:0]
	for _, link := range f.SongTag {
		if !remove[link.TagID] || !onAlbum[link.SongID] {
			kept = append(kept, link)
		}
	}
	f.SongTag = kept
	return nil
}

func (f *FakeBackend) TagsByCategory(ctx context.Context, category models.TagCategory) ([]models.TagRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("TagsByCategory"); err != nil {
		return nil, err
	}
	var tags []models.TagRecord
	for _, t := range f.Tags {
		if t.Category == string(category) {
			tags = append(tags, t)
		}
	}
	return tags, nil
}

func (f *FakeBackend) InsertSong(ctx context.Context, rec models.SongRecord) (*models.SongRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("InsertSong"); err != nil {
		return nil, err
	}
	rec.ID = f.nextID("song")
	f.Songs[rec.ID] = rec
	return &rec, nil
}

func (f *FakeBackend) EditTrack(ctx context.Context, rec models.SongRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("EditTrack"); err != nil {
		return err
	}
	prev, ok := f.Songs[rec.ID]
	if !ok {
		return fmt.Errorf("song %s not found", rec.ID)
	}
	if rec.FileURL == "" {
		rec.FileURL, rec.FileName = prev.FileURL, prev.FileName
	}
	f.Songs[rec.ID] = rec
	return nil
}

func (f *FakeBackend) DeleteTrack(ctx context.Context, songID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("DeleteTrack"); err != nil {
		return err
	}
	delete(f.Songs, songID)
	return nil
}

func (f *FakeBackend) DeleteAlbum(ctx context.Context, albumID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("DeleteAlbum"); err != nil {
		return err
	}
	delete(f.AlbumRows, albumID)
	return nil
}

func (f *FakeBackend) LinkSongsToAlbum(ctx context.Context, links []models.SongAlbumRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("LinkSongsToAlbum"); err != nil {
		return err
	}
	for _, l := range links {
		dup := false
		for _, existing := range f.SongAlbum {
			if existing == l {
				dup = true
				break
			}
		}
		if !dup {
			f.SongAlbum = append(f.SongAlbum, l)
		}
	}
	return nil
}

func (f *FakeBackend) LinkSongsToTags(ctx context.Context, links []models.SongTagRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("LinkSongsToTags"); err != nil {
		return err
	}
	for _, l := range links {
		dup := false
		for _, existing := range f.SongTag {
			if existing == l {
				dup = true
				break
			}
		}
		if !dup {
			f.SongTag = append(f.SongTag, l)
		}
	}
	return nil
}

func (f *FakeBackend) StoreAudio(ctx context.Context, name string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("StoreAudio"); err != nil {
		return "", err
	}
	f.Objects["music/"+name] = data
	return "https://cdn.test/storage/v1/object/public/music/" + name, nil
}

func (f *FakeBackend) StoreCover(ctx context.Context, name string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("StoreCover"); err != nil {
		return "", err
	}
	f.Objects["images/"+name] = data
	return "https://cdn.test/storage/v1/object/public/images/" + name, nil
}

func (f *FakeBackend) RemoveFiles(ctx context.Context, audioURLs []string, coverURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.call("RemoveFiles")
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// WriteTempFile writes content to name inside a fresh temp dir and returns its path.
func WriteTempFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := t.TempDir() + string(os.PathSeparator) + name
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

// MP3Header is the start of an MPEG audio file with an ID3 tag, enough for content sniffing.
var MP3Header = []byte("ID3\x03\x00\x00\x00\x00\x00\x00")

// PNGHeader is the PNG signature followed by an IHDR chunk header.
var PNGHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
