package models

import "time"

// Tables on the backend.
const (
	TableUsers             = "users"
	TableArtists           = "artists"
	TableListeners         = "listeners"
	TableAlbums            = "albums"
	TableSongs             = "songs"
	TableTags              = "tags"
	TableTagCategory       = "tag_category"
	TableSongTag           = "song_tag"
	TableSongAlbum         = "song_album"
	TableListenerLibrary   = "listener_song_library"
	TableListenerLikes     = "listener_song_likes"
	TableListenerStreams   = "listener_song_stream"
	TablePlatformConstants = "platform_constants"
)

// Remote procedures.
const (
	RPCDeleteTags  = "delete_tags"
	RPCEditTrack   = "edit_track"
	RPCDeleteTrack = "delete_track"
	RPCDeleteAlbum = "delete_album"
)

// UserRecord is a row of users.
type UserRecord struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// ArtistRecord is a row of artists. ID equals the auth user id.
type ArtistRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Bio       string `json:"bio,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	WalletID  string `json:"wallet_id,omitempty"`
}

// ListenerRecord is a row of listeners.
type ListenerRecord struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Tokens   int    `json:"tokens"`
}

// AlbumRecord is a row of albums.
type AlbumRecord struct {
	ID          string    `json:"id,omitempty"`
	ArtistID    string    `json:"artist_id"`
	Title       string    `json:"title"`
	Year        int       `json:"year"`
	RecordLabel string    `json:"record_label"`
	Explicit    bool      `json:"explicit"`
	CoverURL    string    `json:"cover_url"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
}

// SongRecord is a row of songs.
//
// Payout fields are pointers without omitempty: a free song writes null for each of them.
type SongRecord struct {
	ID                 string   `json:"id,omitempty"`
	ArtistID           string   `json:"artist_id"`
	Title              string   `json:"title"`
	FileURL            string   `json:"file_url"`
	FileName           string   `json:"file_name"`
	Position           int      `json:"position"`
	IsFree             bool     `json:"is_free"`
	ArtistPercentage   *float64 `json:"artist_percentage"`
	ListenerPercentage *float64 `json:"listener_percentage"`
	StreamThreshold    *int     `json:"stream_threshold"`
	PayoutMode         *string  `json:"payout_mode"`
}

// TagRecord is a row of tags. Rows are unique on (name, category).
type TagRecord struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// TagCategoryRecord is a row of tag_category.
type TagCategoryRecord struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// SongTagRecord links a song to a tag.
type SongTagRecord struct {
	SongID string `json:"song_id"`
	TagID  string `json:"tag_id"`
}

// SongAlbumRecord links a song to an album.
type SongAlbumRecord struct {
	SongID  string `json:"song_id"`
	AlbumID string `json:"album_id"`
}

// LibraryRecord is a row of listener_song_library.
type LibraryRecord struct {
	ListenerID string    `json:"listener_id"`
	SongID     string    `json:"song_id"`
	AddedAt    time.Time `json:"added_at,omitzero"`
}

// LikeRecord is a row of listener_song_likes.
type LikeRecord struct {
	ListenerID string `json:"listener_id"`
	SongID     string `json:"song_id"`
}

// StreamRecord is a row of listener_song_stream.
type StreamRecord struct {
	ListenerID string `json:"listener_id"`
	SongID     string `json:"song_id"`
	Streams    int    `json:"streams"`
}

// PlatformConstants is the single row of platform_constants.
type PlatformConstants struct {
	MinStreamThreshold int     `json:"min_stream_threshold"`
	TokenPrice         float64 `json:"token_price,omitempty"`
}

// NewSongRecord builds the row written for t.
func NewSongRecord(artistID string, t Track, fileURL, fileName string) SongRecord {
	rec := SongRecord{
		ID:       t.SongID,
		ArtistID: artistID,
		Title:    t.Name,
		FileURL:  fileURL,
		FileName: fileName,
		Position: t.Position,
		IsFree:   t.IsFree,
	}
	if t.IsFree {
		return rec
	}
	artist, listener := t.ArtistPercentage, t.ListenerPercentage()
	threshold, mode := t.StreamThreshold, t.Mode.String()
	rec.ArtistPercentage = &artist
	rec.ListenerPercentage = &listener
	rec.StreamThreshold = &threshold
	rec.PayoutMode = &mode
	return rec
}

// TrackFromSong rebuilds a pending track from a published song so an album can be edited.
func TrackFromSong(id string, s SongRecord) Track {
	t := NewTrack(id, "", s.Title)
	t.SongID = s.ID
	t.Position = s.Position
	t.IsFree = s.IsFree
	if s.ArtistPercentage != nil {
		t.ArtistPercentage = *s.ArtistPercentage
	}
	if s.StreamThreshold != nil {
		t.StreamThreshold = *s.StreamThreshold
	}
	if s.PayoutMode != nil {
		if m, err := ParsePayoutMode(*s.PayoutMode); err == nil {
			t.Mode = m
		}
	}
	return t
}
