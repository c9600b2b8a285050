package services

import (
	"context"
	"fmt"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
)

// Buckets names the storage buckets for audio and cover images.
type Buckets struct {
	Music  string
	Images string
}

// DefaultBuckets are the bucket names the platform ships with.
var DefaultBuckets = Buckets{Music: "music", Images: "images"}

// Catalog wraps the backend with typed calls for the artist and listener workflows.
type Catalog struct {
	db      Database
	store   Storage
	fn      Functions
	buckets Buckets
}

// NewCatalog builds a Catalog. Empty bucket names fall back to [DefaultBuckets].
func NewCatalog(db Database, store Storage, fn Functions, buckets Buckets) *Catalog {
	if buckets.Music == "" {
		buckets.Music = DefaultBuckets.Music
	}
	if buckets.Images == "" {
		buckets.Images = DefaultBuckets.Images
	}
	return &Catalog{db: db, store: store, fn: fn, buckets: buckets}
}

// Buckets returns the configured bucket names.
func (c *Catalog) Buckets() Buckets { return c.buckets }

// PlatformConstants fetches the platform-wide settings row.
func (c *Catalog) PlatformConstants(ctx context.Context) (*models.PlatformConstants, error) {
	var pc models.PlatformConstants
	err := c.db.From(models.TablePlatformConstants).Select("*").Limit(1).Single().ExecuteInto(ctx, &pc)
	if err != nil {
		return nil, err
	}
	return &pc, nil
}

// Artist fetches the artist row for a user.
func (c *Catalog) Artist(ctx context.Context, id string) (*models.ArtistRecord, error) {
	var a models.ArtistRecord
	err := c.db.From(models.TableArtists).Select("*").Eq("id", id).Single().ExecuteInto(ctx, &a)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrArtistNotFound, err)
	}
	return &a, nil
}

// SetArtistName sets the artist's display name.
func (c *Catalog) SetArtistName(ctx context.Context, id, name string) error {
	return c.db.From(models.TableArtists).Eq("id", id).Update(map[string]string{"name": name}).ExecuteInto(ctx, nil)
}

// CreateAlbum inserts an album row and returns it with its generated id.
func (c *Catalog) CreateAlbum(ctx context.Context, rec models.AlbumRecord) (*models.AlbumRecord, error) {
	var rows []models.AlbumRecord
	if err := c.db.From(models.TableAlbums).Insert(rec).ExecuteInto(ctx, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: album insert returned no rows", shared.ErrAPIRequest)
	}
	return &rows[0], nil
}

// UpdateAlbum changes the album row with rec.ID.
func (c *Catalog) UpdateAlbum(ctx context.Context, rec models.AlbumRecord) error {
	patch := map[string]any{
		"title":        rec.Title,
		"year":         rec.Year,
		"record_label": rec.RecordLabel,
		"explicit":     rec.Explicit,
		"cover_url":    rec.CoverURL,
	}
	return c.db.From(models.TableAlbums).Eq("id", rec.ID).Update(patch).ExecuteInto(ctx, nil)
}

// Album fetches one album.
func (c *Catalog) Album(ctx context.Context, id string) (*models.AlbumRecord, error) {
	var a models.AlbumRecord
	if err := c.db.From(models.TableAlbums).Select("*").Eq("id", id).Single().ExecuteInto(ctx, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAlbumNotFound, err)
	}
	return &a, nil
}

// Albums lists an artist's albums, newest first.
func (c *Catalog) Albums(ctx context.Context, artistID string) ([]models.AlbumRecord, error) {
	var rows []models.AlbumRecord
	err := c.db.From(models.TableAlbums).Select("*").Eq("artist_id", artistID).Order("created_at", false).ExecuteInto(ctx, &rows)
	return rows, err
}

// AlbumSongs lists the songs linked to an album in track order.
func (c *Catalog) AlbumSongs(ctx context.Context, albumID string) ([]models.SongRecord, error) {
	var rows []models.SongRecord
	err := c.db.From(models.TableSongs).
		Select("*").
		InnerEq(models.TableSongAlbum, "album_id", albumID).
		Order("position", true).
		ExecuteInto(ctx, &rows)
	return rows, err
}

// SongTags lists the tags linked to a song.
func (c *Catalog) SongTags(ctx context.Context, songID string) ([]models.TagRecord, error) {
	var rows []models.TagRecord
	err := c.db.From(models.TableTags).
		Select("id,name,category").
		InnerEq(models.TableSongTag, "song_id", songID).
		Order("name", true).
		ExecuteInto(ctx, &rows)
	return rows, err
}

// UpsertTag creates the tag or returns the existing row with the same name and category.
func (c *Catalog) UpsertTag(ctx context.Context, rec models.TagRecord) (*models.TagRecord, error) {
	var rows []models.TagRecord
	if err := c.db.From(models.TableTags).Upsert(rec, "name,category").ExecuteInto(ctx, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: tag upsert returned no rows", shared.ErrAPIRequest)
	}
	return &rows[0], nil
}

// DeleteTags unlinks tags from an album's songs.
func (c *Catalog) DeleteTags(ctx context.Context, albumID string, tagIDs []string) error {
	if len(tagIDs) == 0 {
		return nil
	}
	return c.db.RPC(ctx, models.RPCDeleteTags, map[string]any{"p_album_id": albumID, "p_tag_ids": tagIDs}, nil)
}

// TagsByCategory lists every tag in a category.
func (c *Catalog) TagsByCategory(ctx context.Context, category models.TagCategory) ([]models.TagRecord, error) {
	var rows []models.TagRecord
	err := c.db.From(models.TableTags).Select("id,name,category").Eq("category", category).Order("name", true).ExecuteInto(ctx, &rows)
	return rows, err
}

// SearchTags finds tags whose name contains term, ignoring case.
func (c *Catalog) SearchTags(ctx context.Context, term string, limit int) ([]models.TagRecord, error) {
	var rows []models.TagRecord
	q := c.db.From(models.TableTags).Select("id,name,category").ILike("name", "*"+term+"*").Order("name", true)
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.ExecuteInto(ctx, &rows)
	return rows, err
}

// TagCategories lists the rows of tag_category.
func (c *Catalog) TagCategories(ctx context.Context) ([]models.TagCategoryRecord, error) {
	var rows []models.TagCategoryRecord
	err := c.db.From(models.TableTagCategory).Select("*").Order("id", true).ExecuteInto(ctx, &rows)
	return rows, err
}

// InsertSong creates a song row and returns it with its generated id.
func (c *Catalog) InsertSong(ctx context.Context, rec models.SongRecord) (*models.SongRecord, error) {
	var rows []models.SongRecord
	if err := c.db.From(models.TableSongs).Insert(rec).ExecuteInto(ctx, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: song insert returned no rows", shared.ErrAPIRequest)
	}
	return &rows[0], nil
}

// EditTrack updates an existing song through the edit_track procedure.
// An empty FileURL keeps the stored audio.
func (c *Catalog) EditTrack(ctx context.Context, rec models.SongRecord) error {
	params := map[string]any{
		"p_song_id":             rec.ID,
		"p_title":               rec.Title,
		"p_position":            rec.Position,
		"p_is_free":             rec.IsFree,
		"p_artist_percentage":   rec.ArtistPercentage,
		"p_listener_percentage": rec.ListenerPercentage,
		"p_stream_threshold":    rec.StreamThreshold,
		"p_payout_mode":         rec.PayoutMode,
		"p_file_url":            nil,
		"p_file_name":           nil,
	}
	if rec.FileURL != "" {
		params["p_file_url"] = rec.FileURL
		params["p_file_name"] = rec.FileName
	}
	return c.db.RPC(ctx, models.RPCEditTrack, params, nil)
}

// DeleteTrack removes a song and its links through the delete_track procedure.
func (c *Catalog) DeleteTrack(ctx context.Context, songID string) error {
	return c.db.RPC(ctx, models.RPCDeleteTrack, map[string]any{"p_song_id": songID}, nil)
}

// DeleteAlbum removes an album with its songs and links through the delete_album procedure.
func (c *Catalog) DeleteAlbum(ctx context.Context, albumID string) error {
	return c.db.RPC(ctx, models.RPCDeleteAlbum, map[string]any{"p_album_id": albumID}, nil)
}

// LinkSongsToAlbum writes song_album rows. Existing links are kept.
func (c *Catalog) LinkSongsToAlbum(ctx context.Context, links []models.SongAlbumRecord) error {
	if len(links) == 0 {
		return nil
	}
	return c.db.From(models.TableSongAlbum).Upsert(links, "song_id,album_id").ExecuteInto(ctx, nil)
}

// LinkSongsToTags writes song_tag rows. Existing links are kept.
func (c *Catalog) LinkSongsToTags(ctx context.Context, links []models.SongTagRecord) error {
	if len(links) == 0 {
		return nil
	}
	return c.db.From(models.TableSongTag).Upsert(links, "song_id,tag_id").ExecuteInto(ctx, nil)
}

// StoreAudio uploads an audio file under name and returns its public URL.
func (c *Catalog) StoreAudio(ctx context.Context, name string, data []byte) (string, error) {
	if err := c.store.Upload(ctx, c.buckets.Music, name, data); err != nil {
		return "", err
	}
	return c.store.PublicURL(c.buckets.Music, name), nil
}

// StoreCover uploads a cover image under name and returns its public URL.
func (c *Catalog) StoreCover(ctx context.Context, name string, data []byte) (string, error) {
	if err := c.store.Upload(ctx, c.buckets.Images, name, data); err != nil {
		return "", err
	}
	return c.store.PublicURL(c.buckets.Images, name), nil
}

// RemoveFiles deletes stored audio and cover objects by public URL. URLs outside the buckets are ignored.
func (c *Catalog) RemoveFiles(ctx context.Context, audioURLs []string, coverURL string) error {
	var music []string
	for _, u := range audioURLs {
		if name := ObjectName(u, c.buckets.Music); name != "" {
			music = append(music, name)
		}
	}
	if err := c.store.Remove(ctx, c.buckets.Music, music...); err != nil {
		return err
	}
	if name := ObjectName(coverURL, c.buckets.Images); name != "" {
		return c.store.Remove(ctx, c.buckets.Images, name)
	}
	return nil
}

// Like records that a listener likes a song.
func (c *Catalog) Like(ctx context.Context, listenerID, songID string) error {
	rec := models.LikeRecord{ListenerID: listenerID, SongID: songID}
	return c.db.From(models.TableListenerLikes).Upsert(rec, "listener_id,song_id").ExecuteInto(ctx, nil)
}

// Unlike removes a like.
func (c *Catalog) Unlike(ctx context.Context, listenerID, songID string) error {
	return c.db.From(models.TableListenerLikes).Eq("listener_id", listenerID).Eq("song_id", songID).Delete().ExecuteInto(ctx, nil)
}

// AddToLibrary saves a song to a listener's library.
func (c *Catalog) AddToLibrary(ctx context.Context, listenerID, songID string) error {
	rec := models.LibraryRecord{ListenerID: listenerID, SongID: songID}
	return c.db.From(models.TableListenerLibrary).Upsert(rec, "listener_id,song_id").ExecuteInto(ctx, nil)
}

// RemoveFromLibrary removes a song from a listener's library.
func (c *Catalog) RemoveFromLibrary(ctx context.Context, listenerID, songID string) error {
	return c.db.From(models.TableListenerLibrary).Eq("listener_id", listenerID).Eq("song_id", songID).Delete().ExecuteInto(ctx, nil)
}

// Library lists the songs in a listener's library.
func (c *Catalog) Library(ctx context.Context, listenerID string) ([]models.SongRecord, error) {
	var rows []models.SongRecord
	err := c.db.From(models.TableSongs).
		Select("*").
		InnerEq(models.TableListenerLibrary, "listener_id", listenerID).
		Order("title", true).
		ExecuteInto(ctx, &rows)
	return rows, err
}

// LikedSongs lists the songs a listener likes.
func (c *Catalog) LikedSongs(ctx context.Context, listenerID string) ([]models.SongRecord, error) {
	var rows []models.SongRecord
	err := c.db.From(models.TableSongs).
		Select("*").
		InnerEq(models.TableListenerLikes, "listener_id", listenerID).
		Order("title", true).
		ExecuteInto(ctx, &rows)
	return rows, err
}

// Streams lists a listener's per-song stream counts, most streamed first.
func (c *Catalog) Streams(ctx context.Context, listenerID string) ([]models.StreamRecord, error) {
	var rows []models.StreamRecord
	err := c.db.From(models.TableListenerStreams).Select("*").Eq("listener_id", listenerID).Order("streams", false).ExecuteInto(ctx, &rows)
	return rows, err
}

// SongStreamCount returns the total streams recorded for a song.
func (c *Catalog) SongStreamCount(ctx context.Context, songID string) (int, error) {
	var rows []models.StreamRecord
	if err := c.db.From(models.TableListenerStreams).Select("streams").Eq("song_id", songID).ExecuteInto(ctx, &rows); err != nil {
		return 0, err
	}
	total := 0
	for _, r := range rows {
		total += r.Streams
	}
	return total, nil
}

// CreateWallet provisions a payout wallet for a user.
func (c *Catalog) CreateWallet(ctx context.Context, userID string) (*WalletResult, error) {
	var out WalletResult
	if err := c.fn.Invoke(ctx, FnCreateWallet, map[string]string{"user_id": userID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteUser removes a user account and its data.
func (c *Catalog) DeleteUser(ctx context.Context, userID string) error {
	return c.fn.Invoke(ctx, FnDeleteUser, map[string]string{"user_id": userID}, nil)
}

// InitiatePayout starts the payout for a song whose threshold has been reached.
func (c *Catalog) InitiatePayout(ctx context.Context, songID string) (*PayoutResult, error) {
	var out PayoutResult
	if err := c.fn.Invoke(ctx, FnInitiatePayout, map[string]string{"song_id": songID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RecordPlay records one stream of a song by a listener.
func (c *Catalog) RecordPlay(ctx context.Context, listenerID, songID string) (*PlayResult, error) {
	var out PlayResult
	body := map[string]string{"listener_id": listenerID, "song_id": songID}
	if err := c.fn.Invoke(ctx, FnRecordPlay, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PurchaseTokens buys streaming tokens for a listener.
func (c *Catalog) PurchaseTokens(ctx context.Context, listenerID string, amount int) (*PurchaseResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: token amount must be positive", shared.ErrInvalidArgument)
	}
	var out PurchaseResult
	body := map[string]any{"listener_id": listenerID, "amount": amount}
	if err := c.fn.Invoke(ctx, FnPurchaseTokens, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
