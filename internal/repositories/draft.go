package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
)

// DraftRepository implements models.Repository[*models.Draft].
//
// A draft is stored across three tables: the album fields in drafts, one row per track in draft_tracks
// (with its selection flag), and tags in draft_tags. Tags removed from an album being edited are kept
// with removed = 1 so the upload can delete them remotely.
type DraftRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.Draft] = (*DraftRepository)(nil)

// NewDraftRepository creates a new DraftRepository with the given database connection
func NewDraftRepository(db *sql.DB) *DraftRepository {
	return &DraftRepository{db: db}
}

const draftColumns = `id, sequence, title, year, record_label, explicit, cover_path, cover_url, artist_name,
	editing_album_id, removed_song_ids, created_at, updated_at, deleted_at`

// Create inserts a new draft into the database with generated ID and sequence
func (r *DraftRepository) Create(draft *models.Draft) error {
	sequence, err := NextSequence(r.db, "drafts")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	draft.SetID(shared.GenerateID())
	draft.SetSequence(sequence)

	if err := draft.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	album := draft.Album()
	removed, err := json.Marshal(nonNil(album.RemovedSongIDs))
	if err != nil {
		return fmt.Errorf("failed to encode removed songs: %w", err)
	}

	return withTx(r.db, func(tx *sql.Tx) error {
		query := `
			INSERT INTO drafts (
				id, sequence, title, year, record_label, explicit, cover_path, cover_url,
				artist_name, editing_album_id, removed_song_ids, created_at, updated_at
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err := tx.Exec(query,
			draft.ID(),
			sequence,
			album.Title,
			album.Year,
			album.RecordLabel,
			album.Explicit,
			album.CoverPath,
			album.CoverURL,
			album.ArtistName,
			album.EditingAlbumID,
			string(removed),
			draft.CreatedAt(),
			draft.UpdatedAt(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert draft: %w", err)
		}
		return r.writeChildren(tx, draft)
	})
}

// Get retrieves a draft with its tracks and tags by ID, excluding soft-deleted drafts
func (r *DraftRepository) Get(id string) (*models.Draft, error) {
	query := `SELECT ` + draftColumns + ` FROM drafts WHERE id = ? AND deleted_at IS NULL`
	return r.load(r.db.QueryRow(query, id))
}

// GetBySequence retrieves a draft by its sequence number
func (r *DraftRepository) GetBySequence(sequence int) (*models.Draft, error) {
	query := `SELECT ` + draftColumns + ` FROM drafts WHERE sequence = ? AND deleted_at IS NULL`
	return r.load(r.db.QueryRow(query, sequence))
}

// Find resolves ref as a sequence number or an id.
func (r *DraftRepository) Find(ref string) (*models.Draft, error) {
	if seq, err := strconv.Atoi(ref); err == nil {
		return r.GetBySequence(seq)
	}
	return r.Get(ref)
}

// Latest retrieves the most recently updated draft.
func (r *DraftRepository) Latest() (*models.Draft, error) {
	query := `SELECT ` + draftColumns + ` FROM drafts WHERE deleted_at IS NULL ORDER BY updated_at DESC, sequence DESC LIMIT 1`
	return r.load(r.db.QueryRow(query))
}

// Update replaces a draft's album fields, tracks and tags
func (r *DraftRepository) Update(draft *models.Draft) error {
	if err := draft.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	draft.SetUpdatedAt(now)

	album := draft.Album()
	removed, err := json.Marshal(nonNil(album.RemovedSongIDs))
	if err != nil {
		return fmt.Errorf("failed to encode removed songs: %w", err)
	}

	return withTx(r.db, func(tx *sql.Tx) error {
		query := `
			UPDATE drafts
			SET title = ?, year = ?, record_label = ?, explicit = ?, cover_path = ?, cover_url = ?,
				artist_name = ?, editing_album_id = ?, removed_song_ids = ?, updated_at = ?
			WHERE id = ? AND deleted_at IS NULL
		`
		result, err := tx.Exec(query,
			album.Title,
			album.Year,
			album.RecordLabel,
			album.Explicit,
			album.CoverPath,
			album.CoverURL,
			album.ArtistName,
			album.EditingAlbumID,
			string(removed),
			now,
			draft.ID(),
		)
		if err != nil {
			return fmt.Errorf("failed to update draft: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("%w: %s", shared.ErrDraftNotFound, draft.ID())
		}

		if _, err := tx.Exec(`DELETE FROM draft_tracks WHERE draft_id = ?`, draft.ID()); err != nil {
			return fmt.Errorf("failed to clear draft tracks: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM draft_tags WHERE draft_id = ?`, draft.ID()); err != nil {
			return fmt.Errorf("failed to clear draft tags: %w", err)
		}
		return r.writeChildren(tx, draft)
	})
}

// Delete soft-deletes a draft by ID
func (r *DraftRepository) Delete(id string) error {
	return softDelete(r.db, "drafts", id, shared.ErrDraftNotFound)
}

// List retrieves all drafts, excluding soft-deleted drafts.
//
// Supported criteria: "editing" (bool) limits to drafts that edit a published album, or to new albums.
func (r *DraftRepository) List(criteria map[string]any) ([]*models.Draft, error) {
	query := `SELECT ` + draftColumns + ` FROM drafts WHERE deleted_at IS NULL`
	args := []any{}

	if editing, ok := criteria["editing"].(bool); ok {
		if editing {
			query += " AND editing_album_id != ''"
		} else {
			query += " AND editing_album_id = ''"
		}
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query drafts: %w", err)
	}

	var drafts []*models.Draft
	for rows.Next() {
		draft, err := r.scan(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		drafts = append(drafts, draft)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	for _, d := range drafts {
		if err := r.loadChildren(d); err != nil {
			return nil, err
		}
	}

	return drafts, nil
}

func (r *DraftRepository) writeChildren(tx *sql.Tx, draft *models.Draft) error {
	selected := make(map[string]bool, len(draft.Selected()))
	for _, id := range draft.Selected() {
		selected[id] = true
	}

	album := draft.Album()
	for _, t := range album.Tracks {
		id := t.ID
		if id == "" {
			id = shared.GenerateID()
		}
		_, err := tx.Exec(`
			INSERT INTO draft_tracks (
				id, draft_id, song_id, file_path, name, position, artist_percentage,
				stream_threshold, is_free, mode, selected
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, id, draft.ID(), t.SongID, t.FilePath, t.Name, t.Position, t.ArtistPercentage,
			t.StreamThreshold, t.IsFree, t.Mode.String(), selected[t.ID])
		if err != nil {
			return fmt.Errorf("failed to insert draft track %q: %w", t.Name, err)
		}
	}

	insertTag := func(t models.Tag, removed bool) error {
		_, err := tx.Exec(`
			INSERT INTO draft_tags (draft_id, remote_id, name, category, original_name, removed)
			VALUES (?, ?, ?, ?, ?, ?)
		`, draft.ID(), t.RemoteID, t.Name, t.Category.String(), t.Original, removed)
		if err != nil {
			return fmt.Errorf("failed to insert draft tag %q: %w", t.Name, err)
		}
		return nil
	}
	for _, t := range album.Tags {
		if err := insertTag(t, false); err != nil {
			return err
		}
	}
	for _, t := range album.RemovedTags {
		if err := insertTag(t, true); err != nil {
			return err
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scan reads the drafts columns into a [models.Draft] without tracks or tags
func (r *DraftRepository) scan(row scanner) (*models.Draft, error) {
	var (
		id, title, label, coverPath, coverURL string
		artistName, editingID, removedJSON    string
		sequence, year                        int
		explicit                              bool
		createdAt, updatedAt                  time.Time
		deletedAt                             sql.NullTime
	)

	err := row.Scan(&id, &sequence, &title, &year, &label, &explicit, &coverPath, &coverURL, &artistName,
		&editingID, &removedJSON, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan draft: %w", err)
	}

	album := &models.PendingAlbum{
		Title:          title,
		Year:           year,
		RecordLabel:    label,
		Explicit:       explicit,
		CoverPath:      coverPath,
		CoverURL:       coverURL,
		ArtistName:     artistName,
		EditingAlbumID: editingID,
	}
	if err := json.Unmarshal([]byte(removedJSON), &album.RemovedSongIDs); err != nil {
		return nil, fmt.Errorf("failed to decode removed songs for draft %s: %w", id, err)
	}
	if len(album.RemovedSongIDs) == 0 {
		album.RemovedSongIDs = nil
	}

	draft := models.NewDraft(sequence, album)
	draft.SetID(id)
	draft.SetCreatedAt(createdAt)
	draft.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		draft.SetDeletedAt(&deletedAt.Time)
	}
	return draft, nil
}

func (r *DraftRepository) load(row *sql.Row) (*models.Draft, error) {
	draft, err := r.scan(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(draft); err != nil {
		return nil, err
	}
	return draft, nil
}

func (r *DraftRepository) loadChildren(draft *models.Draft) error {
	if err := r.loadTracks(draft); err != nil {
		return err
	}
	return r.loadTags(draft)
}

func (r *DraftRepository) loadTracks(draft *models.Draft) error {
	rows, err := r.db.Query(`
		SELECT id, song_id, file_path, name, position, artist_percentage, stream_threshold, is_free, mode, selected
		FROM draft_tracks
		WHERE draft_id = ?
		ORDER BY position ASC
	`, draft.ID())
	if err != nil {
		return fmt.Errorf("failed to query draft tracks: %w", err)
	}
	defer rows.Close()

	album := draft.Album()
	var selected []string
	for rows.Next() {
		var (
			t        models.Track
			mode     string
			isSelect bool
		)
		if err := rows.Scan(&t.ID, &t.SongID, &t.FilePath, &t.Name, &t.Position, &t.ArtistPercentage,
			&t.StreamThreshold, &t.IsFree, &mode, &isSelect); err != nil {
			return fmt.Errorf("failed to scan draft track: %w", err)
		}
		t.Mode = models.PayoutMode(mode)
		album.Tracks = append(album.Tracks, t)
		if isSelect {
			selected = append(selected, t.ID)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration error: %w", err)
	}
	draft.SetSelected(selected)
	return nil
}

func (r *DraftRepository) loadTags(draft *models.Draft) error {
	rows, err := r.db.Query(`
		SELECT remote_id, name, category, original_name, removed
		FROM draft_tags
		WHERE draft_id = ?
		ORDER BY id ASC
	`, draft.ID())
	if err != nil {
		return fmt.Errorf("failed to query draft tags: %w", err)
	}
	defer rows.Close()

	album := draft.Album()
	for rows.Next() {
		var (
			t        models.Tag
			category string
			removed  bool
		)
		if err := rows.Scan(&t.RemoteID, &t.Name, &category, &t.Original, &removed); err != nil {
			return fmt.Errorf("failed to scan draft tag: %w", err)
		}
		t.Category = models.TagCategory(category)
		if removed {
			album.RemovedTags = append(album.RemovedTags, t)
		} else {
			album.Tags = append(album.Tags, t)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration error: %w", err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
