// package draft holds the editable state of an album before it is published.
//
// A [State] owns a [models.PendingAlbum] and the current track selection. Payout edits apply to the
// selected tracks only and never fail: malformed input falls back to defaults. Every change to the
// track list renumbers positions as 0..n-1 in list order.
package draft

import (
	"fmt"
	"slices"
	"sort"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
)

// State is the pending album plus the selection that payout edits apply to.
// It is not safe for concurrent use; the UI owns it.
type State struct {
	album    *models.PendingAlbum
	selected map[string]bool
	newID    func() string
}

// New wraps album. A nil album starts empty.
func New(album *models.PendingAlbum) *State {
	if album == nil {
		album = &models.PendingAlbum{}
	}
	s := &State{album: album, selected: map[string]bool{}, newID: shared.GenerateID}
	s.renumber()
	return s
}

// Album returns the underlying album.
func (s *State) Album() *models.PendingAlbum { return s.album }

// Tracks returns the tracks in order.
func (s *State) Tracks() []models.Track { return s.album.Tracks }

// Len returns the number of tracks.
func (s *State) Len() int { return len(s.album.Tracks) }

// Track returns the track at pos.
func (s *State) Track(pos int) (models.Track, error) {
	if err := s.check(pos); err != nil {
		return models.Track{}, err
	}
	return s.album.Tracks[pos], nil
}

func (s *State) check(pos int) error {
	if pos < 0 || pos >= len(s.album.Tracks) {
		return fmt.Errorf("%w: no track at position %d (have %d)", shared.ErrInvalidArgument, pos, len(s.album.Tracks))
	}
	return nil
}

func (s *State) renumber() {
	for i := range s.album.Tracks {
		s.album.Tracks[i].Position = i
	}
}

// Select adds the tracks at positions to the selection.
func (s *State) Select(positions ...int) error {
	for _, p := range positions {
		if err := s.check(p); err != nil {
			return err
		}
	}
	for _, p := range positions {
		s.selected[s.album.Tracks[p].ID] = true
	}
	return nil
}

// Toggle flips the selection of the track at pos.
func (s *State) Toggle(pos int) error {
	if err := s.check(pos); err != nil {
		return err
	}
	id := s.album.Tracks[pos].ID
	if s.selected[id] {
		delete(s.selected, id)
	} else {
		s.selected[id] = true
	}
	return nil
}

// SelectAll selects every track.
func (s *State) SelectAll() {
	for _, t := range s.album.Tracks {
		s.selected[t.ID] = true
	}
}

// ClearSelection empties the selection.
func (s *State) ClearSelection() {
	clear(s.selected)
}

// IsSelected reports whether the track at pos is selected.
func (s *State) IsSelected(pos int) bool {
	return pos >= 0 && pos < len(s.album.Tracks) && s.selected[s.album.Tracks[pos].ID]
}

// Selected returns the selected positions in ascending order.
func (s *State) Selected() []int {
	var out []int
	for i, t := range s.album.Tracks {
		if s.selected[t.ID] {
			out = append(out, i)
		}
	}
	return out
}

// SelectedIDs returns the selected track ids in track order.
func (s *State) SelectedIDs() []string {
	var out []string
	for _, t := range s.album.Tracks {
		if s.selected[t.ID] {
			out = append(out, t.ID)
		}
	}
	return out
}

// RestoreSelection selects the tracks with the given ids. Unknown ids are ignored.
func (s *State) RestoreSelection(ids []string) {
	clear(s.selected)
	for _, id := range ids {
		for _, t := range s.album.Tracks {
			if t.ID == id {
				s.selected[id] = true
			}
		}
	}
}

func (s *State) eachSelected(fn func(t *models.Track)) {
	for i := range s.album.Tracks {
		if s.selected[s.album.Tracks[i].ID] {
			fn(&s.album.Tracks[i])
		}
	}
}

// ApplyThreshold sets the stream threshold of the selected tracks from text and returns the value applied.
// See [models.ClampThreshold] for parsing and clamping.
func (s *State) ApplyThreshold(text string, min int) int {
	v := models.ClampThreshold(text, min)
	s.eachSelected(func(t *models.Track) { t.StreamThreshold = v })
	return v
}

// ApplyPercentage sets the artist percentage of the selected tracks from text and returns the value applied.
func (s *State) ApplyPercentage(text string) float64 {
	v := models.ClampPercentage(text)
	s.eachSelected(func(t *models.Track) { t.ArtistPercentage = v })
	return v
}

// SetFree marks the selected tracks free to stream, or paid.
func (s *State) SetFree(free bool) {
	s.eachSelected(func(t *models.Track) { t.IsFree = free })
}

// SetMode sets the payout mode of the selected tracks.
func (s *State) SetMode(mode models.PayoutMode) {
	s.eachSelected(func(t *models.Track) { t.Mode = mode })
}

// Add appends a track for the file at path, named after the file.
func (s *State) Add(path string) models.Track {
	return s.AddNamed(path, shared.DisplayName(path))
}

// AddNamed appends a track with an explicit display name.
func (s *State) AddNamed(path, name string) models.Track {
	t := models.NewTrack(s.newID(), path, name)
	t.Position = len(s.album.Tracks)
	s.album.Tracks = append(s.album.Tracks, t)
	return t
}

// Remove deletes the track at pos. Removing a published song queues it for deletion on upload.
func (s *State) Remove(pos int) error {
	if err := s.check(pos); err != nil {
		return err
	}
	t := s.album.Tracks[pos]
	if t.Existing() {
		s.album.RemovedSongIDs = append(s.album.RemovedSongIDs, t.SongID)
	}
	delete(s.selected, t.ID)
	s.album.Tracks = slices.Delete(s.album.Tracks, pos, pos+1)
	s.renumber()
	return nil
}

// Move moves the track at from so that it ends up at to.
func (s *State) Move(from, to int) error {
	if err := s.check(from); err != nil {
		return err
	}
	if err := s.check(to); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	t := s.album.Tracks[from]
	s.album.Tracks = slices.Delete(s.album.Tracks, from, from+1)
	s.album.Tracks = slices.Insert(s.album.Tracks, to, t)
	s.renumber()
	return nil
}

// Reorder rearranges tracks so that order[i] is the old position of the track now at i.
func (s *State) Reorder(order []int) error {
	if len(order) != len(s.album.Tracks) {
		return fmt.Errorf("%w: order has %d entries, album has %d tracks", shared.ErrInvalidArgument, len(order), len(s.album.Tracks))
	}
	seen := make([]bool, len(order))
	next := make([]models.Track, len(order))
	for i, old := range order {
		if err := s.check(old); err != nil {
			return err
		}
		if seen[old] {
			return fmt.Errorf("%w: position %d listed twice", shared.ErrInvalidArgument, old)
		}
		seen[old] = true
		next[i] = s.album.Tracks[old]
	}
	s.album.Tracks = next
	s.renumber()
	return nil
}

// Rename sets the display name of the track at pos.
func (s *State) Rename(pos int, name string) error {
	if err := s.check(pos); err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("%w: track name cannot be empty", shared.ErrInvalidInput)
	}
	s.album.Tracks[pos].Name = name
	return nil
}

// SetMetadata updates the album fields shown on the details screen.
func (s *State) SetMetadata(title string, year int, label string, explicit bool) {
	s.album.Title = title
	s.album.Year = year
	s.album.RecordLabel = label
	s.album.Explicit = explicit
}

// SetCover sets the local cover image to upload.
func (s *State) SetCover(path string) {
	s.album.CoverPath = path
}

func (s *State) findTag(category models.TagCategory, name string) int {
	for i, t := range s.album.Tags {
		if t.Category == category && t.Name == name {
			return i
		}
	}
	return -1
}

// Tags returns the album's tags in category, sorted by name.
func (s *State) Tags(category models.TagCategory) []models.Tag {
	tags := s.album.TagsIn(category)
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags
}

// AddTag adds a tag. Names are normalized; a name already in the category is rejected.
func (s *State) AddTag(category models.TagCategory, name string) (models.Tag, error) {
	name = models.NormalizeTagName(name)
	if name == "" {
		return models.Tag{}, fmt.Errorf("%w: tag name cannot be empty", shared.ErrInvalidInput)
	}
	if s.findTag(category, name) >= 0 {
		return models.Tag{}, fmt.Errorf("%w: %s/%s", shared.ErrDuplicateTag, category, name)
	}

	// Re-adding a tag removed earlier in this edit restores the remote row.
	for i, t := range s.album.RemovedTags {
		if t.Category == category && t.Name == name {
			s.album.RemovedTags = slices.Delete(s.album.RemovedTags, i, i+1)
			s.album.Tags = append(s.album.Tags, t)
			return t, nil
		}
	}

	t := models.Tag{Name: name, Category: category}
	s.album.Tags = append(s.album.Tags, t)
	return t, nil
}

// RenameTag renames a tag within its category.
func (s *State) RenameTag(category models.TagCategory, oldName, newName string) error {
	oldName = models.NormalizeTagName(oldName)
	newName = models.NormalizeTagName(newName)
	i := s.findTag(category, oldName)
	if i < 0 {
		return fmt.Errorf("%w: tag %s/%s", shared.ErrNotFound, category, oldName)
	}
	if newName == "" {
		return fmt.Errorf("%w: tag name cannot be empty", shared.ErrInvalidInput)
	}
	if newName == oldName {
		return nil
	}
	if s.findTag(category, newName) >= 0 {
		return fmt.Errorf("%w: %s/%s", shared.ErrDuplicateTag, category, newName)
	}

	t := &s.album.Tags[i]
	if t.RemoteID != "" && t.Original == "" {
		t.Original = t.Name
	}
	t.Name = newName
	return nil
}

// DeleteTag removes a tag. Removing a published tag queues it for unlinking on upload.
func (s *State) DeleteTag(category models.TagCategory, name string) error {
	name = models.NormalizeTagName(name)
	i := s.findTag(category, name)
	if i < 0 {
		return fmt.Errorf("%w: tag %s/%s", shared.ErrNotFound, category, name)
	}
	t := s.album.Tags[i]
	if t.RemoteID != "" {
		s.album.RemovedTags = append(s.album.RemovedTags, t)
	}
	s.album.Tags = slices.Delete(s.album.Tags, i, i+1)
	return nil
}
