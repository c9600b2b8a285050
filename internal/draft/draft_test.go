package draft

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
)

func newState(t *testing.T, n int) *State {
	t.Helper()
	s := New(nil)
	seq := 0
	s.newID = func() string {
		seq++
		return fmt.Sprintf("t%d", seq)
	}
	for i := range n {
		s.Add(fmt.Sprintf("/music/track %d.mp3", i+1))
	}
	return s
}

func positions(s *State) []int {
	var out []int
	for _, t := range s.Tracks() {
		out = append(out, t.Position)
	}
	return out
}

func names(s *State) []string {
	var out []string
	for _, t := range s.Tracks() {
		out = append(out, t.Name)
	}
	return out
}

func TestAdd(t *testing.T) {
	s := newState(t, 2)

	require.Equal(t, 2, s.Len())
	tr, err := s.Track(1)
	require.NoError(t, err)
	assert.Equal(t, "track 2", tr.Name)
	assert.Equal(t, 1, tr.Position)
	assert.Equal(t, models.DefaultStreamThreshold, tr.StreamThreshold)
	assert.Equal(t, models.DefaultArtistPercentage, tr.ArtistPercentage)
}

func TestSelection(t *testing.T) {
	s := newState(t, 4)

	require.NoError(t, s.Select(0, 2))
	assert.Equal(t, []int{0, 2}, s.Selected())

	require.NoError(t, s.Toggle(2))
	assert.Equal(t, []int{0}, s.Selected())

	err := s.Select(1, 9)
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
	assert.Equal(t, []int{0}, s.Selected(), "failed select changes nothing")

	s.SelectAll()
	assert.Equal(t, []int{0, 1, 2, 3}, s.Selected())

	s.ClearSelection()
	assert.Empty(t, s.Selected())
}

func TestSelectionFollowsTracks(t *testing.T) {
	s := newState(t, 3)
	require.NoError(t, s.Select(2))
	require.NoError(t, s.Move(2, 0))

	assert.Equal(t, []int{0}, s.Selected())
	assert.Equal(t, []string{"t3"}, s.SelectedIDs())

	s.ClearSelection()
	s.RestoreSelection([]string{"t1", "missing"})
	assert.Equal(t, []int{1}, s.Selected())
}

func TestApplyThreshold(t *testing.T) {
	tests := []struct {
		name string
		text string
		min  int
		want int
	}{
		{"valid", "2500", 100, 2500},
		{"below minimum", "-5", 100, 100},
		{"invalid text", "lots", 100, 1000},
		{"empty", "", 100, 1000},
		{"invalid below minimum", "x", 5000, 5000},
		{"negative minimum", "-5", -10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newState(t, 3)
			require.NoError(t, s.Select(0, 2))

			got := s.ApplyThreshold(tt.text, tt.min)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, s.Tracks()[0].StreamThreshold)
			assert.Equal(t, tt.want, s.Tracks()[2].StreamThreshold)
			assert.Equal(t, models.DefaultStreamThreshold, s.Tracks()[1].StreamThreshold, "unselected track untouched")
		})
	}
}

func TestApplyPercentage(t *testing.T) {
	tests := []struct {
		text     string
		artist   float64
		listener float64
	}{
		{"150", 100, 0},
		{"-3", 0, 100},
		{"62.5", 62.5, 37.5},
		{"NaN", 50, 50},
		{"half", 50, 50},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			s := newState(t, 2)
			s.SelectAll()

			got := s.ApplyPercentage(tt.text)

			assert.Equal(t, tt.artist, got)
			for _, tr := range s.Tracks() {
				assert.Equal(t, tt.artist, tr.ArtistPercentage)
				assert.Equal(t, tt.listener, tr.ListenerPercentage())
				assert.Equal(t, 100.0, tr.ArtistPercentage+tr.ListenerPercentage())
			}
		})
	}
}

func TestEmptySelectionTouchesNothing(t *testing.T) {
	s := newState(t, 2)
	before := append([]models.Track(nil), s.Tracks()...)

	s.ApplyThreshold("9000", 100)
	s.ApplyPercentage("10")
	s.SetFree(true)
	s.SetMode(models.PayoutJackpot)

	assert.Equal(t, before, s.Tracks())
}

func TestIdempotentEdits(t *testing.T) {
	s := newState(t, 2)
	s.SelectAll()
	s.ApplyThreshold("1500", 100)
	s.SetMode(models.PayoutJackpot)
	once := append([]models.Track(nil), s.Tracks()...)

	s.ApplyThreshold("1500", 100)
	s.SetMode(models.PayoutJackpot)

	assert.Equal(t, once, s.Tracks())
}

func TestFreeAndMode(t *testing.T) {
	s := newState(t, 3)
	require.NoError(t, s.Select(1))

	s.SetFree(true)
	s.SetMode(models.PayoutJackpot)

	assert.True(t, s.Tracks()[1].IsFree)
	assert.Equal(t, models.PayoutJackpot, s.Tracks()[1].Mode)
	assert.False(t, s.Tracks()[0].IsFree)
	assert.Equal(t, models.PayoutProportional, s.Tracks()[0].Mode)
}

func TestRemoveRenumbers(t *testing.T) {
	s := newState(t, 4)
	require.NoError(t, s.Select(1))

	require.NoError(t, s.Remove(1))

	assert.Equal(t, []int{0, 1, 2}, positions(s))
	assert.Equal(t, []string{"track 1", "track 3", "track 4"}, names(s))
	assert.Empty(t, s.Selected())
	assert.Empty(t, s.Album().RemovedSongIDs)

	assert.ErrorIs(t, s.Remove(3), shared.ErrInvalidArgument)
}

func TestRemoveExistingSong(t *testing.T) {
	s := newState(t, 2)
	s.Album().Tracks[0].SongID = "song-1"

	require.NoError(t, s.Remove(0))

	assert.Equal(t, []string{"song-1"}, s.Album().RemovedSongIDs)
}

func TestMove(t *testing.T) {
	tests := []struct {
		from, to int
		want     []string
	}{
		{0, 2, []string{"track 2", "track 3", "track 1"}},
		{2, 0, []string{"track 3", "track 1", "track 2"}},
		{1, 1, []string{"track 1", "track 2", "track 3"}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d to %d", tt.from, tt.to), func(t *testing.T) {
			s := newState(t, 3)
			require.NoError(t, s.Move(tt.from, tt.to))
			assert.Equal(t, tt.want, names(s))
			assert.Equal(t, []int{0, 1, 2}, positions(s))
		})
	}

	s := newState(t, 3)
	assert.ErrorIs(t, s.Move(0, 3), shared.ErrInvalidArgument)
	assert.ErrorIs(t, s.Move(-1, 0), shared.ErrInvalidArgument)
}

func TestReorder(t *testing.T) {
	s := newState(t, 3)

	require.NoError(t, s.Reorder([]int{2, 0, 1}))
	assert.Equal(t, []string{"track 3", "track 1", "track 2"}, names(s))
	assert.Equal(t, []int{0, 1, 2}, positions(s))

	assert.ErrorIs(t, s.Reorder([]int{0, 0, 1}), shared.ErrInvalidArgument)
	assert.ErrorIs(t, s.Reorder([]int{0, 1}), shared.ErrInvalidArgument)
}

func TestNewRenumbersLoadedTracks(t *testing.T) {
	album := &models.PendingAlbum{Tracks: []models.Track{
		{ID: "a", Name: "a", Position: 4},
		{ID: "b", Name: "b", Position: 9},
	}}
	s := New(album)
	assert.Equal(t, []int{0, 1}, positions(s))
}

func TestRename(t *testing.T) {
	s := newState(t, 1)
	require.NoError(t, s.Rename(0, "Intro"))
	assert.Equal(t, "Intro", s.Tracks()[0].Name)
	assert.ErrorIs(t, s.Rename(0, ""), shared.ErrInvalidInput)
}

func TestAddTag(t *testing.T) {
	s := New(nil)

	tag, err := s.AddTag(models.CategoryGenre, "  Ambient ")
	require.NoError(t, err)
	assert.Equal(t, "ambient", tag.Name)

	_, err = s.AddTag(models.CategoryGenre, "AMBIENT")
	assert.ErrorIs(t, err, shared.ErrDuplicateTag)

	_, err = s.AddTag(models.CategoryMood, "ambient")
	assert.NoError(t, err, "same name in another category is allowed")

	_, err = s.AddTag(models.CategoryMood, "   ")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	assert.Len(t, s.Tags(models.CategoryGenre), 1)
	assert.Len(t, s.Tags(models.CategoryMood), 1)
}

func TestRenameTag(t *testing.T) {
	s := New(&models.PendingAlbum{Tags: []models.Tag{
		{RemoteID: "r1", Name: "jazz", Category: models.CategoryGenre},
		{Name: "funk", Category: models.CategoryGenre},
	}})

	require.NoError(t, s.RenameTag(models.CategoryGenre, "jazz", "Free Jazz"))
	tags := s.Tags(models.CategoryGenre)
	require.Len(t, tags, 2)
	assert.Equal(t, "free jazz", tags[0].Name)
	assert.Equal(t, "jazz", tags[0].Original)
	assert.True(t, tags[0].Renamed())

	assert.ErrorIs(t, s.RenameTag(models.CategoryGenre, "funk", "free jazz"), shared.ErrDuplicateTag)
	assert.ErrorIs(t, s.RenameTag(models.CategoryGenre, "soul", "blues"), shared.ErrNotFound)
}

func TestDeleteTag(t *testing.T) {
	s := New(&models.PendingAlbum{
		EditingAlbumID: "album-1",
		Tags: []models.Tag{
			{RemoteID: "r1", Name: "calm", Category: models.CategoryMood},
			{Name: "dark", Category: models.CategoryMood},
		},
	})

	require.NoError(t, s.DeleteTag(models.CategoryMood, "calm"))
	require.NoError(t, s.DeleteTag(models.CategoryMood, "dark"))

	assert.Empty(t, s.Tags(models.CategoryMood))
	require.Len(t, s.Album().RemovedTags, 1, "only remote tags are remembered")
	assert.Equal(t, "r1", s.Album().RemovedTags[0].RemoteID)

	assert.ErrorIs(t, s.DeleteTag(models.CategoryMood, "calm"), shared.ErrNotFound)

	tag, err := s.AddTag(models.CategoryMood, "calm")
	require.NoError(t, err)
	assert.Equal(t, "r1", tag.RemoteID, "re-adding restores the remote tag")
	assert.Empty(t, s.Album().RemovedTags)
}
