package models

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampThreshold(t *testing.T) {
	tc := []struct {
		name string
		text string
		min  int
		want int
	}{
		{name: "negative input raised to minimum", text: "-5", min: 100, want: 100},
		{name: "valid above minimum", text: "2500", min: 100, want: 2500},
		{name: "whitespace trimmed", text: "  300 ", min: 100, want: 300},
		{name: "invalid falls back to default", text: "lots", min: 100, want: DefaultStreamThreshold},
		{name: "empty falls back to default", text: "", min: 0, want: DefaultStreamThreshold},
		{name: "default still clamped", text: "x", min: 5000, want: 5000},
		{name: "float text is invalid", text: "12.5", min: 0, want: DefaultStreamThreshold},
		{name: "negative minimum treated as zero", text: "-20", min: -50, want: 0},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampThreshold(tt.text, tt.min))
		})
	}
}

func TestClampThresholdNeverBelowMinimum(t *testing.T) {
	for _, min := range []int{0, 1, 100, 1000, 99999} {
		for _, text := range []string{"-1", "0", "1", "999", "abc", "1e3", fmt.Sprint(math.MinInt32)} {
			got := ClampThreshold(text, min)
			assert.GreaterOrEqual(t, got, min, "text=%q min=%d", text, min)
		}
	}
}

func TestClampPercentage(t *testing.T) {
	tc := []struct {
		name string
		text string
		want float64
	}{
		{name: "over range clamps to 100", text: "150", want: 100},
		{name: "negative clamps to 0", text: "-3", want: 0},
		{name: "fraction kept", text: "62.5", want: 62.5},
		{name: "invalid falls back to default", text: "half", want: DefaultArtistPercentage},
		{name: "nan falls back to default", text: "NaN", want: DefaultArtistPercentage},
		{name: "infinity clamps", text: "+Inf", want: 100},
		{name: "negative infinity clamps", text: "-Inf", want: 0},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := ClampPercentage(tt.text)
			assert.Equal(t, tt.want, got)
			assert.True(t, got >= 0 && got <= 100)
		})
	}
}

func TestListenerPercentage(t *testing.T) {
	track := NewTrack("t1", "a.mp3", "a")
	track.ArtistPercentage = ClampPercentage("150")

	assert.Equal(t, 100.0, track.ArtistPercentage)
	assert.Equal(t, 0.0, track.ListenerPercentage())
	assert.Equal(t, 100.0, track.ArtistPercentage+track.ListenerPercentage())
}

func TestParsePayoutMode(t *testing.T) {
	m, err := ParsePayoutMode(" Jackpot ")
	require.NoError(t, err)
	assert.Equal(t, PayoutJackpot, m)

	_, err = ParsePayoutMode("lottery")
	assert.Error(t, err)
}

func TestNewSongRecord(t *testing.T) {
	t.Run("free track writes null payout fields", func(t *testing.T) {
		track := NewTrack("t1", "a.mp3", "Free One")
		track.IsFree = true

		rec := NewSongRecord("artist-1", track, "https://cdn/a.mp3", "a.mp3")
		data, err := json.Marshal(rec)
		require.NoError(t, err)

		var row map[string]any
		require.NoError(t, json.Unmarshal(data, &row))
		for _, field := range []string{"artist_percentage", "listener_percentage", "stream_threshold", "payout_mode"} {
			v, ok := row[field]
			assert.True(t, ok, "%s should be present", field)
			assert.Nil(t, v, "%s should be null", field)
		}
		assert.Equal(t, true, row["is_free"])
	})

	t.Run("paid track carries split", func(t *testing.T) {
		track := NewTrack("t1", "a.mp3", "Paid")
		track.ArtistPercentage = 70
		track.StreamThreshold = 250
		track.Mode = PayoutJackpot

		rec := NewSongRecord("artist-1", track, "u", "n")
		require.NotNil(t, rec.ArtistPercentage)
		assert.Equal(t, 70.0, *rec.ArtistPercentage)
		assert.Equal(t, 30.0, *rec.ListenerPercentage)
		assert.Equal(t, 250, *rec.StreamThreshold)
		assert.Equal(t, "jackpot", *rec.PayoutMode)
	})
}

func TestTagHelpers(t *testing.T) {
	assert.Equal(t, "lo fi", NormalizeTagName("  Lo   FI "))

	c, err := ParseCategory("misc")
	require.NoError(t, err)
	assert.Equal(t, CategoryMiscellaneous, c)

	c, err = ParseCategory("Instrument")
	require.NoError(t, err)
	assert.Equal(t, CategoryInstrument, c)

	_, err = ParseCategory("colour")
	assert.Error(t, err)

	assert.True(t, Tag{RemoteID: "1", Name: "b", Original: "a"}.Renamed())
	assert.False(t, Tag{Name: "b", Original: "a"}.Renamed())
}

func TestPendingAlbumValidate(t *testing.T) {
	album := &PendingAlbum{Title: "Night", CoverPath: "cover.png"}
	assert.Error(t, album.Validate(), "album without tracks")

	album.Tracks = []Track{NewTrack("a", "a.mp3", "a"), NewTrack("b", "b.mp3", "b")}
	album.Tracks[1].Position = 1
	assert.NoError(t, album.Validate())

	album.Tracks[1].Position = 3
	assert.Error(t, album.Validate(), "gap in positions")

	editing := &PendingAlbum{Title: "Old", EditingAlbumID: "alb", CoverURL: "https://cdn/c.png",
		Tracks: []Track{{ID: "x", SongID: "s1", Name: "x", Mode: PayoutProportional}}}
	assert.NoError(t, editing.Validate())
}
