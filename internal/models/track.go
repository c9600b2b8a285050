package models

import "fmt"

// Track is an audio file waiting to be published, with its payout settings.
//
// SongID is set when the track belongs to an album being edited and already has a remote song row.
type Track struct {
	ID               string     `json:"id"`
	SongID           string     `json:"song_id,omitempty"`
	FilePath         string     `json:"file_path,omitempty"`
	Name             string     `json:"name"`
	Position         int        `json:"position"`
	ArtistPercentage float64    `json:"artist_percentage"`
	StreamThreshold  int        `json:"stream_threshold"`
	IsFree           bool       `json:"is_free"`
	Mode             PayoutMode `json:"mode"`
}

// NewTrack returns a paid, proportional track with default payout settings.
func NewTrack(id, path, name string) Track {
	return Track{
		ID:               id,
		FilePath:         path,
		Name:             name,
		ArtistPercentage: DefaultArtistPercentage,
		StreamThreshold:  DefaultStreamThreshold,
		Mode:             PayoutProportional,
	}
}

// ListenerPercentage is the listeners' share, always 100 minus the artist's.
func (t Track) ListenerPercentage() float64 {
	return 100 - t.ArtistPercentage
}

// Existing reports whether the track maps to a song already on the backend.
func (t Track) Existing() bool { return t.SongID != "" }

// NeedsUpload reports whether the track has a local file that must be sent to storage.
func (t Track) NeedsUpload() bool { return t.FilePath != "" }

// Validate checks payout bounds and that the track has something to publish.
func (t Track) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("track %d has no name", t.Position)
	}
	if !t.NeedsUpload() && !t.Existing() {
		return fmt.Errorf("track %q has no audio file", t.Name)
	}
	if t.ArtistPercentage < 0 || t.ArtistPercentage > 100 {
		return fmt.Errorf("track %q artist percentage %.2f out of range", t.Name, t.ArtistPercentage)
	}
	if t.StreamThreshold < 0 {
		return fmt.Errorf("track %q has negative stream threshold", t.Name)
	}
	if t.Mode != PayoutProportional && t.Mode != PayoutJackpot {
		return fmt.Errorf("track %q has unknown payout mode %q", t.Name, t.Mode)
	}
	return nil
}
