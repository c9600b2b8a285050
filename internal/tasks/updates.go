package tasks

import (
	"fmt"

	"github.com/desertthunder/encore/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	UploadCover Phase = iota
	UpdateArtist
	SaveAlbum
	SaveTags
	UploadTracks
	RemoveTracks
	LinkSongs
	UploadDone
	DeleteAlbumPhase
	ExploreTags
	LoadAlbumPhase
	ExportAlbums
)

func (p Phase) String() string {
	switch p {
	case UploadCover:
		return "upload_cover"
	case UpdateArtist:
		return "update_artist"
	case SaveAlbum:
		return "save_album"
	case SaveTags:
		return "save_tags"
	case UploadTracks:
		return "upload_tracks"
	case RemoveTracks:
		return "remove_tracks"
	case LinkSongs:
		return "link_songs"
	case UploadDone:
		return "done"
	case DeleteAlbumPhase:
		return "delete_album"
	case ExploreTags:
		return "explore_tags"
	case LoadAlbumPhase:
		return "load_album"
	case ExportAlbums:
		return "export_albums"
	default:
		return ""
	}
}

func coverUpdate(name string) ProgressUpdate {
	return ProgressUpdate{Phase: UploadCover, Step: 1, Total: 1, Message: fmt.Sprintf("Uploading cover %s...", name)}
}

func keepCoverUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: UploadCover, Step: 1, Total: 1, Message: "Keeping existing cover"}
}

func artistUpdate(name string) ProgressUpdate {
	return ProgressUpdate{Phase: UpdateArtist, Step: 1, Total: 1, Message: fmt.Sprintf("Setting artist name to %q...", name)}
}

func albumUpdate(title string, editing bool) ProgressUpdate {
	verb := "Creating"
	if editing {
		verb = "Updating"
	}
	return ProgressUpdate{Phase: SaveAlbum, Step: 1, Total: 1, Message: fmt.Sprintf("%s album %s...", verb, title)}
}

func albumSavedUpdate(rec models.AlbumRecord) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SaveAlbum,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Album saved: %s (ID: %s)", rec.Title, rec.ID),
		Data:    rec,
	}
}

func tagUpdate(step, total int, category models.TagCategory, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SaveTags,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Saving %d %s tags...", step, total, count, category),
	}
}

func trackUpdate(step, total int, t models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   UploadTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, t.Name),
	}
}

func trackDoneUpdate(step, total int, song models.SongRecord) ProgressUpdate {
	return ProgressUpdate{
		Phase:   UploadTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, song.Title),
		Data:    song,
	}
}

func removeTrackUpdate(step, total int, songID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RemoveTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Removing song %s...", step, total, songID),
	}
}

func linkUpdate(songs, tags int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LinkSongs,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Linking %d songs and %d tags...", songs, tags),
	}
}

func uploadDoneUpdate(res *UploadResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   UploadDone,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Published album %s with %d songs", res.AlbumID, len(res.SongIDs)),
		Data:    res,
	}
}

func deleteAlbumUpdate(step, total int, message string) ProgressUpdate {
	return ProgressUpdate{Phase: DeleteAlbumPhase, Step: step, Total: total, Message: message}
}

func exploreUpdate(step, total int, category models.TagCategory, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExploreTags,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetched %d %s tags", count, category),
	}
}

func loadAlbumUpdate(step, total int, message string) ProgressUpdate {
	return ProgressUpdate{Phase: LoadAlbumPhase, Step: step, Total: total, Message: message}
}

func exportingAlbumUpdate(step, total int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportAlbums,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, title),
	}
}

func exportCompletedUpdate(step, total int, title string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportAlbums,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, title, filesCount),
	}
}

func exportFailedUpdate(step, total int, title string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportAlbums,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, title, err),
	}
}
