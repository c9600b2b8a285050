// package formatter renders albums as CSV, Markdown or plain text, for the terminal and for export files
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
)

// CSVHeaders are the columns written by [ExportToCSV].
var CSVHeaders = []string{"Position", "Title", "File", "Song ID", "Free", "Mode", "Artist %", "Listener %", "Threshold"}

// Payout describes a track's payout settings in one line.
func Payout(t models.Track) string {
	if t.IsFree {
		return "free"
	}
	return fmt.Sprintf("%s, artist %s / listeners %s, after %s streams",
		t.Mode, shared.FormatPercent(t.ArtistPercentage), shared.FormatPercent(t.ListenerPercentage()), shared.FormatCount(t.StreamThreshold))
}

// ExportToCSV converts an album's tracks to CSV, one row per track in position order.
// Payout columns are empty for free tracks.
func ExportToCSV(album *models.PendingAlbum) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(CSVHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, t := range album.Tracks {
		record := []string{
			strconv.Itoa(t.Position + 1),
			t.Name,
			t.FilePath,
			t.SongID,
			strconv.FormatBool(t.IsFree),
			"", "", "", "",
		}
		if !t.IsFree {
			record[5] = t.Mode.String()
			record[6] = strconv.FormatFloat(t.ArtistPercentage, 'f', -1, 64)
			record[7] = strconv.FormatFloat(t.ListenerPercentage(), 'f', -1, 64)
			record[8] = strconv.Itoa(t.StreamThreshold)
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

func title(album *models.PendingAlbum) string {
	if album.Title == "" {
		return "(untitled)"
	}
	return album.Title
}

// ExportToMarkdown converts an album to Markdown with an optional cover image
func ExportToMarkdown(album *models.PendingAlbum, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", title(album))

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	if album.ArtistName != "" {
		fmt.Fprintf(&buf, "**Artist**: %s\n", album.ArtistName)
	}
	if album.Year > 0 {
		fmt.Fprintf(&buf, "**Year**: %d\n", album.Year)
	}
	if album.RecordLabel != "" {
		fmt.Fprintf(&buf, "**Label**: %s\n", album.RecordLabel)
	}
	if album.Explicit {
		buf.WriteString("**Explicit**: yes\n")
	}
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", len(album.Tracks))

	buf.WriteString("## Tracks\n\n")
	for _, t := range album.Tracks {
		fmt.Fprintf(&buf, "%d. %s (%s)\n", t.Position+1, t.Name, Payout(t))
	}

	if len(album.Tags) > 0 {
		buf.WriteString("\n## Tags\n\n")
		for _, c := range models.Categories {
			tags := album.TagsIn(c)
			if len(tags) == 0 {
				continue
			}
			fmt.Fprintf(&buf, "- **%s**: %s\n", c, joinTags(tags))
		}
	}

	return buf.Bytes(), nil
}

func joinTags(tags []models.Tag) string {
	var buf bytes.Buffer
	for i, t := range tags {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(t.Name)
	}
	return buf.String()
}

// ExportToText converts an album to plain text, as shown by `draft show`.
func ExportToText(album *models.PendingAlbum) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Album: %s\n", title(album))
	if album.Editing() {
		fmt.Fprintf(&buf, "Editing: %s\n", album.EditingAlbumID)
	}
	if album.Year > 0 || album.RecordLabel != "" {
		fmt.Fprintf(&buf, "Year: %d  Label: %s  Explicit: %t\n", album.Year, album.RecordLabel, album.Explicit)
	}
	switch {
	case album.CoverPath != "":
		fmt.Fprintf(&buf, "Cover: %s\n", album.CoverPath)
	case album.CoverURL != "":
		fmt.Fprintf(&buf, "Cover: %s (published)\n", album.CoverURL)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(album.Tracks))

	for _, t := range album.Tracks {
		fmt.Fprintf(&buf, "%d. %s [%s]\n", t.Position+1, t.Name, Payout(t))
	}

	for _, c := range models.Categories {
		if tags := album.TagsIn(c); len(tags) > 0 {
			fmt.Fprintf(&buf, "\n%s: %s", c, joinTags(tags))
		}
	}
	if len(album.Tags) > 0 {
		buf.WriteString("\n")
	}
	if n := len(album.RemovedSongIDs); n > 0 {
		fmt.Fprintf(&buf, "\n%d published songs will be deleted on upload\n", n)
	}

	return buf.Bytes(), nil
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// ToMetadataJSON generates a JSON representation of album metadata (without tracks)
func ToMetadataJSON(album *models.PendingAlbum) ([]byte, error) {
	meta := *album
	meta.Tracks = nil
	return shared.MarshalJSON(meta, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteCSVExport exports an album to CSV with an accompanying metadata JSON file,
// creating {base}_tracks.csv and {base}_metadata.json.
func WriteCSVExport(album *models.PendingAlbum, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		return nil, fmt.Errorf("%w: no output path", shared.ErrMissingArgument)
	}

	csvData, err := ExportToCSV(album)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(album)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		TracksFile:   tracksFile,
		MetadataFile: metadataFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport exports an album to Markdown in a dedicated directory.
//
// The imageURL parameter is optional; when set the cover is downloaded next to the README.
// A failed download leaves CoverImage empty; the README is still written.
func WriteMarkdownExport(album *models.PendingAlbum, outputDir string, imageURL string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		return nil, fmt.Errorf("%w: no output directory", shared.ErrMissingArgument)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if imageURL != "" {
		if imageData, err := DownloadImage(imageURL); err == nil {
			coverImageFilename = "cover" + filepath.Ext(imageURL)
			coverImagePath := filepath.Join(outputDir, coverImageFilename)
			if err := os.WriteFile(coverImagePath, imageData, 0644); err != nil {
				coverImageFilename = ""
			} else {
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdData, err := ExportToMarkdown(album, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteTextExport exports an album to plain text.
func WriteTextExport(album *models.PendingAlbum, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: no output path", shared.ErrMissingArgument)
	}

	textData, err := ExportToText(album)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// Write renders album in format ("csv", "markdown" or "text") under base and returns the files written.
func Write(album *models.PendingAlbum, format, base, imageURL string) ([]string, error) {
	switch format {
	case "csv":
		res, err := WriteCSVExport(album, base)
		if err != nil {
			return nil, err
		}
		return []string{res.TracksFile, res.MetadataFile}, nil
	case "markdown", "md":
		res, err := WriteMarkdownExport(album, base, imageURL)
		if err != nil {
			return nil, err
		}
		return res.Files, nil
	case "text", "txt", "":
		path, err := WriteTextExport(album, base+".txt")
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}
