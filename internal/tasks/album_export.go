package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/desertthunder/encore/internal/formatter"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
)

// ExportOpts contains configuration for bulk album exports.
type ExportOpts struct {
	Format     string  // Export format: csv, markdown, text
	OutputDir  string  // Base output directory (default: encore_export_{epoch})
	NumWorkers int     // Concurrent workers (default: 5, max 10)
	RateLimit  float64 // Album fetches per second (default: 5)
	WithCovers bool    // Download cover images for markdown exports
}

// AlbumExportJob is one album handed to an export worker.
type AlbumExportJob struct {
	AlbumID string
	Album   *models.PendingAlbum
}

// AlbumExportResult is the outcome of exporting one album.
type AlbumExportResult struct {
	AlbumID string   `json:"album_id"`
	Title   string   `json:"title"`
	Success bool     `json:"success"`
	Files   []string `json:"files,omitempty"`
	Error   error    `json:"-"`
	Message string   `json:"error,omitempty"`
}

// ExportResult summarizes a bulk export.
type ExportResult struct {
	TotalAlbums       int                 `json:"total_albums"`
	SuccessfulExports int                 `json:"successful_exports"`
	FailedExports     int                 `json:"failed_exports"`
	OutputDirectory   string              `json:"output_directory"`
	ManifestPath      string              `json:"-"`
	Results           []AlbumExportResult `json:"results"`
}

// ExportAlbums exports every album of artistID concurrently with rate limiting and progress tracking.
//
// Album fetches are rate limited on a single producer goroutine; file writing fans out over a worker pool.
// A failed album does not stop the others. A manifest summarizing the run is written last.
func (e *AlbumEngine) ExportAlbums(ctx context.Context, artistID string, opts ExportOpts, prog chan<- ProgressUpdate) (*ExportResult, error) {
	albums, err := e.backend.Albums(ctx, artistID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(albums))
	for i, a := range albums {
		ids[i] = a.ID
	}
	return e.ExportAlbumIDs(ctx, ids, opts, prog)
}

// ExportAlbumIDs exports the albums in ids. See [AlbumEngine.ExportAlbums].
func (e *AlbumEngine) ExportAlbumIDs(ctx context.Context, ids []string, opts ExportOpts, prog chan<- ProgressUpdate) (*ExportResult, error) {
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("encore_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &ExportResult{
		TotalAlbums:     len(ids),
		OutputDirectory: opts.OutputDir,
		Results:         make([]AlbumExportResult, 0, len(ids)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan AlbumExportJob, len(ids))
	results := make(chan AlbumExportResult, len(ids))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, id := range ids {
			if err := limiter.Wait(ctx); err != nil {
				return
			}

			album, err := e.LoadAlbum(ctx, id, nil)
			if err != nil {
				results <- AlbumExportResult{
					AlbumID: id,
					Title:   fmt.Sprintf("Unknown (%s)", id),
					Error:   fmt.Errorf("failed to fetch album: %w", err),
				}
				continue
			}

			jobs <- AlbumExportJob{AlbumID: id, Album: album}
			e.sendProgress(prog, exportingAlbumUpdate(i+1, len(ids), album.Title))
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		if res.Error != nil {
			res.Message = res.Error.Error()
		}
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(completed, len(ids), res.Title, len(res.Files)))
		} else {
			result.FailedExports++
			e.sendProgress(prog, exportFailedUpdate(completed, len(ids), res.Title, res.Error))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifest, err := shared.MarshalJSON(result, true)
	if err != nil {
		return result, fmt.Errorf("export completed but failed to encode manifest: %w", err)
	}
	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := os.WriteFile(manifestPath, manifest, 0644); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// exportWorker writes albums from the jobs channel until it is closed. Once ctx is done remaining jobs are drained.
func (e *AlbumEngine) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan AlbumExportJob,
	results chan<- AlbumExportResult,
	opts ExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		if ctx.Err() != nil {
			results <- AlbumExportResult{AlbumID: job.AlbumID, Title: job.Album.Title, Error: ctx.Err()}
			continue
		}
		results <- e.exportSingleAlbum(job, opts)
	}
}

// exportSingleAlbum writes one album in the requested format under its own id.
func (e *AlbumEngine) exportSingleAlbum(j AlbumExportJob, opts ExportOpts) AlbumExportResult {
	result := AlbumExportResult{AlbumID: j.AlbumID, Title: j.Album.Title}

	var imageURL string
	if opts.WithCovers {
		imageURL = j.Album.CoverURL
	}

	files, err := formatter.Write(j.Album, opts.Format, filepath.Join(opts.OutputDir, j.AlbumID), imageURL)
	if err != nil {
		result.Error = fmt.Errorf("%s export failed: %w", opts.Format, err)
		return result
	}
	result.Files = files
	result.Success = true
	return result
}
