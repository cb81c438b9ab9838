package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/desertthunder/lenavs/internal/models"
	"github.com/desertthunder/lenavs/internal/services"
	"github.com/desertthunder/lenavs/internal/shared"
	"golang.org/x/time/rate"
)

// UploadJob is one local file to send to the backend.
type UploadJob struct {
	Kind models.MediaKind
	Path string
}

// UploadResult is the outcome of a single [UploadJob].
type UploadResult struct {
	Job        UploadJob
	RemotePath string // Server-side path to reference in exports
	Error      error
	index      int
}

// BulkUploadOpts contains configuration for concurrent media uploads.
type BulkUploadOpts struct {
	NumWorkers int     // Concurrent workers (default: 3, max: 6)
	RateLimit  float64 // Uploads started per second (default: 2)
}

// BulkUploadResult summarizes a bulk upload. Results are in job order.
type BulkUploadResult struct {
	Total      int
	Successful int
	Failed     int
	Results    []UploadResult
}

// Apply records every successful upload on p.
func (r *BulkUploadResult) Apply(p *models.Project) {
	for _, res := range r.Results {
		if res.Error == nil && res.RemotePath != "" {
			p.Media.Set(res.Job.Kind, res.RemotePath)
		}
	}
}

// BulkUpload uploads media files concurrently with rate limiting and progress tracking.
//
// Failures are per file; the call only errors when nothing could be attempted. A 401 from any upload
// invalidates the session and stops the jobs that have not started.
func (e *ExportEngine) BulkUpload(ctx context.Context, prog chan<- ProgressUpdate, jobs []UploadJob, opts BulkUploadOpts) (*BulkUploadResult, error) {
	if e.account == nil || e.backend == nil {
		return nil, fmt.Errorf("%w: export engine not initialized", shared.ErrServiceUnavailable)
	}
	if !e.account.IsAuthenticated() {
		return nil, shared.ErrNotAuthenticated
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("%w: no files to upload", shared.ErrMissingArgument)
	}

	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	if opts.NumWorkers > 6 {
		opts.NumWorkers = 6
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2.0
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	total := len(jobs)
	queue := make(chan UploadResult, total)
	results := make(chan UploadResult, total)

	var invalidate sync.Once
	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range queue {
				res := e.uploadOne(ctx, job)
				if services.IsSessionInvalid(res.Error) {
					invalidate.Do(func() {
						cancel()
						e.account.Invalidate(context.WithoutCancel(ctx))
					})
				}
				results <- res
			}
		}()
	}

	go func() {
		defer close(queue)
		for i, job := range jobs {
			res := UploadResult{Job: job, index: i}
			if err := limiter.Wait(ctx); err != nil {
				res.Error = fmt.Errorf("upload not started: %w", err)
				results <- res
				continue
			}
			e.sendProgress(prog, uploadingUpdate(i+1, total, job))
			queue <- res
		}
	}()

	out := &BulkUploadResult{Total: total, Results: make([]UploadResult, 0, total)}
	for completed := 1; completed <= total; completed++ {
		res := <-results
		out.Results = append(out.Results, res)
		if res.Error != nil {
			out.Failed++
			e.sendProgress(prog, uploadFailedUpdate(completed, total, res))
			continue
		}
		out.Successful++
		e.sendProgress(prog, uploadDoneUpdate(completed, total, res))
	}
	wg.Wait()

	sort.Slice(out.Results, func(i, j int) bool { return out.Results[i].index < out.Results[j].index })
	return out, nil
}

// uploadOne sends a single file. A cancelled context short-circuits before the file is opened.
func (e *ExportEngine) uploadOne(ctx context.Context, res UploadResult) UploadResult {
	if err := ctx.Err(); err != nil {
		res.Error = fmt.Errorf("upload not started: %w", err)
		return res
	}

	f, err := os.Open(res.Job.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%w: %s does not exist", shared.ErrInvalidInput, res.Job.Path)
		}
		res.Error = err
		return res
	}
	defer f.Close()

	remote, err := e.backend.UploadMedia(ctx, res.Job.Kind, filepath.Base(res.Job.Path), f)
	if err != nil {
		res.Error = err
		return res
	}
	res.RemotePath = remote
	return res
}
