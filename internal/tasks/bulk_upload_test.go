package tasks

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/desertthunder/lenavs/internal/models"
	"github.com/desertthunder/lenavs/internal/shared"
	tu "github.com/desertthunder/lenavs/internal/testing"
)

func writeMedia(t *testing.T, names ...string) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
		tu.MustWriteFile(t, paths[i], "data:"+name)
	}
	return paths
}

func TestBulkUpload(t *testing.T) {
	fast := BulkUploadOpts{NumWorkers: 3, RateLimit: 1000}

	t.Run("All Succeed", func(t *testing.T) {
		engine, _, backend := newEngine(models.PlanFree, 1)
		paths := writeMedia(t, "song.mp3", "playback.mp3", "bg.png")
		jobs := []UploadJob{
			{Kind: models.MediaOriginalAudio, Path: paths[0]},
			{Kind: models.MediaInstrumentalAudio, Path: paths[1]},
			{Kind: models.MediaImage, Path: paths[2]},
		}

		result, err := engine.BulkUpload(context.Background(), nil, jobs, fast)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Total != 3 || result.Successful != 3 || result.Failed != 0 {
			t.Errorf("unexpected counts: %+v", result)
		}
		for i, res := range result.Results {
			if res.Job != jobs[i] {
				t.Errorf("result %d out of order: %+v", i, res.Job)
			}
		}
		if got := backend.uploaded["bg.png"]; got != "data:bg.png" {
			t.Errorf("expected file content to be sent, got %q", got)
		}

		p := models.NewProject(1, "user-1", "Song")
		result.Apply(p)
		if p.Media.OriginalAudio != "uploads/musicaOriginal/song.mp3" {
			t.Errorf("unexpected original audio path %q", p.Media.OriginalAudio)
		}
		if p.Media.InstrumentalAudio == "" || p.Media.Image == "" || p.Media.Video != "" {
			t.Errorf("unexpected media after apply: %+v", p.Media)
		}
	})

	t.Run("Partial Failures", func(t *testing.T) {
		engine, account, backend := newEngine(models.PlanFree, 1)
		backend.uploadErrs = map[string]error{"bad.mp4": fmt.Errorf("%w: status 500", shared.ErrAPIRequest)}
		paths := writeMedia(t, "song.mp3", "bad.mp4")
		jobs := []UploadJob{
			{Kind: models.MediaOriginalAudio, Path: paths[0]},
			{Kind: models.MediaVideo, Path: paths[1]},
			{Kind: models.MediaImage, Path: filepath.Join(t.TempDir(), "missing.png")},
		}

		result, err := engine.BulkUpload(context.Background(), nil, jobs, fast)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Successful != 1 || result.Failed != 2 {
			t.Errorf("unexpected counts: %+v", result)
		}
		if !errors.Is(result.Results[1].Error, shared.ErrAPIRequest) {
			t.Errorf("expected API error for bad.mp4, got %v", result.Results[1].Error)
		}
		if !errors.Is(result.Results[2].Error, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for missing file, got %v", result.Results[2].Error)
		}
		if account.invalidations != 0 {
			t.Error("ordinary failures should not sign out")
		}

		p := models.NewProject(1, "user-1", "Song")
		result.Apply(p)
		if p.Media.Video != "" || p.Media.Image != "" || p.Media.OriginalAudio == "" {
			t.Errorf("only successful uploads should apply, got %+v", p.Media)
		}
	})

	t.Run("Session Rejected", func(t *testing.T) {
		engine, account, backend := newEngine(models.PlanFree, 1)
		backend.uploadErrs = map[string]error{"a.mp3": fmt.Errorf("%w: status 401", shared.ErrSessionInvalid)}
		paths := writeMedia(t, "a.mp3", "b.png", "c.mp4")
		jobs := []UploadJob{
			{Kind: models.MediaOriginalAudio, Path: paths[0]},
			{Kind: models.MediaImage, Path: paths[1]},
			{Kind: models.MediaVideo, Path: paths[2]},
		}

		result, err := engine.BulkUpload(context.Background(), nil, jobs, BulkUploadOpts{NumWorkers: 1, RateLimit: 1000})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if account.invalidations != 1 {
			t.Errorf("expected one invalidation, got %d", account.invalidations)
		}
		if result.Failed != 3 {
			t.Errorf("expected every upload to fail once the session is gone, got %+v", result)
		}
		if len(backend.uploaded) != 0 {
			t.Errorf("no upload should succeed, got %v", backend.uploaded)
		}
	})

	t.Run("Worker Pool Limit", func(t *testing.T) {
		engine, _, backend := newEngine(models.PlanFree, 1)
		names := []string{"1.mp3", "2.mp3", "3.mp3", "4.mp3", "5.mp3", "6.mp3", "7.mp3", "8.mp3"}
		paths := writeMedia(t, names...)
		jobs := make([]UploadJob, len(paths))
		for i, p := range paths {
			jobs[i] = UploadJob{Kind: models.MediaVideo, Path: p}
		}

		result, err := engine.BulkUpload(context.Background(), nil, jobs, BulkUploadOpts{NumWorkers: 50, RateLimit: 1000})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Successful != len(jobs) {
			t.Errorf("expected all uploads to succeed, got %+v", result)
		}
		if backend.maxInflight > 6 {
			t.Errorf("expected at most 6 concurrent uploads, saw %d", backend.maxInflight)
		}
	})

	t.Run("Rate Limiting", func(t *testing.T) {
		engine, _, _ := newEngine(models.PlanFree, 1)
		paths := writeMedia(t, "a.mp3", "b.mp3", "c.mp3")
		jobs := []UploadJob{
			{Kind: models.MediaVideo, Path: paths[0]},
			{Kind: models.MediaVideo, Path: paths[1]},
			{Kind: models.MediaVideo, Path: paths[2]},
		}

		start := time.Now()
		if _, err := engine.BulkUpload(context.Background(), nil, jobs, BulkUploadOpts{NumWorkers: 3, RateLimit: 10}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// burst of 1 at 10/s: the third upload starts no earlier than 200ms in
		if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
			t.Errorf("expected rate limiting to spread uploads, took %v", elapsed)
		}
	})

	t.Run("Context Cancellation", func(t *testing.T) {
		engine, _, _ := newEngine(models.PlanFree, 1)
		paths := writeMedia(t, "a.mp3", "b.mp3")
		jobs := []UploadJob{
			{Kind: models.MediaVideo, Path: paths[0]},
			{Kind: models.MediaVideo, Path: paths[1]},
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result, err := engine.BulkUpload(ctx, nil, jobs, fast)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Failed != 2 || result.Successful != 0 {
			t.Errorf("expected cancelled uploads to fail, got %+v", result)
		}
	})

	t.Run("Progress Updates", func(t *testing.T) {
		engine, _, backend := newEngine(models.PlanFree, 1)
		backend.uploadErrs = map[string]error{"b.mp3": errors.New("boom")}
		paths := writeMedia(t, "a.mp3", "b.mp3")
		jobs := []UploadJob{
			{Kind: models.MediaVideo, Path: paths[0]},
			{Kind: models.MediaVideo, Path: paths[1]},
		}
		progress := make(chan ProgressUpdate, 10)

		if _, err := engine.BulkUpload(context.Background(), progress, jobs, fast); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		counts := map[Phase]int{}
		for _, phase := range drain(progress) {
			counts[phase]++
		}
		if counts[Uploading] != 2 || counts[UploadDone] != 1 || counts[UploadFailed] != 1 {
			t.Errorf("unexpected phase counts: %v", counts)
		}
	})

	t.Run("Preconditions", func(t *testing.T) {
		engine, account, _ := newEngine(models.PlanFree, 1)

		if _, err := engine.BulkUpload(context.Background(), nil, nil, fast); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}

		account.authenticated = false
		jobs := []UploadJob{{Kind: models.MediaVideo, Path: "x.mp4"}}
		if _, err := engine.BulkUpload(context.Background(), nil, jobs, fast); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}

		if _, err := NewExportEngine(nil, nil, nil).BulkUpload(context.Background(), nil, jobs, fast); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}
