package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/lenavs/internal/models"
	"github.com/desertthunder/lenavs/internal/shared"
	"github.com/desertthunder/lenavs/internal/tasks"
	"github.com/urfave/cli/v3"
)

// followProgress prints updates until the returned stop function is called.
//
// stop closes the channel and waits for the printer to drain it.
func (r *Runner) followProgress() (chan tasks.ProgressUpdate, func()) {
	progress := make(chan tasks.ProgressUpdate, 32)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for update := range progress {
			if update.Total > 1 {
				r.writePlain("[%d/%d] %s\n", update.Step, update.Total, update.Message)
				continue
			}
			r.writePlain("→ %s\n", update.Message)
		}
	}()

	return progress, func() {
		close(progress)
		<-done
	}
}

// MediaUpload uploads audio, video and image files for a project and records their server paths.
func (r *Runner) MediaUpload(ctx context.Context, cmd *cli.Command) error {
	var jobs []tasks.UploadJob
	for _, f := range []struct {
		flag string
		kind models.MediaKind
	}{
		{"original", models.MediaOriginalAudio},
		{"instrumental", models.MediaInstrumentalAudio},
		{"video", models.MediaVideo},
		{"image", models.MediaImage},
	} {
		if path := cmd.String(f.flag); path != "" {
			jobs = append(jobs, tasks.UploadJob{Kind: f.kind, Path: path})
		}
	}
	if len(jobs) == 0 {
		return fmt.Errorf("%w: pass at least one of --original, --instrumental, --video, --image", shared.ErrMissingArgument)
	}

	_, session, err := r.requireSession(ctx)
	if err != nil {
		return err
	}
	p, err := r.project(cmd.StringArg("project"), session.User.ID)
	if err != nil {
		return err
	}

	progress, stop := r.followProgress()
	result, err := r.engine.BulkUpload(ctx, progress, jobs, tasks.BulkUploadOpts{
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  cmd.Float("rate"),
	})
	stop()
	if err != nil {
		return err
	}

	if result.Successful > 0 {
		result.Apply(p)
		if err := r.projects.Update(p); err != nil {
			return fmt.Errorf("uploaded but failed to save project: %w", err)
		}
	}

	r.writePlainln("Uploaded %d/%d files to %q", result.Successful, result.Total, p.Name)
	if result.Failed > 0 {
		for _, res := range result.Results {
			if res.Error != nil {
				r.writePlain("  ✗ %s: %v\n", res.Job.Path, res.Error)
			}
		}
		return fmt.Errorf("%w: %d of %d uploads failed", shared.ErrAPIRequest, result.Failed, result.Total)
	}
	return nil
}
