package tasks

import (
	"fmt"

	"github.com/desertthunder/lenavs/internal/models"
)

// ProgressUpdate represents a single progress event during a long-running workflow.
type ProgressUpdate struct {
	Phase   Phase  // Current phase of the operation
	Step    int    // Current step number within this phase
	Total   int    // Total steps in this phase
	Message string // Human-readable progress message
	Data    any    // Optional data for rendering (e.g., entitlement, upload result)
}

// Phase represents a distinct stage in a workflow.
type Phase int

const (
	Preflight Phase = iota
	ConsumeCredit
	Generate
	Reconcile
	ExportDone
	ExportFailed
	Uploading
	UploadDone
	UploadFailed
)

func (p Phase) String() string {
	switch p {
	case Preflight:
		return "Checking entitlement"
	case ConsumeCredit:
		return "Consuming credit"
	case Generate:
		return "Generating video"
	case Reconcile:
		return "Refreshing credits"
	case ExportDone:
		return "Export complete"
	case ExportFailed:
		return "Export failed"
	case Uploading:
		return "Uploading media"
	case UploadDone:
		return "Upload complete"
	case UploadFailed:
		return "Upload failed"
	default:
		return "Unknown"
	}
}

func preflightUpdate(e models.Entitlement) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Preflight,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Plan: %s", e),
		Data:    e,
	}
}

func consumeCreditUpdate(e models.Entitlement) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ConsumeCredit,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Using 1 credit (%d left)", e.Credits),
		Data:    e,
	}
}

func generateUpdate(p *models.Project) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Generate,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Rendering %q (%d stanzas, %s)", p.Name, len(p.Stanzas), p.VideoFormat),
	}
}

func reconcileUpdate(e models.Entitlement) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Reconcile,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Plan: %s", e),
		Data:    e,
	}
}

func exportDoneUpdate(url string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportDone,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Video ready: %s", url),
		Data:    url,
	}
}

func exportFailedUpdate(err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportFailed,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Export failed: %v", err),
		Data:    err,
	}
}

func uploadingUpdate(step, total int, job UploadJob) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Uploading,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Uploading %s (%s)", job.Path, job.Kind),
		Data:    job,
	}
}

func uploadDoneUpdate(step, total int, res UploadResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   UploadDone,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Uploaded %s -> %s", res.Job.Path, res.RemotePath),
		Data:    res,
	}
}

func uploadFailedUpdate(step, total int, res UploadResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   UploadFailed,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Failed to upload %s: %v", res.Job.Path, res.Error),
		Data:    res,
	}
}
