package river

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
)

// TransitionWorker processes committed-transition jobs from the River
// queue. For now it logs the transition; future versions will dispatch to
// notification systems (e-mail to the submitter, supervisor digests).
type TransitionWorker struct {
	river.WorkerDefaults[TransitionJobArgs]
}

// Work processes a single transition job.
func (w *TransitionWorker) Work(ctx context.Context, job *river.Job[TransitionJobArgs]) error {
	slog.InfoContext(ctx, "processing case transition",
		"action", job.Args.Action,
		"resulting_status", job.Args.ResultingStatus,
		"case_id", job.Args.CaseID,
		"case_number", job.Args.CaseNumber,
		"performed_by", job.Args.PerformedBy,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return nil
}
