// File: /jobs/verification_job.go
package jobs

import (
	"context"
	"log"
	"time"
)

// PendingVerifier processes participants whose tracks await verification.
type PendingVerifier interface {
	VerifyPending(ctx context.Context, limit, workers int) (int, error)
}

// VerificationJob periodically verifies pending participant tracks
type VerificationJob struct {
	verifier  PendingVerifier
	interval  time.Duration
	batchSize int
	workers   int
	cancel    context.CancelFunc
	done      chan struct{}
}

const defaultBatchSize = 100

func NewVerificationJob(verifier PendingVerifier, interval time.Duration, workers int) *VerificationJob {
	return &VerificationJob{
		verifier:  verifier,
		interval:  interval,
		batchSize: defaultBatchSize,
		workers:   workers,
	}
}

// Start runs one sweep immediately and then one per interval until Stop is
// called or ctx is cancelled.
func (j *VerificationJob) Start(ctx context.Context) {
	ctx, j.cancel = context.WithCancel(ctx)
	j.done = make(chan struct{})
	log.Printf("Verification job started, interval %v", j.interval)

	go func() {
		defer close(j.done)
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		j.run(ctx)
		for {
			select {
			case <-ticker.C:
				j.run(ctx)
			case <-ctx.Done():
				log.Println("Verification job stopped")
				return
			}
		}
	}()
}

// Stop cancels the job and waits for the current sweep to finish
func (j *VerificationJob) Stop() {
	if j.cancel == nil {
		return
	}
	j.cancel()
	<-j.done
}

func (j *VerificationJob) run(ctx context.Context) {
	processed, err := j.verifier.VerifyPending(ctx, j.batchSize, j.workers)
	if err != nil {
		log.Printf("Error during verification sweep: %v", err)
		return
	}
	if processed > 0 {
		log.Printf("Verification sweep processed %d participants", processed)
	}
}
