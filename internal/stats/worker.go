package stats

import (
	"context"
	"log"
	"time"
)

// StartFlushWorker writes the recorder's pending totals every interval and
// once more when ctx ends.
func StartFlushWorker(ctx context.Context, r *Recorder, f Flusher, interval time.Duration) {
	if r == nil || f == nil {
		log.Println("[STATS] Recorder or store missing; flush worker not started")
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}

	log.Printf("[STATS] Flush worker started (every %s)", interval)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				final, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := r.Flush(final, f); err != nil {
					log.Printf("[STATS] Final flush failed: %v", err)
				}
				cancel()
				log.Println("[STATS] Flush worker stopping")
				return
			case <-ticker.C:
				if err := r.Flush(ctx, f); err != nil {
					log.Printf("[STATS] Flush failed, will retry: %v", err)
				}
			}
		}
	}()
}
