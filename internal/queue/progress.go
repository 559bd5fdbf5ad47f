package queue

import (
	"fmt"
	"time"
)

// Progress is the derived throughput of a running job
type Progress struct {
	Rate        float64
	RateDisplay string
	ETA         *time.Time
}

// TrackProgress derives the processing rate (profiles per minute) and the
// estimated completion time from elapsed time and processed count. The ETA
// is nil when nothing remains or no rate can be derived yet.
func TrackProgress(processed, total int, startedAt, now time.Time) Progress {
	elapsed := now.Sub(startedAt).Minutes()

	var rate float64
	if elapsed > 0 {
		rate = float64(processed) / elapsed
	}

	p := Progress{
		Rate:        rate,
		RateDisplay: fmt.Sprintf("%.1f profiles/min", rate),
	}

	remaining := total - processed
	if remaining > 0 && rate > 0 {
		eta := now.Add(time.Duration(float64(remaining) / rate * float64(time.Minute)))
		p.ETA = &eta
	}

	return p
}
