// Package progress renders terminal progress for long-running operations.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

type workerState struct {
	current   string
	completed int
}

// ProgressTracker aggregates per-worker progress into a single refreshing
// status line. It is safe for concurrent use by pool workers.
type ProgressTracker struct {
	mu        sync.Mutex
	out       io.Writer
	workers   []workerState
	total     int
	completed int
	started   time.Time
	lastDraw  time.Time
	drawEvery time.Duration
}

// NewProgressTracker creates a tracker for workerCount workers sharing
// totalJobs jobs.
func NewProgressTracker(workerCount, totalJobs int) *ProgressTracker {
	if workerCount < 0 {
		workerCount = 0
	}
	return &ProgressTracker{
		out:       os.Stdout,
		workers:   make([]workerState, workerCount),
		total:     totalJobs,
		started:   time.Now(),
		drawEvery: 500 * time.Millisecond,
	}
}

// SetOutput redirects the rendered progress, mainly for tests.
func (pt *ProgressTracker) SetOutput(w io.Writer) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.out = w
}

// UpdateWorker records that a worker picked up or finished a job. The
// status line redraws at most once per drawEvery so fast jobs do not
// flood the terminal.
func (pt *ProgressTracker) UpdateWorker(workerID int, jobDescription string, completed bool) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if workerID < 0 || workerID >= len(pt.workers) {
		return
	}
	w := &pt.workers[workerID]
	if completed {
		w.current = ""
		w.completed++
		pt.completed++
	} else {
		w.current = jobDescription
	}

	if time.Since(pt.lastDraw) >= pt.drawEvery {
		pt.draw()
		pt.lastDraw = time.Now()
	}
}

// draw repaints the status line. The caller holds pt.mu.
func (pt *ProgressTracker) draw() {
	elapsed := time.Since(pt.started)
	var eta time.Duration
	if pt.completed > 0 && pt.completed < pt.total {
		perJob := elapsed / time.Duration(pt.completed)
		eta = perJob * time.Duration(pt.total-pt.completed)
	}

	busy := 0
	for _, w := range pt.workers {
		if w.current != "" {
			busy++
		}
	}

	fmt.Fprintf(pt.out, "\r\033[2K[%s] %d/%d (%.1f%%) | %d/%d workers busy | elapsed %v eta %v",
		renderBar(24, pt.completed, pt.total),
		pt.completed, pt.total, percent(pt.completed, pt.total),
		busy, len(pt.workers),
		elapsed.Round(time.Second), eta.Round(time.Second))
}

// Finish terminates the status line with a completion summary.
func (pt *ProgressTracker) Finish() {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	elapsed := time.Since(pt.started)
	rate := 0.0
	if elapsed > 0 {
		rate = float64(pt.completed) / elapsed.Seconds()
	}
	fmt.Fprintf(pt.out, "\r\033[2KCompleted %d jobs in %v (%.1f jobs/sec)\n",
		pt.completed, elapsed.Round(time.Millisecond), rate)
}

// SimpleProgress is a single-line progress bar for sequential tasks.
type SimpleProgress struct {
	out     io.Writer
	total   int
	current int
	label   string
	width   int
}

// NewSimpleProgress creates a progress bar labelled with the running
// operation, such as "Rendering".
func NewSimpleProgress(total int, label string) *SimpleProgress {
	return &SimpleProgress{
		out:   os.Stdout,
		total: total,
		label: label,
		width: 40,
	}
}

// SetOutput redirects the rendered bar, mainly for tests.
func (sp *SimpleProgress) SetOutput(w io.Writer) {
	sp.out = w
}

// Update redraws the bar at the given position.
func (sp *SimpleProgress) Update(current int) {
	sp.current = current
	fmt.Fprintf(sp.out, "\r%s [%s] %d/%d (%.1f%%)",
		sp.label, renderBar(sp.width, sp.current, sp.total),
		sp.current, sp.total, percent(sp.current, sp.total))
}

// Finish fills the bar and moves on to the next line.
func (sp *SimpleProgress) Finish() {
	sp.Update(sp.total)
	fmt.Fprintln(sp.out, " done")
}

// renderBar paints a fixed-width bar filled proportionally to done/total.
func renderBar(width, done, total int) string {
	if total <= 0 {
		return strings.Repeat("░", width)
	}
	filled := width * done / total
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func percent(done, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(done) / float64(total) * 100
}
