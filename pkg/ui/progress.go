package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"nekodl/pkg/batch"
)

// Progress renders a single-line bar over a batch run. It is created
// before the total is known and started from batch.Options.OnPlanned.
type Progress struct {
	mu      sync.Mutex
	w       io.Writer
	visible bool
	bar     *progressbar.ProgressBar
	total   int
	ok      int
	failed  int
}

// NewProgress creates a progress display writing to w. An invisible
// progress still counts results.
func NewProgress(w io.Writer, visible bool) *Progress {
	return &Progress{w: w, visible: visible}
}

// Start sizes the bar to the number of planned downloads
func (p *Progress) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionSetVisibility(p.visible && total > 0),
		progressbar.OptionSetDescription("downloading"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(p.w) }),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// Result records one settled download
func (p *Progress) Result(url string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ok {
		p.ok++
	} else {
		p.failed++
	}
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

// Finish completes the bar
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil && p.total > 0 && !p.bar.IsFinished() {
		_ = p.bar.Finish()
	}
}

// Counts returns successful and failed results seen so far
func (p *Progress) Counts() (ok, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ok, p.failed
}

// Attach wires the progress into batch options
func (p *Progress) Attach(opts *batch.Options) {
	opts.OnPlanned = p.Start
	opts.OnResult = p.Result
}

// PrintSummary writes the final tally of a run
func PrintSummary(w io.Writer, s batch.Summary) {
	line := fmt.Sprintf("- Successfully downloaded %d/%d images.", s.Successful, s.Attempted)
	fmt.Fprintln(w)
	fmt.Fprintln(w, SummaryStyle(s.Successful, s.Attempted).Render(line))
	if s.Skipped > 0 || s.Failed > 0 {
		fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("  %d skipped, %d failed", s.Skipped, s.Failed)))
	}
	fmt.Fprintln(w)
}
