package batch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	"nekodl/internal/downloader"
	errs "nekodl/pkg/errors"
	"nekodl/pkg/logger"
	"nekodl/pkg/provider"
	"nekodl/pkg/retry"
)

// ErrRetryBudgetExceeded aborts a run in retry-if-exists mode once too many
// consecutive fetches produced files that already exist
var ErrRetryBudgetExceeded = errors.New("reached maximum amount of consecutive retries")

// ErrFetchFailed stops collection once the provider failed
// MaxFetchFailures times in a row. URLs collected so far are still
// downloaded.
var ErrFetchFailed = errors.New("provider keeps failing")

// MaxFetchFailures is the number of consecutive failed provider fetches
// tolerated while collecting
const MaxFetchFailures = 3

// Defaults for Options
const (
	DefaultBatchSize  = 50
	DefaultRetryDepth = 5
)

// Downloader is the part of downloader.Downloader the runner needs
type Downloader interface {
	Resolve(ctx context.Context, url string) (downloader.Target, error)
	Download(ctx context.Context, url string) (bool, error)
}

// Store reports and cleans up the output directory
type Store interface {
	PurgeTemp() (int, error)
	Exists(name string) bool
}

// Options configure a run
type Options struct {
	Category string
	Amount   int
	// RetryIfExists fetches a different URL instead of skipping one whose
	// file exists, spending one unit of MaxRetries each time
	RetryIfExists bool
	// MaxRetries bounds consecutive retries; negative means unbounded
	MaxRetries int
	BatchSize  int
	RetryDepth int
	// OnResult is called after each download settles
	OnResult func(url string, ok bool)
	// OnPlanned is called once with the number of downloads to perform
	OnPlanned func(n int)
}

// Runner executes one download run
type Runner struct {
	provider   provider.Provider
	downloader Downloader
	store      Store
	opts       Options
	state      State
	logger     logger.Logger
}

// NewRunner creates a runner
func NewRunner(p provider.Provider, d Downloader, store Store, opts Options, log logger.Logger) *Runner {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.RetryDepth < 0 {
		opts.RetryDepth = 0
	}
	return &Runner{
		provider:   p,
		downloader: d,
		store:      store,
		opts:       opts,
		logger:     log.WithFields(map[string]interface{}{"component": "batch", "provider": p.Name()}),
	}
}

// Run collects and downloads images. The summary is valid even when an
// error is returned.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	if removed, err := r.store.PurgeTemp(); err != nil {
		r.logger.WithError(err).Warn("failed to purge temporary files")
	} else if removed > 0 {
		r.logger.DebugWithFields("purged temporary files", map[string]interface{}{"count": removed})
	}

	var plan []downloader.Target
	var err error
	if _, ok := r.provider.(provider.Targeted); ok {
		plan, err = r.collectTargeted(ctx)
	} else {
		plan, err = r.collect(ctx)
	}
	if err != nil && !errors.Is(err, ErrFetchFailed) {
		return r.state.Summary(), err
	}
	collectErr := err

	r.state.attempted(len(plan))
	if r.opts.OnPlanned != nil {
		r.opts.OnPlanned(len(plan))
	}

	if err := r.download(ctx, plan); err != nil {
		return r.state.Summary(), err
	}
	return r.state.Summary(), collectErr
}

// planner deduplicates URLs and destination paths
type planner struct {
	urls  map[string]bool
	paths map[string]bool
	plan  []downloader.Target
}

func newPlanner() *planner {
	return &planner{urls: map[string]bool{}, paths: map[string]bool{}}
}

// taken reports whether the target is already planned or on disk
func (p *planner) taken(t downloader.Target, store Store) bool {
	return p.urls[t.URL] || p.paths[t.Path] || store.Exists(filepath.Base(t.Path))
}

func (p *planner) add(t downloader.Target) {
	p.urls[t.URL] = true
	p.paths[t.Path] = true
	p.plan = append(p.plan, t)
}

// collectTargeted fetches every target in one bulk pass
func (r *Runner) collectTargeted(ctx context.Context) ([]downloader.Target, error) {
	urls, err := r.provider.FetchMany(ctx, r.opts.Category)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: fetching targets: %w", ErrFetchFailed, err)
	}

	p := newPlanner()
	for _, url := range urls {
		if url == "" {
			continue
		}
		target, err := r.downloader.Resolve(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.logger.WithError(err).WarnWithFields("invalid url, ignoring", map[string]interface{}{"url": url})
			r.state.failed()
			continue
		}
		if p.taken(target, r.store) {
			r.logger.InfoWithFields("already exists, ignoring", map[string]interface{}{"file": filepath.Base(target.Path)})
			r.state.skipped()
			continue
		}
		p.add(target)
	}
	return p.plan, nil
}

// fetch asks the provider for the next URLs. Bulk fetches are used while
// at least provider.ManyCount URLs remain.
func (r *Runner) fetch(ctx context.Context, remaining int) ([]string, error) {
	if remaining >= provider.ManyCount {
		return r.provider.FetchMany(ctx, r.opts.Category)
	}
	one, err := r.provider.FetchImage(ctx, r.opts.Category)
	if err != nil {
		return nil, err
	}
	return []string{one}, nil
}

// collect samples the provider until Amount URLs were consumed. A failed
// fetch consumes one URL and is counted as failed.
func (r *Runner) collect(ctx context.Context) ([]downloader.Target, error) {
	p := newPlanner()
	fetched, retries, failures := 0, 0, 0

	for fetched < r.opts.Amount {
		urls, err := r.fetch(ctx, r.opts.Amount-fetched)
		if err != nil {
			if ctx.Err() != nil {
				return p.plan, ctx.Err()
			}
			failures++
			fetched++
			r.state.failed()
			r.logger.WithError(err).WarnWithFields("fetch failed", map[string]interface{}{"consecutive": failures})
			if failures >= MaxFetchFailures {
				return p.plan, fmt.Errorf("%w: %w", ErrFetchFailed, err)
			}
			continue
		}
		failures = 0
		if len(urls) == 0 {
			r.logger.Debug("provider returned no more images")
			break
		}

		for _, url := range urls {
			if fetched >= r.opts.Amount {
				break
			}
			if url == "" {
				fetched++
				continue
			}

			target, err := r.downloader.Resolve(ctx, url)
			if err != nil {
				if ctx.Err() != nil {
					return p.plan, ctx.Err()
				}
				r.logger.WithError(err).WarnWithFields("invalid url, ignoring", map[string]interface{}{"url": url})
				r.state.failed()
				fetched++
				continue
			}

			if p.taken(target, r.store) {
				r.logger.InfoWithFields("already exists, ignoring", map[string]interface{}{"file": filepath.Base(target.Path)})
				r.state.skipped()

				if !r.opts.RetryIfExists {
					fetched++
					continue
				}
				if r.opts.MaxRetries < 0 || retries < r.opts.MaxRetries {
					retries++
					continue
				}
				r.logger.Error("reached maximum amount of consecutive retries")
				return p.plan, ErrRetryBudgetExceeded
			}

			p.add(target)
			fetched++
			retries = 0
		}
	}
	return p.plan, nil
}

// download runs the plan in groups of BatchSize, waiting for each group
// before starting the next
func (r *Runner) download(ctx context.Context, plan []downloader.Target) error {
	for start := 0; start < len(plan); start += r.opts.BatchSize {
		end := min(start+r.opts.BatchSize, len(plan))

		g, gctx := errgroup.WithContext(ctx)
		for _, target := range plan[start:end] {
			target := target
			g.Go(func() error {
				r.downloadOne(gctx, target)
				return nil
			})
		}
		_ = g.Wait()

		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

// downloadOne retries a single URL up to RetryDepth times. Failures are
// counted, never returned.
func (r *Runner) downloadOne(ctx context.Context, target downloader.Target) {
	errNotDownloaded := errors.New("download reported failure")

	cfg := &retry.Config{
		MaxAttempts: r.opts.RetryDepth + 1,
		Backoff:     &retry.ConstantBackoff{},
		RetryIf: func(err error) bool {
			if !retry.Always(err) {
				return false
			}
			// a wrong file type will not change on retry
			return !errs.IsType(err, errs.ErrorTypeUnsupported)
		},
	}
	err := retry.Do(ctx, func() error {
		ok, err := r.downloader.Download(ctx, target.URL)
		if err != nil {
			return err
		}
		if !ok {
			return errNotDownloaded
		}
		return nil
	}, cfg)

	if err != nil {
		r.logger.WithError(err).DebugWithFields("failed to download", map[string]interface{}{"url": target.URL})
		r.state.failed()
	} else {
		r.state.succeeded(target.Path)
	}
	if r.opts.OnResult != nil {
		r.opts.OnResult(target.URL, err == nil)
	}
}
