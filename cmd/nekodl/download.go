package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"nekodl/internal/downloader"
	"nekodl/pkg/auth"
	"nekodl/pkg/batch"
	"nekodl/pkg/config"
	errs "nekodl/pkg/errors"
	"nekodl/pkg/gateway"
	"nekodl/pkg/logger"
	"nekodl/pkg/provider"
	"nekodl/pkg/provider/all"
	"nekodl/pkg/ratelimit"
	"nekodl/pkg/storage"
	"nekodl/pkg/ui"
	"nekodl/pkg/viewer"
)

var (
	// Download flags
	category      string
	amount        string
	outputPath    string
	providerName  string
	retryIfExists bool
	maxRetries    string
	extrasPath    string
	nsfw          bool
	view          bool
)

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&category, "category", "c", "", "category to download, or `check` to list categories")
	f.StringVarP(&amount, "amount", "a", "1", "number of images to download, or `all`")
	f.StringVarP(&outputPath, "path", "p", "./images", "directory to download into")
	f.StringVar(&providerName, "provider", all.DefaultProvider, "provider to use ("+strings.Join(registry.Names(), ", ")+")")
	f.BoolVar(&retryIfExists, "retry-if-exists", false, "fetch another image when one already exists instead of skipping it")
	f.StringVar(&maxRetries, "max-retries", "none", "consecutive retries allowed with --retry-if-exists, or `none` for no limit")
	f.StringVar(&extrasPath, "extras", "", "provider extras file (.json or .toml)")
	f.BoolVar(&nsfw, "nsfw", false, "request NSFW images from providers that support it")
	f.BoolVar(&view, "view", false, "open the downloaded images when done")
}

// session owns the resources of one download run and releases each once
type session struct {
	gw       *gateway.Client
	provider provider.Provider

	closeOnce    sync.Once
	finalizeOnce sync.Once
}

func (s *session) finalize() {
	s.finalizeOnce.Do(func() {
		if s.provider == nil {
			return
		}
		if err := s.provider.Finalize(); err != nil {
			logger.WithError(err).WithField("provider", s.provider.Name()).Warn("failed to finalize provider")
		}
	})
}

func (s *session) close() {
	s.finalize()
	s.closeOnce.Do(func() {
		if s.gw != nil {
			_ = s.gw.Close()
		}
	})
}

func runDownload(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	retries, err := batch.ParseMaxRetries(maxRetries)
	if err != nil {
		return err
	}

	extras, err := config.LoadExtras(extrasPath, providerName)
	if err != nil {
		return err
	}
	extras["nsfw"] = nsfw

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := &session{gw: gateway.NewClient(cfg.Gateway, logger.GetLogger())}
	defer s.close()

	s.provider, err = registry.New(providerName, providerDeps(cfg, s.gw), extras)
	if err != nil {
		return err
	}
	logger.WithFields(map[string]interface{}{
		"provider": providerName,
		"extras":   extras.Describe(),
	}).Info("using provider")

	categories, err := s.provider.FetchCategories(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch categories: %w", err)
	}

	if category == "" && len(categories) > 0 {
		category, err = ui.PromptCategory(os.Stdin, ui.Output())
		if err != nil {
			return err
		}
		if ui.IsQuit(category) {
			return nil
		}
	}

	if category == ui.CheckCategories {
		fmt.Fprintln(ui.Output())
		ui.PrintCategories(ui.Output(), categories)
		return nil
	}

	if len(categories) > 0 {
		if _, ok := categories[category]; !ok {
			return errs.Config("invalid category %q", category)
		}
	}

	targeted, _ := s.provider.(provider.Targeted)
	n, err := batch.ResolveAmount(amount, categories, category, targeted)
	if err != nil {
		return err
	}

	store, err := storage.NewManager(cfg.Output.Path)
	if err != nil {
		return err
	}

	d := downloader.New(s.gw, s.provider, store, cfg.Download.ChunkSize, logger.GetLogger())
	opts := batch.Options{
		Category:      category,
		Amount:        n,
		RetryIfExists: retryIfExists,
		MaxRetries:    retries,
		BatchSize:     cfg.Download.BatchSize,
		RetryDepth:    cfg.Download.RetryDepth,
	}
	progress := ui.NewProgress(os.Stderr, !debug)
	progress.Attach(&opts)

	logger.LogComponentStart("batch", map[string]interface{}{
		"category": category,
		"amount":   n,
		"path":     store.GetOutputDir(),
	})
	summary, err := batch.NewRunner(s.provider, d, store, opts, logger.GetLogger()).Run(ctx)
	progress.Finish()
	s.finalize()
	if err != nil {
		logger.LogComponentStop("batch", err.Error())
		switch {
		case errors.Is(err, batch.ErrRetryBudgetExceeded):
			logger.WithError(err).Error("aborting run")
		case errors.Is(err, batch.ErrFetchFailed):
			ui.PrintSummary(ui.Output(), summary)
		}
		return err
	}
	logger.LogComponentStop("batch", "completed")

	ui.PrintSummary(ui.Output(), summary)

	if view {
		return openViewer(ctx, cfg, store.GetOutputDir())
	}
	return nil
}

// providerDeps builds the collaborators shared by every provider
func providerDeps(cfg *config.Config, gw *gateway.Client) provider.Deps {
	deps := provider.Deps{
		Gateway: gw,
		Logger:  logger.GetLogger(),
		Limiter: ratelimit.Unlimited{},
	}
	if cfg.RateLimit.FetchInterval > 0 {
		deps.Limiter = ratelimit.NewTokenBucket(1, cfg.RateLimit.FetchInterval)
	}

	manager, err := auth.NewManager()
	if err != nil {
		logger.WithError(err).Debug("credential store unavailable")
	} else {
		deps.Credentials = manager
	}
	return deps
}

func openViewer(ctx context.Context, cfg *config.Config, dir string) error {
	l, err := viewer.New(cfg.Viewer.Command)
	if err != nil {
		return err
	}
	return viewer.View(ctx, l, dir)
}
