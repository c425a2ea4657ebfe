package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/kernel/lecturecap/internal/bridge"
	"github.com/kernel/lecturecap/internal/config"
	"github.com/kernel/lecturecap/internal/detect"
	"github.com/kernel/lecturecap/internal/page"
	"github.com/kernel/lecturecap/internal/remote"
	"github.com/kernel/lecturecap/internal/transcripts"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// PageOptions controls how a page is loaded and scanned.
type PageOptions struct {
	BaseURL       string
	MaxDepth      int
	KernelBrowser string
	NoHeuristics  bool
}

func addPageFlags(fs *pflag.FlagSet) {
	fs.String("base-url", "", "Original URL of a saved HTML file, used to resolve relative links")
	fs.Int("max-depth", -1, "Maximum nested iframe depth (default from config)")
	fs.String("kernel-browser", "", "Render the page in this Kernel browser session instead of fetching it")
	fs.Bool("no-heuristics", false, "Disable DOM scraping when resolving Echo360 context")
}

func pageOptionsFromFlags(fs *pflag.FlagSet, cfg *config.Config) PageOptions {
	opts := PageOptions{
		MaxDepth:      cfg.MaxIframeDepth,
		KernelBrowser: cfg.KernelBrowserID,
		NoHeuristics:  cfg.DisableHeuristics,
	}
	opts.BaseURL, _ = fs.GetString("base-url")
	if depth, _ := fs.GetInt("max-depth"); depth >= 0 {
		opts.MaxDepth = depth
	}
	if fs.Changed("kernel-browser") {
		opts.KernelBrowser, _ = fs.GetString("kernel-browser")
	}
	if noHeuristics, _ := fs.GetBool("no-heuristics"); noHeuristics {
		opts.NoHeuristics = true
	}
	return opts
}

// newLoader picks a loader for target: a Kernel browser when one is
// configured, HTTP for URLs, and the filesystem otherwise.
func newLoader(target string, opts PageOptions, cfg *config.Config) (page.Loader, error) {
	switch {
	case opts.KernelBrowser != "":
		if cfg.KernelAPIKey == "" {
			return nil, fmt.Errorf("%s is required to render pages in a Kernel browser", config.EnvKernelAPIKey)
		}
		return &page.KernelLoader{
			Playwright: remote.NewPlaywrightService(cfg.KernelAPIKey),
			BrowserID:  opts.KernelBrowser,
			MaxDepth:   opts.MaxDepth,
			Timeout:    cfg.RequestTimeout,
		}, nil
	case isURL(target):
		return page.NewHTTPLoader(opts.MaxDepth), nil
	default:
		return &page.FileLoader{BaseURL: opts.BaseURL, MaxDepth: opts.MaxDepth}, nil
	}
}

func newDetector(opts PageOptions) *detect.Detector {
	detectorOpts := []detect.Option{detect.WithMaxIframeDepth(opts.MaxDepth)}
	if opts.NoHeuristics {
		detectorOpts = append(detectorOpts, detect.WithoutHeuristics())
	}
	return detect.NewDetector(detectorOpts...)
}

// newPort returns the background port: the extension inside a Kernel browser
// when an extension id is configured, else the HTTP service. It returns nil
// when neither is configured.
func newPort(ctx context.Context, opts PageOptions, cfg *config.Config) bridge.Port {
	switch {
	case cfg.ExtensionID != "" && opts.KernelBrowser != "" && cfg.KernelAPIKey != "":
		return &bridge.KernelPort{
			Playwright:  remote.NewPlaywrightService(cfg.KernelAPIKey),
			BrowserID:   opts.KernelBrowser,
			ExtensionID: cfg.ExtensionID,
			Timeout:     cfg.RequestTimeout,
		}
	case cfg.BackgroundURL != "":
		return bridge.NewHTTPPort(ctx, cfg.BackgroundURL, cfg.Token)
	}
	return nil
}

func newSession(ctx context.Context, opts PageOptions, cfg *config.Config) *transcripts.Session {
	return transcripts.NewSession(
		newPort(ctx, opts, cfg),
		transcripts.WithDetector(newDetector(opts)),
		transcripts.WithRequestTimeout(cfg.RequestTimeout),
	)
}

// pageDeps builds the loader and session for a command invocation.
func pageDeps(cmd *cobra.Command, target string) (page.Loader, *transcripts.Session, PageOptions, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, PageOptions{}, err
	}
	opts := pageOptionsFromFlags(cmd.Flags(), cfg)
	loader, err := newLoader(target, opts, cfg)
	if err != nil {
		return nil, nil, PageOptions{}, err
	}
	return loader, newSession(cmd.Context(), opts, cfg), opts, nil
}

func isURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
