package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rohankatakam/changerisk/internal/cache"
	"github.com/rohankatakam/changerisk/internal/config"
	"github.com/rohankatakam/changerisk/internal/content"
	apperrors "github.com/rohankatakam/changerisk/internal/errors"
	"github.com/rohankatakam/changerisk/internal/git"
	"github.com/rohankatakam/changerisk/internal/github"
	"github.com/rohankatakam/changerisk/internal/history"
	"github.com/rohankatakam/changerisk/internal/metrics"
	"github.com/rohankatakam/changerisk/internal/output"
	"github.com/rohankatakam/changerisk/internal/pipeline"
	"github.com/rohankatakam/changerisk/internal/storage"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var analyzeFlags struct {
	source      string
	path        string
	repo        string
	since       string
	until       string
	days        int
	format      string
	outDir      string
	compress    bool
	force       bool
	noContent   bool
	fromStore   string
	metricsAddr string
	topN        int
	quiet       bool
	explain     bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze commit history for bus factor and hotspot risk",
	Long: `Analyze loads the commit history of a local git repository or a GitHub
repository over a date window, measures the content of changed files, and
writes file-risk and developer-risk tables.

Unchanged history is served from the analysis cache; use --force to
recompute.

Examples:
  changerisk analyze
  changerisk analyze --path ../service --since 2024-01-01
  changerisk analyze --source github --repo acme/api --format json --compress
  changerisk analyze --from-store latest --no-content`,
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeFlags.source, "source", "", "history source: git or github")
	f.StringVar(&analyzeFlags.path, "path", "", "local repository path (git source)")
	f.StringVar(&analyzeFlags.repo, "repo", "", "GitHub repository as owner/name")
	f.StringVar(&analyzeFlags.since, "since", "", "window start (YYYY-MM-DD or RFC3339)")
	f.StringVar(&analyzeFlags.until, "until", "", "window end (YYYY-MM-DD or RFC3339, default now)")
	f.IntVar(&analyzeFlags.days, "days", 0, "window length in days when --since is not set")
	f.StringVar(&analyzeFlags.format, "format", "", "table format: csv, json or yaml")
	f.StringVarP(&analyzeFlags.outDir, "output", "o", "", "output directory")
	f.BoolVar(&analyzeFlags.compress, "compress", false, "zstd-compress output tables")
	f.BoolVar(&analyzeFlags.force, "force", false, "ignore the analysis cache")
	f.BoolVar(&analyzeFlags.noContent, "no-content", false, "skip content analysis (estimates only)")
	f.StringVar(&analyzeFlags.fromStore, "from-store", "", "re-analyze a stored snapshot id, or \"latest\"")
	f.StringVar(&analyzeFlags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	f.IntVar(&analyzeFlags.topN, "top", 0, "rows in the console summary")
	f.BoolVarP(&analyzeFlags.quiet, "quiet", "q", false, "one-line summary")
	f.BoolVar(&analyzeFlags.explain, "explain", false, "detailed summary with language and pass counters")
}

// applyAnalyzeFlags returns cfg with explicitly set flags applied
func applyAnalyzeFlags(cmd *cobra.Command, c config.Config) (config.Config, error) {
	flags := cmd.Flags()
	if flags.Changed("source") {
		c.Source.Type = analyzeFlags.source
	}
	if flags.Changed("path") {
		c.Source.Path = analyzeFlags.path
	}
	if flags.Changed("repo") {
		owner, name, ok := strings.Cut(analyzeFlags.repo, "/")
		if !ok {
			return c, apperrors.ValidationErrorf("--repo must be owner/name, got %q", analyzeFlags.repo)
		}
		c.Source.Owner, c.Source.Repo = owner, name
		if !flags.Changed("source") {
			c.Source.Type = config.SourceGitHub
		}
	}
	if flags.Changed("since") {
		c.Window.From = analyzeFlags.since
	}
	if flags.Changed("until") {
		c.Window.To = analyzeFlags.until
	}
	if flags.Changed("days") {
		c.Window.Days = analyzeFlags.days
	}
	if flags.Changed("format") {
		c.Output.Format = analyzeFlags.format
	}
	if flags.Changed("output") {
		c.Output.Directory = analyzeFlags.outDir
	}
	if flags.Changed("compress") {
		c.Output.Compress = analyzeFlags.compress
	}
	if flags.Changed("top") {
		c.Output.TopN = analyzeFlags.topN
	}
	if analyzeFlags.fromStore != "" {
		c.Storage.Enabled = true
	}
	return c, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	runCfg, err := applyAnalyzeFlags(cmd, cfg)
	if err != nil {
		return err
	}

	mode := config.DetectMode()
	validation := runCfg.ValidateWithMode(mode)
	for _, w := range validation.Warnings {
		logger.Warn(w)
	}
	if err := validation.Err(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	now := time.Now()
	window, err := runCfg.ResolveWindow(now)
	if err != nil {
		return err
	}

	var store storage.Store
	if runCfg.Storage.Enabled {
		store, err = storage.Open(ctx, runCfg.Storage.Driver, runCfg.Storage.DSN, logger)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer store.Close()
	}

	hist, src, err := openSources(ctx, runCfg, store)
	if err != nil {
		return err
	}
	if analyzeFlags.noContent {
		src = nil
	}

	var analysisCache *cache.Cache
	if runCfg.Cache.Enabled {
		index, err := cache.OpenIndex(runCfg.Cache.Directory, runCfg.Cache.Backend)
		if err != nil {
			logger.WithError(err).Warn("Analysis cache unavailable, continuing without it")
		} else {
			locator := cache.NewMultiLocator()
			if store != nil {
				locator.Register(storage.RunScheme, store)
			}
			analysisCache = cache.New(index, locator, logger)
			defer analysisCache.Close()
		}
	}

	format, err := output.ParseFormat(runCfg.Output.Format)
	if err != nil {
		return err
	}
	writer, err := output.NewWriter(runCfg.Output.Directory, format, runCfg.Output.Compress)
	if err != nil {
		return err
	}

	var reg *metrics.Registry
	if analyzeFlags.metricsAddr != "" {
		promReg := prometheus.NewRegistry()
		reg = metrics.NewRegistry(promReg)
		server := metrics.NewServer(analyzeFlags.metricsAddr, promReg, logger)
		go func() {
			if err := server.Start(); err != nil {
				logger.WithError(err).Error("Metrics server stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Shutdown(shutdownCtx)
		}()
	}

	bar := newContentProgress()
	runner, err := pipeline.NewRunner(pipeline.Dependencies{
		History:  hist,
		Content:  src,
		Analyzer: content.NewAnalyzer(runCfg.ContentOptions()),
		Cache:    analysisCache,
		Writer:   writer,
		Store:    store,
		Metrics:  reg,
		Logger:   logger,
		Progress: bar.update,
	})
	if err != nil {
		return err
	}

	result, err := runner.Run(ctx, pipeline.Options{
		Window: window,
		Budgets: pipeline.Budgets{
			PerFile: runCfg.Budgets.PerFile,
			Total:   runCfg.Budgets.Total,
		},
		Risk:  runCfg.RiskOptions(now),
		Force: analyzeFlags.force,
	})
	bar.finish()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := summaryFormatter(runCfg.Output.TopN).Format(result.Report, out); err != nil {
		return err
	}
	printOutputs(result)
	return nil
}

// openSources builds the history and content sources for c
func openSources(ctx context.Context, c config.Config, store storage.Store) (pipeline.HistorySource, pipeline.ContentSource, error) {
	switch c.Source.Type {
	case config.SourceGitHub:
		token, tokenSource, err := config.NewCredentialManager().GitHubToken(c)
		if err != nil {
			return nil, nil, err
		}
		logger.WithField("token_source", tokenSource).Debug("Resolved GitHub credentials")

		client, err := github.NewClient(c.Source.Owner, c.Source.Repo, github.Options{
			Token:             token,
			RequestsPerSecond: c.Source.RequestsPerSecond,
			MaxWorkers:        c.Source.MaxWorkers,
			CountPullRequests: c.Source.CountPullRequests,
			BaseURL:           c.Source.BaseURL,
		})
		if err != nil {
			return nil, nil, apperrors.SourceErrorf(err, "connect to %s/%s", c.Source.Owner, c.Source.Repo)
		}
		if analyzeFlags.fromStore != "" {
			return storedSource(store, client.Source()), client, nil
		}
		return client, client, nil

	default:
		repo, err := git.Open(ctx, c.Source.Path)
		if err != nil {
			return nil, nil, apperrors.SourceErrorf(err, "open repository %s", c.Source.Path)
		}
		if analyzeFlags.fromStore != "" {
			return storedSource(store, repo.Source(ctx)), repo, nil
		}
		return repo, repo, nil
	}
}

func storedSource(store storage.Store, source history.SourceID) *pipeline.StoredSource {
	id := analyzeFlags.fromStore
	if id == "latest" {
		id = ""
	}
	return pipeline.NewStoredSource(store, source, id)
}

func summaryFormatter(topN int) output.Formatter {
	if topN <= 0 {
		topN = output.DefaultTopN
	}
	level := output.GetDefaultVerbosity()
	switch {
	case analyzeFlags.quiet:
		level = output.VerbosityQuiet
	case analyzeFlags.explain:
		level = output.VerbosityExplain
	}

	switch level {
	case output.VerbosityQuiet:
		return &output.QuietFormatter{}
	case output.VerbosityExplain:
		return &output.ExplainFormatter{TopN: topN}
	default:
		return &output.StandardFormatter{TopN: topN}
	}
}

func printOutputs(result *pipeline.Result) {
	fields := logrus.Fields{
		"hash":     result.SnapshotHash,
		"cached":   result.Cached,
		"duration": result.Duration.Round(time.Millisecond).String(),
	}
	if result.SnapshotID != "" {
		fields["snapshot"] = result.SnapshotID
	}
	logger.WithFields(fields).Info("Run finished")

	for _, table := range []string{output.TableFileHotspots, output.TableBusFactor, output.TableLanguages} {
		if ref, ok := result.Outputs[table]; ok {
			fmt.Fprintf(os.Stderr, "  %-20s %s\n", table, ref)
		}
	}
	for _, w := range result.Warnings {
		logger.Warn(w)
	}
}

// contentProgress draws a progress bar once content analysis starts
type contentProgress struct {
	bar *progressbar.ProgressBar
}

func newContentProgress() *contentProgress {
	return &contentProgress{}
}

func (p *contentProgress) update(done, total int, path string) {
	if p.bar == nil {
		if total == 0 || analyzeFlags.quiet {
			return
		}
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(20),
			progressbar.OptionSetDescription("[cyan]Analyzing content[reset]"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]#[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: "-",
				BarStart:      "[",
				BarEnd:        "]",
			}))
	}
	p.bar.Set(done)
}

func (p *contentProgress) finish() {
	if p.bar != nil {
		p.bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
}
