// Package main is the shikibetsu CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/shikibetsu/internal/cli"
	"github.com/hyperjump/shikibetsu/internal/config"
	"github.com/hyperjump/shikibetsu/internal/embedding"
	"github.com/hyperjump/shikibetsu/internal/export"
	"github.com/hyperjump/shikibetsu/internal/gallery"
	"github.com/hyperjump/shikibetsu/internal/keyword"
	"github.com/hyperjump/shikibetsu/internal/labels"
	"github.com/hyperjump/shikibetsu/internal/models"
	"github.com/hyperjump/shikibetsu/internal/server"
	"github.com/hyperjump/shikibetsu/internal/verify"
	"github.com/hyperjump/shikibetsu/internal/watcher"
	"github.com/hyperjump/shikibetsu/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

var (
	errVerificationFailed = errors.New("verification failed")
	errArtifactRejected   = errors.New("artifact rejected")
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}
	var run func(args []string, out io.Writer) error
	switch os.Args[1] {
	case "generate":
		run = runGenerate
	case "verify":
		run = runVerify
	case "export":
		run = runExport
	case "neighbors":
		run = runNeighbors
	case "inspect":
		run = runInspect
	case "labels":
		run = runLabels
	case "reports":
		run = runReports
	case "serve", "server":
		run = runServe
	case "version", "--version", "-v":
		fmt.Printf("shikibetsu version %s\n", version)
		return
	case "help", "--help", "-h":
		printUsage(os.Stdout)
		return
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage(os.Stdout)
		os.Exit(1)
	}
	if err := run(os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

// commonFlags are accepted by every command.
type commonFlags struct {
	configPath string
	debug      bool
	output     string
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	f := &commonFlags{}
	fs.StringVar(&f.configPath, "config", config.DefaultPath, "config file path")
	fs.BoolVar(&f.debug, "debug", false, "enable debug logging")
	fs.StringVar(&f.output, "output", "text", "output format: text or json")
	return f
}

// setup loads the config (defaults when the file is missing), applies .env and environment
// overrides and builds the logger. One-shot commands log warnings only unless debugging.
func (f *commonFlags) setup(quiet bool) (*config.Config, *zap.Logger, cli.OutputFormat, error) {
	format, err := cli.ParseOutputFormat(f.output)
	if err != nil {
		return nil, nil, "", err
	}
	cfg, err := config.LoadOrDefault(f.configPath)
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to load config: %w", err)
	}
	config.ApplyEnv(cfg)
	debug := cfg.Debug || f.debug
	var logger *zap.Logger
	if quiet && !debug {
		logger, err = utils.NewQuietLogger()
	} else {
		logger, err = utils.NewLogger(debug)
	}
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", f.configPath), zap.Bool("debug", debug))
	return cfg, logger, format, nil
}

// reorderArgs moves flags that follow positional arguments to the front so flag.Parse sees them.
// Go's flag package stops at the first non-flag argument, so "neighbors Cat -k 3" would
// otherwise leave -k unparsed.
func reorderArgs(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runGenerate(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	common := addCommonFlags(fs)
	importPath := fs.String("labels", "", "import labels from this file (json, txt, md, csv, xlsx, ods, docx, pdf, odt, rtf) instead of the configured label list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, logger, format, err := common.setup(false)
	if err != nil {
		return err
	}
	defer logger.Sync()

	var list []string
	if *importPath != "" {
		res, err := labels.NewImporter().Import(*importPath)
		if err != nil {
			return err
		}
		if len(res.Duplicates) > 0 {
			logger.Warn("duplicate labels dropped", zap.Strings("labels", res.Duplicates))
		}
		list = res.Labels
	} else if list, err = gallery.LoadLabels(cfg.Gallery.LabelsPath); err != nil {
		return err
	}
	if len(list) == 0 {
		return errors.New("label list is empty")
	}

	comps, err := initializeComponents(cfg, logger, componentSet{runtime: true})
	if err != nil {
		return err
	}
	defer comps.Close()
	text, err := comps.LoadText()
	if err != nil {
		return err
	}
	defer text.Close()

	ctx, cancel := signalContext()
	defer cancel()
	gen := gallery.NewGenerator(text,
		gallery.WithLogger(logger),
		gallery.WithTemplate(promptTemplate(cfg)),
		gallery.WithBatchSize(cfg.Gallery.BatchSize),
	)
	start := time.Now()
	g, err := gen.GenerateAndSave(ctx, list, cfg.Gallery.LabelsPath, cfg.Gallery.GalleryPath)
	if err != nil {
		return err
	}
	logger.Info("generate finished", zap.Int("labels", g.Len()), zap.Duration("elapsed", time.Since(start)))
	return cli.WriteDiagnostics(out, gallery.Inspect(g), format)
}

func runVerify(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	common := addCommonFlags(fs)
	withCandidate := fs.Bool("candidate", true, "also verify the candidate model and compare it with the reference")
	save := fs.Bool("save", true, "store the report in the report database")
	target := fs.String("target", "", "label whose rank is tracked (default from config)")
	failOnCollapse := fs.Bool("fail-on-collapse", false, "exit non-zero when a backend collapses or a probe errors")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, logger, format, err := common.setup(true)
	if err != nil {
		return err
	}
	defer logger.Sync()
	if *target != "" {
		cfg.Verify.TargetLabel = *target
	}

	comps, err := initializeComponents(cfg, logger, componentSet{runtime: true, reports: *save})
	if err != nil {
		return err
	}
	defer comps.Close()
	if err := loadOptionalGallery(comps); err != nil {
		return err
	}

	backends, err := loadBackends(comps, *withCandidate)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	return verifyBackends(ctx, comps, backends, verifyOptions{failOnCollapse: *failOnCollapse}, out, format)
}

type verifyOptions struct {
	failOnCollapse bool
}

// verifyBackends runs the harness, stores the report when a report store is open and writes it.
// A failing verdict is part of the report; it only becomes an error with failOnCollapse.
func verifyBackends(ctx context.Context, comps *Components, backends []embedding.Backend, opts verifyOptions, out io.Writer, format cli.OutputFormat) error {
	h := verify.NewHarness(comps.Gallery, &comps.Config.Verify, verify.WithLogger(comps.Logger), verify.WithRanker(comps.Ranker()))
	report := h.Run(ctx, backends...)
	if comps.Reports != nil {
		if err := comps.Reports.SaveReport(ctx, report); err != nil {
			comps.Logger.Warn("failed to store report", zap.String("id", report.ID), zap.Error(err))
		}
	}
	if err := cli.WriteVerificationReport(out, report, format); err != nil {
		return err
	}
	if opts.failOnCollapse && !report.Passed() {
		return errVerificationFailed
	}
	return nil
}

// loadOptionalGallery loads the gallery but tolerates missing files: the harness then skips ranking.
func loadOptionalGallery(comps *Components) error {
	err := comps.LoadGallery()
	var missing *models.MissingFileError
	if errors.As(err, &missing) {
		comps.Logger.Warn("gallery not found, ranking checks skipped", zap.String("path", missing.Path))
		return nil
	}
	return err
}

// loadBackends opens the reference encoder and, when requested and present, the candidate.
func loadBackends(comps *Components, withCandidate bool) ([]embedding.Backend, error) {
	ref, err := comps.LoadImage(comps.Config.Models.Reference)
	if err != nil {
		return nil, err
	}
	backends := []embedding.Backend{ref}
	if !withCandidate {
		return backends, nil
	}
	cand, err := comps.LoadImage(comps.Config.Models.Candidate)
	var missing *models.MissingFileError
	switch {
	case errors.As(err, &missing):
		comps.Logger.Warn("candidate model not found, verifying reference only", zap.String("path", missing.Path))
	case err != nil:
		return nil, err
	default:
		backends = append(backends, cand)
	}
	return backends, nil
}

func runExport(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	common := addCommonFlags(fs)
	path := fs.String("path", "", "artifact path (default from config)")
	minSize := fs.Int64("min-size-mb", 0, "minimum size of a self-contained artifact in MiB (default from config)")
	save := fs.Bool("save", true, "store the acceptance report in the report database")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, logger, format, err := common.setup(true)
	if err != nil {
		return err
	}
	defer logger.Sync()
	if *path != "" {
		cfg.Export.OutputPath = *path
	}
	if *minSize > 0 {
		cfg.Export.MinSizeMB = *minSize
	}

	ctx, cancel := signalContext()
	defer cancel()
	chain := export.NewChain(export.DefaultStrategies(cfg.Export.OutputPath, cfg.Export.MinSizeMB*export.MiB), export.WithLogger(logger))
	art, attempts, err := chain.Run(ctx)
	if err != nil {
		_ = cli.WriteDecision(out, attempts, nil, format)
		return err
	}

	comps, err := initializeComponents(cfg, logger, componentSet{runtime: true, reports: *save})
	if err != nil {
		return err
	}
	defer comps.Close()
	if err := loadOptionalGallery(comps); err != nil {
		return err
	}
	ref, err := comps.LoadImage(cfg.Models.Reference)
	if err != nil {
		return err
	}
	load := func(a *export.Artifact) (embedding.Backend, error) {
		mc := cfg.Models.Candidate
		mc.Path = a.Path()
		return comps.LoadImage(mc)
	}
	h := verify.NewHarness(comps.Gallery, &cfg.Verify, verify.WithLogger(logger), verify.WithRanker(comps.Ranker()))
	decision, err := export.Accept(ctx, h, ref, art, load)
	if err != nil {
		return err
	}
	if *save {
		if err := comps.Reports.SaveReport(ctx, decision.Report); err != nil {
			logger.Warn("failed to store report", zap.String("id", decision.Report.ID), zap.Error(err))
		}
	}
	if err := cli.WriteDecision(out, attempts, decision, format); err != nil {
		return err
	}
	if !decision.Accepted {
		return errArtifactRejected
	}
	return nil
}

func runNeighbors(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("neighbors", flag.ContinueOnError)
	common := addCommonFlags(fs)
	k := fs.Int("k", 5, "number of neighbors")
	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}
	label := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if label == "" {
		return errors.New("usage: shikibetsu neighbors [flags] <label>")
	}
	cfg, logger, format, err := common.setup(true)
	if err != nil {
		return err
	}
	defer logger.Sync()

	comps, err := initializeComponents(cfg, logger, componentSet{gallery: true})
	if err != nil {
		return err
	}
	defer comps.Close()
	neighbors, err := comps.Ranker().Neighbors(comps.Gallery, label, *k)
	if err != nil {
		return err
	}
	return cli.WriteNeighbors(out, label, neighbors, format)
}

func runInspect(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, logger, format, err := common.setup(true)
	if err != nil {
		return err
	}
	defer logger.Sync()
	g, err := gallery.Load(cfg.Gallery.LabelsPath, cfg.Gallery.GalleryPath)
	if err != nil {
		return err
	}
	return cli.WriteDiagnostics(out, gallery.Inspect(g), format)
}

func runLabels(args []string, out io.Writer) error {
	if len(args) < 1 {
		return errors.New("usage: shikibetsu labels <import|search> [flags] <arg>")
	}
	switch args[0] {
	case "import":
		return runLabelsImport(args[1:], out)
	case "search":
		return runLabelsSearch(args[1:], out)
	default:
		return fmt.Errorf("unknown labels subcommand %q", args[0])
	}
}

func runLabelsImport(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("labels import", flag.ContinueOnError)
	common := addCommonFlags(fs)
	save := fs.Bool("save", false, "replace the configured label list with the imported labels")
	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: shikibetsu labels import [flags] <file>")
	}
	cfg, logger, format, err := common.setup(true)
	if err != nil {
		return err
	}
	defer logger.Sync()

	res, err := labels.NewImporter().Import(fs.Arg(0))
	if err != nil {
		return err
	}
	if *save {
		if err := gallery.SaveLabels(res.Labels, cfg.Gallery.LabelsPath); err != nil {
			return err
		}
		logger.Info("label list saved", zap.String("path", cfg.Gallery.LabelsPath), zap.Int("labels", len(res.Labels)))
	}
	return cli.WriteImportResult(out, res, format)
}

func runLabelsSearch(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("labels search", flag.ContinueOnError)
	common := addCommonFlags(fs)
	fuzzy := fs.Bool("fuzzy", false, "enable fuzzy matching for typo tolerance")
	limit := fs.Int("limit", 10, "number of results")
	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}
	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		return errors.New("usage: shikibetsu labels search [flags] <query>")
	}
	cfg, logger, format, err := common.setup(true)
	if err != nil {
		return err
	}
	defer logger.Sync()

	list, err := gallery.LoadLabels(cfg.Gallery.LabelsPath)
	if err != nil {
		return err
	}
	idx, err := keyword.NewLabelIndex(list, keyword.WithLogger(logger))
	if err != nil {
		return err
	}
	defer idx.Close()
	matches, err := idx.Search(context.Background(), query, *limit, &keyword.SearchOptions{Fuzzy: *fuzzy})
	if err != nil {
		return err
	}
	var suggestions []string
	if len(matches) == 0 {
		suggestions = idx.Suggest(query, 3)
	}
	return cli.WriteLabelMatches(out, query, matches, suggestions, format)
}

func runReports(args []string, out io.Writer) error {
	sub := "list"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		sub, args = args[0], args[1:]
	}
	fs := flag.NewFlagSet("reports "+sub, flag.ContinueOnError)
	common := addCommonFlags(fs)
	offset := fs.Int("offset", 0, "number of reports to skip")
	limit := fs.Int("limit", 20, "number of reports to list")
	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}
	cfg, logger, format, err := common.setup(true)
	if err != nil {
		return err
	}
	defer logger.Sync()

	comps, err := initializeComponents(cfg, logger, componentSet{reports: true})
	if err != nil {
		return err
	}
	defer comps.Close()
	ctx := context.Background()

	switch sub {
	case "list":
		summaries, err := comps.Reports.ListReports(ctx, *offset, *limit)
		if err != nil {
			return err
		}
		total, err := comps.Reports.CountReports(ctx)
		if err != nil {
			return err
		}
		return cli.WriteReportSummaries(out, summaries, total, format)
	case "show":
		if fs.NArg() != 1 {
			return errors.New("usage: shikibetsu reports show <id>")
		}
		report, err := comps.Reports.GetReport(ctx, fs.Arg(0))
		if err != nil {
			return err
		}
		return cli.WriteVerificationReport(out, report, format)
	case "delete":
		if fs.NArg() != 1 {
			return errors.New("usage: shikibetsu reports delete <id>")
		}
		if err := comps.Reports.DeleteReport(ctx, fs.Arg(0)); err != nil {
			return err
		}
		fmt.Fprintf(out, "deleted %s\n", fs.Arg(0))
		return nil
	default:
		return fmt.Errorf("unknown reports subcommand %q", sub)
	}
}

func runServe(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, logger, _, err := common.setup(false)
	if err != nil {
		return err
	}
	defer logger.Sync()

	comps, err := initializeComponents(cfg, logger, componentSet{reports: true})
	if err != nil {
		return err
	}
	defer comps.Close()
	if err := loadOptionalGallery(comps); err != nil {
		return err
	}
	if comps.Labels == nil {
		if comps.Labels, err = keyword.NewLabelIndex(nil, keyword.WithLogger(logger)); err != nil {
			return err
		}
	}

	opts := []server.ServerOption{server.WithLabelIndex(comps.Labels), server.WithReportStore(comps.Reports)}
	if image, err := loadServeImageBackend(comps); err != nil {
		logger.Warn("pixel classification disabled", zap.Error(err))
	} else {
		opts = append(opts, server.WithImageBackend(image))
	}
	srv := server.NewServer(comps.Gallery, cfg, logger, opts...)

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Watch.EnabledOrDefault() {
		watchOpts := []watcher.WatcherOption{watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMs) * time.Millisecond)}
		if cfg.Debug || common.debug {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		w := watcher.NewWatcher(
			[]string{cfg.Gallery.LabelsPath, cfg.Gallery.GalleryPath},
			func([]string) { reloadGallery(srv, cfg, logger) },
			watchOpts...,
		)
		if err := w.Start(watchCtx); err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		defer w.Stop()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	ctx, cancel := signalContext()
	defer cancel()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("Shutting down...")
	watchCancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Stop(shutdownCtx)
}

// loadServeImageBackend opens the runtime and the reference encoder for pixel classification.
func loadServeImageBackend(comps *Components) (embedding.Backend, error) {
	rt, err := embedding.NewRuntime(embedding.RuntimeOptions{SharedLibraryPath: comps.Config.Models.ORTLibrary}, comps.Logger)
	if err != nil {
		return nil, err
	}
	comps.Runtime = rt
	return comps.LoadImage(comps.Config.Models.Reference)
}

// reloadGallery swaps in the gallery from disk. A half-written or mismatched pair is logged and
// the current gallery kept; the next write triggers another attempt.
func reloadGallery(srv *server.Server, cfg *config.Config, logger *zap.Logger) {
	g, err := gallery.Load(cfg.Gallery.LabelsPath, cfg.Gallery.GalleryPath)
	if err != nil {
		logger.Warn("gallery reload failed, keeping current gallery", zap.Error(err))
		return
	}
	if err := srv.SetGallery(g); err != nil {
		logger.Warn("gallery swap failed", zap.Error(err))
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `shikibetsu - species classification gallery and model verification

Usage:
  shikibetsu generate [flags]             Embed the label list and write the gallery
  shikibetsu verify [flags]               Run the probe battery on the reference and candidate models
  shikibetsu export [flags]               Locate the compressed artifact and accept or reject it
  shikibetsu neighbors [flags] <label>    Show the gallery labels closest to a label
  shikibetsu inspect [flags]              Show gallery norm and similarity statistics
  shikibetsu labels import [flags] <file> Read a label list from json, txt, md, csv, xlsx, ods, docx, pdf, odt or rtf
  shikibetsu labels search [flags] <q>    Search the label list
  shikibetsu reports [list|show|delete]   Browse stored verification reports
  shikibetsu serve [flags]                Start the HTTP API
  shikibetsu version                      Show version
  shikibetsu help                         Show this help

Common Flags:
  --config string    Config file path (default: shikibetsu.yaml; defaults are used when missing)
  --debug            Enable debug logging
  --output string    Output format: text or json (default: text)

Generate Flags:
  --labels string    Import labels from a file instead of the configured label list

Verify Flags:
  --candidate        Also verify the candidate model (default: true)
  --save             Store the report (default: true)
  --target string    Label whose rank is tracked (default from config)
  --fail-on-collapse Exit 1 when a backend collapses or a probe errors (default: false)

Export Flags:
  --path string        Artifact path (default from config)
  --min-size-mb int    Minimum self-contained artifact size in MiB (default from config)
  --save               Store the acceptance report (default: true)

Neighbors Flags:
  --k int            Number of neighbors (default: 5)

Labels Flags:
  --save             (import) Replace the configured label list
  --fuzzy            (search) Typo-tolerant matching
  --limit int        (search) Number of results (default: 10)

Reports Flags:
  --offset int       Reports to skip (default: 0)
  --limit int        Reports to list (default: 20)

Environment:
  SHIKIBETSU_ORT_LIBRARY, SHIKIBETSU_DEBUG, SHIKIBETSU_SERVER_PORT, SHIKIBETSU_DATABASE_PATH
  (also read from a .env file in the working directory)

Examples:
  shikibetsu labels import --save species.xlsx
  shikibetsu generate
  shikibetsu verify --output json
  shikibetsu neighbors "Danaus plexippus" --k 10
  shikibetsu export --path assets/models/bioclip2_model_int8.onnx
  shikibetsu reports show 3f0c1d2e-...`)
}
