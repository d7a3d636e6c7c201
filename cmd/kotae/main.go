// Package main is the kotae CLI entry point.
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

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/internal/watcher"
	"github.com/hyperjump/kotae/pkg/utils"
)

var version = "dev"

// errUsage marks a command invoked with bad arguments; run exits 2 for it.
var errUsage = errors.New("usage error")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command in args and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}
	var err error
	switch args[0] {
	case "index":
		err = runIndex(args[1:], stdout, stderr)
	case "query":
		err = runQuery(args[1:], stdout, stderr)
	case "server":
		err = runServer(args[1:], stdout, stderr)
	case "status":
		err = runStatus(args[1:], stdout, stderr)
	case "search":
		err = runSearch(args[1:], stdout, stderr)
	case "compare":
		err = runCompare(args[1:], stdout, stderr)
	case "chat":
		err = runChat(args[1:], stdout, stderr)
	case "watch":
		err = runWatch(args[1:], stdout, stderr)
	case "version", "--version", "-v":
		fmt.Fprintf(stdout, "kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage(stdout)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return 1
	}
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		return 2
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
}

// commonFlags are shared by every subcommand.
type commonFlags struct {
	configPath string
	debug      bool
}

func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *commonFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	c := &commonFlags{}
	fs.StringVar(&c.configPath, "config", config.DefaultPath, "config file path")
	fs.BoolVar(&c.debug, "debug", false, "enable debug logging")
	return fs, c
}

// loadConfig loads the config at path. A missing file is only tolerated for the
// default path, in which case built-in defaults apply.
func loadConfig(path string) (*config.Config, error) {
	if path == config.DefaultPath {
		return config.LoadOrDefault(path)
	}
	return config.Load(path)
}

// setup loads config, builds the logger and initializes components.
func setup(ctx context.Context, c *commonFlags) (*Components, error) {
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	debugMode := cfg.Debug || c.debug
	logger, err := utils.NewLoggerWithFile(debugMode, utils.LogFileOptions{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded",
		zap.String("config_path", c.configPath),
		zap.String("data_dir", cfg.Data.Directory),
		zap.String("index_dir", cfg.Index.Directory),
		zap.Bool("debug", debugMode))

	comps, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return comps, nil
}

func (c *Components) finish() {
	c.Close()
	_ = c.Logger.Sync()
}

// joinArgs joins all positional args with spaces so multi-word input works
// the same with or without shell quoting.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves any flags (and their values) that appear after the positional
// arguments to the front so that flag.Parse sees them. The flag package stops at
// the first non-flag argument.
func argsReorder(args []string) []string {
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

func runIndex(args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("index", stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	ctx := context.Background()
	comps, err := setup(ctx, common)
	if err != nil {
		return err
	}
	defer comps.finish()

	stats, err := comps.Rebuild(ctx)
	if err != nil {
		return fmt.Errorf("index failed: %w", err)
	}
	cli.WriteBuildSummary(stdout, stats)
	return nil
}

func runQuery(args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("query", stderr)
	output := fs.String("output", string(cli.OutputText), "output format: text or json")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: kotae query [flags] <query_text>\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(argsReorder(args)); err != nil {
		return err
	}
	query := joinArgs(fs.Args())
	if query == "" {
		fs.Usage()
		return errUsage
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return err
	}

	ctx := context.Background()
	comps, err := setup(ctx, common)
	if err != nil {
		return err
	}
	defer comps.finish()

	answer, err := comps.Pipeline.Ask(ctx, query)
	if err != nil {
		return err
	}
	return cli.WriteAnswer(stdout, answer, format)
}

func runStatus(args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("status", stderr)
	output := fs.String("output", string(cli.OutputText), "output format: text or json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return err
	}
	ctx := context.Background()
	comps, err := setup(ctx, common)
	if err != nil {
		return err
	}
	defer comps.finish()

	stats, err := comps.Store.Stats(ctx)
	if err != nil {
		return err
	}
	return cli.WriteStatus(stdout, comps.Store.Dir, stats, format)
}

func runSearch(args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("search", stderr)
	limit := fs.Int("limit", 10, "maximum number of chunks")
	fuzzy := fs.Bool("fuzzy", false, "tolerate typos")
	output := fs.String("output", string(cli.OutputText), "output format: text or json")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: kotae search [flags] <terms>\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(argsReorder(args)); err != nil {
		return err
	}
	terms := joinArgs(fs.Args())
	if terms == "" || *limit <= 0 {
		fs.Usage()
		return errUsage
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return err
	}
	ctx := context.Background()
	comps, err := setup(ctx, common)
	if err != nil {
		return err
	}
	defer comps.finish()

	hits, err := comps.Store.KeywordSearch(ctx, terms, *limit, *fuzzy)
	if err != nil {
		return err
	}
	return cli.WriteKeywordHits(stdout, terms, hits, format)
}

func runCompare(args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("compare", stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: kotae compare [flags] [<text> <text>]\n\nCompares \"apple\" and \"iphone\" when no texts are given.\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(argsReorder(args)); err != nil {
		return err
	}
	a, b := "apple", "iphone"
	switch fs.NArg() {
	case 0:
	case 2:
		a, b = fs.Arg(0), fs.Arg(1)
	default:
		fs.Usage()
		return errUsage
	}

	ctx := context.Background()
	comps, err := setup(ctx, common)
	if err != nil {
		return err
	}
	defer comps.finish()

	vecs, err := comps.Embedder.EmbedBatch(ctx, []string{a, b})
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	cli.WriteComparison(stdout, a, b, len(vecs[0]), vector.Cosine(vecs[0], vecs[1]))
	return nil
}

func runChat(args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("chat", stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: kotae chat [flags] <prompt>\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(argsReorder(args)); err != nil {
		return err
	}
	prompt := joinArgs(fs.Args())
	if prompt == "" {
		fs.Usage()
		return errUsage
	}
	ctx := context.Background()
	comps, err := setup(ctx, common)
	if err != nil {
		return err
	}
	defer comps.finish()

	reply, err := comps.Generator.Generate(ctx, prompt)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, reply)
	return nil
}

func runServer(args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("server", stderr)
	watch := fs.Bool("watch", false, "rebuild the store when the data directory changes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	comps, err := setup(ctx, common)
	if err != nil {
		return err
	}
	defer comps.finish()
	logger := comps.Logger
	cfg := comps.Config

	srv := server.NewServer(comps.Pipeline, comps.Store, &cfg.Server, logger,
		server.WithRebuild(comps.Rebuild),
		server.WithMetrics(comps.Metrics))

	if *watch {
		w := newDataWatcher(cfg, logger, func(ctx context.Context) error {
			_, err := srv.Rebuild(ctx)
			return err
		})
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		defer w.Stop()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	fmt.Fprintf(stdout, "Serving on http://%s\n", cfg.Addr())

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}
	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func runWatch(args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("watch", stderr)
	initial := fs.Bool("initial", true, "build the store once before watching")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	comps, err := setup(ctx, common)
	if err != nil {
		return err
	}
	defer comps.finish()

	rebuild := func(ctx context.Context) error {
		stats, err := comps.Rebuild(ctx)
		if err != nil {
			return err
		}
		cli.WriteBuildSummary(stdout, stats)
		return nil
	}
	if *initial {
		if err := rebuild(ctx); err != nil {
			return fmt.Errorf("index failed: %w", err)
		}
	}

	w := newDataWatcher(comps.Config, comps.Logger, rebuild)
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Stop()
	fmt.Fprintf(stdout, "Watching %s (Ctrl+C to stop)\n", w.Root())
	<-ctx.Done()
	return nil
}

// newDataWatcher watches the data directory and runs rebuild after each burst of changes.
func newDataWatcher(cfg *config.Config, logger *zap.Logger, rebuild func(ctx context.Context) error) *watcher.Watcher {
	return watcher.NewWatcher(
		cfg.Data.Directory,
		cfg.Data.Extensions,
		cfg.Watch.RecursiveOrDefault(),
		func(ctx context.Context, paths []string) {
			logger.Info("data changed, rebuilding", zap.Int("paths", len(paths)))
			if err := rebuild(ctx); err != nil {
				logger.Error("rebuild failed", zap.Error(err))
			}
		},
		watcher.WithLogger(logger),
		watcher.WithDebounce(cfg.Watch.Debounce),
	)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `kotae - answer questions from your local documents

Usage:
  kotae index [flags]                 Rebuild the vector store from the data directory
  kotae query [flags] <query_text>    Answer a question from the indexed documents
  kotae server [flags]                Start the web UI and HTTP API
  kotae status [flags]                Show what the vector store holds
  kotae search [flags] <terms>        Keyword lookup of indexed chunks
  kotae compare [flags] [<a> <b>]     Embedding length and cosine similarity of two texts
  kotae chat [flags] <prompt>         Send one raw prompt to the model
  kotae watch [flags]                 Rebuild the store whenever the data directory changes
  kotae version                       Show version
  kotae help                          Show this help

Common Flags:
  --config string    Config file path (default: kotae.yaml; built-in defaults when absent)
  --debug            Enable debug logging

Query / Status / Search Flags:
  --output string    Output format: text or json (default: text)

Search Flags:
  --limit int        Maximum number of chunks (default: 10)
  --fuzzy            Tolerate typos

Server Flags:
  --watch            Rebuild the store when the data directory changes

Watch Flags:
  --initial          Build the store once before watching (default: true)

Examples:
  kotae index
  kotae query "Who is Alice?"
  kotae query --output json "Who is Alice?"
  kotae server --watch
  kotae compare apple iphone
  kotae chat "Tell me a fun fact about Bangalore."`)
}
