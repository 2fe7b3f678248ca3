// Package main is the banshi CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/banshi/internal/catalog"
	"github.com/hyperjump/banshi/internal/cli"
	"github.com/hyperjump/banshi/internal/config"
	"github.com/hyperjump/banshi/internal/extract"
	"github.com/hyperjump/banshi/internal/indexer"
	"github.com/hyperjump/banshi/internal/intent"
	"github.com/hyperjump/banshi/internal/metrics"
	"github.com/hyperjump/banshi/internal/models"
	"github.com/hyperjump/banshi/internal/ranking"
	"github.com/hyperjump/banshi/internal/search"
	"github.com/hyperjump/banshi/internal/server"
	"github.com/hyperjump/banshi/internal/storage"
	"github.com/hyperjump/banshi/internal/watcher"
	"github.com/hyperjump/banshi/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/banshi/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if neither exists the
// built-in defaults are used. Returns the config and the path that was actually
// loaded ("" for built-in defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "import":
		runImport()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("banshi version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (catalog reloads, intent calls, search turns)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.Bool("intent_enabled", cfg.Intent.APIKey != ""),
	)
	metrics.Register()

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()
	components.bootstrapCatalog(context.Background(), cfg, logger)

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Catalog.Path != "" && cfg.Catalog.WatchOrDefault() {
		if err := startCatalogWatcher(watchCtx, cfg.Catalog.Path, components.Indexer, logger, debugMode); err != nil {
			logger.Warn("catalog watcher not started", zap.String("path", cfg.Catalog.Path), zap.Error(err))
		}
	}

	srv := server.NewServer(components.Engine, components.Indexer, components.Storage, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func startCatalogWatcher(ctx context.Context, path string, idx *indexer.Indexer, logger *zap.Logger, debug bool) error {
	opts := []watcher.WatcherOption{
		watcher.WithRemoveHandler(func(p string) {
			logger.Warn("catalog file removed, keeping current catalog", zap.String("path", p))
		}),
	}
	if debug {
		opts = append(opts, watcher.WithLogger(logger))
	}
	w, err := watcher.NewWatcher(path, func(p string) {
		if _, err := idx.IndexFile(context.Background(), p); err != nil {
			logger.Warn("catalog reload failed, keeping current catalog", zap.String("path", p), zap.Error(err))
		}
	}, opts...)
	if err != nil {
		return err
	}
	return w.Start(ctx)
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: banshi search [flags] [query]\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. An empty query browses the catalog by popularity.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  banshi search 公积金提取
  banshi search --applicant 法人 开公司
  banshi search --region 长沙市 --channel 微信小程序 社保
  banshi search --explain --output json 身份证过期了
  banshi search --channel PC端                     # browse mode
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
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

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = search the catalog directly)")
	limit := fs.Int("limit", 10, "number of results")
	applicant := fs.String("applicant", "", "applicant filter: 自然人, 法人, or empty for all")
	region := fs.String("region", "", "region filter, e.g. 长沙市 (empty or 全部 for all)")
	channel := fs.String("channel", "", "channel filter, e.g. 微信小程序 (empty or 全部 for all)")
	satisfaction := fs.Bool("satisfaction", false, "weight results by satisfaction")
	explain := fs.Bool("explain", false, "include score breakdowns")
	outputFormat := fs.String("output", "text", "output format: text (human-readable), compact (one result per line), or json (parseable)")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	switch *outputFormat {
	case "json", "text", "compact":
	default:
		fmt.Printf("Unknown output format %q; use text, compact, or json\n", *outputFormat)
		os.Exit(1)
	}
	format := cli.ParseOutputFormat(*outputFormat)

	req := &models.SearchRequest{
		Query:                buildSearchQuery(fs.Args()),
		Applicant:            models.ParseApplicantType(*applicant),
		Region:               *region,
		Channel:              *channel,
		SatisfactionWeighted: *satisfaction,
		Limit:                *limit,
		Explain:              *explain,
	}

	var (
		response *models.SearchResponse
		err      error
	)
	if *serverURL != "" {
		response, err = searchViaHTTP(*serverURL, req)
	} else {
		response, err = searchDirect(*configPath, req)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func searchDirect(configPath string, req *models.SearchRequest) (*models.SearchResponse, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		return nil, err
	}
	defer components.Close()
	components.bootstrapCatalog(context.Background(), cfg, logger)
	return components.Engine.Search(context.Background(), req)
}

func searchViaHTTP(serverURL string, req *models.SearchRequest) (*models.SearchResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = write the catalog database directly)")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: banshi import [flags] <catalog.csv|catalog.xlsx>")
		os.Exit(1)
	}
	path := fs.Arg(0)
	if !extract.Supported(extract.FormatOf(path)) {
		fmt.Printf("Unsupported catalog format: %s (use .csv, .tsv, or .xlsx)\n", path)
		os.Exit(1)
	}

	if *serverURL != "" {
		out, err := importViaHTTP(*serverURL, path)
		if err != nil {
			fmt.Printf("Import failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Catalog imported: %d records, version %d\n", out.Records, out.Version)
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	res, err := components.Indexer.IndexFile(context.Background(), path)
	if err != nil {
		fmt.Printf("Import failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Catalog imported: %d records (%d rows, %d without name, %d generated codes)\n",
		res.Snapshot.Len(), res.Stats.Rows, res.Stats.MissingName, res.Stats.GeneratedCode)
}

type importResult struct {
	Version uint64 `json:"version"`
	Records int    `json:"records"`
}

func importViaHTTP(serverURL, path string) (*importResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	q := url.Values{}
	q.Set("format", strings.TrimPrefix(extract.FormatOf(path), "."))
	q.Set("source", filepath.Base(path))
	resp, err := http.Post(serverURL+"/api/v1/catalog/import?"+q.Encode(), "application/octet-stream", bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out importResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// statusResponse is the shape of the GET /api/v1/catalog response.
type statusResponse struct {
	Version        uint64               `json:"version"`
	Records        int                  `json:"records"`
	LoadedAt       time.Time            `json:"loaded_at"`
	Source         string               `json:"source"`
	StoredRecords  *int64               `json:"stored_records,omitempty"`
	Imports        []storage.ImportInfo `json:"imports,omitempty"`
	DiskUsageBytes *int64               `json:"disk_usage_bytes,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read the catalog database directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		res, err := statusDirect(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		writeStatusText(os.Stdout, &status)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func writeStatusText(w io.Writer, status *statusResponse) {
	fmt.Fprintf(w, "catalog_version:    %d\n", status.Version)
	fmt.Fprintf(w, "records:            %d   # records being served\n", status.Records)
	if status.Source != "" {
		fmt.Fprintf(w, "source:             %s\n", status.Source)
	}
	if !status.LoadedAt.IsZero() {
		fmt.Fprintf(w, "loaded_at:          %s\n", status.LoadedAt.Format(time.RFC3339))
	}
	if status.StoredRecords != nil {
		fmt.Fprintf(w, "stored_records:     %d   # records in the catalog database\n", *status.StoredRecords)
	}
	if status.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d\n", *status.DiskUsageBytes)
	}
	if len(status.Imports) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# recent imports")
		for _, imp := range status.Imports {
			fmt.Fprintf(w, "%s  %6d  %s\n", imp.ImportedAt.Format(time.RFC3339), imp.RecordCount, imp.Source)
		}
	}
}

func statusDirect(configPath string) (*statusResponse, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	st, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	count, err := st.CountRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	imports, err := st.ListImports(ctx, 10)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	status := &statusResponse{StoredRecords: &count, Imports: imports}
	if len(imports) > 0 {
		status.Records = imports[0].RecordCount
		status.Source = imports[0].Source
		status.LoadedAt = imports[0].ImportedAt
	}
	if size, err := st.SizeBytes(); err == nil {
		status.DiskUsageBytes = &size
	}
	return status, nil
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/catalog")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

// Components holds initialized services.
type Components struct {
	Storage storage.Storage
	Store   *catalog.Store
	Indexer *indexer.Indexer
	Engine  *search.Engine
}

func (c *Components) Close() {
	if c.Engine != nil {
		c.Engine.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

// bootstrapCatalog installs the startup catalog. An empty catalog is logged, not fatal.
func (c *Components) bootstrapCatalog(ctx context.Context, cfg *config.Config, logger *zap.Logger) {
	res, err := c.Indexer.Bootstrap(ctx, cfg.Catalog.Path, cfg.Catalog.SeedDefaultOrDefault())
	if err != nil {
		logger.Warn("starting with an empty catalog", zap.Error(err))
		return
	}
	logger.Info("catalog ready",
		zap.String("origin", string(res.Origin)),
		zap.String("source", res.Snapshot.Source),
		zap.Int("records", res.Snapshot.Len()),
	)
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	st, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	store := catalog.NewStore(catalog.WithLogger(logger))

	idxOpts := []indexer.IndexerOption{}
	if debug {
		idxOpts = append(idxOpts, indexer.WithLogger(logger))
	}
	idx := indexer.NewIndexer(store, st, extract.NewExtractor(), idxOpts...)

	classifier := intent.New(intent.Config{
		Credentials: intent.Credentials{
			APIURL: cfg.Intent.APIURL,
			APIKey: cfg.Intent.APIKey,
			Model:  cfg.Intent.Model,
		},
		Timeout: cfg.Intent.Timeout(),
		Logger:  logger,
	})

	engine, err := search.NewEngine(store, ranking.NewRanker(&cfg.Ranking), &cfg.Search,
		search.WithLogger(logger),
		search.WithClassifier(classifier),
		search.WithIntentAdoption(cfg.Intent.AdoptContextOrDefault()),
	)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to initialize search engine: %w", err)
	}

	return &Components{
		Storage: st,
		Store:   store,
		Indexer: idx,
		Engine:  engine,
	}, nil
}

func printUsage() {
	fmt.Println(`banshi - Government service search and ranking engine

Usage:
  banshi server [flags]            Start the HTTP server
  banshi search [flags] [query]    Search the service catalog (empty query browses)
  banshi import [flags] <file>     Replace the catalog from a .csv/.tsv/.xlsx file
  banshi status [flags]            Show catalog status
  banshi version                   Show version
  banshi help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/banshi/config.yaml)
  --debug            Enable debug logging

Search Flags:
  --config string       Config file path (for direct mode)
  --server string       Server URL (default: http://localhost:8080). Use --server "" to search directly.
  --limit int           Number of results (default: 10)
  --applicant string    自然人 or 法人 (default: all)
  --region string       Region such as 长沙市 (default: all)
  --channel string      Channel such as 微信小程序 (default: all)
  --satisfaction        Weight results by satisfaction
  --explain             Include score breakdowns
  --output string       text, compact, or json (default: text)

Import Flags:
  --config string    Config file path (for direct mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" to write the database directly.

Status Flags:
  --config string    Config file path (for direct mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct storage.
  --output string    Output format: text or json (default: text)

Examples:
  banshi server
  banshi search 公积金提取
  banshi search --applicant 法人 --output compact 开公司
  banshi import services.xlsx
  banshi status --output json`)
}
