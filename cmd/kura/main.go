// Package main is the kura CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
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

	"github.com/hyperjump/kura/internal/analytics"
	"github.com/hyperjump/kura/internal/cli"
	"github.com/hyperjump/kura/internal/config"
	"github.com/hyperjump/kura/internal/models"
	"github.com/hyperjump/kura/internal/search"
	"github.com/hyperjump/kura/internal/server"
	"github.com/hyperjump/kura/internal/store"
	"github.com/hyperjump/kura/internal/watcher"
	"github.com/hyperjump/kura/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kura/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists it
// is used, so that "kura server" from the project dir uses the project's config.
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
	case "list":
		runList()
	case "read":
		runRead()
	case "search":
		runSearch()
	case "delete":
		runDelete()
	case "sweep":
		runSweep()
	case "status":
		runStatus()
	case "query":
		runQuery()
	case "discover":
		runDiscover()
	case "seed":
		runSeed()
	case "version", "--version", "-v":
		fmt.Printf("kura version %s\n", version)
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
	debug := fs.Bool("debug", false, "enable debug logging")
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
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchSvc := watcher.NewWatcher(cfg.Storage.ResourcesPath, components.Store, logger)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := watchSvc.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	defer watchSvc.Stop()

	srv := server.NewServer(components.Store, components.Engine, components.DB, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
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

func runList() {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format := parseFormat(*outputFormat)

	var resources []models.ResourceSummary
	if *serverURL != "" {
		var out struct {
			Resources []models.ResourceSummary `json:"resources"`
		}
		if err := getJSON(*serverURL+"/api/v1/resources", &out); err != nil {
			fmt.Fprintf(os.Stderr, "List failed: %v\n", err)
			os.Exit(1)
		}
		resources = out.Resources
	} else {
		components := mustInitialize(*configPath)
		defer components.Close()
		resources = components.Store.List()
	}
	if err := cli.WriteResourceList(os.Stdout, resources, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runRead() {
	fs := flag.NewFlagSet("read", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	raw := fs.Bool("raw", false, "print the raw JSON payload instead of the formatted view")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kura read [flags] <uri>")
		os.Exit(1)
	}
	uri := fs.Arg(0)

	var content string
	if *serverURL != "" {
		endpoint := *serverURL + "/api/v1/resources/read?uri=" + url.QueryEscape(uri)
		if *raw {
			endpoint += "&raw=true"
		}
		resp, err := http.Get(endpoint)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Read failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Read failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		content = string(b)
	} else {
		components := mustInitialize(*configPath)
		defer components.Close()
		var err error
		content, err = components.Store.Read(uri, *raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Read failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Println(content)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the
// query to the front of the slice so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument.
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
	searchArgs := searchArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	limit := fs.Int("limit", -1, "number of results (0 = unlimited, -1 = configured default_limit)")
	tags := fs.String("tags", "", "comma-separated tags that must all be present")
	anyTags := fs.String("any-tags", "", "comma-separated tags of which at least one must be present")
	category := fs.String("category", "", "filter by category")
	resourceType := fs.String("type", "", "filter by resource type (table, chart, ml, schema)")
	sortBy := fs.String("sort-by", "created_at", "sort field: created_at, name, access_count, last_accessed")
	sortOrder := fs.String("sort-order", "desc", "sort order: asc or desc")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(searchArgs)

	format := parseFormat(*outputFormat)
	criteria := &models.SearchCriteria{
		Query:     buildSearchQuery(fs.Args()),
		AllTags:   splitTags(*tags),
		AnyTags:   splitTags(*anyTags),
		Category:  models.Category(*category),
		Type:      models.ResourceType(*resourceType),
		Limit:     resolveSearchLimit(*limit, *configPath),
		SortBy:    *sortBy,
		SortOrder: *sortOrder,
	}

	var response *models.SearchResponse
	if *serverURL != "" {
		response = &models.SearchResponse{}
		if err := postJSON(*serverURL+"/api/v1/search", criteria, response); err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		components := mustInitialize(*configPath)
		defer components.Close()
		components.Store.SweepExpired()
		response = components.Engine.Search(criteria)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// resolveSearchLimit substitutes the configured default_limit when the
// -limit flag was not given. An explicit 0 keeps its unlimited meaning.
// Without a readable config file (the usual case against a remote
// server) the built-in default applies.
func resolveSearchLimit(limit int, configPath string) int {
	if limit >= 0 {
		return limit
	}
	if cfg, _, err := loadConfig(configPath); err == nil {
		return cfg.Search.DefaultLimit
	}
	var cfg config.Config
	config.ApplyDefaults(&cfg)
	return cfg.Search.DefaultLimit
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kura delete [flags] <uri>")
		os.Exit(1)
	}
	uri := fs.Arg(0)

	if *serverURL != "" {
		req, _ := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/resources?uri="+url.QueryEscape(uri), nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "Delete failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
	} else {
		components := mustInitialize(*configPath)
		defer components.Close()
		if err := components.Store.Delete(uri); err != nil {
			fmt.Fprintf(os.Stderr, "Deletion failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("Resource deleted: %s\n", uri)
}

func runSweep() {
	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	components := mustInitialize(*configPath)
	defer components.Close()
	n := components.Store.SweepExpired()
	fmt.Printf("Swept %d expired resource(s)\n", n)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status map[string]interface{}
	if *serverURL != "" {
		if err := getJSON(*serverURL+"/api/v1/status", &status); err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		components := mustInitialize(*configPath)
		defer components.Close()
		swept := components.Store.SweepExpired()
		status = map[string]interface{}{
			"resources":     components.Store.Count(),
			"swept_expired": swept,
			"config": map[string]interface{}{
				"resources_path": cfg.Storage.ResourcesPath,
				"expiry_hours":   cfg.Resources.ExpiryHours,
				"default_limit":  cfg.Search.DefaultLimit,
			},
		}
		if diskBytes, err := store.DiskUsageBytes(cfg.Storage.ResourcesPath); err == nil {
			status["disk_usage_bytes"] = diskBytes
		}
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
		fmt.Printf("resources:         %v\n", status["resources"])
		if v, ok := status["swept_expired"]; ok {
			fmt.Printf("swept_expired:     %v\n", v)
		}
		if v, ok := status["disk_usage_bytes"]; ok {
			fmt.Printf("disk_usage_bytes:  %v\n", v)
		}
		if cfgInfo, ok := status["config"].(map[string]interface{}); ok {
			fmt.Println()
			fmt.Println("# configuration")
			for _, key := range []string{"resources_path", "analytics_db_path", "expiry_hours", "default_limit"} {
				if v, ok := cfgInfo[key]; ok {
					fmt.Printf("%-18s %v\n", key+":", v)
				}
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func runQuery() {
	queryArgs := searchArgsReorder(os.Args[2:])
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct database)")
	_ = fs.Parse(queryArgs)

	if fs.NArg() < 1 {
		fmt.Println("Usage: kura query [flags] <sql>")
		os.Exit(1)
	}
	sqlText := buildSearchQuery(fs.Args())

	var out map[string]interface{}
	if *serverURL != "" {
		out = map[string]interface{}{}
		if err := postJSON(*serverURL+"/api/v1/query", map[string]string{"query": sqlText}, &out); err != nil {
			fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		components := mustInitialize(*configPath)
		defer components.Close()
		if components.DB == nil {
			fmt.Fprintln(os.Stderr, "No analytics database configured")
			os.Exit(1)
		}
		data, err := components.DB.ExecQuery(context.Background(), sqlText)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
			os.Exit(1)
		}
		uri, err := components.Store.StoreTable(data, sqlText)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Store result failed: %v\n", err)
			os.Exit(1)
		}
		out = map[string]interface{}{
			"uri":       uri,
			"columns":   data.Columns,
			"row_count": data.RowCount,
			"data":      data.Rows,
		}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}

func runDiscover() {
	fs := flag.NewFlagSet("discover", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct database)")
	samples := fs.Bool("samples", true, "include sample rows in the discovered schema")
	sampleLimit := fs.Int("sample-limit", 5, "sample rows per table")
	_ = fs.Parse(os.Args[2:])

	var out map[string]interface{}
	if *serverURL != "" {
		body := map[string]interface{}{"include_sample_data": *samples, "sample_limit": *sampleLimit}
		out = map[string]interface{}{}
		if err := postJSON(*serverURL+"/api/v1/discover", body, &out); err != nil {
			fmt.Fprintf(os.Stderr, "Discover failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		components := mustInitialize(*configPath)
		defer components.Close()
		if components.DB == nil {
			fmt.Fprintln(os.Stderr, "No analytics database configured")
			os.Exit(1)
		}
		opts := analytics.DiscoverOptions{IncludeSampleData: *samples, MaxSampleRows: *sampleLimit}
		schema, err := components.DB.DiscoverSchema(context.Background(), opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Discover failed: %v\n", err)
			os.Exit(1)
		}
		uri, err := components.Store.StoreSchema(schema, "")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Store schema failed: %v\n", err)
			os.Exit(1)
		}
		out = map[string]interface{}{
			"uri":           uri,
			"database_type": schema.DatabaseType,
			"table_count":   len(schema.Tables),
		}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}

func runSeed() {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Storage.AnalyticsDBPath == "" {
		fmt.Fprintln(os.Stderr, "No analytics database configured")
		os.Exit(1)
	}
	db, err := analytics.Open(cfg.Storage.AnalyticsDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Open database failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Seed(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Seeded sample analytics data into %s\n", cfg.Storage.AnalyticsDBPath)
}

func parseFormat(s string) cli.OutputFormat {
	switch s {
	case "json":
		return cli.OutputJSON
	case "text":
		return cli.OutputText
	default:
		fmt.Printf("Unknown output format %q; use text or json\n", s)
		os.Exit(1)
		return cli.OutputText
	}
}

func getJSON(endpoint string, out interface{}) error {
	resp, err := http.Get(endpoint)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func postJSON(endpoint string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	resp, err := http.Post(endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Components holds initialized services for direct (serverless) commands.
type Components struct {
	Store  *store.Store
	Engine *search.Engine
	DB     *analytics.DB
}

func (c *Components) Close() {
	if c.DB != nil {
		_ = c.DB.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	st, err := store.New(cfg.Storage.ResourcesPath, cfg.Resources.TTL(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize resource store: %w", err)
	}
	engine := search.NewEngine(st, cfg.Search.FuzzyThreshold)

	var db *analytics.DB
	if cfg.Storage.AnalyticsDBPath != "" {
		db, err = analytics.Open(cfg.Storage.AnalyticsDBPath)
		if err != nil {
			logger.Warn("analytics database unavailable",
				zap.String("path", cfg.Storage.AnalyticsDBPath),
				zap.Error(err))
			db = nil
		}
	}

	return &Components{Store: st, Engine: engine, DB: db}, nil
}

func mustInitialize(configPath string) *Components {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	return components
}

func printUsage() {
	fmt.Println(`kura - Ephemeral tagged artifact store for analytics results

Usage:
  kura server [flags]             Start the HTTP server
  kura list [flags]               List stored resources
  kura read [flags] <uri>         Read a resource (formatted, or --raw for JSON)
  kura search [flags] <query>     Search resources by text, tags, and filters
  kura delete [flags] <uri>       Delete a resource
  kura sweep [flags]              Remove expired resources
  kura status [flags]             Show store status
  kura query [flags] <sql>        Run a read-only SQL query and store the result
  kura discover [flags]           Discover the analytics database schema
  kura seed [flags]               Seed the analytics database with sample data
  kura version                    Show version
  kura help                       Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kura/config.yaml)
  --debug            Enable debug logging

Search Flags:
  --server string      Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --limit int          Number of results, 0 for unlimited (default: 10)
  --tags string        Comma-separated tags that must all be present
  --any-tags string    Comma-separated tags of which at least one must be present
  --category string    Filter by category (data, visualization, analytics, infrastructure)
  --type string        Filter by resource type (table, chart, ml, schema)
  --sort-by string     Sort field: created_at, name, access_count, last_accessed
  --sort-order string  Sort order: asc or desc (default: desc)
  --output string      Output format: text or json (default: text)

Examples:
  kura server
  kura list
  kura search "user orders"
  kura search --tags query,aggregation --sort-by access_count
  kura read resource://tables/550e8400-e29b-41d4-a716-446655440000
  kura read --raw resource://schemas/sqlite_1234.json
  kura query "SELECT country, COUNT(*) FROM users GROUP BY country"
  kura discover
  kura delete resource://tables/550e8400-e29b-41d4-a716-446655440000
  kura status --output json`)
}
