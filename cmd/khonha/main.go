// Package main is the Khonha CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kasetai/khonha/internal/artifact"
	"github.com/kasetai/khonha/internal/config"
	"github.com/kasetai/khonha/internal/models"
	"github.com/kasetai/khonha/internal/search"
	"github.com/kasetai/khonha/internal/server"
	"github.com/kasetai/khonha/internal/watcher"
	"github.com/kasetai/khonha/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/khonha/config.yaml"

// loadConfig loads config from path. When path is the default, a config.yaml
// in the current directory takes precedence so that "khonha server" from the
// project dir uses the project's config. Returns the config and the path
// that was actually loaded.
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
	case "search":
		runSearch()
	case "status":
		runStatus()
	case "invalidate":
		runInvalidate()
	case "version", "--version", "-v":
		fmt.Printf("khonha version %s\n", version)
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

	manager := artifact.NewManager(cfg, logger)
	defer manager.Close()
	engine := search.NewEngine(manager, cfg, logger)

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Watch.EnabledOrDefault() {
		watchSvc := watcher.NewWatcher(cfg.Storage.DatabasePath, func() {
			if err := manager.InvalidateAll(context.Background()); err != nil {
				logger.Warn("watch invalidation failed", zap.Error(err))
			}
		}, logger)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	srv := server.NewServer(engine, manager, cfg, logger)
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

// buildQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// reorderArgs moves flags (and their values) that appear after the query to
// the front so flag.Parse() sees them; the flag package stops at the first
// non-flag argument.
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

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = direct access without a running server)")
	category := fs.String("category", "", "restrict results to one category label")
	topN := fs.Int("top-n", 0, "number of results (0 = server default)")
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	queryStr := buildQuery(fs.Args())
	if queryStr == "" {
		fmt.Fprintf(fs.Output(), "Usage: khonha search [flags] <query>\n\n")
		fs.PrintDefaults()
		os.Exit(1)
	}

	query := &models.RetrievalQuery{
		Query:    queryStr,
		Category: *category,
		TopN:     *topN,
	}

	if *serverURL != "" {
		// HTTP avoids a Bleve/SQLite lock conflict with a running server.
		result, err := searchViaHTTP(*serverURL, query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(result)
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	manager := artifact.NewManager(cfg, logger)
	defer manager.Close()
	engine := search.NewEngine(manager, cfg, logger)

	result, err := engine.Search(context.Background(), query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(result)
}

func searchViaHTTP(serverURL string, query *models.RetrievalQuery) (string, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return "", err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response struct {
		Result string `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return response.Result, nil
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	var status map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		fmt.Fprintf(os.Stderr, "Decode failed: %v\n", err)
		os.Exit(1)
	}
	out, _ := json.MarshalIndent(status, "", "  ")
	fmt.Println(string(out))
}

func runInvalidate() {
	fs := flag.NewFlagSet("invalidate", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	name := fs.String("artifact", "", "artifact to invalidate (empty = all)")
	_ = fs.Parse(os.Args[2:])

	body, _ := json.Marshal(map[string]string{"artifact": *name})
	resp, err := http.Post(*serverURL+"/api/v1/cache/invalidate", "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalidate request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	fmt.Println("Invalidated.")
}

func printUsage() {
	fmt.Println(`Khonha - hybrid retrieval server for Thai agricultural documents

Usage:
  khonha server [-config path] [-debug]        Start the HTTP server
  khonha search [flags] <query>                Run a retrieval query
  khonha status [-server url]                  Show artifact states and disk usage
  khonha invalidate [-artifact name]           Drop cached artifacts
  khonha version                               Show version

Search flags:
  -category label   Only return chunks carrying the label
  -top-n n          Number of results
  -server url       Query a running server (default http://localhost:8080);
                    pass -server "" to open the indexes directly`)
}
