package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/xapikatchu/xapikatchu/internal/httpapi"
	"github.com/xapikatchu/xapikatchu/internal/ingester"
	"github.com/xapikatchu/xapikatchu/internal/mcp"
	"github.com/xapikatchu/xapikatchu/internal/options"
	"github.com/xapikatchu/xapikatchu/internal/parser"
	"github.com/xapikatchu/xapikatchu/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version information and exit")
	mcpMode := flag.Bool("mcp", false, "serve the MCP stdio interface instead of HTTP")
	flag.Parse()

	if *showVersion {
		fmt.Printf("xapikatchu statement server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", storage.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
		os.Exit(0)
	}

	opts := options.FromEnv()

	logger, err := newLogger(opts)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting",
		zap.String("version", version),
		zap.String("build_mode", storage.BuildMode),
		zap.String("driver", storage.DriverName),
		zap.String("db_path", opts.DBPath),
		zap.String("table_prefix", opts.TablePrefix))

	store, err := storage.NewSQLiteStorage(opts.DBPath, storage.Config{Prefix: opts.TablePrefix})
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	ing := ingester.New(parser.New(opts.Locale), store, logger, ingester.Options{
		StoreCompleteXAPI: opts.StoreCompleteXAPI,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if *mcpMode {
		runMCP(ctx, cancel, sigChan, logger, store, ing)
		return
	}
	runHTTP(ctx, sigChan, logger, opts, store, ing)
}

// runMCP serves the stdio interface. stdout carries the protocol, so all
// logging must already be routed to stderr or a file by newLogger.
func runMCP(ctx context.Context, cancel context.CancelFunc, sigChan chan os.Signal, logger *zap.Logger, store storage.Storage, ing *ingester.Ingester) {
	server := mcp.NewServer(store, ing)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("MCP server ready, listening on stdio")
		errChan <- server.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	case err := <-errChan:
		if err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}

	logger.Info("server stopped")
}

func runHTTP(ctx context.Context, sigChan chan os.Signal, logger *zap.Logger, opts options.Options, store storage.Storage, ing *ingester.Ingester) {
	api := httpapi.NewServer(store, ing, logger)

	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("HTTP server ready", zap.String("addr", opts.Addr))
		errChan <- srv.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}

	logger.Info("server stopped")
}

func newLogger(opts options.Options) (*zap.Logger, error) {
	var cfg zap.Config
	if opts.LogMode == "development" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	if opts.DebugEnabled {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	// stdout is reserved for the MCP protocol in stdio mode
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}
