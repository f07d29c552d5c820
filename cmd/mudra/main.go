package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/cache"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
)

// pruneInterval is how often expired history is removed.
const pruneInterval = time.Hour

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	fmt.Println("Mudra - Hand Gesture Recognition")

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Error loading .env file: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appCfg := app.Config{
		Detector: app.OpenDetector(cfg.Detector.Backend, cfg.Detector.Options()),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// History is optional
	if cfg.Store.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
		st, err := store.New(cfg.Store.Path)
		if err != nil {
			log.Fatalf("Failed to initialize store: %v", err)
		}
		defer st.Close()
		appCfg.Store = st
		fmt.Printf("Recording gesture history in: %s\n", st.Path())
	}

	if cfg.Cache.RedisAddr != "" {
		c, err := cache.New(cfg.Cache.RedisAddr, cfg.Cache.TTL)
		if err != nil {
			log.Fatalf("Failed to connect to cache: %v", err)
		}
		defer c.Close()
		appCfg.Cache = c
		fmt.Printf("Caching responses in Redis at %s for %s\n", cfg.Cache.RedisAddr, cfg.Cache.TTL)
	}

	a := app.New(appCfg)
	defer a.Close()

	if appCfg.Store != nil && cfg.Store.Retention > 0 {
		go a.RunPruner(ctx, cfg.Store.Retention, pruneInterval)
	}

	srv := server.New(server.Config{
		App:                   a,
		BodyLimit:             cfg.Server.BodyLimit,
		StreamChangeThreshold: cfg.Server.StreamChangeThreshold,
	})

	errCh := make(chan error, 1)
	go func() {
		fmt.Printf("Starting server on %s\n", cfg.Server.Addr)
		errCh <- srv.Start(cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	case <-ctx.Done():
		fmt.Println("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}
}
