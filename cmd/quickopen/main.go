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

	"github.com/gin-gonic/gin"

	"github.com/quickfind/go-fuzzy-engine/api"
	"github.com/quickfind/go-fuzzy-engine/internal/engine"
)

const maxRequestBodySize = 1 << 20 // 1 MiB

func main() {
	var (
		help    = flag.Bool("help", false, "Show help message")
		version = flag.Bool("version", false, "Show version information")
		port    = flag.String("port", "8080", "Port to run the server on")
		dataDir = flag.String("data-dir", "./quickopen_data", "Directory to store worktree data")
	)

	flag.Parse()

	if *help {
		fmt.Printf("QuickOpen - A fuzzy path finder over scanned directory trees\n\n")
		fmt.Printf("Usage: %s [options]\n\n", os.Args[0])
		fmt.Printf("Options:\n")
		flag.PrintDefaults()
		fmt.Printf("\nExamples:\n")
		fmt.Printf("  %s                            # Start server on default port 8080\n", os.Args[0])
		fmt.Printf("  %s --port 9000                # Start server on port 9000\n", os.Args[0])
		fmt.Printf("  %s --data-dir /tmp/quickopen  # Use custom data directory\n", os.Args[0])
		return
	}

	if *version {
		fmt.Printf("QuickOpen v1.0.0\n")
		fmt.Printf("Fuzzy path matching with recents, background scanning, and file watching\n")
		return
	}

	log.Printf("Using data directory: %s", *dataDir)
	eng := engine.NewEngine(*dataDir)

	router := gin.Default()
	router.Use(api.RequestIDMiddleware())
	router.Use(api.CORSMiddleware())
	router.Use(api.RequestSizeLimitMiddleware(maxRequestBodySize))

	api.SetupRoutes(router, eng)

	server := &http.Server{
		Addr:    ":" + *port,
		Handler: router,
	}

	go func() {
		log.Printf("Starting server on port %s...", *port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Shut down cleanly on interrupt so in-flight scans finish persisting and
	// the filesystem watcher releases its handles.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Warning: server shutdown: %v", err)
	}
	eng.Close()
}
