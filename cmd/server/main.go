// Command main is the entry point for the Inkwell blog server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/observability"
	"inkwell/internal/server"

	"github.com/gofiber/fiber/v2"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "inkwell",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   1.0,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	// Create server with dependency injection
	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Multipart overhead on top of the largest accepted image
	bodyLimit := (cfg.ImageMaxUploadSizeMB + 1) * 1024 * 1024
	app := fiber.New(fiber.Config{
		AppName:   "Inkwell",
		BodyLimit: bodyLimit,
	})

	srv.SetupMiddleware(app)
	srv.SetupRoutes(app)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Printf("Server starting on port %s...", cfg.Port)
	err = serveUntilSignal(
		func() error { return app.Listen(":" + cfg.Port) },
		app.ShutdownWithContext,
		sigChan,
		10*time.Second,
		srv.Shutdown,
		shutdownTracing,
	)
	if err != nil {
		log.Fatal(err)
	}
	log.Println("Server stopped")
}

// serveUntilSignal runs listen until a signal arrives, then stops the listener
// and runs each cleanup in order. It returns only after every cleanup finished.
func serveUntilSignal(
	listen func() error,
	shutdown func(context.Context) error,
	sig <-chan os.Signal,
	timeout time.Duration,
	cleanups ...func(context.Context) error,
) error {
	done := make(chan struct{})
	stop := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case <-sig:
		case <-stop:
			return
		}

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		for _, cleanup := range cleanups {
			if err := cleanup(ctx); err != nil {
				log.Printf("Shutdown cleanup error: %v", err)
			}
		}
	}()

	// listen only returns early on its own failure; otherwise shutdown is already underway
	err := listen()
	close(stop)
	<-done
	return err
}
