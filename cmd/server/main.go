// Command server runs the DropView API.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dropview/internal/config"
	"dropview/internal/jobs"
	"dropview/internal/middleware"
	"dropview/internal/observability"
	"dropview/internal/server"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.ConfigureLogger(cfg.Env, cfg.LogLevel, os.Stdout)

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "dropview-api",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampleRatio,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	srv, err := server.NewServer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	scheduler := jobs.NewScheduler(0)
	if err := scheduler.ScheduleCommentReconcile(cfg.CommentReconcileCron, srv.PostRepository()); err != nil {
		log.Fatalf("Failed to schedule jobs: %v", err)
	}
	scheduler.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	err = serve(srv.Start, sigChan, 10*time.Second,
		shutdownStep{"jobs", scheduler.Stop},
		shutdownStep{"server", srv.Shutdown},
		shutdownStep{"tracing", shutdownTracing},
	)
	if err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
	middleware.Logger.Info("shutdown complete")
}

type shutdownStep struct {
	name string
	stop func(context.Context) error
}

// serve runs start until a signal arrives, then runs steps in order under one
// deadline. It returns only after every step has finished.
func serve(start func() error, sig <-chan os.Signal, timeout time.Duration, steps ...shutdownStep) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-sig

		middleware.Logger.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		for _, step := range steps {
			if err := step.stop(ctx); err != nil {
				middleware.Logger.Error("shutdown step failed",
					slog.String("step", step.name),
					slog.String("error", err.Error()),
				)
			}
		}
	}()

	if err := start(); err != nil {
		return err
	}
	<-done
	return nil
}

