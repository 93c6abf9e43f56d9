package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"

	doc2pdf "github.com/alnah/go-doc2pdf"
)

// Version is set at build time via ldflags.
var Version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	var (
		configArg = flag.StringP("config", "c", "", "config file path or name")
		addr      = flag.StringP("addr", "a", ":8080", "listen address")
		workers   = flag.IntP("workers", "w", 0, "max concurrent conversions (0 = auto)")
		verbose   = flag.BoolP("verbose", "v", false, "debug logging")
		version   = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *version {
		fmt.Println(Version)
		return
	}

	log := newLogger(*verbose)

	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply and the program continues.
	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		log.Debug().Msgf(format, args...)
	}))

	if err := run(*configArg, *addr, *workers, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

func run(configArg, addr string, workers int, log zerolog.Logger) error {
	cfg := doc2pdf.DefaultConfig()
	if configArg != "" {
		loaded, err := doc2pdf.LoadConfig(configArg)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	// The transport bootstraps the top-level directories; the core only
	// manages its own scratch files beneath them.
	for _, dir := range []string{cfg.Dirs.Uploads, cfg.Dirs.Converted, cfg.Dirs.Temp} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	svc, err := doc2pdf.New(cfg, doc2pdf.WithLogger(log))
	if err != nil {
		return err
	}

	for engine, ok := range svc.EngineStatus() {
		log.Info().Str("engine", engine).Bool("available", ok).Msg("engine probe")
	}

	poolSize := doc2pdf.ResolvePoolSize(workers)
	pool := doc2pdf.NewPool(poolSize)
	log.Info().Int("workers", poolSize).Str("addr", addr).Str("version", Version).Msg("starting server")

	gin.SetMode(gin.ReleaseMode)
	srv := newServer(cfg, svc, pool, log)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM; in-flight conversions get the
	// shutdown window to finish.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("shutdown error")
		}
	}()

	if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
