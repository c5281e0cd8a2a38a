package server

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"TypoTrade/internal/domain/models"
	"TypoTrade/internal/handler/api"
	"TypoTrade/internal/usecase"
	"TypoTrade/pkg/config"
	xhttp "TypoTrade/pkg/http"
	applogger "TypoTrade/pkg/logger"
)

// App encapsulates the application lifecycle. Batch modes run to
// completion; serve mode blocks until a shutdown signal.
type App struct {
	cfg      *config.Config
	l        *applogger.Logger
	scanner  *usecase.PairScanner
	study    *usecase.PairStudy
	ipoStudy *usecase.IPOStudy
	sink     *usecase.ResultSink
	handler  *api.StudyEchoHandler

	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	scanner *usecase.PairScanner,
	study *usecase.PairStudy,
	ipoStudy *usecase.IPOStudy,
	sink *usecase.ResultSink,
	handler *api.StudyEchoHandler,
) *App {
	return &App{
		cfg:      cfg,
		l:        l,
		scanner:  scanner,
		study:    study,
		ipoStudy: ipoStudy,
		sink:     sink,
		handler:  handler,
	}
}

// Run dispatches the requested mode. The IPO range is only consulted by
// the ipo mode; a zero range defaults to the trailing twelve months.
func (a *App) Run(mode string, from, to time.Time) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch mode {
	case "scan":
		return a.runBatch(ctx, func(ctx context.Context) (models.RunSummary, error) {
			summary, _, err := a.scanner.Run(ctx)
			return summary, err
		})
	case "study":
		return a.runBatch(ctx, func(ctx context.Context) (models.RunSummary, error) {
			_, pairs, err := a.scanner.Run(ctx)
			if err != nil {
				return models.RunSummary{Mode: "study"}, err
			}
			return a.study.Run(ctx, pairs)
		})
	case "pair":
		return a.runBatch(ctx, func(ctx context.Context) (models.RunSummary, error) {
			_, pairs, err := a.scanner.Run(ctx)
			if err != nil {
				return models.RunSummary{Mode: "pair"}, err
			}
			return a.study.RunDeepDives(ctx, pairs)
		})
	case "ipo":
		if to.IsZero() {
			to = time.Now()
		}
		if from.IsZero() {
			from = to.AddDate(-1, 0, 0)
		}
		return a.runBatch(ctx, func(ctx context.Context) (models.RunSummary, error) {
			summary, _, err := a.ipoStudy.Run(ctx, from, to)
			return summary, err
		})
	case "serve":
		return a.serve(ctx)
	default:
		return fmt.Errorf("unknown mode: %s", mode)
	}
}

// runBatch executes one batch run, logs its summary, and releases the
// backend resources.
func (a *App) runBatch(ctx context.Context, run func(context.Context) (models.RunSummary, error)) error {
	start := time.Now()
	summary, err := run(ctx)
	if err != nil {
		a.l.Error("run failed", applogger.String("mode", summary.Mode), applogger.Error(err))
		a.closeSink()
		return err
	}

	a.l.Info("run complete",
		applogger.String("mode", summary.Mode),
		applogger.Int("pairs_processed", summary.PairsProcessed),
		applogger.Int("results_produced", summary.ResultsProduced),
		applogger.Int("insufficient_sample", summary.InsufficientSample),
		applogger.Int("failed", summary.Failed),
		applogger.Duration("elapsed", time.Since(start)),
	)
	a.closeSink()
	return nil
}

// serve starts the HTTP query API and blocks until the context is
// cancelled by a signal.
func (a *App) serve(ctx context.Context) error {
	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	<-ctx.Done()
	a.l.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	a.closeSink()
	a.l.Info("shutdown complete")
	return nil
}

func (a *App) closeSink() {
	a.sink.Close()
}
