package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/dcrmctl/internal/analysis"
	"codeberg.org/mutker/dcrmctl/internal/api"
	"codeberg.org/mutker/dcrmctl/internal/config"
	"codeberg.org/mutker/dcrmctl/internal/errors"
	"codeberg.org/mutker/dcrmctl/internal/history"
	"codeberg.org/mutker/dcrmctl/internal/logger"
	"codeberg.org/mutker/dcrmctl/internal/pid"
	"codeberg.org/mutker/dcrmctl/internal/prediction"
	"codeberg.org/mutker/dcrmctl/internal/report"
	"codeberg.org/mutker/dcrmctl/internal/session"
	"codeberg.org/mutker/dcrmctl/internal/waveform"
	"github.com/spf13/pflag"
)

const stdinPath = "-"

type app struct {
	cfg      *config.Config
	recorder history.Recorder
	session  *session.Session
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(2)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level: %v\n", err)
		os.Exit(2)
	}
	logger.Init(level, logger.IsService())
	if cfg.ConfigFile != "" {
		logger.Debug().Str("file", cfg.ConfigFile).Msg("Config loaded")
	}

	a, err := newApp(cfg)
	if err != nil {
		logError(err, "Failed to initialize")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go handleSignals(cancel)

	err = a.run(ctx)
	cancel()
	a.cleanup()
	if err != nil {
		logError(err, "Exiting with error")
		os.Exit(1)
	}
}

func newApp(cfg *config.Config) (*app, error) {
	errFactory := errors.New()

	predictor, err := prediction.NewService(prediction.Config{Delay: cfg.PredictionDelay})
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrInitApp, err)
	}

	recorder, err := history.NewService(history.Config{
		DBPath:       cfg.HistoryDB,
		Enabled:      cfg.History,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
	}, logger.Component("history"))
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrInitApp, err)
	}

	s := session.New(predictor, logger.Component("session"),
		session.WithRecorder(recorder),
		session.WithStrictParsing(cfg.Strict),
	)
	if !cfg.Metadata.IsZero() {
		if _, err := s.SetMetadata(context.Background(), cfg.Metadata); err != nil {
			_ = recorder.Close()
			return nil, errFactory.Wrap(errors.ErrInitApp, err)
		}
	}

	return &app{cfg: cfg, recorder: recorder, session: s}, nil
}

func (a *app) run(ctx context.Context) error {
	if a.cfg.Serve {
		return a.serve(ctx)
	}

	if len(a.cfg.Files) == 0 {
		return errors.New().WithMessage(errors.ErrInvalidArgument, "no trace file given (use - for stdin)")
	}

	analyses := make([]analysis.Analysis, 0, len(a.cfg.Files))
	for _, path := range a.cfg.Files {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		result, err := a.analyze(ctx, path)
		if err != nil {
			return err
		}
		analyses = append(analyses, result)
	}

	return report.Render(os.Stdout, a.cfg.Format, analyses...)
}

func (a *app) serve(ctx context.Context) error {
	lock, err := pid.Acquire(a.cfg.PIDFile)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logError(err, "Failed to remove PID file")
		}
	}()
	logger.Debug().Str("pid_file", lock.Path()).Msg("PID file written")

	h := api.NewHandler(a.session, a.recorder, logger.Component("api"))
	srv := api.NewServer(a.cfg.Listen, h, a.cfg.AllowedOrigins)

	return api.Run(ctx, srv)
}

func (a *app) analyze(ctx context.Context, path string) (analysis.Analysis, error) {
	errFactory := errors.New()

	f, err := openTrace(path)
	if err != nil {
		return analysis.Analysis{}, errFactory.Wrap(errors.ErrReadTrace, err)
	}
	defer f.Close()

	result, err := a.session.LoadReader(ctx, path, f)
	switch {
	case errors.HasCode(err, waveform.ErrReadFailed):
		return analysis.Analysis{}, errFactory.Wrap(errors.ErrReadTrace, err)
	case err != nil:
		return analysis.Analysis{}, errFactory.Wrap(errors.ErrAnalyze, err)
	}
	if n := len(result.Parse.Dropped); n > 0 {
		logger.Warn().
			Str("file", path).
			Int("dropped", n).
			Int("lines", result.Parse.Lines).
			Msg("Skipped malformed lines")
	}

	if !a.cfg.Predict {
		return result, nil
	}

	started := time.Now()
	if _, err := a.session.Predict(ctx); err != nil {
		return analysis.Analysis{}, errFactory.Wrap(errors.ErrAnalyze, err)
	}
	logger.Debug().Str("file", path).Dur("took", time.Since(started)).Msg("Prediction received")

	current, _ := a.session.Current()

	return current, nil
}

func (a *app) cleanup() {
	if err := a.recorder.Close(); err != nil {
		logError(err, "Failed to close history")
	}
	logger.Debug().Msg("Exiting...")
}

// openTrace opens path, or stdin for "-"
func openTrace(path string) (io.ReadCloser, error) {
	if path == stdinPath {
		return io.NopCloser(os.Stdin), nil
	}

	return os.Open(path)
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func logError(err error, msg string) {
	var coded errors.Error
	if errors.As(err, &coded) {
		logger.ErrorWithCode(coded).Msg(msg)
		return
	}
	logger.Error().Err(err).Msg(msg)
}
