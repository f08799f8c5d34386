package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"foldsync/internal/config"
	"foldsync/internal/dispatch"
	"foldsync/internal/fold"
	"foldsync/internal/session"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	rangesPath := flag.String("ranges", "-", "path to fold ranges file (JSON array of [start,end] pairs, zero-based), - for stdin")
	strategyName := flag.String("strategy", "", "override configured strategy")
	buffer := flag.Int("buffer", 1, "buffer handle the folds belong to")
	bench := flag.Bool("bench", false, "time every strategy over the same fold set")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log := zerolog.New(os.Stderr).With().Timestamp().Logger()
			log.Fatal().Err(err).Msg("failed to load config")
		}
	}
	if *strategyName != "" {
		cfg.Strategy = *strategyName
	}

	logger := setupLogger(cfg.LogLevel)

	strategy, err := dispatch.ParseStrategy(cfg.Strategy)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid strategy")
	}

	set, err := readRanges(*rangesPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to read fold ranges")
	}

	ctx := context.Background()
	sess, err := session.Dial(ctx, cfg.EditorURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to editor")
	}
	defer sess.Close()

	if *bench {
		runBench(ctx, cfg, sess, set, logger)
		return
	}

	d, err := dispatch.New(sess, strategy, cfg.DedupCacheSize, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create dispatcher")
	}

	dispatchCtx := ctx
	if timeout := cfg.GetRequestTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		dispatchCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	if err := d.Apply(dispatchCtx, *buffer, set); err != nil {
		logger.Fatal().Err(err).Msg("dispatch failed")
	}
	logger.Info().
		Int("folds", set.Len()).
		Str("strategy", string(d.Strategy())).
		Dur("elapsed", time.Since(start)).
		Msg("folds installed")
}

// runBench dispatches the same fold set under every strategy and reports
// per-strategy wall time
func runBench(ctx context.Context, cfg *config.Config, sess *session.Session, set *fold.Set, logger zerolog.Logger) {
	logger.Info().
		Int("folds", set.Len()).
		Int("rounds", cfg.BenchRounds).
		Msg("benchmarking dispatch strategies")

	for _, strategy := range dispatch.Strategies() {
		d, err := dispatch.New(sess, strategy, cfg.DedupCacheSize, zerolog.Nop())
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create dispatcher")
		}

		start := time.Now()
		for round := 0; round < cfg.BenchRounds; round++ {
			// Each round must hit the wire, not the signature cache.
			d.Invalidate(0)
			if err := d.Apply(ctx, 0, set); err != nil {
				logger.Fatal().Err(err).Str("strategy", string(d.Strategy())).Msg("dispatch failed")
			}
		}
		elapsed := time.Since(start)

		logger.Info().
			Str("strategy", string(d.Strategy())).
			Dur("total", elapsed).
			Dur("perDispatch", elapsed/time.Duration(cfg.BenchRounds)).
			Msg("strategy timed")
	}
}

// readRanges loads the fold set from a JSON file or stdin
func readRanges(path string) (*fold.Set, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ranges: %w", err)
	}

	var pairs [][2]int
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("ranges must be a JSON array of [start,end] pairs: %w", err)
	}

	set := fold.NewSet()
	for _, p := range pairs {
		r, err := fold.NewRange(p[0], p[1])
		if err != nil {
			return nil, fmt.Errorf("invalid range %v: %w", p, err)
		}
		set.Add(r)
	}
	return set, nil
}

// setupLogger configures the zerolog logger
func setupLogger(level string) zerolog.Logger {
	var logLevel zerolog.Level
	switch level {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}

	return zerolog.New(output).With().Timestamp().Logger()
}
