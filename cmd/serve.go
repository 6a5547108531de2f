package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resume-matcher/internal/models"
	"resume-matcher/internal/server"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve match requests over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var matchers []server.Matcher
	for _, kind := range []models.Kind{models.KindJob, models.KindResume} {
		p, err := a.pipeline(ctx, kind)
		if err != nil {
			log.Warn().Err(err).Str("kind", string(kind)).Msg("Index unavailable")
			matchers = append(matchers, nil)
			continue
		}
		defer p.Close()
		matchers = append(matchers, p)
	}

	var opts []server.Option
	if chat, err := a.chat(); err == nil {
		opts = append(opts, server.WithAnalyzer(chat))
	} else {
		log.Info().Err(err).Msg("Match analysis disabled")
	}

	srv := server.New(cfg.Server, matchers[0], matchers[1], opts...)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Listen() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
