package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/smc1992/leadgen-ai/internal/auth"
	"github.com/smc1992/leadgen-ai/internal/enrich"
	"github.com/smc1992/leadgen-ai/internal/ingest"
	"github.com/smc1992/leadgen-ai/internal/runs"
	"github.com/smc1992/leadgen-ai/internal/scoring"
	"github.com/smc1992/leadgen-ai/internal/server"
	"github.com/smc1992/leadgen-ai/pkg/apify"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "serve: migrate")
		}

		var enricher *enrich.Enricher
		if cfg.Enrich.Enabled {
			enricher = enrich.New(cfg.Enrich)
		}
		pipeline := ingest.New(st, enricher, scoring.New(cfg.Scoring))

		var tracker *runs.Tracker
		if cfg.Apify.Token != "" {
			client := apify.NewClient(cfg.Apify.Token, apify.WithBaseURL(cfg.Apify.BaseURL))
			tracker = runs.NewTracker(client, st, cfg.Apify)
		} else {
			zap.L().Warn("serve: no scrape provider token, run endpoints disabled")
		}

		srv := server.New(st, pipeline, tracker, auth.NewVerifier(cfg.Auth.JWTSecret), cfg.Server)
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
