package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/smc1992/leadgen-ai/internal/adapter"
	"github.com/smc1992/leadgen-ai/internal/enrich"
	"github.com/smc1992/leadgen-ai/internal/ingest"
	"github.com/smc1992/leadgen-ai/internal/model"
	"github.com/smc1992/leadgen-ai/internal/scoring"
)

var (
	ingestUserID   string
	ingestProvider string
	ingestListName string
	ingestListID   string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.json>",
	Short: "Ingest a batch of scraped records from a JSON file",
	Long: `Reads a JSON array of raw scraped records, normalizes them through the
source adapters, and runs the full pipeline: enrichment, dedup, scoring,
persistence, and optional list attachment.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrap(err, "ingest: read input file")
		}

		var records []map[string]any
		if err := json.Unmarshal(raw, &records); err != nil {
			return eris.Wrap(err, "ingest: parse input file")
		}

		st, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "ingest: migrate")
		}

		var enricher *enrich.Enricher
		if cfg.Enrich.Enabled {
			enricher = enrich.New(cfg.Enrich)
		}
		pipeline := ingest.New(st, enricher, scoring.New(cfg.Scoring))

		var batch []model.ScrapedLead
		if ingestProvider == "" {
			if err := json.Unmarshal(raw, &batch); err != nil {
				return eris.Wrap(err, "ingest: parse normalized leads")
			}
		} else {
			batch = adapter.AdaptAll(records, ingestProvider)
		}

		result, err := pipeline.Ingest(ctx, ingestUserID, ingest.Request{
			Leads:          batch,
			ListName:       ingestListName,
			AttachToListID: ingestListID,
		})
		if err != nil {
			return err
		}

		fmt.Printf("inserted %d leads (%d duplicates dropped)\n", len(result.Leads), result.Duplicates)
		if result.ListID != nil {
			fmt.Printf("attached to list %s\n", *result.ListID)
		}
		if result.AttachError != "" {
			fmt.Println(result.AttachError)
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestUserID, "user", "", "owner user id (UUID)")
	ingestCmd.Flags().StringVar(&ingestProvider, "provider", "", "raw record provider (linkedin|maps|validator); omit for pre-normalized leads")
	ingestCmd.Flags().StringVar(&ingestListName, "list-name", "", "create a new list with this name and attach the batch")
	ingestCmd.Flags().StringVar(&ingestListID, "list-id", "", "attach the batch to an existing list")
	_ = ingestCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(ingestCmd)
}
