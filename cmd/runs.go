package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/smc1992/leadgen-ai/internal/resilience"
	"github.com/smc1992/leadgen-ai/internal/runs"
	"github.com/smc1992/leadgen-ai/internal/store"
	"github.com/smc1992/leadgen-ai/pkg/apify"
)

var (
	runsUserID    string
	runsInputFile string
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Start and inspect remote scrape runs",
}

var runsStartCmd = &cobra.Command{
	Use:   "start <linkedin|maps|validator>",
	Short: "Start a scrape run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tracker, st, err := buildTracker(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		input := map[string]any{}
		if runsInputFile != "" {
			raw, err := os.ReadFile(runsInputFile)
			if err != nil {
				return eris.Wrap(err, "runs: read input file")
			}
			if err := json.Unmarshal(raw, &input); err != nil {
				return eris.Wrap(err, "runs: parse input file")
			}
		}

		run, err := tracker.Start(cmd.Context(), runsUserID, args[0], input)
		if err != nil {
			return err
		}
		fmt.Printf("run %s started (%s)\n", run.ID, run.Status)
		return nil
	},
}

var runsStatusCmd = &cobra.Command{
	Use:   "status <run-id>",
	Short: "Check a scrape run and fetch its results when finished",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tracker, st, err := buildTracker(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		result, err := tracker.CheckStatus(cmd.Context(), runsUserID, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("run %s: %s\n", result.Run.ID, result.Run.Status)
		if result.Finished {
			if result.Run.ErrorMessage != "" {
				fmt.Printf("error: %s\n", result.Run.ErrorMessage)
			} else {
				fmt.Printf("%d leads retrieved\n", len(result.Leads))
				out, err := json.MarshalIndent(result.Leads, "", "  ")
				if err != nil {
					return eris.Wrap(err, "runs: marshal leads")
				}
				fmt.Println(string(out))
			}
		}
		return nil
	},
}

func buildTracker(cmd *cobra.Command) (*runs.Tracker, store.Store, error) {
	if cfg.Apify.Token == "" {
		return nil, nil, resilience.Classify(resilience.ClassUnavailable, errors.New("runs: no scrape provider token configured"))
	}

	st, err := openStore(cmd.Context(), cfg.Store)
	if err != nil {
		return nil, nil, err
	}
	if err := st.Migrate(cmd.Context()); err != nil {
		st.Close()
		return nil, nil, eris.Wrap(err, "runs: migrate")
	}

	client := apify.NewClient(cfg.Apify.Token, apify.WithBaseURL(cfg.Apify.BaseURL))
	return runs.NewTracker(client, st, cfg.Apify), st, nil
}

func init() {
	runsCmd.PersistentFlags().StringVar(&runsUserID, "user", "", "owner user id (UUID)")
	_ = runsCmd.MarkPersistentFlagRequired("user")
	runsStartCmd.Flags().StringVar(&runsInputFile, "input", "", "JSON file with actor input parameters")
	runsCmd.AddCommand(runsStartCmd, runsStatusCmd)
	rootCmd.AddCommand(runsCmd)
}
