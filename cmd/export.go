package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"

	"github.com/smc1992/leadgen-ai/internal/model"
	"github.com/smc1992/leadgen-ai/internal/store"
)

var (
	exportUserID string
	exportListID string
	exportReady  bool
)

var exportHeader = []string{
	"full_name", "job_title", "company", "email", "phone", "website",
	"city", "country", "region", "channel", "score", "outreach_ready",
	"email_status",
}

var exportCmd = &cobra.Command{
	Use:   "export <file.xlsx|file.csv>",
	Short: "Export a user's leads to a spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		leads, err := fetchAllLeads(ctx, st, exportUserID)
		if err != nil {
			return err
		}

		path := args[0]
		switch {
		case strings.HasSuffix(path, ".csv"):
			err = writeCSV(path, leads)
		case strings.HasSuffix(path, ".xlsx"):
			err = writeXLSX(path, leads)
		default:
			return eris.Errorf("export: unsupported file extension on %q", path)
		}
		if err != nil {
			return err
		}

		fmt.Printf("exported %d leads to %s\n", len(leads), path)
		return nil
	},
}

func fetchAllLeads(ctx context.Context, st store.Store, userID string) ([]model.Lead, error) {
	filter := store.LeadFilter{ListID: exportListID, Limit: 200}
	if exportReady {
		ready := true
		filter.OutreachReady = &ready
	}

	var all []model.Lead
	for page := 1; ; page++ {
		filter.Page = page
		result, err := st.ListLeads(ctx, userID, filter)
		if err != nil {
			return nil, eris.Wrap(err, "export: list leads")
		}
		all = append(all, result.Leads...)
		if page >= result.TotalPages || len(result.Leads) == 0 {
			break
		}
	}
	return all, nil
}

func leadRow(l model.Lead) []string {
	return []string{
		l.FullName, l.JobTitle, l.Company, l.Email, l.Phone, l.WebsiteURL,
		l.City, l.Country, l.Region, string(l.Channel),
		strconv.Itoa(l.Score), strconv.FormatBool(l.IsOutreachReady),
		string(l.EmailStatus),
	}
}

func writeCSV(path string, leads []model.Lead) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create csv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(exportHeader); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	for _, l := range leads {
		if err := w.Write(leadRow(l)); err != nil {
			return eris.Wrap(err, "export: write row")
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "export: flush csv")
}

func writeXLSX(path string, leads []model.Lead) error {
	wb := xlsx.NewFile()
	sheet, err := wb.AddSheet("Leads")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range exportHeader {
		header.AddCell().SetString(h)
	}
	for _, l := range leads {
		row := sheet.AddRow()
		for _, v := range leadRow(l) {
			row.AddCell().SetString(v)
		}
	}

	return eris.Wrap(wb.Save(path), "export: save workbook")
}

func init() {
	exportCmd.Flags().StringVar(&exportUserID, "user", "", "owner user id (UUID)")
	exportCmd.Flags().StringVar(&exportListID, "list-id", "", "export only leads in this list")
	exportCmd.Flags().BoolVar(&exportReady, "ready-only", false, "export only outreach-ready leads")
	_ = exportCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(exportCmd)
}
