/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/digital-blueprint/apiserver/config"
	"github.com/digital-blueprint/apiserver/internal/report"
	"github.com/digital-blueprint/apiserver/internal/server"
	"github.com/digital-blueprint/apiserver/internal/store"
	"github.com/digital-blueprint/apiserver/types"
	"github.com/spf13/cobra"
)

var reportOpts struct {
	user      string
	section   string
	format    string
	out       string
	responses string
}

// reportCmd renders a section report to a local file.
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render a section report to a file",
	Long: `Render a section report to a file. The answers come from the stored
progress of --user, or from a JSON object of prompt id to answer given with
--responses.

	blueprint report --section audience --user 42 --format pdf
	blueprint report --section audience --responses answers.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if reportOpts.user == "" && reportOpts.responses == "" {
			return errors.New("either --user or --responses is required")
		}
		format, err := report.ParseFormat(reportOpts.format)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		components, err := server.Build(ctx, config.LoadConfig())
		if err != nil {
			return err
		}
		defer components.Close()

		section, err := components.Catalog.GetSectionBySlug(ctx, reportOpts.section)
		if errors.Is(err, store.ErrNotFound) {
			section, err = components.Catalog.GetSection(ctx, reportOpts.section)
		}
		if err != nil {
			return fmt.Errorf("section %q: %w", reportOpts.section, err)
		}

		var result report.Result
		if reportOpts.responses != "" {
			result, err = previewFromFile(ctx, components, section.ID, format)
		} else {
			result, err = components.Reports.Export(ctx, reportOpts.user, section.ID, format)
		}
		if err != nil {
			return err
		}

		path := reportOpts.out
		if path == "" {
			path = result.Filename
		} else if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
			path = filepath.Join(path, result.Filename)
		}
		if err := os.WriteFile(path, result.Data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", path, len(result.Data))
		return nil
	},
}

func previewFromFile(ctx context.Context, components *server.Components, sectionID string, format report.Format) (report.Result, error) {
	data, err := os.ReadFile(reportOpts.responses)
	if err != nil {
		return report.Result{}, err
	}
	var responses types.Responses
	if err := json.Unmarshal(data, &responses); err != nil {
		return report.Result{}, fmt.Errorf("parse %s: %w", reportOpts.responses, err)
	}
	return components.Reports.Preview(ctx, sectionID, responses, format)
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportOpts.section, "section", "", "section slug or id")
	reportCmd.Flags().StringVar(&reportOpts.user, "user", "", "user whose stored progress is reported")
	reportCmd.Flags().StringVar(&reportOpts.responses, "responses", "", "JSON file of prompt id to answer")
	reportCmd.Flags().StringVarP(&reportOpts.format, "format", "f", "pdf", "json, html or pdf")
	reportCmd.Flags().StringVarP(&reportOpts.out, "out", "o", "", "output file or directory")
	_ = reportCmd.MarkFlagRequired("section")
}
