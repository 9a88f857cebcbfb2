package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"kgsa/internal/airtable"
	"kgsa/internal/config"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var dirFlag string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dump the base schema and every table to JSON files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			dir := cfg.Paths.ExportDir
			if strings.TrimSpace(dirFlag) != "" {
				if dir, err = config.ExpandPath(dirFlag); err != nil {
					return err
				}
			}
			client, err := ctx.airtableClient(logger)
			if err != nil {
				return err
			}

			result, err := airtable.Export(cmd.Context(), client, dir, logger)
			if err != nil {
				return fmt.Errorf("export base %s: %w", client.BaseID(), err)
			}

			rows := make([][]string, 0, len(result.Tables))
			for _, table := range result.Tables {
				rows = append(rows, []string{table.Name, strconv.Itoa(table.Records), table.Path})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Schema written to %s\n", result.SchemaPath)
			fmt.Fprint(out, renderTable([]string{"Table", "Records", "File"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft}))
			return nil
		},
	}
	cmd.Flags().StringVarP(&dirFlag, "dir", "d", "", "Output directory (defaults to paths.export_dir)")
	return cmd
}
