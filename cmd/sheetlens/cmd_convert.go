package main

import (
	"fmt"
	"strings"

	"sheetlens/adapters/columnar"
	"sheetlens/internal/errors"

	"github.com/spf13/cobra"
)

func newConvertCmd(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "convert <data_file>",
		Short: "Convert a spreadsheet to a Parquet file",
		Long: `Convert the first sheet of a workbook to a Snappy-compressed Parquet file in the
processed data directory. The file is named after the workbook unless --name is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !fileExists(out, "Data", args[0]) {
				return nil
			}
			if strings.ContainsAny(name, `/\`) {
				return errors.InvalidInput("--name must not contain path separators")
			}

			table, err := loadTable(out, args[0])
			if err != nil {
				return err
			}
			path, err := a.parquetWriter().Save(table, name, args[0])
			if err != nil {
				return err
			}

			info, err := columnar.Inspect(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "💾 Saved to %s (%.1f KB)\n", path, float64(info.Size)/1024)
			fmt.Fprintf(out, "🔍 Read back %d rows × %d columns\n", info.Rows, len(info.Columns))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "output file name without extension")
	return cmd
}
