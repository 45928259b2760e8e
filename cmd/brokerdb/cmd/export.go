/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"github.com/ssargent/brokerdb/pkg/storage"
	"github.com/ssargent/brokerdb/pkg/store"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <file> <index-dir>",
	Short: "Load a persistence file into a pebble index",
	Long: `Decode a persistence file and write every record into a pebble database,
one key per record, replacing whatever the index held before.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd.Context(), cmd.OutOrStdout(), args[0], args[1], container.Config().Persistence.BufferSize)
	},
}

func runExport(ctx context.Context, out io.Writer, path, indexDir string, bufferSize int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	state, result, err := store.LoadFile(ctx, path, bufferSize, container.Metrics())
	if err != nil {
		return err
	}

	idx, err := storage.Open(indexDir)
	if err != nil {
		return err
	}
	defer idx.Close()

	id, err := idx.Export(ctx, state)
	if err != nil {
		return err
	}

	printf(out, "Exported %d records from %s to %s\n", state.Len(), path, indexDir)
	printf(out, "Export:  %s\n", id)
	printf(out, "Digest:  %s\n", result.Digest)
	return nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
