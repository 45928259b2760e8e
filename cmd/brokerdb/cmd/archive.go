/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"io"
	"path/filepath"

	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"
	"github.com/ssargent/brokerdb/pkg/store"
)

// archiveCmd represents the archive command
var archiveCmd = &cobra.Command{
	Use:   "archive [file] [destination]",
	Short: "Write a zstd compressed copy of a persistence file",
	Long: `Compress a persistence file with zstd. dump and verify read the archive
directly.

Without a destination the archive is written to persistence.archive_dir (or
next to the source) as <name>.<id>.zst, where id is a sortable KSUID.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src := checkpointPath(args)
		dst := ""
		if len(args) > 1 {
			dst = args[1]
		}
		return runArchive(cmd.OutOrStdout(), src, dst, container.Config().Persistence.ArchiveDir)
	},
}

func runArchive(out io.Writer, src, dst, archiveDir string) error {
	if dst == "" {
		dst = archiveName(src, archiveDir)
	}

	result, err := store.Archive(src, dst)
	if err != nil {
		return err
	}

	ratio := 0.0
	if result.BytesIn > 0 {
		ratio = float64(result.BytesOut) / float64(result.BytesIn)
	}
	printf(out, "Archived %s -> %s\n", result.Source, result.Destination)
	printf(out, "Bytes:   %d -> %d (%.1f%%)\n", result.BytesIn, result.BytesOut, ratio*100)
	printf(out, "Digest:  %s\n", result.SourceDigest)
	return nil
}

func archiveName(src, archiveDir string) string {
	dir := archiveDir
	if dir == "" {
		dir = filepath.Dir(src)
	}
	return filepath.Join(dir, filepath.Base(src)+"."+ksuid.New().String()+".zst")
}

func init() {
	rootCmd.AddCommand(archiveCmd)
}
