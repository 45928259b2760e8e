/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/ssargent/brokerdb/pkg/codec"
	"github.com/ssargent/brokerdb/pkg/store"
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify [file]",
	Short: "Decode a persistence file and check its records",
	Long: `Decode every chunk of a persistence file, check that client messages and
retained messages refer to stored messages, and print record counts and the
BLAKE3 digest of the uncompressed file.

With --strict, referential problems fail the command.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		strict, _ := cmd.Flags().GetBool("strict")
		cfg := container.Config()
		return runVerify(cmd.Context(), cmd.OutOrStdout(), checkpointPath(args), cfg.Persistence.BufferSize, strict)
	},
}

var verifyOrder = []codec.ChunkType{
	codec.ChunkConfig,
	codec.ChunkMessageStore,
	codec.ChunkClientMessage,
	codec.ChunkRetain,
	codec.ChunkSubscription,
	codec.ChunkClient,
}

func runVerify(ctx context.Context, out io.Writer, path string, bufferSize int, strict bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	state, result, err := store.LoadFile(ctx, path, bufferSize, container.Metrics())
	if err != nil {
		return err
	}

	printf(out, "File:    %s\n", result.Path)
	printf(out, "Bytes:   %d\n", result.Bytes)
	printf(out, "Digest:  %s\n", result.Digest)
	printf(out, "Chunks:  %d (%d skipped)\n", result.Chunks, result.Skipped)

	counts := state.Counts()
	for _, t := range verifyOrder {
		printf(out, "  %-10s %d\n", t, counts[t])
	}

	if len(result.Issues) == 0 {
		printf(out, "OK\n")
		return nil
	}

	printf(out, "Issues:  %d\n", len(result.Issues))
	for _, issue := range result.Issues {
		printf(out, "  %s\n", issue)
	}
	if strict {
		return errors.Errorf("%d referential issues in %s", len(result.Issues), path)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().Bool("strict", false, "Fail when records reference missing messages")
}
