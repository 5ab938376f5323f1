package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/xfinder/xfinder/internal/exclude"
	"github.com/xfinder/xfinder/internal/indexer"
	"github.com/xfinder/xfinder/internal/scanner"
)

func newIndexCmd() *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "index <path>",
		Short: "Build or rebuild the index over path",
		Long: `index runs a full indexing pass over path: scans, hashes, and
writes every included file into the inverted index and metadata store.

It refuses to run while 'xfinder watch' is active against the same state
directory, since the index directory is single-writer.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, args[0], full)
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Hash full file contents instead of the fast first-block hash")

	return cmd
}

func runIndex(cmd *cobra.Command, root string, full bool) error {
	c, err := openCoordinator()
	if err != nil {
		return err
	}
	defer c.Close()

	hashMode := indexer.HashFast
	if full {
		hashMode = indexer.HashFull
	}

	policy := exclude.Policy{
		Extensions: c.Config.Exclusions.Extensions,
		Patterns:   c.Config.Exclusions.Patterns,
		Dirs:       c.Config.Exclusions.Dirs,
	}

	out := cmd.OutOrStdout()
	live := isTTY(out)

	ix := c.Indexer()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range ix.ProgressStream() {
			slog.Info("indexing progress",
				"run_id", p.RunID,
				"scanned", p.FilesScanned,
				"indexed", p.FilesIndexed,
				"errors", p.Errors,
			)
			switch {
			case p.Done:
				if live {
					fmt.Fprint(out, "\r")
				}
				fmt.Fprintf(out, "indexed %d files (%d errors) in %dms\n",
					p.FilesIndexed, p.Errors, p.ElapsedMillis)
			case live:
				fmt.Fprintf(out, "\rscanned %d, indexed %d, errors %d", p.FilesScanned, p.FilesIndexed, p.Errors)
			}
		}
	}()

	maxFiles := scanner.NoFileLimit
	if !c.Config.Indexing.NoFileLimit {
		maxFiles = c.Config.Indexing.MaxFilesToIndex
	}

	ix.Run(cmd.Context(), indexer.Config{
		Roots:    []string{root},
		Policy:   policy,
		HashMode: hashMode,
		MaxFiles: maxFiles,
	})
	<-done
	return nil
}
