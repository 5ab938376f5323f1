package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/xfinder/xfinder/internal/exclude"
	"github.com/xfinder/xfinder/internal/scanner"
)

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <path>",
		Short: "List the files a scan would include, without indexing them",
		Long: `scan walks path applying the configured exclusion policy and
prints every included file. It never writes to the index; use it to check
that exclusions are set up the way you expect before running 'xfinder
index'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, args[0])
		},
	}
	return cmd
}

func runScan(cmd *cobra.Command, root string) error {
	c, err := openCoordinator()
	if err != nil {
		return err
	}
	defer c.Close()

	policy := exclude.Policy{
		Extensions: c.Config.Exclusions.Extensions,
		Patterns:   c.Config.Exclusions.Patterns,
		Dirs:       c.Config.Exclusions.Dirs,
	}

	s := scanner.New(policy)
	results := s.Scan(cmd.Context(), root, scanner.NoFileLimit)

	var files, totalSize int64
	for r := range results {
		if r.Error != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "skip: %v\n", r.Error)
			continue
		}
		fmt.Fprintln(cmd.OutOrStdout(), r.File.Path)
		files++
		totalSize += r.File.Size
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "%d files, %s\n", files, humanize.Bytes(uint64(totalSize)))
	return nil
}
