package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/xfinder/xfinder/internal/query"
)

type searchOptions struct {
	limit         int
	extensions    []string
	sortBy        string
	exact         bool
	caseSensitive bool
	fuzzy         bool
	jsonOutput    bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringSliceVar(&opts.extensions, "ext", nil, "Filter by extension, repeatable (e.g. --ext .pdf --ext .docx)")
	cmd.Flags().StringVar(&opts.sortBy, "sort", "relevance", "Sort by: relevance, name, size, modified")
	cmd.Flags().BoolVar(&opts.exact, "exact", false, "Require an exact phrase match")
	cmd.Flags().BoolVar(&opts.caseSensitive, "case-sensitive", false, "Case-sensitive match")
	cmd.Flags().BoolVar(&opts.fuzzy, "fuzzy", false, "Allow fuzzy (edit-distance) matches")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runSearch(cmd *cobra.Command, text string, opts searchOptions) error {
	c, err := openCoordinator()
	if err != nil {
		return err
	}
	defer c.Close()

	req := query.Request{
		Text:          text,
		Limit:         opts.limit,
		ExactMatch:    opts.exact,
		CaseSensitive: opts.caseSensitive,
		FuzzySearch:   opts.fuzzy,
		FuzzyDistance: 2,
		Extensions:    opts.extensions,
		SortBy:        query.SortBy(opts.sortBy),
	}

	start := time.Now()
	results, err := c.Query.Search(req)
	elapsed := time.Since(start)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	_ = c.Query.RecordHistory(text, len(results), elapsed)

	if opts.jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	for _, r := range results {
		modified := time.Unix(r.Modified, 0)
		fmt.Fprintf(cmd.OutOrStdout(), "%s  (%s, %s)\n", r.Path, humanize.Bytes(uint64(r.Size)), modified.Format(time.RFC3339))
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%d results in %s\n", len(results), elapsed)
	return nil
}
