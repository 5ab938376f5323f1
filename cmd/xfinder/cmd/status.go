package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

type statusInfo struct {
	StateDir     string               `json:"state_dir"`
	TotalFiles   int64                `json:"total_files"`
	ByExtension  []extensionStatusRow `json:"by_extension"`
	MetadataSize int64                `json:"metadata_size_bytes"`
	IndexSize    int64                `json:"index_size_bytes"`
	VectorSize   int64                `json:"vector_size_bytes"`
}

type extensionStatusRow struct {
	Extension string `json:"extension"`
	Count     int64  `json:"count"`
	TotalSize int64  `json:"total_size_bytes"`
}

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index size and file counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func runStatus(cmd *cobra.Command, jsonOutput bool) error {
	c, err := openCoordinator()
	if err != nil {
		return err
	}
	defer c.Close()

	total, err := c.Meta.CountFiles()
	if err != nil {
		return fmt.Errorf("count files: %w", err)
	}
	byExt, err := c.Meta.StatsByExtension()
	if err != nil {
		return fmt.Errorf("stats by extension: %w", err)
	}

	info := statusInfo{
		StateDir:     c.StateDir,
		TotalFiles:   total,
		MetadataSize: dirSize(c.StateDir, "xfinder.db"),
		IndexSize:    dirSize(c.StateDir, "index"),
		VectorSize:   dirSize(c.StateDir, "vectors.hnsw"),
	}
	for _, e := range byExt {
		info.ByExtension = append(info.ByExtension, extensionStatusRow{
			Extension: e.Extension,
			Count:     e.Count,
			TotalSize: e.TotalSize,
		})
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "state dir:   %s\n", info.StateDir)
	fmt.Fprintf(cmd.OutOrStdout(), "files:       %d\n", info.TotalFiles)
	fmt.Fprintf(cmd.OutOrStdout(), "metadata db: %s\n", humanize.Bytes(uint64(info.MetadataSize)))
	fmt.Fprintf(cmd.OutOrStdout(), "index:       %s\n", humanize.Bytes(uint64(info.IndexSize)))
	fmt.Fprintf(cmd.OutOrStdout(), "vectors:     %s\n", humanize.Bytes(uint64(info.VectorSize)))
	for _, e := range info.ByExtension {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-10s %6d files  %s\n", e.Extension, e.Count, humanize.Bytes(uint64(e.TotalSize)))
	}
	return nil
}

// dirSize returns the size in bytes of the file or directory tree at
// filepath.Join(stateDir, name), or 0 if it doesn't exist.
func dirSize(stateDir, name string) int64 {
	path := filepath.Join(stateDir, name)
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	if !info.IsDir() {
		return info.Size()
	}
	var total int64
	_ = filepath.Walk(path, func(_ string, fi os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !fi.IsDir() {
			total += fi.Size()
		}
		return nil
	})
	return total
}
