package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/webcrawl/internal/config"
	"github.com/nao1215/webcrawl/internal/database"
)

// hashDisplayLen is the number of hash characters shown in the text listing.
const hashDisplayLen = 12

// NewPagesCmd creates the pages command.
func NewPagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pages",
		Short: "List pages stored in the SQLite database",
		Long: `Pages lists the pages stored by previous crawls that used the
SQLite page store, newest first.

Examples:
  # List the 20 most recently fetched pages
  webcrawl pages --limit 20

  # List every page as JSON from a custom database directory
  webcrawl pages --db-dir ./data --json`,
		Args: cobra.NoArgs,
		RunE: runPagesCmd,
	}

	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the SQLite database")
	cmd.Flags().IntP("limit", "l", 50,
		"Maximum number of pages to list (0 lists all)")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON instead of a table")

	return cmd
}

// runPagesCmd executes the pages command.
func runPagesCmd(cmd *cobra.Command, _ []string) error {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(dbDir, opts)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	records, err := db.ListPages(ctx, limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(records)
	}

	total, err := db.CountPages(ctx)
	if err != nil {
		return err
	}
	return writePageTable(out, records, total)
}

// writePageTable writes records as an aligned text table.
func writePageTable(out io.Writer, records []database.PageRecord, total int) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(out, "No pages stored.")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FETCHED\tSTATUS\tSIZE\tHASH\tURL")
	for _, rec := range records {
		hash := rec.Hash
		if len(hash) > hashDisplayLen {
			hash = hash[:hashDisplayLen]
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n",
			rec.FetchedAt.Local().Format(time.DateTime),
			rec.StatusCode,
			rec.Size,
			hash,
			rec.URL,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(out, "\n%d of %d page(s)\n", len(records), total)
	return err
}
