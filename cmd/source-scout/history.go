// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/pdiddy/source-scout/internal/archive"
	"github.com/pdiddy/source-scout/internal/pipeline"
	"github.com/pdiddy/source-scout/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List and search archived runs",
	Long: `History reads the run archive (output.archive_path). Use list to see past
runs, show to print one run's items, and search to find items across runs
by title or summary.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openArchive()
		if err != nil {
			return err
		}
		defer a.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := a.ListRuns(cmd.Context(), limit)
		if err != nil {
			return err
		}
		return formatRuns(cmd.OutOrStdout(), runs)
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print the items of one archived run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openArchive()
		if err != nil {
			return err
		}
		defer a.Close()

		run, err := a.Run(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		opts := itemOptsFromFlags(cmd)
		opts.RunID = run.ID
		items, err := a.Items(cmd.Context(), opts)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s  %s  (%s)\n", run.ID, run.Name, humanize.Time(run.CreatedAt))
		fmt.Fprintf(w, "queries:   %s\n", strings.Join(run.Config.SearchPhrases, "; "))
		fmt.Fprintf(w, "questions: %s\n", strings.Join(run.Config.SpecificQuestions, "; "))
		if run.Dir != "" {
			fmt.Fprintf(w, "directory: %s\n", run.Dir)
		}
		fmt.Fprintln(w)
		return formatItems(w, items, jsonFlag(cmd))
	},
}

var historySearchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Search archived items by title or summary",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openArchive()
		if err != nil {
			return err
		}
		defer a.Close()

		opts := itemOptsFromFlags(cmd)
		opts.Text = strings.Join(args, " ")
		opts.RunID, _ = cmd.Flags().GetString("run")
		items, err := a.Items(cmd.Context(), opts)
		if err != nil {
			return err
		}
		return formatItems(cmd.OutOrStdout(), items, jsonFlag(cmd))
	},
}

func openArchive() (*archive.Archive, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Output.ArchivePath == "" {
		return nil, fmt.Errorf("no archive configured: set output.archive_path")
	}
	return archive.Open(cfg.Output.ArchivePath)
}

func itemOptsFromFlags(cmd *cobra.Command) archive.QueryOptions {
	bucket, _ := cmd.Flags().GetString("bucket")
	platform, _ := cmd.Flags().GetString("platform")
	limit, _ := cmd.Flags().GetInt("limit")
	return archive.QueryOptions{
		Bucket:     pipeline.Bucket(bucket),
		Platform:   platform,
		MaxResults: limit,
	}
}

func jsonFlag(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func formatRuns(w io.Writer, runs []archive.RunRecord) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs archived.")
		return nil
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Name", "Created", "Top", "Filtered"})
	table.SetBorder(false)
	table.SetAutoFormatHeaders(false)
	for _, r := range runs {
		filtered := r.Counts[pipeline.BucketNoContent] + r.Counts[pipeline.BucketLowRelevance] + r.Counts[pipeline.BucketRejected]
		table.Append([]string{
			r.ID, r.Name, humanize.Time(r.CreatedAt),
			strconv.Itoa(r.Counts[pipeline.BucketTop]), strconv.Itoa(filtered),
		})
	}
	table.Render()
	return nil
}

// itemJSON is the --json shape of an archived item.
type itemJSON struct {
	RunID    string          `json:"run_id"`
	Run      string          `json:"run"`
	Bucket   pipeline.Bucket `json:"bucket"`
	Platform string          `json:"platform"`
	Title    string          `json:"title"`
	Item     *types.Item     `json:"item"`
}

func formatItems(w io.Writer, items []archive.ItemRecord, asJSON bool) error {
	if asJSON {
		out := make([]itemJSON, 0, len(items))
		for _, it := range items {
			out = append(out, itemJSON{it.RunID, it.RunName, it.Bucket, it.Platform, it.Title, it.Item})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(items) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Run", "Bucket", "Platform", "Title", "Summary"})
	table.SetBorder(false)
	table.SetAutoFormatHeaders(false)
	table.SetColWidth(60)
	for _, it := range items {
		table.Append([]string{it.RunName, string(it.Bucket), it.Platform, it.Title, shorten(it.Summary, 120)})
	}
	table.Render()
	fmt.Fprintf(w, "\n%d results\n", len(items))
	return nil
}

func shorten(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	historyListCmd.Flags().Int("limit", 20, "maximum runs to list (0 = all)")

	for _, c := range []*cobra.Command{historyShowCmd, historySearchCmd} {
		c.Flags().String("bucket", "", "filter by bucket: top, no_content, low_relevance, rejected")
		c.Flags().String("platform", "", "filter by platform")
		c.Flags().Int("limit", 0, "maximum results (0 = 50)")
		c.Flags().Bool("json", false, "output results as JSON")
	}
	historySearchCmd.Flags().String("run", "", "restrict to one run ID")

	historyCmd.AddCommand(historyListCmd, historyShowCmd, historySearchCmd)
	rootCmd.AddCommand(historyCmd)
}
