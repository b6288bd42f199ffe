// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/pdiddy/source-scout/internal/archive"
	"github.com/pdiddy/source-scout/internal/coordinator"
	"github.com/pdiddy/source-scout/internal/llm"
	"github.com/pdiddy/source-scout/internal/logging"
	"github.com/pdiddy/source-scout/internal/output"
	"github.com/pdiddy/source-scout/internal/pipeline"
	"github.com/pdiddy/source-scout/internal/source"
	"github.com/pdiddy/source-scout/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Search every configured platform and rank the sources found",
	Long: `Run sends each search phrase to each platform in order, collects detail
content for the best candidates, and asks the LLM to summarize each one and
answer the configured questions. Sources with at least one accepted answer
are ranked by how many they got; the top ones per platform are written to
<runs_dir>/<timestamp>_<name>/<name>.yaml and the rest to filtered_data.yaml.

Flags override the run section of the config file.`,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyRunFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := logging.Component("cli")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	chat, err := llm.NewChatModel(ctx, cfg.LLM)
	if err != nil {
		return err
	}
	summarizer := llm.NewChatSummarizer(chat, cfg.LLM)

	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		name, err = summarizer.NameRun(ctx, cfg.Run.SearchPhrases, cfg.Run.SpecificQuestions)
		if err != nil {
			log.Warnf("naming run failed, using %q: %v", name, err)
		}
	}
	name = llm.Slug(name)

	client := &http.Client{Timeout: cfg.Execution.Timeout}
	factory := func(platform string) (source.Adapter, error) {
		return source.New(platform, cfg.Platforms, client)
	}
	coord := coordinator.New(factory, summarizer, pipeline.Options{
		OverfetchFactor: cfg.Execution.OverfetchFactor,
		Parallelism:     cfg.Execution.Parallelism,
	})

	log.WithField("name", name).Infof("starting run over %v", cfg.Run.NormalizedPlatforms())
	out := coord.Run(ctx, cfg.Run.Platforms, pipeline.Params{
		Queries:               cfg.Run.SearchPhrases,
		SourcesPerQuery:       cfg.Execution.SourcesPerQuery,
		Questions:             cfg.Run.SpecificQuestions,
		MaxOutputsPerPlatform: cfg.Run.MaxOutputsPerPlatform,
	})

	run, err := output.CreateRunDir(cfg.Output.RunsDir, name)
	if err != nil {
		return err
	}
	if err := output.Write(run, out.Result, cfg.Run); err != nil {
		return err
	}

	noArchive, _ := cmd.Flags().GetBool("no-archive")
	if !noArchive && cfg.Output.ArchivePath != "" {
		if err := archiveRun(context.WithoutCancel(ctx), cfg.Output.ArchivePath, run, cfg.Run, out.Result); err != nil {
			log.Warnf("archiving run failed: %v", err)
		}
	}

	printRunSummary(cmd.OutOrStdout(), run, out)
	return ctx.Err()
}

func archiveRun(ctx context.Context, path string, run output.Run, cfg types.RunConfig, res pipeline.Result) error {
	a, err := archive.Open(path)
	if err != nil {
		return err
	}
	defer a.Close()
	id, err := a.SaveRun(ctx, run.Name, run.Dir, cfg, res)
	if err != nil {
		return err
	}
	logging.Component("cli").WithField("run_id", id).Info("run archived")
	return nil
}

// printRunSummary writes per-platform bucket counts and any skipped
// platforms.
func printRunSummary(w io.Writer, run output.Run, out coordinator.Output) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Platform", "Top", "No content", "Low relevance", "Rejected"})
	table.SetBorder(false)
	table.SetAutoFormatHeaders(false)

	totals := make([]int, len(pipeline.Buckets))
	for _, platform := range out.Platforms {
		row := []string{platform}
		for i, b := range pipeline.Buckets {
			n := out.Store(b).PlatformLen(platform)
			totals[i] += n
			row = append(row, strconv.Itoa(n))
		}
		table.Append(row)
	}
	footer := []string{"Total"}
	for _, n := range totals {
		footer = append(footer, strconv.Itoa(n))
	}
	table.SetFooter(footer)
	table.Render()

	for _, s := range out.Skipped {
		fmt.Fprintf(w, "skipped %s: %s\n", s.Platform, s.Reason)
	}
	fmt.Fprintf(w, "\nresults written to %s\n", run.Dir)
}

func addRunFlags(c *cobra.Command) {
	c.Flags().StringArrayP("query", "q", nil, "search phrase (repeatable)")
	c.Flags().StringSliceP("platform", "p", nil, "platforms to search, in order (comma-separated or repeatable)")
	c.Flags().StringArray("question", nil, "relevance question asked of every source (repeatable)")
	c.Flags().Int("max-outputs", 0, "top sources kept per platform")
	c.Flags().Int("sources-per-query", 0, "sources kept per query per platform")
	c.Flags().Int("parallelism", 0, "concurrent detail fetches and LLM tagging per platform")
	c.Flags().String("runs-dir", "", "parent directory for run output")
	c.Flags().String("name", "", "run name (default: generated by the LLM)")
	c.Flags().Bool("no-archive", false, "do not record the run in the archive")
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}
