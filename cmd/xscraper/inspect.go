package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"xscraper/pkg/collector"
	"xscraper/pkg/extract"
	"xscraper/pkg/models"
	"xscraper/pkg/page/snapshot"
)

var (
	inspectList  string
	inspectTable bool
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <page.html>",
	Short: "Run the extractors against saved page markup",
	Long: `Run the configured selectors and extraction strategies against a saved
HTML page, without a browser or session.

Use this to check selector changes: save a profile, followers or following
page from the browser (outer HTML of the document) and inspect it with the
matching --list.`,
	Example: `  xscraper inspect profile.html
  xscraper inspect followers.html --list followers --table`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVar(&inspectList, "list", string(models.ListTimeline), "list the page shows (timeline, followers, following)")
	inspectCmd.Flags().BoolVar(&inspectTable, "table", false, "print a table instead of JSON")
}

func runInspect(cmd *cobra.Command, args []string) error {
	kind := models.ListKind(inspectList)
	switch kind {
	case models.ListTimeline, models.ListFollowers, models.ListFollowing:
	default:
		return fmt.Errorf("unknown list %q", inspectList)
	}

	cfg, lg, err := loadConfig(flagMap(cmd))
	if err != nil {
		return err
	}
	markup, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read page: %w", err)
	}
	p, err := snapshot.FromHTML(string(markup))
	if err != nil {
		return err
	}
	ex, err := extract.New(cfg.Extraction, cfg.Timeouts)
	if err != nil {
		return err
	}

	// One frame, no pacing, no caps
	settings := collector.SettingsFromConfig(cfg)
	settings.SettleDelay = 0
	settings.StepDelay = 0
	limits := collector.Limits{MaxScrollAttempts: 1, MaxStaleScrolls: 1}
	switch kind {
	case models.ListTimeline:
		limits.MaxPosts, limits.MaxReposts = math.MaxInt32, math.MaxInt32
	case models.ListFollowers:
		limits.MaxFollowers = math.MaxInt32
	case models.ListFollowing:
		limits.MaxFollowing = math.MaxInt32
	}

	ctx := cmd.Context()
	out, err := collector.New(ex, settings, collector.WithLogger(lg)).Run(ctx, p, kind, limits)
	if err != nil {
		return err
	}

	result := models.NewAggregateResult()
	result.Profile = ex.Profile(ctx, p)
	result.Posts = append(result.Posts, out.Posts...)
	result.Reposts = append(result.Reposts, out.Reposts...)
	switch kind {
	case models.ListFollowers:
		result.Followers = append(result.Followers, out.Social...)
	case models.ListFollowing:
		result.Following = append(result.Following, out.Social...)
	}

	if inspectTable {
		renderInspection(result)
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func renderInspection(r *models.AggregateResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("%s • %s", r.Profile.IdentityName, truncate(r.Profile.Bio, 60)))
	t.AppendHeader(table.Row{"Kind", "ID / Handle", "Author", "Date", "Text"})
	for _, item := range r.Posts {
		t.AppendRow(table.Row{"post", item.ItemID, "", item.PublishedAt, truncate(item.Text, 60)})
	}
	for _, item := range r.Reposts {
		t.AppendRow(table.Row{"repost", item.ItemID, item.OriginalAuthor, item.RepostedAt, truncate(item.OriginalText, 60)})
	}
	for _, list := range [][]models.SocialEntry{r.Followers, r.Following} {
		for _, e := range list {
			t.AppendRow(table.Row{string(e.Role), e.Handle, e.DisplayName, "", truncate(e.Bio, 60)})
		}
	}
	t.Render()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
