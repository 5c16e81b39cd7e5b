package main

import (
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xscraper/internal/runner"
	"xscraper/pkg/scraper"
)

func TestFlagMapOnlyHoldsChangedFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "probe", RunE: func(*cobra.Command, []string) error { return nil }}
	addCollectionFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--max-posts", "25", "--headless=false", "--stop-date", "2024-01-01"}))

	saved := logLevel
	logLevel = ""
	defer func() { logLevel = saved }()

	flags := flagMap(cmd)
	assert.Equal(t, 25, flags["max-posts"])
	assert.Equal(t, false, flags["headless"])
	assert.Equal(t, "2024-01-01", flags["stop-date"])
	assert.NotContains(t, flags, "max-reposts")
	assert.NotContains(t, flags, "log-level")
}

func TestBatchRow(t *testing.T) {
	row := batchRow(runner.Result{
		Job:        runner.Job{Identity: "jack"},
		State:      scraper.StateFinalized,
		Collected:  12,
		StopReason: "limit_reached",
	})
	assert.Equal(t, "jack", row.Identity)
	assert.Equal(t, "finalized", row.State)
	assert.Equal(t, 12, row.Collected)
	assert.Empty(t, row.Note)

	row = batchRow(runner.Result{Job: runner.Job{Identity: "biz"}, Skipped: true, SkipReason: "already attempted"})
	assert.Equal(t, "skipped", row.State)
	assert.Equal(t, "already attempted", row.Note)

	long := errors.New("navigation failed: max retry attempts (3) exceeded while loading the profile page")
	row = batchRow(runner.Result{Job: runner.Job{Identity: "ev"}, State: scraper.StateFinalized, Error: long})
	assert.Len(t, row.Note, 60)
	assert.Contains(t, row.Note, "...")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"scrape", "batch", "serve", "session", "config", "inspect"} {
		assert.True(t, names[want], want)
	}
}
