package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/ledgerbot/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBotOptions(t *testing.T) {
	cfg := &config.Config{
		Batch:    config.BatchConfig{Delay: time.Second},
		Callback: config.CallbackConfig{MaxPayload: 48},
	}

	opts := botOptions(cfg, "ledger_bot")
	assert.Equal(t, "ledger_bot", opts.Name)
	assert.Equal(t, time.Second, opts.BatchDelay)
	assert.Equal(t, 48, opts.MaxPayload)
	assert.Nil(t, opts.Charts)

	cfg.Report.Charts = true
	assert.NotNil(t, botOptions(cfg, "ledger_bot").Charts)
}

func TestConsoleCommand_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "expenses.txt")
	require.NoError(t, os.WriteFile(path, []byte("Coffee 4.50\n2024-01-02 Lunch 12\n"), 0o600))
	t.Setenv("LEDGERBOT_BATCH_DELAY", "10ms")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"console", "--storage-driver", "memory", "--file", path})

	require.NoError(t, rootCmd.Execute())

	output := out.String()
	assert.Contains(t, output, "Batch Summary Report")
	assert.Contains(t, output, "Expense records parsed: 2")
	assert.Contains(t, output, "16.50")
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, isTerminal(strings.NewReader("Coffee 5\n")))

	f, err := os.CreateTemp(t.TempDir(), "input")
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.False(t, isTerminal(f), "regular files take the plain path")
}
