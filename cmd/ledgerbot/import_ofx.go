package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Veraticus/ledgerbot/internal/cli"
	"github.com/Veraticus/ledgerbot/internal/model"
	"github.com/Veraticus/ledgerbot/internal/ofx"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func importOFXCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-ofx [files...]",
		Short: "Import debits from OFX/QFX statements",
		Long: `Record every debit in the given OFX or QFX statements as an expense
for a chat. Credits are ignored. Transactions already imported are skipped,
so the same statement can be imported more than once.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportOFX,
	}

	cmd.Flags().Int64("chat", 0, "chat id to import into (required)")
	_ = cmd.MarkFlagRequired("chat")

	return cmd
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	chatID, _ := cmd.Flags().GetInt64("chat")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	parser := ofx.NewParser()
	var entries []model.Entry
	for _, path := range args {
		parsed, err := parseStatement(cmd, parser, path)
		if err != nil {
			return err
		}
		entries = append(entries, parsed...)
	}

	out := cmd.OutOrStdout()
	bar := progressbar.NewOptions(len(entries),
		progressbar.OptionSetWriter(out),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Importing expenses...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(out)
		}),
	)

	added := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := store.AddEntries(ctx, chatID, entry)
		if err != nil {
			return fmt.Errorf("failed to store %q: %w", entry.Description, err)
		}
		added += n
		if err := bar.Add(1); err != nil {
			slog.Warn("Failed to update progress bar", "error", err)
		}
	}

	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Imported %d of %d debits", added, len(entries))))
	if skipped := len(entries) - added; skipped > 0 {
		fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("%d already imported", skipped)))
	}
	return nil
}

func parseStatement(cmd *cobra.Command, parser *ofx.Parser, path string) ([]model.Entry, error) {
	f, err := os.Open(path) //nolint:gosec // user-provided statement
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	entries, err := parser.ParseFile(cmd.Context(), f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	slog.Info("Read statement", "file", path, "debits", len(entries))
	return entries, nil
}
