package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Veraticus/ledgerbot/internal/bot"
	"github.com/Veraticus/ledgerbot/internal/cli"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

func consoleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Talk to the bot in the terminal",
		Long: `Run the bot locally without Telegram. Type messages as you would in a chat.
Inline buttons are numbered; type :N to press button N of the last keyboard.

On a terminal the console runs as an interactive prompt. Use --plain, or pipe
input in, to read plain lines instead.

With --file, the whole file is sent as one message, so every line goes
through batch processing, and the command exits once the batch is done.`,
		RunE: runConsole,
	}

	cmd.Flags().Int64("chat", 1, "chat id to act as")
	cmd.Flags().String("file", "", "send the contents of a file as a single message")
	cmd.Flags().String("charts-dir", "", "directory to save report charts in")
	cmd.Flags().Bool("plain", false, "read plain lines instead of running the interactive prompt")

	return cmd
}

func runConsole(cmd *cobra.Command, _ []string) error {
	chatID, _ := cmd.Flags().GetInt64("chat")
	file, _ := cmd.Flags().GetString("file")
	chartsDir, _ := cmd.Flags().GetString("charts-dir")
	plain, _ := cmd.Flags().GetBool("plain")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	ctx := cli.NewInterruptHandler(out).HandleInterrupts(cmd.Context())

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	console := cli.NewConsole(out, chartsDir)
	b := bot.New(console, store, botOptions(cfg, "ledgerbot"))
	defer b.Wait()

	if file != "" {
		return submitFile(ctx, console, b, file, chatID)
	}

	fmt.Fprintln(out, cli.FormatTitle("ledgerbot "+version))
	fmt.Fprintln(out, cli.FormatInfo("Type /start to begin, :N to press a button, Ctrl+D to quit."))

	in := cmd.InOrStdin()
	if !plain && isTerminal(in) {
		err = console.RunInteractive(ctx, chatID, b)
	} else {
		err = console.Run(ctx, in, chatID, b)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

func submitFile(ctx context.Context, console *cli.Console, b *bot.Bot, path string, chatID int64) error {
	f, err := os.Open(path) //nolint:gosec // user-provided input file
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return console.Submit(ctx, f, chatID, b)
}
