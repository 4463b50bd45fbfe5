package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-assistant/internal/analyze"
	"github.com/dvloznov/finance-assistant/internal/config"
	"github.com/dvloznov/finance-assistant/internal/extract"
	"github.com/dvloznov/finance-assistant/internal/ledger"
	"github.com/dvloznov/finance-assistant/internal/logger"
	"github.com/dvloznov/finance-assistant/internal/resolve"
	"github.com/dvloznov/finance-assistant/internal/session"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "record":
		runRecord(log)
	case "delete":
		runDelete(log)
	case "report":
		runReport(log)
	case "assets":
		runAssets(log)
	case "chat":
		runChat(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Finance Assistant CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  assistant <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  record    Record transactions or balances from a message or receipt image")
	fmt.Println("  delete    Delete a record described in natural language")
	fmt.Println("  report    Show the current month's summary, budget and forecast")
	fmt.Println("  assets    Show the current asset position")
	fmt.Println("  chat      Interactive session")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'assistant <command> -h' for more information on a command.")
}

// setup loads configuration and wires the coordinator. The returned
// close function releases the store.
func setup(ctx context.Context, log zerolog.Logger) (*session.Coordinator, *config.Config, func(), error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.SQLiteDBPath), 0o755); err != nil {
		return nil, nil, nil, fmt.Errorf("create data dir: %w", err)
	}
	store, err := ledger.NewSQLiteStore(cfg.SQLiteDBPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open ledger: %w", err)
	}

	completer, err := extract.NewGeminiCompleter(ctx, cfg.GeminiModel, cfg.ExtractTimeout, cfg.ExtractMaxRetries)
	if err != nil {
		store.Close()
		return nil, nil, nil, fmt.Errorf("init completion service: %w", err)
	}

	coordinator := session.New(
		extract.NewEngine(completer),
		store,
		resolve.New(store),
		analyze.New(store, cfg.DefaultCurrency),
		session.Options{
			AllowedUserID:   cfg.AllowedUserID,
			DefaultCurrency: cfg.DefaultCurrency,
			PendingTTL:      cfg.SessionTTL,
		},
	)

	log.Info().
		Str("model", cfg.GeminiModel).
		Str("db", cfg.SQLiteDBPath).
		Msg("Assistant initialized")

	return coordinator, cfg, func() { store.Close() }, nil
}

func runRecord(log zerolog.Logger) {
	fs := flag.NewFlagSet("record", flag.ExitOnError)
	text := fs.String("text", "", "Message describing transactions or balances")
	imagePath := fs.String("image", "", "Path to a receipt image (optional)")
	fs.Parse(os.Args[2:])

	if *text == "" && *imagePath == "" {
		log.Fatal().Msg("Error: --text or --image is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	coordinator, cfg, closeFn, err := setup(ctx, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Setup failed")
	}
	defer closeFn()

	in := session.Inbound{UserID: cfg.AllowedUserID, Text: *text}
	if *imagePath != "" {
		img, err := loadImage(*imagePath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read image")
		}
		in.Image = img
	}

	out, err := coordinator.HandleMessage(ctx, in)
	if err != nil {
		log.Fatal().Err(err).Msg("Record failed")
	}
	printOutbound(out)
}

func runDelete(log zerolog.Logger) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	text := fs.String("text", "", "Description of the record to delete")
	fs.Parse(os.Args[2:])

	if *text == "" {
		log.Fatal().Msg("Error: --text is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	coordinator, cfg, closeFn, err := setup(ctx, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Setup failed")
	}
	defer closeFn()

	out, err := coordinator.HandleMessage(ctx, session.Inbound{UserID: cfg.AllowedUserID, Text: *text})
	if err != nil {
		log.Fatal().Err(err).Msg("Delete failed")
	}
	printOutbound(out)

	// Clarifications and confirmations need a follow-up reply.
	if needsReply(out) {
		reader := bufio.NewReader(os.Stdin)
		fmt.Print("> ")
		reply, _ := reader.ReadString('\n')
		out, err = coordinator.HandleMessage(ctx, session.Inbound{UserID: cfg.AllowedUserID, Text: strings.TrimSpace(reply)})
		if err != nil {
			log.Fatal().Err(err).Msg("Delete failed")
		}
		printOutbound(out)
	}
}

func runReport(log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	coordinator, cfg, closeFn, err := setup(ctx, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Setup failed")
	}
	defer closeFn()

	text, err := coordinator.Report(ctx, cfg.AllowedUserID)
	if err != nil {
		log.Fatal().Err(err).Msg("Report failed")
	}
	fmt.Println(text)
}

func runAssets(log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	coordinator, cfg, closeFn, err := setup(ctx, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Setup failed")
	}
	defer closeFn()

	text, err := coordinator.Assets(ctx, cfg.AllowedUserID)
	if err != nil {
		log.Fatal().Err(err).Msg("Assets failed")
	}
	fmt.Println(text)
}

func runChat(log zerolog.Logger) {
	ctx := logger.WithContext(context.Background(), log)

	coordinator, cfg, closeFn, err := setup(ctx, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Setup failed")
	}
	defer closeFn()

	fmt.Println("Finance assistant ready. Type a message, or 'exit' to quit.")
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return
		}

		msgCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		out, err := coordinator.HandleMessage(msgCtx, session.Inbound{UserID: cfg.AllowedUserID, Text: line})
		cancel()
		if err != nil {
			log.Error().Err(err).Msg("Message failed")
			continue
		}
		printOutbound(out)
	}
}

func loadImage(path string) (*extract.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	mime := "image/jpeg"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		mime = "image/png"
	case ".webp":
		mime = "image/webp"
	}
	return &extract.Image{MIMEType: mime, Data: data}, nil
}

func printOutbound(out session.Outbound) {
	for _, msg := range out.Messages {
		fmt.Println(msg)
	}
}

func needsReply(out session.Outbound) bool {
	for _, msg := range out.Messages {
		if strings.Contains(msg, "Reply with a number") || strings.Contains(msg, "Reply \"yes\"") {
			return true
		}
	}
	return false
}
