// Command asthralios is a personal voice conversation agent.
//
// Subcommands:
//
//	listen        run the duplex voice agent (default)
//	ingest <dir>  embed documents under dir into the memory store
//	cqc <dir>     review source files under dir with the sentinel
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/markizano/asthralios/internal/app"
	"github.com/markizano/asthralios/internal/config"
	"github.com/markizano/asthralios/internal/hands"
	"github.com/markizano/asthralios/internal/sentinel"
	"github.com/markizano/asthralios/pkg/memory/postgres"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "asthralios.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "asthralios: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "asthralios: %v\n", err)
		}
		return 1
	}

	slog.SetDefault(newLogger(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	command := "listen"
	args := flag.Args()
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}

	switch command {
	case "listen":
		return listen(ctx, cfg)
	case "ingest":
		if len(args) != 1 {
			fmt.Fprintln(os.Stderr, "usage: asthralios ingest <dir>")
			return 2
		}
		return ingest(ctx, cfg, args[0])
	case "cqc":
		if len(args) != 1 {
			fmt.Fprintln(os.Stderr, "usage: asthralios cqc <dir>")
			return 2
		}
		return cqc(ctx, cfg, args[0])
	default:
		fmt.Fprintf(os.Stderr, "asthralios: unknown command %q (want listen, ingest, or cqc)\n", command)
		return 2
	}
}

// listen runs the full voice agent until interrupted.
func listen(ctx context.Context, cfg *config.Config) int {
	slog.Info("asthralios starting",
		"stt", cfg.Providers.STT.Name,
		"tts", cfg.Providers.TTS.Name,
		"llm", cfg.Providers.LLM.Name,
		"vad", cfg.Providers.VAD.Name,
		"memory", cfg.Memory.PostgresDSN != "",
		"log_level", cfg.LogLevel,
	)

	providers, err := app.BuildProviders(cfg, app.NewRegistry())
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	application, err := app.New(ctx, cfg, providers)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("listening, press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ingest embeds every supported document under root into the memory store.
func ingest(ctx context.Context, cfg *config.Config, root string) int {
	if cfg.Memory.PostgresDSN == "" {
		fmt.Fprintln(os.Stderr, "asthralios: ingest needs memory.postgres_dsn in the config")
		return 1
	}

	reg := app.NewRegistry()
	embedder, err := reg.CreateEmbeddings(cfg.Providers.Embeddings)
	if err != nil {
		slog.Error("failed to create embeddings provider", "err", err)
		return 1
	}

	dims := cfg.Memory.EmbeddingDimensions
	if dims <= 0 {
		dims = embedder.Dimensions()
	}
	store, err := postgres.NewStore(ctx, cfg.Memory.PostgresDSN, dims)
	if err != nil {
		slog.Error("failed to connect to memory store", "err", err)
		return 1
	}
	defer store.Close()

	ingester, err := hands.NewIngester(embedder, store)
	if err != nil {
		slog.Error("failed to create ingester", "err", err)
		return 1
	}

	chunks, err := ingester.Ingest(ctx, root)
	if err != nil {
		slog.Error("ingestion failed", "err", err, "chunks", chunks)
		return 1
	}
	fmt.Printf("ingested %d chunks from %s\n", chunks, root)
	return 0
}

// cqc reviews every source file under root and prints the findings. The exit
// code is 1 when any finding is high or critical severity.
func cqc(ctx context.Context, cfg *config.Config, root string) int {
	reg := app.NewRegistry()
	provider, err := reg.CreateLLM(cfg.Providers.LLM)
	if err != nil {
		slog.Error("failed to create llm provider", "err", err)
		return 1
	}

	checker, err := sentinel.NewChecker(provider)
	if err != nil {
		slog.Error("failed to create checker", "err", err)
		return 1
	}

	reports, err := checker.Check(ctx, root)
	if err != nil {
		slog.Error("check failed", "err", err)
		return 1
	}

	var total, severe int
	for _, report := range reports {
		if report.OK {
			continue
		}
		for _, finding := range report.Issues {
			total++
			if finding.Severity == sentinel.SeverityHigh || finding.Severity == sentinel.SeverityCritical {
				severe++
			}
			fmt.Printf("%s:%d-%d [%s] %s\n", report.Filename, finding.Lines[0], finding.Lines[1], finding.Severity, finding.Name)
			if finding.Explanation != "" {
				fmt.Printf("  %s\n", finding.Explanation)
			}
			if finding.Remediation != "" {
				fmt.Printf("  fix: %s\n", finding.Remediation)
			}
		}
	}

	fmt.Printf("reviewed %d files, %d findings (%d high or critical)\n", len(reports), total, severe)
	if severe > 0 {
		return 1
	}
	return 0
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
