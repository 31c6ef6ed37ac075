package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/pickit-labs/pickit/internal/config"
	"github.com/pickit-labs/pickit/internal/daemon"
	"github.com/pickit-labs/pickit/internal/version"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"pickit.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Run struct{} `cmd:"" help:"Run the device daemon (peer session, replication and local API)"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	Status struct{} `cmd:"" help:"Query the running daemon's session state"`

	Version struct{} `cmd:"" help:"Print version information"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	switch ctx.Command() {
	case "run":
		cfg, err := config.Load(CLI.Config)
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		if err := runDaemon(cfg, CLI.Config); err != nil {
			slog.Error("Daemon failed", "error", err)
			os.Exit(1)
		}
	case "init":
		if err := config.WriteDefault(CLI.Config, CLI.Init.Force); err != nil {
			slog.Error("Init failed", "error", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote configuration to %s\n", CLI.Config)
	case "version":
		fmt.Printf("pickit %s (commit %s, built %s)\n", version.Version, version.GitCommit, version.BuildTime)
	case "status":
		cfg, err := config.Load(CLI.Config)
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		if err := printStatus(cfg); err != nil {
			slog.Error("Status query failed", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Unknown command", "command", ctx.Command())
		os.Exit(1)
	}
}

func runDaemon(cfg *config.Config, configPath string) error {
	d, err := daemon.New(cfg, configPath)
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := d.Start(runCtx); err != nil {
		return err
	}
	slog.Info("pickit running", "config", configPath)

	err = d.Wait(runCtx)
	slog.Info("shutting down")
	if stopErr := d.Stop(context.Background()); stopErr != nil {
		slog.Warn("shutdown incomplete", "error", stopErr)
	}
	return err
}

func printStatus(cfg *config.Config) error {
	resp, err := http.Get("http://" + cfg.HTTP.Listen + "/api/v1/session")
	if err != nil {
		return fmt.Errorf("query daemon at %s: %w", cfg.HTTP.Listen, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	fmt.Println(string(body))
	return nil
}
