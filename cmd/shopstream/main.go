package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hypershop/shopstream/internal/catalog"
	"github.com/hypershop/shopstream/internal/client"
	"github.com/hypershop/shopstream/internal/config"
	"github.com/hypershop/shopstream/internal/gateway"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("shopstream v%s\n", version)
	case "init":
		if err := initConfig(); err != nil {
			slog.Error("fatal", "error", err)
			os.Exit(1)
		}
	case "serve":
		if err := serve(); err != nil {
			slog.Error("fatal", "error", err)
			os.Exit(1)
		}
	case "chat":
		if err := chat(); err != nil {
			slog.Error("fatal", "error", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("shopstream - streaming shopping assistant")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  shopstream serve     Start the chat gateway")
	fmt.Println("  shopstream chat      Start the terminal chat client")
	fmt.Println("  shopstream init      Write an example config file")
	fmt.Println("  shopstream version   Show version info")
}

func initConfig() error {
	path := config.Path()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}
	if err := config.CreateFromExample(path); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func setup() (*config.Config, error) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	home := config.ResolveHome()
	for _, dir := range []string{config.DataDir(), config.SessionDir(), config.UploadsDir(), config.LogsDir()} {
		os.MkdirAll(dir, 0755)
	}

	cfg, err := config.LoadOrDefault(config.Path())
	if err != nil {
		return nil, err
	}
	config.Set(cfg)
	slog.Info("shopstream starting", "version", version, "home", home)
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutdown signal received", "signal", sig)
		cancel()
	}()
	return ctx, cancel
}

func serve() error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	db, err := catalog.Open(cfg.Catalog.Path)
	if err != nil {
		return err
	}
	repo := catalog.NewRepo(db)

	ctx, cancel := signalContext()
	defer cancel()

	if cfg.Catalog.Seed {
		if err := repo.Seed(ctx); err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
	}

	go config.Watch(ctx)

	srv := gateway.NewServer(cfg, repo, &gateway.CatalogProducer{Repo: repo})
	return srv.Start(ctx)
}

func chat() error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	return client.New(cfg, os.Stdin, os.Stdout).Run(ctx)
}
