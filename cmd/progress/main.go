package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/yungbote/pathprogress/internal/app"
	"github.com/yungbote/pathprogress/internal/platform/logger"
)

const usage = `usage: progress [flags] <command> [args]

commands:
  paths                          list stored paths
  open <id|slug>...              load paths, reconcile with the server and print their progress
  set <id|slug> <item-id> <status>
                                 set one item to pending, in-progress, done or skip
  import <file> [title]          store a curriculum document (JSON or YAML) as a new path

flags:
`

func main() {
	_ = godotenv.Load()

	fs := pflag.NewFlagSet("progress", pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	fs.String("cache", "sqlite", "local cache driver: memory, sqlite or redis")
	fs.String("cache-path", "pathprogress-cache.db", "sqlite cache file")
	fs.String("policy", "replace", "reconcile policy: replace or merge")
	fs.String("api", "http://localhost:8080", "path storage service base url")
	fs.String("log-mode", "production", "logger mode: development or production")
	asJSON := fs.Bool("json", false, "print views as JSON")
	_ = fs.SetAnnotation("cache", "config", []string{"progress_cache_driver"})
	_ = fs.SetAnnotation("cache-path", "config", []string{"progress_cache_path"})
	_ = fs.SetAnnotation("policy", "config", []string{"progress_reconcile_policy"})
	_ = fs.SetAnnotation("api", "config", []string{"storage_api_url"})

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return
		}
		os.Exit(2)
	}
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	cfg, err := app.LoadConfig(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cli, err := newCLI(ctx, cfg, log, os.Stdout, *asJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		os.Exit(1)
	}
	runErr := cli.run(ctx, fs.Args())
	if err := cli.close(context.Background()); err != nil {
		log.Warn("progress cache flush failed", "error", err)
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "%v\n", runErr)
		os.Exit(1)
	}
}
