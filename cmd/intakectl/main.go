package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/uc4u2/candidate-intake/internal/app"
	"github.com/uc4u2/candidate-intake/internal/config"
	"github.com/uc4u2/candidate-intake/internal/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", config.DefaultConfigPath, "Path to YAML config file")
	envFile := flag.String("env", ".env", "Comma separated .env files loaded before the environment overlay")
	logLevel := flag.String("log-level", "", "Override log_level from the config")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: intakectl [-config path] [-env files] [-log-level level] <command> [flags] [args]")
		flag.PrintDefaults()
		fmt.Fprintln(flag.CommandLine.Output(), "\nrun \"intakectl help\" for the command list")
	}
	flag.Parse()

	if err := config.LoadDotEnv(strings.Split(*envFile, ",")...); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if v := strings.TrimSpace(*logLevel); v != "" {
		cfg.LogLevel = v
	}

	log, err := logger.New(logger.Options{
		Level: cfg.Level(),
		Dir:   cfg.LogDir(),
		Color: logger.ShouldColor(),
	})
	if err != nil {
		log, _ = zap.NewProduction()
		log.Warn("log file unavailable, falling back to zap production logger", zap.Error(err))
	}
	defer log.Sync()

	application, err := app.New(log, cfg, app.WithConfirm(promptYesNo))
	if err != nil {
		log.Error("failed to initialize app", zap.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := application.Run(ctx, flag.Args())
	if err := application.Close(); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
	switch {
	case runErr == nil:
		return 0
	case errors.Is(runErr, app.ErrUsage):
		return 2
	case errors.Is(runErr, context.Canceled):
		fmt.Fprintln(os.Stderr, "interrupted")
		return 130
	default:
		fmt.Fprintln(os.Stderr, "error:", runErr)
		return 1
	}
}

// promptYesNo asks on stderr and reads the answer from stdin.
func promptYesNo(prompt string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
