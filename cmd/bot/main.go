package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"hwbot/internal/app"
	"hwbot/internal/config"
	logx "hwbot/pkg/logx"
)

func main() {
	var cfgPath, envFiles string
	flag.StringVar(&cfgPath, "config", "", "path to config yaml/json (empty: built-in defaults)")
	flag.StringVar(&envFiles, "env", "", "comma-separated dotenv files (default: ./.env if present)")
	flag.Parse()

	boot := logx.NewConsole("INFO").With(logx.String("comp", "boot"))

	creds, err := config.LoadCredentials(splitList(envFiles)...)
	if err != nil {
		boot.Fatal("failed to load environment", logx.Err(err))
		os.Exit(1)
	}
	// Nothing talks to the network until every secret is present.
	if err := creds.Check(); err != nil {
		boot.Fatal("Отсутствуют обязательные переменные окружения", logx.Err(err))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfgPath, creds)
	if err != nil {
		boot.Fatal("startup failed", logx.Err(err))
		os.Exit(1)
	}
	if err := a.Start(ctx); err != nil {
		a.Logger().Fatal("start failed", logx.Err(err))
		stop(a, app.StopFatalError)
		os.Exit(1)
	}

	reason := app.StopSignal
	select {
	case <-ctx.Done():
	case <-a.Done():
		if a.Err() != nil {
			reason = app.StopFatalError
		}
	}
	stop(a, reason)
	if reason == app.StopFatalError {
		os.Exit(1)
	}
}

func stop(a *app.App, reason app.StopReason) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = a.Stop(ctx, reason)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
