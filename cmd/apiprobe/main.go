package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/samvad-hq/openapi-ff/internal/app"
	"github.com/samvad-hq/openapi-ff/internal/config"
	"github.com/samvad-hq/openapi-ff/internal/logger"
	"github.com/samvad-hq/openapi-ff/pkg/publishers"
)

var errUnsuccessful = errors.New("route outcome was not a success")

func main() {
	cli := kingpin.New("apiprobe", "Calls OpenAPI routes and classifies every outcome.")
	runCmd := cli.Command("run", "Probe all enabled routes now and then on every probe interval.")
	callCmd := cli.Command("call", "Probe a single route and print its outcome as JSON.")
	routeID := callCmd.Arg("route-id", "Route id from the routes file.").Required().String()

	var err error
	switch kingpin.MustParse(cli.Parse(os.Args[1:])) {
	case runCmd.FullCommand():
		err = runLoop()
	case callCmd.FullCommand():
		err = callRoute(*routeID)
	}

	if errors.Is(err, errUnsuccessful) {
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "apiprobe: %v\n", err)
		os.Exit(1)
	}
}

func setup() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

func runLoop() error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer logger.Close()

	logger.InfoObj("prober starting", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	prober, err := app.NewProber(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize prober", "error", err)
		return err
	}

	if err := prober.Run(ctx); err != nil {
		return fmt.Errorf("prober run: %w", err)
	}

	return nil
}

func callRoute(id string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	prober, err := app.NewProber(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer prober.Close()

	res, err := prober.Call(ctx, id)
	if err != nil {
		return fmt.Errorf("call %s: %w", id, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(publishers.NewEvent(res)); err != nil {
		return fmt.Errorf("encode outcome: %w", err)
	}
	if !res.Succeeded() {
		return errUnsuccessful
	}
	return nil
}
