package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"tbag/internal/components"
	"tbag/internal/config"
	"tbag/internal/daemon"
	"tbag/internal/lines"
	"tbag/internal/logging"
	"tbag/internal/projects"
	"tbag/internal/queue"
	"tbag/internal/workflow"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open session store", logging.Error(err))
		return
	}

	driver, err := lines.DriverFromConfig(cfg)
	if err != nil {
		logger.Error("init line driver", logging.Error(err))
		return
	}
	lineMgr := lines.NewManager(driver, components.AllowedLines, logger)

	projStore, err := projects.NewStore(cfg.Paths.ProjectsDir)
	if err != nil {
		logger.Error("open project catalog", logging.Error(err))
		return
	}
	library, err := components.NewLibrary(cfg.Paths.ComponentsDir)
	if err != nil {
		logger.Error("open component library", logging.Error(err))
		return
	}

	flow := workflow.NewManager(cfg, store, lineMgr, projStore, library, logger)

	d, err := daemon.New(cfg, store, logger, flow, lineMgr)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("tbagd shutting down")
}
