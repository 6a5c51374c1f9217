// Command doormand runs the doorman bot daemon.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"doorman/internal/bot"
	"doorman/internal/config"
	"doorman/internal/daemon"
	"doorman/internal/ipc"
	"doorman/internal/logging"
	"doorman/internal/profile"
	"doorman/internal/query"
	"doorman/internal/store"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stderr", cfg.LogPath()},
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open store", logging.Error(err))
		return
	}

	var profileSvc profile.Service
	if cfg.Profile.Enabled {
		client, err := profile.New(cfg.Profile.BaseURL, cfg.ProfileTimeout())
		if err != nil {
			logger.Error("init profile client", logging.Error(err))
			_ = st.Close()
			return
		}
		profileSvc = client
	}

	newClient := func() bot.QueryClient {
		return query.New(query.Options{
			Host:    cfg.Server.Host,
			Port:    cfg.Server.Port,
			Timeout: cfg.CommandTimeout(),
			Logger:  logging.NewComponentLogger(logger, "query"),
		})
	}

	b := bot.New(cfg, logger, st, profileSvc, newClient)

	d, err := daemon.New(cfg, st, logger, b)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = st.Close()
		return
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(ctx, cfg.SocketPath(), d, logger)
	if err != nil {
		logger.Error("start IPC server", logging.Error(err))
		return
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(ctx); err != nil {
		logger.Warn("daemon start", logging.Error(err))
	}

	<-ctx.Done()
	logger.Info("doormand shutting down")
}
