package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/IntuitiveSystems-irl/Construction-App-sub001/internal/api"
	"github.com/IntuitiveSystems-irl/Construction-App-sub001/internal/app/config"
	"github.com/IntuitiveSystems-irl/Construction-App-sub001/internal/server"
	"github.com/IntuitiveSystems-irl/Construction-App-sub001/internal/services"
	"github.com/sirupsen/logrus"
)

// Build information (set via ldflags)
var (
	Version    = "dev"
	CommitHash = "unknown"
)

func main() {
	var showVersion = flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("Construction contract server\nVersion: %s\nCommit: %s\n", Version, CommitHash)
		return
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.NewConfig()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	var dbService services.DBService
	switch cfg.Database.Driver {
	case "postgres":
		dbService, err = services.NewPostgresDBService(cfg.Database.DSN)
	default:
		dbService, err = services.NewSqliteDBService(cfg.Database.Path)
	}
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer dbService.Close()

	components, err := server.InitializeServices(dbService.GetDB(), cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize services")
	}

	components.Dispatcher.Start()
	defer components.Dispatcher.Stop()

	apiServer := api.NewAPIServer(components.ContractService, components.TemplateService, components.Engine, log)
	apiServer.SetupRoutes(cfg.JWT.Secret)

	addr := fmt.Sprintf("%s:%d", cfg.ServiceHost, cfg.ServicePort)
	go func() {
		log.WithField("addr", addr).Info("server starting")
		if err := apiServer.Listen(addr); err != nil {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	if err := apiServer.Shutdown(); err != nil {
		log.WithError(err).Error("shutdown failed")
	}
}
