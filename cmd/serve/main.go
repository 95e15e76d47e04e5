// Package classification Cluster Manager Service.
//
// Provisioning and lifecycle management of managed database clusters for
// hackathon events
//
// Terms Of Service:
//
// there are no TOS at this moment, use at your own risk we take no responsibility
//
//    Version: 0.1.0
//    License: TODO
//    Contact: <sre@hackday.dev> https://github.com/hackday-sre/cluster-manager
//
//    Consumes:
//      - application/json
//
//    Produces:
//      - application/json
//
//    SecurityDefinitions:
//      oauth2:
//        type: oauth2
//        tokenUrl: /not-valid--endpoint-is-served-from-the-identity-service
//        refreshUrl: /not-valid--endpoint-is-served-from-the-identity-service
//        flow: password
// swagger:meta
package main

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	stdlog "log"
	"log/slog"
	"os"
	"time"

	"github.com/hackday-sre/cluster-manager/internal/handler"
	"github.com/hackday-sre/cluster-manager/internal/log"
	"github.com/hackday-sre/cluster-manager/internal/middleware"
	"github.com/hackday-sre/cluster-manager/internal/server"
	"github.com/hackday-sre/cluster-manager/pkg/atlas"
	"github.com/hackday-sre/cluster-manager/pkg/cleanup"
	"github.com/hackday-sre/cluster-manager/pkg/cluster"
	"github.com/hackday-sre/cluster-manager/pkg/config"
	"github.com/hackday-sre/cluster-manager/pkg/event"
	"github.com/hackday-sre/cluster-manager/pkg/notification"
	"github.com/hackday-sre/cluster-manager/pkg/storage"
	"github.com/hackday-sre/cluster-manager/pkg/team"
)

func main() {
	if err := run(); err != nil {
		stdlog.Fatal(err)
	}
}

func run() error {
	cfg := config.New()

	logger := newLogger(cfg.Environment)
	slog.SetDefault(logger)

	db, err := storage.NewDatabase(cfg.Postgresql)
	if err != nil {
		return fmt.Errorf("failed to setup DB: %v", err)
	}

	publicKey, err := readPublicKey(cfg.JwtPublicKeyFile)
	if err != nil {
		return err
	}

	if err := handler.RegisterValidation(); err != nil {
		return err
	}

	atlasClient := atlas.NewClient(cfg.Atlas.BaseURL, cfg.Atlas.OrgID, cfg.Atlas.PublicKey, cfg.Atlas.PrivateKey)

	publisher, closePublisher, err := newPublisher(logger, cfg.RabbitMq)
	if err != nil {
		return err
	}
	defer closePublisher()

	eventRepository := event.NewRepository(db)
	eventService := event.NewService(eventRepository)

	teamRepository := team.NewRepository(db)
	teamService := team.NewService(teamRepository)

	clusterRepository := cluster.NewRepository(db)
	staleCreatingMaxAge := time.Duration(cfg.StaleCreatingMaxAgeSeconds) * time.Second
	clusterService := cluster.NewService(logger, clusterRepository, eventService, teamService, atlasClient, publisher, cfg.DefaultAccessListCIDR, staleCreatingMaxAge)
	clusterHandler := cluster.NewHandler(clusterService)

	cleanupService := cleanup.NewService(logger, eventService, clusterService)
	cleanupHandler := cleanup.NewHandler(cleanupService)

	if cfg.CleanupIntervalSeconds > 0 {
		interval := time.Duration(cfg.CleanupIntervalSeconds) * time.Second
		scheduler := cleanup.NewScheduler(logger, cleanupService, interval)
		go scheduler.Start(context.Background())
	}

	authenticationMiddleware := middleware.NewAuthentication(publicKey)
	authorizationMiddleware := middleware.NewAuthorization(logger)

	r := server.GetEngine(logger, cfg.BasePath, authenticationMiddleware, authorizationMiddleware, clusterHandler, cleanupHandler)
	return r.Run()
}

func newLogger(environment string) *slog.Logger {
	if environment == "development" {
		return slog.New(log.New(log.NewPrettyJSONHandler(os.Stdout, nil)))
	}
	return slog.New(log.New(slog.NewJSONHandler(os.Stdout, nil)))
}

func readPublicKey(file string) (*rsa.PublicKey, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %v", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("failed to decode public key PEM block")
	}

	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %v", err)
	}

	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is %T, want *rsa.PublicKey", key)
	}
	return rsaKey, nil
}

type lifecyclePublisher interface {
	Publish(ctx context.Context, event notification.Event)
}

func newPublisher(logger *slog.Logger, cfg config.RabbitMq) (lifecyclePublisher, func(), error) {
	if cfg.Host == "" {
		logger.Info("No message broker configured, lifecycle notifications are discarded")
		return notification.NewDiscardPublisher(), func() {}, nil
	}

	publisher, err := notification.NewRabbitPublisher(logger, cfg.GetUrl())
	if err != nil {
		return nil, nil, err
	}
	return publisher, func() {
		if err := publisher.Close(); err != nil {
			logger.Error("Failed to close message broker connection", "error", err)
		}
	}, nil
}
