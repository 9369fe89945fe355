package app

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kitapce/lending-service/config"
	"github.com/kitapce/lending-service/internal/handler"
	"github.com/kitapce/lending-service/internal/repository"
	"github.com/kitapce/lending-service/internal/server"
	"github.com/kitapce/lending-service/internal/service"
	"github.com/kitapce/lending-service/migrations"
	"github.com/kitapce/lending-service/pkg/kafka"
	"github.com/kitapce/lending-service/pkg/logger"
	"github.com/kitapce/lending-service/pkg/postgres"
)

func Run(cfg config.Config) error {
	log := logger.NewLogger(cfg.Log, "lending")
	db, err := postgres.NewPostgresDB(context.Background(), &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		return fmt.Errorf("db init %v", err)
	}

	bookRepo, err := repository.NewBookRepository(db, log)
	if err != nil {
		return fmt.Errorf("repo books %v", err)
	}
	loanRepo, err := repository.NewLoanRepository(db, log)
	if err != nil {
		return fmt.Errorf("repo loans %v", err)
	}
	userRepo, err := repository.NewUserRepository(db, log)
	if err != nil {
		return fmt.Errorf("repo users %v", err)
	}

	var events service.Events
	var publisher *kafka.Publisher
	if len(cfg.Kafka.Addrs) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			return fmt.Errorf("kafka producer %v", err)
		}
		publisher = kafka.NewPublisher(producer)
		events = publisher
	}

	bookSvc := service.NewBookService(bookRepo, log)
	userSvc := service.NewUserService(userRepo, log)
	loanSvc := service.NewLoanService(loanRepo, bookRepo, userRepo, events, log)
	authSvc := service.NewAuthService(userSvc, cfg.Auth.JWTKey, cfg.Auth.TokenTTL, log)

	h := handler.New(loanSvc, bookSvc, userSvc, authSvc, log)

	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))

	closeCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err = srv.Stop(closeCtx); err != nil {
		log.Error("srv.Stop", zap.Error(err))
	}
	if publisher != nil {
		if err = publisher.Close(); err != nil {
			log.Error("publisher.Close", zap.Error(err))
		}
	}
	db.Close()
	log.Info("Graceful shutdown finished")
	return nil
}
