package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/mail"
	"github.com/dmitrijs2005/gophauth/internal/queue"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/worker"
	"github.com/redis/go-redis/v9"
)

func main() {

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}
	if err := cfg.ValidateWorker(); err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	logger := logging.NewJSONLogger(os.Stdout, cfg.LogLevel)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	sender := mail.NewMailtrapSender(cfg.MailtrapAPIURL, cfg.MailtrapToken,
		mail.Address{Email: cfg.SenderEmail, Name: cfg.SenderName})
	mailer := mail.NewConfirmationMailer(sender, cfg.FrontendURL)

	w := worker.New(queue.NewRedisQueue(rdb, queue.EmailQueue), mailer, logger)
	if err := w.Run(ctx); err != nil {
		logger.Error(ctx, "worker failed", "error", err)
	}
}
