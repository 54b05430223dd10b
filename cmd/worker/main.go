package main

import (
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"storefront-backend/internal/config"
	"storefront-backend/internal/infrastructure/email"
	"storefront-backend/internal/infrastructure/queue/handlers"
	"storefront-backend/internal/shared"
	"storefront-backend/pkg/logger"
)

// The worker consumes background tasks (customer notification emails). It
// shares the redis instance with the API but runs as a separate process so
// email latency never touches request handling.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger.Init(cfg.App.Environment)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Host,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				shared.QueueHigh:    6,
				shared.QueueDefault: 3,
				shared.QueueLow:     1,
			},
		},
	)

	emailSvc := email.NewSMTPEmailService(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.From)

	mux := asynq.NewServeMux()
	mux.HandleFunc(shared.TypeRefundApprovedEmail, handlers.RefundApprovedEmailHandler(emailSvc))
	mux.HandleFunc(shared.TypeRefundRejectedEmail, handlers.RefundRejectedEmailHandler(emailSvc))

	logger.Info("worker starting", map[string]interface{}{
		"env": cfg.App.Environment,
	})

	if err := srv.Run(mux); err != nil {
		logger.Error("worker exited with error", err)
		panic(err)
	}
}
