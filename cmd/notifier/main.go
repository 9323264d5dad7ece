package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/poofware/todo-service/internal/config"
	"github.com/poofware/todo-service/internal/services"
	"github.com/poofware/todo-service/shared/go-utils"
)

// The notifier drains the verification queue that the API publishes to when
// NOTIFY_CHANNEL=queue and delivers each code itself. DELIVERY_CHANNEL picks
// the transport (sms by default).
func main() {
	utils.InitLogger(config.DefaultAppName + "-notifier")
	cfg := config.LoadConfig()
	defer cfg.Close()

	if cfg.RabbitMQURL == "" {
		utils.Logger.Fatal("RABBITMQ_URL env var is missing")
	}

	cfg.NotifyChannel = os.Getenv("DELIVERY_CHANNEL")
	if cfg.NotifyChannel == "" {
		cfg.NotifyChannel = config.NotifyChannelSMS
	}
	if cfg.NotifyChannel == config.NotifyChannelQueue {
		utils.Logger.Fatal("DELIVERY_CHANNEL cannot be queue")
	}
	deliver, err := services.NewNotificationSender(cfg)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to create delivery sender")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := services.NewNotificationConsumer(cfg.RabbitMQURL, deliver)
	utils.Logger.Infof("Consuming %s via %s", services.VerificationQueueName, cfg.NotifyChannel)
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		utils.Logger.WithError(err).Fatal("Notification consumer stopped")
	}
	utils.Logger.Info("Notifier stopped")
}
