package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/gradebook/internal/app"
	"github.com/shrimpsizemoose/gradebook/internal/bot"
)

func main() {
	var configPath = flag.String("config", "config.toml", "Path to config file")
	flag.Parse()

	service, err := app.NewService(*configPath)
	if err != nil {
		logger.Error.Fatalf("Failed to load config: %v", err)
	}
	defer service.Close()

	var tokens bot.TokenIssuer
	if service.Tokens != nil {
		tokens = service.Tokens
	}

	b, err := bot.New(service.Config.Bot.Token, service.Config.Bot.AdminIDs, service.Gradebook, tokens)
	if err != nil {
		logger.Error.Fatalf("Failed to create bot: %v", err)
	}

	var sub bot.Subscriber
	if service.Config.Notify.RedisURL != "" {
		opts, err := redis.ParseURL(service.Config.Notify.RedisURL)
		if err != nil {
			logger.Error.Fatalf("Failed to parse redis url: %v", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		sub = client
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info.Println("Bot initialized successfully")
	if err := b.Start(ctx, sub); err != nil {
		logger.Error.Fatalf("Bot error: %v", err)
	}
}
