// rate-probe fetches the USD rate once and prints it. Useful to verify
// the scraper selector and the headless browser install before running
// the bot.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"vytraty/internal/config"
	"vytraty/internal/rates"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()

	source := rates.WithTimeout(rates.NewMinfinScraper(cfg.RateURL), cfg.RateTimeout)
	rate, err := source.Rate(context.Background())
	if err != nil {
		logger.Error("Rate lookup failed", "url", cfg.RateURL, "error", err)
		os.Exit(1)
	}

	fmt.Println(rate.String())
}
