// webhook-init manages the Telegram webhook registration for the bot:
//
//	webhook-init set https://example.com/telegram/webhook
//	webhook-init delete
//	webhook-init info
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"kirana/internal/bot"
	"kirana/internal/config"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	if cfg.TelegramBotToken == "" {
		log.Fatal("set TELEGRAM_BOT_TOKEN")
	}
	if len(os.Args) < 2 {
		usage()
	}

	tg, err := bot.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID, cfg.TelegramWebhookSecret, nil)
	if err != nil {
		log.Fatalf("telegram: %v", err)
	}

	switch os.Args[1] {
	case "set":
		if len(os.Args) < 3 {
			usage()
		}
		if err := tg.SetWebhook(os.Args[2]); err != nil {
			log.Fatalf("set webhook: %v", err)
		}
		fmt.Println("Webhook registered:", os.Args[2])
	case "delete":
		if err := tg.DeleteWebhook(); err != nil {
			log.Fatalf("delete webhook: %v", err)
		}
		fmt.Println("Webhook removed")
	case "info":
		info, err := tg.WebhookInfo()
		if err != nil {
			log.Fatalf("webhook info: %v", err)
		}
		fmt.Println("URL:", info.URL)
		fmt.Println("Pending updates:", info.PendingUpdateCount)
		if info.LastErrorMessage != "" {
			fmt.Println("Last error:", info.LastErrorMessage)
		}
	default:
		usage()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: webhook-init <set URL | delete | info>")
	os.Exit(2)
}
