package main

import (
	"log"
	"os"

	"idocontrol/internal/handlers"
	"idocontrol/internal/routes"
	"idocontrol/pkg/config"
	"idocontrol/pkg/ledger"
	idosolana "idocontrol/pkg/solana"
)

func main() {
	// Initialize database
	config.InitDB()
	config.ExecuteMigrations()

	// Initialize RabbitMQ (optional, will log warning if not configured)
	if os.Getenv("RABBITMQ_HOST") != "" {
		config.InitRabbitMQ()
		defer func() {
			if config.RabbitMQ != nil {
				config.RabbitMQ.Close()
			}
		}()

		publisher, err := config.NewPublisher()
		if err != nil {
			log.Fatal("Create publisher failed:", err)
		}
		defer publisher.Close()
		handlers.EventPublisher = publisher
		log.Println("RabbitMQ initialized successfully")
	} else {
		log.Println("RabbitMQ not configured, events will not be published")
	}

	// Stake oracle backs rank lookups; treasury receives settled funds
	oracle, err := idosolana.NewStakeOracle(
		os.Getenv("STAKING_RPC"),
		os.Getenv("STAKING_PROGRAM"),
	)
	if err != nil {
		log.Fatal("Create stake oracle failed:", err)
	}

	treasury := os.Getenv("TREASURY_ACCOUNT")
	if treasury == "" {
		log.Fatal("TREASURY_ACCOUNT not configured")
	}

	handlers.InitEngine(ledger.NewCustodyLedger(config.DB), oracle, treasury)
	if err := handlers.LoadEngineState(); err != nil {
		log.Fatal("Restore engine state failed:", err)
	}

	// Set up router
	r := routes.SetupRouter()

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
