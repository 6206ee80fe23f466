package main

import (
	"log"
	"time"

	"pbidesc/adapters/excel"
	"pbidesc/adapters/llm"
	"pbidesc/app"
	"pbidesc/internal/api"
	"pbidesc/internal/config"
	"pbidesc/internal/jobs"
	"pbidesc/internal/usage"
	"pbidesc/ui"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

const cleanupInterval = time.Minute

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	gin.SetMode(appConfig.Server.GinMode)

	client, err := llm.NewOllamaClient(llm.Config{
		BaseURL: appConfig.LLM.BaseURL,
		Model:   appConfig.LLM.Model,
		Timeout: appConfig.LLM.Timeout,
	})
	if err != nil {
		log.Fatalf("Failed to create generation client: %v", err)
	}
	log.Printf("Using model %s at %s", client.Model(), client.Endpoint())

	tally := usage.NewService()
	describer := llm.NewDescriber(client).WithUsageRecorder(tally)
	service := app.NewDescriptionService(describer).
		WithRowDelay(appConfig.Process.RowDelay)

	store := jobs.NewStore()
	hub := api.NewSSEHub()
	runner := jobs.NewRunner(store, service, excel.Serialize, hub)

	go cleanupJobs(store, appConfig.Process.JobRetention)

	server, err := ui.NewServer(store, runner, hub, ui.Options{
		MaxUploadMB: appConfig.Server.MaxUploadMB,
		Model:       client.Model(),
		Endpoint:    client.Endpoint(),
		Usage:       tally,
	})
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}

	log.Fatal(server.Start(":" + appConfig.Server.Port))
}

// cleanupJobs periodically drops jobs nobody has touched within the retention window
func cleanupJobs(store *jobs.Store, retention time.Duration) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		if removed := store.CleanupOldJobs(retention); removed > 0 {
			log.Printf("[cleanupJobs] Removed %d expired jobs", removed)
		}
	}
}
