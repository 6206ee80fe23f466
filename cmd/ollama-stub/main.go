package main

import (
	"log"
	"net/http"
	"os"
	"strconv"

	"pbidesc/internal/ollamastub"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	port := os.Getenv("STUB_PORT")
	if port == "" {
		port = "11434"
	}

	opts := ollamastub.Options{RequestLog: true}
	if value := os.Getenv("STUB_FAIL_STATUS"); value != "" {
		status, err := strconv.Atoi(value)
		if err != nil || status < 100 || status > 599 {
			log.Fatalf("STUB_FAIL_STATUS must be an HTTP status code, got %q", value)
		}
		opts.FailStatus = status
		opts.FailBody = os.Getenv("STUB_FAIL_BODY")
		log.Printf("Every generate call will fail with %d", status)
	}

	log.Printf("Ollama stub listening on http://localhost:%s/api/generate", port)
	log.Fatal(http.ListenAndServe(":"+port, ollamastub.New(opts)))
}
