package main

import (
	"github.com/joho/godotenv"

	"pdfrag/internal/cli"
	"pdfrag/internal/metrics"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	metrics.Register()
	cli.Execute()
}
