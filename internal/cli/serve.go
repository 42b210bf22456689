package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pdfrag/internal/transport/httpapi"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat HTTP API",
	Long: `Serve POST /chat, GET /healthz and GET /metrics. The store stays open for the
life of the server and is closed after shutdown on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cfg, rootDir, true, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("Failed to close store", zap.Error(err))
		}
	}()

	addr := cfg.HTTP.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting pdfrag",
		zap.String("data_dir", cfg.DataDir(rootDir)),
		zap.String("store", cfg.Store.Driver),
		zap.String("embedding", cfg.Embedding.Provider+"/"+cfg.Embedding.Model),
		zap.String("llm", cfg.LLM.Provider+"/"+cfg.LLM.Model),
	)

	srv := httpapi.NewServer(a.controller, a.store, a.pingers(), log)
	return srv.ListenAndServe(ctx, httpapi.Options{
		Addr:            addr,
		ReadTimeout:     time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:    time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
		ShutdownTimeout: time.Duration(cfg.HTTP.ShutdownSec) * time.Second,
	})
}
