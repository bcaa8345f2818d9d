package main

import (
	"context"
	"fmt"
	"os"

	"github.com/learnmarket/backend/internal/config"
	"github.com/learnmarket/backend/internal/logger"
)

var Version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	rt := newLiveRuntime(cfg, logger.Logger)
	err = newRootCmd(rt).ExecuteContext(context.Background())
	rt.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		logger.Sync()
		os.Exit(1)
	}
}
