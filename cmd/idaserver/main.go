package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ruteri/ida-persistence-engine/cmd/flags"
	"github.com/ruteri/ida-persistence-engine/common"
	"github.com/ruteri/ida-persistence-engine/config"
	"github.com/ruteri/ida-persistence-engine/httpserver"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:    "idaserver",
		Usage:   "Serve the blob API over an information dispersal persistence engine",
		Version: common.Version,
		Flags:   append(append([]cli.Flag{flags.ConfigFlag}, flags.ServerFlags...), flags.LogFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			cfg, err := config.Load(cCtx.String(flags.ConfigFlag.Name))
			if err != nil {
				logger.Error("Failed to load configuration", "err", err)
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			assembly, err := config.Build(ctx, cfg, logger)
			if err != nil {
				logger.Error("Failed to assemble persistence engine", "err", err)
				return err
			}
			defer assembly.Close()

			handler := httpserver.NewHandler(assembly.Service, assembly.Metadata, cCtx.Int64(flags.MaxBlobSizeFlag.Name), logger)
			server, err := httpserver.New(flags.ConfigureServer(cCtx, logger), handler)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			server.RunInBackground()

			logger.Info("Server is running, press Ctrl+C to stop")
			<-ctx.Done()
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
