package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/supplydropp/provisioning/config"
	"github.com/supplydropp/provisioning/internal/adminapi"
	"github.com/supplydropp/provisioning/internal/app"
	"github.com/supplydropp/provisioning/internal/storeapi"
	"github.com/supplydropp/provisioning/internal/webserver"
	"go.uber.org/zap"
)

var cfile string

func main() {
	root := &cobra.Command{
		Use:           "supplydrop",
		Short:         "Supply pack ordering service for short-stay properties",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfile, "config", "c", "/etc/supplydrop.yml", "config file")
	root.AddCommand(serveCmd(), initdbCmd(), seedCmd())
	if err := root.Execute(); err != nil {
		zap.S().Error(err)
		os.Exit(1)
	}
}

func boot() *app.Application {
	cfg := config.LoadConfig(cfile)
	application := app.NewApplication(cfg)
	application.Init(cfg)
	return application
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			application := boot()
			defer application.Release()

			adminapi.Init()
			storeapi.Init()
			server := webserver.NewServer(application.Config(), application)

			errc := make(chan error, 1)
			go func() { errc <- server.Start() }()

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			select {
			case err := <-errc:
				return err
			case s := <-sig:
				zap.S().Infof("received %s, shutting down", s)
			}
			return server.Shutdown(10 * time.Second)
		},
	}
}

func initdbCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "initdb",
		Short: "Drop and recreate every table, then load the sample catalog",
		Run: func(cmd *cobra.Command, args []string) {
			application := boot()
			defer application.Release()
			application.InitDb()
			application.Seed()
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the sample catalog where it is missing",
		Run: func(cmd *cobra.Command, args []string) {
			application := boot()
			defer application.Release()
			application.Seed()
		},
	}
}
