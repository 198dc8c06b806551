package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/hanwen/go-ptp/config"
	"github.com/hanwen/go-ptp/ptp"
	"github.com/hanwen/go-ptp/server"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve device events and caches over HTTP and websockets",
	Long: `Serve polls the device for events and serves:

  /events                     websocket stream of events
  /control                    websocket accepting poll and property commands
  /props/{code}               property descriptor
  /objects/{storage}/{handle} folder listing
  /metrics                    Prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		d, err := openDevice(ctx, cmd, ptp.NewMetrics(reg))
		if err != nil {
			return err
		}
		defer d.Close(context.Background())

		listen := d.cfg.Listen
		if cmd.Flags().Changed("listen") {
			listen = serveListen
		}

		srv := server.New(d.Session, d.logs, ctx)
		srv.SetGatherer(reg)
		srv.SetPollInterval(d.cfg.EventPollInterval)
		return srv.ListenAndServe(listen)
	},
}

var configCmd = &cobra.Command{
	Use:   "config [file]",
	Short: "Write the effective configuration to a file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		path := config.DefaultPath()
		if len(args) > 0 {
			path = args[0]
		}
		if err := config.Save(cfg, path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (default from configuration)")
}
