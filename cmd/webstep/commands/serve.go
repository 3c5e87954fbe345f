package commands

import (
	"os/signal"
	"syscall"

	"github.com/loykin/webstep/internal/metrics"
	"github.com/loykin/webstep/internal/server"
	"github.com/loykin/webstep/internal/step"
	"github.com/loykin/webstep/internal/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept messages over HTTP and expose health and metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := loadConfig()
		if err != nil {
			return err
		}
		shutdown, err := doc.ShutdownTimeout()
		if err != nil {
			return err
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m, err := metrics.New(reg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		s, cleanup, err := startStep(ctx, doc, step.WithMetrics(m))
		if err != nil {
			return err
		}
		defer cleanup()

		addr := util.FirstNonBlank(viper.GetString("addr"), doc.ServerAddr())
		return server.New(s, server.Options{Gatherer: reg}).Run(ctx, addr, shutdown)
	},
}
