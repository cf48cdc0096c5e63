package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nconklindev/sift/internal/config"
	"github.com/nconklindev/sift/internal/server"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the browser UI and HTTP API",
		Long: `Serve starts an HTTP server with the browser UI at / and the JSON API
under /api/sessions. Sessions live in memory and expire after session.ttl
of inactivity. Prometheus metrics are exposed at /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			initCLILogging(cmd, cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return server.New(cfg).Run(ctx)
		},
	}

	cmd.Flags().String("address", "", "listen address (default :8080)")
	cmd.Flags().Int64("max-upload-mb", 0, "upload size limit in MiB (default 32)")

	_ = v.BindPFlag("server.address", cmd.Flags().Lookup("address"))
	_ = v.BindPFlag("server.max_upload_mb", cmd.Flags().Lookup("max-upload-mb"))

	return cmd
}
