package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/compozy/coursepilot/engine/infra/server"
)

func ServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)

			ctx, a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			router := server.NewRouter(a.dependencies(), a.cfg.Server.CORSOrigins)
			srv, err := server.New(&a.cfg.Server, router)
			if err != nil {
				return err
			}
			a.log.Info("Starting server",
				"host", a.cfg.Server.Host,
				"port", a.cfg.Server.Port,
				"store", a.cfg.Store.Provider,
			)
			return srv.Run(ctx)
		},
	}
}
