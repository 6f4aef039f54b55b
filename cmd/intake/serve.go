package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gobeaver/intake"
	"github.com/gobeaver/intake/internal/httpapi"
)

func newServeCommand(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API. When BEAVER_INTAKE_WATCH_DIR is set the hot folder runs
alongside it.`,
		Example: "$ BEAVER_INTAKE_DRIVER=local intake serve --port 9090",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.HTTPPort = port
			}

			svc, err := intake.Open(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer svc.Close()

			var hotFolder *intake.HotFolder
			if a.cfg.WatchDir != "" {
				hotFolder, err = a.newHotFolder(svc, a.cfg.WatchDir, watchOptions{
					pattern:   a.cfg.WatchPattern,
					ownerKind: a.cfg.WatchOwner,
					ownerID:   a.cfg.WatchOwnerID,
					category:  a.cfg.WatchCategory,
				})
				if err != nil {
					return err
				}
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			srv := httpapi.New(a.cfg, svc, a.logger)
			g.Go(func() error { return srv.Run(ctx) })
			if hotFolder != nil {
				g.Go(func() error { return hotFolder.Run(ctx) })
			}
			return g.Wait()
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "HTTP port, overrides BEAVER_INTAKE_HTTP_PORT")
	return cmd
}
