package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gobeaver/intake"
	"github.com/gobeaver/intake/driver/local"
	"github.com/gobeaver/intake/filevalidator"
)

type watchOptions struct {
	pattern   string
	ownerKind string
	ownerID   string
	category  string
	settle    time.Duration
}

func newWatchCommand(a *app) *cobra.Command {
	var (
		opts watchOptions
		once bool
	)

	cmd := &cobra.Command{
		Use:   "watch DIR",
		Short: "Validate files dropped into a directory",
		Long: `Validate files dropped into DIR. A file is checked once it has not changed
for the settle time and is then moved to DIR/accepted or DIR/rejected; a
rejected file gets a JSON report next to it. Flags left unset fall back to the
BEAVER_INTAKE_WATCH_* settings.`,
		Example: `$ intake watch /srv/drop --pattern "*.{jpg,png}" --owner-id acme`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.pattern == "" {
				opts.pattern = a.cfg.WatchPattern
			}
			if opts.ownerKind == "" {
				opts.ownerKind = a.cfg.WatchOwner
			}
			if opts.ownerID == "" {
				opts.ownerID = a.cfg.WatchOwnerID
			}
			if opts.category == "" {
				opts.category = a.cfg.WatchCategory
			}

			svc, err := intake.Open(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer svc.Close()

			h, err := a.newHotFolder(svc, args[0], opts)
			if err != nil {
				return err
			}

			if !once {
				return h.Run(cmd.Context())
			}
			verdicts, err := h.Sweep(cmd.Context())
			for _, v := range verdicts {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", v.Result.Filename, v.Verdict)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&opts.pattern, "pattern", "", "glob of file names to pick up, such as *.{jpg,png}")
	cmd.Flags().StringVar(&opts.ownerKind, "owner-kind", "", "owner kind the files are checked for")
	cmd.Flags().StringVar(&opts.ownerID, "owner-id", "", "owner id the files are checked for")
	cmd.Flags().StringVar(&opts.category, "category", "", "upload category")
	cmd.Flags().DurationVar(&opts.settle, "settle", intake.DefaultSettleTime, "how long a file must be unchanged before it is checked")
	cmd.Flags().BoolVar(&once, "once", false, "process the files present now and exit")
	return cmd
}

func (a *app) newHotFolder(svc *intake.Service, dir string, opts watchOptions) (*intake.HotFolder, error) {
	kind, err := filevalidator.ParseOwnerKind(opts.ownerKind)
	if err != nil {
		return nil, err
	}
	category, err := filevalidator.ParseCategory(opts.category)
	if err != nil {
		return nil, err
	}
	fs, err := local.New(dir)
	if err != nil {
		return nil, err
	}
	return intake.NewHotFolder(fs, svc, intake.Owner{Kind: kind, ID: opts.ownerID}, category, opts.pattern,
		intake.WithSettleTime(opts.settle),
		intake.WithHotFolderLogger(a.logger),
	)
}
