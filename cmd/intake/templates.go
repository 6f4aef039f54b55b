package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/gobeaver/intake/bulkorder"
)

func newTemplatesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List bulk order templates and print their sample files",
	}
	cmd.AddCommand(newTemplatesListCommand(), newTemplatesSampleCommand(a))
	return cmd
}

func newTemplatesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List bulk order templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tQUANTITY\tCOLUMNS")
			for _, t := range bulkorder.DefaultRegistry().List() {
				fmt.Fprintf(tw, "%s\t%s\t%d-%d\t%d required, %d optional\n",
					t.ID, t.Name, t.MinQuantity, t.MaxQuantity, len(t.RequiredColumns), len(t.OptionalColumns))
			}
			return tw.Flush()
		},
	}
}

func newTemplatesSampleCommand(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:     "sample ID",
		Short:   "Print the starter CSV of a template",
		Example: "$ intake templates sample commercial_blinds_v1 -o blinds.csv",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sample, err := bulkorder.DefaultRegistry().RenderSample(args[0])
			if err != nil {
				return err
			}
			if output == "" {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), sample)
				return err
			}
			if err := afero.WriteFile(a.fs, output, []byte(sample+"\n"), 0o644); err != nil {
				return err
			}
			a.logger.Info("sample written", "template", args[0], "path", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the sample to a file instead of stdout")
	return cmd
}
