package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gobeaver/intake/bulkorder"
)

func newBulkCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulk",
		Short: "Work with bulk order spreadsheets",
	}
	cmd.AddCommand(newBulkValidateCommand(a))
	return cmd
}

func newBulkValidateCommand(a *app) *cobra.Command {
	var (
		templateID string
		ownerID    string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:     "validate FILE",
		Short:   "Validate a bulk order CSV against a template",
		Example: "$ intake bulk validate --template commercial_blinds_v1 --owner acme order.csv",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(a, args[0])
			if err != nil {
				return err
			}

			svc, err := a.offlineService(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			u, err := svc.ValidateBulkOrder(cmd.Context(), ownerID, templateID, filepath.Base(args[0]), data)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(u); err != nil {
					return err
				}
			} else {
				printUpload(cmd.OutOrStdout(), u)
			}

			if u.Status != bulkorder.StatusValid {
				return fmt.Errorf("bulk order is %s", u.Status)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&templateID, "template", "", "template id, see 'intake templates list'")
	cmd.Flags().StringVar(&ownerID, "owner", "cli", "customer id the order belongs to")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the upload record as JSON")
	_ = cmd.MarkFlagRequired("template")
	return cmd
}

func printUpload(w io.Writer, u *bulkorder.Upload) {
	fmt.Fprintf(w, "status:         %s\n", u.Status)
	fmt.Fprintf(w, "rows:           %d (%d valid, %d invalid)\n", u.RowCount, u.ValidRows, u.InvalidRows)
	fmt.Fprintf(w, "total quantity: %d\n", u.TotalQuantity)

	issues := append(append([]bulkorder.Issue{}, u.Errors...), u.Warnings...)
	if len(issues) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tFIELD\tSEVERITY\tMESSAGE")
	for _, i := range issues {
		field := i.Field
		if field == "" {
			field = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i.Row, field, i.Severity, i.Message)
	}
	tw.Flush()
}
