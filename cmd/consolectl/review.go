package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/AurifyAE/Mac-and-Ro/internal/models"
	"github.com/AurifyAE/Mac-and-Ro/internal/review"
)

// reviewCommand describes one review screen on the command line
type reviewCommand struct {
	kind       review.Kind
	short      string
	numeric    string // approve flag name, empty when approval takes no value
	reasonFlag string
}

var (
	kycCommand = reviewCommand{
		kind:       review.KYC,
		short:      "Review customer KYC forms",
		numeric:    "spread",
		reasonFlag: "reason",
	}
	requestsCommand = reviewCommand{
		kind:       review.Requests,
		short:      "Review customer request forms",
		reasonFlag: "remarks",
	}
)

func reviewCmd(a *app, use string, rc reviewCommand) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: rc.short,
	}
	cmd.AddCommand(reviewListCmd(a, rc))
	cmd.AddCommand(reviewApproveCmd(a, rc))
	cmd.AddCommand(reviewRejectCmd(a, rc))
	cmd.AddCommand(reviewReverseCmd(a, rc))
	return cmd
}

func reviewListCmd(a *app, rc reviewCommand) *cobra.Command {
	var (
		status   string
		criteria review.Criteria
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List " + rc.kind.Plural,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := statusFilter(status)
			if err != nil {
				return err
			}
			filter.CustomerID = criteria.SubjectID

			c, err := a.controller(cmd.Context(), rc.kind, filter, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer c.Close()

			view := c.View(criteria)
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), view)
			}
			return printView(cmd.OutOrStdout(), view)
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "pending, approved, rejected, closed or all")
	cmd.Flags().StringVarP(&criteria.FreeText, "search", "q", "", "match subject name, email or id")
	cmd.Flags().StringVarP(&criteria.Type, "type", "t", "", "filter by form type")
	cmd.Flags().StringVar(&criteria.SubjectID, "customer", "", "only this customer's forms")

	return cmd
}

func reviewApproveCmd(a *app, rc reviewCommand) *cobra.Command {
	var numeric string

	cmd := &cobra.Command{
		Use:   "approve ID",
		Short: "Approve a pending " + rc.kind.Noun,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value decimal.Decimal
			if rc.numeric != "" {
				v, err := decimal.NewFromString(numeric)
				if err != nil {
					return fmt.Errorf("--%s must be a number", rc.numeric)
				}
				value = v
			}

			c, err := a.controller(cmd.Context(), rc.kind, review.Filter{}, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer c.Close()
			return c.RequestApprove(cmd.Context(), args[0], value)
		},
	}

	if rc.numeric != "" {
		cmd.Flags().StringVar(&numeric, rc.numeric, "", "spread value applied to the customer")
		_ = cmd.MarkFlagRequired(rc.numeric)
	}
	return cmd
}

func reviewRejectCmd(a *app, rc reviewCommand) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "reject ID",
		Short: "Reject a pending " + rc.kind.Noun,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.controller(cmd.Context(), rc.kind, review.Filter{}, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer c.Close()
			return c.RequestReject(cmd.Context(), args[0], reason)
		},
	}

	cmd.Flags().StringVar(&reason, rc.reasonFlag, "", "why the "+rc.kind.Noun+" is rejected")
	_ = cmd.MarkFlagRequired(rc.reasonFlag)
	return cmd
}

func reviewReverseCmd(a *app, rc reviewCommand) *cobra.Command {
	return &cobra.Command{
		Use:   "reverse ID",
		Short: "Send a recently decided " + rc.kind.Noun + " back to pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.controller(cmd.Context(), rc.kind, review.Filter{}, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer c.Close()
			return c.RequestReverse(cmd.Context(), args[0])
		},
	}
}

func printView(w io.Writer, v review.View) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tTYPE\tSUBJECT\tEMAIL\tDECIDED\tACTIONS")
	for _, row := range v.Rows {
		e := row.Entity
		decided := "-"
		if e.ActionTimestamp != nil {
			decided = e.ActionTimestamp.Local().Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.Status, dash(e.Type), dash(e.SubjectName), dash(e.SubjectEmail), decided, actionList(row))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	c := v.Counts
	_, err := fmt.Fprintf(w, "\n%d shown, %d total (pending %d, approved %d, rejected %d)\n",
		len(v.Rows), c.Total, c.ByStatus[models.StatusPending], c.ByStatus[models.StatusApproved], c.ByStatus[models.StatusRejected])
	return err
}

func actionList(row review.Row) string {
	if row.InFlight {
		return "in flight"
	}
	var out string
	add := func(ok bool, name string) {
		if !ok {
			return
		}
		if out != "" {
			out += ","
		}
		out += name
	}
	add(row.Actions.Approve, "approve")
	add(row.Actions.Reject, "reject")
	add(row.Actions.Reverse, "reverse")
	return dash(out)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
