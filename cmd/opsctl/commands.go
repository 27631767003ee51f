package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ariefcatur/go-digital-orders/internal/app"
	"github.com/ariefcatur/go-digital-orders/internal/delivery"
	"github.com/ariefcatur/go-digital-orders/internal/notify"
	"github.com/ariefcatur/go-digital-orders/internal/payments"
	"github.com/spf13/cobra"
)

func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read or change runtime settings",
	}
	cmd.AddCommand(&cobra.Command{
		Use:       "auto-deliver [on|off]",
		Short:     "Show or set automatic delivery after payment",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, func(ctx context.Context, d *app.Deps) error {
				if len(args) == 1 {
					if err := d.Settings.SetAutoDeliver(ctx, actor(cmd), args[0] == "on"); err != nil {
						return err
					}
				}
				on, err := d.Settings.AutoDeliver(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "auto-deliver: %s\n", onOff(on))
				return nil
			})
		},
	})
	return cmd
}

func notifyCmd() *cobra.Command {
	var (
		global bool
		user   string
		title  string
		body   string
		kind   string
	)
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send a notification to one user or to every active user",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if global == (user != "") {
				return fmt.Errorf("exactly one of --global or --user is required")
			}
			if !notify.Kind(kind).Valid() {
				return fmt.Errorf("unknown kind %q", kind)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, func(ctx context.Context, d *app.Deps) error {
				res, err := d.Dispatcher.Send(ctx,
					notify.Target{UserID: user, Global: global},
					notify.Message{Title: title, Body: body, Kind: notify.Kind(kind), CreatedBy: actor(cmd)})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "sent: %d failed: %d\n", len(res.IDs), res.Failed)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&global, "global", false, "Send to every active user")
	cmd.Flags().StringVar(&user, "user", "", "Recipient user id")
	cmd.Flags().StringVar(&title, "title", "", "Notification title")
	cmd.Flags().StringVar(&body, "message", "", "Notification body")
	cmd.Flags().StringVar(&kind, "kind", string(notify.KindInfo), "info, success, warning or error")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

func deliverCmd() *cobra.Command {
	var answers []int
	cmd := &cobra.Command{
		Use:   "deliver <purchase-id>",
		Short: "Queue delivery of a paid purchase",
		Long: `Queue delivery of a paid purchase on delivery.requested.
With --answers the scored document is produced; otherwise the summary.
An operator request is not subject to the auto-deliver setting.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := delivery.Request{Policy: delivery.PolicyScored, Answers: answers, Actor: actor(cmd)}
			if len(answers) == 0 {
				req.Policy = delivery.PolicyAuto
			}
			return withDeps(cmd, func(ctx context.Context, d *app.Deps) error {
				if err := d.Scheduler.Enqueue(ctx, args[0], req); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "queued %s delivery for %s\n", req.Policy, args[0])
				return nil
			})
		},
	}
	cmd.Flags().IntSliceVar(&answers, "answers", nil, "Selected option per question, e.g. 1,0,2")
	return cmd
}

func reconcileCmd() *cobra.Command {
	var txID string
	cmd := &cobra.Command{
		Use:       "reconcile <payment-reference> <success|failure>",
		Short:     "Apply a payment outcome by hand",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(payments.OutcomeSuccess), string(payments.OutcomeFailure)},
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := payments.ParseOutcome(args[1])
			if err != nil {
				return err
			}
			payload, err := json.Marshal(map[string]string{
				"source":         "opsctl",
				"actor":          actor(cmd),
				"transaction_id": txID,
			})
			if err != nil {
				return err
			}
			return withDeps(cmd, func(ctx context.Context, d *app.Deps) error {
				st, err := d.Reconciler.ReconcileCallback(ctx, args[0], outcome, payload)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], st)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&txID, "tx", "", "Provider transaction id, if known")
	return cmd
}

func auditCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit <subject>",
		Short: "Show the audit trail of a purchase, payment reference or setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, func(ctx context.Context, d *app.Deps) error {
				entries, err := d.Audit.List(ctx, args[0], limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "(no entries)")
					return nil
				}
				for _, e := range entries {
					fmt.Fprintf(out, "%s  %-22s %-9s %-10s %s\n",
						e.CreatedAt.Format("2006-01-02 15:04:05"), e.Action, e.Outcome, e.Actor, strings.TrimSpace(e.Detail))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum entries")
	return cmd
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
