package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/georgemunganga/printnow-backend/internal/config"
	"github.com/georgemunganga/printnow-backend/internal/modules/notify"
	"github.com/georgemunganga/printnow-backend/internal/modules/payment"
	"github.com/georgemunganga/printnow-backend/internal/pkg/telemetry"
)

// offline has no subscribers: clients connected to the API re-read the order.
type offline struct{}

func (offline) Publish(string, notify.Event) int { return 0 }

func paymentService(cmd *cobra.Command) (payment.Service, func(), error) {
	settings, err := config.LoadPayments()
	if err != nil {
		return nil, nil, err
	}
	conn, err := openDB(cmd)
	if err != nil {
		return nil, nil, err
	}
	svc := payment.NewService(
		payment.NewPostgresLedger(conn),
		nil, // sessions are never opened from here
		offline{},
		payment.Options{
			Policy:     payment.DepositPolicy{Threshold: settings.DepositThreshold, Rate: settings.DepositRate},
			Currency:   settings.Currency,
			SessionTTL: settings.SessionTTL,
		},
		telemetry.NewLogger("printnowctl"),
	)
	return svc, func() { conn.Close() }, nil
}

func markPaidCmd() *cobra.Command {
	var amount int64
	cmd := &cobra.Command{
		Use:   "mark-paid <code>",
		Short: "Settle an order as paid online, e.g. mark-paid DOC-000042 --amount 30000",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, done, err := paymentService(cmd)
			if err != nil {
				return err
			}
			defer done()

			res, err := svc.MarkPaid(cmd.Context(), args[0], amount)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s paid %d, total %d\n", res.Code, res.PaidAmount, res.FinalTotal)
			return nil
		},
	}
	cmd.Flags().Int64Var(&amount, "amount", 0, "amount received")
	cmd.MarkFlagRequired("amount")
	return cmd
}

func expireSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expire-sessions",
		Short: "Expire unpaid online payment sessions past their deadline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, done, err := paymentService(cmd)
			if err != nil {
				return err
			}
			defer done()

			n, err := svc.ExpireStale(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d sessions expired\n", n)
			return nil
		},
	}
}
