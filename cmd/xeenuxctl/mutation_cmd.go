package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sakif/xeenux-portal/internal/model"
	"github.com/sakif/xeenux-portal/internal/query"
	"github.com/sakif/xeenux-portal/internal/validate"
)

// notifier prints mutation outcomes on stderr.
type notifier struct{ w io.Writer }

func (n notifier) Error(msg string)   { fmt.Fprintln(n.w, "✗", msg) }
func (n notifier) Success(msg string) { fmt.Fprintln(n.w, "✓", msg) }

// reportedError is a failure the notifier already printed. Execute exits
// non-zero without printing it again.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return &reportedError{err: err}
}

func mutationOpts(a *app, name, success string) []query.Option {
	return []query.Option{
		query.WithName(name),
		query.WithNotifier(notifier{w: a.errOut}),
		query.WithLogger(a.logger),
		query.WithSuccessMessage(success),
	}
}

func newWithdrawCmd(a *app) *cobra.Command {
	var wallet string

	cmd := &cobra.Command{
		Use:   "withdraw AMOUNT [--wallet ADDRESS]",
		Short: "Request a withdrawal to your wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if wallet == "" {
				s, err := a.handle().Snapshot(cmd.Context())
				if err != nil {
					return err
				}
				wallet = s.User.WalletAddress
			}
			req, err := validate.Withdrawal(args[0], wallet)
			if err != nil {
				return err
			}

			m := query.NewMutation(a.api().Transactions.Withdraw, mutationOpts(a, "withdraw", "Withdrawal requested")...)
			res, err := m.Submit(cmd.Context(), req)
			if err != nil {
				return reported(err)
			}
			return a.print(res, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "fee %s, you receive %s (%s)\n",
					res.Fee.StringFixed(2), res.FinalAmount.StringFixed(2), res.Status)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&wallet, "wallet", "", "wallet address (default: the one on your profile)")
	return cmd
}

func newPurchaseCmd(a *app) *cobra.Command {
	var right bool

	cmd := &cobra.Command{
		Use:   "purchase PACKAGE_INDEX [--right]",
		Short: "Buy a package, placing volume on the left leg unless --right",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("package index must be a number: %q", args[0])
			}
			position := model.PositionLeft
			if right {
				position = model.PositionRight
			}
			req, err := validate.Purchase(index, position)
			if err != nil {
				return err
			}

			m := query.NewMutation(a.api().Packages.Purchase, mutationOpts(a, "purchase", "Package purchased")...)
			res, err := m.Submit(cmd.Context(), req)
			if err != nil {
				return reported(err)
			}
			return a.print(res, func(w io.Writer) error {
				p := res.UserPackage
				_, err := fmt.Fprintf(w, "package %d: paid %s, %s XEE, ceiling %s\n",
					p.PackageIndex, p.AmountPaid.StringFixed(2), p.XeenuxAmount.StringFixed(2), p.CeilingLimit.StringFixed(2))
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&right, "right", false, "place on the right leg")
	return cmd
}

func newSwapCmd(a *app) *cobra.Command {
	var direction string

	cmd := &cobra.Command{
		Use:   "swap AMOUNT [--direction usdt_to_xee|xee_to_usdt]",
		Short: "Convert between USDT and XEE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := validate.Swap(args[0], model.SwapDirection(direction), nil)
			if err != nil {
				return err
			}

			m := query.NewMutation(a.api().Transactions.Swap, mutationOpts(a, "swap", "Swap completed")...)
			res, err := m.Submit(cmd.Context(), req)
			if err != nil {
				return reported(err)
			}
			return a.print(res, func(w io.Writer) error {
				d := res.SwapDetails
				_, err := fmt.Fprintf(w, "%s in, %s out (fee %s, burned %s, price %s)\n",
					d.InputAmount, d.OutputAmount, d.Fee, d.BurnAmount, d.XeenuxPrice)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&direction, "direction", string(model.SwapUSDTToXee), "usdt_to_xee or xee_to_usdt")
	return cmd
}

// alreadyReported reports whether err was printed by a notifier.
func alreadyReported(err error) bool {
	var r *reportedError
	return errors.As(err, &r)
}
