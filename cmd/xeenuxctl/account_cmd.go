package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/xeenux-portal/internal/api"
	"github.com/sakif/xeenux-portal/internal/apperror"
	"github.com/sakif/xeenux-portal/internal/model"
	"github.com/sakif/xeenux-portal/internal/service"
	"github.com/sakif/xeenux-portal/internal/tree"
)

const dateLayout = "2006-01-02"

func newDashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show income totals, team and referral links",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := a.api().Users.Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(d, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintf(tw, "User\t#%d %s\n", d.User.UserID, d.User.Name)
				fmt.Fprintf(tw, "Total income\t%s\n", d.Incomes.Total.StringFixed(2))
				fmt.Fprintf(tw, "  ROI\t%s\n", d.Incomes.ROI.StringFixed(2))
				fmt.Fprintf(tw, "  Level\t%s\n", d.Incomes.Level.StringFixed(2))
				fmt.Fprintf(tw, "  Binary\t%s\n", d.Incomes.Binary.StringFixed(2))
				fmt.Fprintf(tw, "  Autopool\t%s\n", d.Incomes.Autopool.StringFixed(2))
				fmt.Fprintf(tw, "  Reward\t%s\n", d.Incomes.Reward.StringFixed(2))
				fmt.Fprintf(tw, "Team\tdirect %d, total %d\n", d.TeamStructure.DirectTeam, d.TeamStructure.TotalTeam)
				fmt.Fprintf(tw, "Volume\tL %s | R %s\n", d.Volume.LeftVolume, d.Volume.RightVolume)
				fmt.Fprintf(tw, "Left link\t%s\n", d.ReferralLinks.Left)
				fmt.Fprintf(tw, "Right link\t%s\n", d.ReferralLinks.Right)
				return tw.Flush()
			})
		},
	}
}

type treeOptions struct {
	Root    int64
	Details bool
}

func newTreeCmd(a *app) *cobra.Command {
	var opts treeOptions

	cmd := &cobra.Command{
		Use:   "tree [--root <userId>]",
		Short: "Show three levels of the binary tree",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.handle().Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			root := opts.Root
			if root == model.EmptyUserID {
				root = s.User.UserID
			}

			loader := tree.NewLoader(a.api().Binary, a.cfg.TreeConcurrency, a.logger)
			view := tree.View{Root: loader.Load(cmd.Context(), root), ViewerID: s.User.UserID}

			var expired error
			view.Root.Walk(func(n *tree.Node) {
				if expired == nil && errors.Is(n.Err, apperror.ErrSessionExpired) {
					expired = n.Err
				}
				if opts.Details && n.State == tree.StateRendered {
					n.Expanded = true
				}
			})
			if expired != nil {
				return expired
			}
			return a.print(view.Root, func(w io.Writer) error {
				return tree.RenderText(w, view)
			})
		},
	}

	cmd.Flags().Int64Var(&opts.Root, "root", 0, "user id to root the tree at (default: you)")
	cmd.Flags().BoolVar(&opts.Details, "details", false, "show counts and carry-forward for every node")
	return cmd
}

type listOptions struct {
	Type   string
	Status string
	Page   int
	Limit  int
}

func newIncomesCmd(a *app) *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:   "incomes [--type roi|level|binary|autopool|reward]",
		Short: "List income history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			page, err := a.api().Income.List(cmd.Context(), model.IncomeType(opts.Type), api.Page{Page: opts.Page, Limit: opts.Limit})
			if err != nil {
				return err
			}
			return a.print(page, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "DATE\tTYPE\tAMOUNT\tDESCRIPTION")
				for _, in := range page.Incomes {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", formatDate(in.CreatedAt), in.Type, in.Amount.StringFixed(2), in.Description)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				return printPagination(w, page.Pagination)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Type, "type", string(model.IncomeAll), "income type")
	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&opts.Limit, "limit", service.PageSize, "entries per page")
	return cmd
}

func newTransactionsCmd(a *app) *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "List wallet transactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			page, err := a.api().Transactions.List(cmd.Context(), model.TransactionFilter{
				Type:   opts.Type,
				Status: opts.Status,
				Page:   opts.Page,
				Limit:  opts.Limit,
			})
			if err != nil {
				return err
			}
			return a.print(page, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "DATE\tTYPE\tAMOUNT\tFEE\tSTATUS")
				for _, tx := range page.Transactions {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", formatDate(tx.CreatedAt), tx.Type,
						tx.Amount.StringFixed(2), tx.Fee.StringFixed(2), tx.Status)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				return printPagination(w, page.Pagination)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Type, "type", "", "deposit, withdrawal, purchase, swap, ...")
	cmd.Flags().StringVar(&opts.Status, "status", "", "pending, completed, failed, ...")
	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&opts.Limit, "limit", service.PageSize, "entries per page")
	return cmd
}

func newPackagesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "packages",
		Short: "List the packages on offer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := a.api().Packages.List(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(list, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "INDEX\tNAME\tPRICE (USD)\tXEE\tACTIVE")
				for _, p := range list.Packages {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\n", p.PackageIndex, p.Name,
						p.PriceUSD.StringFixed(2), p.XeenuxAmount.StringFixed(2), p.IsActive)
				}
				fmt.Fprintf(tw, "\nXEE price\t%s\n", list.XeenuxPrice)
				return tw.Flush()
			})
		},
	}
}

func printPagination(w io.Writer, p model.Pagination) error {
	if p.TotalPages == 0 {
		_, err := fmt.Fprintln(w, "(no entries)")
		return err
	}
	_, err := fmt.Fprintf(w, "page %d of %d, %d total\n", p.Page, p.TotalPages, p.Total)
	return err
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(dateLayout)
}
