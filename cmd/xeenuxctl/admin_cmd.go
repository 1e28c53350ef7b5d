package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sakif/xeenux-portal/internal/apperror"
	"github.com/sakif/xeenux-portal/internal/model"
	"github.com/sakif/xeenux-portal/internal/query"
	"github.com/sakif/xeenux-portal/internal/validate"
)

type runE func(cmd *cobra.Command, args []string) error

// adminOnly refuses to run when the stored session is not an admin's.
func adminOnly(a *app, run runE) runE {
	return func(cmd *cobra.Command, args []string) error {
		s, err := a.handle().Snapshot(cmd.Context())
		if err != nil {
			return err
		}
		if !s.User.IsAdmin() {
			return apperror.Forbidden("Admin access required")
		}
		return run(cmd, args)
	}
}

func newAdminCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative commands (admin accounts only)",
	}
	cmd.AddCommand(newAdminDashboardCmd(a), newAdminSettingsCmd(a), newAdminUsersCmd(a), newAdminSchedulerCmd(a))
	return cmd
}

func newAdminDashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show platform totals",
		RunE: adminOnly(a, func(cmd *cobra.Command, _ []string) error {
			d, err := a.api().Admin.Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(d, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintf(tw, "Users\t%d total, %d active, %d new today\n", d.Users.Total, d.Users.Active, d.Users.NewToday)
				fmt.Fprintf(tw, "Deposits\t%s\n", d.Transactions.Deposits.StringFixed(2))
				fmt.Fprintf(tw, "Withdrawals\t%s\n", d.Transactions.Withdrawals.StringFixed(2))
				fmt.Fprintf(tw, "Purchases\t%s\n", d.Transactions.Purchases.StringFixed(2))
				fmt.Fprintf(tw, "Income paid\t%s\n", d.Income.Total.StringFixed(2))
				fmt.Fprintf(tw, "Balance\t%s\n", d.Balance.StringFixed(2))
				return tw.Flush()
			})
		}),
	}
}

func newAdminSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and change system settings",
	}

	var group string
	get := &cobra.Command{
		Use:   "get [--group GROUP]",
		Short: "List settings",
		RunE: adminOnly(a, func(cmd *cobra.Command, _ []string) error {
			list, err := a.api().Admin.Settings(cmd.Context(), group)
			if err != nil {
				return err
			}
			return a.print(list, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "GROUP\tKEY\tVALUE")
				for _, s := range list.Settings {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Group, s.Key, s.Value)
				}
				return tw.Flush()
			})
		}),
	}
	get.Flags().StringVar(&group, "group", "", "only this group")

	var update model.SettingUpdate
	set := &cobra.Command{
		Use:   "set KEY VALUE --group GROUP",
		Short: "Change one setting; VALUE is JSON, or a plain string",
		Args:  cobra.ExactArgs(2),
		RunE: adminOnly(a, func(cmd *cobra.Command, args []string) error {
			update.Key = args[0]
			update.Value = settingValue(args[1])
			if err := validate.Struct(update); err != nil {
				return err
			}
			m := query.NewMutation(a.api().Admin.UpdateSetting, mutationOpts(a, "update-setting", "Setting updated")...)
			s, err := m.Submit(cmd.Context(), update)
			if err != nil {
				return reported(err)
			}
			return a.print(s, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s.%s = %s\n", s.Group, s.Key, s.Value)
				return err
			})
		}),
	}
	set.Flags().StringVar(&update.Group, "group", "", "setting group")
	set.Flags().StringVar(&update.Description, "description", "", "description")
	_ = set.MarkFlagRequired("group")

	initialize := &cobra.Command{
		Use:   "init",
		Short: "Seed the default settings",
		RunE: adminOnly(a, func(cmd *cobra.Command, _ []string) error {
			res, err := a.api().Admin.InitializeSettings(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(res, func(w io.Writer) error {
				r := res.Result
				_, err := fmt.Fprintf(w, "inserted %d, upserted %d, modified %d\n", r.InsertedCount, r.UpsertedCount, r.ModifiedCount)
				return err
			})
		}),
	}

	cmd.AddCommand(get, set, initialize)
	return cmd
}

// settingValue keeps valid JSON as is and quotes anything else.
func settingValue(s string) json.RawMessage {
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	quoted, _ := json.Marshal(s)
	return quoted
}

func newAdminUsersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Find users and adjust balances",
	}

	var field string
	search := &cobra.Command{
		Use:   "search QUERY [--field userId|email|name]",
		Short: "Search users",
		Args:  cobra.ExactArgs(1),
		RunE: adminOnly(a, func(cmd *cobra.Command, args []string) error {
			res, err := a.api().Admin.SearchUsers(cmd.Context(), args[0], field)
			if err != nil {
				return err
			}
			return a.print(res, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tRANK\tACTIVE")
				for _, u := range res.Users {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%t\n", u.UserID, u.Name, u.Email, u.Rank, u.IsActive)
				}
				fmt.Fprintf(tw, "\n%d found\n", res.Count)
				return tw.Flush()
			})
		}),
	}
	search.Flags().StringVar(&field, "field", "", "field to match")

	var kind, description string
	balance := &cobra.Command{
		Use:   "balance USER_ID AMOUNT --type TYPE",
		Short: "Credit a user's wallet",
		Args:  cobra.ExactArgs(2),
		RunE: adminOnly(a, func(cmd *cobra.Command, args []string) error {
			req, err := validate.Balance(args[0], args[1], kind, description)
			if err != nil {
				return err
			}
			m := query.NewMutation(a.api().Admin.AddBalance, mutationOpts(a, "add-balance", "Balance updated")...)
			res, err := m.Submit(cmd.Context(), req)
			if err != nil {
				return reported(err)
			}
			return a.print(res, nil)
		}),
	}
	balance.Flags().StringVar(&kind, "type", "deposit", "transaction type")
	balance.Flags().StringVar(&description, "description", "", "shown on the user's transaction")

	rank := &cobra.Command{
		Use:   "rank USER_ID RANK",
		Short: "Set a user's rank",
		Args:  cobra.ExactArgs(2),
		RunE: adminOnly(a, func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return apperror.ValidationFailed("rank", "rank must be a number")
			}
			req := model.RankUpdate{UserID: args[0], Rank: n}
			if err := validate.Struct(req); err != nil {
				return err
			}
			m := query.NewMutation(a.api().Admin.UpdateRank, mutationOpts(a, "update-rank", "Rank updated")...)
			res, err := m.Submit(cmd.Context(), req)
			if err != nil {
				return reported(err)
			}
			return a.print(res, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "#%d %s is now rank %d\n", res.User.UserID, res.User.Name, res.User.Rank)
				return err
			})
		}),
	}

	cmd.AddCommand(search, balance, rank)
	return cmd
}

func newAdminSchedulerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler TASK",
		Short: "Run a backend batch job now (roi, binary, autopool, ...)",
		Args:  cobra.ExactArgs(1),
		RunE: adminOnly(a, func(cmd *cobra.Command, args []string) error {
			res, err := a.api().Admin.RunScheduler(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(res, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "task %s done\n", res.Task)
				return err
			})
		}),
	}
}
