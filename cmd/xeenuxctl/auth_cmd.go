package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sakif/xeenux-portal/internal/model"
	"github.com/sakif/xeenux-portal/internal/validate"
)

type loginOptions struct {
	Email    string
	Password string
}

func newLoginCmd(a *app) *cobra.Command {
	var opts loginOptions

	cmd := &cobra.Command{
		Use:   "login --email <email>",
		Short: "Sign in and keep the session for later commands",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.Password == "" {
				pw, err := prompt(cmd, "Password: ")
				if err != nil {
					return err
				}
				opts.Password = pw
			}

			req := model.LoginRequest{Email: strings.TrimSpace(opts.Email), Password: opts.Password}
			if err := validate.Struct(req); err != nil {
				return err
			}

			res, err := a.public().Auth.Login(cmd.Context(), req)
			if err != nil {
				return err
			}
			if err := a.handle().Store(cmd.Context(), res.Token(), res.User); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Logged in as #%d %s\n", res.User.UserID, res.User.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Email, "email", "", "account email")
	cmd.Flags().StringVar(&opts.Password, "password", "", "password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.sessions.Forget(cmd.Context(), sessionID); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.handle().Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(s.User, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintf(tw, "User\t#%d %s\n", s.User.UserID, s.User.Name)
				fmt.Fprintf(tw, "Email\t%s\n", s.User.Email)
				fmt.Fprintf(tw, "Role\t%s\n", s.User.Role)
				if !s.UpdatedAt.IsZero() {
					fmt.Fprintf(tw, "Session\tlast used %s\n", s.UpdatedAt.Local().Format("2006-01-02 15:04"))
				}
				return tw.Flush()
			})
		},
	}
}

type registerOptions struct {
	validate.Registration
	Right bool
}

func newRegisterCmd(a *app) *cobra.Command {
	var opts registerOptions

	cmd := &cobra.Command{
		Use:   "register --name <name> --email <email> --phone <number> --wallet <address>",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.Password == "" {
				pw, err := prompt(cmd, "Password: ")
				if err != nil {
					return err
				}
				opts.Password = pw
			}
			if opts.Right {
				opts.Position = model.PositionRight
			}

			req, err := opts.Request()
			if err != nil {
				return err
			}
			res, err := a.public().Auth.Register(cmd.Context(), req)
			if err != nil {
				return err
			}
			if err := a.handle().Store(cmd.Context(), res.Token(), res.User); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Registered as #%d %s\n", res.User.UserID, res.User.Name)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Name, "name", "", "display name")
	f.StringVar(&opts.Email, "email", "", "account email")
	f.StringVar(&opts.CountryCode, "country-code", "", "phone country code, e.g. +1")
	f.StringVar(&opts.PhoneNumber, "phone", "", "phone number")
	f.StringVar(&opts.Password, "password", "", "password (prompted when omitted)")
	f.StringVar(&opts.WalletAddress, "wallet", "", "wallet address for withdrawals")
	f.Int64Var(&opts.ReferrerID, "referrer", 0, "sponsor user id")
	f.BoolVar(&opts.Right, "right", false, "place under the sponsor's right leg")
	return cmd
}

// prompt reads one line from the command's input.
func prompt(cmd *cobra.Command, label string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), label)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
