package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/learnmarket/backend/internal/auth"
)

var roles = map[string]int{
	"student": auth.RoleStudent,
	"creator": auth.RoleCreator,
	"admin":   auth.RoleAdmin,
}

func newRootCmd(rt Runtime) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "coursectl",
		Short:         "Administrative tooling for the LearnMarket core",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd(rt))
	rootCmd.AddCommand(payoutsCmd(rt))
	rootCmd.AddCommand(paymentsCmd(rt))
	rootCmd.AddCommand(coursesCmd(rt))
	rootCmd.AddCommand(tokenCmd(rt))

	return rootCmd
}

func migrateCmd(rt Runtime) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			version, applied, err := rt.Migrate(dir)
			if err != nil {
				return err
			}
			if !applied {
				fmt.Fprintf(cmd.OutOrStdout(), "Schema already at version %d\n", version)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema migrated to version %d\n", version)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "migrations directory (default: ./migrations)")

	return cmd
}

func payoutsCmd(rt Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payouts",
		Short: "Creator payouts",
	}

	var (
		creatorID int
		all       bool
		asJSON    bool
	)

	process := &cobra.Command{
		Use:   "process",
		Short: "Settle unpaid creator earnings",
		Long: `Settle the creator share of completed payments that have not been paid out.

Examples:
  coursectl payouts process --creator 7
  coursectl payouts process --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (creatorID > 0) {
				return fmt.Errorf("exactly one of --creator or --all is required")
			}

			svc, err := rt.Payouts()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if creatorID > 0 {
				payout, err := svc.ProcessPayouts(cmd.Context(), creatorID)
				if err != nil {
					return fmt.Errorf("failed to process payouts for creator %d: %w", creatorID, err)
				}
				if asJSON {
					return json.NewEncoder(out).Encode(payout)
				}
				if payout.PaymentCount == 0 {
					fmt.Fprintf(out, "Creator %d has no unpaid earnings\n", creatorID)
					return nil
				}
				fmt.Fprintf(out, "Creator %d: paid %s for %d payment(s)\n", creatorID, payout.Amount.StringFixed(2), payout.PaymentCount)
				return nil
			}

			payouts, err := svc.ProcessAllPayouts(cmd.Context())
			if asJSON {
				if encErr := json.NewEncoder(out).Encode(payouts); encErr != nil {
					return encErr
				}
			} else {
				for _, payout := range payouts {
					fmt.Fprintf(out, "Creator %d: paid %s for %d payment(s)\n", payout.CreatorID, payout.Amount.StringFixed(2), payout.PaymentCount)
				}
				fmt.Fprintf(out, "%d payout(s) processed\n", len(payouts))
			}
			return err
		},
	}

	process.Flags().IntVar(&creatorID, "creator", 0, "creator to pay out")
	process.Flags().BoolVar(&all, "all", false, "pay out every creator with unpaid earnings")
	process.Flags().BoolVarP(&asJSON, "json", "j", false, "output as JSON")

	cmd.AddCommand(process)
	return cmd
}

func paymentsCmd(rt Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payments",
		Short: "Payment maintenance",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Fail pending payments older than PENDING_PAYMENT_TTL",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := rt.Maintenance()
			if err != nil {
				return err
			}
			failed, err := svc.SweepStalePayments(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d stale payment(s) failed\n", failed)
			return nil
		},
	})

	return cmd
}

func coursesCmd(rt Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "courses",
		Short: "Course maintenance",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "reconcile",
		Short: "Recount enrolled students of every course",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := rt.Maintenance()
			if err != nil {
				return err
			}
			fixed, err := svc.ReconcileEnrollmentCounts(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d course counter(s) corrected\n", fixed)
			return nil
		},
	})

	return cmd
}

func tokenCmd(rt Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Access tokens for operators and local testing",
	}

	var (
		userID int
		role   string
		name   string
	)

	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue an access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return fmt.Errorf("--user must be a positive id")
			}
			roleID, ok := roles[role]
			if !ok {
				return fmt.Errorf("unknown role %q (student, creator, admin)", role)
			}

			tokens, err := rt.Tokens()
			if err != nil {
				return err
			}
			token, err := tokens.GenerateAccessToken(userID, roleID, name)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	issue.Flags().IntVar(&userID, "user", 0, "user id")
	issue.Flags().StringVar(&role, "role", "student", "role: student, creator or admin")
	issue.Flags().StringVar(&name, "name", "", "display name carried in the token")

	cmd.AddCommand(issue)
	return cmd
}
