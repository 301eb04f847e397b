package main

import (
	"encoding/json"
	"fmt"

	"github.com/adrewards/backend/internal/models"
	"github.com/adrewards/backend/internal/services"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// operator acts with admin rights on behalf of the CLI user
var operator = services.Actor{UserID: "ledgerctl", IsAdmin: true}

var demoAds = []models.Ad{
	{Title: "Ceylon Tea Sampler", Description: "Thirty second spot", ImageURL: "/static/ads/tea.png", TargetURL: "https://example.com/tea", Price: decimal.RequireFromString("50.00")},
	{Title: "Mobile Data Pack", Description: "Watch to unlock a data bundle", ImageURL: "/static/ads/data.png", TargetURL: "https://example.com/data", Price: decimal.RequireFromString("75.50")},
	{Title: "Spice Market", Description: "Local spices delivered", ImageURL: "/static/ads/spice.png", TargetURL: "https://example.com/spice", Price: decimal.RequireFromString("120.00")},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(resetDailyCmd)
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userShowCmd)
	userCmd.AddCommand(userStatusCmd)
	userCmd.AddCommand(userAdminCmd)

	seedCmd.Flags().String("admin-id", "", "Subject of the admin account to provision")
	seedCmd.Flags().String("admin-email", "", "Email of the admin account")
	seedCmd.Flags().Bool("skip-ads", false, "Do not create the demo ad catalog")
	userAdminCmd.Flags().Bool("revoke", false, "Revoke admin access instead of granting it")
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// openLedger has already migrated by the time we get here
		fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the demo ad catalog and an admin account",
	Long: `Create the demo ad catalog (only when the catalog is empty) and, when
--admin-id is given, an active admin account. An existing account keeps its
ledger and is promoted to admin.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	adminID, _ := cmd.Flags().GetString("admin-id")
	adminEmail, _ := cmd.Flags().GetString("admin-email")
	skipAds, _ := cmd.Flags().GetBool("skip-ads")

	if !skipAds {
		existing, err := ledger.ListAds(ctx, false)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			fmt.Fprintf(out, "Catalog already has %d ads, skipping\n", len(existing))
		} else {
			for i := range demoAds {
				ad := demoAds[i]
				ad.IsActive = true
				if err := ledger.CreateAd(ctx, &ad); err != nil {
					return err
				}
				fmt.Fprintf(out, "Created ad %d %q (%s)\n", ad.ID, ad.Title, ad.Price.StringFixed(2))
			}
		}
	}

	if adminID == "" {
		return nil
	}
	user, err := ledger.EnsureUser(ctx, &models.User{
		ID:      adminID,
		Email:   adminEmail,
		Status:  models.UserStatusActive,
		IsAdmin: true,
		Balance: decimal.Zero,
	})
	if err != nil {
		return err
	}
	if !user.IsAdmin {
		if user, err = admin.SetAdmin(ctx, operator, adminID, true); err != nil {
			return err
		}
		fmt.Fprintf(out, "Promoted existing user %s to admin\n", user.ID)
	}
	fmt.Fprintf(out, "Admin account %s ready\n", user.ID)
	return nil
}

var resetDailyCmd = &cobra.Command{
	Use:   "reset-daily-rewards",
	Short: "Zero every user's daily reward now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := admin.ResetAllDailyRewards(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Reset daily rewards for %d users\n", n)
		return nil
	},
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Inspect and manage user ledgers",
}

var userShowCmd = &cobra.Command{
	Use:   "show USER_ID",
	Short: "Print a user's ledger as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := admin.GetUser(cmd.Context(), operator, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, user)
	},
}

var userStatusCmd = &cobra.Command{
	Use:   "status USER_ID STATUS",
	Short: "Set a user's account status (active, pending, frozen)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := admin.SetStatus(cmd.Context(), operator, args[0], models.UserStatus(args[1]))
		if err != nil {
			return err
		}
		return printJSON(cmd, user)
	},
}

var userAdminCmd = &cobra.Command{
	Use:   "admin USER_ID",
	Short: "Grant (or with --revoke, remove) admin access",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		revoke, _ := cmd.Flags().GetBool("revoke")
		user, err := admin.SetAdmin(cmd.Context(), operator, args[0], !revoke)
		if err != nil {
			return err
		}
		return printJSON(cmd, user)
	},
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
