package cmd

import (
	"fmt"

	"github.com/go-wa-onboarding/internal/domain"
	jwtinfra "github.com/go-wa-onboarding/internal/infrastructure/jwt"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an operator JWT for local testing",
	Long: `Signs a token with the configured private key.

Examples:
  signupctl token --user alice --tenant retailer-42 --role owner`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		tenantID, _ := cmd.Flags().GetString("tenant")
		role, _ := cmd.Flags().GetString("role")
		if tenantID == "" {
			return fmt.Errorf("--tenant is required")
		}
		switch role {
		case domain.RoleOwner, domain.RoleAdmin, domain.RoleStaff:
		default:
			return fmt.Errorf("unknown role: %s (supported: owner, admin, staff)", role)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		provider, err := jwtinfra.NewProvider(cfg)
		if err != nil {
			return fmt.Errorf("jwt provider: %w", err)
		}
		token, err := provider.Sign(userID, tenantID, role)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().String("user", "operator", "user id")
	tokenCmd.Flags().String("tenant", "", "tenant (retailer) id")
	tokenCmd.Flags().String("role", domain.RoleOwner, "role: owner, admin or staff")
}
