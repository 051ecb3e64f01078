package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/suteetoe/storefront/pkg/jwtutil"
)

var (
	tokenUserID uint
	tokenEmail  string
	tokenMobile string
	tokenStaff  bool
)

// tokenCmd issues a signed access token, for operators and local testing
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a signed access token",
	Long: `Issue an HS256 access token signed with JWT_SIGNING_KEY.

Examples:
  storefront token --email ops@example.com --staff
  storefront token --mobile 9876543210`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appConfig, _, err := bootstrap()
		if err != nil {
			return err
		}

		util := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
			SigningKey:      appConfig.JWT.SigningKey,
			ExpirationHours: appConfig.JWT.ExpirationHours,
		})
		token, err := util.GenerateToken(tokenUserID, tokenEmail, tokenMobile, tokenStaff)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().UintVar(&tokenUserID, "user-id", 1, "user id claim")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "email claim")
	tokenCmd.Flags().StringVar(&tokenMobile, "mobile", "", "mobile claim used to list the customer's orders")
	tokenCmd.Flags().BoolVar(&tokenStaff, "staff", false, "grant staff permissions")
}
