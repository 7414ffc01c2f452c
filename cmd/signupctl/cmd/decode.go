package cmd

import (
	"fmt"
	"strings"

	"github.com/go-wa-onboarding/internal/pkg/signedrequest"
	"github.com/spf13/cobra"
)

var decodeCmd = &cobra.Command{
	Use:   "decode-signed-request <signed_request>",
	Short: "Print the authorization code carried by a login SDK signed request",
	Long: `Decodes the payload segment of a signed request and prints its code.

The signature is not verified; the backend does that during the exchange.

Examples:
  signupctl decode-signed-request "sig.eyJjb2RlIjoiYWJjIn0"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := signedrequest.Code(strings.TrimSpace(args[0]))
		if err != nil {
			return fmt.Errorf("decode signed request: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), code)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}
