package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/go-wa-onboarding/internal/domain"
	"github.com/go-wa-onboarding/internal/infrastructure/backend"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// configView is the YAML rendering of a tenant snapshot.
type configView struct {
	Tenant            string    `yaml:"tenant"`
	Status            string    `yaml:"whatsapp_status"`
	OnboardingStatus  string    `yaml:"onboarding_status"`
	UsingOwnWhatsApp  bool      `yaml:"using_own_whatsapp"`
	WebhookVerified   bool      `yaml:"webhook_verified"`
	WabaID            string    `yaml:"waba_id,omitempty"`
	PhoneNumberID     string    `yaml:"phone_number_id,omitempty"`
	PendingPinPhoneID string    `yaml:"pending_pin_phone_id,omitempty"`
	ShouldPoll        bool      `yaml:"should_poll"`
	Webhook           string    `yaml:"webhook,omitempty"`
	FetchedAt         time.Time `yaml:"fetched_at"`
}

func newConfigView(s domain.Snapshot) configView {
	return configView{
		Tenant:            s.TenantID,
		Status:            string(s.Config.WhatsAppStatus),
		OnboardingStatus:  string(s.Config.WhatsAppOnboardingStatus),
		UsingOwnWhatsApp:  s.Config.IsUsingOwnWhatsApp,
		WebhookVerified:   s.Config.IsWebhookVerified,
		WabaID:            s.Config.WhatsAppWabaID,
		PhoneNumberID:     s.Config.WhatsAppPhoneNumberID,
		PendingPinPhoneID: s.Config.PendingPinPhoneID(),
		ShouldPoll:        s.Config.ShouldPoll(),
		Webhook:           s.Webhook,
		FetchedAt:         s.FetchedAt,
	}
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Fetch a tenant's onboarding config from the backend",
	Long: `Fetches the onboarding config for --tenant and prints it as YAML.

Examples:
  signupctl config --tenant retailer-42`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tenantID, _ := cmd.Flags().GetString("tenant")
		if tenantID == "" {
			return fmt.Errorf("--tenant is required")
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.BackendTimeout)
		defer cancel()
		client := backend.NewClient(cfg.BackendBaseURL, cfg.BackendAPIKey, cfg.BackendTimeout)
		snap, err := client.ForTenant(tenantID).GetConfig(ctx)
		if err != nil {
			return fmt.Errorf("fetch config: %w", err)
		}
		snap.TenantID = tenantID

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(newConfigView(snap))
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().String("tenant", "", "tenant (retailer) id")
}
