package phonepe

import "fmt"

const (
	sandboxHost    = "https://api-preprod.phonepe.com/apis/pg-sandbox"
	productionHost = "https://api.phonepe.com/apis/hermes"

	payPath    = "/pg/v1/pay"
	statusPath = "/pg/v1/status"
)

type Config struct {
	MerchantID  string
	Salt        string
	SaltIndex   string
	Environment string // SANDBOX or PRODUCTION
	BaseURL     string // overrides the environment host when set
	RedirectURL string
}

func (c *Config) Validate() error {
	if c.MerchantID == "" {
		return fmt.Errorf("merchant id is required")
	}
	if c.Salt == "" {
		return fmt.Errorf("salt is required")
	}
	if c.SaltIndex == "" {
		return fmt.Errorf("salt index is required")
	}
	if c.Environment != "SANDBOX" && c.Environment != "PRODUCTION" {
		return fmt.Errorf("environment must be SANDBOX or PRODUCTION, got %q", c.Environment)
	}
	return nil
}

func (c *Config) Host() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	if c.Environment == "PRODUCTION" {
		return productionHost
	}
	return sandboxHost
}
