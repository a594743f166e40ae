package phonepe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecksumForPayload(t *testing.T) {
	got := ChecksumForPayload("eyJhIjoxfQ==", "/pg/v1/pay", "S3CR3T", "1")
	assert.Equal(t, "6e71d1f460284a28b28b335ed687ecbcd67ba62faa52dd0e323fffdab0d3f518###1", got)
}

func TestChecksumForPath(t *testing.T) {
	got := ChecksumForPath("/pg/v1/status/M1/TXN1", "S3CR3T", "2")
	assert.Equal(t, "89b8a5589462c8719bacaf3768f83b41bcc8f221c9ea06f7ffd1bd5f0cbfe5b1###2", got)
}

func TestChecksumSaltSensitivity(t *testing.T) {
	a := ChecksumForPayload("payload", "/pg/v1/pay", "salt-a", "1")
	b := ChecksumForPayload("payload", "/pg/v1/pay", "salt-b", "1")
	assert.NotEqual(t, a, b)
}

func TestStatusPath(t *testing.T) {
	assert.Equal(t, "/pg/v1/status/MERCHANT1/TXN42", StatusPath("MERCHANT1", "TXN42"))
}

func TestConfigValidate(t *testing.T) {
	valid := Config{MerchantID: "M1", Salt: "s", SaltIndex: "1", Environment: "SANDBOX"}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing merchant", func(c *Config) { c.MerchantID = "" }},
		{"missing salt", func(c *Config) { c.Salt = "" }},
		{"missing salt index", func(c *Config) { c.SaltIndex = "" }},
		{"bad environment", func(c *Config) { c.Environment = "STAGING" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfigHost(t *testing.T) {
	sandbox := Config{Environment: "SANDBOX"}
	assert.Equal(t, sandboxHost, sandbox.Host())

	production := Config{Environment: "PRODUCTION"}
	assert.Equal(t, productionHost, production.Host())

	override := Config{Environment: "SANDBOX", BaseURL: "http://localhost:9090"}
	assert.Equal(t, "http://localhost:9090", override.Host())
}
