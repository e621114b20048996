// Package auth keeps one bearer token per environment and refreshes it
// through the identity broker before it expires.
package auth

import (
	"time"

	"github.com/vburojevic/calltrace/internal/domain"
)

// Timing defaults
const (
	DefaultRefreshBuffer   = 300 * time.Second
	DefaultLifetime        = 3600 * time.Second
	DefaultHTTPTimeout     = 30 * time.Second
	SAMLBearerGrantType    = "urn:ietf:params:oauth:grant-type:saml2-bearer"
	bearerTokenResponseKey = "BearerToken"
)

// Credentials is everything needed to obtain a token for one environment
type Credentials struct {
	Name           string `mapstructure:"name" json:"name,omitempty"`
	Password       string `mapstructure:"password" json:"-"`
	ClientID       string `mapstructure:"client_id" json:"client_id,omitempty"`
	ClientSecret   string `mapstructure:"client_secret" json:"-"`
	Scope          string `mapstructure:"scope" json:"scope,omitempty"`
	BearerTokenURL string `mapstructure:"bearer_token_url" json:"bearer_token_url,omitempty"`
	TokenURL       string `mapstructure:"token_url" json:"token_url,omitempty"`
	Token          string `mapstructure:"token" json:"-"` // pre-issued access token
}

// Complete reports whether the two-step exchange can run
func (c Credentials) Complete() bool {
	return c.Name != "" && c.Password != "" &&
		c.ClientID != "" && c.ClientSecret != "" &&
		c.BearerTokenURL != "" && c.TokenURL != ""
}

// Missing lists the names of unset exchange fields
func (c Credentials) Missing() []string {
	var out []string
	check := func(name, v string) {
		if v == "" {
			out = append(out, name)
		}
	}
	check("name", c.Name)
	check("password", c.Password)
	check("client_id", c.ClientID)
	check("client_secret", c.ClientSecret)
	check("bearer_token_url", c.BearerTokenURL)
	check("token_url", c.TokenURL)
	return out
}

// EnvSuffix returns the environment variable suffix used for env
func EnvSuffix(env domain.Environment) string {
	if env == domain.EnvInt {
		return "_INT"
	}
	return ""
}
