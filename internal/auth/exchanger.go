package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Grant is the result of one successful exchange
type Grant struct {
	AccessToken string
	Lifetime    time.Duration
}

// Exchanger obtains a fresh access token
type Exchanger interface {
	Exchange(ctx context.Context) (Grant, error)
}

// ExchangerFunc adapts a function to Exchanger
type ExchangerFunc func(ctx context.Context) (Grant, error)

// Exchange calls f
func (f ExchangerFunc) Exchange(ctx context.Context) (Grant, error) { return f(ctx) }

// BrokerExchanger runs the identity-broker bearer exchange followed by the
// SAML2 bearer grant against the OAuth token endpoint
type BrokerExchanger struct {
	creds           Credentials
	client          *http.Client
	defaultLifetime time.Duration
}

// NewBrokerExchanger creates an exchanger for creds. A nil client gets the
// default HTTP timeout.
func NewBrokerExchanger(creds Credentials, client *http.Client, defaultLifetime time.Duration) *BrokerExchanger {
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	if defaultLifetime <= 0 {
		defaultLifetime = DefaultLifetime
	}
	return &BrokerExchanger{creds: creds, client: client, defaultLifetime: defaultLifetime}
}

// Exchange implements Exchanger
func (b *BrokerExchanger) Exchange(ctx context.Context) (Grant, error) {
	if !b.creds.Complete() {
		return Grant{}, fmt.Errorf("incomplete credentials, missing %s", strings.Join(b.creds.Missing(), ", "))
	}

	bearer, err := b.bearerToken(ctx)
	if err != nil {
		return Grant{}, fmt.Errorf("bearer token: %w", err)
	}

	grant, err := b.accessToken(ctx, bearer)
	if err != nil {
		return Grant{}, fmt.Errorf("access token: %w", err)
	}
	return grant, nil
}

func (b *BrokerExchanger) bearerToken(ctx context.Context) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"name":     b.creds.Name,
		"password": b.creds.Password,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.creds.BearerTokenURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := b.do(req)
	if err != nil {
		return "", err
	}

	token := gjson.GetBytes(body, bearerTokenResponseKey).String()
	if token == "" {
		return "", errors.New("response has no " + bearerTokenResponseKey)
	}
	return token, nil
}

func (b *BrokerExchanger) accessToken(ctx context.Context, bearer string) (Grant, error) {
	form := url.Values{}
	form.Set("grant_type", SAMLBearerGrantType)
	form.Set("scope", b.creds.Scope)
	form.Set("assertion", bearer)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.creds.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Grant{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(b.creds.ClientID, b.creds.ClientSecret)

	body, err := b.do(req)
	if err != nil {
		return Grant{}, err
	}

	res := gjson.ParseBytes(body)
	token := res.Get("access_token").String()
	if token == "" {
		return Grant{}, errors.New("response has no access_token")
	}

	lifetime := b.defaultLifetime
	if exp := res.Get("expires_in"); exp.Exists() && exp.Int() > 0 {
		lifetime = time.Duration(exp.Int()) * time.Second
	}
	return Grant{AccessToken: token, Lifetime: lifetime}, nil
}

func (b *BrokerExchanger) do(req *http.Request) ([]byte, error) {
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s: status %d", req.URL.Host, resp.StatusCode)
	}
	return body, nil
}
