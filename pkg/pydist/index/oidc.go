package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/caarlos0/env/v11"
)

// OIDCEnv is the ambient identity the CI platform hands a job that is
// allowed to publish.  Trusted publishing turns it in to a short-lived index
// API token, so the repository never stores a long-lived credential.
type OIDCEnv struct {
	// RequestURL serves signed identity tokens for this job.
	RequestURL string `env:"ACTIONS_ID_TOKEN_REQUEST_URL"`
	// RequestToken authenticates to RequestURL.
	RequestToken string `env:"ACTIONS_ID_TOKEN_REQUEST_TOKEN"`
	// Audience names the index the identity token is minted for.
	Audience string `env:"REVX_OIDC_AUDIENCE" envDefault:"pypi"`
}

// OIDCEnvFromEnviron reads the ambient OIDC credentials.
func OIDCEnvFromEnviron() (*OIDCEnv, error) {
	var cfg OIDCEnv
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("index.OIDCEnvFromEnviron: %w", err)
	}
	if cfg.RequestURL == "" || cfg.RequestToken == "" {
		return nil, fmt.Errorf("index.OIDCEnvFromEnviron: no ambient OIDC credentials " +
			"(ACTIONS_ID_TOKEN_REQUEST_URL/ACTIONS_ID_TOKEN_REQUEST_TOKEN); " +
			"does the job have id-token write permission?")
	}
	return &cfg, nil
}

// MintToken performs the trusted-publishing exchange: fetch an identity
// token from the CI platform, trade it at the index's mint-token endpoint,
// and install the resulting API token on the client.
func (c *Client) MintToken(ctx context.Context, oidc *OIDCEnv) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("index.MintToken: %w", err)
		}
	}()
	c.fillDefaults()

	// 1. Get the signed identity token for this job.
	reqURL, err := url.Parse(oidc.RequestURL)
	if err != nil {
		return err
	}
	query := reqURL.Query()
	query.Set("audience", oidc.Audience)
	reqURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+oidc.RequestToken)
	req.Header.Set("User-Agent", c.UserAgent)

	var idToken struct {
		Value string `json:"value"`
	}
	if err := c.doJSON(req, &idToken); err != nil {
		return fmt.Errorf("fetch identity token: %w", err)
	}
	if idToken.Value == "" {
		return fmt.Errorf("fetch identity token: empty token in response")
	}

	// 2. Trade it for a short-lived upload token.
	reqBody, err := json.Marshal(map[string]string{"token": idToken.Value})
	if err != nil {
		return err
	}
	req, err = http.NewRequestWithContext(ctx, http.MethodPost, c.MintURL,
		bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.UserAgent)

	var minted struct {
		Token string `json:"token"`
	}
	if err := c.doJSON(req, &minted); err != nil {
		return fmt.Errorf("mint upload token: %w", err)
	}
	if minted.Token == "" {
		return fmt.Errorf("mint upload token: empty token in response")
	}

	c.Token = minted.Token
	return nil
}

func (c Client) doJSON(req *http.Request, out interface{}) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		_ = resp.Body.Close()
		return err
	}
	if err := resp.Body.Close(); err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return &HTTPError{
			Status:     resp.Status,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}
	return json.Unmarshal(body, out)
}
