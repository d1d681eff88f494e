// Package captcha verifies reCAPTCHA responses with Google's siteverify API.
package captcha

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophwallet/internal/common"
	"github.com/dmitrijs2005/gophwallet/internal/netx"
)

type Recaptcha struct {
	secret   string
	endpoint string
	client   *http.Client
}

func NewRecaptcha(secret, endpoint string) *Recaptcha {
	return &Recaptcha{
		secret:   secret,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	Hostname   string   `json:"hostname"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify fails BadRequest when Google rejects the response or cannot be
// reached.
func (r *Recaptcha) Verify(ctx context.Context, response, sourceIP string) error {
	form := url.Values{
		"secret":   {r.secret},
		"response": {response},
		"remoteip": {sourceIP},
	}

	var out siteverifyResponse
	if err := netx.PostFormJSON(ctx, r.client, r.endpoint, form, &out); err != nil {
		return common.BadRequest("captcha verification failed: %s.", err)
	}
	if !out.Success {
		return common.BadRequest("captcha rejected: %s.", strings.Join(out.ErrorCodes, ", "))
	}
	return nil
}
