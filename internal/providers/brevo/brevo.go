// Package brevo is a Provider that delivers verification e-mails through the
// Brevo transactional e-mail HTTP API, which works without a sending
// domain of one's own.
package brevo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/glamqueue/glamqueue/pkg/models"
)

const (
	providerID    = "brevo"
	channelName   = "E-mail"
	maxOTPLen     = 6
	maxAddressLen = 100

	defaultAPIURL = "https://api.brevo.com/v3/smtp/email"
)

var reMail = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Config contains the Brevo provider configuration.
type Config struct {
	URL       string        `json:"url"`
	APIKey    string        `json:"api_key"`
	FromEmail string        `json:"from_email"`
	FromName  string        `json:"from_name"`
	Timeout   time.Duration `json:"timeout"`
	MaxConns  int           `json:"max_conns"`
}

// Brevo posts verification e-mails to the Brevo API.
type Brevo struct {
	cfg  Config
	http *http.Client
}

type address struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// payload is the Brevo /v3/smtp/email request body.
type payload struct {
	Sender      address   `json:"sender"`
	To          []address `json:"to"`
	Subject     string    `json:"subject"`
	HTMLContent string    `json:"htmlContent"`
}

// New returns a Brevo e-mail Provider backend.
func New(cfg Config) (*Brevo, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("brevo: api_key is empty")
	}
	if cfg.URL == "" {
		cfg.URL = defaultAPIURL
	}
	if cfg.FromEmail == "" {
		cfg.FromEmail = "noreply@localhost"
	}
	if cfg.Timeout.Seconds() < 1 {
		cfg.Timeout = time.Second * 3
	}
	if cfg.MaxConns < 1 {
		cfg.MaxConns = 1
	}

	return &Brevo{
		cfg: cfg,
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost:   cfg.MaxConns,
				ResponseHeaderTimeout: cfg.Timeout,
			},
		},
	}, nil
}

// ID returns the Provider's ID.
func (b *Brevo) ID() string {
	return providerID
}

// ChannelName returns the Provider's channel name.
func (b *Brevo) ChannelName() string {
	return channelName
}

// ValidateAddress "validates" an e-mail address.
func (b *Brevo) ValidateAddress(to string) error {
	if !reMail.MatchString(to) {
		return errors.New("invalid e-mail address")
	}
	return nil
}

// Push posts the composed e-mail to the Brevo API.
func (b *Brevo) Push(otp models.OTP, subject string, body []byte) error {
	p := payload{
		Sender:      address{Name: b.cfg.FromName, Email: b.cfg.FromEmail},
		To:          []address{{Email: otp.Email}},
		Subject:     subject,
		HTMLContent: string(body),
	}

	out, err := json.Marshal(p)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, b.cfg.URL, bytes.NewReader(out))
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "glamqueue")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", b.cfg.APIKey)

	resp, err := b.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		// Drain and close the body to let the Transport reuse the connection.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("brevo: non-OK response %d", resp.StatusCode)
	}
	return nil
}

// MaxAddressLen returns the maximum allowed length of the e-mail address.
func (b *Brevo) MaxAddressLen() int {
	return maxAddressLen
}

// MaxOTPLen returns the maximum allowed length of the OTP value.
func (b *Brevo) MaxOTPLen() int {
	return maxOTPLen
}
