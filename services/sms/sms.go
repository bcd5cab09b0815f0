// Package smssvc delivers short messages through an HTTP SMS provider.
package smssvc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/kindredkids/compass/core"
)

// ErrNotConfigured is returned when any of the three provider credentials is
// missing.
var ErrNotConfigured = errors.New("sms provider not configured")

// Sender is any service that can deliver one SMS.
type Sender interface {
	Send(ctx context.Context, to, message string) error
}

type providerService struct {
	conf   core.SMSConfig
	client *http.Client
	logger core.Logger
}

var _ Sender = (*providerService)(nil)

func NewProviderService(conf *core.Config, logger core.Logger) Sender {
	return &providerService{
		conf:   conf.SMS,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

func (svc *providerService) Send(ctx context.Context, to, message string) error {
	if !svc.conf.Configured() {
		return ErrNotConfigured
	}

	payload, err := json.Marshal(map[string]string{
		"from":    svc.conf.SenderID,
		"to":      to,
		"message": message,
	})
	if err != nil {
		return errors.Wrap(err, "encoding sms payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.conf.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "building sms request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Client-Id", svc.conf.ClientID)
	req.Header.Set("X-Client-Secret", svc.conf.ClientSecret)

	res, err := svc.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "sending sms")
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("sending sms: status %d", res.StatusCode)
	}
	return nil
}

// NormalizePhone strips all whitespace from a guardian contact number.
func NormalizePhone(s string) string {
	return strings.Join(strings.Fields(s), "")
}
