package smssvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kindredkids/compass/core"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func TestProviderService_Send(t *testing.T) {
	var gotBody map[string]string
	var gotClientID, gotSecret string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClientID = r.Header.Get("X-Client-Id")
		gotSecret = r.Header.Get("X-Client-Secret")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	conf := &core.Config{
		SMS: core.SMSConfig{
			ClientID:     "cid",
			ClientSecret: "secret",
			SenderID:     "Kindred",
			Endpoint:     srv.URL,
		},
	}
	svc := NewProviderService(conf, nopLogger{})

	err := svc.Send(context.Background(), "+233201234567", "Hello")
	require.NoError(t, err)
	assert.Equal(t, "cid", gotClientID)
	assert.Equal(t, "secret", gotSecret)
	assert.Equal(t, map[string]string{
		"from":    "Kindred",
		"to":      "+233201234567",
		"message": "Hello",
	}, gotBody)
}

func TestProviderService_SendErrors(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		svc := NewProviderService(&core.Config{}, nopLogger{})
		err := svc.Send(context.Background(), "+233201234567", "Hello")
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("provider failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		conf := &core.Config{
			SMS: core.SMSConfig{ClientID: "cid", ClientSecret: "secret", SenderID: "Kindred", Endpoint: srv.URL},
		}
		svc := NewProviderService(conf, nopLogger{})
		err := svc.Send(context.Background(), "+233201234567", "Hello")
		assert.ErrorContains(t, err, "status 502")
	})
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+233 20 123 4567", "+233201234567"},
		{" 0551234567 ", "0551234567"},
		{"024\t555\n1234", "0245551234"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePhone(tt.in))
	}
}
