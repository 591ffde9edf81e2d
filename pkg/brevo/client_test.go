package brevo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v3/smtp/email", r.URL.Path)
		assert.Equal(t, "key-123", r.Header.Get("api-key"))

		var email Email
		require.NoError(t, json.NewDecoder(r.Body).Decode(&email))
		assert.Equal(t, "Confirmez votre inscription", email.Subject)
		require.Len(t, email.To, 1)
		assert.Equal(t, "amine@example.dz", email.To[0].Email)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"messageId":"<msg-1@smtp-relay>"}`))
	}))
	defer srv.Close()

	c := NewClient("key-123", WithBaseURL(srv.URL))
	resp, err := c.SendEmail(context.Background(), Email{
		Sender:      Contact{Email: "no-reply@pharmadz.dz", Name: "PharmaDZ"},
		To:          []Contact{{Email: "amine@example.dz"}},
		Subject:     "Confirmez votre inscription",
		HTMLContent: "<p>Bonjour</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, "<msg-1@smtp-relay>", resp.MessageID)
}

func TestSendEmail_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"unauthorized","message":"Key not found"}`))
	}))
	defer srv.Close()

	c := NewClient("bad-key", WithBaseURL(srv.URL))
	_, err := c.SendEmail(context.Background(), Email{
		To: []Contact{{Email: "x@y.dz"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Key not found")
}

func TestSendEmail_NoRecipients(t *testing.T) {
	c := NewClient("key")
	_, err := c.SendEmail(context.Background(), Email{})
	assert.Error(t, err)
}
