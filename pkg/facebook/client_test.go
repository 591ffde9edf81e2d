package facebook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishPost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/page-42/feed", r.URL.Path)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "Nouveau retrait du marché", r.Form.Get("message"))
		assert.Equal(t, "tok-secret", r.Form.Get("access_token"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"page-42_987"}`))
	}))
	defer srv.Close()

	c := NewClient("page-42", "tok-secret", WithBaseURL(srv.URL))
	resp, err := c.PublishPost(context.Background(), "Nouveau retrait du marché")
	require.NoError(t, err)
	assert.Equal(t, "page-42_987", resp.ID)
}

func TestPublishPost_GraphError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token","type":"OAuthException","code":190}}`))
	}))
	defer srv.Close()

	c := NewClient("page-42", "bad-token", WithBaseURL(srv.URL))
	_, err := c.PublishPost(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid OAuth access token")
	assert.Contains(t, err.Error(), "code 190")
}

func TestPublishPost_EmptyMessage(t *testing.T) {
	c := NewClient("page-42", "tok")
	_, err := c.PublishPost(context.Background(), "   ")
	assert.Error(t, err)
}
