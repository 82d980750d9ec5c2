package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"letterdesk/internal/model"
)

func TestMailtrapTransport_Send(t *testing.T) {
	var got mailtrapRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	tr := NewMailtrapTransport(MailtrapConfig{
		Endpoint: srv.URL, APIKey: "env-key", FromEmail: "dms@acme.test", FromName: "GEEC DMS", Timeout: time.Second,
	}, nil)

	err := tr.Send(context.Background(), Message{To: "uma@acme.test", Subject: "hi", HTML: "<b>x</b>", Text: "x"})

	require.NoError(t, err)
	assert.Equal(t, "Bearer env-key", auth)
	assert.Equal(t, "dms@acme.test", got.From.Email)
	assert.Equal(t, "GEEC DMS", got.From.Name)
	require.Len(t, got.To, 1)
	assert.Equal(t, "uma@acme.test", got.To[0].Email)
	assert.Equal(t, "x", got.Text)
}

func TestMailtrapTransport_FallsBackToSettingKey(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	keys := stubSettings{values: map[string]string{model.SettingMailtrapAPIKey: "db-key"}}
	tr := NewMailtrapTransport(MailtrapConfig{Endpoint: srv.URL, Timeout: time.Second}, keys)

	require.NoError(t, tr.Send(context.Background(), Message{To: "a@b.test", Subject: "s", Text: "t"}))
	assert.Equal(t, "Bearer db-key", auth)
}

func TestMailtrapTransport_MissingKey(t *testing.T) {
	tr := NewMailtrapTransport(MailtrapConfig{Endpoint: "http://127.0.0.1:1"}, stubSettings{})

	err := tr.Send(context.Background(), Message{To: "a@b.test"})

	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestMailtrapTransport_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":["Unauthorized"]}`, http.StatusUnauthorized)
	}))
	defer srv.Close()
	tr := NewMailtrapTransport(MailtrapConfig{Endpoint: srv.URL, APIKey: "bad", Timeout: time.Second}, nil)

	err := tr.Send(context.Background(), Message{To: "a@b.test"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "Unauthorized")
}
