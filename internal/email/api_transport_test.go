package email_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgespace/notify/internal/email"
	"github.com/forgespace/notify/internal/ratelimiter"
)

func TestAPITransport_Send(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_123"}`))
	}))
	defer srv.Close()

	tr := email.NewAPITransport(srv.URL, "re_test", "ForgeSpace <n@forge.test>", time.Second, ratelimiter.New(100))
	res, err := tr.Send(context.Background(), email.Message{
		To:      "user@example.com",
		Subject: "Hello",
		HTML:    "<p>hi</p>",
		ReplyTo: "support@forge.test",
	})
	require.NoError(t, err)
	assert.Equal(t, "msg_123", res.MessageID)

	assert.Equal(t, "ForgeSpace <n@forge.test>", got["from"])
	assert.Equal(t, []any{"user@example.com"}, got["to"])
	assert.Equal(t, "Hello", got["subject"])
	assert.Equal(t, "<p>hi</p>", got["html"])
	assert.Equal(t, "support@forge.test", got["reply_to"])
}

func TestAPITransport_OmitsEmptyReplyTo(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"id":"msg_1"}`))
	}))
	defer srv.Close()

	tr := email.NewAPITransport(srv.URL, "", "n@forge.test", time.Second, nil)
	_, err := tr.Send(context.Background(), email.Message{To: "a@b.co", Subject: "s", HTML: "h"})
	require.NoError(t, err)
	_, present := got["reply_to"]
	assert.False(t, present)
}

func TestAPITransport_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"statusCode":422,"name":"validation_error","message":"Invalid to field"}`))
	}))
	defer srv.Close()

	tr := email.NewAPITransport(srv.URL, "k", "n@forge.test", time.Second, nil)
	_, err := tr.Send(context.Background(), email.Message{To: "bad", Subject: "s", HTML: "h"})
	require.Error(t, err)

	var perr *email.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusUnprocessableEntity, perr.StatusCode)
	assert.Equal(t, "validation_error", perr.Name)
	assert.Contains(t, err.Error(), "Invalid to field")
}

func TestAPITransport_ServerErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	tr := email.NewAPITransport(srv.URL, "k", "n@forge.test", time.Second, nil)
	_, err := tr.Send(context.Background(), email.Message{To: "a@b.co", Subject: "s", HTML: "h"})
	require.Error(t, err)
	assert.Equal(t, "email provider returned 502", err.Error())
}

func TestAPITransport_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	tr := email.NewAPITransport(url, "k", "n@forge.test", time.Second, nil)
	_, err := tr.Send(context.Background(), email.Message{To: "a@b.co", Subject: "s", HTML: "h"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send request")
}
