package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierline/agency-backend/config"
)

func newTestClient(baseURL string) *Client {
	c := New(config.MailerConfig{
		BaseURL: baseURL,
		APIKey:  "test-key",
		Timeout: 2 * time.Second,
	})
	// keep retries fast in tests
	c.backoffInitial = time.Millisecond
	c.backoffMax = 5 * time.Millisecond
	return c
}

func TestClientSend(t *testing.T) {
	t.Run("posts the message and accepts a success response", func(t *testing.T) {
		var got Message
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/messages", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_ = json.NewEncoder(w).Encode(sendResponse{Success: true})
		}))
		defer srv.Close()

		err := newTestClient(srv.URL).Send(context.Background(), Message{
			To:      "ada@x.io",
			Subject: "Still thinking it over?",
			Body:    "Hi Ada",
		})
		require.NoError(t, err)
		assert.Equal(t, "ada@x.io", got.To)
	})

	t.Run("a reported failure is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(sendResponse{Success: false, Error: "unknown recipient"})
		}))
		defer srv.Close()

		err := newTestClient(srv.URL).Send(context.Background(), Message{To: "x@x.io"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown recipient")
	})

	t.Run("retries a 429 with backoff and succeeds", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			_ = json.NewEncoder(w).Encode(sendResponse{Success: true})
		}))
		defer srv.Close()

		err := newTestClient(srv.URL).Send(context.Background(), Message{To: "x@x.io"})
		require.NoError(t, err)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("a persistent 429 eventually fails this one send", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		err := newTestClient(srv.URL).Send(context.Background(), Message{To: "x@x.io"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate limited")
	})

	t.Run("other 4xx/5xx are not retried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		err := newTestClient(srv.URL).Send(context.Background(), Message{To: "x@x.io"})
		require.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("unconfigured base url", func(t *testing.T) {
		err := New(config.MailerConfig{}).Send(context.Background(), Message{To: "x@x.io"})
		assert.Error(t, err)
	})
}
