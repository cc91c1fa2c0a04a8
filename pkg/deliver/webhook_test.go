package deliver

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWebhookSendSigned(t *testing.T) {
	const secret = "s3cret"
	var gotSig string
	var gotPayload webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Signature-256")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotPayload))

		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(body)
		require.Equal(t, "sha256="+hex.EncodeToString(mac.Sum(nil)), gotSig)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, secret)
	err := wh.Send(context.Background(), "chan-1", "market update", "https://cdn.example.com/a.jpg")
	require.NoError(t, err)
	require.Equal(t, "chan-1", gotPayload.Destination)
	require.Equal(t, "market update", gotPayload.Text)
	require.Equal(t, "https://cdn.example.com/a.jpg", gotPayload.ImageURL)
	require.False(t, gotPayload.SentAt.IsZero())
}

func TestWebhookNoSecretNoSignature(t *testing.T) {
	var gotSig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Signature-256")
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, "")
	require.NoError(t, wh.Send(context.Background(), "chan-1", "text", ""))
	require.Empty(t, gotSig)
}

func TestWebhookStatusClassification(t *testing.T) {
	cases := []struct {
		status int
		want   ErrKind
	}{
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusServiceUnavailable, ErrTransient},
		{http.StatusForbidden, ErrPermanent},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))

		wh := NewWebhook(srv.URL, "")
		err := wh.Send(context.Background(), "chan-1", "text", "")

		var dErr *Error
		require.True(t, errors.As(err, &dErr), "status %d", tc.status)
		require.Equal(t, tc.want, dErr.Kind, "status %d", tc.status)
		srv.Close()
	}
}
