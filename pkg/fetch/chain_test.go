package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func routeTo(path string) func(string) string {
	return func(base string) string { return base + path }
}

func testStrategy(name, path string) Strategy {
	return Strategy{
		Name:    name,
		Timeout: 2 * time.Second,
		Headers: map[string]string{"User-Agent": "test/" + name},
		Rewrite: routeTo(path),
	}
}

func TestChainShortCircuit(t *testing.T) {
	var thirdHits atomic.Int32
	body := strings.Repeat("x", 2048)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/first":
			w.WriteHeader(http.StatusForbidden)
		case "/second":
			w.Write([]byte(body))
		case "/third":
			thirdHits.Add(1)
			w.Write([]byte(body))
		}
	}))
	defer srv.Close()

	chain := NewChain([]Strategy{
		testStrategy("first", "/first"),
		testStrategy("second", "/second"),
		testStrategy("third", "/third"),
	}, WithBackoffBase(time.Millisecond))

	payload, used, err := chain.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "second", used)
	require.Equal(t, body, string(payload))
	require.Zero(t, thirdHits.Load(), "later strategies must not run after a success")
}

func TestChainAllFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	chain := NewChain([]Strategy{
		testStrategy("a", "/"),
		testStrategy("b", "/"),
	}, WithBackoffBase(time.Millisecond))

	_, _, err := chain.Fetch(context.Background(), srv.URL)
	require.Error(t, err)

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, ClassRejected, fetchErr.Class)
}

func TestChainEmptyPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("tiny"))
	}))
	defer srv.Close()

	chain := NewChain([]Strategy{testStrategy("only", "/")},
		WithBackoffBase(time.Millisecond), WithMinPayload(100))

	_, _, err := chain.Fetch(context.Background(), srv.URL)

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, ClassEmpty, fetchErr.Class)
}

func TestChainTimeoutClass(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	slow := testStrategy("slow", "/")
	slow.Timeout = 50 * time.Millisecond

	chain := NewChain([]Strategy{slow}, WithBackoffBase(time.Millisecond))

	_, _, err := chain.Fetch(context.Background(), srv.URL)

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, ClassTimeout, fetchErr.Class)
}

func TestChainCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chain := NewChain([]Strategy{testStrategy("a", "/"), testStrategy("b", "/")})
	_, _, err := chain.Fetch(ctx, srv.URL)
	require.True(t, errors.Is(err, context.Canceled))
}

func TestChainStrategyHeaders(t *testing.T) {
	var gotUA atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA.Store(r.Header.Get("User-Agent"))
		w.Write([]byte(strings.Repeat("x", 1024)))
	}))
	defer srv.Close()

	chain := NewChain([]Strategy{testStrategy("custom", "/")})
	_, _, err := chain.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "test/custom", gotUA.Load())
}
