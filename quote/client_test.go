package quote

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "method=getQuote&lang=en&format=json", r.URL.RawQuery)
		assert.True(t, strings.HasPrefix(r.Header.Get("User-Agent"), "quotewidget/1.0"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"quoteText":"Be yourself.","quoteAuthor":"","senderName":"","senderLink":"","quoteLink":"http://forismatic.com/en/x/"}`)
	}))
	defer srv.Close()

	c := NewClient(WithRelayURL(""), WithBaseURL(srv.URL+"/api/1.0/"))
	q, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Be yourself.", q.Text)
	assert.Equal(t, "", q.Author)
	assert.Equal(t, "Unknown", q.DisplayAuthor())
}

func TestFetch_ThroughRelay(t *testing.T) {
	var mu sync.Mutex
	var gotPath, gotQuery string
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = io.WriteString(w, `{"quoteText":"Stay hungry.","quoteAuthor":"Steve Jobs"}`)
	}))
	defer relay.Close()

	c := NewClient(WithRelayURL(relay.URL + "/"))
	assert.Equal(t, relay.URL+"/http://api.forismatic.com/api/1.0/?method=getQuote&lang=en&format=json", c.RequestURL())

	q, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Steve Jobs", q.Author)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/http://api.forismatic.com/api/1.0/", gotPath)
	assert.Equal(t, "method=getQuote&lang=en&format=json", gotQuery)
}

func TestFetch_Failures(t *testing.T) {
	testCases := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantAPI bool
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "boom", wantAPI: true},
		{name: "relay refused", status: http.StatusForbidden, body: "Missing required request header", wantAPI: true},
		{name: "invalid json", status: http.StatusOK, body: `{"quoteText":"it\'s broken"}`, wantErr: ErrMalformedQuote},
		{name: "not an object", status: http.StatusOK, body: `[]`, wantErr: ErrMalformedQuote},
		{name: "missing text", status: http.StatusOK, body: `{"quoteAuthor":"Nobody"}`, wantErr: ErrMalformedQuote},
		{name: "empty body", status: http.StatusOK, body: ``, wantErr: ErrMalformedQuote},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			c := NewClient(WithRelayURL(""), WithBaseURL(srv.URL))
			_, err := c.Fetch(context.Background())
			require.Error(t, err)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
			ae, ok := IsAPIError(err)
			assert.Equal(t, tc.wantAPI, ok)
			if ok {
				assert.Equal(t, tc.status, ae.StatusCode)
				assert.Contains(t, ae.Error(), tc.body)
			}
		})
	}
}

func TestFetch_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(WithRelayURL(""), WithBaseURL(url))
	_, err := c.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quote: execute request")
}

func TestFetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(WithRelayURL(""), WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond))
	_, err := c.Fetch(context.Background())
	require.Error(t, err)
}

func TestKey(t *testing.T) {
	c := NewClient(WithRelayURL(""), WithBaseURL("http://example.test/api/"), WithKey("457653"))
	assert.Equal(t, "457653", c.Key())
	assert.Equal(t, "http://example.test/api/?method=getQuote&lang=en&format=json&key=457653", c.RequestURL())

	require.NoError(t, c.SetKey(""))
	assert.Equal(t, "http://example.test/api/?method=getQuote&lang=en&format=json", c.RequestURL())

	assert.ErrorIs(t, c.SetKey("1234567"), ErrInvalidKey)
	assert.ErrorIs(t, c.SetKey("12a"), ErrInvalidKey)
	assert.Equal(t, "", c.Key())

	// Invalid keys passed as options are dropped.
	c = NewClient(WithKey("abc"))
	assert.Equal(t, "", c.Key())
}

type recordingRecorder struct {
	mu      sync.Mutex
	results []string
}

func (r *recordingRecorder) ObserveFetch(result string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

func TestFetch_Recorder(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `{"quoteText":"ok","quoteAuthor":"a"}`)
	}))
	defer srv.Close()

	rec := &recordingRecorder{}
	c := NewClient(WithRelayURL(""), WithBaseURL(srv.URL), WithRecorder(rec))
	_, err := c.Fetch(context.Background())
	require.Error(t, err)
	fail.Store(false)
	_, err = c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"failure", "success"}, rec.results)
}

func TestFetchWithRetry_IdenticalRequests(t *testing.T) {
	var mu sync.Mutex
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		queries = append(queries, r.URL.RawQuery)
		n := len(queries)
		mu.Unlock()
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"quoteText":"Third time lucky.","quoteAuthor":"Anon"}`)
	}))
	defer srv.Close()

	c := NewClient(WithRelayURL(""), WithBaseURL(srv.URL))
	var attempts []int
	q, err := FetchWithRetry(context.Background(), c, LegacyRetryPolicy(), func(attempt int, err error) {
		attempts = append(attempts, attempt)
	})
	require.NoError(t, err)
	assert.Equal(t, "Third time lucky.", q.Text)
	assert.Equal(t, []int{1, 2}, attempts)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, queries, 3)
	assert.Equal(t, queries[0], queries[1])
	assert.Equal(t, queries[0], queries[2])
}

func TestFetchWithRetry_Exhausted(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	f := FetcherFunc(func(ctx context.Context) (Quote, error) {
		calls++
		return Quote{}, boom
	})
	p := RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, Multiplier: 2}

	_, err := FetchWithRetry(context.Background(), f, p, nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestFetchWithRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	f := FetcherFunc(func(ctx context.Context) (Quote, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return Quote{}, errors.New("down")
	})

	_, err := FetchWithRetry(ctx, f, LegacyRetryPolicy(), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, calls)
}
