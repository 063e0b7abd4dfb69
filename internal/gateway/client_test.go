package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-logistics/backoffice/internal/session"
)

type recordingNotifier struct {
	mu      sync.Mutex
	entries []struct {
		Kind    Kind
		Title   string
		Message string
	}
}

func (n *recordingNotifier) Notify(kind Kind, title, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.entries = append(n.entries, struct {
		Kind    Kind
		Title   string
		Message string
	}{kind, title, message})
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.entries)
}

type staticCreds struct {
	creds session.Credentials
}

func (s staticCreds) Credentials() session.Credentials { return s.creds }

func newTestClient(t *testing.T, url string, notifier Notifier) *Client {
	t.Helper()
	c, err := NewClient(Config{
		BaseURL: url,
		Credentials: staticCreds{creds: session.Credentials{
			Token:        "tok-1",
			VisitorToken: "vis-1",
		}},
		Notifier: notifier,
	})
	require.NoError(t, err)
	return c
}

func TestGetSuccessEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"1"}],"totals":{"count":1}}`))
	}))
	defer srv.Close()

	env, err := newTestClient(t, srv.URL, nil).Get(context.Background(), "events")
	require.NoError(t, err)
	assert.True(t, env.Online)
	assert.False(t, env.Err)
	assert.Equal(t, http.StatusOK, env.StatusCode)
	assert.NotEmpty(t, env.CorrelationID)

	var payload struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, env.Decode(&payload))
	assert.Len(t, payload.Data, 1)
}

func TestHeaderInjection(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, nil).Get(context.Background(), "events")
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-1", got.Get(headerAuthorization))
	assert.Equal(t, "tok-1", got.Get(headerLegacyAuth))
	assert.Equal(t, "vis-1", got.Get(headerVisitorToken))
	assert.Equal(t, originHintPlaceholder, got.Get(headerOriginHint))
	assert.NotEmpty(t, got.Get(headerRequestID))
}

func TestAnonymousRequestOmitsAuthHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, Credentials: staticCreds{}})
	require.NoError(t, err)
	_, err = c.Get(context.Background(), "open-events")
	require.NoError(t, err)

	assert.Empty(t, got.Get(headerAuthorization))
	assert.Empty(t, got.Get(headerLegacyAuth))
	assert.Equal(t, originHintPlaceholder, got.Get(headerOriginHint))
}

func TestReadDomainErrorNotifiesOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":true,"title":"period closed","message":"cannot load"}`))
	}))
	defer srv.Close()

	notifier := &recordingNotifier{}
	env, err := newTestClient(t, srv.URL, notifier).Get(context.Background(), "events")
	require.NoError(t, err)
	assert.True(t, env.Err)
	assert.Equal(t, "period closed", env.Title)
	require.Equal(t, 1, notifier.count())
	assert.Equal(t, KindError, notifier.entries[0].Kind)
}

func TestMutationFailureIsSilent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":true,"message":"name required"}`))
	}))
	defer srv.Close()

	notifier := &recordingNotifier{}
	env, err := newTestClient(t, srv.URL, notifier).Post(context.Background(), "events", map[string]string{"name": ""})
	require.NoError(t, err)
	assert.True(t, env.Err)
	assert.Equal(t, "name required", env.Message)
	// The screen decides how to present write failures.
	assert.Equal(t, 0, notifier.count())
}

func TestNotFoundSentinelAndSingleWarning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":true,"message":"no such event"}`))
	}))
	defer srv.Close()

	notifier := &recordingNotifier{}
	env, err := newTestClient(t, srv.URL, notifier).Get(context.Background(), "events/99")
	assert.Nil(t, env)
	assert.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, 1, notifier.count())
	assert.Equal(t, KindWarning, notifier.entries[0].Kind)
}

func TestSessionExpiryContract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(statusSessionExpired)
		_, _ = w.Write([]byte(`{"error":true,"message":"Session expired, please log in again"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, &recordingNotifier{}).Get(context.Background(), "events")
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestStatus419WithoutMarkerIsOrdinaryFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(statusSessionExpired)
		_, _ = w.Write([]byte(`{"error":true,"message":"rate limited"}`))
	}))
	defer srv.Close()

	env, err := newTestClient(t, srv.URL, &recordingNotifier{}).Get(context.Background(), "events")
	require.NoError(t, err)
	assert.True(t, env.Err)
	assert.Equal(t, statusSessionExpired, env.StatusCode)
}

func TestNonObjectPayloadIsProtocolViolation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`"just a string"`))
	}))
	defer srv.Close()

	notifier := &recordingNotifier{}
	env, err := newTestClient(t, srv.URL, notifier).Get(context.Background(), "events")
	assert.Nil(t, env)
	assert.ErrorIs(t, err, ErrMalformedPayload)
	require.Equal(t, 1, notifier.count())
	assert.Equal(t, KindError, notifier.entries[0].Kind)
}

func TestOfflineResolvesToEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	notifier := &recordingNotifier{}
	env, err := newTestClient(t, url, notifier).Get(context.Background(), "events")
	require.NoError(t, err)
	assert.False(t, env.Online)
	assert.True(t, env.Err)
	assert.NotEmpty(t, env.Message)
	// Library prefix is stripped from the transport message.
	assert.NotContains(t, env.Message, url)
	require.Equal(t, 1, notifier.count())
	assert.Equal(t, KindWarning, notifier.entries[0].Kind)
}

func TestCancellationPropagates(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := newTestClient(t, srv.URL, nil).Get(ctx, "events")
		done <- err
	}()
	<-started
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled request did not return")
	}
}

func TestRequestEchoOnMutation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	payload := map[string]string{"id": "42"}
	env, err := newTestClient(t, srv.URL, nil).Post(context.Background(), "events-delete/42", payload)
	require.NoError(t, err)
	assert.Equal(t, payload, env.Request)
}

func TestFetchBinaryChecksContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	notifier := &recordingNotifier{}
	data, err := newTestClient(t, srv.URL, notifier).FetchBinary(context.Background(), "documents/7", "application/pdf")
	assert.Nil(t, data)
	assert.ErrorIs(t, err, ErrUnexpectedMIME)
	// Mismatch aborts with a log entry only.
	assert.Equal(t, 0, notifier.count())
}

func TestFetchBinarySuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get(headerAuthorization))
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	data, err := newTestClient(t, srv.URL, nil).FetchBinary(context.Background(), "documents/7", "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7"), data)
}
