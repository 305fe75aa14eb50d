package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJSON_MissingDocumentReadsAsZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)

	var out map[string]Message
	err := client.GetJSON(context.Background(), "/chats/x/activeMessages.json", &out)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestGetJSON_NullBodyReadsAsZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("null"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)

	var count int
	err := client.GetJSON(context.Background(), "/some/path.json", &count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestDoRequest_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`"ok"`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)

	var out string
	err := client.GetJSON(context.Background(), "/flaky.json", &out)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDoRequest_ExhaustedRetriesReportUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)

	err := client.PutJSON(context.Background(), "/down.json", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestDoRequest_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)

	err := client.PutJSON(context.Background(), "/bad.json", 1)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnavailable))
	assert.Equal(t, int32(1), calls.Load())
}

func TestPutJSON_SendsJSONBody(t *testing.T) {
	var gotMethod, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotType = r.Header.Get("Content-Type")
		w.Write([]byte("true"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)

	require.NoError(t, client.PutJSON(context.Background(), "/flag.json", true))
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "application/json", gotType)
}

func TestMessageAge(t *testing.T) {
	msg := Message{CreatedAt: 1_000_000}
	assert.Equal(t, time.Second, msg.Age(time.UnixMilli(1_001_000)))
}
