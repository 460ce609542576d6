package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_DoJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/login", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "jpop", r.Header.Get("library"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "kiri", body["username"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"token":"abc"}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL+"/api"), WithUserAgent("test-agent"), WithHTTPClient(srv.Client()))

	var out struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
	}
	err := client.DoJSON(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "login",
		Header: map[string]string{"library": "jpop"},
		Body:   map[string]string{"username": "kiri"},
	}, &out)

	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "abc", out.Token)
}

func TestClient_DoJSON_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"success":false,"message":"invalid-password"}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	err := client.DoJSON(context.Background(), Request{Path: "users/@me"}, nil)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Contains(t, string(statusErr.Body), "invalid-password")
	assert.Contains(t, err.Error(), "HTTP 401")
}

func TestClient_DoJSON_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	var out map[string]any
	err := client.DoJSON(context.Background(), Request{Path: "songs"}, &out)

	assert.ErrorContains(t, err, "decode response")
}

func TestClient_ResolveURL(t *testing.T) {
	client := NewClient(WithBaseURL("https://listen.moe/api"))

	tests := []struct {
		path string
		want string
	}{
		{"songs", "https://listen.moe/api/songs"},
		{"favorites/12", "https://listen.moe/api/favorites/12"},
		{"https://cdn.listen.moe/covers/a.jpg", "https://cdn.listen.moe/covers/a.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := client.ResolveURL(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_OpenStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ID3audio"))
	}))
	defer srv.Close()

	client := NewClient(WithHTTPClient(srv.Client()))
	body, err := client.OpenStream(context.Background(), srv.URL+"/fallback")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "ID3audio", string(data))
}

func TestProgressWriter(t *testing.T) {
	var buf bytes.Buffer
	var calls int
	var last int64

	pw := &ProgressWriter{
		Writer: &buf,
		Total:  -1,
		OnUpdate: func(written, total int64) {
			calls++
			last = written
			assert.Equal(t, int64(-1), total)
		},
	}

	_, _ = pw.Write([]byte("abc"))
	_, _ = pw.Write([]byte("de"))

	assert.Equal(t, 2, calls)
	assert.Equal(t, int64(5), last)
	assert.Equal(t, "abcde", buf.String())
}
