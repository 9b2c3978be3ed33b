package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/pitchpilot/pkg/adapters/backend"
	"github.com/aretw0/pitchpilot/pkg/domain"
	"github.com/aretw0/pitchpilot/pkg/ports"
)

var (
	_ ports.Generator = (*backend.Client)(nil)
	_ ports.Deployer  = (*backend.Client)(nil)
)

func serve(t *testing.T, h http.HandlerFunc) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return backend.New(srv.URL)
}

func TestClient_Generate(t *testing.T) {
	var got map[string]any
	client := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/submit", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"files": {"index.html": "<h1>hi</h1>", "style.css": "h1{}"}}`)
	})

	bundle, err := client.Generate(context.Background(), domain.GenerateRequest{
		Requirement: "a page",
		Theme:       &domain.Theme{Name: "dark"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, bundle.Len())
	content, _ := bundle.Content("index.html")
	assert.Equal(t, "<h1>hi</h1>", content)
	assert.Equal(t, "a page", got["requirement"])
	assert.Equal(t, "dark", got["theme"].(map[string]any)["name"])
}

func TestClient_Generate_OmitsEmptyTheme(t *testing.T) {
	var got map[string]any
	client := serve(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"files": {}}`)
	})

	_, err := client.Generate(context.Background(), domain.GenerateRequest{Requirement: "a page"})
	require.NoError(t, err)
	_, hasTheme := got["theme"]
	assert.False(t, hasTheme)
}

func TestClient_Generate_Shapes(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		count  int
		opaque []string
	}{
		{"Missing Files", `{"message": "ok"}`, 0, nil},
		{"Files Not An Object", `{"files": ["index.html"]}`, 0, nil},
		{"Files Null", `{"files": null}`, 0, nil},
		{"Non String Values", `{"files": {"index.html": "x", "data.json": {"a": 1}, "n": null, "k": 3}}`, 4, []string{"data.json", "n", "k"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := serve(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			})
			bundle, err := client.Generate(context.Background(), domain.GenerateRequest{Requirement: "x"})
			require.NoError(t, err)
			assert.Equal(t, tt.count, bundle.Len())
			for _, name := range tt.opaque {
				assert.True(t, bundle.IsOpaque(name), name)
			}
		})
	}

	t.Run("Opaque Display", func(t *testing.T) {
		client := serve(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"files": {"data.json": { "a" : 1 }, "n": null}}`)
		})
		bundle, err := client.Generate(context.Background(), domain.GenerateRequest{Requirement: "x"})
		require.NoError(t, err)
		data, _ := bundle.Content("data.json")
		assert.Equal(t, `{"a":1}`, data)
		n, _ := bundle.Content("n")
		assert.Equal(t, "", n)
	})

	t.Run("Null Is Opaque", func(t *testing.T) {
		client := serve(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"files": {"a.txt": null, "b.txt": "b"}}`)
		})
		bundle, err := client.Generate(context.Background(), domain.GenerateRequest{Requirement: "x"})
		require.NoError(t, err)
		assert.True(t, bundle.IsOpaque("a.txt"))
		assert.False(t, bundle.IsOpaque("b.txt"))
	})
}

func TestClient_Generate_ServerError(t *testing.T) {
	client := serve(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "Missing 'requirement'"}`, http.StatusBadRequest)
	})

	_, err := client.Generate(context.Background(), domain.GenerateRequest{Requirement: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransport)

	var te *domain.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "generate", te.Op)
	assert.Equal(t, http.StatusBadRequest, te.Status)
	assert.Contains(t, te.Body, "Missing")
}

func TestClient_Generate_MalformedBody(t *testing.T) {
	client := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>oops</html>")
	})

	_, err := client.Generate(context.Background(), domain.GenerateRequest{Requirement: "x"})
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestClient_Generate_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := backend.New(url, backend.WithTimeout(time.Second))
	_, err := client.Generate(context.Background(), domain.GenerateRequest{Requirement: "x"})
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestClient_Deploy(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"With URL", `{"url": "https://site.example.com"}`, "https://site.example.com"},
		{"Without URL", `{}`, ""},
		{"Non String URL", `{"url": 42}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := serve(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/deploy", r.URL.Path)
				_, _ = io.WriteString(w, tt.body)
			})
			url, err := client.Deploy(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, url)
		})
	}
}

func TestClient_Deploy_ServerError(t *testing.T) {
	client := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "bad gateway\n")
	})

	_, err := client.Deploy(context.Background())
	require.Error(t, err)
	assert.Equal(t, "deploy: server error 502: bad gateway", err.Error())
}

func TestNew_NormalizesBaseURL(t *testing.T) {
	assert.Equal(t, backend.DefaultBaseURL, backend.New("").BaseURL())
	assert.Equal(t, "http://localhost:9000", backend.New("localhost:9000/").BaseURL())
	assert.Equal(t, "https://api.example.com", backend.New(" https://api.example.com/ ").BaseURL())
}
