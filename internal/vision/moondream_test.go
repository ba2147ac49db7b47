package vision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/edita-ar/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testImage = Image{Data: []byte{0xff, 0xd8, 0xff}, MimeType: "image/jpeg"}

func TestMoondreamDetect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/query", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get(moondreamAuthHeader))

		var body moondreamQueryRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.True(t, strings.HasPrefix(body.ImageURL, "data:image/jpeg;base64,"))
		assert.NotEmpty(t, body.Question)

		_ = json.NewEncoder(w).Encode(moondreamQueryResponse{Answer: "Arduino Uno, jumper wires, breadboard"})
	}))
	defer srv.Close()

	client, err := NewMoondreamClient(config.MoondreamConfig{Endpoint: srv.URL + "/v1/", APIKey: "secret"}, srv.Client())
	require.NoError(t, err)

	items, err := client.Detect(context.Background(), testImage)
	require.NoError(t, err)
	assert.Equal(t, []string{"Arduino Uno", "jumper wires", "breadboard"}, items)
}

func TestMoondreamAnalyzeStep(t *testing.T) {
	points := `{"points":[{"x":0.25,"y":0.5}]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/point", r.URL.Path)
		assert.Empty(t, r.Header.Get(moondreamAuthHeader))

		var body moondreamPointRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Object == "servo" {
			_, _ = w.Write([]byte(points))
			return
		}
		_, _ = w.Write([]byte(`{"points":[]}`))
	}))
	defer srv.Close()

	client, err := NewMoondreamClient(config.MoondreamConfig{Endpoint: srv.URL}, nil)
	require.NoError(t, err)

	found, err := client.AnalyzeStep(context.Background(), testImage, "servo")
	require.NoError(t, err)
	assert.True(t, found.Complete)
	assert.Equal(t, "servo", found.Target)
	require.Len(t, found.Points, 1)
	assert.InDelta(t, 0.25, found.Points[0].X, 1e-9)

	missing, err := client.AnalyzeStep(context.Background(), testImage, "LED")
	require.NoError(t, err)
	assert.False(t, missing.Complete)
	assert.Empty(t, missing.Points)
	assert.NotEmpty(t, missing.Feedback)
}

func TestMoondreamErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := NewMoondreamClient(config.MoondreamConfig{Endpoint: srv.URL}, srv.Client())
	require.NoError(t, err)

	_, err = client.Detect(context.Background(), testImage)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestNewMoondreamClientRequiresEndpoint(t *testing.T) {
	_, err := NewMoondreamClient(config.MoondreamConfig{Endpoint: "  "}, nil)
	assert.Error(t, err)
}

func TestNewSelectsBackend(t *testing.T) {
	ctx := context.Background()

	none, err := New(ctx, config.VisionConfig{})
	require.NoError(t, err)
	assert.Nil(t, none)

	md, err := New(ctx, config.VisionConfig{Backend: "Moondream", Moondream: config.MoondreamConfig{Endpoint: "http://localhost:2020/v1"}})
	require.NoError(t, err)
	assert.Equal(t, "moondream", md.Name())

	_, err = New(ctx, config.VisionConfig{Backend: "gemini"})
	assert.Error(t, err, "gemini without an api key")

	_, err = New(ctx, config.VisionConfig{Backend: "clip"})
	assert.Error(t, err)
}
