package nlu

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatReply(content string) []byte {
	out, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
	})
	return out
}

func TestZhipuClassify(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write(chatReply("```json\n{\"device_id\":\"living_room_ac\",\"action_id\":\"turn_on\",\"confidence\":0.9}\n```"))
	}))
	defer srv.Close()

	c := NewZhipuClient(ZhipuConfig{APIKey: "secret", BaseURL: srv.URL + "/"})
	res, err := c.Classify(context.Background(), "开空调", CatalogSummary{})
	require.NoError(t, err)
	assert.Equal(t, "living_room_ac", res.DeviceID)
	assert.Equal(t, "turn_on", res.ActionID)

	assert.Equal(t, DefaultZhipuModel, got.Model)
	assert.InDelta(t, 0.1, got.Temperature, 1e-9)
	assert.Equal(t, 500, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Contains(t, got.Messages[0].Content, "开空调")
}

func TestZhipuHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewZhipuClient(ZhipuConfig{APIKey: "k", BaseURL: srv.URL}).Classify(context.Background(), "x", CatalogSummary{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestZhipuNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewZhipuClient(ZhipuConfig{APIKey: "k", BaseURL: srv.URL}).Classify(context.Background(), "x", CatalogSummary{})
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestZhipuTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := NewZhipuClient(ZhipuConfig{APIKey: "k", BaseURL: srv.URL}).Classify(ctx, "x", CatalogSummary{})
	assert.True(t, errors.Is(err, ErrTimeout))
}

func TestZhipuRequiresKey(t *testing.T) {
	_, err := NewZhipuClient(ZhipuConfig{}).Classify(context.Background(), "x", CatalogSummary{})
	assert.True(t, errors.Is(err, ErrNotConfigured))
}
