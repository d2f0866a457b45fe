package suggestions

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Len(t, req.Messages, 2)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status >= 300 {
			_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerateParsesFencedReply(t *testing.T) {
	reply := "```json\n[{\"day\":1,\"theme\":\"old town\",\"places\":[{\"name\":\"Chihkan Tower\",\"type\":\"sightseeing\",\"time\":\"10:00 - 11:30\",\"reason\":\"historic fort\"}]}]\n```"
	srv := chatServer(t, http.StatusOK, reply)

	src := NewOpenAISuggestionSource("test-key", "test-model", srv.URL, srv.Client())
	days, err := src.Generate(context.Background(), "Tainan", 1, "food")
	require.NoError(t, err)
	require.Len(t, days, 1)

	assert.Equal(t, "old town", days[0].Theme)
	require.Len(t, days[0].Places, 1)
	assert.Equal(t, "Chihkan Tower", days[0].Places[0].Name)
	assert.Equal(t, "10:00 - 11:30", days[0].Places[0].Time)
}

func TestGenerateEmptyReplyIsNoSuggestion(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "  ")

	src := NewOpenAISuggestionSource("test-key", "test-model", srv.URL, srv.Client())
	days, err := src.Generate(context.Background(), "Tainan", 1, "food")
	require.NoError(t, err)
	assert.Nil(t, days)
}

func TestGenerateReportsAPIErrors(t *testing.T) {
	srv := chatServer(t, http.StatusTooManyRequests, "")

	src := NewOpenAISuggestionSource("test-key", "test-model", srv.URL, srv.Client())
	_, err := src.Generate(context.Background(), "Tainan", 1, "food")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestGenerateRejectsMalformedJSON(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "here is your trip!")

	src := NewOpenAISuggestionSource("test-key", "test-model", srv.URL, srv.Client())
	_, err := src.Generate(context.Background(), "Tainan", 1, "food")
	assert.Error(t, err)
}

func TestGenerateWithoutKey(t *testing.T) {
	src := NewOpenAISuggestionSource("", "", "", nil)
	_, err := src.Generate(context.Background(), "Tainan", 1, "food")
	assert.Error(t, err)
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, "[]", stripCodeFence("```json\n[]\n```"))
	assert.Equal(t, "[]", stripCodeFence("```\n[]```"))
	assert.Equal(t, "[1]", stripCodeFence(" [1] "))
}

func TestGenerateRejectsOversizedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"`))
		_, _ = w.Write(bytes.Repeat([]byte("a"), maxResponseBytes))
		_, _ = w.Write([]byte(`"}}]}`))
	}))
	t.Cleanup(srv.Close)

	src := NewOpenAISuggestionSource("test-key", "test-model", srv.URL, srv.Client())
	_, err := src.Generate(context.Background(), "Tainan", 1, "food")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}
