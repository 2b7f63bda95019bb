package groq

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSendsCompletionRequest(t *testing.T) {
	var got completionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/openai/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hey there 😊"}},{"message":{"content":"second"}}]}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL + "/openai/v1/"})
	reply, err := client.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("persona"),
		schema.UserMessage("u1"),
		schema.AssistantMessage("b1", nil),
		schema.UserMessage("u2"),
	})
	require.NoError(t, err)
	assert.Equal(t, schema.Assistant, reply.Role)
	assert.Equal(t, "hey there 😊", reply.Content)

	assert.Equal(t, DefaultModel, got.Model)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, completionMessage{Role: "system", Content: "persona"}, got.Messages[0])
	assert.Equal(t, completionMessage{Role: "user", Content: "u1"}, got.Messages[1])
	assert.Equal(t, completionMessage{Role: "assistant", Content: "b1"}, got.Messages[2])
	assert.Equal(t, completionMessage{Role: "user", Content: "u2"}, got.Messages[3])
}

func TestGenerateCustomModel(t *testing.T) {
	var got completionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Model: "llama-3.1-8b-instant"})
	_, err := client.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, "llama-3.1-8b-instant", got.Model)
	assert.Equal(t, "llama-3.1-8b-instant", client.Model())
	assert.Equal(t, server.URL+"/chat/completions", client.Endpoint())
}

func TestGenerateStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	_, err := client.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.Code)
	assert.Contains(t, statusErr.Body, "boom")
	assert.Equal(t, "500 Server Error: Internal Server Error for url: "+server.URL+"/chat/completions", err.Error())
}

func TestGenerateUnauthorizedWithoutKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer " {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	_, err := client.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "401 Client Error: Unauthorized"), err.Error())
}

func TestGenerateMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": [`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	_, err := client.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
}

func TestGenerateNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	_, err := client.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	assert.ErrorIs(t, err, ErrNoChoices)
}

func TestGenerateTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(Config{BaseURL: url})
	_, err := client.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, url+"/chat/completions", transportErr.URL)
}

func TestStreamAndToolsUnsupported(t *testing.T) {
	client := NewClient(Config{})
	_, err := client.Stream(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrStreamingUnsupported))
	assert.ErrorIs(t, client.BindTools(nil), ErrToolsUnsupported)
	assert.Equal(t, DefaultBaseURL+"/chat/completions", client.Endpoint())
}

func TestGenerateMissingContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant"}}]}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	_, err := client.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestGenerateEmptyContentIsAReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":""}}]}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	reply, err := client.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, "", reply.Content)
}
