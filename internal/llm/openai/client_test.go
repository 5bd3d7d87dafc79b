package openai

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "pgai-openai/internal/errors"
	"pgai-openai/internal/llm"
	"pgai-openai/internal/settings"
)

func TestNewClientMissingAPIKey(t *testing.T) {
	_, err := NewClient(context.Background(), settings.Static{}, Options{})
	require.Error(t, err)
	assert.True(t, xerrors.IsConfiguration(err))
	assert.ErrorIs(t, err, xerrors.ErrMissingAPIKey)

	_, err = NewAsyncClient(context.Background(), nil, Options{BaseURL: "http://localhost"})
	assert.ErrorIs(t, err, xerrors.ErrMissingAPIKey)
}

func TestNewClientUsesLibraryDefaultEndpoint(t *testing.T) {
	var asked []string
	src := settings.SourceFunc(func(_ context.Context, key string) (string, bool, error) {
		asked = append(asked, key)
		if key == settings.KeyOpenAIAPIKey {
			return "sk-test", true, nil
		}
		return "", false, nil
	})

	client, err := NewClient(context.Background(), src, Options{})
	require.NoError(t, err)
	assert.Equal(t, goopenai.DefaultConfig("").BaseURL, client.BaseURL())
	assert.Equal(t, []string{settings.KeyOpenAIAPIKey, settings.KeyOpenAIBaseURL}, asked)
}

func TestExplicitOptionsSkipLookup(t *testing.T) {
	src := settings.SourceFunc(func(context.Context, string) (string, bool, error) {
		t.Fatal("settings must not be consulted when everything is explicit")
		return "", false, nil
	})
	client, err := NewAsyncClient(context.Background(), src, Options{
		APIKey:  "sk-explicit",
		BaseURL: "https://llm.internal/v1/",
		Timeout: 3 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://llm.internal/v1", client.BaseURL())
	assert.Equal(t, 3*time.Second, client.Timeout())
}

func TestSettingsErrorPropagates(t *testing.T) {
	boom := stdErrors.New("lookup failed")
	src := settings.SourceFunc(func(context.Context, string) (string, bool, error) {
		return "", false, boom
	})
	_, err := NewClient(context.Background(), src, Options{})
	assert.ErrorIs(t, err, boom)

	_, err = NewClient(context.Background(), src, Options{APIKey: "sk"})
	assert.ErrorIs(t, err, boom, "base url lookup errors are not swallowed")
}

func TestClientConfigOmitsAbsentValues(t *testing.T) {
	cfg := clientConfig("sk", "", 0)
	def := goopenai.DefaultConfig("sk")
	assert.Equal(t, def.BaseURL, cfg.BaseURL)
	httpClient, ok := cfg.HTTPClient.(*http.Client)
	require.True(t, ok)
	assert.Zero(t, httpClient.Timeout)

	cfg = clientConfig("sk", "http://proxy/v1", 5*time.Second)
	assert.Equal(t, "http://proxy/v1", cfg.BaseURL)
	httpClient, ok = cfg.HTTPClient.(*http.Client)
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, httpClient.Timeout)
}

func TestListModelsAgainstServer(t *testing.T) {
	var authorization, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorization = r.Header.Get("Authorization")
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data": []map[string]any{
				{"id": "gpt-4o-mini", "object": "model", "created": 1, "owned_by": "openai"},
			},
		})
	}))
	defer srv.Close()

	client, err := NewAsyncClient(context.Background(), settings.Static{
		settings.KeyOpenAIAPIKey:  "sk-test",
		settings.KeyOpenAIBaseURL: srv.URL + "/v1",
	}, Options{})
	require.NoError(t, err)

	models, err := ListModels(context.Background(), client, nil)
	require.NoError(t, err)
	require.Len(t, models.Models, 1)
	assert.Equal(t, "gpt-4o-mini", models.Models[0].ID)
	assert.Equal(t, "Bearer sk-test", authorization)
	assert.Equal(t, "/v1/models", path)
}

func TestEmbedSendsParams(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "text-embedding-3-small",
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": []float32{0.25, -0.5}},
			},
		})
	}))
	defer srv.Close()

	client, err := NewAsyncClient(context.Background(), nil, Options{APIKey: "sk", BaseURL: srv.URL})
	require.NoError(t, err)

	input := `{"model": "text-embedding-3-small", "input": "hello", "dimensions": 2}`
	params, err := llm.ProcessParams(&input)
	require.NoError(t, err)

	resp, err := Embed(context.Background(), client, params)
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, []float32{0.25, -0.5}, resp.Data[0].Embedding)
	assert.Equal(t, "text-embedding-3-small", body["model"])
	assert.Equal(t, "hello", body["input"])
	assert.EqualValues(t, 2, body["dimensions"])
}

func TestChatCompleteAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-4o-mini",
			"choices": []map[string]any{
				{"index": 0, "finish_reason": "stop", "message": map[string]any{"role": "assistant", "content": "pong"}},
			},
		})
	}))
	defer srv.Close()

	client, err := NewAsyncClient(context.Background(), nil, Options{APIKey: "sk", BaseURL: srv.URL})
	require.NoError(t, err)

	resp, err := ChatComplete(context.Background(), client, llm.Params{
		"model":    "gpt-4o-mini",
		"messages": []any{map[string]any{"role": "user", "content": "ping"}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "pong", resp.Choices[0].Message.Content)
}

func TestRemoteErrorPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	client, err := NewAsyncClient(context.Background(), nil, Options{APIKey: "sk-bad", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = Moderate(context.Background(), client, llm.Params{"input": "hello"})
	require.Error(t, err)
	var apiErr *goopenai.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.HTTPStatusCode)
	assert.Equal(t, xerrors.CodeUnknown, xerrors.CodeOf(err), "remote errors are not wrapped")
}

func TestMissingParamsFailBeforeRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL.Path)
	}))
	defer srv.Close()

	client, err := NewAsyncClient(context.Background(), nil, Options{APIKey: "sk", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = Embed(context.Background(), client, llm.Params{"model": "m"})
	assert.Equal(t, xerrors.CodeInvalidArgument, xerrors.CodeOf(err))
	_, err = ChatComplete(context.Background(), client, llm.Params{"messages": []any{}})
	assert.Equal(t, xerrors.CodeInvalidArgument, xerrors.CodeOf(err))
}

func TestOperationLookup(t *testing.T) {
	assert.Equal(t, []string{"chat_complete", "embed", "list_models", "moderate"}, OperationNames())
	_, ok := Operation("embed")
	assert.True(t, ok)
	_, ok = Operation("tokenize")
	assert.False(t, ok)
}
