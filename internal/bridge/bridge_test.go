package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pgai-openai/internal/config"
	xerrors "pgai-openai/internal/errors"
	"pgai-openai/internal/llm/guard"
	"pgai-openai/internal/llm/openai"
	"pgai-openai/internal/observability/metrics"
	"pgai-openai/internal/settings"
)

func modelsServer(t *testing.T, seenAuth *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seenAuth != nil {
			*seenAuth = r.Header.Get("Authorization")
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   []map[string]any{{"id": "text-embedding-3-small", "object": "model"}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func strPtr(s string) *string { return &s }

func TestInvokeResolvesFromSettings(t *testing.T) {
	var auth string
	srv := modelsServer(t, &auth)

	recorder := metrics.NewCollector()
	b, err := New(settings.Static{
		settings.KeyOpenAIAPIKey:  "sk-settings",
		settings.KeyOpenAIBaseURL: srv.URL,
	}, nil, guard.New(nil, guard.WithRecorder(recorder)), openai.Options{})
	require.NoError(t, err)

	result, err := b.Invoke(context.Background(), "list_models", nil)
	require.NoError(t, err)
	models, ok := result.(goopenai.ModelsList)
	require.True(t, ok)
	require.Len(t, models.Models, 1)
	assert.Equal(t, "Bearer sk-settings", auth)
	assert.EqualValues(t, 1, recorder.Count("list_models", guard.OutcomeOK))
}

func TestInvokeParamOverrides(t *testing.T) {
	var auth string
	srv := modelsServer(t, &auth)

	b, err := New(settings.Static{}, nil, guard.New(nil, guard.WithRecorder(metrics.NewCollector())), openai.Options{})
	require.NoError(t, err)

	input := `{"api_key": "sk-param", "base_url": "` + srv.URL + `"}`
	_, err = b.Invoke(context.Background(), "list_models", &input)
	require.NoError(t, err)
	assert.Equal(t, "Bearer sk-param", auth)
}

func TestInvokeTreatsNullParamsAsAbsent(t *testing.T) {
	var auth string
	srv := modelsServer(t, &auth)

	b, err := New(settings.Static{
		settings.KeyOpenAIAPIKey:  "sk-settings",
		settings.KeyOpenAIBaseURL: srv.URL,
	}, nil, guard.New(nil, guard.WithRecorder(metrics.NewCollector())), openai.Options{})
	require.NoError(t, err)

	_, err = b.Invoke(context.Background(), "list_models", strPtr(`{"api_key": null, "base_url": null}`))
	require.NoError(t, err)
	assert.Equal(t, "Bearer sk-settings", auth)

	auth = ""
	_, err = b.Invoke(context.Background(), "embed", strPtr(`{"model": "m", "input": null}`))
	assert.Equal(t, xerrors.CodeInvalidArgument, xerrors.CodeOf(err))
	assert.Empty(t, auth, "no request is sent when a required param is null")
}

func TestInvokeMissingAPIKey(t *testing.T) {
	b, err := New(settings.Static{}, nil, nil, openai.Options{})
	require.NoError(t, err)

	_, err = b.Invoke(context.Background(), "embed", strPtr(`{"model": "m", "input": "x"}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, xerrors.ErrMissingAPIKey)
}

func TestInvokeRejectsBadInput(t *testing.T) {
	b, err := New(settings.Static{settings.KeyOpenAIAPIKey: "sk"}, nil, nil, openai.Options{})
	require.NoError(t, err)

	_, err = b.Invoke(context.Background(), "tokenize", nil)
	assert.Equal(t, xerrors.CodeInvalidArgument, xerrors.CodeOf(err))

	_, err = b.Invoke(context.Background(), "embed", strPtr(`{model`))
	var syntaxErr *json.SyntaxError
	assert.ErrorAs(t, err, &syntaxErr)
}

func TestInvokeCancelledByProbe(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	probe := guard.ProbeFunc(func(context.Context) (bool, error) { return true, nil })
	b, err := New(nil, nil, guard.New(probe, guard.WithRecorder(metrics.NewCollector())),
		openai.Options{APIKey: "sk", BaseURL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	_, err = b.Invoke(context.Background(), "moderate", strPtr(`{"input": "hello"}`))
	assert.True(t, xerrors.IsCancelled(err))
}

func TestOpenWithoutDatabase(t *testing.T) {
	var auth string
	srv := modelsServer(t, &auth)

	cfg := &config.Config{
		Settings: config.SettingsConfig{
			Source: "static",
			Static: map[string]string{settings.KeyOpenAIAPIKey: "sk-static"},
		},
		OpenAI:      config.OpenAIConfig{BaseURL: srv.URL},
		Guard:       config.GuardConfig{PollIntervalMillis: 10},
		ClientCache: config.ClientCacheConfig{Size: 2},
	}
	b, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer b.Close()

	_, err = b.Invoke(context.Background(), "list_models", nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer sk-static", auth)
}

func TestOpenDatabaseSourceRequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{Settings: config.SettingsConfig{Source: "database"}})
	assert.True(t, xerrors.IsConfiguration(err))
}
