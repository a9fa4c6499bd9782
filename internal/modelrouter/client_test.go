package modelrouter_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/analogia-app/engine/internal/modelrouter"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *modelrouter.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := modelrouter.NewClient(modelrouter.Config{
		BaseURL: srv.URL,
		APIKey:  "test-key",
	})
	require.NoError(t, err)
	return client
}

func TestClientCompleteSuccess(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "an analogy"}}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30, "cost": 0.0004}
		}`))
	})

	completion, err := client.Complete(context.Background(), "premium-large", messages())

	require.NoError(t, err)
	assert.Equal(t, "an analogy", completion.Content)
	assert.Equal(t, 10, completion.Usage.PromptTokens)
	assert.Equal(t, 20, completion.Usage.CompletionTokens)
	assert.Equal(t, 30, completion.Usage.TotalTokens)
	assert.InDelta(t, 0.0004, completion.Usage.Cost, 1e-9)
}

func TestClientCompleteUsageDefaultsToZero(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "sparse reply"}}]}`))
	})

	completion, err := client.Complete(context.Background(), "premium-large", messages())

	require.NoError(t, err)
	assert.Zero(t, completion.Usage.PromptTokens)
	assert.Zero(t, completion.Usage.CompletionTokens)
	assert.Zero(t, completion.Usage.TotalTokens)
	assert.Zero(t, completion.Usage.Cost)
}

func TestClientCompleteStatusClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{
			name:    "401 means invalid credentials",
			status:  http.StatusUnauthorized,
			body:    `{"error": {"message": "invalid api key"}}`,
			wantErr: modelrouter.ErrInvalidCredentials,
		},
		{
			name:    "429 means rate limited",
			status:  http.StatusTooManyRequests,
			body:    `{"error": {"message": "slow down"}}`,
			wantErr: modelrouter.ErrRateLimited,
		},
		{
			name:    "502 means provider unavailable",
			status:  http.StatusBadGateway,
			body:    `upstream error`,
			wantErr: modelrouter.ErrProviderUnavailable,
		},
		{
			name:    "other statuses are generic failures",
			status:  http.StatusBadRequest,
			body:    `{"error": {"message": "bad payload"}}`,
			wantErr: modelrouter.ErrGenerationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Complete(context.Background(), "premium-large", messages())

			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClientCompleteEmptyChoices(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	})

	_, err := client.Complete(context.Background(), "premium-large", messages())

	assert.ErrorIs(t, err, modelrouter.ErrEmptyCompletion)
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := modelrouter.NewClient(modelrouter.Config{})

	assert.ErrorIs(t, err, modelrouter.ErrInvalidCredentials)
}
