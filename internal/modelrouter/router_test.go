package modelrouter_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/analogia-app/engine/internal/modelrouter"
	"github.com/analogia-app/engine/pkg/logger"
)

// scriptedClient returns a canned result or error per model and counts calls.
type scriptedClient struct {
	results map[string]*modelrouter.Completion
	errs    map[string]error
	calls   []string
}

func (c *scriptedClient) Complete(_ context.Context, model string, _ []modelrouter.Message) (*modelrouter.Completion, error) {
	c.calls = append(c.calls, model)
	if err, ok := c.errs[model]; ok {
		return nil, err
	}
	if res, ok := c.results[model]; ok {
		return res, nil
	}
	return nil, errors.New("unscripted model " + model)
}

func newRouter(client modelrouter.CompletionClient) *modelrouter.Router {
	return modelrouter.NewRouter(client, logger.New(logger.WithOutput(io.Discard)))
}

func messages() []modelrouter.Message {
	return []modelrouter.Message{{Role: "user", Content: "explain entropy to a child"}}
}

func TestGeneratePrimarySucceeds(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{
		results: map[string]*modelrouter.Completion{
			"premium-large": {Content: "like a messy room", Usage: modelrouter.Usage{TotalTokens: 42}},
		},
	}

	result, err := newRouter(client).Generate(context.Background(), modelrouter.Request{
		Messages:      messages(),
		PrimaryModel:  "premium-large",
		FallbackModel: "budget-small",
	})

	require.NoError(t, err)
	assert.Equal(t, "like a messy room", result.Content)
	assert.Equal(t, "premium-large", result.Model)
	assert.Equal(t, 42, result.Usage.TotalTokens)
	assert.False(t, result.Demoted)
	assert.Equal(t, []string{"premium-large"}, client.calls)
}

func TestGenerateFallsBackOnPrimaryFailure(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{
		errs: map[string]error{
			"premium-large": modelrouter.ErrProviderUnavailable,
		},
		results: map[string]*modelrouter.Completion{
			"budget-small": {Content: "fallback answer"},
		},
	}

	result, err := newRouter(client).Generate(context.Background(), modelrouter.Request{
		Messages:      messages(),
		PrimaryModel:  "premium-large",
		FallbackModel: "budget-small",
	})

	require.NoError(t, err)
	assert.Equal(t, "fallback answer", result.Content)
	assert.Equal(t, "budget-small", result.Model)
	assert.True(t, result.Demoted)
	assert.Equal(t, []string{"premium-large", "budget-small"}, client.calls)
}

func TestGenerateSameModelReRaisesWithoutSecondAttempt(t *testing.T) {
	t.Parallel()

	original := errors.New("boom")
	client := &scriptedClient{
		errs: map[string]error{"only-model": original},
	}

	_, err := newRouter(client).Generate(context.Background(), modelrouter.Request{
		Messages:      messages(),
		PrimaryModel:  "only-model",
		FallbackModel: "only-model",
	})

	require.Error(t, err)
	assert.Equal(t, original, err)
	assert.Equal(t, []string{"only-model"}, client.calls, "no second network attempt")
}

func TestGenerateFairUseDemotionUsesFallbackDirectly(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{
		results: map[string]*modelrouter.Completion{
			"budget-small": {Content: "demoted answer"},
		},
	}

	result, err := newRouter(client).Generate(context.Background(), modelrouter.Request{
		Messages:      messages(),
		PrimaryModel:  "premium-large",
		FallbackModel: "budget-small",
		Demote:        true,
	})

	require.NoError(t, err)
	assert.Equal(t, "budget-small", result.Model)
	assert.True(t, result.Demoted)
	assert.Equal(t, []string{"budget-small"}, client.calls, "primary must not be attempted under demotion")
}

func TestGenerateExplicitModelOverridesPrimary(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{
		results: map[string]*modelrouter.Completion{
			"experimental": {Content: "override answer"},
		},
	}

	result, err := newRouter(client).Generate(context.Background(), modelrouter.Request{
		Messages:      messages(),
		ExplicitModel: "experimental",
		PrimaryModel:  "premium-large",
		FallbackModel: "budget-small",
	})

	require.NoError(t, err)
	assert.Equal(t, "experimental", result.Model)
	assert.Equal(t, []string{"experimental"}, client.calls)
}

func TestGenerateCredentialFailureSkipsFallback(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{
		errs: map[string]error{
			"premium-large": modelrouter.ErrInvalidCredentials,
		},
		results: map[string]*modelrouter.Completion{
			"budget-small": {Content: "never reached"},
		},
	}

	_, err := newRouter(client).Generate(context.Background(), modelrouter.Request{
		Messages:      messages(),
		PrimaryModel:  "premium-large",
		FallbackModel: "budget-small",
	})

	require.Error(t, err)
	assert.Equal(t, modelrouter.ErrInvalidCredentials, err, "permanent failures propagate unchanged")
	assert.Equal(t, []string{"premium-large"}, client.calls, "no fallback attempt on a credential failure")
}

func TestGenerateDoubleFailureClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		primaryErr  error
		fallbackErr error
		wantErr     error
	}{
		{
			name:        "credentials failure wins over transient",
			primaryErr:  modelrouter.ErrProviderUnavailable,
			fallbackErr: modelrouter.ErrInvalidCredentials,
			wantErr:     modelrouter.ErrInvalidCredentials,
		},
		{
			name:        "rate limit surfaces as rate limit",
			primaryErr:  errors.New("socket closed"),
			fallbackErr: modelrouter.ErrRateLimited,
			wantErr:     modelrouter.ErrRateLimited,
		},
		{
			name:        "both unavailable",
			primaryErr:  modelrouter.ErrProviderUnavailable,
			fallbackErr: modelrouter.ErrProviderUnavailable,
			wantErr:     modelrouter.ErrProviderUnavailable,
		},
		{
			name:        "unclassified embeds both messages",
			primaryErr:  errors.New("primary exploded"),
			fallbackErr: errors.New("fallback exploded"),
			wantErr:     modelrouter.ErrGenerationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := &scriptedClient{
				errs: map[string]error{
					"premium-large": tt.primaryErr,
					"budget-small":  tt.fallbackErr,
				},
			}

			_, err := newRouter(client).Generate(context.Background(), modelrouter.Request{
				Messages:      messages(),
				PrimaryModel:  "premium-large",
				FallbackModel: "budget-small",
			})

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			if errors.Is(tt.wantErr, modelrouter.ErrGenerationFailed) {
				assert.Contains(t, err.Error(), "primary exploded")
				assert.Contains(t, err.Error(), "fallback exploded")
			}
		})
	}
}

func TestGenerateNoModelConfigured(t *testing.T) {
	t.Parallel()

	_, err := newRouter(&scriptedClient{}).Generate(context.Background(), modelrouter.Request{Messages: messages()})

	assert.ErrorIs(t, err, modelrouter.ErrNoModelConfigured)
}
