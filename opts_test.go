package pplx

import (
	"testing"

	"github.com/casualjim/pplx/pkg/messages"
	"github.com/casualjim/pplx/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest(t *testing.T) {
	req, err := Request("sonar", "hi",
		WithAPIKey("k"),
		WithBaseURL("http://localhost:1234"),
		WithHistory(messages.User("earlier"), messages.Assistant("answer")),
		WithSystem("be brief"),
		WithTemperature(0),
		WithMaxOutputTokens(32),
		WithContextWindow(8192),
	)
	require.NoError(t, err)

	assert.Equal(t, "sonar", req.ModelID)
	assert.Equal(t, "k", req.APIKey)
	assert.Equal(t, "http://localhost:1234", req.BaseURL)
	require.Len(t, req.Messages, 4)
	assert.Equal(t, messages.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, "earlier", req.Messages[1].Content.Text())
	assert.Equal(t, messages.RoleUser, req.Messages[3].Role)
	assert.Equal(t, "hi", req.Messages[3].Content.Text())
	require.NotNil(t, req.Temperature)
	assert.Zero(t, *req.Temperature)
	assert.EqualValues(t, 32, *req.MaxOutputTokens)
	assert.EqualValues(t, 8192, *req.ContextWindowTokens)
}

func TestRequest_Defaults(t *testing.T) {
	req, err := Request("sonar", "hi")
	require.NoError(t, err)
	assert.Nil(t, req.Temperature)
	assert.Nil(t, req.MaxOutputTokens)
	assert.Nil(t, req.ContextWindowTokens)
	assert.Empty(t, req.APIKey)
	assert.Len(t, req.Messages, 1)
}

func TestRequest_Errors(t *testing.T) {
	var cfgErr *provider.ConfigurationError

	_, err := Request("sonar", "  ")
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "Prompt", cfgErr.Field)

	_, err = Request("sonar", "hi", WithMaxOutputTokens(0))
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "MaxOutputTokens", cfgErr.Field)
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvAPIKey, "env-key")
	t.Setenv(EnvBaseURL, "http://proxy.local")

	req, err := Request("sonar", "hi", FromEnv())
	require.NoError(t, err)
	assert.Equal(t, "env-key", req.APIKey)
	assert.Equal(t, "http://proxy.local", req.BaseURL)

	req, err = Request("sonar", "hi", WithAPIKey("explicit"), FromEnv())
	require.NoError(t, err)
	assert.Equal(t, "explicit", req.APIKey)
}
