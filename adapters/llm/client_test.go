package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"pbidesc/internal/errors"
	"pbidesc/internal/ollamastub"
	"pbidesc/internal/usage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, baseURL string) *OllamaClient {
	t.Helper()
	client, err := NewOllamaClient(Config{BaseURL: baseURL, Model: "llama2"})
	require.NoError(t, err)
	return client
}

func TestGenerateSendsFixedModelNonStreaming(t *testing.T) {
	stub := ollamastub.New(ollamastub.Options{
		Responder: func(req ollamastub.GenerateRequest) string { return "\n  Total sales revenue.  \n" },
	})
	srv := httptest.NewServer(stub)
	defer srv.Close()

	client := newTestClient(t, srv.URL+"/")
	text, err := client.Generate(context.Background(), "describe Revenue")
	require.NoError(t, err)
	assert.Equal(t, "Total sales revenue.", text)

	reqs := stub.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "llama2", reqs[0].Model)
	assert.Equal(t, "describe Revenue", reqs[0].Prompt)
	assert.False(t, reqs[0].Stream)
}

func TestGenerateWithUsage(t *testing.T) {
	srv := httptest.NewServer(ollamastub.New(ollamastub.Options{}))
	defer srv.Close()

	resp, err := newTestClient(t, srv.URL).GenerateWithUsage(context.Background(), "Generate a user-friendly description for the column named 'Qty' with data type 'Int64'.")
	require.NoError(t, err)
	assert.Contains(t, resp.Content, "Qty")
	require.NotNil(t, resp.Usage)
	assert.Equal(t, "llama2", resp.Usage.Model)
	assert.Positive(t, resp.Usage.PromptTokens)
}

func TestGenerateMissingResponseField(t *testing.T) {
	srv := httptest.NewServer(ollamastub.New(ollamastub.Options{OmitResponse: true}))
	defer srv.Close()

	text, err := newTestClient(t, srv.URL).Generate(context.Background(), "x")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestGenerateNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(ollamastub.New(ollamastub.Options{FailStatus: 500, FailBody: "server error"}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Generate(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, errors.CodeGenerationFailure, errors.GetCode(err))

	status, body, ok := errors.ResponseStatus(err)
	assert.True(t, ok)
	assert.Equal(t, 500, status)
	assert.Equal(t, "server error", body)
}

func TestGenerateMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>not json</html>")
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Generate(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, errors.CodeGenerationFailure, errors.GetCode(err))
	_, _, ok := errors.ResponseStatus(err)
	assert.False(t, ok)
}

func TestGenerateConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(t, url).Generate(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, errors.CodeGenerationFailure, errors.GetCode(err))
}

func TestNewOllamaClientDefaults(t *testing.T) {
	client, err := NewOllamaClient(Config{Model: "llama2"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434/api/generate", client.Endpoint())

	_, err = NewOllamaClient(Config{BaseURL: "http://localhost:11434"})
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestDescriberSuccess(t *testing.T) {
	srv := httptest.NewServer(ollamastub.New(ollamastub.Options{
		Responder: func(req ollamastub.GenerateRequest) string { return " Revenue in USD. " },
	}))
	defer srv.Close()

	d := NewDescriber(newTestClient(t, srv.URL))
	assert.Equal(t, "Revenue in USD.", d.Describe(context.Background(), "p"))
}

func TestDescriberStatusFailureIsText(t *testing.T) {
	srv := httptest.NewServer(ollamastub.New(ollamastub.Options{FailStatus: 500, FailBody: "server error"}))
	defer srv.Close()

	got := NewDescriber(newTestClient(t, srv.URL)).Describe(context.Background(), "p")
	assert.Equal(t, "Error: 500 - server error", got)
}

func TestDescriberTransportFailureIsText(t *testing.T) {
	d := NewDescriber(&MockTextGenerator{Error: errors.GenerationFailure(0, "", fmt.Errorf("dial tcp: connection refused"))})

	got := d.Describe(context.Background(), "p")
	assert.Contains(t, got, "Exception: ")
	assert.Contains(t, got, "connection refused")
}

func TestDescriberPlainGenerator(t *testing.T) {
	mock := &MockTextGenerator{Response: "ok"}
	d := NewDescriber(mock)

	assert.Equal(t, "ok", d.Describe(context.Background(), "first"))
	assert.Equal(t, []string{"first"}, mock.Prompts())
}

func TestDescriberRecordsUsage(t *testing.T) {
	srv := httptest.NewServer(ollamastub.New(ollamastub.Options{
		Responder: func(req ollamastub.GenerateRequest) string { return " Revenue in USD. " },
	}))
	defer srv.Close()

	tally := usage.NewService()
	d := NewDescriber(newTestClient(t, srv.URL)).WithUsageRecorder(tally)
	d.Describe(context.Background(), "describe revenue")

	totals := tally.Totals()
	assert.Equal(t, 1, totals.Calls)
	assert.Equal(t, 2, totals.PromptTokens)
	assert.Equal(t, 3, totals.CompletionTokens)
	assert.Equal(t, 5, totals.ByModel["llama2"])
}

func TestDescriberSkipsUsageOnFailure(t *testing.T) {
	srv := httptest.NewServer(ollamastub.New(ollamastub.Options{FailStatus: 503}))
	defer srv.Close()

	tally := usage.NewService()
	NewDescriber(newTestClient(t, srv.URL)).WithUsageRecorder(tally).Describe(context.Background(), "p")
	assert.Zero(t, tally.Totals().Calls)
}
