package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quilr/qonboard/onboard"
)

// toolResponse builds a chat completion whose tool call carries customers.
func toolResponse(t *testing.T, customers ...customer) []byte {
	t.Helper()
	args, err := json.Marshal(map[string]any{"customers": customers})
	require.NoError(t, err)
	resp := map[string]any{
		"choices": []any{map[string]any{
			"message": map[string]any{
				"tool_calls": []any{map[string]any{
					"type":     "function",
					"function": map[string]any{"name": FunctionName, "arguments": string(args)},
				}},
			},
		}},
	}
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	return data
}

func newTestExtractor(t *testing.T, handler http.HandlerFunc) *Extractor {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(Config{
		APIKey:     "az-key",
		Endpoint:   server.URL,
		Deployment: "gpt-4o",
		APIVersion: "2024-02-01",
	})
}

func TestExtract(t *testing.T) {
	var got chatRequest
	e := newTestExtractor(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/deployments/gpt-4o/chat/completions", r.URL.Path)
		assert.Equal(t, "2024-02-01", r.URL.Query().Get("api-version"))
		assert.Equal(t, "az-key", r.Header.Get("api-key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_, _ = w.Write(toolResponse(t,
			customer{Firstname: "Anup", Lastname: "", Email: " AnupH@Vyuhnet.com "},
			customer{Firstname: "vikas", Lastname: "sehgal", Email: "vikas@vyuhnet.com"},
			customer{Firstname: "Ian", Lastname: "McKay", Email: "ian@vyuhnet.com"},
			customer{Firstname: "", Lastname: "Nobody", Email: "x@vyuhnet.com"},
			customer{Firstname: "NoEmail", Lastname: "", Email: ""},
		))
	})

	users, err := e.Extract(context.Background(), "Anup anuph@vyuhnet.com;\nvikas sehgal vikas@vyuhnet.com")
	require.NoError(t, err)

	assert.Equal(t, []onboard.User{
		{Firstname: "Anup", Lastname: " ", Email: "anuph@vyuhnet.com"},
		{Firstname: "Vikas", Lastname: "Sehgal", Email: "vikas@vyuhnet.com"},
		{Firstname: "Ian", Lastname: "McKay", Email: "ian@vyuhnet.com"},
	}, users)

	assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
	assert.Equal(t, FunctionName, got.ToolChoice.Function.Name)
	require.Len(t, got.Tools, 1)
	assert.Equal(t, FunctionName, got.Tools[0].Function.Name)
	require.Len(t, got.Messages, 1)
	assert.Contains(t, got.Messages[0].Content, "vikas sehgal vikas@vyuhnet.com")
}

func TestExtractEmptyDescription(t *testing.T) {
	e := newTestExtractor(t, func(http.ResponseWriter, *http.Request) {
		t.Error("no request expected")
	})

	_, err := e.Extract(context.Background(), "  \n ")
	assert.ErrorIs(t, err, ErrEmptyDescription)
}

func TestExtractNoCustomers(t *testing.T) {
	tests := []struct {
		name      string
		customers []customer
	}{
		{"empty list", nil},
		{"all invalid", []customer{{Firstname: "", Email: "a@b.c"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestExtractor(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write(toolResponse(t, tt.customers...))
			})

			_, err := e.Extract(context.Background(), "some text")
			assert.ErrorIs(t, err, ErrNoCustomers)
		})
	}
}

func TestExtractNoToolCall(t *testing.T) {
	e := newTestExtractor(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"I cannot help"}}]}`))
	})

	_, err := e.Extract(context.Background(), "some text")
	assert.ErrorIs(t, err, ErrNoToolCall)
}

func TestExtractAPIError(t *testing.T) {
	e := newTestExtractor(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":"401","message":"invalid subscription key"}}`))
	})

	_, err := e.Extract(context.Background(), "some text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid subscription key")
}

func TestNormalizeName(t *testing.T) {
	tests := map[string]string{
		"":          "",
		"vikas":     "Vikas",
		"mary anne": "Mary Anne",
		"McKay":     "McKay",
		"DE SOUZA":  "DE SOUZA",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeName(in), in)
	}
}
