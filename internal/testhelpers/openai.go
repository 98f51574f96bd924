package testhelpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sashabaranov/go-openai"
)

// FakeReply answers one chat completion request with a status code and a JSON body.
type FakeReply func(req openai.ChatCompletionRequest) (int, string)

// FakeOpenAI serves the chat completions endpoint of the OpenAI API.
type FakeOpenAI struct {
	*httptest.Server
	mu       sync.Mutex
	requests []openai.ChatCompletionRequest
}

// NewFakeOpenAI starts a fake generation service that is closed when the test ends.
func NewFakeOpenAI(t testing.TB, reply FakeReply) *FakeOpenAI {
	t.Helper()
	fake := &FakeOpenAI{} //nolint:exhaustruct // server assigned below
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fake.mu.Lock()
		fake.requests = append(fake.requests, req)
		fake.mu.Unlock()

		status, body := reply(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
	fake.Server = httptest.NewServer(mux)
	t.Cleanup(fake.Close)
	return fake
}

// BaseURL is the value for the client BaseURL setting.
func (f *FakeOpenAI) BaseURL() string {
	return f.URL + "/v1"
}

// Requests returns the requests received so far.
func (f *FakeOpenAI) Requests() []openai.ChatCompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]openai.ChatCompletionRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// ChatReply is a successful completion with content.
func ChatReply(content string) (int, string) {
	resp := openai.ChatCompletionResponse{ //nolint:exhaustruct // only what the client reads
		ID:     "chatcmpl-test",
		Object: "chat.completion",
		Model:  "gpt-test",
		Choices: []openai.ChatCompletionChoice{{ //nolint:exhaustruct // only what the client reads
			Index:        0,
			Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}, //nolint:exhaustruct,lll // plain text
			FinishReason: openai.FinishReasonStop,
		}},
	}
	body, err := json.Marshal(resp)
	if err != nil {
		panic(err)
	}
	return http.StatusOK, string(body)
}

// ErrorReply is an OpenAI style error response.
func ErrorReply(status int, errType, message string) (int, string) {
	body, err := json.Marshal(map[string]any{
		"error": map[string]any{
			"message": message,
			"type":    errType,
			"code":    errType,
		},
	})
	if err != nil {
		panic(err)
	}
	return status, string(body)
}
