package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/myrjola/tripguide/internal/e2etest"
	"github.com/myrjola/tripguide/internal/testhelpers"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

// fakeCRM records contacts and answers with status.
type fakeCRM struct {
	*httptest.Server
	mu       sync.Mutex
	status   int
	received int
}

func newFakeCRM(t *testing.T, status int) *fakeCRM {
	t.Helper()
	f := &fakeCRM{status: status} //nolint:exhaustruct // server assigned below
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		f.received++
		n := f.received
		status := f.status
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusCreated {
			_, _ = fmt.Fprintf(w, `{"id":"crm-%d"}`, n)
		}
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeCRM) setStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

func (f *fakeCRM) contacts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.received
}

type testEnv struct {
	openAI *testhelpers.FakeOpenAI
	crm    *fakeCRM
	extra  map[string]string
}

func (e testEnv) lookupEnv(key string) (string, bool) {
	if v, ok := e.extra[key]; ok {
		return v, true
	}
	switch key {
	case "TRIPGUIDE_ADDR":
		return "localhost:0", true
	case "TRIPGUIDE_SQLITE_URL":
		return ":memory:", true
	case "OPENAI_API_KEY":
		return "test-key", true
	case "TRIPGUIDE_OPENAI_BASE_URL":
		return e.openAI.BaseURL(), true
	case "TRIPGUIDE_CRM_URL":
		return e.crm.URL, true
	case "TRIPGUIDE_RETRY_BACKOFF":
		return "1ms", true
	default:
		return "", false
	}
}

// startTestServer runs the application against a fake generation service and a fake CRM.
func startTestServer(t *testing.T, reply testhelpers.FakeReply, crmStatus int) (*e2etest.Server, testEnv) {
	t.Helper()
	return startTestServerWithEnv(t, reply, crmStatus, nil)
}

// startTestServerWithEnv is startTestServer with extra configuration.
func startTestServerWithEnv(
	t *testing.T,
	reply testhelpers.FakeReply,
	crmStatus int,
	extra map[string]string,
) (*e2etest.Server, testEnv) {
	t.Helper()
	env := testEnv{
		openAI: testhelpers.NewFakeOpenAI(t, reply),
		crm:    newFakeCRM(t, crmStatus),
		extra:  extra,
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	server, err := e2etest.StartServer(ctx, io.Discard, env.lookupEnv, run)
	require.NoError(t, err)
	return server, env
}

// guideContent is a guide of about 600 words in 12 paragraphs. Only the last paragraph mentions permits.
func guideContent() string {
	paragraphs := make([]string, 0, 12) //nolint:mnd // 12 paragraphs
	for p := range 11 {
		var sb strings.Builder
		for s := range 4 {
			if s > 0 {
				sb.WriteString(" ")
			}
			fmt.Fprintf(&sb, "Day %d brings another long walk through the red canyon walls, part %d.", p+1, s+1)
		}
		paragraphs = append(paragraphs, sb.String())
	}
	paragraphs = append(paragraphs, strings.Repeat("Book your canyon permits early before the season starts. ", 4)) //nolint:mnd,lll // 4 sentences
	return strings.Join(paragraphs, "\n\n")
}

func guideReply(openai.ChatCompletionRequest) (int, string) {
	return testhelpers.ChatReply(guideContent())
}
