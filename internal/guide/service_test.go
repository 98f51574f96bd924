package guide_test

import (
	"context"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/myrjola/tripguide/internal/ai"
	"github.com/myrjola/tripguide/internal/errors"
	"github.com/myrjola/tripguide/internal/guide"
	"github.com/myrjola/tripguide/internal/models"
	"github.com/myrjola/tripguide/internal/tags"
	"github.com/myrjola/tripguide/internal/testhelpers"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type scriptedCompleter struct {
	mu      sync.Mutex
	replies []func(ctx context.Context) (string, error)
	calls   int
}

func (c *scriptedCompleter) Complete(ctx context.Context, _, _ string) (string, error) {
	c.mu.Lock()
	i := c.calls
	c.calls++
	c.mu.Unlock()
	if i >= len(c.replies) {
		i = len(c.replies) - 1
	}
	return c.replies[i](ctx)
}

func (c *scriptedCompleter) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func reply(content string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) { return content, nil }
}

func fail(kind ai.Kind, status int) func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		return "", &ai.Error{Kind: kind, StatusCode: status, Err: errors.New(string(kind))}
	}
}

type recordingSleep struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *recordingSleep) Sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waits = append(r.waits, d)
	return nil
}

func planningSubmission(destination string) models.Submission {
	return models.Submission{ //nolint:exhaustruct // timestamps do not matter
		FlowType: models.FlowDestinationKnown,
		Answers:  models.AnswerSet{"destination": models.TextAnswer(destination)},
		Entries: []models.AnsweredQuestion{
			{QuestionID: "destination", Prompt: "Where?", Dimension: "destination", Values: []string{destination}},
		},
	}
}

func newService(completer guide.Completer, sleep *recordingSleep) *guide.Service {
	return guide.NewService(completer, tags.NewHeuristic().FromText, guide.DefaultBackoff,
		testhelpers.NewLogger(io.Discard), guide.WithSleep(sleep.Sleep))
}

func TestRequest(t *testing.T) {
	tests := []struct {
		name      string
		replies   []func(context.Context) (string, error)
		wantKind  ai.Kind
		wantCalls int
		wantWaits []time.Duration
	}{
		{
			name:      "first attempt",
			replies:   []func(context.Context) (string, error){reply("Hike the Narrows in Zion.")},
			wantCalls: 1,
		},
		{
			name: "rate limit then success",
			replies: []func(context.Context) (string, error){
				fail(ai.KindRateLimited, http.StatusTooManyRequests),
				fail(ai.KindRateLimited, http.StatusTooManyRequests),
				reply("Hike the Narrows in Zion."),
			},
			wantCalls: 3,
			wantWaits: []time.Duration{2 * time.Second, 4 * time.Second},
		},
		{
			name:      "rate limit exhausts retries",
			replies:   []func(context.Context) (string, error){fail(ai.KindRateLimited, http.StatusTooManyRequests)},
			wantKind:  ai.KindRateLimited,
			wantCalls: 4,
			wantWaits: []time.Duration{2 * time.Second, 4 * time.Second, 6 * time.Second},
		},
		{
			name:      "quota is not retried",
			replies:   []func(context.Context) (string, error){fail(ai.KindQuota, http.StatusTooManyRequests)},
			wantKind:  ai.KindQuota,
			wantCalls: 1,
		},
		{
			name:      "auth is not retried",
			replies:   []func(context.Context) (string, error){fail(ai.KindAuth, http.StatusUnauthorized)},
			wantKind:  ai.KindAuth,
			wantCalls: 1,
		},
		{
			name:      "blank content is a hard failure",
			replies:   []func(context.Context) (string, error){reply(" \n ")},
			wantKind:  ai.KindEmpty,
			wantCalls: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := &scriptedCompleter{replies: tt.replies} //nolint:exhaustruct // zero calls
			sleep := &recordingSleep{}                           //nolint:exhaustruct // zero waits
			svc := newService(completer, sleep)

			g, err := svc.Request(context.Background(), planningSubmission("Zion"))
			require.Equal(t, tt.wantCalls, completer.Calls())
			require.Equal(t, tt.wantWaits, sleep.waits)
			if tt.wantKind != "" {
				var aiErr *ai.Error
				require.True(t, errors.As(err, &aiErr), err)
				require.Equal(t, tt.wantKind, aiErr.Kind)
				return
			}
			require.NoError(t, err)
			require.NotEmpty(t, g.ID)
			require.Equal(t, models.FlowDestinationKnown, g.FlowType)
			require.Equal(t, "Hike the Narrows in Zion.", g.Content)
			require.Equal(t, models.TagSet{"activity:hiking", "region:utah"}, g.Tags)
			require.False(t, g.GeneratedAt.IsZero())
		})
	}
}

func TestRequestSharesConcurrentGeneration(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	completer := &scriptedCompleter{replies: []func(context.Context) (string, error){ //nolint:exhaustruct // zero calls
		func(context.Context) (string, error) {
			once.Do(func() { close(started) })
			<-release
			return "Ski Zermatt early in the season.", nil
		},
	}}
	svc := newService(completer, &recordingSleep{}) //nolint:exhaustruct // zero waits
	sub := planningSubmission("Zermatt")

	const callers = 5
	var (
		wg  sync.WaitGroup
		ids sync.Map
		ok  atomic.Int32
	)
	request := func(i int) {
		defer wg.Done()
		g, err := svc.Request(context.Background(), sub)
		if err == nil {
			ok.Add(1)
			ids.Store(i, g.ID)
		}
	}
	wg.Add(1)
	go request(0)
	<-started
	for i := 1; i < callers; i++ {
		wg.Add(1)
		go request(i)
	}
	// Give the followers time to join the in-flight generation.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(callers), ok.Load())
	require.Equal(t, 1, completer.Calls())
	first, _ := ids.Load(0)
	ids.Range(func(_, id any) bool {
		require.Equal(t, first, id)
		return true
	})
}

func TestRequestCallerCanGiveUp(t *testing.T) {
	release := make(chan struct{})
	done := make(chan struct{})
	completer := &scriptedCompleter{replies: []func(context.Context) (string, error){ //nolint:exhaustruct // zero calls
		func(context.Context) (string, error) {
			defer close(done)
			<-release
			return "Too late.", nil
		},
	}}
	svc := newService(completer, &recordingSleep{}) //nolint:exhaustruct // zero waits

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := svc.Request(ctx, planningSubmission("Iceland"))
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	<-done
}

func TestSubmissionKey(t *testing.T) {
	require.Equal(t, guide.SubmissionKey(planningSubmission("Utah")), guide.SubmissionKey(planningSubmission("Utah")))
	require.NotEqual(t, guide.SubmissionKey(planningSubmission("Utah")), guide.SubmissionKey(planningSubmission("Alps")))
}
