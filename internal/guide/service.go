package guide

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/tripguide/internal/ai"
	"github.com/myrjola/tripguide/internal/errors"
	"github.com/myrjola/tripguide/internal/models"
	"github.com/myrjola/tripguide/internal/retry"
	"golang.org/x/sync/singleflight"
)

const (
	// MaxRetries is how often a rate limited generation is retried.
	MaxRetries = 3
	// DefaultBackoff is the first wait; later waits grow linearly.
	DefaultBackoff = 2 * time.Second
	// generationTimeout bounds one generation including retries.
	generationTimeout = 2 * time.Minute
)

const systemPrompt = `You are a seasoned travel expert writing a personal trip guide.
Use the traveller's answers below. Write roughly 600 words in short paragraphs with a heading per section.
Cover where to go, what to do day by day, practical tips, and what to book in advance.`

// Completer is the generation service call the guide needs.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Service generates guides. Concurrent requests for the same submission share one generation.
type Service struct {
	completer Completer
	policy    retry.Policy
	tagger    func(content string) models.TagSet
	now       func() time.Time
	group     singleflight.Group
	logger    *slog.Logger
}

type Option func(*Service)

// WithSleep replaces the wait between retries, e.g. with a fake clock in tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Service) {
		s.policy.Sleep = sleep
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a Service. tagger derives the guide tags from the generated content.
func NewService(
	completer Completer,
	tagger func(content string) models.TagSet,
	backoff time.Duration,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	logger = logger.With("source", "guide.Service")
	s := &Service{
		completer: completer,
		policy: retry.Policy{
			MaxRetries: MaxRetries,
			Backoff:    retry.Linear(backoff),
			Retryable:  ai.IsRateLimited,
			Sleep:      retry.Sleep,
			OnRetry: func(n int, wait time.Duration, err error) {
				logger.Warn("generation rate limited, retrying",
					slog.Int("retry", n),
					slog.Duration("wait", wait),
					errors.SlogError(err),
				)
			},
		},
		tagger: tagger,
		now:    time.Now,
		group:  singleflight.Group{},
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request generates a guide for sub. Rate limits are retried with linear backoff; every other failure is returned
// at once as an [*ai.Error]. A guide without content is an error.
func (s *Service) Request(ctx context.Context, sub models.Submission) (models.Guide, error) {
	key := SubmissionKey(sub)
	ch := s.group.DoChan(key, func() (any, error) {
		// Callers may give up waiting; the shared generation continues for the others.
		genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), generationTimeout)
		defer cancel()
		return s.generate(genCtx, sub)
	})

	select {
	case <-ctx.Done():
		return models.Guide{}, errors.Wrap(ctx.Err(), "wait for guide") //nolint:exhaustruct // error path
	case res := <-ch:
		if res.Err != nil {
			return models.Guide{}, res.Err //nolint:exhaustruct // error path
		}
		if res.Shared {
			s.logger.LogAttrs(ctx, slog.LevelDebug, "shared guide generation", slog.String("key", key))
		}
		g, _ := res.Val.(models.Guide)
		return g, nil
	}
}

func (s *Service) generate(ctx context.Context, sub models.Submission) (models.Guide, error) {
	start := s.now()
	content, err := retry.Do(ctx, s.policy, func(ctx context.Context) (string, error) {
		return s.completer.Complete(ctx, systemPrompt, sub.Text())
	})
	if err != nil {
		return models.Guide{}, errors.Wrap(ai.Classify(err), "generate guide", //nolint:exhaustruct // error path
			slog.String("flow_type", string(sub.FlowType)))
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Guide{}, errors.Wrap(&ai.Error{ //nolint:exhaustruct // error path
			Kind: ai.KindEmpty, StatusCode: 0, Err: errors.New("guide without content"),
		}, "generate guide")
	}

	g := models.Guide{
		ID:          uuid.NewString(),
		FlowType:    sub.FlowType,
		Content:     content,
		Tags:        s.tagger(content),
		GeneratedAt: s.now(),
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "generated guide",
		slog.String("guide_id", g.ID),
		slog.String("flow_type", string(g.FlowType)),
		slog.Int("words", len(strings.Fields(content))),
		slog.Duration("duration", g.GeneratedAt.Sub(start)),
	)
	return g, nil
}

// SubmissionKey identifies a submission by its flow and answers.
func SubmissionKey(sub models.Submission) string {
	sum := sha256.Sum256([]byte(sub.Text()))
	return hex.EncodeToString(sum[:])
}
