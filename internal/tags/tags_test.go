package tags_test

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/myrjola/tripguide/internal/ai"
	"github.com/myrjola/tripguide/internal/errors"
	"github.com/myrjola/tripguide/internal/models"
	"github.com/myrjola/tripguide/internal/tags"
	"github.com/myrjola/tripguide/internal/testhelpers"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func submission(ft models.FlowType, values ...string) models.Submission {
	return models.Submission{ //nolint:exhaustruct // only the corpus matters
		FlowType: ft,
		Entries: []models.AnsweredQuestion{
			{QuestionID: "wishes", Prompt: "Anything else?", Dimension: "", Values: values, Number: nil},
		},
	}
}

type fakeCompleter struct {
	content string
	err     error
	calls   int
}

func (f *fakeCompleter) Complete(context.Context, string, string) (string, error) {
	f.calls++
	return f.content, f.err
}

func TestHeuristicExtract(t *testing.T) {
	t.Parallel()
	h := tags.NewHeuristic()
	sub := submission(models.FlowOpenEnded, "Hiking and skiing in Utah")

	first := h.Extract(context.Background(), sub)
	require.Contains(t, first, models.Tag("activity:hiking"))
	require.Contains(t, first, models.Tag("activity:skiing"))
	require.Contains(t, first, models.Tag("region:utah"))
	for range 5 {
		require.Equal(t, first, h.Extract(context.Background(), sub))
	}
}

func TestHeuristicDefaults(t *testing.T) {
	t.Parallel()
	h := tags.NewHeuristic()
	got := h.Extract(context.Background(), submission(models.FlowDestinationKnown, "zzz"))
	require.Equal(t, tags.DefaultFlowTags[models.FlowDestinationKnown], got)

	// Mutating the result must not leak into the defaults.
	got[0] = "activity:mutated"
	require.NotEqual(t, got, tags.DefaultFlowTags[models.FlowDestinationKnown])
}

func TestDelegatedExtract(t *testing.T) {
	t.Parallel()
	vocabulary := models.TagSet{
		"activity:hiking", "activity:skiing", "region:utah", "traveler:solo", "experience:intermediate",
		"activity:culture",
	}
	tests := []struct {
		name      string
		completer *fakeCompleter
		values    []string
		want      models.TagSet
	}{
		{
			name:      "filters hallucinated tags",
			completer: &fakeCompleter{content: `["activity:hiking", "activity:base-jumping", "Region:Utah"]`, err: nil},
			values:    []string{"anything"},
			want:      models.TagSet{"activity:hiking", "region:utah"},
		},
		{
			name:      "code fence",
			completer: &fakeCompleter{content: "```json\n[\"traveler:solo\"]\n```", err: nil},
			values:    []string{"anything"},
			want:      models.TagSet{"traveler:solo"},
		},
		{
			name:      "bullet list",
			completer: &fakeCompleter{content: "- activity:skiing\n- region:utah\n", err: nil},
			values:    []string{"anything"},
			want:      models.TagSet{"activity:skiing", "region:utah"},
		},
		{
			name: "rate limit falls back to heuristic within vocabulary",
			completer: &fakeCompleter{content: "", err: &ai.Error{
				Kind: ai.KindRateLimited, StatusCode: 429, Err: errors.New("slow down"),
			}},
			values: []string{"Hiking near Zion, then kayaking"},
			want:   models.TagSet{"activity:hiking", "region:utah"},
		},
		{
			name:      "only unknown tags falls back",
			completer: &fakeCompleter{content: `["activity:base-jumping"]`, err: nil},
			values:    []string{"solo ski trip"},
			want:      models.TagSet{"activity:skiing", "traveler:solo"},
		},
		{
			name:      "nothing matches falls back to flow defaults",
			completer: &fakeCompleter{content: "I cannot help with that.", err: nil},
			values:    []string{"zzz"},
			want:      models.TagSet{"activity:culture", "experience:intermediate"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := tags.NewDelegated(tt.completer, vocabulary, tags.NewHeuristic(), testhelpers.NewLogger(io.Discard))
			got := d.Extract(context.Background(), submission(models.FlowOpenEnded, tt.values...))
			require.Equal(t, tt.want, got)
			require.Equal(t, 1, tt.completer.calls)
		})
	}
}

func TestDelegatedCapsTags(t *testing.T) {
	t.Parallel()
	vocabulary := tags.NewHeuristic().Vocabulary()
	content, err := json.Marshal(vocabulary.Strings())
	require.NoError(t, err)
	d := tags.NewDelegated(&fakeCompleter{content: string(content), err: nil}, vocabulary, tags.NewHeuristic(),
		testhelpers.NewLogger(io.Discard))
	got := d.Extract(context.Background(), submission(models.FlowOpenEnded, "x"))
	require.Len(t, got, 8)
	require.Equal(t, vocabulary[:8], got)
}

func TestDelegatedStaysInsideVocabulary(t *testing.T) {
	t.Parallel()
	all := tags.NewHeuristic().Vocabulary()
	junk := []string{"activity:base-jumping", "region:mars", "hiking", "", "language:klingon"}

	rapid.Check(t, func(t *rapid.T) {
		vocabulary := models.TagSet(rapid.SliceOfDistinct(rapid.SampledFrom([]models.Tag(all)), func(tag models.Tag) models.Tag {
			return tag
		}).Draw(t, "vocabulary"))
		returned := rapid.SliceOf(rapid.OneOf(
			rapid.SampledFrom(all.Strings()),
			rapid.SampledFrom(junk),
		)).Draw(t, "returned")
		content, _ := json.Marshal(returned)
		fail := rapid.Bool().Draw(t, "fail")
		completer := &fakeCompleter{content: string(content), err: nil}
		if fail {
			completer.err = &ai.Error{Kind: ai.KindNetwork, StatusCode: 0, Err: errors.New("offline")}
		}
		words := rapid.SliceOf(rapid.SampledFrom([]string{"hiking", "skiing", "utah", "family", "museum", "zzz"})).
			Draw(t, "answers")

		d := tags.NewDelegated(completer, vocabulary, tags.NewHeuristic(), testhelpers.NewLogger(io.Discard))
		got := d.Extract(context.Background(), submission(models.FlowOpenEnded, words...))
		for _, tag := range got {
			if len(vocabulary) > 0 && !vocabulary.Contains(tag) {
				t.Fatalf("tag %q not in vocabulary %v", tag, vocabulary)
			}
		}
		if len(vocabulary) > 0 && len(got) == 0 {
			t.Fatalf("no tags for vocabulary %v", vocabulary)
		}
		if len(got) > 8 && !fail {
			t.Fatalf("too many tags: %v", got)
		}
	})
}

func TestDelegatedFallbackNeverEmpty(t *testing.T) {
	t.Parallel()
	offline := &ai.Error{Kind: ai.KindNetwork, StatusCode: 0, Err: errors.New("offline")}
	tests := []struct {
		name       string
		vocabulary models.TagSet
		want       models.TagSet
	}{
		{
			name:       "same category as the defaults",
			vocabulary: models.TagSet{"region:utah", "activity:hiking", "activity:skiing", "experience:expert"},
			want:       models.TagSet{"activity:hiking", "experience:expert"},
		},
		{
			name:       "single tag outside the defaults",
			vocabulary: models.TagSet{"activity:hiking"},
			want:       models.TagSet{"activity:hiking"},
		},
		{
			name:       "no shared category",
			vocabulary: models.TagSet{"region:utah", "language:german"},
			want:       models.TagSet{"region:utah"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := tags.NewDelegated(&fakeCompleter{content: "", err: offline}, tt.vocabulary, tags.NewHeuristic(),
				testhelpers.NewLogger(io.Discard))
			got := d.Extract(context.Background(), submission(models.FlowOpenEnded, "relax somewhere quiet"))
			require.NotEmpty(t, got)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseList(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		in      string
		want    []string
		wantErr bool
	}{
		{name: "json", in: `["a:b","c:d"]`, want: []string{"a:b", "c:d"}},
		{name: "prose around json", in: "Sure! [\"a:b\"] Enjoy.", want: []string{"a:b"}},
		{name: "comma separated", in: "a:b, c:d", want: []string{"a:b", "c:d"}},
		{name: "empty", in: "  ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tags.ParseList(tt.in)
			if tt.wantErr {
				var aiErr *ai.Error
				require.True(t, errors.As(err, &aiErr))
				require.Equal(t, ai.KindMalformed, aiErr.Kind)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
