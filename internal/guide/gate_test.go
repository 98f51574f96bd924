package guide_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/myrjola/tripguide/internal/guide"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// sentences builds content of n words in sentences of sentenceLen words.
func sentences(n, sentenceLen int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "word%d", i)
		if i%sentenceLen == 0 || i == n {
			b.WriteString(".")
		}
		if i < n {
			b.WriteString(" ")
		}
	}
	return b.String()
}

func TestDiscloseLockedThousandWords(t *testing.T) {
	t.Parallel()
	content := sentences(1000, 7)
	gate := guide.NewGate(false)

	shown := guide.Disclose(content, gate.State())
	require.True(t, strings.HasPrefix(content, shown))
	words := len(strings.Fields(shown))
	require.GreaterOrEqual(t, words, 500)
	require.Less(t, words, 540)
	require.True(t, strings.HasSuffix(shown, "."), "cut must land on a sentence end: %q", shown[len(shown)-20:])

	gate.Unlock()
	require.Equal(t, content, guide.Disclose(content, gate.State()))
}

func TestDisclose(t *testing.T) {
	t.Parallel()
	locked := guide.GateState{IsLocked: true, RevealedFraction: guide.LockedFraction}
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "no sentence end nearby cuts at half",
			content: "one two three four five six seven eight",
			want:    "one two three four",
		},
		{
			name:    "extends to the end of the sentence",
			content: "One two three. Four five six seven! Eight nine ten eleven twelve thirteen fourteen",
			want:    "One two three. Four five six seven!",
		},
		{
			name:    "cut on sentence end stays",
			content: "One two. Three four.",
			want:    "One two.",
		},
		{
			name:    "closing quote after period",
			content: "He said \"go now.\" Then we left",
			want:    "He said \"go now.\"",
		},
		{
			name:    "keeps markdown line breaks",
			content: "# Day one\n\nHike the rim. Camp early\n\n# Day two\n\nSleep in",
			want:    "# Day one\n\nHike the rim.",
		},
		{
			name:    "single word shows nothing",
			content: "Hello.",
			want:    "",
		},
		{
			name:    "empty",
			content: "",
			want:    "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, guide.Disclose(tt.content, locked))
		})
	}
}

func TestGateNeverRelocks(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		gate := guide.NewGate(rapid.Bool().Draw(t, "restored"))
		content := sentences(rapid.IntRange(2, 200).Draw(t, "words"), rapid.IntRange(1, 30).Draw(t, "sentence"))
		unlocked := !gate.State().IsLocked
		ops := rapid.SliceOf(rapid.SampledFrom([]string{"unlock", "state", "disclose"})).Draw(t, "ops")
		for _, op := range ops {
			switch op {
			case "unlock":
				gate.Unlock()
				unlocked = true
			case "state":
				_ = gate.State()
			case "disclose":
				shown := guide.Disclose(content, gate.State())
				if !strings.HasPrefix(content, shown) {
					t.Fatalf("disclosure %q is not a prefix", shown)
				}
				if !unlocked && shown == content {
					t.Fatal("locked gate disclosed everything")
				}
			}
			if unlocked && gate.State().IsLocked {
				t.Fatal("gate locked again")
			}
		}
		if unlocked && guide.Disclose(content, gate.State()) != content {
			t.Fatal("unlocked gate must disclose everything")
		}
	})
}
