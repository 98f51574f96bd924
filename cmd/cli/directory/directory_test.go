package directory_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/myrjola/tripguide/cmd/cli/directory"
	"github.com/myrjola/tripguide/internal/matcher"
	"github.com/myrjola/tripguide/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDirectory(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		yaml    string
		want    []models.ExpertRecord
		wantErr string
	}{
		{
			name: "experts with tags",
			yaml: `experts:
  - id: ines-dolomites
    name: Ines Moser
    bio: Via ferrata guide.
    contact: ines@example.com
    tags:
      region: [dolomites]
      activity: [climbing, hiking]
`,
			want: []models.ExpertRecord{{
				ID:         "ines-dolomites",
				Name:       "Ines Moser",
				Bio:        "Via ferrata guide.",
				ContactRef: "ines@example.com",
				Tags: map[string][]string{
					"region":   {"dolomites"},
					"activity": {"climbing", "hiking"},
				},
			}},
			wantErr: "",
		},
		{
			name:    "unknown field",
			yaml:    "experts:\n  - id: a\n    name: A\n    phone: 123\n",
			want:    nil,
			wantErr: "phone",
		},
		{
			name:    "missing name",
			yaml:    "experts:\n  - id: a\n",
			want:    nil,
			wantErr: "needs an id and a name",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := directory.ParseDirectory(strings.NewReader(tt.yaml))
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrintResult(t *testing.T) {
	t.Parallel()
	pool := []models.ExpertRecord{
		{ID: "a", Name: "A", Bio: "", ContactRef: "", Tags: map[string][]string{"activity": {"hiking"}}},
	}

	var out bytes.Buffer
	require.NoError(t, directory.PrintResult(&out, matcher.FindExperts(matcher.Query{
		Destination: "", Activities: []string{"hiking"}, TravelerType: "", ExperienceLevel: "", Languages: nil,
	}, pool)))
	assert.Contains(t, out.String(), "activity:hiking")
	assert.Contains(t, out.String(), "pool=1 -> activities=1")

	out.Reset()
	require.NoError(t, directory.PrintResult(&out, matcher.FindExperts(matcher.Query{
		Destination: "Zion", Activities: []string{"diving"}, TravelerType: "", ExperienceLevel: "", Languages: nil,
	}, pool)))
	assert.Contains(t, out.String(), "no expert matched")
	assert.Contains(t, out.String(), "destination utah")
}
