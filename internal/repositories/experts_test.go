package repositories_test

import (
	"context"
	"io"
	"testing"

	"github.com/myrjola/tripguide/internal/models"
	"github.com/myrjola/tripguide/internal/repositories"
	"github.com/myrjola/tripguide/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

func TestExpertRepository_List(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := repositories.NewExpertRepository(newTestDB(t), testhelpers.NewLogger(io.Discard))

	experts, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, experts, 6)
	require.Equal(t, "maria-alpine", experts[0].ID)
	require.Equal(t, "david-patagonia", experts[5].ID)

	jonas := experts[1]
	require.Equal(t, "Jonas Reed", jonas.Name)
	require.Equal(t, []string{"zion", "moab"}, jonas.Tags["city"])
	require.Equal(t, []string{"hiking", "canyoneering", "climbing"}, jonas.Tags["activity"])
	require.True(t, jonas.AllTags().Contains("credential:wilderness-first-aid"))
}

func TestExpertRepository_Get(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := repositories.NewExpertRepository(newTestDB(t), testhelpers.NewLogger(io.Discard))

	tests := []struct {
		name     string
		id       string
		wantName string
		wantErr  error
	}{
		{name: "existing", id: "aiko-culture", wantName: "Aiko Tanaka"},
		{name: "missing", id: "nobody", wantErr: repositories.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := repo.Get(ctx, tt.id)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantName, got.Name)
			require.Equal(t, []string{"japan"}, got.Tags["country"])
		})
	}
}

func TestExpertRepository_Upsert(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := repositories.NewExpertRepository(newTestDB(t), testhelpers.NewLogger(io.Discard))

	newcomer := models.ExpertRecord{
		ID:         "emil-iceland",
		Name:       "Emil Jónsson",
		Bio:        "Glacier walks and hot springs.",
		ContactRef: "emil@north.example",
		Tags: map[string][]string{
			"country":  {"Iceland"},
			"activity": {"hiking", "Glacier Walking"},
		},
	}
	changed := models.ExpertRecord{
		ID:         "maria-alpine",
		Name:       "Maria Keller-Rossi",
		Bio:        "Moved to Zermatt.",
		ContactRef: "maria@alpine-guides.example",
		Tags:       map[string][]string{"city": {"zermatt"}},
	}
	require.NoError(t, repo.Upsert(ctx, newcomer, changed))

	experts, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, experts, 7)
	// Updated experts keep their place, new ones are appended.
	require.Equal(t, "Maria Keller-Rossi", experts[0].Name)
	require.Equal(t, map[string][]string{"city": {"zermatt"}}, experts[0].Tags)
	require.Equal(t, "emil-iceland", experts[6].ID)
	require.Equal(t, []string{"hiking", "glacier-walking"}, experts[6].Tags["activity"])

	require.Error(t, repo.Upsert(ctx, models.ExpertRecord{ID: "", Name: "anonymous"}))
}

func TestExpertRepository_Vocabulary(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := repositories.NewExpertRepository(newTestDB(t), testhelpers.NewLogger(io.Discard))

	vocabulary, err := repo.Vocabulary(ctx)
	require.NoError(t, err)
	require.True(t, vocabulary.Contains("activity:canyoneering"))
	require.True(t, vocabulary.Contains("region:utah"))
	require.True(t, vocabulary.Contains("language:japanese"))
	require.False(t, vocabulary.Contains("activity:diving"))

	seen := map[models.Tag]bool{}
	for _, tag := range vocabulary {
		require.False(t, seen[tag], "duplicate %s", tag)
		seen[tag] = true
	}
}
