package tagging_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/myrjola/tripguide/cmd/cli/tagging"
	"github.com/myrjola/tripguide/internal/models"
	"github.com/myrjola/tripguide/internal/tags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmission(t *testing.T) {
	t.Parallel()
	sub := tagging.Submission(models.FlowDestinationKnown, "Canyon hikes in Zion with the kids")

	got := tags.NewHeuristic().Extract(context.Background(), sub)
	assert.ElementsMatch(t, models.TagSet{
		"activity:hiking", "activity:canyoneering", "region:utah", "traveler:family",
	}, got)
}

func TestExtractCommand(t *testing.T) {
	var out bytes.Buffer
	tagging.Extract.SetOut(&out)
	tagging.Extract.SetArgs([]string{"solo", "skiing"})
	t.Setenv("TRIPGUIDE_LOG_LEVEL", "error")

	require.NoError(t, tagging.Extract.Execute())
	assert.Equal(t, "activity:skiing\ntraveler:solo\n", out.String())
}
