package domain_test

import (
	"testing"

	"github.com/aretw0/funnel/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSteps() []domain.Step {
	return []domain.Step{
		{ID: "goal", Kind: domain.KindLanding, Choices: []domain.Choice{{ID: "0-10"}}, SkipProgress: true},
		{ID: "knowledge", Kind: domain.KindSingleSelect, Choices: []domain.Choice{{ID: "basic"}}},
		{ID: "zones", Kind: domain.KindMultiSelect, Choices: []domain.Choice{{ID: "arms"}, {ID: "legs"}}},
		{ID: "weight", Kind: domain.KindInput, Fields: []domain.InputField{{Name: "weight"}}},
		{ID: "pricing", Kind: domain.KindPricing, SkipProgress: true},
	}
}

func TestNewCatalog(t *testing.T) {
	c, err := domain.NewCatalog(sampleSteps())
	require.NoError(t, err)

	assert.Equal(t, 5, c.Len())
	assert.Equal(t, 4, c.Last())
	assert.Equal(t, 2, c.IndexOf("zones"))
	assert.Equal(t, -1, c.IndexOf("missing"))

	step, pos, ok := c.Lookup("weight")
	require.True(t, ok)
	assert.Equal(t, 3, pos)
	assert.Equal(t, domain.KindInput, step.Kind)

	_, ok = c.At(5)
	assert.False(t, ok)
}

func TestNewCatalog_Rejects(t *testing.T) {
	_, err := domain.NewCatalog(nil)
	assert.Error(t, err)

	_, err = domain.NewCatalog([]domain.Step{{ID: "a", Kind: "carousel"}})
	assert.ErrorContains(t, err, "unknown kind")

	_, err = domain.NewCatalog([]domain.Step{{ID: "a", Kind: domain.KindInfo}, {ID: "a", Kind: domain.KindInfo}})
	assert.ErrorContains(t, err, "duplicate")

	_, err = domain.NewCatalog([]domain.Step{{Kind: domain.KindInfo}})
	assert.ErrorContains(t, err, "missing id")
}

func TestCatalog_StepsIsACopy(t *testing.T) {
	c, err := domain.NewCatalog(sampleSteps())
	require.NoError(t, err)

	steps := c.Steps()
	steps[0].ID = "mutated"

	first, _ := c.At(0)
	assert.Equal(t, "goal", first.ID)
}

func TestCatalog_Progress(t *testing.T) {
	c, err := domain.NewCatalog(sampleSteps())
	require.NoError(t, err)

	assert.Equal(t, 3, c.ProgressTotal())
	assert.Equal(t, 0, c.ProgressNumber(0))
	assert.Equal(t, 1, c.ProgressNumber(1))
	assert.Equal(t, 3, c.ProgressNumber(3))
	assert.Equal(t, 3, c.ProgressNumber(4))
}
