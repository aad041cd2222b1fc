package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/funnel/pkg/catalog"
	"github.com/aretw0/funnel/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := catalog.Default()

	assert.Equal(t, 26, c.Len())
	assert.Equal(t, 24, c.ProgressTotal())

	first, _ := c.At(0)
	assert.Equal(t, "weight-loss-goal", first.ID)
	assert.Equal(t, domain.KindLanding, first.Kind)

	last, _ := c.At(c.Last())
	assert.Equal(t, "pricing", last.ID)

	weight, _, ok := c.Lookup("weight")
	require.True(t, ok)
	assert.True(t, weight.UnitToggle)
	assert.Equal(t, "weight", weight.Fields[0].Name)

	age, _, _ := c.Lookup("age")
	assert.False(t, age.UnitToggle)

	assert.Same(t, c, catalog.Default())
}

func TestParse_JSON(t *testing.T) {
	data := `{"steps":[
		{"id":"goal","kind":"landing","prompt":"Goal?","choices":[{"id":"a","label":"A"}]},
		{"id":"pricing","kind":"pricing","prompt":"Pay"}
	]}`
	c, err := catalog.Parse([]byte(data), catalog.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	steps := []domain.Step{
		{ID: "pricing", Kind: domain.KindPricing},
		{ID: "zones", Kind: domain.KindMultiSelect},
		{ID: "age", Kind: domain.KindInput},
		{ID: "info", Kind: domain.KindInfo, UnitToggle: true},
		{ID: "email", Kind: domain.KindInfo},
		{ID: "age", Kind: "carousel"},
	}

	err := catalog.Validate(steps)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "found 7 errors")
	assert.Contains(t, msg, "pricing must be the last step")
	assert.Contains(t, msg, "multi-select step needs choices")
	assert.Contains(t, msg, "input step needs fields")
	assert.Contains(t, msg, "unit_toggle is only valid on input steps")
	assert.Contains(t, msg, `id "email" is reserved`)
	assert.Contains(t, msg, "duplicate id")
	assert.Contains(t, msg, `unknown kind "carousel"`)
}

func TestLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	for _, format := range []catalog.Format{catalog.FormatYAML, catalog.FormatJSON} {
		data, err := catalog.Marshal(catalog.Default(), format)
		require.NoError(t, err)

		path := filepath.Join(dir, "catalog."+string(format))
		require.NoError(t, os.WriteFile(path, data, 0644))

		loaded, err := catalog.Load(path)
		require.NoError(t, err)
		assert.Equal(t, catalog.Default().Steps(), loaded.Steps())
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := catalog.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
