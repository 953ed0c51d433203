package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claudyne/claudyne-content-api/internal/models"
)

func TestLevelServiceVerify(t *testing.T) {
	svc := NewLevelService(nil)
	require.NoError(t, svc.Verify())
}

func TestLevelServiceMapToLabel(t *testing.T) {
	svc := NewLevelService(nil)

	label, err := svc.MapToLabel(models.LevelTerminale)
	require.NoError(t, err)
	assert.Equal(t, "Tle", label)

	label, err = svc.MapToLabel(models.LevelMaternelleMoyenne)
	require.NoError(t, err)
	assert.Equal(t, "Maternelle", label)

	_, err = svc.MapToLabel(models.EducationLevel("CM3"))
	require.Error(t, err)
}

func TestLevelServiceMappings(t *testing.T) {
	svc := NewLevelService(nil)
	entries := svc.Mappings()

	require.Len(t, entries, len(models.AllEducationLevels))
	assert.Equal(t, models.LevelMaternellePetite, entries[0].Code)
	assert.Equal(t, "Maternelle", entries[0].Label)
	assert.Equal(t, models.LevelTerminale, entries[len(entries)-1].Code)
	assert.Equal(t, "Tle", entries[len(entries)-1].Label)

	for _, entry := range entries {
		assert.NotEmpty(t, entry.Label, "code %s", entry.Code)
	}
}
