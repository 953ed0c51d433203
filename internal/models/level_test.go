package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyLevelMapping(t *testing.T) {
	require.NoError(t, VerifyLevelMapping())
}

func TestEveryLevelHasLabel(t *testing.T) {
	for _, code := range AllEducationLevels {
		label, ok := code.Label()
		assert.True(t, ok, "code %s unmapped", code)
		assert.NotEmpty(t, label, "code %s has empty label", code)
	}
}

func TestMaternelleCodesShareLabel(t *testing.T) {
	for _, code := range []EducationLevel{LevelMaternellePetite, LevelMaternelleMoyenne, LevelMaternelleGrande} {
		label, ok := code.Label()
		require.True(t, ok)
		assert.Equal(t, "Maternelle", label)
	}
}

func TestLevelLabelPairs(t *testing.T) {
	cases := map[EducationLevel]string{
		LevelSIL:       "SIL",
		LevelCP:        "CP",
		LevelCM2:       "CM2",
		LevelSixieme:   "6ème",
		LevelTroisieme: "3ème",
		LevelSeconde:   "2nde",
		LevelPremiere:  "1ère",
		LevelTerminale: "Tle",
	}
	for code, expected := range cases {
		label, ok := code.Label()
		require.True(t, ok, "code %s", code)
		assert.Equal(t, expected, label)
	}
}

func TestParseEducationLevel(t *testing.T) {
	code, ok := ParseEducationLevel(" terminale ")
	require.True(t, ok)
	assert.Equal(t, LevelTerminale, code)

	_, ok = ParseEducationLevel("CM3")
	assert.False(t, ok)

	_, ok = ParseEducationLevel("")
	assert.False(t, ok)
}

func TestSubjectLevelLabels(t *testing.T) {
	labels := SubjectLevelLabels()

	// 16 codes collapse into 14 labels because maternelle is shared.
	assert.Len(t, labels, 14)
	assert.Equal(t, "Maternelle", labels[0])
	assert.Equal(t, "Tle", labels[len(labels)-1])

	for _, label := range labels {
		assert.True(t, IsSubjectLevelLabel(label))
	}
	assert.False(t, IsSubjectLevelLabel("Université"))
}
