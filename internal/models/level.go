package models

import (
	"fmt"
	"strings"
)

// EducationLevel is the machine-oriented grade code stored on a student profile.
type EducationLevel string

// Education level codes covering the full curriculum from maternelle to terminale.
const (
	LevelMaternellePetite  EducationLevel = "MATERNELLE_PETITE"
	LevelMaternelleMoyenne EducationLevel = "MATERNELLE_MOYENNE"
	LevelMaternelleGrande  EducationLevel = "MATERNELLE_GRANDE"
	LevelSIL               EducationLevel = "SIL"
	LevelCP                EducationLevel = "CP"
	LevelCE1               EducationLevel = "CE1"
	LevelCE2               EducationLevel = "CE2"
	LevelCM1               EducationLevel = "CM1"
	LevelCM2               EducationLevel = "CM2"
	LevelSixieme           EducationLevel = "6EME"
	LevelCinquieme         EducationLevel = "5EME"
	LevelQuatrieme         EducationLevel = "4EME"
	LevelTroisieme         EducationLevel = "3EME"
	LevelSeconde           EducationLevel = "SECONDE"
	LevelPremiere          EducationLevel = "PREMIERE"
	LevelTerminale         EducationLevel = "TERMINALE"
)

// AllEducationLevels lists every supported code in curriculum order.
var AllEducationLevels = []EducationLevel{
	LevelMaternellePetite,
	LevelMaternelleMoyenne,
	LevelMaternelleGrande,
	LevelSIL,
	LevelCP,
	LevelCE1,
	LevelCE2,
	LevelCM1,
	LevelCM2,
	LevelSixieme,
	LevelCinquieme,
	LevelQuatrieme,
	LevelTroisieme,
	LevelSeconde,
	LevelPremiere,
	LevelTerminale,
}

// levelLabels is the single mapping table between student grade codes and the
// display labels carried by subjects. The three maternelle codes share one
// label on purpose; every other code maps to its own label.
var levelLabels = map[EducationLevel]string{
	LevelMaternellePetite:  "Maternelle",
	LevelMaternelleMoyenne: "Maternelle",
	LevelMaternelleGrande:  "Maternelle",
	LevelSIL:               "SIL",
	LevelCP:                "CP",
	LevelCE1:               "CE1",
	LevelCE2:               "CE2",
	LevelCM1:               "CM1",
	LevelCM2:               "CM2",
	LevelSixieme:           "6ème",
	LevelCinquieme:         "5ème",
	LevelQuatrieme:         "4ème",
	LevelTroisieme:         "3ème",
	LevelSeconde:           "2nde",
	LevelPremiere:          "1ère",
	LevelTerminale:         "Tle",
}

// Valid reports whether the code belongs to the enumeration.
func (l EducationLevel) Valid() bool {
	_, ok := levelLabels[l]
	return ok
}

// Label resolves the subject-level display label for the code.
func (l EducationLevel) Label() (string, bool) {
	label, ok := levelLabels[l]
	return label, ok
}

// ParseEducationLevel normalises raw input into an enumerated code.
func ParseEducationLevel(raw string) (EducationLevel, bool) {
	code := EducationLevel(strings.ToUpper(strings.TrimSpace(raw)))
	if code.Valid() {
		return code, true
	}
	return "", false
}

// SubjectLevelLabels returns the distinct labels in curriculum order.
func SubjectLevelLabels() []string {
	seen := make(map[string]struct{}, len(AllEducationLevels))
	labels := make([]string, 0, len(AllEducationLevels))
	for _, code := range AllEducationLevels {
		label := levelLabels[code]
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		labels = append(labels, label)
	}
	return labels
}

// IsSubjectLevelLabel reports whether the value is a label the mapping can produce.
func IsSubjectLevelLabel(label string) bool {
	for _, code := range AllEducationLevels {
		if levelLabels[code] == label {
			return true
		}
	}
	return false
}

// VerifyLevelMapping checks at startup that every enumerated code resolves to
// a non-empty label. A hole in the table is a configuration defect and must
// abort the process before the server accepts traffic.
func VerifyLevelMapping() error {
	var missing []string
	for _, code := range AllEducationLevels {
		if label, ok := levelLabels[code]; !ok || label == "" {
			missing = append(missing, string(code))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("level mapping incomplete, unmapped codes: %s", strings.Join(missing, ", "))
	}
	return nil
}
