package normalize

import (
	"fmt"
	"strings"
)

// Field identifies one typed slot on a normalized record.
type Field string

const (
	FieldInstitution Field = "institution"
	FieldProgram     Field = "program"
	FieldDegree      Field = "degree"
	FieldOrigin      Field = "origin"
	FieldDecision    Field = "decision"
	FieldNotify      Field = "notification"
	FieldTerm        Field = "term"
	FieldComments    Field = "comments"
	FieldGPA         Field = "gpa"
	FieldGREQuant    Field = "gre_quant"
	FieldGREVerbal   Field = "gre_verbal"
	FieldGREWriting  Field = "gre_writing"
	FieldAddedOn     Field = "added_on"
	FieldScoreBlob   Field = "score_blob"
)

// labelToField is the explicit mapping from the source site's dt labels
// (lowercased, trailing colon stripped) to record fields. Labels not listed
// here are ignorable, never lookup failures.
var labelToField = map[string]Field{
	"institution":                FieldInstitution,
	"program":                    FieldProgram,
	"degree type":                FieldDegree,
	"degree's country of origin": FieldOrigin,
	"decision":                   FieldDecision,
	"notification":               FieldNotify,
	"term":                       FieldTerm,
	"notes":                      FieldComments,
	"undergrad gpa":              FieldGPA,
	"gre general":                FieldGREQuant,
	"gre verbal":                 FieldGREVerbal,
	"analytical writing":         FieldGREWriting,
	"added on":                   FieldAddedOn,
	"test scores":                FieldScoreBlob,
	"additional info":            FieldScoreBlob,
	"score":                      FieldScoreBlob,
}

// required lists the fields that must each be reachable from at least one
// label for the mapping to make sense.
var required = []Field{
	FieldInstitution, FieldProgram, FieldDegree, FieldOrigin,
	FieldDecision, FieldNotify, FieldTerm, FieldComments,
	FieldGPA, FieldGREQuant, FieldGREVerbal, FieldGREWriting, FieldAddedOn,
}

// ValidateLabels checks the label mapping at startup: every label must be in
// canonical form and every required field must be covered.
func ValidateLabels() error {
	covered := map[Field]bool{}
	for label, f := range labelToField {
		if label != NormalizeLabel(label) {
			return fmt.Errorf("label %q is not in canonical form", label)
		}
		covered[f] = true
	}
	for _, f := range required {
		if !covered[f] {
			return fmt.Errorf("no label maps to field %q", f)
		}
	}
	return nil
}

// NormalizeLabel lowercases, collapses whitespace and strips one trailing
// colon, mirroring how labels are captured off the detail page.
func NormalizeLabel(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	return strings.TrimSuffix(s, ":")
}

// UnknownLabels returns the labels in a raw record that the mapping does not
// know about, so callers can log them as ignored.
func UnknownLabels(fields map[string]string) []string {
	var out []string
	for label := range fields {
		if _, ok := labelToField[NormalizeLabel(label)]; !ok {
			out = append(out, label)
		}
	}
	return out
}
