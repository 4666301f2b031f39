// Package normalize converts raw fetched postings into canonical records:
// markup stripped, whitespace collapsed, blanks made absent, and the
// free-text decision and score fields parsed into typed values.
package normalize

import (
	"log"
	"regexp"
	"strings"
	"time"

	"gradtrack-engine/internal/domain"
	"gradtrack-engine/internal/extract"
)

var tagRE = regexp.MustCompile(`<[^>]+>`)

// CleanText strips markup tags, replaces NBSPs and collapses runs of
// whitespace. Empty results stay empty so callers can treat them as absent.
func CleanText(s string) string {
	s = tagRE.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}

// Normalize is a pure transform of one raw posting into a Record. It never
// touches the network or storage; unparseable fields come out absent, with
// a log line when a non-empty value parsed to nothing.
func Normalize(raw domain.RawRecord) domain.Record {
	fields := map[Field]string{}
	var blobs []string
	for label, value := range raw.Fields {
		value = CleanText(value)
		if value == "" {
			continue
		}
		f, ok := labelToField[NormalizeLabel(label)]
		if !ok {
			continue
		}
		if f == FieldScoreBlob {
			blobs = append(blobs, value)
			continue
		}
		fields[f] = value
	}

	rec := domain.Record{
		DetailURL:  raw.DetailURL,
		ProgramRaw: combineProgram(fields[FieldProgram], fields[FieldInstitution]),
		Degree:     opt(fields[FieldDegree]),
		Origin:     classifyOrigin(fields[FieldOrigin]),
		Term:       opt(fields[FieldTerm]),
		Comments:   opt(fields[FieldComments]),
	}

	// The decision field carries the status prefix; the notification field
	// usually carries the date ("on 07/08/2025 via ...").
	status := strings.TrimSpace(fields[FieldDecision] + " " + fields[FieldNotify])
	statusType, statusDate := extract.ExtractStatus(status)
	if statusType != "" || statusDate != nil {
		rec.StatusType = opt(statusType)
		rec.StatusDate = statusDate
	} else if status != "" {
		log.Printf("[normalize] unparsed status %q on %s", status, raw.DetailURL)
	}

	rec.AddedOn = addedOn(fields[FieldAddedOn], raw.AddedOn)

	num := func(f Field) *float64 {
		v := fields[f]
		p := extract.ParseFloat(v)
		if v != "" && p == nil {
			log.Printf("[normalize] unparseable %s %q on %s", f, v, raw.DetailURL)
		}
		return p
	}
	rec.GPA = num(FieldGPA)
	rec.GREQuant = num(FieldGREQuant)
	rec.GREVerbal = num(FieldGREVerbal)
	rec.GREWriting = num(FieldGREWriting)

	// Fall back to free-text extraction for whatever the labelled fields
	// did not supply.
	if rec.GPA == nil || rec.GREQuant == nil || rec.GREVerbal == nil || rec.GREWriting == nil {
		blob := strings.Join(append(blobs,
			rec.ProgramRaw, status, fields[FieldComments]), " | ")
		scores := extract.ExtractScores(blob)
		if rec.GPA == nil {
			rec.GPA = scores.GPA
		}
		if rec.GREQuant == nil {
			rec.GREQuant = scores.Quant
		}
		if rec.GREVerbal == nil {
			rec.GREVerbal = scores.Verbal
		}
		if rec.GREWriting == nil {
			rec.GREWriting = scores.Writing
		}
	}

	if len(blobs) > 0 &&
		rec.GPA == nil && rec.GREQuant == nil && rec.GREVerbal == nil && rec.GREWriting == nil {
		log.Printf("[normalize] no scores recovered from %q on %s",
			strings.Join(blobs, " | "), raw.DetailURL)
	}

	return rec
}

// combineProgram keeps the institution+program text deliberately unsplit;
// downstream enrichment standardizes it.
func combineProgram(program, institution string) string {
	switch {
	case program != "" && institution != "":
		return program + ", " + institution
	case program != "":
		return program
	default:
		return institution
	}
}

func classifyOrigin(s string) *string {
	if s == "" {
		return nil
	}
	low := strings.ToLower(s)
	var out string
	switch {
	case strings.Contains(low, "american") || low == "us" || low == "u.s." || strings.Contains(low, "domestic"):
		out = domain.OriginDomestic
	case strings.Contains(low, "international"):
		out = domain.OriginInternational
	default:
		out = domain.OriginOther
	}
	return &out
}

func addedOn(fieldValue string, cardDate *time.Time) *time.Time {
	if t := extract.ParseDate(fieldValue); t != nil {
		return t
	}
	return cardDate
}

func opt(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
