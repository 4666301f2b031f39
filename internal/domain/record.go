package domain

import "time"

// RawRecord is one survey posting as captured from the source site:
// normalized label -> free-text value, plus the detail page URL it came
// from. It only lives between fetch and normalization.
type RawRecord struct {
	DetailURL string
	AddedOn   *time.Time // card-level "Added on" date, when the listing had one
	Fields    map[string]string
}

// Origin classification values as they appear downstream.
const (
	OriginDomestic      = "American"
	OriginInternational = "International"
	OriginOther         = "Other"
)

// Record is the canonical, persisted representation of one posting.
// detail_url is the sole identity key. Pointer fields are nullable columns;
// nil means the source rendered the field absent.
type Record struct {
	DetailURL  string     `json:"detail_url"`
	ProgramRaw string     `json:"program_raw"`
	Degree     *string    `json:"degree"`
	Origin     *string    `json:"origin_classification"`
	StatusType *string    `json:"status_type"`
	StatusDate *time.Time `json:"status_date"`
	AddedOn    *time.Time `json:"date_added"`
	Term       *string    `json:"term"`
	Comments   *string    `json:"comments"`
	GPA        *float64   `json:"gpa"`
	GREQuant   *float64   `json:"gre_quant"`
	GREVerbal  *float64   `json:"gre_verbal"`
	GREWriting *float64   `json:"gre_writing"`
}

// Watermark returns the timestamp the cursor should advance past for this
// record: the listing date when present, otherwise the status date.
func (r Record) Watermark() *time.Time {
	if r.AddedOn != nil {
		return r.AddedOn
	}
	return r.StatusDate
}

// RunSummary is returned to the trigger caller after a successful run.
type RunSummary struct {
	Fetched      int    `json:"fetched"`
	Inserted     int    `json:"inserted"`
	Skipped      int    `json:"skipped"`
	NewWatermark string `json:"new_watermark,omitempty"`
}

// RunStatus is the snapshot served by /pipeline/status.
type RunStatus struct {
	State     string `json:"state"` // idle | running | completed | failed
	LastRunAt string `json:"last_run_at,omitempty"`
	LastOkAt  string `json:"last_ok_at,omitempty"`
	LastError string `json:"last_error,omitempty"`
	Fetched   int    `json:"fetched"`
	Inserted  int    `json:"inserted"`
	Skipped   int    `json:"skipped"`
	Running   bool   `json:"running"`
}
