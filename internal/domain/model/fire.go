package model

import "time"

// Canonical cause and severity values produced by the normalizer.
const (
	CauseLightning = "Lightning"
	CauseHuman     = "Human"
	CauseUnknown   = "Unknown"

	SeverityLow = "low"

	// UnknownDate marks records whose source carried no usable date.
	UnknownDate = "1970-01-01"

	// DateLayout is the canonical calendar date layout.
	DateLayout = "2006-01-02"
)

// FireRecord is a historical wildfire in canonical form.
type FireRecord struct {
	FireID       string   `json:"fire_id"`
	Date         string   `json:"date"`
	Cause        string   `json:"cause"`
	AreaBurned   float64  `json:"area_burned"`
	Severity     string   `json:"severity"`
	Location     Location `json:"location"`
	IncidentName *string  `json:"incident_name,omitempty"`
}

// When parses Date. Records that somehow carry an invalid date resolve to
// the unknown-date sentinel rather than the zero time.
func (f FireRecord) When() time.Time {
	t, err := time.Parse(DateLayout, f.Date)
	if err != nil {
		t, _ = time.Parse(DateLayout, UnknownDate)
	}
	return t
}
