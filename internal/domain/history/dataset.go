package history

import (
	"sort"

	"github.com/okian/emberwatch/internal/domain/geo"
	"github.com/okian/emberwatch/internal/domain/model"
)

// Candidate is a fire found near a point of interest.
type Candidate struct {
	Record     model.FireRecord
	DistanceKm float64
}

// Dataset is an immutable collection of canonical fire records. It is safe
// for concurrent use without locking because nothing mutates it after
// construction.
type Dataset struct {
	records []model.FireRecord
}

// NewDataset copies records into a new dataset.
func NewDataset(records []model.FireRecord) *Dataset {
	cp := make([]model.FireRecord, len(records))
	copy(cp, records)
	return &Dataset{records: cp}
}

// Len returns the number of records. A nil dataset is empty.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

// Records returns a copy of all records.
func (d *Dataset) Records() []model.FireRecord {
	if d == nil {
		return nil
	}
	cp := make([]model.FireRecord, len(d.records))
	copy(cp, d.records)
	return cp
}

// Within returns every record at most radiusKm from center, nearest first.
// Ties keep dataset order.
func (d *Dataset) Within(center model.Location, radiusKm float64) []Candidate {
	if d == nil || radiusKm < 0 {
		return nil
	}
	span := geo.LatSpan(radiusKm)
	var out []Candidate
	for _, rec := range d.records {
		dLat := rec.Location.Lat - center.Lat
		if dLat > span || dLat < -span {
			continue
		}
		dist := geo.DistanceKm(center, rec.Location)
		if dist <= radiusKm {
			out = append(out, Candidate{Record: rec, DistanceKm: dist})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceKm < out[j].DistanceKm
	})
	return out
}
