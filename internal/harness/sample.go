// Package harness queues evaluation units and dispatches them to a bounded pool of workers.
package harness

import (
	"fmt"

	"go-eval-harness/internal/model"
)

// ConstructSamples turns the records of one dataset into evaluation units.
// Archived records are dropped; the rest keep their relative order. Each unit's
// rubric is chosen by whether the record carries an expected output.
func ConstructSamples(dataset string, records []model.Record) []model.Unit {
	units := make([]model.Unit, 0, len(records))
	for i, rec := range records {
		if rec.Archived() {
			continue
		}
		attachments := rec.Attachments
		if attachments == nil {
			attachments = []interface{}{}
		}
		units = append(units, model.Unit{
			ID:          fmt.Sprintf("%s#%d", dataset, i),
			Dataset:     dataset,
			Index:       i,
			Item:        rec,
			Attachments: attachments,
			Criteria:    model.CriteriaFor(rec),
		})
	}
	return units
}
