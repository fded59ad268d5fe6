// Package schedule holds pure helpers over schedule records.
package schedule

import "github.com/tandemapp/tandem/internal/model"

// Latest returns the most recently updated schedule from records, or
// nil when records is empty. The newest record fully replaces older
// ones; nothing is merged. When timestamps tie, the record with the
// highest ID wins so the choice is reproducible.
func Latest(records []model.Schedule) *model.Schedule {
	if len(records) == 0 {
		return nil
	}

	best := &records[0]
	for i := 1; i < len(records); i++ {
		r := &records[i]
		if r.UpdatedAt.After(best.UpdatedAt) {
			best = r
			continue
		}
		if r.UpdatedAt.Equal(best.UpdatedAt) && r.ID > best.ID {
			best = r
		}
	}
	return best
}
