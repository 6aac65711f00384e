package annuity

// Plan is the set of writes that brings persisted annuities in line with a generated timeline.
type Plan struct {
	Keep       []*Annuity // persisted rows whose year is still in range, paid status untouched
	Reschedule []*Annuity // subset of Keep whose DueDate moved; already carries the new date
	Delete     []*Annuity // persisted rows whose year left the range
	Insert     []Draft    // target years with no persisted row
}

// Reconcile diffs persisted rows against the target drafts by year.
// Retained rows keep their own paid status even when the draft disagrees, but take the
// draft's due date so they follow a moved start day.
func Reconcile(persisted []*Annuity, target []Draft) Plan {
	wanted := make(map[int]Draft, len(target))
	for _, d := range target {
		wanted[d.Year] = d
	}

	var plan Plan
	seen := make(map[int]bool, len(persisted))
	for _, row := range persisted {
		d, ok := wanted[row.Year]
		if ok && !seen[row.Year] {
			seen[row.Year] = true
			plan.Keep = append(plan.Keep, row)
			if !row.DueDate.Equal(d.DueDate) {
				row.DueDate = d.DueDate
				plan.Reschedule = append(plan.Reschedule, row)
			}
			continue
		}
		plan.Delete = append(plan.Delete, row)
	}

	for _, d := range target {
		if !seen[d.Year] {
			plan.Insert = append(plan.Insert, d)
		}
	}
	return plan
}

// Changed reports whether applying the plan writes anything.
func (p Plan) Changed() bool {
	return len(p.Delete) > 0 || len(p.Insert) > 0 || len(p.Reschedule) > 0
}

// DeleteIDs returns the ids of the rows to remove.
func (p Plan) DeleteIDs() []int64 {
	ids := make([]int64, 0, len(p.Delete))
	for _, row := range p.Delete {
		ids = append(ids, row.ID)
	}
	return ids
}
