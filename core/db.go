package core

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// FilterOrderings drops orderings on fields that are not in `allowed`.
// Ordering fields end up in raw SQL, so they must always be filtered.
func FilterOrderings(ords []DBOrdering, allowed ...string) []DBOrdering {
	if len(ords) == 0 {
		return nil
	}
	known := make(map[string]struct{}, len(allowed))
	for _, f := range allowed {
		known[f] = struct{}{}
	}
	filtered := make([]DBOrdering, 0, len(ords))
	for _, ord := range ords {
		if _, ok := known[ord.Field]; ok {
			filtered = append(filtered, ord)
		}
	}
	return filtered
}
