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

// SafeOrderings keeps the orderings whose field is a key of allowed, renamed to the column it maps to.
// Unknown fields are dropped.
func SafeOrderings(orderings []DBOrdering, allowed map[string]string) []DBOrdering {
	safe := make([]DBOrdering, 0, len(orderings))
	for _, ord := range orderings {
		if col, ok := allowed[ord.Field]; ok {
			safe = append(safe, DBOrdering{Field: col, Ascending: ord.Ascending})
		}
	}
	return safe
}
