package core

import "strings"

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

// OrderByClause renders the orderings whose field is in allowed, falling back to def when none is.
// Unknown fields are dropped so that user input never reaches the query text.
func OrderByClause(orderings []DBOrdering, allowed map[string]string, def string) string {
	parts := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		col, ok := allowed[ord.Field]
		if !ok {
			continue
		}
		parts = append(parts, DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	if len(parts) == 0 {
		return def
	}
	return strings.Join(parts, ", ")
}
