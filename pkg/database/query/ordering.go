package query

// Ordering is the direction records are returned in, by record id.
type Ordering uint8

const (
	Ascending Ordering = iota
	Descending
)

func (o Ordering) String() string {
	if o == Descending {
		return "desc"
	}
	return "asc"
}

// after is the comparison selecting records past a cursor in this direction.
func (o Ordering) after() string {
	if o == Descending {
		return "<"
	}
	return ">"
}
