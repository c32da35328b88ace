package rowmap

// Row maps column names to tagged scalar values. Source rows are treated as
// immutable once read; in-flight target rows are built up by merging.
type Row map[string]Value

// Clone returns a shallow copy safe to mutate independently.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Get returns the value for col, or a null Value when the column is absent.
func (r Row) Get(col string) Value {
	if v, ok := r[col]; ok {
		return v
	}
	return Null()
}

// Has reports whether col is present, regardless of its value.
func (r Row) Has(col string) bool {
	_, ok := r[col]
	return ok
}
