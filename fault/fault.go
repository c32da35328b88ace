// Package fault defines the recoverable failure kinds raised while a source
// row is transformed. They are returned as error values so the surrounding
// row loop can inspect the kind and continue with the next candidate.
package fault

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// KindMandatoryField: a source field required for unconditional mapping
	// to a target table is null or absent. The whole (source row, target
	// table) pair is skipped.
	KindMandatoryField Kind = iota
	// KindOriginalDataField: a source field needed by a single fan-out rule
	// is null or absent. Only that rule's candidate row is skipped.
	KindOriginalDataField
	// KindNotNullColumn: an assembled target row is missing a NOT-NULL
	// column. The candidate row is dropped before queueing.
	KindNotNullColumn
)

// Fault carries the failure kind and the column that triggered it.
type Fault struct {
	Kind   Kind
	Column string
}

func (f *Fault) Error() string {
	switch f.Kind {
	case KindMandatoryField:
		return fmt.Sprintf("Mandatory field '%s' is missing", f.Column)
	case KindOriginalDataField:
		return fmt.Sprintf("Original data field '%s' is missing", f.Column)
	default:
		return fmt.Sprintf("NOT NULL field '%s' is missing", f.Column)
	}
}

func MandatoryFieldMissing(column string) *Fault {
	return &Fault{Kind: KindMandatoryField, Column: column}
}

func OriginalDataFieldMissing(column string) *Fault {
	return &Fault{Kind: KindOriginalDataField, Column: column}
}

func NotNullColumnMissing(column string) *Fault {
	return &Fault{Kind: KindNotNullColumn, Column: column}
}

// As unwraps err into a *Fault when it carries one.
func As(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
