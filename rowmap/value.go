package rowmap

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Kind tags the scalar stored in a Value.
type Kind int

const (
	KindNull Kind = iota
	KindText
	KindNumber
	KindTime
)

// Value is a tagged scalar as it travels between the database and the
// transformation pipeline: null, text, number or timestamp.
type Value struct {
	Kind   Kind
	Text   string
	Number float64
	Time   time.Time
}

func Null() Value {
	return Value{Kind: KindNull}
}

func Text(s string) Value {
	return Value{Kind: KindText, Text: s}
}

func Number(n float64) Value {
	return Value{Kind: KindNumber, Number: n}
}

func Time(t time.Time) Value {
	return Value{Kind: KindTime, Time: t}
}

// FromDriver converts a value as returned by the sql driver into a Value.
// Unrecognized types are carried as their string rendering so a row scan
// never fails outright.
func FromDriver(v interface{}) Value {
	switch val := v.(type) {
	case nil:
		return Null()
	case string:
		return Text(val)
	case []byte:
		return Text(string(val))
	case float64:
		return Number(val)
	case float32:
		return Number(float64(val))
	case int64:
		return Number(float64(val))
	case int32:
		return Number(float64(val))
	case int:
		return Number(float64(val))
	case bool:
		if val {
			return Number(1)
		}
		return Number(0)
	case time.Time:
		return Time(val)
	default:
		return Text(fmt.Sprintf("%v", val))
	}
}

func (v Value) IsNull() bool {
	return v.Kind == KindNull
}

// IsMissing reports whether the value counts as absent for NOT-NULL
// validation. Empty strings and numeric zero are treated as missing, the
// same falsy test the registry loader has always applied; a legitimate 0
// fails validation too.
func (v Value) IsMissing() bool {
	switch v.Kind {
	case KindNull:
		return true
	case KindText:
		return v.Text == ""
	case KindNumber:
		return v.Number == 0
	default:
		return false
	}
}

// Interface returns the driver-friendly representation used for inserts.
func (v Value) Interface() interface{} {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindNumber:
		return v.Number
	case KindTime:
		return v.Time
	default:
		return nil
	}
}

// String renders the value for log and error messages.
func (v Value) String() string {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case KindTime:
		return v.Time.Format("2006-01-02 15:04:05")
	default:
		return "None"
	}
}

// MarshalJSON serializes timestamps as 'YYYY-MM-DD HH:MM:SS', matching the
// format stored in the exceptions audit table.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindText:
		return json.Marshal(v.Text)
	case KindNumber:
		return json.Marshal(v.Number)
	case KindTime:
		return json.Marshal(v.Time.Format("2006-01-02 15:04:05"))
	default:
		return []byte("null"), nil
	}
}
