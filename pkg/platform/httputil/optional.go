package httputil

import "encoding/json"

// Optional distinguishes a JSON field that is absent from one sent as null.
// Set is true whenever the field appeared in the body; Value is nil for null.
type Optional[T any] struct {
	Set   bool
	Value *T
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// Null reports an explicit null.
func (o Optional[T]) Null() bool { return o.Set && o.Value == nil }
