package assistant

// Field is a three-state optional string: absent (zero value), explicitly
// cleared (present and empty), or set to a value. Modeling this as a tagged
// variant keeps "no change" distinguishable from "clear the field".
type Field struct {
	present bool
	value   string
}

// SetField returns a present field carrying value. An empty value means
// "explicitly clear".
func SetField(value string) Field {
	return Field{present: true, value: value}
}

// ClearField returns a present field that clears the target.
func ClearField() Field {
	return Field{present: true}
}

// Present reports whether the field was supplied at all.
func (f Field) Present() bool {
	return f.present
}

// Value returns the supplied value; empty when absent or clearing.
func (f Field) Value() string {
	return f.value
}

// ptr returns the field's value as a patch pointer, nil when absent.
func (f Field) ptr() *string {
	if !f.present {
		return nil
	}
	v := f.value
	return &v
}
