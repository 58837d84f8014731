package domain

// redacted is what a Secret prints as.
const redacted = "[REDACTED]"

// Secret holds credential material such as OAuth tokens.
// It never renders its value through fmt, %v, or JSON so tokens cannot leak into logs.
// Use Reveal to obtain the plaintext for an outbound request.
type Secret string

// Reveal returns the plaintext value.
func (s Secret) Reveal() string {
	return string(s)
}

// IsEmpty returns true if no value is held.
func (s Secret) IsEmpty() bool {
	return s == ""
}

// String implements fmt.Stringer.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

// GoString implements fmt.GoStringer so %#v is redacted too.
func (s Secret) GoString() string {
	return s.String()
}

// MarshalJSON always emits the redacted placeholder.
func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}
