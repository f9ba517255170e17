package domain

// ValidationError is one violated rule on one field.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationErrors collects every violated rule for a record, so callers
// can render them field by field instead of receiving one opaque failure.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v *ValidationErrors) Error() string {
	return "validation error"
}

func (v *ValidationErrors) add(field, code, message string) {
	v.Errors = append(v.Errors, ValidationError{Field: field, Code: code, Message: message})
}

func (v *ValidationErrors) orNil() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v
}
