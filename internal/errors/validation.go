package errors

import "strings"

// ValidationBuilder accumulates missing or invalid fields and builds one error.
type ValidationBuilder struct {
	fields []string
}

// NewValidationBuilder creates a new validation builder
func NewValidationBuilder() *ValidationBuilder {
	return &ValidationBuilder{}
}

// RequiredField records a missing required field.
func (vb *ValidationBuilder) RequiredField(field string) *ValidationBuilder {
	vb.fields = append(vb.fields, field+" is required")
	return vb
}

// Invalid records an invalid field with a reason.
func (vb *ValidationBuilder) Invalid(field, reason string) *ValidationBuilder {
	vb.fields = append(vb.fields, field+": "+reason)
	return vb
}

// HasErrors reports whether anything was recorded.
func (vb *ValidationBuilder) HasErrors() bool {
	return len(vb.fields) > 0
}

// Build returns nil when nothing was recorded.
func (vb *ValidationBuilder) Build() error {
	if !vb.HasErrors() {
		return nil
	}
	return New(CodeInvalidArgument, strings.Join(vb.fields, "; ")).WithMeta("fields", vb.fields)
}
