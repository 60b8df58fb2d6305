package logging

// Structured field keys shared by every package.
const (
	FieldComponent = "component"
	// FieldEventType classifies a line for filtering, e.g. "reach_timeout".
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to try next.
	FieldErrorHint = "error_hint"
	// FieldImpact states what a warning means for the result.
	FieldImpact    = "impact"

	// FieldKey holds a grid key in its "v1,v2" form.
	FieldKey     = "key"
	FieldLibrary = "library"
	FieldControl = "control"

	FieldProgressPercent = "progress_percent"
)
