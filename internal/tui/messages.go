package tui

// AddRowMsg appends a step row. A row with an existing key is left as is.
type AddRowMsg struct {
	Key  string
	Name string
}

// RowUpdateMsg changes the status and/or detail of a row. Empty fields are
// left unchanged.
type RowUpdateMsg struct {
	Key    string
	Status string
	Detail string
}

// WorkDoneMsg signals that all background work has completed.
type WorkDoneMsg struct{}

// ErrorMsg signals a fatal error; the program quits.
type ErrorMsg struct {
	Err error
}
