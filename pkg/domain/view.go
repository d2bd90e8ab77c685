package domain

// View is the read model handed to the presentation layer after every call.
type View struct {
	RunID        string      `json:"run_id"`
	CurrentStage int         `json:"current_stage"`
	StageCount   int         `json:"stage_count"`
	Complete     bool        `json:"complete"`
	Stages       []StageView `json:"stages"`
}

// StageView describes one stage as seen from the pointer.
type StageView struct {
	Index   int          `json:"index"`
	Name    string       `json:"name"`
	Title   string       `json:"title"`
	Mode    DispatchMode `json:"mode"`
	State   StageState   `json:"state"`
	Current bool         `json:"current"`

	Input  map[string]any `json:"input,omitempty"`
	Output *StageOutput   `json:"output,omitempty"`

	// Set only while the stage is in flight.
	Token     string `json:"token,omitempty"`
	Polls     int    `json:"polls,omitempty"`
	LastError string `json:"last_error,omitempty"`
}

// Stage returns the view of stage i (1-based), or nil.
func (v View) Stage(i int) *StageView {
	if i < 1 || i > len(v.Stages) {
		return nil
	}
	return &v.Stages[i-1]
}
