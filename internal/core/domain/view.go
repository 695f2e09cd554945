package domain

// ControlKind classifies a focusable control in the rendered panel.
type ControlKind string

const (
	ControlTime     ControlKind = "time"
	ControlRange    ControlKind = "range"
	ControlCheckbox ControlKind = "checkbox"
	ControlButton   ControlKind = "button"
	ControlNumber   ControlKind = "number"
)

// FocusState tracks the control the user is currently interacting with,
// plus the text-selection bounds to restore after a tree rebuild.
type FocusState struct {
	ControlID      string      `json:"control_id"`
	Kind           ControlKind `json:"kind"`
	SelectionStart int         `json:"selection_start"`
	SelectionEnd   int         `json:"selection_end"`
}

// BlocksRefresh reports whether an in-progress interaction must be protected
// from a DOM-style tree replacement. Only time-entry and range-slider
// controls carry transient input that a rebuild would destroy.
func (f FocusState) BlocksRefresh() bool {
	return f.ControlID != "" && (f.Kind == ControlTime || f.Kind == ControlRange)
}

// SectionStatus is the textual schedule state of one direction.
type SectionStatus string

const (
	StatusActive   SectionStatus = "active"
	StatusInactive SectionStatus = "inactive"
	// StatusPending replaces active/inactive while a switch write has not
	// been confirmed by the device.
	StatusPending SectionStatus = "pending"
)

// CardView is the declarative render output: a pure function result of
// (config, entity names, snapshot, focus, durations).
type CardView struct {
	Title    string        `json:"title"`
	Version  string        `json:"version"`
	Sections []SectionView `json:"sections"`
}

type SectionView struct {
	Direction Direction     `json:"direction"`
	Error     *SectionError `json:"error,omitempty"`

	Status         SectionStatus `json:"status"`
	CurrentPowerKw float64       `json:"current_power_kw"`

	StartTime TimeFieldView `json:"start_time"`
	EndTime   TimeFieldView `json:"end_time"`

	Slider SliderView `json:"slider"`

	Days []DayCheckboxView `json:"days"`

	DurationMinutes int    `json:"duration_minutes"`
	ProjectedEnd    string `json:"projected_end"`

	EnableButton  ButtonView `json:"enable_button"`
	DisableButton ButtonView `json:"disable_button"`
}

// SectionError is the inline degraded rendering of a section whose required
// entities are absent from the snapshot.
type SectionError struct {
	MissingRoles []string `json:"missing_roles"`
}

type TimeFieldView struct {
	ControlID      string `json:"control_id"`
	Value          string `json:"value"`
	Display        string `json:"display"`
	Focused        bool   `json:"focused"`
	SelectionStart int    `json:"selection_start,omitempty"`
	SelectionEnd   int    `json:"selection_end,omitempty"`
}

type SliderView struct {
	ControlID string  `json:"control_id"`
	Kw        float64 `json:"kw"`
	MaxKw     float64 `json:"max_kw"`
	StepKw    float64 `json:"step_kw"`
	Disabled  bool    `json:"disabled"`
	Focused   bool    `json:"focused"`
}

type DayCheckboxView struct {
	ControlID string `json:"control_id"`
	Label     string `json:"label"`
	Bit       int    `json:"bit"`
	Checked   bool   `json:"checked"`
}

type ButtonView struct {
	ControlID string `json:"control_id"`
	Label     string `json:"label"`
	Disabled  bool   `json:"disabled"`
}

// Section returns the view of one direction, if rendered.
func (v CardView) Section(dir Direction) (SectionView, bool) {
	for _, s := range v.Sections {
		if s.Direction == dir {
			return s, true
		}
	}
	return SectionView{}, false
}
