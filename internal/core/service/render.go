package service

import (
	"fmt"
	"strconv"
	"time"

	"schedcard/internal/config"
	"schedcard/internal/core/domain"

	"github.com/carlmjohnson/versioninfo"
)

var dayLabels = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// requiredRoleOrder fixes the order missing roles are reported in.
var requiredRoleOrder = [5]string{"start_time", "end_time", "days", "power", "switch"}

// RenderInput carries everything the renderer reads. BuildCardView is a pure
// function of it.
type RenderInput struct {
	Card     config.CardConfig
	Names    config.EntityNames
	Snapshot domain.Snapshot
	Focus    domain.FocusState
	// Durations holds the persisted per-direction duration preference.
	Durations map[domain.Direction]int
	// DraggedKw holds uncommitted slider positions overriding the setpoint.
	DraggedKw map[domain.Direction]float64
	Now       time.Time
}

func ControlID(dir domain.Direction, name string) string {
	return fmt.Sprintf("%s-%s", dir, name)
}

// BuildCardView produces the declarative view tree. Sections render and fail
// independently: a section missing required entities degrades to an inline
// error without affecting its sibling.
func BuildCardView(in RenderInput) domain.CardView {
	view := domain.CardView{
		Title:   "Battery schedule",
		Version: versioninfo.Short(),
	}
	mode := in.Card.ResolvedMode()
	if mode.HasCharge() {
		view.Sections = append(view.Sections, buildSection(in, domain.DirectionCharge))
	}
	if mode.HasDischarge() {
		view.Sections = append(view.Sections, buildSection(in, domain.DirectionDischarge))
	}
	return view
}

func buildSection(in RenderInput, dir domain.Direction) domain.SectionView {
	section := domain.SectionView{Direction: dir}

	required := in.Names.Required(dir)
	var missing []string
	for _, role := range requiredRoleOrder {
		if !in.Snapshot.Has(required[role]) {
			missing = append(missing, role)
		}
	}
	if len(missing) > 0 {
		section.Error = &domain.SectionError{MissingRoles: missing}
		return section
	}

	sw := in.Snapshot[in.Names.Switch(dir)]
	pending := sw.PendingWrite()
	active := sw.IsOn()

	switch {
	case pending:
		section.Status = domain.StatusPending
	case active:
		section.Status = domain.StatusActive
	default:
		section.Status = domain.StatusInactive
	}

	// current power prefers the dedicated sensor over the setpoint
	powerEnt := in.Snapshot[in.Names.Power(dir)]
	currentValue := powerEnt.Value
	if sensor, ok := in.Snapshot.Get(in.Names.PowerSensor(dir)); ok {
		currentValue = sensor.Value
	}
	section.CurrentPowerKw = StorageValueKw(dir, currentValue, in.Card.MaxOutputKw)

	section.StartTime = timeField(in, ControlID(dir, "start"), in.Snapshot[in.Names.Start(dir)].Value)
	endValue := in.Snapshot[in.Names.End(dir)].Value
	if !ValidClock(endValue) {
		endValue = "00:00"
	}
	section.EndTime = timeField(in, ControlID(dir, "end"), endValue)

	sliderKw := StorageValueKw(dir, powerEnt.Value, in.Card.MaxOutputKw)
	if dragged, ok := in.DraggedKw[dir]; ok {
		sliderKw = dragged
	}
	section.Slider = domain.SliderView{
		ControlID: ControlID(dir, "power"),
		Kw:        sliderKw,
		MaxKw:     sliderMaxKw(in, dir),
		StepKw:    0.5,
		Disabled:  pending,
		Focused:   in.Focus.ControlID == ControlID(dir, "power"),
	}

	mask := 0
	if v, err := strconv.Atoi(in.Snapshot[in.Names.Days(dir)].Value); err == nil {
		mask = v & 0x7f
	}
	for i := 0; i <= 6; i++ {
		section.Days = append(section.Days, domain.DayCheckboxView{
			ControlID: ControlID(dir, fmt.Sprintf("day-%d", i)),
			Label:     dayLabels[i],
			Bit:       i,
			Checked:   mask&(1<<i) != 0,
		})
	}

	duration := in.Durations[dir]
	if duration <= 0 {
		duration = DefaultDurationMinutes
	}
	section.DurationMinutes = duration
	section.ProjectedEnd = EndTime(CurrentTime(in.Now), duration, in.Now)

	enableLabel := "Enable"
	if active {
		enableLabel = "Extend"
	}
	section.EnableButton = domain.ButtonView{
		ControlID: ControlID(dir, "enable"),
		Label:     enableLabel,
		Disabled:  pending,
	}
	section.DisableButton = domain.ButtonView{
		ControlID: ControlID(dir, "disable"),
		Label:     "Disable",
		Disabled:  !active || pending,
	}
	return section
}

func timeField(in RenderInput, controlID, value string) domain.TimeFieldView {
	field := domain.TimeFieldView{
		ControlID: controlID,
		Value:     value,
		Display:   Clock12h(value),
	}
	// focus restore: re-mark focus and selection when the control survives
	// the tree rebuild
	if in.Focus.ControlID == controlID {
		field.Focused = true
		field.SelectionStart = in.Focus.SelectionStart
		field.SelectionEnd = in.Focus.SelectionEnd
	}
	return field
}

func sliderMaxKw(in RenderInput, dir domain.Direction) float64 {
	maxKw := in.Card.MaxOutputKw
	if dir != domain.DirectionCharge {
		return maxKw
	}
	limit, ok := in.Snapshot.Get(in.Names.ChargePowerLimit)
	if !ok {
		return maxKw
	}
	pct, err := strconv.ParseFloat(limit.Value, 64)
	if err != nil || pct <= 0 {
		return maxKw
	}
	capKw := pct / 100 * in.Card.MaxOutputKw
	if capKw < maxKw {
		return capKw
	}
	return maxKw
}
