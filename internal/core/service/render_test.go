package service

import (
	"testing"

	"schedcard/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderInput(snap domain.Snapshot) RenderInput {
	return RenderInput{
		Card:     testCard(),
		Names:    testNames(),
		Snapshot: snap,
		Now:      testNow(),
	}
}

func chargeSection(t *testing.T, view domain.CardView) domain.SectionView {
	t.Helper()
	s, ok := view.Section(domain.DirectionCharge)
	require.True(t, ok)
	return s
}

func TestBuildCardViewSectionsByMode(t *testing.T) {
	in := renderInput(fullSnapshot(testNames()))

	in.Card.Mode = "both"
	assert.Len(t, BuildCardView(in).Sections, 2)

	in.Card.Mode = "charge"
	view := BuildCardView(in)
	require.Len(t, view.Sections, 1)
	assert.Equal(t, domain.DirectionCharge, view.Sections[0].Direction)

	in.Card.Mode = "discharge"
	view = BuildCardView(in)
	require.Len(t, view.Sections, 1)
	assert.Equal(t, domain.DirectionDischarge, view.Sections[0].Direction)
}

func TestMissingEntitiesDegradeOneSection(t *testing.T) {
	names := testNames()
	snap := fullSnapshot(names)
	delete(snap, names.ChargeSwitch)
	delete(snap, names.ChargeDays)

	view := BuildCardView(renderInput(snap))
	require.Len(t, view.Sections, 2)

	charge := chargeSection(t, view)
	require.NotNil(t, charge.Error)
	assert.Equal(t, []string{"days", "switch"}, charge.Error.MissingRoles)

	// the sibling renders normally
	discharge, ok := view.Section(domain.DirectionDischarge)
	require.True(t, ok)
	assert.Nil(t, discharge.Error)
	assert.Equal(t, domain.StatusInactive, discharge.Status)
}

func TestSectionStatus(t *testing.T) {
	names := testNames()

	snap := fullSnapshot(names)
	view := BuildCardView(renderInput(snap))
	assert.Equal(t, domain.StatusInactive, chargeSection(t, view).Status)

	snap[names.ChargeSwitch] = entity(names.ChargeSwitch, domain.SwitchOn)
	view = BuildCardView(renderInput(snap))
	assert.Equal(t, domain.StatusActive, chargeSection(t, view).Status)

	snap[names.ChargeSwitch] = pendingEntity(names.ChargeSwitch, domain.SwitchOn)
	view = BuildCardView(renderInput(snap))
	assert.Equal(t, domain.StatusPending, chargeSection(t, view).Status)
}

func TestPendingWriteLocksControls(t *testing.T) {
	names := testNames()
	snap := fullSnapshot(names)
	snap[names.ChargeSwitch] = pendingEntity(names.ChargeSwitch, domain.SwitchOff)

	charge := chargeSection(t, BuildCardView(renderInput(snap)))
	assert.True(t, charge.Slider.Disabled)
	assert.True(t, charge.EnableButton.Disabled)
	assert.True(t, charge.DisableButton.Disabled)
}

func TestCurrentPowerPrefersSensor(t *testing.T) {
	names := testNames()

	// no sensor entity in state: fall back to the setpoint
	snap := fullSnapshot(names)
	charge := chargeSection(t, BuildCardView(renderInput(snap)))
	assert.Equal(t, 2.5, charge.CurrentPowerKw)

	snap[names.ChargePowerSensor] = entity(names.ChargePowerSensor, "200")
	charge = chargeSection(t, BuildCardView(renderInput(snap)))
	assert.Equal(t, 1.0, charge.CurrentPowerKw)
}

func TestSliderValueAndDraggedOverride(t *testing.T) {
	names := testNames()
	snap := fullSnapshot(names)

	in := renderInput(snap)
	charge := chargeSection(t, BuildCardView(in))
	assert.Equal(t, 2.5, charge.Slider.Kw)
	assert.Equal(t, 5.0, charge.Slider.MaxKw)
	assert.Equal(t, 0.5, charge.Slider.StepKw)

	in.DraggedKw = map[domain.Direction]float64{domain.DirectionCharge: 4.0}
	charge = chargeSection(t, BuildCardView(in))
	assert.Equal(t, 4.0, charge.Slider.Kw)
}

func TestChargeSliderMaxCappedByPowerLimit(t *testing.T) {
	names := testNames()
	snap := fullSnapshot(names)
	snap[names.ChargePowerLimit] = entity(names.ChargePowerLimit, "60")

	view := BuildCardView(renderInput(snap))
	assert.Equal(t, 3.0, chargeSection(t, view).Slider.MaxKw)

	// the limit only applies to the charge slider
	discharge, ok := view.Section(domain.DirectionDischarge)
	require.True(t, ok)
	assert.Equal(t, 5.0, discharge.Slider.MaxKw)
}

func TestEndTimeDisplay(t *testing.T) {
	names := testNames()
	snap := fullSnapshot(names)
	snap[names.ChargeEnd] = entity(names.ChargeEnd, "19:30")

	charge := chargeSection(t, BuildCardView(renderInput(snap)))
	assert.Equal(t, "19:30", charge.EndTime.Value)
	assert.Equal(t, "7:30 PM", charge.EndTime.Display)

	// malformed end values render as midnight
	snap[names.ChargeEnd] = entity(names.ChargeEnd, "nonsense")
	charge = chargeSection(t, BuildCardView(renderInput(snap)))
	assert.Equal(t, "00:00", charge.EndTime.Value)
	assert.Equal(t, "12:00 AM", charge.EndTime.Display)
}

func TestDayCheckboxesFromMask(t *testing.T) {
	names := testNames()
	snap := fullSnapshot(names)
	snap[names.ChargeDays] = entity(names.ChargeDays, "5") // Mon + Wed

	charge := chargeSection(t, BuildCardView(renderInput(snap)))
	require.Len(t, charge.Days, 7)
	for i, day := range charge.Days {
		assert.Equal(t, i, day.Bit)
		assert.Equal(t, i == 0 || i == 2, day.Checked, "bit %d", i)
	}
	assert.Equal(t, "Mon", charge.Days[0].Label)
	assert.Equal(t, "Sun", charge.Days[6].Label)
}

func TestDurationAndProjectedEnd(t *testing.T) {
	names := testNames()
	in := renderInput(fullSnapshot(names))

	// default duration applies with no stored preference
	charge := chargeSection(t, BuildCardView(in))
	assert.Equal(t, DefaultDurationMinutes, charge.DurationMinutes)
	assert.Equal(t, "10:30", charge.ProjectedEnd)

	in.Durations = map[domain.Direction]int{domain.DirectionCharge: 90}
	charge = chargeSection(t, BuildCardView(in))
	assert.Equal(t, 90, charge.DurationMinutes)
	assert.Equal(t, "11:30", charge.ProjectedEnd)
}

func TestEnableButtonBecomesExtend(t *testing.T) {
	names := testNames()
	snap := fullSnapshot(names)

	charge := chargeSection(t, BuildCardView(renderInput(snap)))
	assert.Equal(t, "Enable", charge.EnableButton.Label)
	assert.True(t, charge.DisableButton.Disabled)

	snap[names.ChargeSwitch] = entity(names.ChargeSwitch, domain.SwitchOn)
	charge = chargeSection(t, BuildCardView(renderInput(snap)))
	assert.Equal(t, "Extend", charge.EnableButton.Label)
	assert.False(t, charge.DisableButton.Disabled)
}

func TestFocusRestore(t *testing.T) {
	names := testNames()
	in := renderInput(fullSnapshot(names))
	in.Focus = domain.FocusState{
		ControlID:      ControlID(domain.DirectionCharge, "end"),
		Kind:           domain.ControlTime,
		SelectionStart: 3,
		SelectionEnd:   5,
	}

	charge := chargeSection(t, BuildCardView(in))
	assert.True(t, charge.EndTime.Focused)
	assert.Equal(t, 3, charge.EndTime.SelectionStart)
	assert.Equal(t, 5, charge.EndTime.SelectionEnd)
	assert.False(t, charge.StartTime.Focused)
}
