package evtfix

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOffsetPlan(t *testing.T) {
	plan := GetOffsetPlan(EventRange{Min: 5, Max: 7})

	want := []RenameStep{
		{"evt5_data", "evt0_data"},
		{"evt5_header", "evt0_header"},
		{"evt6_data", "evt1_data"},
		{"evt6_header", "evt1_header"},
		{"evt7_data", "evt2_data"},
		{"evt7_header", "evt2_header"},
	}
	assert.Equal(t, GetGroup, plan.Group)
	assert.Equal(t, want, plan.Steps)
	assert.NoError(t, plan.Validate())
}

func TestGetOffsetPlan_ZeroMinIsEmpty(t *testing.T) {
	assert.Equal(t, 0, GetOffsetPlan(EventRange{Min: 0, Max: 100}).Len())
}

func TestFribShiftPlan(t *testing.T) {
	plan := FribShiftPlan(2)

	want := []RenameStep{
		{"evt1_1903", "evt0_1903"},
		{"evt1_header", "evt0_header"},
		{"evt2_1903", "evt1_1903"},
		{"evt2_header", "evt1_header"},
		{"evt3_1903", "evt2_1903"},
		{"evt3_header", "evt2_header"},
	}
	assert.Equal(t, FribEvents, plan.Group)
	assert.Equal(t, want, plan.Steps)
	assert.NoError(t, plan.Validate())
}

func TestPlanValidate_Boundaries(t *testing.T) {
	tests := []struct {
		name string
		plan Plan
	}{
		{"shift of a single event", FribShiftPlan(0)},
		{"offset of a single event", GetOffsetPlan(EventRange{Min: 9, Max: 9})},
		{"offset overlapping its targets", GetOffsetPlan(EventRange{Min: 1, Max: 50})},
		{"large shift", FribShiftPlan(5000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, tt.plan.Validate())
		})
	}
}

func TestPlanValidate_RejectsDescendingOrder(t *testing.T) {
	tests := []struct {
		name string
		plan Plan
	}{
		{"shift", FribShiftPlan(3)},
		{"offset", GetOffsetPlan(EventRange{Min: 1, Max: 4})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reversed := Plan{Group: tt.plan.Group}
			for i := len(tt.plan.Steps) - 1; i >= 0; i-- {
				reversed.Steps = append(reversed.Steps, tt.plan.Steps[i])
			}

			err := reversed.Validate()
			var orderErr *OrderingError
			require.True(t, errors.As(err, &orderErr), "expected OrderingError, got %v", err)
		})
	}
}

func TestPlanValidate_RejectsDuplicateTargets(t *testing.T) {
	plan := Plan{Steps: []RenameStep{
		{"evt3_data", "evt0_data"},
		{"evt4_data", "evt0_data"},
	}}
	err := plan.Validate()
	var orderErr *OrderingError
	require.True(t, errors.As(err, &orderErr))
	assert.Equal(t, 1, orderErr.Step)
}

func TestPlanValidate_AllowsChainThroughVacatedName(t *testing.T) {
	plan := Plan{Steps: []RenameStep{
		{"evt1_1903", "evt0_1903"},
		{"evt2_1903", "evt1_1903"},
	}}
	assert.NoError(t, plan.Validate())
}

func TestPlanApply_NoIntermediateCollision(t *testing.T) {
	// Apply through the accessor, which refuses to rename onto an existing key
	tests := []struct {
		name    string
		fixture runFixture
		plan    Plan
		group   string
		want    []string
	}{
		{
			name:    "offset with event range 0",
			fixture: runFixture{eventMin: 3, eventMax: 3, getEvents: []int64{3}, noFrib: true},
			plan:    GetOffsetPlan(EventRange{Min: 3, Max: 3}),
			group:   GetGroup,
			want:    []string{"evt0_data", "evt0_header"},
		},
		{
			name:    "offset by one",
			fixture: runFixture{eventMin: 1, eventMax: 4, getEvents: eventSpan(1, 4), noFrib: true},
			plan:    GetOffsetPlan(EventRange{Min: 1, Max: 4}),
			group:   GetGroup,
			want:    keySet(eventSpan(0, 3), GetDataKey, GetHeaderKey),
		},
		{
			name:    "shift with event range 0",
			fixture: runFixture{eventMin: 0, eventMax: 0, getEvents: []int64{0}, fribEvents: []int64{1}},
			plan:    FribShiftPlan(0),
			group:   FribEvents,
			want:    []string{"evt0_1903", "evt0_header"},
		},
		{
			name:    "shift",
			fixture: runFixture{eventMin: 0, eventMax: 4, getEvents: eventSpan(0, 4), fribEvents: eventSpan(1, 5)},
			plan:    FribShiftPlan(4),
			group:   FribEvents,
			want:    keySet(eventSpan(0, 4), FribDataKey, FribHeaderKey),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.fixture.build(t, t.TempDir())

			c, err := Open(path, ReadWrite)
			require.NoError(t, err)
			g, err := c.Group(tt.group)
			require.NoError(t, err)

			require.NoError(t, tt.plan.Simulate(g))
			n, err := tt.plan.Apply(g, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.plan.Len(), n)
			assert.Equal(t, tt.want, g.Keys())
			require.NoError(t, c.Close())
		})
	}
}

func TestPlanApply_DescendingShiftCollides(t *testing.T) {
	path := runFixture{
		eventMin: 0, eventMax: 2,
		getEvents:  eventSpan(0, 2),
		fribEvents: eventSpan(1, 3),
	}.build(t, t.TempDir())

	forward := FribShiftPlan(2)
	reversed := Plan{Group: forward.Group}
	for i := len(forward.Steps) - 1; i >= 0; i-- {
		reversed.Steps = append(reversed.Steps, forward.Steps[i])
	}

	c, err := Open(path, ReadWrite)
	require.NoError(t, err)
	defer c.Close()
	g, err := c.Group(FribEvents)
	require.NoError(t, err)

	var collision *KeyCollisionError
	require.True(t, errors.As(reversed.Simulate(g), &collision))

	n, err := reversed.Apply(g, nil)
	require.True(t, errors.As(err, &collision), "expected KeyCollisionError, got %v", err)
	assert.Equal(t, 0, n)
	assert.Equal(t, "evt2_header", collision.Key)
}
