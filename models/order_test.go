package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimingTableCurrentStep(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name      string
		phases    []string
		wantStep  int
		wantLabel string
	}{
		{
			name:      "fresh order",
			phases:    []string{PhaseOrderReceived},
			wantStep:  1,
			wantLabel: PhaseLabel(PhaseOrderReceived),
		},
		{
			name:      "assigned",
			phases:    []string{PhaseOrderReceived, PhaseAssignedToManufacturer},
			wantStep:  2,
			wantLabel: PhaseLabel(PhaseAssignedToManufacturer),
		},
		{
			name:      "in production",
			phases:    []string{PhaseOrderReceived, PhaseAssignedToManufacturer, PhaseStartedManufacturing},
			wantStep:  3,
			wantLabel: PhaseLabel(PhaseStartedManufacturing),
		},
		{
			name: "finalized",
			phases: []string{
				PhaseOrderReceived, PhaseAssignedToManufacturer,
				PhaseStartedManufacturing, PhaseProduced, PhaseReadyToTake,
			},
			wantStep:  5,
			wantLabel: PhaseLabel(PhaseReadyToTake),
		},
		{
			name:      "empty table defaults to step one",
			phases:    nil,
			wantStep:  1,
			wantLabel: PhaseLabel(PhaseOrderReceived),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := TimingTable{}
			for _, p := range tt.phases {
				table[p] = TimingEntry{UserID: 1, Timestamp: now, Status: PhaseLabel(p)}
			}

			step, label := table.CurrentStep()
			assert.Equal(t, tt.wantStep, step)
			assert.Equal(t, tt.wantLabel, label)
		})
	}
}

func TestTimingTableWithDoesNotMutateOriginal(t *testing.T) {
	original := TimingTable{
		PhaseOrderReceived: NewTimingEntry(1, PhaseOrderReceived),
	}

	updated := original.With(PhaseAssignedToManufacturer, NewTimingEntry(2, PhaseAssignedToManufacturer))

	assert.False(t, original.Has(PhaseAssignedToManufacturer))
	assert.True(t, updated.Has(PhaseAssignedToManufacturer))
	assert.True(t, updated.Has(PhaseOrderReceived))
}

func TestTimingTableScanValueRoundTrip(t *testing.T) {
	table := TimingTable{
		PhaseOrderReceived:          NewTimingEntry(1, PhaseOrderReceived),
		PhaseAssignedToManufacturer: NewTimingEntry(7, PhaseAssignedToManufacturer),
	}

	value, err := table.Value()
	assert.NoError(t, err)

	var decoded TimingTable
	assert.NoError(t, decoded.Scan(value))

	assert.Len(t, decoded, 2)
	assert.Equal(t, uint(7), decoded[PhaseAssignedToManufacturer].UserID)
	step, _ := decoded.CurrentStep()
	assert.Equal(t, 2, step)
}

func TestUintListContains(t *testing.T) {
	list := UintList{3, 5, 8}

	assert.True(t, list.Contains(5))
	assert.False(t, list.Contains(4))
	assert.False(t, UintList{}.Contains(1))
}

func TestOrderHelpers(t *testing.T) {
	manufacturerID := uint(9)
	order := Order{
		OrderID:        "0a1b2c3d-4e5f-6789-abcd-ef0123456789",
		ManufacturerID: &manufacturerID,
	}

	assert.True(t, order.IsAssigned())
	assert.True(t, order.AssignedTo(9))
	assert.False(t, order.AssignedTo(10))
	assert.Equal(t, "0a1b2c3d", order.ShortID())

	unassigned := Order{}
	assert.False(t, unassigned.IsAssigned())
	assert.False(t, unassigned.AssignedTo(9))
}

func TestOrderDetailRoundTrip(t *testing.T) {
	detail := OrderDetail{
		Material:      "PLA",
		Brand:         "Creality",
		Color:         "black",
		LayerHeight:   0.2,
		Infill:        20,
		BottomTexture: "smooth",
		NozzleSize:    0.4,
	}

	value, err := detail.Value()
	assert.NoError(t, err)

	var decoded OrderDetail
	assert.NoError(t, decoded.Scan(value))
	assert.Equal(t, detail, decoded)
}
