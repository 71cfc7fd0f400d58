package thermostat

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anicoll/nest-integration/internal/pkg/model"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestRegistry(cmd *MockCommander, pub *MockPublisher) *Registry {
	r := NewRegistry(cmd, pub)
	r.now = func() time.Time { return fixedNow }
	return r
}

func values(vars []model.Variable) map[string]float64 {
	return lo.SliceToMap(vars, func(v model.Variable) (string, float64) {
		return v.Name, v.Value
	})
}

func TestApplyCreate(t *testing.T) {
	pub := &MockPublisher{}
	r := newTestRegistry(&MockCommander{}, pub)

	th, err := r.ApplyCreate(context.Background(), "A", model.SharedState{
		CurrentTemperatureC: 20.0,
		TargetTemperatureC:  21.0,
		DisplayName:         "Hallway",
	}, &model.DeviceInfo{CurrentVersion: "5.9"})
	require.NoError(t, err)

	assert.Equal(t, "A", th.ID())
	assert.Equal(t, "Hallway", th.Name())
	assert.True(t, th.Available())
	assert.Equal(t, fixedNow, th.LastCheckin())

	devices := pub.Devices()
	require.Len(t, devices, 1)
	assert.Equal(t, &model.Device{
		ID:                "A",
		Name:              "Hallway",
		Manufacturer:      "Nest",
		SoftwareVersion:   "5.9",
		PreferredVariable: VarIndoorTempF,
	}, devices[0])

	batches := pub.Batches()
	require.Len(t, batches, 1)
	assert.Equal(t, "A", batches[0].DeviceID)
	require.Len(t, batches[0].Variables, 4)
	assert.Equal(t, []string{VarIndoorTempC, VarIndoorTempF, VarTargetTempC, VarTargetTempF},
		lo.Map(batches[0].Variables, func(v model.Variable, _ int) string { return v.Name }))

	got := values(batches[0].Variables)
	assert.Equal(t, 20.0, got[VarIndoorTempC])
	assert.InDelta(t, 68.0, got[VarIndoorTempF], 1e-9)
	assert.Equal(t, 21.0, got[VarTargetTempC])
	assert.InDelta(t, 69.8, got[VarTargetTempF], 1e-9)

	masks := lo.SliceToMap(batches[0].Variables, func(v model.Variable) (string, model.VariableMask) {
		return v.Name, v.Mask
	})
	assert.Equal(t, model.ReadOnly, masks[VarIndoorTempC])
	assert.Equal(t, model.ReadOnly, masks[VarIndoorTempF])
	assert.Equal(t, model.ReadWrite, masks[VarTargetTempC])
	assert.Equal(t, model.ReadWrite, masks[VarTargetTempF])
}

func TestApplyCreate_DefaultName(t *testing.T) {
	tests := map[string]string{
		"absent": "",
		"blank":  "   ",
	}
	for name, displayName := range tests {
		t.Run(name, func(t *testing.T) {
			r := newTestRegistry(&MockCommander{}, &MockPublisher{})
			th, err := r.ApplyCreate(context.Background(), "B", model.SharedState{DisplayName: displayName}, nil)
			require.NoError(t, err)
			assert.Equal(t, DefaultName, th.Name())
			assert.Empty(t, th.Device().SoftwareVersion)
		})
	}
}

func TestApplyCreate_RegisterFailureKeepsDevice(t *testing.T) {
	pub := &MockPublisher{
		RegisterDeviceFunc: func(ctx context.Context, device *model.Device) error {
			return errors.New("broker down")
		},
	}
	r := newTestRegistry(&MockCommander{}, pub)

	_, err := r.ApplyCreate(context.Background(), "A", model.SharedState{}, nil)
	require.Error(t, err)

	_, err = r.Lookup("A")
	assert.NoError(t, err)
}

func TestApplyUpdate_PublishesOneBatch(t *testing.T) {
	pub := &MockPublisher{}
	r := newTestRegistry(&MockCommander{}, pub)
	th, err := r.ApplyCreate(context.Background(), "A", model.SharedState{CurrentTemperatureC: 20, TargetTemperatureC: 21}, nil)
	require.NoError(t, err)
	th.MarkUnavailable()
	assert.False(t, th.Available())

	later := fixedNow.Add(5 * time.Minute)
	th.now = func() time.Time { return later }
	require.NoError(t, th.ApplyUpdate(context.Background(), model.SharedState{CurrentTemperatureC: 25, TargetTemperatureC: 22}, nil))

	batches := pub.Batches()
	require.Len(t, batches, 2)
	last := batches[1]
	assert.Equal(t, later, last.Timestamp)
	got := values(last.Variables)
	assert.Len(t, got, 4)
	assert.Equal(t, 25.0, got[VarIndoorTempC])
	assert.InDelta(t, 77.0, got[VarIndoorTempF], 1e-9)
	assert.Equal(t, 22.0, got[VarTargetTempC])
	assert.InDelta(t, 71.6, got[VarTargetTempF], 1e-9)
	for _, v := range last.Variables {
		assert.Equal(t, later, v.UpdatedAt)
	}

	assert.True(t, th.Available())
	assert.Equal(t, later, th.LastCheckin())
}

func TestRequestWrite(t *testing.T) {
	tests := map[string]struct {
		variable  string
		raw       any
		wantSentC float64
		wantC     float64
		wantF     float64
	}{
		"fahrenheit string": {
			variable:  VarTargetTempF,
			raw:       "72",
			wantSentC: (72.0 - 32) * 5 / 9,
			wantC:     (72.0 - 32) * 5 / 9,
			wantF:     72,
		},
		"celsius float": {
			variable:  VarTargetTempC,
			raw:       22.5,
			wantSentC: 22.5,
			wantC:     22.5,
			wantF:     72.5,
		},
		"celsius int": {
			variable:  VarTargetTempC,
			raw:       20,
			wantSentC: 20,
			wantC:     20,
			wantF:     68,
		},
		"celsius padded string": {
			variable:  VarTargetTempC,
			raw:       " 19.5 ",
			wantSentC: 19.5,
			wantC:     19.5,
			wantF:     67.1,
		},
		"fahrenheit json number": {
			variable:  VarTargetTempF,
			raw:       json.Number("68"),
			wantSentC: 20,
			wantC:     20,
			wantF:     68,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			cmd := &MockCommander{}
			pub := &MockPublisher{}
			r := newTestRegistry(cmd, pub)
			th, err := r.ApplyCreate(context.Background(), "A", model.SharedState{CurrentTemperatureC: 20, TargetTemperatureC: 18}, nil)
			require.NoError(t, err)

			require.NoError(t, th.RequestWrite(context.Background(), tt.variable, tt.raw))

			calls := cmd.Calls()
			require.Len(t, calls, 1)
			assert.InDelta(t, tt.wantSentC, calls[0], 1e-9)

			c, _ := th.Variable(VarTargetTempC)
			f, _ := th.Variable(VarTargetTempF)
			assert.InDelta(t, tt.wantC, c.Value, 1e-9)
			assert.InDelta(t, tt.wantF, f.Value, 1e-9)

			batches := pub.Batches()
			require.Len(t, batches, 2)
			assert.ElementsMatch(t, []string{VarTargetTempC, VarTargetTempF},
				lo.Map(batches[1].Variables, func(v model.Variable, _ int) string { return v.Name }))

			indoor, _ := th.Variable(VarIndoorTempC)
			assert.Equal(t, 20.0, indoor.Value)
		})
	}
}

func TestRequestWrite_Rejected(t *testing.T) {
	tests := map[string]any{
		"text":      "abc",
		"empty":     "",
		"nil":       nil,
		"bool":      true,
		"nan":       math.NaN(),
		"infinity":  "Inf",
		"structure": struct{}{},
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			cmd := &MockCommander{}
			pub := &MockPublisher{}
			r := newTestRegistry(cmd, pub)
			th, err := r.ApplyCreate(context.Background(), "A", model.SharedState{TargetTemperatureC: 18}, nil)
			require.NoError(t, err)

			err = th.RequestWrite(context.Background(), VarTargetTempF, raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, VarTargetTempF, verr.Variable)

			assert.Empty(t, cmd.Calls())
			assert.Len(t, pub.Batches(), 1)
			c, _ := th.Variable(VarTargetTempC)
			assert.Equal(t, 18.0, c.Value)
		})
	}
}

func TestRequestWrite_IgnoresOtherVariables(t *testing.T) {
	cmd := &MockCommander{}
	r := newTestRegistry(cmd, &MockPublisher{})
	th, err := r.ApplyCreate(context.Background(), "A", model.SharedState{CurrentTemperatureC: 20}, nil)
	require.NoError(t, err)

	assert.NoError(t, th.RequestWrite(context.Background(), VarIndoorTempC, "abc"))
	assert.NoError(t, th.RequestWrite(context.Background(), "fanMode", 1))
	assert.Empty(t, cmd.Calls())
}

func TestRequestWrite_CommandFailureKeepsLocalState(t *testing.T) {
	sendErr := errors.New("503")
	cmd := &MockCommander{
		SetTargetTemperatureFunc: func(ctx context.Context, deviceID string, temperatureC float64) error {
			return sendErr
		},
	}
	pub := &MockPublisher{}
	r := newTestRegistry(cmd, pub)
	th, err := r.ApplyCreate(context.Background(), "A", model.SharedState{TargetTemperatureC: 18}, nil)
	require.NoError(t, err)

	err = th.RequestWrite(context.Background(), VarTargetTempC, 25)
	assert.ErrorIs(t, err, sendErr)
	c, _ := th.Variable(VarTargetTempC)
	assert.Equal(t, 18.0, c.Value)
	assert.Len(t, pub.Batches(), 1)
}

func TestRegistry_LookupAndKnownIDs(t *testing.T) {
	r := newTestRegistry(&MockCommander{}, &MockPublisher{})
	_, err := r.Lookup("A")
	assert.ErrorIs(t, err, ErrDeviceNotFound)

	for _, id := range []string{"B", "A", "C"} {
		_, err := r.ApplyCreate(context.Background(), id, model.SharedState{}, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"A", "B", "C"}, r.KnownIDs())
	assert.Len(t, r.All(), 3)

	th, err := r.Lookup("B")
	require.NoError(t, err)
	assert.Equal(t, "B", th.ID())

	again, err := r.ApplyCreate(context.Background(), "B", model.SharedState{CurrentTemperatureC: 30}, nil)
	require.NoError(t, err)
	assert.Same(t, th, again)
	v, _ := th.Variable(VarIndoorTempC)
	assert.Equal(t, 30.0, v.Value)

	r.MarkAllUnavailable()
	assert.False(t, th.Available())
}

func TestState(t *testing.T) {
	r := newTestRegistry(&MockCommander{}, &MockPublisher{})
	th, err := r.ApplyCreate(context.Background(), "A", model.SharedState{CurrentTemperatureC: 20, TargetTemperatureC: 21}, &model.DeviceInfo{CurrentVersion: "5.9"})
	require.NoError(t, err)

	state := th.State()
	assert.Equal(t, "A", state.ID)
	assert.Equal(t, DefaultName, state.Name)
	assert.Equal(t, Manufacturer, state.Manufacturer)
	assert.Equal(t, "5.9", state.SoftwareVersion)
	assert.True(t, state.Available)
	assert.Len(t, state.Variables, 4)
}
