package reconcile

import (
	"errors"
	"strings"

	"github.com/samber/lo"

	"github.com/anicoll/nest-integration/internal/pkg/model"
)

// ErrStructural matches every Anomaly.
var ErrStructural = errors.New("structural anomaly")

const (
	ReasonNoStructure        = "no structure defined"
	ReasonMultipleStructures = "multiple structures unsupported"
	ReasonMissingShared      = "missing shared record for device"
)

const devicePrefix = "device."

type ActionKind int

const (
	ActionCreate ActionKind = iota
	ActionUpdate
	ActionAnomaly
)

func (k ActionKind) String() string {
	switch k {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionAnomaly:
		return "anomaly"
	default:
		return "unknown"
	}
}

// Anomaly is a snapshot that does not have the expected shape. A fatal anomaly
// ends the poll cycle; a non-fatal one concerns a single device.
type Anomaly struct {
	Reason   string
	DeviceID string
	Fatal    bool
}

func (a *Anomaly) Error() string {
	if a.DeviceID != "" {
		return a.Reason + ": " + a.DeviceID
	}
	return a.Reason
}

func (a *Anomaly) Is(target error) bool {
	return target == ErrStructural
}

// DeviceAction is what a snapshot asks of one local device. Shared and Info are
// set for create and update; Anomaly is set for anomalies.
type DeviceAction struct {
	Kind     ActionKind
	DeviceID string
	Shared   model.SharedState
	Info     *model.DeviceInfo
	Anomaly  *Anomaly
}

// Fatal reports whether the action aborts the remaining reconciliation.
func (a DeviceAction) Fatal() bool {
	return a.Kind == ActionAnomaly && a.Anomaly != nil && a.Anomaly.Fatal
}

// LocalID strips the optional "device." prefix from an upstream device id.
func LocalID(id string) string {
	return strings.TrimPrefix(id, devicePrefix)
}

// Reconcile classifies every device of the snapshot's single structure as a
// create or an update against known. Devices keep the structure's order. A
// snapshot with zero or several structures yields one fatal anomaly and nothing
// else.
func Reconcile(snapshot *model.StatusSnapshot, known map[string]struct{}) []DeviceAction {
	if snapshot == nil || len(snapshot.Structures) == 0 {
		return []DeviceAction{fatal(ReasonNoStructure)}
	}
	if len(snapshot.Structures) > 1 {
		return []DeviceAction{fatal(ReasonMultipleStructures)}
	}
	structure := lo.Values(snapshot.Structures)[0]

	actions := make([]DeviceAction, 0, len(structure.DeviceIDs))
	for _, rawID := range structure.DeviceIDs {
		id := LocalID(rawID)
		shared, ok := snapshot.Shared[id]
		if !ok {
			actions = append(actions, DeviceAction{
				Kind:     ActionAnomaly,
				DeviceID: id,
				Anomaly:  &Anomaly{Reason: ReasonMissingShared, DeviceID: id},
			})
			continue
		}

		action := DeviceAction{
			Kind:     ActionCreate,
			DeviceID: id,
			Shared:   shared,
		}
		if info, ok := snapshot.Devices[id]; ok {
			action.Info = &info
		}
		if _, ok := known[id]; ok {
			action.Kind = ActionUpdate
		}
		actions = append(actions, action)
	}
	return actions
}

// KnownSet builds the membership set Reconcile expects.
func KnownSet(ids []string) map[string]struct{} {
	return lo.SliceToMap(ids, func(id string) (string, struct{}) {
		return id, struct{}{}
	})
}

func fatal(reason string) DeviceAction {
	return DeviceAction{
		Kind:    ActionAnomaly,
		Anomaly: &Anomaly{Reason: reason, Fatal: true},
	}
}
