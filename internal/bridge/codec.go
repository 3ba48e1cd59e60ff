package bridge

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/autobuy/internal/controller"
	"github.com/danielpatrickdp/autobuy/internal/orchestrator"
	"github.com/danielpatrickdp/autobuy/internal/prefs"
	"github.com/danielpatrickdp/autobuy/internal/tier"
)

// Messages are plain structpb objects. Field names are snake_case and
// timestamps are RFC 3339 strings, empty for the zero time.

// #region time
func encodeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// #endregion time

// #region field-access
func fieldBool(s *structpb.Struct, key string) (bool, bool, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return false, false, nil
	}
	b, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return false, true, fmt.Errorf("field %q: want bool", key)
	}
	return b.BoolValue, true, nil
}

func fieldNumber(s *structpb.Struct, key string) (int, error) {
	n, err := fieldInteger(s, key, math.MinInt32, math.MaxInt32)
	return int(n), err
}

// fieldInteger reads a whole number in [lo, hi]. A missing field is 0.
func fieldInteger(s *structpb.Struct, key string, lo, hi float64) (int64, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return 0, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("field %q: want number", key)
	}
	f := n.NumberValue
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("field %q: want integer, got %v", key, f)
	}
	if f < lo || f > hi {
		return 0, fmt.Errorf("field %q: %v out of range", key, f)
	}
	return int64(f), nil
}

func fieldString(s *structpb.Struct, key string) (string, bool, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return "", false, nil
	}
	str, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", true, fmt.Errorf("field %q: want string", key)
	}
	return str.StringValue, true, nil
}

// #endregion field-access

// #region snapshot
func encodeSnapshot(snap controller.Snapshot) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"resource_level":  structpb.NewNumberValue(float64(snap.ResourceLevel)),
		"surface_present": structpb.NewBoolValue(snap.SurfacePresent),
		"surface_kind":    structpb.NewStringValue(snap.SurfaceKind),
		"surface_handle":  structpb.NewNumberValue(float64(snap.SurfaceHandle)),
		"offline":         structpb.NewBoolValue(snap.Offline),
	}}
}

func decodeSnapshot(s *structpb.Struct) (controller.Snapshot, error) {
	var snap controller.Snapshot
	var err error
	if snap.ResourceLevel, err = fieldNumber(s, "resource_level"); err != nil {
		return snap, err
	}
	if snap.SurfacePresent, _, err = fieldBool(s, "surface_present"); err != nil {
		return snap, err
	}
	if snap.SurfaceKind, _, err = fieldString(s, "surface_kind"); err != nil {
		return snap, err
	}
	if snap.SurfaceHandle, err = fieldNumber(s, "surface_handle"); err != nil {
		return snap, err
	}
	if snap.Offline, _, err = fieldBool(s, "offline"); err != nil {
		return snap, err
	}
	return snap, nil
}

// #endregion snapshot

// #region effects
func encodeEffect(e controller.Effect) *structpb.Value {
	f := map[string]*structpb.Value{
		"kind": structpb.NewStringValue(string(e.Kind)),
	}
	switch e.Kind {
	case controller.EffectTrigger:
		f["command"] = structpb.NewStringValue(e.Command)
		f["tier"] = structpb.NewStringValue(string(e.Tier.ID))
	case controller.EffectInteract:
		f["tier"] = structpb.NewStringValue(string(e.Tier.ID))
		f["handle"] = structpb.NewNumberValue(float64(e.Handle))
		f["target"] = structpb.NewNumberValue(float64(e.Target))
		f["button"] = structpb.NewNumberValue(float64(e.Button))
		f["interaction"] = structpb.NewStringValue(string(e.Interaction))
	case controller.EffectNotify:
		f["notice"] = structpb.NewStringValue(string(e.Notice))
		f["message"] = structpb.NewStringValue(e.Message)
		if e.Notice == controller.NoticeSuccess {
			f["tier"] = structpb.NewStringValue(string(e.Tier.ID))
		}
	}
	return structpb.NewStructValue(&structpb.Struct{Fields: f})
}

func decodeEffect(s *structpb.Struct) (controller.Effect, error) {
	var e controller.Effect
	kind, _, err := fieldString(s, "kind")
	if err != nil {
		return e, err
	}
	e.Kind = controller.EffectKind(kind)

	if id, ok, err := fieldString(s, "tier"); err != nil {
		return e, err
	} else if ok {
		t, err := tier.Parse(id)
		if err != nil {
			return e, err
		}
		e.Tier = t
	}
	if e.Command, _, err = fieldString(s, "command"); err != nil {
		return e, err
	}
	if e.Handle, err = fieldNumber(s, "handle"); err != nil {
		return e, err
	}
	if e.Target, err = fieldNumber(s, "target"); err != nil {
		return e, err
	}
	if e.Button, err = fieldNumber(s, "button"); err != nil {
		return e, err
	}
	interaction, _, err := fieldString(s, "interaction")
	if err != nil {
		return e, err
	}
	e.Interaction = controller.InteractionKind(interaction)
	notice, _, err := fieldString(s, "notice")
	if err != nil {
		return e, err
	}
	e.Notice = controller.NoticeKind(notice)
	if e.Message, _, err = fieldString(s, "message"); err != nil {
		return e, err
	}
	return e, nil
}

// #endregion effects

// #region tick-reply

// TickReply is the decoded answer to a Tick call.
type TickReply struct {
	State   controller.State
	Effects []controller.Effect
	CycleID string
}

func encodeResult(r orchestrator.Result) *structpb.Struct {
	effects := make([]*structpb.Value, 0, len(r.Effects))
	for _, e := range r.Effects {
		effects = append(effects, encodeEffect(e))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"state":    structpb.NewStringValue(r.State.String()),
		"effects":  structpb.NewListValue(&structpb.ListValue{Values: effects}),
		"cycle_id": structpb.NewStringValue(r.CycleID),
	}}
}

func decodeResult(s *structpb.Struct) (TickReply, error) {
	var r TickReply
	name, _, err := fieldString(s, "state")
	if err != nil {
		return r, err
	}
	st, ok := controller.ParseState(name)
	if !ok {
		return r, fmt.Errorf("unknown state %q", name)
	}
	r.State = st
	if r.CycleID, _, err = fieldString(s, "cycle_id"); err != nil {
		return r, err
	}
	for i, v := range s.GetFields()["effects"].GetListValue().GetValues() {
		es := v.GetStructValue()
		if es == nil {
			return r, fmt.Errorf("effect %d: want object", i)
		}
		e, err := decodeEffect(es)
		if err != nil {
			return r, fmt.Errorf("effect %d: %w", i, err)
		}
		r.Effects = append(r.Effects, e)
	}
	return r, nil
}

// #endregion tick-reply

// #region status
func encodeStatus(st orchestrator.Status) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"state":            structpb.NewStringValue(st.State.String()),
		"state_entered_at": structpb.NewStringValue(encodeTime(st.StateEnteredAt)),
		"last_success_at":  structpb.NewStringValue(encodeTime(st.LastSuccessAt)),
		"enabled":          structpb.NewBoolValue(st.Enabled),
		"tier":             structpb.NewStringValue(string(st.Tier.ID)),
		"cycle_id":         structpb.NewStringValue(st.CycleID),
		"cycle_open":       structpb.NewBoolValue(st.CycleOpen),
		"ticks":            structpb.NewNumberValue(float64(st.Ticks)),
	}}
}

func decodeStatus(s *structpb.Struct) (orchestrator.Status, error) {
	var st orchestrator.Status
	name, _, err := fieldString(s, "state")
	if err != nil {
		return st, err
	}
	state, ok := controller.ParseState(name)
	if !ok {
		return st, fmt.Errorf("unknown state %q", name)
	}
	st.State = state

	for key, dst := range map[string]*time.Time{
		"state_entered_at": &st.StateEnteredAt,
		"last_success_at":  &st.LastSuccessAt,
	} {
		raw, _, err := fieldString(s, key)
		if err != nil {
			return st, err
		}
		if *dst, err = decodeTime(raw); err != nil {
			return st, fmt.Errorf("field %q: %w", key, err)
		}
	}

	if st.Enabled, _, err = fieldBool(s, "enabled"); err != nil {
		return st, err
	}
	id, _, err := fieldString(s, "tier")
	if err != nil {
		return st, err
	}
	if st.Tier, err = tier.Parse(id); err != nil {
		return st, err
	}
	if st.CycleID, _, err = fieldString(s, "cycle_id"); err != nil {
		return st, err
	}
	if st.CycleOpen, _, err = fieldBool(s, "cycle_open"); err != nil {
		return st, err
	}
	ticks, err := fieldInteger(s, "ticks", 0, 1<<53)
	if err != nil {
		return st, err
	}
	st.Ticks = uint64(ticks)
	return st, nil
}

// #endregion status

// #region preferences
func encodePreferences(p prefs.Preferences) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"enabled": structpb.NewBoolValue(p.Enabled),
		"tier":    structpb.NewStringValue(string(p.Tier)),
	}}
}

func decodePreferences(s *structpb.Struct) (prefs.Preferences, error) {
	var p prefs.Preferences
	var err error
	if p.Enabled, _, err = fieldBool(s, "enabled"); err != nil {
		return p, err
	}
	id, _, err := fieldString(s, "tier")
	if err != nil {
		return p, err
	}
	p.Tier = tier.ID(id)
	return p, nil
}

// #endregion preferences
