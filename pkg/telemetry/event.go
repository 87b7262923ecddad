package telemetry

import (
	"fmt"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes"
	structpb "github.com/golang/protobuf/ptypes/struct"
)

// Kind classifies an Event.
type Kind string

// Event kinds.
const (
	KindHeartbeat Kind = "heartbeat"
	KindOutput    Kind = "output"
)

// Event is a device observation published to the broker.
type Event struct {
	Device string
	Kind   Kind
	// Seq is the heartbeat digit, only meaningful for KindHeartbeat.
	Seq uint8
	// On is the output level, only meaningful for KindOutput.
	On bool
	At time.Time
}

// Topic returns the topic the event is published to.
func (e Event) Topic() string {
	return e.Device + "/" + string(e.Kind)
}

func (e Event) String() string {
	switch e.Kind {
	case KindHeartbeat:
		return fmt.Sprintf("%s %s #%d %s", e.Device, e.Kind, e.Seq, e.At.Format(time.RFC3339))
	case KindOutput:
		state := "OFF"
		if e.On {
			state = "ON"
		}
		return fmt.Sprintf("%s %s %s %s", e.Device, e.Kind, state, e.At.Format(time.RFC3339))
	}
	return fmt.Sprintf("%s %s %s", e.Device, e.Kind, e.At.Format(time.RFC3339))
}

func stringValue(s string) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_StringValue{StringValue: s}}
}

// Encode serializes the event as a protobuf Struct.
func (e Event) Encode() ([]byte, error) {
	at, err := ptypes.TimestampProto(e.At)
	if err != nil {
		return nil, err
	}
	s := &structpb.Struct{Fields: map[string]*structpb.Value{
		"device": stringValue(e.Device),
		"kind":   stringValue(string(e.Kind)),
		"seq":    {Kind: &structpb.Value_NumberValue{NumberValue: float64(e.Seq)}},
		"on":     {Kind: &structpb.Value_BoolValue{BoolValue: e.On}},
		"at":     stringValue(ptypes.TimestampString(at)),
	}}
	return proto.Marshal(s)
}

// Decode parses an event produced by Encode.
func Decode(payload []byte) (ev Event, err error) {
	var s structpb.Struct
	if err = proto.Unmarshal(payload, &s); err != nil {
		return
	}
	fields := s.GetFields()
	ev.Device = fields["device"].GetStringValue()
	ev.Kind = Kind(fields["kind"].GetStringValue())
	if ev.Device == "" || ev.Kind == "" {
		return ev, fmt.Errorf("event without device or kind")
	}
	ev.Seq = uint8(fields["seq"].GetNumberValue())
	ev.On = fields["on"].GetBoolValue()
	if at := fields["at"].GetStringValue(); at != "" {
		if ev.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return ev, fmt.Errorf("invalid event time %q: %v", at, err)
		}
	}
	return
}
