package telemetry

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/robotalks/robo-console/pkg/hal"
)

// Publisher is the publishing half of Queue.
type Publisher interface {
	PubWith(topic string, payload []byte, qos byte, retain bool) paho.Token
}

// DefaultBacklog is the number of events buffered before dropping.
const DefaultBacklog = 64

// Reporter publishes device events without blocking the caller.
type Reporter struct {
	Device string
	Meta   map[string]string
	// Queue is set when the Reporter owns the broker connection.
	Queue *Queue
	Now   func() time.Time

	pub     Publisher
	events  chan Event
	dropped uint64
}

// NewReporter creates a Reporter connected to brokerURL.
// The broker clears the retained meta of the device when the
// connection is lost.
func NewReporter(brokerURL, device string, meta map[string]string) (*Reporter, error) {
	opts, prefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(prefix+device+"/meta", nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("console:" + device)
	}
	q := NewQueue(opts, prefix)
	r := NewReporterWith(q, device)
	r.Queue, r.Meta = q, meta
	q.OnConnect = func(*Queue) { r.publishMeta() }
	return r, nil
}

// NewReporterWith creates a Reporter publishing through pub.
func NewReporterWith(pub Publisher, device string) *Reporter {
	return &Reporter{
		Device: device,
		Now:    time.Now,
		pub:    pub,
		events: make(chan Event, DefaultBacklog),
	}
}

// Dropped returns the number of events discarded on a full backlog.
func (r *Reporter) Dropped() uint64 {
	return atomic.LoadUint64(&r.dropped)
}

func (r *Reporter) emit(ev Event) {
	ev.Device, ev.At = r.Device, r.Now()
	select {
	case r.events <- ev:
	default:
		atomic.AddUint64(&r.dropped, 1)
	}
}

// Heartbeat records a heartbeat. It never blocks.
func (r *Reporter) Heartbeat(seq uint8) {
	r.emit(Event{Kind: KindHeartbeat, Seq: seq})
}

type reportingOutput struct {
	hal.Output
	r *Reporter
}

func (o *reportingOutput) Set(high bool) {
	o.Output.Set(high)
	o.r.emit(Event{Kind: KindOutput, On: high})
}

// WrapOutput returns an Output reporting every Set.
func (r *Reporter) WrapOutput(out hal.Output) hal.Output {
	return &reportingOutput{Output: out, r: r}
}

func (r *Reporter) metaTopic() string {
	return r.Device + "/meta"
}

func (r *Reporter) publishMeta() {
	meta := map[string]string{"device": r.Device}
	for k, v := range r.Meta {
		meta[k] = v
	}
	payload, err := json.Marshal(meta)
	if err != nil {
		panic(err)
	}
	r.pub.PubWith(r.metaTopic(), payload, 1, true)
}

// Run implements framework.Runnable.
func (r *Reporter) Run(ctx context.Context) error {
	if r.Queue != nil {
		token := r.Queue.Connect()
		token.Wait()
		if err := token.Error(); err != nil {
			return err
		}
		defer r.Queue.Close()
	} else {
		// queues publish meta from OnConnect
		r.publishMeta()
	}
	for {
		select {
		case ev := <-r.events:
			payload, err := ev.Encode()
			if err != nil {
				glog.Errorf("encode %s event: %v", ev.Kind, err)
				continue
			}
			r.pub.PubWith(ev.Topic(), payload, 0, false)
		case <-ctx.Done():
			r.pub.PubWith(r.metaTopic(), nil, 1, true).WaitTimeout(time.Second)
			return nil
		}
	}
}

// Monitor subscribes pattern and calls fn with every decoded event until
// ctx is done. Meta topics are skipped.
func Monitor(ctx context.Context, q *Queue, pattern string, fn func(Event)) error {
	sub := q.Sub(pattern, func(topic string, payload []byte) {
		if MatchTopic(topic, "+/meta") {
			return
		}
		ev, err := Decode(payload)
		if err != nil {
			glog.V(2).Infof("skip %q: %v", topic, err)
			return
		}
		fn(ev)
	})
	defer sub.Close()
	if sub.Token != nil {
		sub.Token.Wait()
		if err := sub.Token.Error(); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return nil
}
