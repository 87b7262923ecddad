package console

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/robo-console/pkg/hal/sim"
)

type feedResult struct {
	ev   LineEvent
	line string
}

func feedAll(a *Accumulator, in string) []feedResult {
	results := make([]feedResult, 0, len(in))
	for i := 0; i < len(in); i++ {
		ev, line := a.Feed(in[i])
		results = append(results, feedResult{ev: ev, line: line})
	}
	return results
}

func events(results []feedResult) []LineEvent {
	evs := make([]LineEvent, len(results))
	for n, r := range results {
		evs[n] = r.ev
	}
	return evs
}

func TestAccumulator(t *testing.T) {
	testCases := []struct {
		name    string
		in      string
		events  []LineEvent
		echo    string
		pending string
	}{
		{
			name:    "plain bytes",
			in:      "led",
			events:  []LineEvent{Consumed, Consumed, Consumed},
			echo:    "led",
			pending: "led",
		},
		{
			name:    "backspace on empty line",
			in:      "\b",
			events:  []LineEvent{Ignored},
			echo:    "",
			pending: "",
		},
		{
			name:    "delete on empty line",
			in:      "\x7f",
			events:  []LineEvent{Ignored},
			echo:    "",
			pending: "",
		},
		{
			name:    "backspace removes last byte",
			in:      "abc\b",
			events:  []LineEvent{Consumed, Consumed, Consumed, Consumed},
			echo:    "abc\b \b",
			pending: "ab",
		},
		{
			name:    "delete removes last byte",
			in:      "ab\x7f\x7f\x7f",
			events:  []LineEvent{Consumed, Consumed, Consumed, Consumed, Ignored},
			echo:    "ab\b \b\b \b",
			pending: "",
		},
		{
			name:    "control bytes are data",
			in:      "\t\x01",
			events:  []LineEvent{Consumed, Consumed},
			echo:    "\t\x01",
			pending: "\t\x01",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tr := sim.NewTransport()
			a := NewAccumulator(tr, 0)
			require.Equal(t, tc.events, events(feedAll(a, tc.in)))
			require.Equal(t, tc.echo, tr.Take())
			require.Equal(t, tc.pending, a.Pending())
			require.Equal(t, len(tc.pending), a.Len())
		})
	}
}

func TestAccumulatorTerminators(t *testing.T) {
	for _, term := range []string{"\r", "\n"} {
		tr := sim.NewTransport()
		a := NewAccumulator(tr, 0)
		results := feedAll(a, "led on"+term)
		last := results[len(results)-1]
		require.Equal(t, LineReady, last.ev)
		require.Equal(t, "led on", last.line)
		require.Equal(t, "led on\r\n", tr.Take())
		require.Zero(t, a.Len())
	}
}

func TestAccumulatorCRLFYieldsEmptyLine(t *testing.T) {
	tr := sim.NewTransport()
	a := NewAccumulator(tr, 0)
	results := feedAll(a, "status\r\n")
	require.Equal(t, feedResult{ev: LineReady, line: "status"}, results[6])
	require.Equal(t, feedResult{ev: LineReady, line: ""}, results[7])
	require.Equal(t, "status\r\n\r\n", tr.Take())
}

func TestAccumulatorOverflowDropsSilently(t *testing.T) {
	tr := sim.NewTransport()
	a := NewAccumulator(tr, 0)
	require.Equal(t, DefaultCapacity, a.Capacity())

	in := strings.Repeat("a", 20) + strings.Repeat("b", 20)
	evs := events(feedAll(a, in))
	for n, ev := range evs {
		if n < DefaultCapacity-1 {
			require.Equal(t, Consumed, ev, "byte %d", n)
		} else {
			require.Equal(t, Ignored, ev, "byte %d", n)
		}
	}
	expect := in[:DefaultCapacity-1]
	require.Equal(t, expect, a.Pending())
	require.Equal(t, expect, tr.Take())

	ev, line := a.Feed(CR)
	require.Equal(t, LineReady, ev)
	require.Equal(t, expect, line)
}

func TestAccumulatorBackspaceAfterOverflow(t *testing.T) {
	tr := sim.NewTransport()
	a := NewAccumulator(tr, 4)
	feedAll(a, "abcde")
	require.Equal(t, "abc", a.Pending())
	ev, _ := a.Feed(BS)
	require.Equal(t, Consumed, ev)
	ev, _ = a.Feed('x')
	require.Equal(t, Consumed, ev)
	require.Equal(t, "abx", a.Pending())
}

func TestAccumulatorEditRoundTrip(t *testing.T) {
	tr := sim.NewTransport()
	a := NewAccumulator(tr, 0)
	feedAll(a, "led o")
	before := a.Pending()
	tr.Take()

	feedAll(a, "xyz\b\b\b")
	require.Equal(t, before, a.Pending())
	// each echoed byte is erased on the display by BS SP BS
	require.Equal(t, "xyz\b \b\b \b\b \b", tr.Take())
}

func TestAccumulatorCapacityFallback(t *testing.T) {
	tr := sim.NewTransport()
	require.Equal(t, DefaultCapacity, NewAccumulator(tr, 1).Capacity())
	require.Equal(t, 8, NewAccumulator(tr, 8).Capacity())
}

func TestAccumulatorReset(t *testing.T) {
	tr := sim.NewTransport()
	a := NewAccumulator(tr, 0)
	feedAll(a, "abc")
	tr.Take()
	a.Reset()
	require.Zero(t, a.Len())
	require.Empty(t, tr.Take())
}

func TestLineEventString(t *testing.T) {
	require.Equal(t, "Consumed", Consumed.String())
	require.Equal(t, "LineReady", LineReady.String())
	require.Equal(t, "Ignored", Ignored.String())
	require.Equal(t, "LineEvent(?)", LineEvent(9).String())
}
