package console

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/robo-console/pkg/hal"
	"github.com/robotalks/robo-console/pkg/hal/sim"
)

func TestDispatch(t *testing.T) {
	testCases := []struct {
		name     string
		initial  bool
		line     string
		response string
		final    bool
	}{
		{"help", false, "help", HelpText, false},
		{"led on", false, "led on", LEDOnText, true},
		{"led on when on", true, "led on", LEDOnText, true},
		{"led off", true, "led off", LEDOffText, false},
		{"status off", false, "status", StatusOff, false},
		{"status on", true, "status", StatusOn, true},
		{"led status off", false, "led status", StatusOff, false},
		{"led status on", true, "led status", StatusOn, true},
		{"empty", true, "", "", true},
		{"unknown", true, "bogus", UnknownText, true},
		{"case sensitive", false, "Help", UnknownText, false},
		{"no trimming", false, " help", UnknownText, false},
		{"trailing space", false, "led on ", UnknownText, false},
		{"no partial match", false, "led", UnknownText, false},
		{"double space", false, "led  on", UnknownText, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tr, pin := sim.NewTransport(), sim.NewPin()
			pin.Set(tc.initial)
			NewDispatcher(tr, pin).Dispatch(tc.line)
			require.Equal(t, tc.response, tr.Take())
			require.Equal(t, tc.final, pin.Get())
		})
	}
}

func TestDispatchStatusAliases(t *testing.T) {
	tr, pin := sim.NewTransport(), sim.NewPin()
	d := NewDispatcher(tr, pin)
	for _, level := range []bool{false, true, true, false} {
		pin.Set(level)
		d.Dispatch("status")
		a := tr.Take()
		d.Dispatch("led status")
		b := tr.Take()
		require.Equal(t, a, b)
	}
}

func TestDispatchReadsOutputFresh(t *testing.T) {
	tr, pin := sim.NewTransport(), sim.NewPin()
	d := NewDispatcher(tr, pin)
	d.Dispatch("led on")
	tr.Take()
	// level changed behind the console's back
	pin.Set(false)
	d.Dispatch("status")
	require.Equal(t, StatusOff, tr.Take())
}

func TestCommandTable(t *testing.T) {
	d := NewDispatcher(sim.NewTransport(), sim.NewPin())
	seen := make(map[string]bool)
	for _, cmd := range Commands() {
		require.False(t, seen[cmd.Line], "duplicate %q", cmd.Line)
		seen[cmd.Line] = true
		found, ok := d.Lookup(cmd.Line)
		require.True(t, ok)
		require.Equal(t, cmd.Line, found.Line)
	}
	_, ok := d.Lookup("")
	require.False(t, ok)
}

func TestCommandTableIsFixed(t *testing.T) {
	table := Commands()
	require.Len(t, table, 5)
	table[0] = Command{Line: "reboot", Action: func(hal.Output) string { return "rebooting\r\n" }}
	_ = append(table[:1], table[2:]...)

	tr, pin := sim.NewTransport(), sim.NewPin()
	d := NewDispatcher(tr, pin)
	d.Dispatch("reboot")
	require.Equal(t, UnknownText, tr.Take())
	d.Dispatch("help")
	require.Equal(t, HelpText, tr.Take())
	d.Dispatch("led on")
	require.Equal(t, LEDOnText, tr.Take())
	require.Len(t, Commands(), 5)
}
