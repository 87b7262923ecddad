package console

import "github.com/robotalks/robo-console/pkg/hal"

// Response texts, each terminated by CR LF.
const (
	HelpText    = "cmds: led on | led off | status | help\r\n"
	LEDOnText   = "[OK] LED ON\r\n"
	LEDOffText  = "[OK] LED OFF\r\n"
	StatusOn    = "[STATUS] LED=ON\r\n"
	StatusOff   = "[STATUS] LED=OFF\r\n"
	UnknownText = "[ERR] unknown. type 'help'\r\n"
)

// Action performs a command against the output and returns the response.
type Action func(out hal.Output) string

// Command pairs an exact command line with its action.
type Command struct {
	Line   string
	Action Action
}

// commands is the fixed command table. Lines are compared byte for byte.
var commands = [...]Command{
	{Line: "help", Action: help},
	{Line: "led on", Action: ledOn},
	{Line: "led off", Action: ledOff},
	{Line: "status", Action: status},
	{Line: "led status", Action: status},
}

// Commands returns a copy of the command table.
func Commands() []Command {
	table := make([]Command, len(commands))
	copy(table, commands[:])
	return table
}

func help(hal.Output) string {
	return HelpText
}

func ledOn(out hal.Output) string {
	out.Set(true)
	return LEDOnText
}

func ledOff(out hal.Output) string {
	out.Set(false)
	return LEDOffText
}

func status(out hal.Output) string {
	if out.Get() {
		return StatusOn
	}
	return StatusOff
}

// Dispatcher executes completed lines.
type Dispatcher struct {
	out    hal.Transport
	output hal.Output
}

// NewDispatcher creates a Dispatcher over the fixed command table.
func NewDispatcher(out hal.Transport, output hal.Output) *Dispatcher {
	return &Dispatcher{out: out, output: output}
}

// Lookup finds the command matching line exactly.
func (d *Dispatcher) Lookup(line string) (Command, bool) {
	for _, cmd := range commands {
		if cmd.Line == line {
			return cmd, true
		}
	}
	return Command{}, false
}

// Dispatch runs line and writes exactly one response,
// except for an empty line which is silently ignored.
func (d *Dispatcher) Dispatch(line string) {
	if line == "" {
		return
	}
	if cmd, ok := d.Lookup(line); ok {
		hal.WriteString(d.out, cmd.Action(d.output))
		return
	}
	hal.WriteString(d.out, UnknownText)
}
