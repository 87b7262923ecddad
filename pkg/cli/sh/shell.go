package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/robo-console/pkg/config"
	"github.com/robotalks/robo-console/pkg/link"
	"github.com/robotalks/robo-console/pkg/telemetry"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool
	// Timeout bounds each command round trip.
	Timeout time.Duration

	Shell   *ishell.Shell
	Config  *config.Config
	Session *Session

	heartbeats int32
}

// Session is an open link to a device.
type Session struct {
	URL    string
	Conn   io.ReadWriteCloser
	Client *Client
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "

	// DefaultTimeout is the default Shell.Timeout.
	DefaultTimeout = 2 * time.Second
	// DefaultMonitorDuration is how long monitor runs without an argument.
	DefaultMonitorDuration = 10 * time.Second
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&ConnectCmd,
		&DisconnectCmd,
		&SendCmd,
		&LEDCmd,
		&StatusCmd,
		&DeviceHelpCmd,
		&HeartbeatsCmd,
		&MonitorCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print responses in JSON.")
	LEDCmd.AddCmd(&LEDOnCmd)
	LEDCmd.AddCmd(&LEDOffCmd)
	LEDCmd.AddCmd(&LEDStatusCmd)
}

// New creates a new shell.
func New(conf *config.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Timeout:     DefaultTimeout,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

func (s *Shell) context() (context.Context, context.CancelFunc) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(context.Background(), timeout)
}

// Connect dials the device link and waits for its prompt.
func (s *Shell) Connect(url string) error {
	ctx, cancel := s.context()
	defer cancel()
	conn, err := link.Dial(ctx, url, s.Config.LinkOptions())
	if err != nil {
		return err
	}
	if err := s.Attach(ctx, url, conn); err != nil {
		conn.Close()
		return err
	}
	if s.Shell != nil {
		s.Shell.SetPrompt(url + " > ")
	}
	return nil
}

// Attach starts a session on an established link.
func (s *Shell) Attach(ctx context.Context, url string, conn io.ReadWriteCloser) error {
	client := NewClient(conn)
	client.OnHeartbeat = s.heartbeat
	wait := s.Timeout / 2
	if wait <= 0 {
		wait = DefaultTimeout / 2
	}
	if err := client.Sync(ctx, wait); err != nil {
		return fmt.Errorf("%s: %v", url, err)
	}
	s.Disconnect()
	s.Session = &Session{URL: url, Conn: conn, Client: client}
	return nil
}

// Disconnect closes the current session.
func (s *Shell) Disconnect() {
	if s.Session != nil {
		s.Session.Conn.Close()
		s.Session = nil
		if s.Shell != nil {
			s.Shell.SetPrompt(unconnectedPrompt)
		}
	}
}

// Exec sends a command line to the device and returns the response.
func (s *Shell) Exec(line string) ([]string, error) {
	if s.Session == nil {
		return nil, fmt.Errorf("not connected")
	}
	ctx, cancel := s.context()
	defer cancel()
	return s.Session.Client.Do(ctx, line)
}

// ShowHeartbeats enables or disables printing heartbeat lines.
func (s *Shell) ShowHeartbeats(en bool) {
	var val int32
	if en {
		val = 1
	}
	atomic.StoreInt32(&s.heartbeats, val)
}

func (s *Shell) heartbeat(line string) {
	if atomic.LoadInt32(&s.heartbeats) != 0 && s.Shell != nil {
		s.Shell.Println(line)
	}
}

// Monitor prints telemetry events from the broker for dur.
func (s *Shell) Monitor(dur time.Duration, fn func(telemetry.Event)) error {
	if s.Config.MQTTURL == "" {
		return fmt.Errorf("MQTT broker URL not configured")
	}
	q, err := telemetry.NewQueueFromURL(s.Config.MQTTURL)
	if err != nil {
		return err
	}
	token := q.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return err
	}
	defer q.Close()
	ctx, cancel := context.WithTimeout(context.Background(), dur)
	defer cancel()
	return telemetry.Monitor(ctx, q, "+/+", fn)
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect && s.Config.Link != "" {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Config.Link)
		}
		if err := s.Connect(s.Config.Link); err != nil {
			log.Fatalf("connect %q failed: %v", s.Config.Link, err)
		}
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// DoLine sends line to the device and prints the response.
func DoLine(c *ishell.Context, line string) {
	s := ShellFrom(c)
	lines, err := s.Exec(line)
	if err != nil {
		c.Err(err)
		return
	}
	if s.OutputJSON {
		if lines == nil {
			lines = []string{}
		}
		out, err := json.Marshal(lines)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	for _, l := range lines {
		c.Println(l)
	}
}

func lineCmd(line string) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		DoLine(c, line)
	}
}

var (
	// ConnectCmd connects a device link.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[URL]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			url := s.Config.Link
			if len(c.Args) > 0 {
				url = c.Args[0]
			}
			if err := s.Connect(url); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd closes the device link.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// SendCmd sends raw text as one line.
	SendCmd = ishell.Cmd{
		Name: "send",
		Help: "TEXT...",
		Func: func(c *ishell.Context) {
			DoLine(c, strings.Join(c.Args, " "))
		},
	}

	// LEDCmd groups the LED commands.
	LEDCmd = ishell.Cmd{
		Name: "led",
		Help: "on|off|status",
		Func: func(c *ishell.Context) {
			c.Err(fmt.Errorf("usage: led on|off|status"))
		},
	}

	// LEDOnCmd turns the LED on.
	LEDOnCmd = ishell.Cmd{Name: "on", Func: lineCmd("led on")}
	// LEDOffCmd turns the LED off.
	LEDOffCmd = ishell.Cmd{Name: "off", Func: lineCmd("led off")}
	// LEDStatusCmd queries the LED.
	LEDStatusCmd = ishell.Cmd{Name: "status", Func: lineCmd("led status")}

	// StatusCmd queries the LED.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"st"},
		Func:    lineCmd("status"),
	}

	// DeviceHelpCmd shows the device command list.
	DeviceHelpCmd = ishell.Cmd{
		Name: "device-help",
		Func: lineCmd("help"),
	}

	// HeartbeatsCmd toggles printing heartbeat lines.
	HeartbeatsCmd = ishell.Cmd{
		Name:    "heartbeats",
		Aliases: []string{"hb"},
		Help:    "on|off",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 || (c.Args[0] != "on" && c.Args[0] != "off") {
				c.Err(fmt.Errorf("usage: heartbeats on|off"))
				return
			}
			ShellFrom(c).ShowHeartbeats(c.Args[0] == "on")
		},
	}

	// MonitorCmd prints telemetry events.
	MonitorCmd = ishell.Cmd{
		Name:    "monitor",
		Aliases: []string{"mon"},
		Help:    "[SECONDS]",
		Func: func(c *ishell.Context) {
			dur := DefaultMonitorDuration
			if len(c.Args) > 0 {
				secs, err := strconv.Atoi(c.Args[0])
				if err != nil || secs <= 0 {
					c.Err(fmt.Errorf("invalid duration %q", c.Args[0]))
					return
				}
				dur = time.Duration(secs) * time.Second
			}
			err := ShellFrom(c).Monitor(dur, func(ev telemetry.Event) {
				c.Println(ev.String())
			})
			if err != nil {
				c.Err(err)
			}
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(config.MustLoad()).WithAutoConnect(true).Run(flag.Args()...)
}
