package sh

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/robo-console/pkg/config"
	"github.com/robotalks/robo-console/pkg/console"
	"github.com/robotalks/robo-console/pkg/telemetry"
)

func TestShellSession(t *testing.T) {
	r := newRig(t, console.Options{})
	s := &Shell{Config: config.NewConfig(), Timeout: time.Second}

	_, err := s.Exec("status")
	require.EqualError(t, err, "not connected")

	require.NoError(t, s.Attach(context.Background(), "pipe:", r.conn))
	require.Equal(t, "pipe:", s.Session.URL)

	resp, err := s.Exec("led on")
	require.NoError(t, err)
	require.Equal(t, []string{"[OK] LED ON"}, resp)
	require.True(t, r.pin.Get())

	resp, err = s.Exec("status")
	require.NoError(t, err)
	require.Equal(t, []string{"[STATUS] LED=ON"}, resp)

	s.Disconnect()
	require.Nil(t, s.Session)
}

func TestShellSyncRunningDevice(t *testing.T) {
	r := newRig(t, console.Options{})
	// the banner is gone, the shell has to ask for a prompt
	boot := "\r\n" + console.DefaultBanner + "\r\ntype: help\r\n> "
	_, err := io.ReadFull(r.conn, make([]byte, len(boot)))
	require.NoError(t, err)

	s := &Shell{Config: config.NewConfig(), Timeout: 200 * time.Millisecond}
	require.NoError(t, s.Attach(context.Background(), "pipe:", r.conn))
	resp, err := s.Exec("led off")
	require.NoError(t, err)
	require.Equal(t, []string{"[OK] LED OFF"}, resp)
}

func TestShellMonitorRequiresBroker(t *testing.T) {
	conf := config.NewConfig()
	conf.MQTTURL = ""
	s := &Shell{Config: conf}
	err := s.Monitor(time.Millisecond, func(telemetry.Event) {})
	require.Error(t, err)
}
