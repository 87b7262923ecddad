package main

import (
	"flag"
	"log"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/robo-console/pkg/config"
	"github.com/robotalks/robo-console/pkg/device"
	fx "github.com/robotalks/robo-console/pkg/framework"
	"github.com/robotalks/robo-console/pkg/hal"
	"github.com/robotalks/robo-console/pkg/hal/sim"
	"github.com/robotalks/robo-console/pkg/link"
	"github.com/robotalks/robo-console/pkg/telemetry"
)

//go-build: CGO_ENABLED=0

func init() {
	config.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()
	conf := config.MustLoad()

	ln, err := link.Listen(conf.Link, conf.LinkOptions())
	if err != nil {
		log.Fatalln(err)
	}
	defer ln.Close()

	pin := sim.NewPin()
	pin.OnChange = func(high bool) {
		glog.Infof("LED %v", high)
	}
	var led hal.Output = pin
	opts := conf.ConsoleOptions()

	runner := fx.NewRunner().StopOnFirst().HandleSignals()
	if conf.MQTTURL != "" {
		reporter, err := telemetry.NewReporter(conf.MQTTURL, conf.DeviceID, conf.Meta())
		if err != nil {
			log.Fatalln(err)
		}
		led = reporter.WrapOutput(led)
		opts.OnHeartbeat = func(seq uint8, _ uint32) {
			reporter.Heartbeat(seq)
		}
		runner.Go(fx.NamedRun("telemetry", reporter))
	}

	glog.Infof("device %s listening on %s", conf.DeviceID, ln.Addr())
	runner.Go(fx.NamedRun("device", &device.Server{
		Listener: ln,
		Output:   led,
		Ticks:    hal.NewSystemTicks(),
		Options:  opts,
	}))
	if err := runner.Wait(); err != nil {
		glog.Errorf("stopped: %v", err)
		glog.Flush()
		os.Exit(1)
	}
}
