// Command oligo-synth drives the valves and pump of an oligo synthesizer
// through the Raspberry Pi header, reports actuations to MQTT and serves the
// pinout over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/oligo-synth/internal/config"
	"github.com/sweeney/oligo-synth/internal/control"
	"github.com/sweeney/oligo-synth/internal/device"
	"github.com/sweeney/oligo-synth/internal/gpio"
	"github.com/sweeney/oligo-synth/internal/logging"
	"github.com/sweeney/oligo-synth/internal/mqtt"
	"github.com/sweeney/oligo-synth/internal/pinout"
	"github.com/sweeney/oligo-synth/internal/status"
	"github.com/sweeney/oligo-synth/internal/web"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const statusRefresh = 5 * time.Second

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to the YAML config file")
	printPinout := flag.Bool("print-pinout", false, "Print the validated pinout as YAML and exit")
	listFree := flag.Bool("list-free", false, "Print the header pins free for reagent valves and exit")

	flag.Parse()

	if *listFree {
		writeFreePins(os.Stdout)
		return
	}

	if err := run(*configPath, *printPinout); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, printPinout bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging, version)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	if printPinout {
		reg, err := buildRegistry(cfg.Pinout, nil)
		if err != nil {
			return err
		}
		return writePinout(os.Stdout, reg)
	}

	writer, err := gpio.NewRealWriter(cfg.GPIO.Chip, cfg.GPIO.Consumer, cfg.GPIO.ActiveLow)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer writer.Close()

	reg, err := buildRegistry(cfg.Pinout, writer)
	if err != nil {
		logger.Error("invalid pinout", zap.Error(err))
		return err
	}
	logger.Info("pinout loaded", zap.Int("devices", reg.Len()), zap.Strings("names", reg.Names()))

	if err := writer.Request(reg.ClaimedPins()...); err != nil {
		return fmt.Errorf("request gpio lines: %w", err)
	}

	var (
		pub  mqtt.Publisher
		conn mqtt.ConnectionStatus
	)
	if cfg.MQTT.Enabled {
		p, err := mqtt.NewRealPublisher(cfg.MQTT, logger.Named("mqtt"))
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer p.Close()
		pub, conn = p, p
	}

	runID := uuid.NewString()
	tracker := status.NewTracker(time.Now(), runID, reg, status.Config{
		Chip:        cfg.GPIO.Chip,
		ActiveLow:   cfg.GPIO.ActiveLow,
		MQTTEnabled: cfg.MQTT.Enabled,
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP.Addr,
	})
	if conn != nil {
		tracker.SetMQTTConnected(conn.IsConnected())
	}

	ctrl := control.New(reg, pub, tracker, logger.Named("control"))

	if pub != nil {
		snap := tracker.Snapshot()
		startup := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "STARTUP",
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
		}
		if err := pub.PublishSystem(startup); err != nil {
			logger.Warn("publish startup event failed", zap.Error(err))
		}
	}

	stopHTTP := func() {}
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, reg, tracker, ctrl, logger.Named("http"))
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server failed", zap.Error(err))
			}
		}()
		stopHTTP = func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("http shutdown", zap.Error(err))
			}
		}
	}

	logger.Info("started",
		zap.String("run_id", runID),
		zap.String("chip", cfg.GPIO.Chip),
		zap.Bool("mqtt", cfg.MQTT.Enabled),
		zap.String("http", cfg.HTTP.Addr))

	ticker := time.NewTicker(statusRefresh)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(ctrl, pub, conn, tracker, logger, time.Now, ticker.C, sigCh, stopHTTP)
}

// runLoop keeps the tracker's MQTT state fresh until a signal arrives. It then
// calls stop so no new actuation requests arrive, puts every device in its
// safe state and announces the shutdown. stop may be nil.
func runLoop(ctrl *control.Controller, pub mqtt.Publisher, conn mqtt.ConnectionStatus, tracker *status.Tracker, logger *zap.Logger, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal, stop func()) error {
	for {
		select {
		case s := <-sig:
			reason := signalName(s)
			logger.Info("shutting down", zap.String("signal", reason))

			if stop != nil {
				stop()
			}

			if err := ctrl.SafeState(); err != nil {
				logger.Error("safe state incomplete", zap.Error(err))
			}

			if pub == nil {
				return nil
			}
			if conn != nil {
				tracker.SetMQTTConnected(conn.IsConnected())
			}
			snap := tracker.Snapshot()
			event := mqtt.SystemEvent{
				Timestamp:  now(),
				Event:      "SHUTDOWN",
				Reason:     reason,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", reason),
			}
			if err := pub.PublishSystem(event); err != nil {
				logger.Warn("publish shutdown event failed", zap.Error(err))
			}
			return nil

		case <-tick:
			if conn != nil {
				tracker.SetMQTTConnected(conn.IsConnected())
			}
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}

// buildRegistry validates the configured reagent valves against the
// hard-wired devices. driver may be nil when nothing will be actuated.
func buildRegistry(cfg config.PinoutConfig, driver device.Driver) (*pinout.Registry, error) {
	phosphoramidites, reactants, err := cfg.Resolve()
	if err != nil {
		return nil, err
	}
	return pinout.New(
		pinout.Fixed(driver),
		pinout.Valves(phosphoramidites, driver),
		pinout.Valves(reactants, driver),
	)
}

type pinoutDoc struct {
	Devices      []pinoutEntry `yaml:"devices"`
	Configurable []string      `yaml:"configurable"`
}

type pinoutEntry struct {
	Name  string `yaml:"name"`
	Group string `yaml:"group"`
	Kind  string `yaml:"kind"`
	Pin   string `yaml:"pin"`
	Line  *int   `yaml:"line,omitempty"`
}

func writePinout(w io.Writer, reg *pinout.Registry) error {
	doc := pinoutDoc{}
	for _, e := range reg.Entries() {
		entry := pinoutEntry{
			Name:  e.Name,
			Group: e.Group,
			Kind:  e.Device.Kind().String(),
			Pin:   e.Device.Pin().String(),
		}
		if line, ok := e.Device.Pin().Line(); ok {
			entry.Line = &line
		}
		doc.Devices = append(doc.Devices, entry)
	}
	for _, p := range reg.ListConfigurablePins() {
		doc.Configurable = append(doc.Configurable, p.String())
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode pinout: %w", err)
	}
	return enc.Close()
}

func writeFreePins(w io.Writer) {
	for _, p := range pinout.ConfigurablePins() {
		if line, ok := p.Line(); ok {
			fmt.Fprintf(w, "%s\tGPIO%d\n", p, line)
		} else {
			fmt.Fprintf(w, "%s\t-\n", p)
		}
	}
}
