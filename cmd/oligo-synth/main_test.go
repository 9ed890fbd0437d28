package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/oligo-synth/internal/board"
	"github.com/sweeney/oligo-synth/internal/config"
	"github.com/sweeney/oligo-synth/internal/control"
	"github.com/sweeney/oligo-synth/internal/gpio"
	"github.com/sweeney/oligo-synth/internal/mqtt"
	"github.com/sweeney/oligo-synth/internal/pinout"
	"github.com/sweeney/oligo-synth/internal/status"
)

func testPinout() config.PinoutConfig {
	return config.PinoutConfig{
		Phosphoramidites: map[string]string{"A": "P15", "C": "16", "G": "p18", "T": "P22"},
		Reactants:        map[string]string{"ACN": "P23", "OXI": "P24"},
	}
}

type loopEnv struct {
	ctrl    *control.Controller
	reg     *pinout.Registry
	writer  *gpio.FakeWriter
	pub     *mqtt.FakePublisher
	tracker *status.Tracker
}

func newLoopEnv(t *testing.T) *loopEnv {
	t.Helper()
	w := gpio.NewFakeWriter()
	reg, err := buildRegistry(testPinout(), w)
	if err != nil {
		t.Fatalf("buildRegistry: %v", err)
	}
	pub := mqtt.NewFakePublisher()
	tracker := status.NewTracker(time.Now(), "run-1", reg, status.Config{MQTTEnabled: true})
	ctrl := control.New(reg, pub, tracker, zap.NewNop())
	return &loopEnv{ctrl: ctrl, reg: reg, writer: w, pub: pub, tracker: tracker}
}

func TestBuildRegistry(t *testing.T) {
	reg, err := buildRegistry(testPinout(), gpio.NewFakeWriter())
	if err != nil {
		t.Fatalf("buildRegistry: %v", err)
	}
	if reg.Len() != 14 {
		t.Errorf("Len: got %d, want 14", reg.Len())
	}
	g, err := reg.Get("G")
	if err != nil {
		t.Fatalf("Get(G): %v", err)
	}
	if g.Pin() != board.P18 {
		t.Errorf("G pin: got %v, want P18", g.Pin())
	}
}

func TestBuildRegistryRejectsFixedPin(t *testing.T) {
	cfg := testPinout()
	cfg.Reactants["DEB"] = "P7"

	_, err := buildRegistry(cfg, nil)
	if !errors.Is(err, pinout.ErrDuplicatePin) {
		t.Fatalf("got %v, want ErrDuplicatePin", err)
	}
	var dup *pinout.DuplicatePinError
	if !errors.As(err, &dup) {
		t.Fatalf("got %T, want *pinout.DuplicatePinError", err)
	}
	if dup.ClaimedBy != pinout.Waste {
		t.Errorf("ClaimedBy: got %q, want %q", dup.ClaimedBy, pinout.Waste)
	}
}

func TestBuildRegistryRejectsBadPin(t *testing.T) {
	cfg := testPinout()
	cfg.Phosphoramidites["X"] = "P41"

	if _, err := buildRegistry(cfg, nil); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("got %v, want config.ErrInvalid", err)
	}
}

func TestRunLoopShutdownSIGTERM(t *testing.T) {
	env := newLoopEnv(t)
	if err := env.ctrl.Actuate("pump", true); err != nil {
		t.Fatalf("Actuate: %v", err)
	}
	if err := env.ctrl.Actuate("a", true); err != nil {
		t.Fatalf("Actuate: %v", err)
	}
	env.pub.Reset()

	sig := make(chan os.Signal, 1)
	sig <- syscall.SIGTERM
	now := func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	err := runLoop(env.ctrl, env.pub, env.pub, env.tracker, zap.NewNop(), now, nil, sig, nil)
	if err != nil {
		t.Fatalf("runLoop: %v", err)
	}

	for _, e := range env.reg.Entries() {
		if e.Device.IsEngaged() {
			t.Errorf("%s still engaged after shutdown", e.Name)
		}
	}
	if level, _ := env.writer.Level(board.P11); level {
		t.Error("pump pin left high")
	}

	if len(env.pub.Events) != env.reg.Len() {
		t.Errorf("actuation events: got %d, want %d", len(env.pub.Events), env.reg.Len())
	}
	if len(env.pub.SystemEvents) != 1 {
		t.Fatalf("system events: got %d, want 1", len(env.pub.SystemEvents))
	}
	ev := env.pub.SystemEvents[0]
	if ev.Event != "SHUTDOWN" || ev.Reason != "SIGTERM" || !ev.Retained {
		t.Errorf("shutdown event: got %+v", ev)
	}

	var sj status.StatusJSON
	if err := json.Unmarshal(env.pub.SystemPayloads[0], &sj); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if sj.Status.Event != "SHUTDOWN" || sj.Status.Reason != "SIGTERM" {
		t.Errorf("payload event: got %s/%s", sj.Status.Event, sj.Status.Reason)
	}
	for _, d := range sj.Status.Devices {
		if d.Engaged {
			t.Errorf("payload reports %s engaged", d.Name)
		}
	}
}

func TestRunLoopShutdownContinuesPastFailures(t *testing.T) {
	env := newLoopEnv(t)
	env.writer.FailPins[board.P7] = errors.New("line busy")

	sig := make(chan os.Signal, 1)
	sig <- syscall.SIGINT

	if err := runLoop(env.ctrl, env.pub, env.pub, env.tracker, zap.NewNop(), time.Now, nil, sig, nil); err != nil {
		t.Fatalf("runLoop: %v", err)
	}

	if got := len(env.pub.Events); got != env.reg.Len()-1 {
		t.Errorf("actuation events: got %d, want %d", got, env.reg.Len()-1)
	}
	if len(env.pub.SystemEvents) != 1 || env.pub.SystemEvents[0].Reason != "SIGINT" {
		t.Errorf("system events: got %+v", env.pub.SystemEvents)
	}
	if snap := env.tracker.Snapshot(); snap.Counts.Failures != 1 {
		t.Errorf("Failures: got %d, want 1", snap.Counts.Failures)
	}
}

func TestRunLoopStopsRequestsBeforeSafeState(t *testing.T) {
	env := newLoopEnv(t)

	sig := make(chan os.Signal, 1)
	sig <- syscall.SIGTERM

	stopped := false
	stop := func() {
		// A request still in flight while the server drains.
		if err := env.ctrl.Actuate("a", true); err != nil {
			t.Errorf("Actuate: %v", err)
		}
		stopped = true
	}

	if err := runLoop(env.ctrl, env.pub, env.pub, env.tracker, zap.NewNop(), time.Now, nil, sig, stop); err != nil {
		t.Fatalf("runLoop: %v", err)
	}
	if !stopped {
		t.Fatal("stop was not called")
	}

	a, _ := env.reg.Get("a")
	if a.IsEngaged() {
		t.Error("a still engaged after shutdown")
	}
	if level, _ := env.writer.Level(board.P15); level {
		t.Error("P15 left high")
	}

	var sj status.StatusJSON
	if err := json.Unmarshal(env.pub.SystemPayloads[0], &sj); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	for _, d := range sj.Status.Devices {
		if d.Engaged {
			t.Errorf("SHUTDOWN payload reports %s engaged", d.Name)
		}
	}
}

func TestRunLoopWithoutMQTT(t *testing.T) {
	env := newLoopEnv(t)
	ctrl := control.New(env.reg, nil, env.tracker, zap.NewNop())

	sig := make(chan os.Signal, 1)
	sig <- syscall.SIGTERM

	if err := runLoop(ctrl, nil, nil, env.tracker, zap.NewNop(), time.Now, nil, sig, nil); err != nil {
		t.Fatalf("runLoop: %v", err)
	}
	if env.writer.WriteCount() != env.reg.Len() {
		t.Errorf("writes: got %d, want %d", env.writer.WriteCount(), env.reg.Len())
	}
}

func TestRunLoopTickRefreshesMQTTState(t *testing.T) {
	env := newLoopEnv(t)
	env.pub.Connected = true

	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)
	done := make(chan error, 1)
	go func() {
		done <- runLoop(env.ctrl, env.pub, env.pub, env.tracker, zap.NewNop(), time.Now, tick, sig, nil)
	}()

	tick <- time.Now()
	// A second send only completes once the first tick was handled.
	tick <- time.Now()

	if !env.tracker.Snapshot().MQTTConnected {
		t.Error("MQTTConnected: got false, want true")
	}

	sig <- syscall.SIGTERM
	if err := <-done; err != nil {
		t.Fatalf("runLoop: %v", err)
	}
}

func TestSignalName(t *testing.T) {
	tests := []struct {
		sig  os.Signal
		want string
	}{
		{syscall.SIGINT, "SIGINT"},
		{syscall.SIGTERM, "SIGTERM"},
		{syscall.SIGHUP, "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := signalName(tt.sig); got != tt.want {
			t.Errorf("signalName(%v): got %q, want %q", tt.sig, got, tt.want)
		}
	}
}

func TestWritePinout(t *testing.T) {
	reg, err := buildRegistry(testPinout(), nil)
	if err != nil {
		t.Fatalf("buildRegistry: %v", err)
	}

	var buf bytes.Buffer
	if err := writePinout(&buf, reg); err != nil {
		t.Fatalf("writePinout: %v", err)
	}

	var doc pinoutDoc
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("yaml: %v\n%s", err, buf.String())
	}
	if len(doc.Devices) != reg.Len() {
		t.Fatalf("devices: got %d, want %d", len(doc.Devices), reg.Len())
	}
	first := doc.Devices[0]
	if first.Name != pinout.Solvent || first.Pin != "P3" || first.Kind != "valve" || first.Group != pinout.GroupFixed {
		t.Errorf("first device: got %+v", first)
	}
	if first.Line == nil || *first.Line != 2 {
		t.Errorf("sol line: got %v, want 2", first.Line)
	}
	// 40 header pins, 8 hard-wired.
	if len(doc.Configurable) != 32 {
		t.Errorf("configurable: got %d, want 32", len(doc.Configurable))
	}
}

func TestWriteFreePins(t *testing.T) {
	var buf bytes.Buffer
	writeFreePins(&buf)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 32 {
		t.Fatalf("lines: got %d, want 32", len(lines))
	}
	if lines[0] != "P1\t-" {
		t.Errorf("first line: got %q, want %q", lines[0], "P1\t-")
	}
	for _, l := range lines {
		if strings.HasPrefix(l, "P7\t") || strings.HasPrefix(l, "P11\t") {
			t.Errorf("hard-wired pin listed: %q", l)
		}
	}
	if !strings.Contains(buf.String(), "P40\tGPIO21\n") {
		t.Error("P40 should map to GPIO21")
	}
}
