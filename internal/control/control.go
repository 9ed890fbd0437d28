// Package control actuates registered devices by name and reports the
// outcome to the status tracker and MQTT.
package control

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/oligo-synth/internal/mqtt"
	"github.com/sweeney/oligo-synth/internal/pinout"
	"github.com/sweeney/oligo-synth/internal/status"
)

// Controller resolves names through the registry and drives the devices.
type Controller struct {
	reg     *pinout.Registry
	pub     mqtt.Publisher
	tracker *status.Tracker
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a Controller. pub and tracker may be nil.
func New(reg *pinout.Registry, pub mqtt.Publisher, tracker *status.Tracker, logger *zap.Logger) *Controller {
	return &Controller{
		reg:     reg,
		pub:     pub,
		tracker: tracker,
		logger:  logger,
		now:     time.Now,
	}
}

// Actuate engages or disengages the device registered under name.
// Lookup failures return a *pinout.NameNotFoundError; driver failures a
// *device.ActuationError. Neither is retried. Publish failures are only logged.
func (c *Controller) Actuate(name string, engaged bool) error {
	dev, err := c.reg.Get(name)
	if err != nil {
		return err
	}
	name = strings.ToLower(name)

	err = dev.SetEngaged(engaged)
	if c.tracker != nil {
		c.tracker.RecordActuation(err)
	}
	if err != nil {
		c.logger.Error("actuation failed",
			zap.String("device", name),
			zap.Stringer("pin", dev.Pin()),
			zap.Bool("engaged", engaged),
			zap.Error(err))
		return fmt.Errorf("actuate %s: %w", name, err)
	}

	c.logger.Info("actuated",
		zap.String("device", name),
		zap.Stringer("pin", dev.Pin()),
		zap.Stringer("kind", dev.Kind()),
		zap.Bool("engaged", engaged))

	if c.pub != nil {
		event := mqtt.ActuationEvent{
			Timestamp: c.now(),
			Device:    name,
			Pin:       dev.Pin(),
			Kind:      dev.Kind(),
			Engaged:   engaged,
		}
		if err := c.pub.PublishActuation(event); err != nil {
			c.logger.Warn("publish actuation failed", zap.String("device", name), zap.Error(err))
		}
	}
	return nil
}

// SafeState disengages every registered device, in name order, and returns
// every failure joined. It keeps going past failures.
func (c *Controller) SafeState() error {
	var errs []error
	for _, name := range c.reg.Names() {
		if err := c.Actuate(name, false); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
