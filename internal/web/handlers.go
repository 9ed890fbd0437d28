package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sweeney/oligo-synth/internal/device"
	"github.com/sweeney/oligo-synth/internal/pinout"
	"github.com/sweeney/oligo-synth/internal/status"
)

// DeviceJSON is the API representation of one registered device.
type DeviceJSON struct {
	Name    string `json:"name"`
	Group   string `json:"group,omitempty"`
	Kind    string `json:"kind"`
	Pin     string `json:"pin"`
	Line    *int   `json:"line,omitempty"`
	Engaged bool   `json:"engaged"`
}

// ActuateRequest is the body of PUT /devices/:name.
type ActuateRequest struct {
	Engaged *bool `json:"engaged" binding:"required"`
}

func toDeviceJSON(name, group string, d *device.Device) DeviceJSON {
	dj := DeviceJSON{
		Name:    name,
		Group:   group,
		Kind:    d.Kind().String(),
		Pin:     d.Pin().String(),
		Engaged: d.IsEngaged(),
	}
	if line, ok := d.Pin().Line(); ok {
		dj.Line = &line
	}
	return dj
}

func (s *Server) handleIndex(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := renderHTML(c.Writer, s.tracker.Snapshot()); err != nil {
		c.Error(err)
	}
}

func (s *Server) handleJSON(c *gin.Context) {
	c.Data(http.StatusOK, "application/json", status.FormatJSON(s.tracker.Snapshot()))
}

func (s *Server) entries(keep func(*device.Device) bool) []DeviceJSON {
	out := []DeviceJSON{}
	for _, e := range s.reg.Entries() {
		if keep != nil && !keep(e.Device) {
			continue
		}
		out = append(out, toDeviceJSON(e.Name, e.Group, e.Device))
	}
	return out
}

func (s *Server) listPins(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pins": s.entries(nil)})
}

func (s *Server) listValves(c *gin.Context) {
	valves := s.entries(func(d *device.Device) bool { return d.Kind() == device.KindValve })
	c.JSON(http.StatusOK, gin.H{"valves": valves})
}

func (s *Server) listConfigurable(c *gin.Context) {
	pins := s.reg.ListConfigurablePins()
	out := make([]string, 0, len(pins))
	for _, p := range pins {
		out = append(out, p.String())
	}
	c.JSON(http.StatusOK, gin.H{"configurable": out})
}

func (s *Server) lookup(name string) (DeviceJSON, error) {
	d, err := s.reg.Get(name)
	if err != nil {
		return DeviceJSON{}, err
	}
	key := strings.ToLower(name)
	for _, e := range s.reg.Entries() {
		if e.Name == key {
			return toDeviceJSON(e.Name, e.Group, d), nil
		}
	}
	return toDeviceJSON(key, "", d), nil
}

func (s *Server) getDevice(c *gin.Context) {
	dj, err := s.lookup(c.Param("name"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dj)
}

func (s *Server) setDevice(c *gin.Context) {
	if s.act == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "actuation disabled"})
		return
	}

	var req ActuateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"engaged\": true|false}"})
		return
	}

	name := c.Param("name")
	if err := s.act.Actuate(name, *req.Engaged); err != nil {
		s.respondError(c, err)
		return
	}

	dj, err := s.lookup(name)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dj)
}

func (s *Server) respondError(c *gin.Context, err error) {
	c.Error(err)

	var nf *pinout.NameNotFoundError
	switch {
	case errors.As(err, &nf):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "available": nf.Available})
	case errors.Is(err, device.ErrActuation):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
