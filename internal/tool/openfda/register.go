package openfda

import (
	"github.com/fdadevices/openfda-agent/internal/tool"
	"github.com/fdadevices/openfda-agent/internal/transport"
)

// Register adds all seven endpoint tools plus probe_count to r, sharing one
// transport.Client.
func Register(r *tool.Registry, c *transport.Client) {
	r.Register(NewClassificationsTool(c))
	r.Register(NewClearancesTool(c))
	r.Register(NewPMATool(c))
	r.Register(NewRecallsTool(c))
	r.Register(NewEventsTool(c))
	r.Register(NewUDITool(c))
	r.Register(NewRegistrationsTool(c))
	r.Register(NewProbeCountTool(c))
}
