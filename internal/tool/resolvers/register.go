package resolvers

import (
	"github.com/fdadevices/openfda-agent/internal/catalog"
	"github.com/fdadevices/openfda-agent/internal/resolver"
	"github.com/fdadevices/openfda-agent/internal/tool"
)

// Register adds the three resolver tools to r.
func Register(r *tool.Registry, devices *catalog.DeviceResolver, manufacturers *resolver.ManufacturerResolver, locations *resolver.LocationResolver) {
	r.Register(NewResolveDeviceTool(devices))
	r.Register(NewResolveManufacturerTool(manufacturers))
	r.Register(NewResolveLocationTool(locations))
}

// Names lists the three resolver tool identifiers, used by the agent
// controller's DISPATCH stage to tell a resolver call (which populates
// ResolverContext and must run before any data-dependent query call) apart
// from an openFDA endpoint query.
var Names = map[string]bool{
	"resolve_device":       true,
	"resolve_manufacturer": true,
	"resolve_location":     true,
}
