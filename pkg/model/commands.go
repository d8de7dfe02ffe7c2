package model

// Mutator is the command interface through which every layout pass changes
// the diagram. Each call is atomic and immediately observable through the
// registry; nothing is batched or deferred.
//
// Keeping mutation behind this interface lets callers substitute a recording
// mutator for diffing, or an adapter that forwards commands to an external
// editing toolkit.
type Mutator interface {
	// MoveElements shifts every listed element by (dx, dy), including its
	// label, its direct and transitive children, and any boundary events
	// attached to it.
	MoveElements(elements []*Element, dx, dy float64)

	// ResizeShape replaces an element's bounds.
	ResizeShape(element *Element, bounds Bounds)

	// UpdateWaypoints replaces a connection's route.
	UpdateWaypoints(connection *Connection, waypoints []Point)
}

// RegistryMutator applies commands directly to registry-owned structs.
// It is the default Mutator used by the engine and the CLI.
type RegistryMutator struct {
	reg *Registry
}

// NewMutator creates a mutator bound to the given registry.
func NewMutator(reg *Registry) *RegistryMutator {
	return &RegistryMutator{reg: reg}
}

// MoveElements shifts each element, its label, its children, and its attached
// boundary events by (dx, dy). Elements listed more than once move once.
func (m *RegistryMutator) MoveElements(elements []*Element, dx, dy float64) {
	if dx == 0 && dy == 0 {
		return
	}
	moved := make(map[string]bool)
	for _, e := range elements {
		m.move(e, dx, dy, moved)
	}
}

func (m *RegistryMutator) move(e *Element, dx, dy float64, moved map[string]bool) {
	if e == nil || moved[e.ID] {
		return
	}
	moved[e.ID] = true

	e.Bounds = e.Bounds.Translated(dx, dy)
	if e.Label != nil {
		*e.Label = e.Label.Translated(dx, dy)
	}

	// Children and attached events travel with their owner/host.
	for _, child := range m.reg.Children(e) {
		m.move(child, dx, dy, moved)
	}
	for _, be := range m.reg.BoundaryEvents(e) {
		m.move(be, dx, dy, moved)
	}
}

// ResizeShape replaces the element's bounds.
func (m *RegistryMutator) ResizeShape(element *Element, bounds Bounds) {
	if element == nil {
		return
	}
	element.Bounds = bounds
}

// UpdateWaypoints replaces the connection's route with a copy of waypoints.
func (m *RegistryMutator) UpdateWaypoints(connection *Connection, waypoints []Point) {
	if connection == nil {
		return
	}
	connection.Waypoints = append([]Point(nil), waypoints...)
}

// Ensure RegistryMutator implements Mutator.
var _ Mutator = (*RegistryMutator)(nil)
