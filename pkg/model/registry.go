package model

import "errors"

var (
	// ErrInvalidID is returned by [Registry.AddElement] and
	// [Registry.AddConnection] when the id is empty. Every diagram object
	// must have a non-empty identifier.
	ErrInvalidID = errors.New("id must not be empty")

	// ErrDuplicateID is returned when an element or connection with the same
	// id already exists in the registry.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrUnknownElement is returned by [Registry.AddConnection] when the
	// source or target element does not exist, and by [Registry.AddElement]
	// when the referenced parent or host is missing.
	ErrUnknownElement = errors.New("unknown element")
)

// Registry is the arena that owns every element and connection of one
// diagram. All layout passes read and mutate the same registry; there is no
// copy-on-write. The registry maintains the incoming/outgoing adjacency of
// elements as connections are added.
//
// Iteration order over [Registry.All] and [Registry.Connections] matches
// insertion order, which keeps every pass deterministic.
//
// Registry is not safe for concurrent use. The layout engine is strictly
// single-threaded, so no locking is needed.
type Registry struct {
	elements    map[string]*Element
	connections map[string]*Connection
	elemOrder   []string
	connOrder   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		elements:    make(map[string]*Element),
		connections: make(map[string]*Connection),
	}
}

// ElementSpec describes an element to add to the registry. ParentID and
// HostID are optional; when set they must reference elements added earlier.
type ElementSpec struct {
	ID       string
	Type     string
	Name     string
	Bounds   Bounds
	ParentID string
	HostID   string
	Label    *Bounds
}

// AddElement creates an element from the spec, classifies it, and indexes it.
// Returns ErrInvalidID for an empty id, ErrDuplicateID if the id exists, or
// ErrUnknownElement if ParentID or HostID reference missing elements.
func (r *Registry) AddElement(spec ElementSpec) (*Element, error) {
	if spec.ID == "" {
		return nil, ErrInvalidID
	}
	if _, exists := r.elements[spec.ID]; exists {
		return nil, ErrDuplicateID
	}

	e := &Element{
		ID:       spec.ID,
		Type:     spec.Type,
		Name:     spec.Name,
		Category: Classify(spec.Type),
		Bounds:   spec.Bounds,
		Label:    spec.Label,
	}
	if spec.ParentID != "" {
		parent, ok := r.elements[spec.ParentID]
		if !ok {
			return nil, ErrUnknownElement
		}
		e.Parent = parent
	}
	if spec.HostID != "" {
		host, ok := r.elements[spec.HostID]
		if !ok {
			return nil, ErrUnknownElement
		}
		e.Host = host
	}

	r.elements[e.ID] = e
	r.elemOrder = append(r.elemOrder, e.ID)
	return e, nil
}

// ConnectionSpec describes a connection to add to the registry.
type ConnectionSpec struct {
	ID        string
	Type      string
	SourceID  string
	TargetID  string
	Waypoints []Point
}

// AddConnection creates a connection, wires it into the source's outgoing and
// the target's incoming lists, and indexes it. Returns ErrInvalidID,
// ErrDuplicateID, or ErrUnknownElement for missing endpoints.
func (r *Registry) AddConnection(spec ConnectionSpec) (*Connection, error) {
	if spec.ID == "" {
		return nil, ErrInvalidID
	}
	if _, exists := r.connections[spec.ID]; exists {
		return nil, ErrDuplicateID
	}
	src, ok := r.elements[spec.SourceID]
	if !ok {
		return nil, ErrUnknownElement
	}
	dst, ok := r.elements[spec.TargetID]
	if !ok {
		return nil, ErrUnknownElement
	}

	c := &Connection{
		ID:        spec.ID,
		Type:      spec.Type,
		Source:    src,
		Target:    dst,
		Waypoints: spec.Waypoints,
	}
	src.Outgoing = append(src.Outgoing, c)
	dst.Incoming = append(dst.Incoming, c)

	r.connections[c.ID] = c
	r.connOrder = append(r.connOrder, c.ID)
	return c, nil
}

// Get returns the element with the given id, or nil if it does not exist.
func (r *Registry) Get(id string) *Element { return r.elements[id] }

// Connection returns the connection with the given id, or nil.
func (r *Registry) Connection(id string) *Connection { return r.connections[id] }

// All returns every element in insertion order.
func (r *Registry) All() []*Element {
	out := make([]*Element, 0, len(r.elemOrder))
	for _, id := range r.elemOrder {
		out = append(out, r.elements[id])
	}
	return out
}

// Connections returns every connection in insertion order.
func (r *Registry) Connections() []*Connection {
	out := make([]*Connection, 0, len(r.connOrder))
	for _, id := range r.connOrder {
		out = append(out, r.connections[id])
	}
	return out
}

// Filter returns every element for which pred returns true, in insertion
// order.
func (r *Registry) Filter(pred func(*Element) bool) []*Element {
	var out []*Element
	for _, id := range r.elemOrder {
		if e := r.elements[id]; pred(e) {
			out = append(out, e)
		}
	}
	return out
}

// Children returns the direct children of parent, or the top-level elements
// when parent is nil. Boundary events attached to a child are not children
// themselves unless their parent matches.
func (r *Registry) Children(parent *Element) []*Element {
	return r.Filter(func(e *Element) bool { return e.Parent == parent })
}

// BoundaryEvents returns every attached trigger node hosted by host.
// The order matches insertion order.
func (r *Registry) BoundaryEvents(host *Element) []*Element {
	return r.Filter(func(e *Element) bool { return e.IsBoundary() && e.Host == host })
}

// ElementCount returns the number of elements.
func (r *Registry) ElementCount() int { return len(r.elements) }

// ConnectionCount returns the number of connections.
func (r *Registry) ConnectionCount() int { return len(r.connections) }
