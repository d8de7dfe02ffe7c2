// Package diagram is the canonical serialization format for FlowGrid
// diagrams. It is used for CLI files, API payloads, storage, and caching,
// and is designed for round-trip fidelity: read → refine → write → re-read
// preserves every element, connection, and reference.
package diagram

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/flowgrid/flowgrid/pkg/model"
)

// Diagram is the serialized form of one process diagram.
type Diagram struct {
	Name        string       `json:"name,omitempty" bson:"name,omitempty"`
	Elements    []Element    `json:"elements" bson:"elements"`
	Connections []Connection `json:"connections" bson:"connections"`
	// HappyPath lists the connection ids of the primary flow, when known.
	HappyPath []string `json:"happy_path,omitempty" bson:"happy_path,omitempty"`
}

// Element is the serialized form of a diagram node. Parent and Host carry
// ids rather than references; coordinates are absolute.
type Element struct {
	ID     string       `json:"id" bson:"id"`
	Type   string       `json:"type" bson:"type"`
	Name   string       `json:"name,omitempty" bson:"name,omitempty"`
	Bounds model.Bounds `json:"bounds" bson:"bounds"`
	Parent string       `json:"parent,omitempty" bson:"parent,omitempty"`
	Host   string       `json:"host,omitempty" bson:"host,omitempty"`
	Label  *model.Bounds `json:"label,omitempty" bson:"label,omitempty"`
}

// Connection is the serialized form of a directed flow.
type Connection struct {
	ID        string        `json:"id" bson:"id"`
	Type      string        `json:"type,omitempty" bson:"type,omitempty"`
	Source    string        `json:"source" bson:"source"`
	Target    string        `json:"target" bson:"target"`
	Waypoints []model.Point `json:"waypoints,omitempty" bson:"waypoints,omitempty"`
}

// ToRegistry materializes the diagram into a fresh registry. Elements whose
// id is empty get a generated one so hand-written files don't need to invent
// identifiers. Parents are added before children so forward references only
// fail for genuinely missing ids.
func ToRegistry(d Diagram) (*model.Registry, error) {
	reg := model.NewRegistry()

	elements := backfillIDs(d.Elements)
	for _, el := range sortParentsFirst(elements) {
		spec := model.ElementSpec{
			ID:       el.ID,
			Type:     el.Type,
			Name:     el.Name,
			Bounds:   el.Bounds,
			ParentID: el.Parent,
			HostID:   el.Host,
			Label:    el.Label,
		}
		if _, err := reg.AddElement(spec); err != nil {
			return nil, fmt.Errorf("add element %s: %w", el.ID, err)
		}
	}

	for _, c := range d.Connections {
		id := c.ID
		if id == "" {
			id = uuid.NewString()
		}
		spec := model.ConnectionSpec{
			ID:        id,
			Type:      c.Type,
			SourceID:  c.Source,
			TargetID:  c.Target,
			Waypoints: c.Waypoints,
		}
		if _, err := reg.AddConnection(spec); err != nil {
			return nil, fmt.Errorf("add connection %s: %w", id, err)
		}
	}

	return reg, nil
}

// FromRegistry converts a registry back to the serialization format,
// preserving insertion order for deterministic output.
func FromRegistry(reg *model.Registry) Diagram {
	d := Diagram{
		Elements:    make([]Element, 0, reg.ElementCount()),
		Connections: make([]Connection, 0, reg.ConnectionCount()),
	}
	for _, e := range reg.All() {
		el := Element{
			ID:     e.ID,
			Type:   e.Type,
			Name:   e.Name,
			Bounds: e.Bounds,
			Label:  e.Label,
		}
		if e.Parent != nil {
			el.Parent = e.Parent.ID
		}
		if e.Host != nil {
			el.Host = e.Host.ID
		}
		d.Elements = append(d.Elements, el)
	}
	for _, c := range reg.Connections() {
		conn := Connection{
			ID:        c.ID,
			Type:      c.Type,
			Waypoints: c.Waypoints,
		}
		if c.Source != nil {
			conn.Source = c.Source.ID
		}
		if c.Target != nil {
			conn.Target = c.Target.ID
		}
		d.Connections = append(d.Connections, conn)
	}
	return d
}

// backfillIDs assigns a UUID to every element missing an id.
func backfillIDs(elements []Element) []Element {
	out := append([]Element(nil), elements...)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = uuid.NewString()
		}
	}
	return out
}

// sortParentsFirst orders elements so containers precede their children and
// hosts precede their attached events. Cyclic parent references fall back to
// input order and surface as ErrUnknownElement from the registry.
func sortParentsFirst(elements []Element) []Element {
	index := make(map[string]int, len(elements))
	for i, el := range elements {
		index[el.ID] = i
	}

	var out []Element
	placed := make(map[string]bool, len(elements))

	var place func(i int, depth int)
	place = func(i, depth int) {
		el := elements[i]
		if placed[el.ID] || depth > len(elements) {
			return
		}
		if p, ok := index[el.Parent]; ok && el.Parent != "" && !placed[el.Parent] {
			place(p, depth+1)
		}
		if h, ok := index[el.Host]; ok && el.Host != "" && !placed[el.Host] {
			place(h, depth+1)
		}
		if !placed[el.ID] {
			placed[el.ID] = true
			out = append(out, el)
		}
	}
	for i := range elements {
		place(i, 0)
	}
	return out
}
