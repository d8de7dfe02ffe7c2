// Package model defines the diagram object model shared by every FlowGrid
// component: elements, connections, the registry arena that owns them, and
// the mutation commands that reposition them.
//
// Elements and connections reference each other through non-owning pointers
// (parent, host, source, target, incoming, outgoing). The Registry is the
// single owner; everything else borrows.
package model

import "strings"

// Category is the closed set of element kinds the layout engine distinguishes.
// It is determined once when an element enters the registry, never by repeated
// type-tag string matching afterwards.
type Category int

const (
	// CategoryTask is an activity (task, call activity, expanded marker).
	CategoryTask Category = iota
	// CategoryStartEvent is a process entry event.
	CategoryStartEvent
	// CategoryEndEvent is a process exit event.
	CategoryEndEvent
	// CategoryIntermediateEvent is a throw or catch event on the flow.
	CategoryIntermediateEvent
	// CategoryBoundaryEvent is a trigger attached to a host element. Boundary
	// events carry a non-nil Host reference and represent exceptional
	// interruptions; their outgoing path is the exception sub-flow.
	CategoryBoundaryEvent
	// CategoryGateway is a branching or merging decision point.
	CategoryGateway
	// CategoryContainer is a pool, lane, or expanded sub-process that owns
	// child elements.
	CategoryContainer
	// CategoryArtifact is a non-flow annotation (data object, text annotation,
	// group). Artifacts ride along with the elements they are linked to.
	CategoryArtifact
)

// String returns the category name for logging and diagnostics.
func (c Category) String() string {
	switch c {
	case CategoryTask:
		return "task"
	case CategoryStartEvent:
		return "start-event"
	case CategoryEndEvent:
		return "end-event"
	case CategoryIntermediateEvent:
		return "intermediate-event"
	case CategoryBoundaryEvent:
		return "boundary-event"
	case CategoryGateway:
		return "gateway"
	case CategoryContainer:
		return "container"
	case CategoryArtifact:
		return "artifact"
	default:
		return "unknown"
	}
}

// IsEvent reports whether the category is any event kind.
func (c Category) IsEvent() bool {
	switch c {
	case CategoryStartEvent, CategoryEndEvent, CategoryIntermediateEvent, CategoryBoundaryEvent:
		return true
	}
	return false
}

// Classify maps a BPMN-style type tag (e.g. "userTask", "bpmn:BoundaryEvent")
// to its Category. Matching is case-insensitive so XML local names and
// prefixed tags classify the same way. Unknown tags classify as tasks so
// they still get nominal sizing and spacing.
//
// Classification happens exactly once at ingestion; everything downstream
// switches on the resulting Category.
func Classify(typeTag string) Category {
	tag := strings.ToLower(typeTag)
	switch {
	case strings.Contains(tag, "boundaryevent"):
		return CategoryBoundaryEvent
	case strings.Contains(tag, "startevent"):
		return CategoryStartEvent
	case strings.Contains(tag, "endevent"):
		return CategoryEndEvent
	// Gateways match before the generic event fallback: "eventBasedGateway"
	// contains both tags.
	case strings.Contains(tag, "gateway"):
		return CategoryGateway
	case strings.Contains(tag, "event"):
		return CategoryIntermediateEvent
	case strings.Contains(tag, "participant"),
		strings.Contains(tag, "lane"),
		strings.Contains(tag, "subprocess"),
		strings.Contains(tag, "process"):
		return CategoryContainer
	case strings.Contains(tag, "dataobject"),
		strings.Contains(tag, "datastore"),
		strings.Contains(tag, "textannotation"),
		strings.Contains(tag, "annotation"),
		strings.Contains(tag, "group"):
		return CategoryArtifact
	default:
		return CategoryTask
	}
}

// Element is an identified diagram node. Coordinates are absolute, never
// relative to the parent container.
//
// Parent, Host, Incoming, and Outgoing are non-owning references maintained
// by the Registry. The zero value is not usable; build elements through
// Registry.AddElement.
type Element struct {
	ID       string
	Type     string   // raw BPMN-like type tag, kept for serialization
	Name     string   // display label text (optional)
	Category Category // classified once at ingestion
	Bounds   Bounds

	// Parent is the owning container, or nil for top-level elements.
	Parent *Element
	// Host is the element a boundary event is attached to. Nil for every
	// other category. The reference is non-owning: a host does not list its
	// attached events.
	Host *Element

	// Label is the external label box, if the element has one. It moves with
	// the element.
	Label *Bounds

	Incoming []*Connection
	Outgoing []*Connection
}

// IsBoundary reports whether the element is an attached trigger node.
func (e *Element) IsBoundary() bool { return e.Category == CategoryBoundaryEvent }

// IsContainer reports whether the element owns children.
func (e *Element) IsContainer() bool { return e.Category == CategoryContainer }

// IsArtifact reports whether the element is a non-flow artifact.
func (e *Element) IsArtifact() bool { return e.Category == CategoryArtifact }

// Center returns the element's centre point.
func (e *Element) Center() Point { return e.Bounds.Center() }

// OutgoingTargets returns the target element of every outgoing connection,
// skipping dangling connections.
func (e *Element) OutgoingTargets() []*Element {
	var targets []*Element
	for _, c := range e.Outgoing {
		if c.Target != nil {
			targets = append(targets, c.Target)
		}
	}
	return targets
}

// IncomingSources returns the source element of every incoming connection,
// skipping dangling connections.
func (e *Element) IncomingSources() []*Element {
	var sources []*Element
	for _, c := range e.Incoming {
		if c.Source != nil {
			sources = append(sources, c.Source)
		}
	}
	return sources
}

// ConnectedTo reports whether a sequence flow links e and other in either
// direction.
func (e *Element) ConnectedTo(other *Element) bool {
	for _, c := range e.Outgoing {
		if c.Target == other {
			return true
		}
	}
	for _, c := range e.Incoming {
		if c.Source == other {
			return true
		}
	}
	return false
}
