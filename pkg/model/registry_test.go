package model

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		typeTag string
		want    Category
	}{
		{"task", CategoryTask},
		{"userTask", CategoryTask},
		{"serviceTask", CategoryTask},
		{"callActivity", CategoryTask},
		{"startEvent", CategoryStartEvent},
		{"messageStartEvent", CategoryStartEvent},
		{"endEvent", CategoryEndEvent},
		{"intermediateCatchEvent", CategoryIntermediateEvent},
		{"intermediateThrowEvent", CategoryIntermediateEvent},
		{"boundaryEvent", CategoryBoundaryEvent},
		{"exclusiveGateway", CategoryGateway},
		{"parallelGateway", CategoryGateway},
		{"eventBasedGateway", CategoryGateway},
		{"subProcess", CategoryContainer},
		{"participant", CategoryContainer},
		{"lane", CategoryContainer},
		{"textAnnotation", CategoryArtifact},
		{"dataObjectReference", CategoryArtifact},
		{"dataStoreReference", CategoryArtifact},
		{"group", CategoryArtifact},
		{"somethingUnknown", CategoryTask},
	}

	for _, tt := range tests {
		t.Run(tt.typeTag, func(t *testing.T) {
			if got := Classify(tt.typeTag); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.typeTag, got, tt.want)
			}
		})
	}
}

func TestRegistryAddElement(t *testing.T) {
	reg := NewRegistry()

	el, err := reg.AddElement(ElementSpec{
		ID:     "t1",
		Type:   "userTask",
		Name:   "Review",
		Bounds: Bounds{X: 10, Y: 20, Width: 100, Height: 80},
	})
	if err != nil {
		t.Fatalf("AddElement error: %v", err)
	}
	if el.Category != CategoryTask {
		t.Errorf("Category = %v, want %v", el.Category, CategoryTask)
	}

	// Duplicate id rejected
	_, err = reg.AddElement(ElementSpec{ID: "t1", Type: "task"})
	if !errors.Is(err, ErrDuplicateID) {
		t.Errorf("duplicate id error = %v, want ErrDuplicateID", err)
	}

	// Empty id rejected
	_, err = reg.AddElement(ElementSpec{Type: "task"})
	if !errors.Is(err, ErrInvalidID) {
		t.Errorf("empty id error = %v, want ErrInvalidID", err)
	}

	// Unknown parent rejected
	_, err = reg.AddElement(ElementSpec{ID: "t2", Type: "task", ParentID: "ghost"})
	if !errors.Is(err, ErrUnknownElement) {
		t.Errorf("unknown parent error = %v, want ErrUnknownElement", err)
	}
}

func TestRegistryHierarchy(t *testing.T) {
	reg := NewRegistry()

	mustAdd(t, reg, ElementSpec{ID: "pool", Type: "participant", Bounds: Bounds{Width: 600, Height: 400}})
	mustAdd(t, reg, ElementSpec{ID: "sub", Type: "subProcess", ParentID: "pool", Bounds: Bounds{X: 50, Y: 50, Width: 300, Height: 200}})
	mustAdd(t, reg, ElementSpec{ID: "task", Type: "task", ParentID: "sub", Bounds: Bounds{X: 70, Y: 80, Width: 100, Height: 80}})
	mustAdd(t, reg, ElementSpec{ID: "trigger", Type: "boundaryEvent", ParentID: "pool", HostID: "sub", Bounds: Bounds{X: 180, Y: 232, Width: 36, Height: 36}})

	sub := reg.Get("sub")
	if sub == nil {
		t.Fatal("Get(sub) returned nil")
	}
	if sub.Parent == nil || sub.Parent.ID != "pool" {
		t.Error("sub should have pool as parent")
	}

	trigger := reg.Get("trigger")
	if trigger.Host == nil || trigger.Host.ID != "sub" {
		t.Error("trigger should have sub as host")
	}
	if !trigger.IsBoundary() {
		t.Error("trigger.IsBoundary() should be true")
	}

	children := reg.Children(sub)
	if len(children) != 1 || children[0].ID != "task" {
		t.Errorf("Children(sub) = %v, want [task]", ids(children))
	}

	triggers := reg.BoundaryEvents(sub)
	if len(triggers) != 1 || triggers[0].ID != "trigger" {
		t.Errorf("BoundaryEvents(sub) = %v, want [trigger]", ids(triggers))
	}
}

func TestRegistryAddConnection(t *testing.T) {
	reg := NewRegistry()
	mustAdd(t, reg, ElementSpec{ID: "a", Type: "task", Bounds: Bounds{Width: 100, Height: 80}})
	mustAdd(t, reg, ElementSpec{ID: "b", Type: "task", Bounds: Bounds{X: 200, Width: 100, Height: 80}})

	conn, err := reg.AddConnection(ConnectionSpec{
		ID:       "f1",
		SourceID: "a",
		TargetID: "b",
	})
	if err != nil {
		t.Fatalf("AddConnection error: %v", err)
	}
	if conn.Source.ID != "a" || conn.Target.ID != "b" {
		t.Error("connection endpoints not resolved")
	}

	a := reg.Get("a")
	b := reg.Get("b")
	if len(a.Outgoing) != 1 || a.Outgoing[0].ID != "f1" {
		t.Error("source.Outgoing not wired")
	}
	if len(b.Incoming) != 1 || b.Incoming[0].ID != "f1" {
		t.Error("target.Incoming not wired")
	}
	if !a.ConnectedTo(b) {
		t.Error("a.ConnectedTo(b) should be true")
	}

	// Unknown endpoint rejected
	_, err = reg.AddConnection(ConnectionSpec{ID: "f2", SourceID: "a", TargetID: "ghost"})
	if !errors.Is(err, ErrUnknownElement) {
		t.Errorf("unknown target error = %v, want ErrUnknownElement", err)
	}
}

func TestRegistryInsertionOrder(t *testing.T) {
	reg := NewRegistry()
	want := []string{"c", "a", "b"}
	for _, id := range want {
		mustAdd(t, reg, ElementSpec{ID: id, Type: "task"})
	}

	got := ids(reg.All())
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("All() order = %v, want %v", got, want)
		}
	}
}

func TestBoundsGeometry(t *testing.T) {
	b := Bounds{X: 10, Y: 20, Width: 100, Height: 80}

	if b.CenterX() != 60 || b.CenterY() != 60 {
		t.Errorf("center = (%v, %v), want (60, 60)", b.CenterX(), b.CenterY())
	}
	if b.Right() != 110 || b.Bottom() != 100 {
		t.Errorf("right/bottom = (%v, %v), want (110, 100)", b.Right(), b.Bottom())
	}
	if !b.Contains(Point{X: 60, Y: 60}) {
		t.Error("Contains(center) should be true")
	}
	if b.Contains(Point{X: 5, Y: 60}) {
		t.Error("Contains(outside) should be false")
	}

	moved := b.Translated(5, -10)
	if moved.X != 15 || moved.Y != 10 {
		t.Errorf("Translated = (%v, %v), want (15, 10)", moved.X, moved.Y)
	}
	// Original unchanged
	if b.X != 10 || b.Y != 20 {
		t.Error("Translated should not mutate the receiver")
	}
}

func TestConnectionGeometry(t *testing.T) {
	c := &Connection{Waypoints: []Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 50}}}

	if !c.IsOrthogonal(1) {
		t.Error("axis-aligned polyline should be orthogonal")
	}
	if got := c.Length(); got != 150 {
		t.Errorf("Length = %v, want 150", got)
	}

	diag := &Connection{Waypoints: []Point{{X: 0, Y: 0}, {X: 50, Y: 40}}}
	if diag.IsOrthogonal(1) {
		t.Error("diagonal segment should not be orthogonal")
	}
}

func TestIsBackward(t *testing.T) {
	reg := NewRegistry()
	mustAdd(t, reg, ElementSpec{ID: "left", Type: "task", Bounds: Bounds{X: 0, Width: 100, Height: 80}})
	mustAdd(t, reg, ElementSpec{ID: "right", Type: "task", Bounds: Bounds{X: 300, Width: 100, Height: 80}})

	fwd, err := reg.AddConnection(ConnectionSpec{ID: "fwd", SourceID: "left", TargetID: "right"})
	if err != nil {
		t.Fatal(err)
	}
	back, err := reg.AddConnection(ConnectionSpec{ID: "back", SourceID: "right", TargetID: "left"})
	if err != nil {
		t.Fatal(err)
	}

	if fwd.IsBackward() {
		t.Error("forward flow flagged as backward")
	}
	if !back.IsBackward() {
		t.Error("loopback flow not flagged as backward")
	}
}

func mustAdd(t *testing.T, reg *Registry, spec ElementSpec) *Element {
	t.Helper()
	el, err := reg.AddElement(spec)
	if err != nil {
		t.Fatalf("AddElement %s: %v", spec.ID, err)
	}
	return el
}

func ids(elements []*Element) []string {
	out := make([]string, len(elements))
	for i, e := range elements {
		out[i] = e.ID
	}
	return out
}
