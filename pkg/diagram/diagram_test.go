package diagram

import (
	"bytes"
	"testing"

	"github.com/flowgrid/flowgrid/pkg/model"
)

func sampleDiagram() Diagram {
	return Diagram{
		Name: "order-process",
		Elements: []Element{
			{ID: "pool", Type: "participant", Bounds: model.Bounds{Width: 600, Height: 300}},
			{ID: "start", Type: "startEvent", Parent: "pool", Bounds: model.Bounds{X: 40, Y: 120, Width: 36, Height: 36}},
			{ID: "sub", Type: "subProcess", Parent: "pool", Bounds: model.Bounds{X: 140, Y: 80, Width: 200, Height: 140}},
			{ID: "trigger", Type: "boundaryEvent", Parent: "pool", Host: "sub",
				Bounds: model.Bounds{X: 220, Y: 202, Width: 36, Height: 36},
				Label:  &model.Bounds{X: 210, Y: 242, Width: 60, Height: 14}},
			{ID: "end", Type: "endEvent", Parent: "pool", Bounds: model.Bounds{X: 420, Y: 120, Width: 36, Height: 36}},
		},
		Connections: []Connection{
			{ID: "f1", Source: "start", Target: "sub", Waypoints: []model.Point{{X: 76, Y: 138}, {X: 140, Y: 138}}},
			{ID: "f2", Source: "sub", Target: "end", Waypoints: []model.Point{{X: 340, Y: 138}, {X: 420, Y: 138}}},
		},
		HappyPath: []string{"f1", "f2"},
	}
}

func TestToRegistry(t *testing.T) {
	reg, err := ToRegistry(sampleDiagram())
	if err != nil {
		t.Fatalf("ToRegistry error: %v", err)
	}

	if reg.ElementCount() != 5 {
		t.Errorf("ElementCount = %d, want 5", reg.ElementCount())
	}
	if reg.ConnectionCount() != 2 {
		t.Errorf("ConnectionCount = %d, want 2", reg.ConnectionCount())
	}

	trigger := reg.Get("trigger")
	if trigger == nil {
		t.Fatal("Get(trigger) returned nil")
	}
	if trigger.Host == nil || trigger.Host.ID != "sub" {
		t.Error("trigger host reference not resolved")
	}
	if trigger.Parent == nil || trigger.Parent.ID != "pool" {
		t.Error("trigger parent reference not resolved")
	}
	if trigger.Label == nil {
		t.Error("trigger label bounds dropped")
	}
}

func TestToRegistryUnknownReference(t *testing.T) {
	d := Diagram{
		Elements: []Element{
			{ID: "a", Type: "task", Parent: "ghost"},
		},
	}
	if _, err := ToRegistry(d); err == nil {
		t.Error("ToRegistry should fail on unknown parent reference")
	}

	d = Diagram{
		Elements:    []Element{{ID: "a", Type: "task"}},
		Connections: []Connection{{ID: "f", Source: "a", Target: "ghost"}},
	}
	if _, err := ToRegistry(d); err == nil {
		t.Error("ToRegistry should fail on unknown connection target")
	}
}

func TestToRegistryBackfillsIDs(t *testing.T) {
	d := Diagram{
		Elements: []Element{
			{Type: "task", Bounds: model.Bounds{Width: 100, Height: 80}},
			{Type: "task", Bounds: model.Bounds{X: 200, Width: 100, Height: 80}},
		},
	}
	reg, err := ToRegistry(d)
	if err != nil {
		t.Fatalf("ToRegistry error: %v", err)
	}
	all := reg.All()
	if len(all) != 2 {
		t.Fatalf("ElementCount = %d, want 2", len(all))
	}
	if all[0].ID == "" || all[1].ID == "" || all[0].ID == all[1].ID {
		t.Errorf("ids should be generated and unique: %q, %q", all[0].ID, all[1].ID)
	}
}

func TestToRegistryForwardParentReference(t *testing.T) {
	// Child listed before its parent still resolves.
	d := Diagram{
		Elements: []Element{
			{ID: "inner", Type: "task", Parent: "sub"},
			{ID: "sub", Type: "subProcess"},
		},
	}
	reg, err := ToRegistry(d)
	if err != nil {
		t.Fatalf("ToRegistry error: %v", err)
	}
	inner := reg.Get("inner")
	if inner.Parent == nil || inner.Parent.ID != "sub" {
		t.Error("forward parent reference not resolved")
	}
}

func TestRoundTrip(t *testing.T) {
	original := sampleDiagram()

	reg, err := ToRegistry(original)
	if err != nil {
		t.Fatalf("ToRegistry error: %v", err)
	}
	restored := FromRegistry(reg)

	if len(restored.Elements) != len(original.Elements) {
		t.Fatalf("element count changed: %d -> %d", len(original.Elements), len(restored.Elements))
	}
	if len(restored.Connections) != len(original.Connections) {
		t.Fatalf("connection count changed: %d -> %d", len(original.Connections), len(restored.Connections))
	}

	byID := make(map[string]Element)
	for _, el := range restored.Elements {
		byID[el.ID] = el
	}
	for _, want := range original.Elements {
		got, ok := byID[want.ID]
		if !ok {
			t.Errorf("element %s lost in round trip", want.ID)
			continue
		}
		if got.Bounds != want.Bounds {
			t.Errorf("element %s bounds changed: %+v -> %+v", want.ID, want.Bounds, got.Bounds)
		}
		if got.Parent != want.Parent || got.Host != want.Host {
			t.Errorf("element %s references changed", want.ID)
		}
	}
}

func TestMarshalRead(t *testing.T) {
	original := sampleDiagram()

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	decoded, err := Read(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if decoded.Name != original.Name {
		t.Errorf("Name = %q, want %q", decoded.Name, original.Name)
	}
	if len(decoded.Elements) != len(original.Elements) {
		t.Errorf("Elements = %d, want %d", len(decoded.Elements), len(original.Elements))
	}
	if len(decoded.HappyPath) != 2 {
		t.Errorf("HappyPath = %v, want 2 entries", decoded.HappyPath)
	}
}

func TestReadInvalidJSON(t *testing.T) {
	if _, err := Read(bytes.NewReader([]byte("{not json"))); err == nil {
		t.Error("Read should fail on malformed JSON")
	}
}
