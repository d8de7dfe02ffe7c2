package refine

import (
	"io"
	"math"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/flowgrid/flowgrid/pkg/model"
)

// quietEngine builds an engine over reg with debug output discarded.
func quietEngine(reg *model.Registry, opts ...Option) *Engine {
	opts = append([]Option{WithLogger(log.New(io.Discard))}, opts...)
	return New(reg, opts...)
}

// testCtx derives a passContext the way Layout does, including the
// exception-chain discovery.
func testCtx(reg *model.Registry, happyConns ...string) *passContext {
	e := quietEngine(reg)
	p := e.newPassContext(Options{HappyPath: happyConns})
	p.exception = discoverExceptionChains(p, nil)
	return p
}

func addShape(t *testing.T, reg *model.Registry, id, typ string, x, y, w, h float64) *model.Element {
	t.Helper()
	el, err := reg.AddElement(model.ElementSpec{
		ID: id, Type: typ,
		Bounds: model.Bounds{X: x, Y: y, Width: w, Height: h},
	})
	if err != nil {
		t.Fatalf("AddElement %s: %v", id, err)
	}
	return el
}

func addHosted(t *testing.T, reg *model.Registry, id, hostID string, x, y float64) *model.Element {
	t.Helper()
	el, err := reg.AddElement(model.ElementSpec{
		ID: id, Type: "boundaryEvent", HostID: hostID,
		Bounds: model.Bounds{X: x, Y: y, Width: 36, Height: 36},
	})
	if err != nil {
		t.Fatalf("AddElement %s: %v", id, err)
	}
	return el
}

func connect(t *testing.T, reg *model.Registry, id, src, dst string, wps ...model.Point) *model.Connection {
	t.Helper()
	c, err := reg.AddConnection(model.ConnectionSpec{
		ID: id, SourceID: src, TargetID: dst, Waypoints: wps,
	})
	if err != nil {
		t.Fatalf("AddConnection %s: %v", id, err)
	}
	return c
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// task, event, and gateway helpers with nominal dimensions.
func addTask(t *testing.T, reg *model.Registry, id string, x, y float64) *model.Element {
	return addShape(t, reg, id, "task", x, y, 100, 80)
}

func addEvent(t *testing.T, reg *model.Registry, id, typ string, x, y float64) *model.Element {
	return addShape(t, reg, id, typ, x, y, 36, 36)
}

func addGateway(t *testing.T, reg *model.Registry, id string, x, y float64) *model.Element {
	return addShape(t, reg, id, "exclusiveGateway", x, y, 50, 50)
}
