package refine

import (
	"testing"

	"github.com/flowgrid/flowgrid/pkg/model"
)

func TestStraightRoute(t *testing.T) {
	src := model.Bounds{X: 0, Y: 0, Width: 100, Height: 80}
	dst := model.Bounds{X: 300, Y: 0, Width: 100, Height: 80}

	fwd := straightRoute(src, dst)
	want := []model.Point{{X: 100, Y: 40}, {X: 300, Y: 40}}
	if !equalPoints(fwd, want) {
		t.Errorf("forward route = %v, want %v", fwd, want)
	}

	back := straightRoute(dst, src)
	want = []model.Point{{X: 300, Y: 40}, {X: 100, Y: 40}}
	if !equalPoints(back, want) {
		t.Errorf("backward route = %v, want %v", back, want)
	}
}

func TestZRoute(t *testing.T) {
	src := model.Bounds{X: 0, Y: 0, Width: 100, Height: 80}
	dst := model.Bounds{X: 300, Y: 200, Width: 100, Height: 80}

	got := zRoute(src, dst)
	want := []model.Point{
		{X: 100, Y: 40},
		{X: 200, Y: 40},
		{X: 200, Y: 240},
		{X: 300, Y: 240},
	}
	if !equalPoints(got, want) {
		t.Errorf("zRoute = %v, want %v", got, want)
	}
}

func TestNearestBoundaryPoint(t *testing.T) {
	b := model.Bounds{X: 0, Y: 0, Width: 100, Height: 80}
	tests := []struct {
		name string
		in   model.Point
		want model.Point
	}{
		{name: "right of box", in: model.Point{X: 200, Y: 40}, want: model.Point{X: 100, Y: 40}},
		{name: "below box", in: model.Point{X: 50, Y: 200}, want: model.Point{X: 50, Y: 80}},
		{name: "inside pushes to closest edge", in: model.Point{X: 95, Y: 40}, want: model.Point{X: 100, Y: 40}},
		{name: "corner region", in: model.Point{X: -20, Y: -20}, want: model.Point{X: 0, Y: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nearestBoundaryPoint(b, tt.in); got != tt.want {
				t.Errorf("nearestBoundaryPoint(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRepairDisconnectedStraight(t *testing.T) {
	reg := model.NewRegistry()
	addTask(t, reg, "a", 0, 0)
	addTask(t, reg, "b", 200, 0)
	c := connect(t, reg, "f", "a", "b",
		model.Point{X: 50, Y: 200}, model.Point{X: 150, Y: 200})
	p := testCtx(reg)

	repairDisconnected(p)

	want := []model.Point{{X: 100, Y: 40}, {X: 200, Y: 40}}
	if !equalPoints(c.Waypoints, want) {
		t.Errorf("same-row repair = %v, want straight %v", c.Waypoints, want)
	}
}

func TestRepairDisconnectedZBend(t *testing.T) {
	reg := model.NewRegistry()
	addTask(t, reg, "a", 0, 0)
	addTask(t, reg, "b", 300, 200)
	c := connect(t, reg, "f", "a", "b",
		model.Point{X: 500, Y: 500}, model.Point{X: 600, Y: 600})
	p := testCtx(reg)

	repairDisconnected(p)

	want := []model.Point{
		{X: 100, Y: 40},
		{X: 200, Y: 40},
		{X: 200, Y: 240},
		{X: 300, Y: 240},
	}
	if !equalPoints(c.Waypoints, want) {
		t.Errorf("cross-row repair = %v, want %v", c.Waypoints, want)
	}
}

func TestRepairDisconnectedNudge(t *testing.T) {
	reg := model.NewRegistry()
	addTask(t, reg, "a", 0, 0)
	addTask(t, reg, "b", 300, 200)
	// Source end is attached; only the target end drifted.
	c := connect(t, reg, "f", "a", "b",
		model.Point{X: 100, Y: 40},
		model.Point{X: 200, Y: 40},
		model.Point{X: 200, Y: 300},
		model.Point{X: 250, Y: 300})
	p := testCtx(reg)

	repairDisconnected(p)

	last := c.Waypoints[len(c.Waypoints)-1]
	if (last != model.Point{X: 300, Y: 280}) {
		t.Errorf("nudged endpoint = %v, want (300, 280)", last)
	}
	// The adjacent waypoint follows so the final segment stays horizontal.
	if prev := c.Waypoints[len(c.Waypoints)-2]; prev.Y != 280 {
		t.Errorf("adjacent waypoint y = %v, want 280", prev.Y)
	}
	if f := c.Waypoints[0]; (f != model.Point{X: 100, Y: 40}) {
		t.Errorf("attached source end moved to %v", f)
	}
}

func TestSnapCenterlines(t *testing.T) {
	reg := model.NewRegistry()
	addTask(t, reg, "a", 0, 0)
	addTask(t, reg, "b", 300, 0)
	c := connect(t, reg, "f", "a", "b",
		model.Point{X: 100, Y: 36}, model.Point{X: 300, Y: 36})
	p := testCtx(reg)

	snapCenterlines(p)

	for i, pt := range c.Waypoints {
		if pt.Y != 40 {
			t.Errorf("waypoint %d y = %v, want centreline 40", i, pt.Y)
		}
	}
}

func TestSnapCenterlinesRespectsTolerance(t *testing.T) {
	reg := model.NewRegistry()
	addTask(t, reg, "a", 0, 0)
	addTask(t, reg, "b", 300, 0)
	// 25 off-centre, well beyond the snap tolerance.
	c := connect(t, reg, "f", "a", "b",
		model.Point{X: 100, Y: 65}, model.Point{X: 300, Y: 65})
	p := testCtx(reg)

	snapCenterlines(p)

	if c.Waypoints[0].Y != 65 {
		t.Errorf("endpoint beyond tolerance moved to y=%v", c.Waypoints[0].Y)
	}
}

func TestRebuildOffRowGatewayRoutes(t *testing.T) {
	reg := model.NewRegistry()
	addGateway(t, reg, "gw", 0, 0)
	addTask(t, reg, "b", 200, 200)
	c := connect(t, reg, "f", "gw", "b",
		model.Point{X: 50, Y: 25}, model.Point{X: 200, Y: 240})
	p := testCtx(reg)

	rebuildOffRowGatewayRoutes(p)

	want := []model.Point{
		{X: 25, Y: 50},   // leaves through the gateway bottom
		{X: 25, Y: 240},  // drops to the target row
		{X: 200, Y: 240}, // enters the facing edge
	}
	if !equalPoints(c.Waypoints, want) {
		t.Errorf("gateway route = %v, want %v", c.Waypoints, want)
	}
}

func TestRebuildOffRowGatewayToGateway(t *testing.T) {
	reg := model.NewRegistry()
	addGateway(t, reg, "src", 0, 0)    // centre (25, 25)
	addGateway(t, reg, "dst", 200, 200) // centre (225, 225)
	c := connect(t, reg, "f", "src", "dst",
		model.Point{X: 50, Y: 25}, model.Point{X: 200, Y: 225})
	p := testCtx(reg)

	rebuildOffRowGatewayRoutes(p)

	want := []model.Point{
		{X: 25, Y: 50},   // leaves through the source bottom
		{X: 25, Y: 125},  // midpoint between the facing borders
		{X: 225, Y: 125},
		{X: 225, Y: 200}, // enters through the target top, never a side
	}
	if !equalPoints(c.Waypoints, want) {
		t.Errorf("gateway-to-gateway route = %v, want %v", c.Waypoints, want)
	}
}

func TestSeparateOverlappingFlows(t *testing.T) {
	reg := model.NewRegistry()
	addGateway(t, reg, "gw", 0, 0)
	addTask(t, reg, "near", 200, -15)
	addTask(t, reg, "far", 500, -15)
	short := connect(t, reg, "s", "gw", "near",
		model.Point{X: 50, Y: 25}, model.Point{X: 200, Y: 25})
	long := connect(t, reg, "l", "gw", "far",
		model.Point{X: 50, Y: 25}, model.Point{X: 500, Y: 25})
	p := testCtx(reg)

	separateOverlappingFlows(p)

	if len(short.Waypoints) != 2 {
		t.Errorf("short flow rerouted: %v", short.Waypoints)
	}
	want := []model.Point{
		{X: 50, Y: 25},
		{X: 50, Y: 45},
		{X: 500, Y: 45},
		{X: 500, Y: 25},
	}
	if !equalPoints(long.Waypoints, want) {
		t.Errorf("detoured flow = %v, want %v", long.Waypoints, want)
	}
}

func TestRouteLoopbacks(t *testing.T) {
	reg := model.NewRegistry()
	addTask(t, reg, "a", 400, 0)
	addTask(t, reg, "b", 0, 0)
	addTask(t, reg, "low", 200, 300) // lowest element, bottom 380
	c := connect(t, reg, "loop", "a", "b",
		model.Point{X: 400, Y: 40}, model.Point{X: 100, Y: 40})
	p := testCtx(reg)

	routeLoopbacks(p)

	clearY := 380 + p.cfg.LoopbackClearance
	want := []model.Point{
		{X: 450, Y: 80},
		{X: 450, Y: clearY},
		{X: 50, Y: clearY},
		{X: 50, Y: 80},
	}
	if !equalPoints(c.Waypoints, want) {
		t.Errorf("loopback route = %v, want %v", c.Waypoints, want)
	}
}

func TestRouteLoopbacksLeavesForwardFlows(t *testing.T) {
	reg := model.NewRegistry()
	addTask(t, reg, "a", 0, 0)
	addTask(t, reg, "b", 300, 0)
	c := connect(t, reg, "f", "a", "b",
		model.Point{X: 100, Y: 40}, model.Point{X: 300, Y: 40})
	p := testCtx(reg)

	routeLoopbacks(p)

	want := []model.Point{{X: 100, Y: 40}, {X: 300, Y: 40}}
	if !equalPoints(c.Waypoints, want) {
		t.Errorf("forward flow rerouted: %v", c.Waypoints)
	}
}

func TestSimplify(t *testing.T) {
	tests := []struct {
		name string
		in   []model.Point
		want []model.Point
	}{
		{
			name: "collinear interior dropped",
			in:   []model.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 200, Y: 0}},
			want: []model.Point{{X: 0, Y: 0}, {X: 200, Y: 0}},
		},
		{
			name: "duplicate dropped",
			in:   []model.Point{{X: 0, Y: 0}, {X: 0, Y: 0}, {X: 0, Y: 100}},
			want: []model.Point{{X: 0, Y: 0}, {X: 0, Y: 100}},
		},
		{
			name: "micro bend within tolerance dropped",
			in:   []model.Point{{X: 0, Y: 0}, {X: 100, Y: 2}, {X: 200, Y: 0}},
			want: []model.Point{{X: 0, Y: 0}, {X: 200, Y: 0}},
		},
		{
			name: "real bend kept",
			in:   []model.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}},
			want: []model.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := simplify(tt.in, 3); !equalPoints(got, tt.want) {
				t.Errorf("simplify = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSnapOrthogonal(t *testing.T) {
	in := []model.Point{{X: 0, Y: 0}, {X: 1.5, Y: 100}, {X: 101.5, Y: 101}}
	got := snapOrthogonal(in, 2)

	if got[1].X != 0 {
		t.Errorf("near-vertical segment x = %v, want 0", got[1].X)
	}
	if got[2].Y != 100 {
		t.Errorf("near-horizontal segment y = %v, want 100", got[2].Y)
	}
}

func TestRoutingPassesProduceOrthogonalRoutes(t *testing.T) {
	reg := model.NewRegistry()
	addTask(t, reg, "a", 0, 0)
	addTask(t, reg, "b", 200, 0)
	addTask(t, reg, "c", 400, 150)
	connect(t, reg, "f1", "a", "b",
		model.Point{X: 90, Y: 33}, model.Point{X: 210, Y: 47})
	connect(t, reg, "f2", "b", "c",
		model.Point{X: 700, Y: 700}, model.Point{X: 800, Y: 800})
	connect(t, reg, "back", "c", "a",
		model.Point{X: 400, Y: 190}, model.Point{X: 100, Y: 40})
	p := testCtx(reg)

	routingPasses(p)

	for _, c := range reg.Connections() {
		if !c.IsOrthogonal(0.01) {
			t.Errorf("connection %s not orthogonal after repair: %v", c.ID, c.Waypoints)
		}
	}
}
