package refine

import (
	"testing"

	"github.com/flowgrid/flowgrid/pkg/model"
)

func TestChooseBoundaryBorder(t *testing.T) {
	tests := []struct {
		name           string
		targetX, targetY float64
		want           Border
	}{
		{name: "target below", targetX: 0, targetY: 300, want: BorderBottom},
		{name: "target clearly above", targetX: 0, targetY: -300, want: BorderTop},
		{name: "target clearly left", targetX: -400, targetY: 0, want: BorderLeft},
		{name: "target right stays bottom", targetX: 400, targetY: 0, want: BorderBottom},
		{name: "ambiguous defaults bottom", targetX: 10, targetY: 10, want: BorderBottom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := model.NewRegistry()
			addTask(t, reg, "host", 0, 0)
			trigger := addHosted(t, reg, "trigger", "host", 30, 62)
			addShape(t, reg, "target", "task", tt.targetX, tt.targetY, 100, 80)
			connect(t, reg, "f", "trigger", "target")

			host := reg.Get("host")
			if got := chooseBoundaryBorder(trigger, host); got != tt.want {
				t.Errorf("chooseBoundaryBorder = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChooseBoundaryBorderMultipleTargets(t *testing.T) {
	reg := model.NewRegistry()
	addTask(t, reg, "host", 0, 0)
	trigger := addHosted(t, reg, "trigger", "host", 30, 62)
	addShape(t, reg, "t1", "task", 0, -300, 100, 80)
	addShape(t, reg, "t2", "task", 0, 300, 100, 80)
	connect(t, reg, "f1", "trigger", "t1")
	connect(t, reg, "f2", "trigger", "t2")

	if got := chooseBoundaryBorder(trigger, reg.Get("host")); got != BorderBottom {
		t.Errorf("multiple targets should default to bottom, got %v", got)
	}
}

func TestRepositionTriggerForced(t *testing.T) {
	reg := model.NewRegistry()
	host := addTask(t, reg, "host", 0, 0)
	// Parked far away by the solver.
	trigger := addHosted(t, reg, "trigger", "host", 500, 500)
	p := testCtx(reg)

	repositionTrigger(p, trigger, true)

	c := trigger.Center()
	if !almostEqual(c.X, host.Bounds.CenterX(), 0.5) || !almostEqual(c.Y, host.Bounds.Bottom(), 0.5) {
		t.Errorf("trigger centre = (%v, %v), want bottom-border anchor (%v, %v)",
			c.X, c.Y, host.Bounds.CenterX(), host.Bounds.Bottom())
	}
}

func TestRepositionTriggerKeepsNearby(t *testing.T) {
	reg := model.NewRegistry()
	addTask(t, reg, "host", 0, 0)
	// Centre on the host's bottom-right region, within proximity.
	trigger := addHosted(t, reg, "trigger", "host", 60, 62)
	p := testCtx(reg)

	before := trigger.Center()
	repositionTrigger(p, trigger, false)

	if trigger.Center() != before {
		t.Error("trigger within proximity should keep its manual position")
	}
}

func TestSpreadTriggers(t *testing.T) {
	reg := model.NewRegistry()
	host := addShape(t, reg, "host", "task", 0, 0, 200, 80)
	// Both already on the bottom border, overlapping near the middle.
	t1 := addHosted(t, reg, "t1", "host", 80, 62)
	t2 := addHosted(t, reg, "t2", "host", 90, 62)
	p := testCtx(reg)

	spreadTriggers(p, []*model.Element{t1, t2})

	hb := host.Bounds
	margin := hb.Width * p.cfg.BorderSpreadMargin
	if !almostEqual(t1.Bounds.CenterX(), hb.X+margin, 0.5) {
		t.Errorf("first trigger centre = %v, want %v", t1.Bounds.CenterX(), hb.X+margin)
	}
	if !almostEqual(t2.Bounds.CenterX(), hb.Right()-margin, 0.5) {
		t.Errorf("second trigger centre = %v, want %v", t2.Bounds.CenterX(), hb.Right()-margin)
	}
	if t1.Bounds.CenterX() >= t2.Bounds.CenterX() {
		t.Error("spreading should preserve relative order")
	}
}

func TestDiscoverExceptionChains(t *testing.T) {
	reg := model.NewRegistry()
	addTask(t, reg, "host", 0, 0)
	addHosted(t, reg, "trigger", "host", 50, 62)
	addTask(t, reg, "handle", 50, 200)
	addTask(t, reg, "retry", 250, 200)
	addTask(t, reg, "main", 200, 0)
	addEvent(t, reg, "done", "endEvent", 400, 22)
	connect(t, reg, "h1", "host", "main")
	connect(t, reg, "h2", "main", "done")
	connect(t, reg, "e1", "trigger", "handle")
	connect(t, reg, "e2", "handle", "retry")
	p := testCtx(reg, "h1", "h2")

	chain := discoverExceptionChains(p, nil)

	for _, id := range []string{"handle", "retry"} {
		if !chain[id] {
			t.Errorf("%s should be in the exception chain", id)
		}
	}
	for _, id := range []string{"host", "main", "done"} {
		if chain[id] {
			t.Errorf("%s must never join the exception chain", id)
		}
	}

	// Soundness: every incoming connection of a chain member originates
	// from a boundary event or another member.
	for id := range chain {
		for _, conn := range reg.Get(id).Incoming {
			src := conn.Source
			if !src.IsBoundary() && !chain[src.ID] {
				t.Errorf("chain member %s has incoming from outsider %s", id, src.ID)
			}
		}
	}
}

func TestDiscoverExceptionChainsMixedEntryExcluded(t *testing.T) {
	reg := model.NewRegistry()
	addTask(t, reg, "host", 0, 0)
	addHosted(t, reg, "trigger", "host", 50, 62)
	addTask(t, reg, "shared", 200, 100)
	addTask(t, reg, "main", 200, 0)
	connect(t, reg, "h1", "host", "main")
	connect(t, reg, "e1", "trigger", "shared")
	connect(t, reg, "m1", "main", "shared") // also fed by the primary flow
	p := testCtx(reg, "h1")

	chain := discoverExceptionChains(p, nil)
	if chain["shared"] {
		t.Error("element reachable from the primary flow must not join the chain")
	}
}

func TestPlaceExceptionChains(t *testing.T) {
	reg := model.NewRegistry()
	addTask(t, reg, "host", 0, 0)
	trigger := addHosted(t, reg, "trigger", "host", 32, 62) // centre (50, 80)
	handle := addTask(t, reg, "handle", 300, 300)
	second := addTask(t, reg, "second", 600, 300)
	connect(t, reg, "e1", "trigger", "handle")
	connect(t, reg, "e2", "handle", "second")
	p := testCtx(reg)

	placeExceptionChains(p)

	wantRow := trigger.Bounds.CenterY() + p.cfg.ExceptionRowOffset
	if !almostEqual(handle.Bounds.CenterY(), wantRow, 0.5) {
		t.Errorf("chain head row = %v, want %v", handle.Bounds.CenterY(), wantRow)
	}
	if !almostEqual(second.Bounds.CenterY(), wantRow, 0.5) {
		t.Errorf("chain member row = %v, want %v", second.Bounds.CenterY(), wantRow)
	}
	// Head centred under the trigger, successor to its right.
	if !almostEqual(handle.Bounds.CenterX(), trigger.Bounds.CenterX(), 0.5) {
		t.Errorf("chain head centre x = %v, want %v", handle.Bounds.CenterX(), trigger.Bounds.CenterX())
	}
	gap := second.Bounds.X - handle.Bounds.Right()
	if !almostEqual(gap, p.cfg.ExceptionChainGap, 0.5) {
		t.Errorf("chain gap = %v, want %v", gap, p.cfg.ExceptionChainGap)
	}
}

func TestPlaceExceptionChainsStack(t *testing.T) {
	reg := model.NewRegistry()
	addShape(t, reg, "host", "task", 0, 0, 200, 80)
	t1 := addHosted(t, reg, "t1", "host", 40, 62)
	t2 := addHosted(t, reg, "t2", "host", 120, 62)
	c1 := addTask(t, reg, "c1", 300, 300)
	c2 := addTask(t, reg, "c2", 300, 500)
	connect(t, reg, "e1", "t1", "c1")
	connect(t, reg, "e2", "t2", "c2")
	p := testCtx(reg)

	placeExceptionChains(p)

	row1 := t1.Bounds.CenterY() + p.cfg.ExceptionRowOffset
	row2 := t2.Bounds.CenterY() + p.cfg.ExceptionRowOffset + p.cfg.ExceptionStackGap
	if !almostEqual(c1.Bounds.CenterY(), row1, 0.5) {
		t.Errorf("first chain row = %v, want %v", c1.Bounds.CenterY(), row1)
	}
	if !almostEqual(c2.Bounds.CenterY(), row2, 0.5) {
		t.Errorf("second chain row = %v, want %v", c2.Bounds.CenterY(), row2)
	}
}

func TestCorrectSubflowPlacementMirrorsAboveChain(t *testing.T) {
	reg := model.NewRegistry()
	addTask(t, reg, "host", 0, 100) // centre y 140
	addHosted(t, reg, "trigger", "host", 32, 162)
	stranded := addTask(t, reg, "stranded", 300, 0) // centre y 40, above the host
	connect(t, reg, "e1", "trigger", "stranded")
	p := testCtx(reg)

	correctSubflowPlacement(p)

	if stranded.Bounds.CenterY() <= reg.Get("host").Bounds.CenterY() {
		t.Errorf("stranded chain should be mirrored below the host, got centre %v",
			stranded.Bounds.CenterY())
	}
}

func TestBoundaryPassAdherence(t *testing.T) {
	reg := model.NewRegistry()
	host := addShape(t, reg, "host", "task", 0, 0, 200, 80)
	t1 := addHosted(t, reg, "t1", "host", 400, 400)
	t2 := addHosted(t, reg, "t2", "host", 500, 500)
	addTask(t, reg, "c1", 700, 0)
	addTask(t, reg, "c2", 800, 0)
	connect(t, reg, "e1", "t1", "c1")
	connect(t, reg, "e2", "t2", "c2")
	p := testCtx(reg)

	boundaryPass(p, true)

	// Both triggers end up on the bottom border without overlapping.
	for _, tr := range []*model.Element{t1, t2} {
		if !almostEqual(tr.Bounds.CenterY(), host.Bounds.Bottom(), 0.5) {
			t.Errorf("%s centre y = %v, want host bottom %v", tr.ID, tr.Bounds.CenterY(), host.Bounds.Bottom())
		}
	}
	if t1.Bounds.Right() > t2.Bounds.X && t2.Bounds.Right() > t1.Bounds.X {
		t.Error("triggers on the same border must not overlap")
	}
}
