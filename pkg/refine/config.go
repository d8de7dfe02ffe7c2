// Package refine implements the diagram layout refinement engine.
//
// The engine takes the coarse coordinates produced by a layered-graph-layout
// solver plus a snapshot of the diagram's shapes and connections, and
// transforms them into the visually conventional arrangement a practiced
// diagram author would produce by hand: discrete columns with category-aware
// gaps, a straightened primary flow, boundary events pinned to host borders
// with their exception sub-flows placed beneath, and strictly orthogonal
// connection routes.
//
// # Pass ordering
//
// Correctness depends on strict pass ordering, not on synchronization - the
// engine is single-threaded and each pass assumes invariants established by
// the previous one:
//
//  1. Apply solver output to the registry
//  2. Detect layers (x-columns)
//  3. Grid snap (re-column layers, redistribute rows)
//  4. Alignment passes (gateways, branches, end events, happy path)
//  5. Boundary-event subsystem (borders, spreading, exception chains)
//  6. Edge-routing repair
//  7. Crossing reduction and pixel snap
//  8. Re-anchor to the pre-run origin
//
// Every pass is individually idempotent: re-running the full pipeline on an
// already-refined diagram produces no further changes above the movement
// threshold.
package refine

// Config collects every tuning constant of the refinement engine in one
// explicit structure. All distances are in diagram pixels.
//
// The zero value is not usable; start from [DefaultConfig] or load a partial
// TOML profile over it. Zero-valued fields are backfilled with defaults by
// the engine, so profiles only need to name the knobs they change.
type Config struct {
	// BaseSpacing is the nominal horizontal gap between adjacent layers.
	BaseSpacing float64 `toml:"base_spacing"`
	// NodeSpacing is the nominal vertical gap between elements in a layer.
	NodeSpacing float64 `toml:"node_spacing"`
	// BranchSpacing is the tightened vertical gap used when every element in
	// a layer shares one fork/join gateway.
	BranchSpacing float64 `toml:"branch_spacing"`
	// SubflowSpacing is the tightened vertical gap used when a layer mixes a
	// primary-flow element with an exception sub-flow target.
	SubflowSpacing float64 `toml:"subflow_spacing"`

	// ConnectionGuard is the minimum x-separation at which a direct flow
	// between two shapes forces them into different layers even when their
	// centres fall within the layer threshold.
	ConnectionGuard float64 `toml:"connection_guard"`

	// GatewayGapAdjust, EventGapAdjust, and IntermediateGapAdjust widen the
	// inter-layer gap next to layers dominated by small shapes, so gateways
	// and events read as visually balanced beside full-size tasks.
	GatewayGapAdjust      float64 `toml:"gateway_gap_adjust"`
	EventGapAdjust        float64 `toml:"event_gap_adjust"`
	IntermediateGapAdjust float64 `toml:"intermediate_gap_adjust"`
	// HostExtraGap widens the gap after any layer hosting a boundary-event
	// host, reserving room for the exception sub-flow placed beneath it.
	HostExtraGap float64 `toml:"host_extra_gap"`

	// BoundaryProximity is how far a boundary event's centre may drift from
	// its host's bounds before it is snapped back onto a border.
	BoundaryProximity float64 `toml:"boundary_proximity"`
	// BorderSpreadMargin is the fraction of a border's length kept clear at
	// each end when spreading multiple boundary events across it.
	BorderSpreadMargin float64 `toml:"border_spread_margin"`

	// ExceptionRowOffset is the vertical distance from a boundary event's
	// centre to the first element of its exception chain.
	ExceptionRowOffset float64 `toml:"exception_row_offset"`
	// ExceptionChainGap is the horizontal gap between consecutive exception
	// chain elements.
	ExceptionChainGap float64 `toml:"exception_chain_gap"`
	// ExceptionStackGap is the extra vertical offset per additional chain
	// when one host carries several boundary events.
	ExceptionStackGap float64 `toml:"exception_stack_gap"`

	// DisconnectTolerance is how far a route endpoint may sit from its
	// element's boundary before the route is rebuilt.
	DisconnectTolerance float64 `toml:"disconnect_tolerance"`
	// CenterSnapTolerance is the radius within which an endpoint's cross-axis
	// coordinate snaps to the element centre line.
	CenterSnapTolerance float64 `toml:"center_snap_tolerance"`
	// OverlapDetour is the vertical offset applied to the longer of two
	// flows sharing a collinear segment out of one gateway.
	OverlapDetour float64 `toml:"overlap_detour"`
	// LoopbackClearance is how far below the lowest element a backward
	// flow's U-route dips.
	LoopbackClearance float64 `toml:"loopback_clearance"`
	// MicroBendTolerance is the axis delta below which a waypoint counts as
	// a removable micro-bend.
	MicroBendTolerance float64 `toml:"micro_bend_tolerance"`
	// OrthoSnapTolerance is the axis delta below which a nearly-straight
	// segment is forced exactly straight.
	OrthoSnapTolerance float64 `toml:"ortho_snap_tolerance"`

	// WobbleTolerance is the radius around the happy-path median within
	// which elements snap onto the median row.
	WobbleTolerance float64 `toml:"wobble_tolerance"`
	// ImportCorrectionRadius is the extended correction radius used when the
	// diagram was imported with widely varying original coordinates.
	ImportCorrectionRadius float64 `toml:"import_correction_radius"`

	// MovementThreshold suppresses sub-pixel moves so repeated runs converge
	// instead of oscillating.
	MovementThreshold float64 `toml:"movement_threshold"`
	// PixelGrid is the final quantization grid for shape positions and
	// interior waypoints. Zero disables quantization.
	PixelGrid float64 `toml:"pixel_grid"`

	// Nominal sizes used when an element is missing width or height.
	TaskWidth     float64 `toml:"task_width"`
	TaskHeight    float64 `toml:"task_height"`
	EventSize     float64 `toml:"event_size"`
	GatewaySize   float64 `toml:"gateway_size"`
	ArtifactWidth float64 `toml:"artifact_width"`
}

// DefaultConfig returns the tuned default configuration.
func DefaultConfig() Config {
	return Config{
		BaseSpacing:    80,
		NodeSpacing:    60,
		BranchSpacing:  40,
		SubflowSpacing: 50,

		ConnectionGuard: 5,

		GatewayGapAdjust:      8,
		EventGapAdjust:        14,
		IntermediateGapAdjust: 10,
		HostExtraGap:          30,

		BoundaryProximity:  20,
		BorderSpreadMargin: 0.1,

		ExceptionRowOffset: 80,
		ExceptionChainGap:  50,
		ExceptionStackGap:  70,

		DisconnectTolerance: 8,
		CenterSnapTolerance: 10,
		OverlapDetour:       20,
		LoopbackClearance:   40,
		MicroBendTolerance:  3,
		OrthoSnapTolerance:  2,

		WobbleTolerance:        10,
		ImportCorrectionRadius: 60,

		MovementThreshold: 1,
		PixelGrid:         10,

		TaskWidth:     100,
		TaskHeight:    80,
		EventSize:     36,
		GatewaySize:   50,
		ArtifactWidth: 50,
	}
}

// withDefaults backfills zero-valued fields from DefaultConfig so partial
// TOML profiles only need to name the knobs they change.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	fill := func(v *float64, d float64) {
		if *v == 0 {
			*v = d
		}
	}
	fill(&c.BaseSpacing, def.BaseSpacing)
	fill(&c.NodeSpacing, def.NodeSpacing)
	fill(&c.BranchSpacing, def.BranchSpacing)
	fill(&c.SubflowSpacing, def.SubflowSpacing)
	fill(&c.ConnectionGuard, def.ConnectionGuard)
	fill(&c.GatewayGapAdjust, def.GatewayGapAdjust)
	fill(&c.EventGapAdjust, def.EventGapAdjust)
	fill(&c.IntermediateGapAdjust, def.IntermediateGapAdjust)
	fill(&c.HostExtraGap, def.HostExtraGap)
	fill(&c.BoundaryProximity, def.BoundaryProximity)
	fill(&c.BorderSpreadMargin, def.BorderSpreadMargin)
	fill(&c.ExceptionRowOffset, def.ExceptionRowOffset)
	fill(&c.ExceptionChainGap, def.ExceptionChainGap)
	fill(&c.ExceptionStackGap, def.ExceptionStackGap)
	fill(&c.DisconnectTolerance, def.DisconnectTolerance)
	fill(&c.CenterSnapTolerance, def.CenterSnapTolerance)
	fill(&c.OverlapDetour, def.OverlapDetour)
	fill(&c.LoopbackClearance, def.LoopbackClearance)
	fill(&c.MicroBendTolerance, def.MicroBendTolerance)
	fill(&c.OrthoSnapTolerance, def.OrthoSnapTolerance)
	fill(&c.WobbleTolerance, def.WobbleTolerance)
	fill(&c.ImportCorrectionRadius, def.ImportCorrectionRadius)
	fill(&c.MovementThreshold, def.MovementThreshold)
	fill(&c.TaskWidth, def.TaskWidth)
	fill(&c.TaskHeight, def.TaskHeight)
	fill(&c.EventSize, def.EventSize)
	fill(&c.GatewaySize, def.GatewaySize)
	fill(&c.ArtifactWidth, def.ArtifactWidth)
	// PixelGrid zero is meaningful (quantization off), so it is not filled.
	return c
}

// LayerThreshold is the x-centre spread within which shapes cluster into one
// layer: half the nominal inter-layer spacing.
func (c Config) LayerThreshold() float64 { return c.BaseSpacing / 2 }

// nominalSize returns the configured fallback width and height for an
// element category, used when a shape is missing its dimensions.
func (c Config) nominalSize(cat categorySize) (w, h float64) {
	switch cat {
	case sizeEvent:
		return c.EventSize, c.EventSize
	case sizeGateway:
		return c.GatewaySize, c.GatewaySize
	case sizeArtifact:
		return c.ArtifactWidth, c.ArtifactWidth
	default:
		return c.TaskWidth, c.TaskHeight
	}
}

type categorySize int

const (
	sizeTask categorySize = iota
	sizeEvent
	sizeGateway
	sizeArtifact
)
