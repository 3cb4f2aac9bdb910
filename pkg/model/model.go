package model

// Granularity represents the resolution at which activity is sampled and colored
type Granularity string

const (
	GranularityGroup   Granularity = "Group"   // One averaged value for the whole group
	GranularityCell    Granularity = "Cell"    // One value per root section
	GranularitySection Granularity = "Section" // One value per section midpoint
	GranularitySegment Granularity = "Segment" // One value per 3D segment (most detailed)
)

// Valid reports whether g is one of the four supported granularity levels
func (g Granularity) Valid() bool {
	switch g {
	case GranularityGroup, GranularityCell, GranularitySection, GranularitySegment:
		return true
	}
	return false
}

// DetailLevel selects an appropriate granularity for a model based on the
// number of cells it contains. Small models get per-segment detail, large
// populations are collapsed to one value per group.
func DetailLevel(cellCount int) Granularity {
	switch {
	case cellCount <= 5:
		return GranularitySegment
	case cellCount <= 25:
		return GranularitySection
	case cellCount <= 100:
		return GranularityCell
	default:
		return GranularityGroup
	}
}

// SectionRecord is the serializable coordinate/radius record for one section.
// Coords is interleaved [x1,y1,z1,x2,y2,z2,...], Radii has one entry per point.
type SectionRecord struct {
	Name      string    `json:"name"`
	Coords    []float64 `json:"coords"`
	Radii     []float64 `json:"radii"`
	Spherical bool      `json:"spherical,omitempty"`
}

// PointCount returns the number of 3D points in the record
func (r *SectionRecord) PointCount() int {
	return len(r.Coords) / 3
}

// GroupRecord is the per-group morphology payload sent to the renderer
// ("visualize_group" and "create_cons" both take this shape).
type GroupRecord struct {
	Name                  string                     `json:"name"`
	Color                 [3]float64                 `json:"color"`
	InteractionLevel      Granularity                `json:"interaction_level"`
	ColorLevel            Granularity                `json:"color_level"`
	AsLines               bool                       `json:"as_lines"`
	SegmentSubdivisions   int                        `json:"segment_subdivisions"`
	CircularSubdivisions  int                        `json:"circular_subdivisions"`
	SmoothSections        bool                       `json:"smooth_sections"`
	Cells                 map[string][]SectionRecord `json:"cells"`
}

// NamedSeries is one reduced activity time series, keyed by the
// group/cell/section/segment name it colors at the renderer.
type NamedSeries struct {
	Name     string    `json:"name"`
	Times    []float64 `json:"times"`
	Activity []float64 `json:"activity"`
}
