package engine

// Track is the immutable geometry of a map
type Track struct {
	Length  int      `json:"length"`
	Corners []Corner `json:"corners"`
}

// NewTrack builds a track from a map configuration
func NewTrack(config *MapConfig) Track {
	corners := make([]Corner, len(config.Corners))
	copy(corners, config.Corners)
	return Track{Length: config.Length, Corners: corners}
}

// CornersBetween returns the corners crossed when moving from one absolute
// cell to another: every corner cell c with from < c <= to, across laps,
// in ascending order. Limits are carried over from the per-lap corner.
func (t Track) CornersBetween(from, to int) []Corner {
	if to <= from || t.Length <= 0 {
		return nil
	}
	var crossed []Corner
	for lap := floorDiv(from, t.Length); lap*t.Length <= to; lap++ {
		for _, c := range t.Corners {
			cell := lap*t.Length + c.Position
			if cell > from && cell <= to {
				crossed = append(crossed, Corner{Position: cell, Limit: c.Limit})
			}
		}
	}
	return crossed
}

// Lap returns the 1-based lap for an absolute position
func (t Track) Lap(position int) int {
	lap := floorDiv(position, t.Length) + 1
	if lap < 1 {
		return 1
	}
	return lap
}

// floorDiv divides rounding toward negative infinity
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
