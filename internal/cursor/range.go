package cursor

// Range is one cursor: Start is the anchor and Stop is the active (caret) end.
// Stop may sort before Start when the selection was made backwards.
type Range struct {
	Start Position
	Stop  Position
}

// NewRange builds a range from anchor and active ends.
func NewRange(start, stop Position) Range {
	return Range{Start: start, Stop: stop}
}

// Collapsed returns an empty range at p.
func Collapsed(p Position) Range {
	return Range{Start: p, Stop: p}
}

func (r Range) WithStart(p Position) Range { return Range{Start: p, Stop: r.Stop} }
func (r Range) WithStop(p Position) Range  { return Range{Start: r.Start, Stop: p} }

// IsEmpty reports whether anchor and active end coincide.
func (r Range) IsEmpty() bool {
	return r.Start == r.Stop
}

// Normalized returns the ends ordered so that the first is not after the second.
func (r Range) Normalized() (Position, Position) {
	if r.Stop.Before(r.Start) {
		return r.Stop, r.Start
	}
	return r.Start, r.Stop
}

// Sorted returns r with Start <= Stop.
func (r Range) Sorted() Range {
	s, e := r.Normalized()
	return Range{Start: s, Stop: e}
}

// Add shifts both ends by d.
func (r Range) Add(d Diff) Range {
	return Range{Start: r.Start.Add(d), Stop: r.Stop.Add(d)}
}

// Overlaps treats both ranges as half-open spans [start, stop). Two empty
// ranges at the same position overlap, since edits there have no defined order.
func (r Range) Overlaps(o Range) bool {
	as, ae := r.Normalized()
	bs, be := o.Normalized()
	if as == ae && bs == be {
		return as == bs
	}
	return as.Before(be) && bs.Before(ae)
}

// Contains reports whether p lies within the half-open span of r.
func (r Range) Contains(p Position) bool {
	s, e := r.Normalized()
	return p.AfterOrEqual(s) && p.Before(e)
}

// Unique drops ranges equal to an earlier one, keeping the first occurrence.
// The result is never empty: an empty input yields a single cursor at (0,0).
func Unique(ranges []Range) []Range {
	out := make([]Range, 0, len(ranges))
	seen := make(map[Range]struct{}, len(ranges))
	for _, r := range ranges {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	if len(out) == 0 {
		out = append(out, Collapsed(Position{}))
	}
	return out
}

// Stops returns the active end of every range.
func Stops(ranges []Range) []Position {
	out := make([]Position, len(ranges))
	for i, r := range ranges {
		out[i] = r.Stop
	}
	return out
}
