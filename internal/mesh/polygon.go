package mesh

import (
	"github.com/dyuri/gdsview/internal/model"
	"github.com/gogpu/gg"
)

// Winding is the traversal direction of a polygon outline
type Winding int

const (
	CCW Winding = iota
	CW
)

func (w Winding) String() string {
	if w == CW {
		return "CW"
	}
	return "CCW"
}

// ScalePoints converts an outline from database units to model units.
// Repeated consecutive points and a trailing point equal to the first one
// are dropped.
func ScalePoints(points []model.Point, scale float64) []gg.Vec2 {
	out := make([]gg.Vec2, 0, len(points))
	for i, p := range points {
		if i > 0 && p == points[i-1] {
			continue
		}
		out = append(out, gg.V2(float64(p.X)*scale, float64(p.Y)*scale))
	}
	if n := len(out); n > 1 && out[0] == out[n-1] {
		out = out[:n-1]
	}
	return out
}

// SignedArea2 returns the shoelace sum Σ (x[i+1]-x[i])(y[i+1]+y[i]) over
// the outline, wrapping from the last point to the first. It is twice the
// enclosed area, positive for clockwise outlines.
func SignedArea2(pts []gg.Vec2) float64 {
	var sum float64
	for i := range pts {
		p, q := pts[i], pts[(i+1)%len(pts)]
		sum += (q.X - p.X) * (q.Y + p.Y)
	}
	return sum
}

// WindingOf classifies an outline by the sign of SignedArea2
func WindingOf(pts []gg.Vec2) Winding {
	if SignedArea2(pts) > 0 {
		return CW
	}
	return CCW
}

// EdgeNormals returns normalize(dy, -dx) for every edge i -> i+1,
// including the closing edge. For a CCW outline these point outward.
// Zero-length edges yield a zero vector.
func EdgeNormals(pts []gg.Vec2) []gg.Vec2 {
	normals := make([]gg.Vec2, len(pts))
	for i := range pts {
		d := pts[(i+1)%len(pts)].Sub(pts[i])
		normals[i] = gg.V2(d.Y, -d.X).Normalize()
	}
	return normals
}

// OutwardNormals returns the edge normals oriented away from the interior
func OutwardNormals(pts []gg.Vec2) []gg.Vec2 {
	normals := EdgeNormals(pts)
	if WindingOf(pts) == CW {
		for i := range normals {
			normals[i] = normals[i].Neg()
		}
	}
	return normals
}

// Inset moves every vertex by delta against the sum of the outward normals
// of its two adjacent edges. normals[i] belongs to edge i -> i+1.
func Inset(pts, normals []gg.Vec2, delta float64) []gg.Vec2 {
	n := len(pts)
	out := make([]gg.Vec2, n)
	for i := range pts {
		prev := normals[(i+n-1)%n]
		out[i] = pts[i].Sub(prev.Add(normals[i]).Mul(delta))
	}
	return out
}
