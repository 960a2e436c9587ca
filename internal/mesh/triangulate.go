package mesh

import (
	"fmt"
	"strings"

	"github.com/gogpu/gg"
	"github.com/rclancey/earcut"
)

// PSLG is a planar straight-line graph: points plus segments that must
// appear as edges in the triangulation. Indices number from zero.
type PSLG struct {
	Points   []gg.Vec2
	Segments [][2]int
}

// ClosedPSLG connects every point to the next one, wrapping around
func ClosedPSLG(pts []gg.Vec2) PSLG {
	g := PSLG{Points: pts, Segments: make([][2]int, len(pts))}
	for i := range pts {
		g.Segments[i] = [2]int{i, (i + 1) % len(pts)}
	}
	return g
}

// Triangulation is the result of a Triangulator. Triangles index Points
// starting at zero.
type Triangulation struct {
	Points    []gg.Vec2
	Triangles [][3]int
}

// Triangulator fills a closed outline with triangles. Implementations must
// not log or print; an empty result is valid.
type Triangulator interface {
	Triangulate(g PSLG) (Triangulation, error)
}

// collinearEpsilon is the cross product below which three points count as
// collinear
const collinearEpsilon = 1e-12

// Earcut triangulates simple polygons with the earcut algorithm. It walks
// the points in segment order and ignores segments that do not form a
// single closed loop. Triangles come out counter-clockwise.
type Earcut struct{}

// Triangulate implements Triangulator
func (Earcut) Triangulate(g PSLG) (Triangulation, error) {
	out := Triangulation{Points: g.Points}
	ring := loopOrder(g)
	if len(ring) < 3 {
		return out, nil
	}

	flat := make([]float64, 0, 2*len(ring))
	for _, idx := range ring {
		flat = append(flat, g.Points[idx].X, g.Points[idx].Y)
	}
	indices, err := earcut.Earcut(flat, nil, 2)
	if err != nil {
		return out, err
	}
	if len(indices)%3 != 0 {
		return out, fmt.Errorf("triangulate: earcut returned %d indices", len(indices))
	}

	out.Triangles = make([][3]int, 0, len(indices)/3)
	for i := 0; i < len(indices); i += 3 {
		tri := [3]int{ring[indices[i]], ring[indices[i+1]], ring[indices[i+2]]}
		if ccw(g.Points, &tri) {
			out.Triangles = append(out.Triangles, tri)
		}
	}
	return out, nil
}

// ccw orders tri counter-clockwise and reports whether it has any area
func ccw(pts []gg.Vec2, tri *[3]int) bool {
	a, b, c := pts[tri[0]], pts[tri[1]], pts[tri[2]]
	cross := b.Sub(a).Cross(c.Sub(b))
	if cross > -collinearEpsilon && cross < collinearEpsilon {
		return false
	}
	if cross < 0 {
		tri[1], tri[2] = tri[2], tri[1]
	}
	return true
}

// Fan triangulates around the first point, like a GPU fill fan. It is only
// correct for convex outlines.
type Fan struct{}

// Triangulate implements Triangulator
func (Fan) Triangulate(g PSLG) (Triangulation, error) {
	out := Triangulation{Points: g.Points}
	ring := loopOrder(g)
	if len(ring) < 3 {
		return out, nil
	}
	out.Triangles = make([][3]int, 0, len(ring)-2)
	for i := 1; i < len(ring)-1; i++ {
		tri := [3]int{ring[0], ring[i], ring[i+1]}
		if ccw(g.Points, &tri) {
			out.Triangles = append(out.Triangles, tri)
		}
	}
	return out, nil
}

// loopOrder follows the segments from the first one and returns the point
// indices of the loop they form. Without segments the points are taken in
// order.
func loopOrder(g PSLG) []int {
	if len(g.Segments) == 0 {
		ring := make([]int, len(g.Points))
		for i := range ring {
			ring[i] = i
		}
		return ring
	}

	nextOf := make(map[int]int, len(g.Segments))
	for _, s := range g.Segments {
		if s[0] < 0 || s[0] >= len(g.Points) || s[1] < 0 || s[1] >= len(g.Points) {
			return nil
		}
		nextOf[s[0]] = s[1]
	}

	start := g.Segments[0][0]
	ring := []int{start}
	seen := map[int]bool{start: true}
	for cur := nextOf[start]; cur != start; cur = nextOf[cur] {
		if seen[cur] {
			return nil
		}
		if _, ok := nextOf[cur]; !ok {
			return nil
		}
		seen[cur] = true
		ring = append(ring, cur)
	}
	return ring
}

// TriangulatorByName returns a triangulator for the names accepted on the
// command line
func TriangulatorByName(name string) (Triangulator, error) {
	switch strings.ToLower(name) {
	case "", "ear", "earcut":
		return Earcut{}, nil
	case "fan":
		return Fan{}, nil
	}
	return nil, fmt.Errorf("unknown triangulator %q (want ear or fan)", name)
}
