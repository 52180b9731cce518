package ace

import "math"

// Vec3 is a 3-component position or gradient vector.
type Vec3 [3]float64

func (v Vec3) Norm() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

func (v Vec3) Dot(w Vec3) float64 {
	return v[0]*w[0] + v[1]*w[1] + v[2]*w[2]
}

func (v Vec3) Add(w Vec3) Vec3 {
	return Vec3{v[0] + w[0], v[1] + w[1], v[2] + w[2]}
}

func (v Vec3) Sub(w Vec3) Vec3 {
	return Vec3{v[0] - w[0], v[1] - w[1], v[2] - w[2]}
}

func (v Vec3) Scale(a float64) Vec3 {
	return Vec3{a * v[0], a * v[1], a * v[2]}
}

func (v Vec3) IsValid() bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Neighbor is one entry of a neighbor list: the position of a surrounding
// atom relative to the central atom, plus its compact species index.
type Neighbor struct {
	R Vec3
	Z int
}

// Environment is the local neighborhood of one central atom. The neighbor
// list is assumed already filtered to the cutoff radius and free of
// self-interaction entries.
type Environment struct {
	ZCenter   int
	Neighbors []Neighbor
}

// Clone returns a deep copy of the environment.
func (e Environment) Clone() Environment {
	c := Environment{ZCenter: e.ZCenter, Neighbors: make([]Neighbor, len(e.Neighbors))}
	copy(c.Neighbors, e.Neighbors)
	return c
}
