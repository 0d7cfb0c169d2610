package flock

import "github.com/lao-tseu-is-alive/go-flock3d/pkg/geometry"

// Stats is a summary of a flock at one instant.
type Stats struct {
	Agents    int               `json:"agents"`
	Centroid  geometry.Vector3D `json:"centroid"`
	MeanSpeed float64           `json:"meanSpeed"`
	MaxSpeed  float64           `json:"maxSpeed"`
}

// ComputeStats summarizes agents. An empty flock yields zero values.
func ComputeStats(agents []Agent) Stats {
	st := Stats{Agents: len(agents)}
	if len(agents) == 0 {
		return st
	}

	var sumPos geometry.Vector3D
	var sumSpeed float64
	for _, a := range agents {
		sumPos = sumPos.Add(a.Position)
		speed := a.Speed()
		sumSpeed += speed
		if speed > st.MaxSpeed {
			st.MaxSpeed = speed
		}
	}
	n := float64(len(agents))
	st.Centroid = sumPos.Mul(1 / n)
	st.MeanSpeed = sumSpeed / n
	return st
}
