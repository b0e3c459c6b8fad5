package replication

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// TestInterestGridQuery checks candidates around a point and border clamping
func TestInterestGridQuery(t *testing.T) {
	g := newInterestGrid(1000, 100, 64)
	g.insert(0, mgl32.Vec3{50, 50, 0})
	g.insert(1, mgl32.Vec3{120, 60, 0})
	g.insert(2, mgl32.Vec3{900, 900, 0})
	g.insert(3, mgl32.Vec3{-40, 5000, 0})

	tests := []struct {
		name   string
		center mgl32.Vec3
		want   map[uint32]bool
	}{
		{"near origin", mgl32.Vec3{60, 60, 0}, map[uint32]bool{0: true, 1: true}},
		{"far corner", mgl32.Vec3{950, 950, 0}, map[uint32]bool{2: true}},
		{"clamped outlier", mgl32.Vec3{0, 999, 0}, map[uint32]bool{3: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := map[uint32]bool{}
			for _, id := range g.query(tt.center, 50) {
				got[id] = true
			}
			for id := range tt.want {
				if !got[id] {
					t.Errorf("Expected %d among candidates %v", id, got)
				}
			}
			if tt.name == "far corner" && got[0] {
				t.Error("Expected distant cells to be skipped")
			}
		})
	}

	if s := g.stats(); s.NonEmptyCells != 4 || s.TotalCells != 100 {
		t.Errorf("Unexpected grid stats %+v", s)
	}
	g.clear()
	if len(g.query(mgl32.Vec3{50, 50, 0}, 50)) != 0 {
		t.Error("Expected no candidates after clear")
	}
}
