package morphology

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/nrnviz/blender-bridge/pkg/engine"
)

// chainDef builds a deep unbranched chain of n sections
func chainDef(n int) engine.SnapshotDef {
	def := engine.SnapshotDef{}
	for i := 0; i < n; i++ {
		def.Sections = append(def.Sections, engine.SectionDef{
			Name:   fmt.Sprintf("dend[%d]", i),
			Parent: i - 1,
			Points: [][4]float64{{float64(i), 0, 0, 1}, {float64(i + 1), 0, 0, 1}},
			Length: 1, Diameter: 1,
		})
	}
	return def
}

func branchedDef() engine.SnapshotDef {
	// soma -> (dend[0] -> dend[2], dend[1])
	return engine.SnapshotDef{
		Sections: []engine.SectionDef{
			{Name: "soma", Parent: -1, Points: [][4]float64{{0, 0, 0, 4}, {4, 0, 0, 4}}, Length: 4, Diameter: 4},
			{Name: "dend[0]", Parent: 0, Points: [][4]float64{{4, 0, 0, 1}, {10, 0, 0, 1}}, Length: 6, Diameter: 1},
			{Name: "dend[1]", Parent: 0, Points: [][4]float64{{4, 0, 0, 1}, {4, 6, 0, 1}}, Length: 6, Diameter: 1},
			{Name: "dend[2]", Parent: 1, Points: [][4]float64{{10, 0, 0, 1}, {16, 0, 0, 1}}, Length: 6, Diameter: 1},
		},
	}
}

func TestWalkPreOrder(t *testing.T) {
	eng, err := engine.NewSnapshot(branchedDef())
	if err != nil {
		t.Fatal(err)
	}

	var visited []string
	err = Walk(eng, eng.Roots()[0], func(id engine.SectionID) error {
		visited = append(visited, eng.Name(id))
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}

	want := []string{"soma", "dend[0]", "dend[2]", "dend[1]"}
	if !reflect.DeepEqual(visited, want) {
		t.Errorf("Walk() order = %v, want %v", visited, want)
	}
}

func TestWalkVisitsEveryNodeOnce(t *testing.T) {
	const depth = 500 // deeper than default goroutine stacks would like with naive recursion

	eng, err := engine.NewSnapshot(chainDef(depth))
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[string]int)
	err = Walk(eng, eng.Roots()[0], func(id engine.SectionID) error {
		seen[eng.Name(id)]++
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}

	if len(seen) != depth {
		t.Errorf("Walk() visited %d distinct nodes, want %d", len(seen), depth)
	}
	for name, count := range seen {
		if count != 1 {
			t.Errorf("Walk() visited %q %d times, want 1", name, count)
		}
	}
}

func TestWalkStopsOnError(t *testing.T) {
	eng, err := engine.NewSnapshot(branchedDef())
	if err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	visits := 0
	err = Walk(eng, eng.Roots()[0], func(id engine.SectionID) error {
		visits++
		if visits == 2 {
			return boom
		}
		return nil
	})

	if !errors.Is(err, boom) {
		t.Errorf("Walk() error = %v, want boom", err)
	}
	if visits != 2 {
		t.Errorf("Walk() made %d visits after error, want 2", visits)
	}
}
