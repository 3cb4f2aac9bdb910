// Package morphology walks a cell's section tree and turns it into the
// serializable coordinate/radius records the renderer consumes.
package morphology

import (
	"github.com/nrnviz/blender-bridge/pkg/engine"
)

// Walk visits every section in the subtree rooted at root in pre-order
// (section first, then its children in engine order). The traversal uses an
// explicit stack so deep dendritic trees cannot exhaust the call stack.
// Walking stops at the first error returned by visit.
func Walk(eng engine.Engine, root engine.SectionID, visit func(engine.SectionID) error) error {
	stack := []engine.SectionID{root}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := visit(id); err != nil {
			return err
		}

		// Push children in reverse so the first child is visited next
		children := eng.Children(id)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}

	return nil
}
