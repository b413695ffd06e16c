package scene

import (
	"fmt"
	"math"
)

// ValidationSeverity indicates whether a validation finding blocks
// tessellation or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks tessellation
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	NodeID   NodeID             // which node has the problem (zero if scene-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.NodeID.IsZero() {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] node %s: %s", e.Severity, e.NodeID.Short(), e.Message)
}

// Errors returns only the findings with SeverityError.
func Errors(findings []ValidationError) []ValidationError {
	var errs []ValidationError
	for _, f := range findings {
		if f.Severity == SeverityError {
			errs = append(errs, f)
		}
	}
	return errs
}

// Validate runs the structural checks on the scene and returns every
// finding. A result without SeverityError entries means the scene can be
// tessellated. Validate never mutates the scene.
func Validate(s *Scene) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateDAG(s)...)
	errs = append(errs, validateReferences(s)...)
	errs = append(errs, validateRoots(s)...)
	errs = append(errs, validateShapes(s)...)
	return errs
}

// validateDAG checks for cycles using DFS with 3-color marking.
// White (0) = unvisited, gray (1) = in current DFS path, black (2) = fully explored.
func validateDAG(s *Scene) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[NodeID]int)
	var errs []ValidationError

	var visit func(id NodeID) bool // returns true if cycle found
	visit = func(id NodeID) bool {
		switch color[id] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("cycle detected: node %s is part of a cycle", id.Short()),
				Severity: SeverityError,
			})
			return true
		}

		color[id] = gray
		node, ok := s.Nodes[id]
		if !ok {
			// Dangling reference; handled by validateReferences.
			color[id] = black
			return false
		}
		for _, childID := range node.Children {
			if visit(childID) {
				return true
			}
		}
		color[id] = black
		return false
	}

	for id := range s.Nodes {
		if color[id] == white {
			if visit(id) {
				break
			}
		}
	}
	return errs
}

// validateReferences checks that every child reference points to an
// existing node.
func validateReferences(s *Scene) []ValidationError {
	var errs []ValidationError
	for _, node := range s.Nodes {
		for _, childID := range node.Children {
			if _, ok := s.Nodes[childID]; !ok {
				errs = append(errs, ValidationError{
					NodeID:   node.ID,
					Message:  fmt.Sprintf("child reference %s does not exist", childID.Short()),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}

// validateRoots checks that roots exist and are models, and warns about
// nodes no model reaches.
func validateRoots(s *Scene) []ValidationError {
	var errs []ValidationError

	reachable := make(map[NodeID]bool)
	var queue []NodeID
	for _, rid := range s.Roots {
		n, ok := s.Nodes[rid]
		if !ok {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("root reference %s does not exist", rid.Short()),
				Severity: SeverityError,
			})
			continue
		}
		if n.Kind != NodeModel {
			errs = append(errs, ValidationError{
				NodeID:   rid,
				Message:  fmt.Sprintf("root is a %s, not a model", n.Kind),
				Severity: SeverityError,
			})
		}
		if !reachable[rid] {
			reachable[rid] = true
			queue = append(queue, rid)
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		node := s.Nodes[current]
		if node == nil {
			continue
		}
		for _, childID := range node.Children {
			if !reachable[childID] {
				reachable[childID] = true
				queue = append(queue, childID)
			}
		}
	}

	for id, node := range s.Nodes {
		if reachable[id] {
			continue
		}
		name := node.Name
		if name == "" {
			name = id.Short()
		}
		errs = append(errs, ValidationError{
			NodeID:   id,
			Message:  fmt.Sprintf("node %q is not reachable from any model (orphan)", name),
			Severity: SeverityWarning,
		})
	}
	return errs
}

// validateShapes checks per-kind arity and dimensions.
func validateShapes(s *Scene) []ValidationError {
	var errs []ValidationError
	bad := func(n *Node, format string, args ...interface{}) {
		errs = append(errs, ValidationError{
			NodeID:   n.ID,
			Message:  fmt.Sprintf(format, args...),
			Severity: SeverityError,
		})
	}

	for _, n := range s.Nodes {
		switch n.Kind {
		case NodePrimitive:
			if len(n.Children) != 0 {
				bad(n, "primitive has %d children", len(n.Children))
			}
			switch d := n.Data.(type) {
			case BoxData:
				if !positive(d.Size.X) || !positive(d.Size.Y) || !positive(d.Size.Z) {
					bad(n, "box dimensions must be positive, got %gx%gx%g", d.Size.X, d.Size.Y, d.Size.Z)
				}
			case SphereData:
				if !positive(d.Radius) {
					bad(n, "sphere radius must be positive, got %g", d.Radius)
				}
			case CylinderData:
				if !positive(d.Height) || !positive(d.Radius) {
					bad(n, "cylinder height and radius must be positive, got %g and %g", d.Height, d.Radius)
				}
			default:
				bad(n, "primitive carries %T", n.Data)
			}
		case NodeTransform:
			if len(n.Children) != 1 {
				bad(n, "transform needs exactly one child, has %d", len(n.Children))
			}
			if _, ok := n.Data.(TransformData); !ok {
				bad(n, "transform carries %T", n.Data)
			}
		case NodeBoolean:
			d, ok := n.Data.(BooleanData)
			if !ok {
				bad(n, "boolean carries %T", n.Data)
				continue
			}
			if len(n.Children) < 2 {
				bad(n, "%s needs at least two children, has %d", d.Op, len(n.Children))
			}
		case NodeModel:
			if len(n.Children) == 0 {
				bad(n, "model %q is empty", n.Name)
			}
			if n.Name == "" {
				bad(n, "model has no name")
			}
		}
	}
	return errs
}

func positive(f float64) bool {
	return f > 0 && !math.IsInf(f, 0)
}
