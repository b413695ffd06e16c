package engine

import (
	"strings"
	"testing"

	"github.com/chazu/voxelize/pkg/scene"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(sphere :radius 5)`,
			expect: `(sphere "__kw_radius" 5)`,
		},
		{
			name:   "multiple keywords",
			input:  `(box :x 4 :y 2)`,
			expect: `(box "__kw_x" 4 "__kw_y" 2)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "escaped quote in string",
			input:  `"a \" :b" :c`,
			expect: `"a \" :b" "__kw_c"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(def-solid :max-x ref)`,
			expect: `(def_solid "__kw_max-x" ref)`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "negative literal preserved",
			input:  `(vec3 0 -1 -2.5)`,
			expect: `(vec3 0 -1 -2.5)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "single semicolon comment",
			input:  `; simple comment`,
			expect: `// simple comment`,
		},
		{
			name:   "backtick string preserved",
			input:  "`raw :text`",
			expect: "`raw :text`",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// evaluateOK evaluates source and fails the test on any error.
func evaluateOK(t *testing.T, source string) *scene.Scene {
	t.Helper()
	s, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if s == nil {
		t.Fatal("expected non-nil scene")
	}
	return s
}

// onlyChild returns the single child of n.
func onlyChild(t *testing.T, s *scene.Scene, n *scene.Node) *scene.Node {
	t.Helper()
	children := s.Children(n)
	if len(children) != 1 {
		t.Fatalf("%s %q has %d children, want 1", n.Kind, n.Name, len(children))
	}
	return children[0]
}

func TestPrimitiveModels(t *testing.T) {
	tests := []struct {
		name   string
		source string
		check  func(t *testing.T, d scene.NodeData)
	}{
		{
			name:   "box",
			source: `(model "m" (box :x 4 :y 2.5 :z 1))`,
			check: func(t *testing.T, d scene.NodeData) {
				bd, ok := d.(scene.BoxData)
				if !ok {
					t.Fatalf("expected BoxData, got %T", d)
				}
				if bd.Size.X != 4 || bd.Size.Y != 2.5 || bd.Size.Z != 1 {
					t.Errorf("size = %v, want 4x2.5x1", bd.Size)
				}
			},
		},
		{
			name:   "sphere",
			source: `(model "m" (sphere :radius 3))`,
			check: func(t *testing.T, d scene.NodeData) {
				sd, ok := d.(scene.SphereData)
				if !ok {
					t.Fatalf("expected SphereData, got %T", d)
				}
				if sd.Radius != 3 {
					t.Errorf("radius = %g, want 3", sd.Radius)
				}
			},
		},
		{
			name:   "cylinder",
			source: `(model "m" (cylinder :height 10 :radius 0.5))`,
			check: func(t *testing.T, d scene.NodeData) {
				cd, ok := d.(scene.CylinderData)
				if !ok {
					t.Fatalf("expected CylinderData, got %T", d)
				}
				if cd.Height != 10 || cd.Radius != 0.5 {
					t.Errorf("cylinder = %+v, want height 10 radius 0.5", cd)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := evaluateOK(t, tt.source)
			if s.NodeCount() != 2 {
				t.Fatalf("expected 2 nodes, got %d", s.NodeCount())
			}
			models := s.Models()
			if len(models) != 1 || models[0].Name != "m" || models[0].Kind != scene.NodeModel {
				t.Fatalf("models = %v, want one model named m", models)
			}
			prim := onlyChild(t, s, models[0])
			if prim.Kind != scene.NodePrimitive {
				t.Fatalf("child kind = %s, want primitive", prim.Kind)
			}
			tt.check(t, prim.Data)
		})
	}
}

func TestDefsolidAndLookup(t *testing.T) {
	s := evaluateOK(t, `
(def r 2)
(defsolid "ball" (sphere :radius r))
(model "pair"
  (solid "ball")
  (place (solid "ball") :at (vec3 5 0 0)))
`)
	ball := s.Lookup("ball")
	if ball == nil {
		t.Fatal("expected node named 'ball'")
	}
	if sd, ok := ball.Data.(scene.SphereData); !ok || sd.Radius != 2 {
		t.Fatalf("ball data = %#v, want sphere of radius 2", ball.Data)
	}

	pair := s.Lookup("pair")
	if pair == nil {
		t.Fatal("expected model named 'pair'")
	}
	children := s.Children(pair)
	if len(children) != 2 {
		t.Fatalf("pair has %d children, want 2", len(children))
	}
	if children[0].ID != ball.ID {
		t.Errorf("first child is %s, want the named ball", children[0].ID.Short())
	}
	moved := children[1]
	if moved.Kind != scene.NodeTransform {
		t.Fatalf("second child kind = %s, want transform", moved.Kind)
	}
	td := moved.Data.(scene.TransformData)
	if td.Translation == nil || td.Translation.X != 5 || td.Rotation != nil {
		t.Errorf("transform = %+v, want translation only", td)
	}
	if onlyChild(t, s, moved).ID != ball.ID {
		t.Error("placed solid should reuse the named ball node")
	}
}

func TestDefsolidNamesCompositeSolid(t *testing.T) {
	s := evaluateOK(t, `
(defsolid "ring" (difference (cylinder :height 1 :radius 3) (cylinder :height 2 :radius 2)))
(model "m" (solid "ring"))
`)
	ring := s.Lookup("ring")
	if ring == nil || ring.Kind != scene.NodeBoolean {
		t.Fatalf("ring = %+v, want a named boolean node", ring)
	}
	if op := ring.Data.(scene.BooleanData).Op; op != scene.OpDifference {
		t.Errorf("op = %s, want difference", op)
	}
	if len(ring.Children) != 2 {
		t.Errorf("ring has %d children, want 2", len(ring.Children))
	}
}

func TestPlaceWithRotation(t *testing.T) {
	s := evaluateOK(t, `(model "m" (place (box :x 1 :y 2 :z 3) :rotate (vec3 90 0 0) :at (vec3 0 0 -1)))`)
	place := onlyChild(t, s, s.Models()[0])
	td, ok := place.Data.(scene.TransformData)
	if !ok {
		t.Fatalf("expected TransformData, got %T", place.Data)
	}
	if td.Rotation == nil || td.Rotation.X != 90 {
		t.Errorf("rotation = %v, want (90,0,0)", td.Rotation)
	}
	if td.Translation == nil || td.Translation.Z != -1 {
		t.Errorf("translation = %v, want (0,0,-1)", td.Translation)
	}
}

func TestBooleanBuiltins(t *testing.T) {
	tests := []struct {
		builtin string
		op      scene.BooleanOp
	}{
		{"union", scene.OpUnion},
		{"difference", scene.OpDifference},
		{"intersection", scene.OpIntersection},
	}
	for _, tt := range tests {
		t.Run(tt.builtin, func(t *testing.T) {
			s := evaluateOK(t, `(model "m" (`+tt.builtin+` (box :x 2 :y 2 :z 2) (sphere :radius 1) (cylinder :height 1 :radius 1)))`)
			b := onlyChild(t, s, s.Models()[0])
			if b.Kind != scene.NodeBoolean {
				t.Fatalf("kind = %s, want boolean", b.Kind)
			}
			if op := b.Data.(scene.BooleanData).Op; op != tt.op {
				t.Errorf("op = %s, want %s", op, tt.op)
			}
			children := s.Children(b)
			if len(children) != 3 {
				t.Fatalf("boolean has %d children, want 3", len(children))
			}
			if _, ok := children[0].Data.(scene.BoxData); !ok {
				t.Errorf("first operand is %T, want BoxData", children[0].Data)
			}
		})
	}
}

func TestBooleanFlattensLists(t *testing.T) {
	s := evaluateOK(t, `(model "m" (union (list (sphere :radius 1) (sphere :radius 2)) (sphere :radius 3)))`)
	b := onlyChild(t, s, s.Models()[0])
	if len(b.Children) != 3 {
		t.Errorf("union has %d children, want 3", len(b.Children))
	}
}

func TestMultipleModels(t *testing.T) {
	s := evaluateOK(t, `
(model "first" (box :x 1 :y 1 :z 1))
(model "second" (sphere :radius 1))
`)
	models := s.Models()
	if len(models) != 2 {
		t.Fatalf("got %d models, want 2", len(models))
	}
	if models[0].Name != "first" || models[1].Name != "second" {
		t.Errorf("models in order %q, %q", models[0].Name, models[1].Name)
	}
}

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		wantMsg string
	}{
		{"unknown solid", `(model "m" (solid "nope"))`, "nope"},
		{"box missing z", `(model "m" (box :x 1 :y 1))`, ":z"},
		{"sphere wrong type", `(model "m" (sphere :radius "big"))`, "expected number"},
		{"vec3 arity", `(model "m" (place (sphere :radius 1) :at (vec3 1 2)))`, "vec3"},
		{"union of one", `(model "m" (union (sphere :radius 1)))`, "at least two"},
		{"place nothing", `(model "m" (place :at (vec3 1 2 3)))`, "place"},
		{"duplicate defsolid", `(defsolid "a" (sphere :radius 1)) (defsolid "a" (sphere :radius 2))`, "already defined"},
		{"model without name", `(model (sphere :radius 1))`, "model: name"},
		{"zero radius", `(model "m" (sphere :radius 0))`, "positive"},
		{"empty model", `(model "m")`, "empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, evalErrs, err := NewEngine().Evaluate(tt.source)
			if err != nil {
				t.Fatalf("expected non-fatal error, got fatal: %v", err)
			}
			if s != nil {
				t.Fatal("expected nil scene")
			}
			if len(evalErrs) == 0 {
				t.Fatal("expected eval errors")
			}
			var all []string
			for _, e := range evalErrs {
				all = append(all, e.Message)
			}
			if joined := strings.Join(all, "; "); !strings.Contains(joined, tt.wantMsg) {
				t.Errorf("errors %q do not mention %q", joined, tt.wantMsg)
			}
		})
	}
}

func TestOrphanSolidIsOnlyAWarning(t *testing.T) {
	s := evaluateOK(t, `
(defsolid "unused" (box :x 1 :y 1 :z 1))
(model "m" (sphere :radius 1))
`)
	if s.Lookup("unused") == nil {
		t.Error("orphan solid should still be in the scene")
	}
	if len(s.Models()) != 1 {
		t.Errorf("got %d models, want 1", len(s.Models()))
	}
}

func TestKebabCaseUserDefinitions(t *testing.T) {
	s := evaluateOK(t, `
(def peg-radius 0.25)
(model "peg" (cylinder :height 2 :radius peg-radius))
`)
	cyl := onlyChild(t, s, s.Lookup("peg"))
	if cd := cyl.Data.(scene.CylinderData); cd.Radius != 0.25 {
		t.Errorf("radius = %g, want 0.25", cd.Radius)
	}
}
