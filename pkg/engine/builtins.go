package engine

import (
	"fmt"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/voxelize/pkg/scene"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms scene script source before passing it to
// zygomys. It performs three transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: def-solid -> def_solid
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator).
//
//  3. ; line comments become // comments.
//
// All transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				result = append(result, '"')
				result = append(result, kwPrefix...)
				result = append(result, b[i+1:j]...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Only a hyphen between identifier characters is part of a name.
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpPrimitive wraps primitive solid data that has not been added to the
// scene yet. It becomes a node when named by defsolid or consumed by
// another builtin.
type sexpPrimitive struct {
	kind string
	data scene.NodeData
}

func (p *sexpPrimitive) SexpString(ps *zygo.PrintState) string {
	switch d := p.data.(type) {
	case scene.BoxData:
		return fmt.Sprintf("(box %gx%gx%g)", d.Size.X, d.Size.Y, d.Size.Z)
	case scene.SphereData:
		return fmt.Sprintf("(sphere r=%g)", d.Radius)
	case scene.CylinderData:
		return fmt.Sprintf("(cylinder h=%g r=%g)", d.Height, d.Radius)
	}
	return "(" + p.kind + ")"
}
func (p *sexpPrimitive) Type() *zygo.RegisteredType { return nil }

// sexpNodeRef wraps a scene.NodeID so it can be passed between builtins.
type sexpNodeRef struct {
	id   scene.NodeID
	name string // human-readable name for error messages
}

func (n *sexpNodeRef) SexpString(ps *zygo.PrintState) string {
	if n.name != "" {
		return fmt.Sprintf("(solid %q)", n.name)
	}
	return fmt.Sprintf("(noderef %s)", n.id.Short())
}
func (n *sexpNodeRef) Type() *zygo.RegisteredType { return nil }

type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value: treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// requireFloat reads a mandatory numeric keyword argument.
func requireFloat(pa kwArgs, builtin, key string) (float64, error) {
	v, ok := pa.kw[key]
	if !ok {
		return 0, fmt.Errorf("%s: missing :%s", builtin, key)
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %s: %w", builtin, key, err)
	}
	return f, nil
}

// ---------------------------------------------------------------------------
// Scene builder
// ---------------------------------------------------------------------------

// builder accumulates the scene for a single evaluation. Anonymous node
// names are numbered per evaluation so that equal sources give equal IDs.
type builder struct {
	s    *scene.Scene
	anon int
}

func newBuilder() *builder {
	return &builder{s: scene.New()}
}

func (b *builder) anonID(kind string) scene.NodeID {
	b.anon++
	return scene.NewNodeID(fmt.Sprintf("%s/_anon_%d", kind, b.anon))
}

// toNode resolves a builtin argument to a node in the scene, adding
// primitives that have not been placed yet as anonymous nodes.
func (b *builder) toNode(s zygo.Sexp) (scene.NodeID, error) {
	switch v := s.(type) {
	case *sexpNodeRef:
		return v.id, nil
	case *sexpPrimitive:
		id := b.anonID(v.kind)
		b.s.AddNode(&scene.Node{ID: id, Kind: scene.NodePrimitive, Data: v.data})
		return id, nil
	}
	return scene.ZeroID, fmt.Errorf("expected solid, got %T (%s)", s, s.SexpString(nil))
}

// toNodes resolves every argument, flattening lists so that
// (union (list a b) c) is the same as (union a b c).
func (b *builder) toNodes(builtin string, args []zygo.Sexp) ([]scene.NodeID, error) {
	var ids []scene.NodeID
	for i, arg := range args {
		switch arg.(type) {
		case *zygo.SexpPair, *zygo.SexpArray:
			items, err := sexpListToSlice(arg)
			if err != nil {
				return nil, fmt.Errorf("%s: argument %d: %w", builtin, i+1, err)
			}
			sub, err := b.toNodes(builtin, items)
			if err != nil {
				return nil, err
			}
			ids = append(ids, sub...)
			continue
		}
		id, err := b.toNode(arg)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", builtin, i+1, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (b *builder) boolean(op scene.BooleanOp) zygo.ZlispUserFunction {
	return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		children, err := b.toNodes(op.String(), args)
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(children) < 2 {
			return zygo.SexpNull, fmt.Errorf("%s requires at least two solids, got %d", op, len(children))
		}
		id := b.anonID(op.String())
		b.s.AddNode(&scene.Node{
			ID:       id,
			Kind:     scene.NodeBoolean,
			Children: children,
			Data:     scene.BooleanData{Op: op},
		})
		return &sexpNodeRef{id: id}, nil
	}
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the scene builtins into a zygomys environment.
// The builtins populate b.s during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *builder) {

	// (vec3 1 2 3)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var c [3]float64
		for i, axis := range []string{"x", "y", "z"} {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
			}
			c[i] = f
		}
		return &sexpVec3{vec: v3.Vec{X: c[0], Y: c[1], Z: c[2]}}, nil
	})

	// (box :x 10 :y 20 :z 5)
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var size v3.Vec
		var err error
		if size.X, err = requireFloat(pa, "box", "x"); err != nil {
			return zygo.SexpNull, err
		}
		if size.Y, err = requireFloat(pa, "box", "y"); err != nil {
			return zygo.SexpNull, err
		}
		if size.Z, err = requireFloat(pa, "box", "z"); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpPrimitive{kind: "box", data: scene.BoxData{Size: size}}, nil
	})

	// (sphere :radius 5)
	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		r, err := requireFloat(parseArgs(args), "sphere", "radius")
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpPrimitive{kind: "sphere", data: scene.SphereData{Radius: r}}, nil
	})

	// (cylinder :height 10 :radius 2)
	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		h, err := requireFloat(pa, "cylinder", "height")
		if err != nil {
			return zygo.SexpNull, err
		}
		r, err := requireFloat(pa, "cylinder", "radius")
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpPrimitive{kind: "cylinder", data: scene.CylinderData{Height: h, Radius: r}}, nil
	})

	// (defsolid "name" expr)
	env.AddFunction("defsolid", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("defsolid requires a name and a body expression")
		}
		solidName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defsolid: name: %w", err)
		}
		if b.s.Lookup(solidName) != nil {
			return zygo.SexpNull, fmt.Errorf("defsolid: %q is already defined", solidName)
		}

		switch body := args[1].(type) {
		case *sexpPrimitive:
			id := scene.NewNodeID(body.kind + "/" + solidName)
			b.s.AddNode(&scene.Node{ID: id, Kind: scene.NodePrimitive, Name: solidName, Data: body.data})
			return &sexpNodeRef{id: id, name: solidName}, nil
		case *sexpNodeRef:
			n := b.s.Get(body.id)
			if n == nil {
				return zygo.SexpNull, fmt.Errorf("defsolid: dangling reference %s", body.id.Short())
			}
			if n.Name == "" {
				n.Name = solidName
			}
			b.s.NameIndex[solidName] = n.ID
			return &sexpNodeRef{id: n.ID, name: solidName}, nil
		}
		return zygo.SexpNull, fmt.Errorf("defsolid: expected solid expression, got %T", args[1])
	})

	// (solid "name")
	env.AddFunction("solid", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("solid requires a name argument")
		}
		solidName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("solid: name: %w", err)
		}
		id, ok := b.s.NameIndex[solidName]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("solid: no solid named %q", solidName)
		}
		return &sexpNodeRef{id: id, name: solidName}, nil
	})

	// (place (solid "peg") :at (vec3 0 0 10) :rotate (vec3 90 0 0))
	env.AddFunction("place", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("place requires exactly one solid, got %d", len(pa.positional))
		}
		child, err := b.toNode(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("place: %w", err)
		}

		td := scene.TransformData{}
		if v, ok := pa.kw["at"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("place: at: %w", err)
			}
			td.Translation = &vec
		}
		if v, ok := pa.kw["rotate"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("place: rotate: %w", err)
			}
			td.Rotation = &vec
		}

		id := b.anonID("place")
		b.s.AddNode(&scene.Node{
			ID:       id,
			Kind:     scene.NodeTransform,
			Children: []scene.NodeID{child},
			Data:     td,
		})
		return &sexpNodeRef{id: id}, nil
	})

	env.AddFunction("union", b.boolean(scene.OpUnion))
	env.AddFunction("difference", b.boolean(scene.OpDifference))
	env.AddFunction("intersection", b.boolean(scene.OpIntersection))

	// (model "name" solid ...)
	env.AddFunction("model", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("model requires a name argument")
		}
		modelName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("model: name: %w", err)
		}
		if b.s.Lookup(modelName) != nil {
			return zygo.SexpNull, fmt.Errorf("model: %q is already defined", modelName)
		}
		children, err := b.toNodes("model", args[1:])
		if err != nil {
			return zygo.SexpNull, err
		}

		id := scene.NewNodeID("model/" + modelName)
		b.s.AddNode(&scene.Node{
			ID:       id,
			Kind:     scene.NodeModel,
			Name:     modelName,
			Children: children,
			Data:     scene.ModelData{},
		})
		b.s.AddRoot(id)
		return &sexpNodeRef{id: id, name: modelName}, nil
	})
}
