package docyaml

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"reform/pkg/expr"
	"reform/pkg/form"
	"reform/pkg/instr"
	"reform/pkg/sheet"

	"gopkg.in/yaml.v3"
)

// Document is a parsed drawing: a sheet of definitions, the forms it draws
// and the instruction tree that draws them.
//
// Two YAML forms are supported:
//   - Mapping form (preferred): a mapping with "canvas", "sheet", "forms" and
//     "instructions" keys.
//   - Shorthand form: a bare sequence, interpreted as instructions only. Forms
//     are then declared implicitly by their create instructions.
type Document struct {
	Canvas form.Vec2
	Sheet  *sheet.BaseSheet
	// Forms lists every declared form, iteration proxies included, in
	// declaration order.
	Forms []form.Form
	Tree  *instr.Tree
}

// Form returns the declared form called name.
func (d *Document) Form(name string) (form.Form, bool) {
	for _, f := range d.Forms {
		if f.Name() == name {
			return f, true
		}
	}
	return nil, false
}

// Options tune how a document is built.
type Options struct {
	// MaxDepth bounds group nesting. Zero keeps the tree default.
	MaxDepth int
	// Table is used to compile the sheet and every expression. Nil selects
	// expr.DefaultTable.
	Table *expr.OperatorTable
}

// ---- Internal YAML parsing structs ----------------------------------------
//
// Ordered sections (sheet, forms) stay yaml.Node so declaration order
// survives; the rest decodes into tagged structs. Expression-valued fields
// are yaml.Node so numbers and strings arrive as the same scalar text.

type yamlDocument struct {
	Canvas       []float64         `yaml:"canvas,omitempty"`
	Sheet        yaml.Node         `yaml:"sheet,omitempty"`
	Forms        yaml.Node         `yaml:"forms,omitempty"`
	Instructions []yamlInstruction `yaml:"instructions,omitempty"`
}

// yamlInstruction holds one tree node. Exactly one verb key is set.
type yamlInstruction struct {
	Create    *string   `yaml:"create,omitempty"`
	Translate *string   `yaml:"translate,omitempty"`
	Rotate    *string   `yaml:"rotate,omitempty"`
	Scale     *string   `yaml:"scale,omitempty"`
	Morph     *string   `yaml:"morph,omitempty"`
	Repeat    yaml.Node `yaml:"repeat,omitempty"`
	If        yaml.Node `yaml:"if,omitempty"`
	Each      []string  `yaml:"each,omitempty"`
	Sequence  *string   `yaml:"sequence,omitempty"`

	// create
	Type     string    `yaml:"type,omitempty"`
	At       yaml.Node `yaml:"at,omitempty"`
	Size     []float64 `yaml:"size,omitempty"`
	Centered bool      `yaml:"centered,omitempty"`

	// shared by create, distances, angles and factors
	From yaml.Node `yaml:"from,omitempty"`
	To   yaml.Node `yaml:"to,omitempty"`

	By     yaml.Node `yaml:"by,omitempty"`
	Angle  yaml.Node `yaml:"angle,omitempty"`
	Factor yaml.Node `yaml:"factor,omitempty"`
	Around yaml.Node `yaml:"around,omitempty"`
	Axis   string    `yaml:"axis,omitempty"`
	Anchor string    `yaml:"anchor,omitempty"`

	// each
	As string `yaml:"as,omitempty"`

	Do []yamlInstruction `yaml:"do,omitempty"`
}

// ---- Parse -----------------------------------------------------------------

// Parse parses a YAML document in either mapping or shorthand form.
func Parse(in []byte) (*Document, error) {
	return ParseWith(in, Options{})
}

// ParseWith is Parse with explicit options.
func ParseWith(in []byte, opts Options) (*Document, error) {
	var docNode yaml.Node
	if err := yaml.Unmarshal(in, &docNode); err != nil {
		return nil, err
	}
	if len(docNode.Content) == 0 {
		return nil, fmt.Errorf("phase=parse path=<doc>: empty YAML")
	}
	root := docNode.Content[0]

	var yd yamlDocument
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&yd.Instructions); err != nil {
			return nil, err
		}
	case yaml.MappingNode:
		if err := root.Decode(&yd); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("phase=parse path=<doc>: unexpected YAML root kind: %d", root.Kind)
	}
	return newBuilder(opts).build(yd)
}

// ---- Build: yaml types → document ------------------------------------------

type builder struct {
	table  *expr.OperatorTable
	doc    *Document
	parser *expr.Parser
	forms  map[string]form.Form
}

func newBuilder(opts Options) *builder {
	table := opts.Table
	if table == nil {
		table = expr.DefaultTable()
	}
	tree := instr.NewTree()
	if opts.MaxDepth > 0 {
		tree.MaxDepth = opts.MaxDepth
	}
	doc := &Document{Sheet: sheet.NewBaseSheet(), Tree: tree}
	return &builder{
		table:  table,
		doc:    doc,
		parser: expr.NewParser(table, doc.Sheet),
		forms:  make(map[string]form.Form),
	}
}

func (b *builder) build(yd yamlDocument) (*Document, error) {
	switch len(yd.Canvas) {
	case 0:
	case 2:
		b.doc.Canvas = form.Vec2{X: yd.Canvas[0], Y: yd.Canvas[1]}
	default:
		return nil, fmt.Errorf("phase=parse path=canvas: expected [width, height], got %d values", len(yd.Canvas))
	}
	if err := b.sheet(&yd.Sheet); err != nil {
		return nil, err
	}
	if err := b.declareForms(&yd.Forms); err != nil {
		return nil, err
	}
	tree := b.doc.Tree
	if err := b.children(tree.Root(), yd.Instructions, "instructions"); err != nil {
		return nil, err
	}
	return b.doc, nil
}

// sheet defines the entries of the sheet mapping in order. Scalars are
// expression sources; sequences become array definitions.
func (b *builder) sheet(node *yaml.Node) error {
	if node.Kind == 0 {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("phase=parse path=sheet: expected mapping, got YAML kind %d", node.Kind)
	}
	var srcs []sheet.Source
	for i := 0; i+1 < len(node.Content); i += 2 {
		name, val := node.Content[i].Value, node.Content[i+1]
		switch val.Kind {
		case yaml.ScalarNode:
			srcs = append(srcs, sheet.Source{Name: name, Text: val.Value})
		case yaml.SequenceNode:
			if b.table.IsReserved(name) {
				return fmt.Errorf("phase=parse path=sheet.%s: %w", name, sheet.ErrReservedName)
			}
			arr, err := b.array(val)
			if err != nil {
				return fmt.Errorf("phase=parse path=sheet.%s: %w", name, err)
			}
			b.doc.Sheet.Add(&sheet.Definition{ID: b.doc.Sheet.NextID(), Name: name, Value: arr})
		default:
			return fmt.Errorf("phase=parse path=sheet.%s: expected scalar or sequence, got YAML kind %d", name, val.Kind)
		}
	}
	for _, d := range b.doc.Sheet.DefineAll(b.table, srcs...) {
		if inv, ok := d.Value.(sheet.Invalid); ok {
			return fmt.Errorf("phase=parse path=sheet.%s: %w", d.Name, inv.Reason)
		}
	}
	return nil
}

// array evaluates every element of a sequence. Elements may only use
// constants and functions.
func (b *builder) array(node *yaml.Node) (sheet.Array, error) {
	arr := sheet.Array{Values: make([]expr.Value, 0, len(node.Content))}
	p := expr.NewParser(b.table, nil)
	for i, item := range node.Content {
		e, err := p.Parse(item.Value)
		if err != nil {
			return sheet.Array{}, fmt.Errorf("[%d]: %w", i, err)
		}
		v, err := expr.Evaluate(e, nil)
		if err != nil {
			return sheet.Array{}, fmt.Errorf("[%d]: %w", i, err)
		}
		arr.Values = append(arr.Values, v)
	}
	return arr, nil
}

func (b *builder) declareForms(node *yaml.Node) error {
	if node.Kind == 0 {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("phase=parse path=forms: expected mapping, got YAML kind %d", node.Kind)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		name, kind := node.Content[i].Value, node.Content[i+1].Value
		if _, err := b.declare(name, kind, "forms."+name); err != nil {
			return err
		}
	}
	return nil
}

// declare creates a form of the named kind and registers it under name.
func (b *builder) declare(name, kind, path string) (form.Form, error) {
	if name == "" {
		return nil, fmt.Errorf("phase=parse path=%s: empty form name", path)
	}
	if strings.Contains(name, ".") {
		return nil, fmt.Errorf("phase=parse path=%s: form name %q must not contain '.'", path, name)
	}
	if _, dup := b.forms[name]; dup {
		return nil, fmt.Errorf("phase=parse path=%s: form %q declared twice", path, name)
	}
	f, err := NewForm(kind, name)
	if err != nil {
		return nil, fmt.Errorf("phase=parse path=%s: %w", path, err)
	}
	b.forms[name] = f
	b.doc.Forms = append(b.doc.Forms, f)
	return f, nil
}

// NewForm returns a fresh form of kind: line, rectangle or circle.
func NewForm(kind, name string) (form.Form, error) {
	switch kind {
	case "line":
		return form.NewLine(name), nil
	case "rectangle", "rect":
		return form.NewRectangle(name), nil
	case "circle":
		return form.NewCircle(name), nil
	}
	return nil, fmt.Errorf("unknown form type %q (want line, rectangle or circle)", kind)
}

// Kind is the inverse of NewForm.
func Kind(f form.Form) string { return f.Kind() }

func (b *builder) children(parent instr.NodeID, items []yamlInstruction, path string) error {
	tree := b.doc.Tree
	for i, yi := range items {
		p := fmt.Sprintf("%s[%d]", path, i)
		id, err := b.node(yi, p)
		if err != nil {
			return err
		}
		if !tree.AppendChild(parent, id) {
			return fmt.Errorf("phase=build path=%s: groups nest deeper than %d levels", p, tree.MaxDepth)
		}
		if g, ok := tree.Group(id); ok {
			if err := b.children(id, yi.Do, p+".do"); err != nil {
				return err
			}
			// The proxy is only visible inside its own body.
			if _, iter := g.(instr.FormIterator); iter {
				delete(b.forms, yi.As)
			}
		}
	}
	return nil
}

func (b *builder) node(yi yamlInstruction, path string) (instr.NodeID, error) {
	verbs := b.verbs(yi)
	if len(verbs) != 1 {
		return instr.NoNode, fmt.Errorf("phase=parse path=%s: expected exactly one of create, translate, rotate, "+
			"scale, morph, repeat, if, each, sequence; got %d (%s)", path, len(verbs), strings.Join(verbs, ", "))
	}
	tree := b.doc.Tree
	if isGroupVerb(verbs[0]) {
		g, err := b.group(verbs[0], yi, path)
		if err != nil {
			return instr.NoNode, err
		}
		return tree.NewGroupNode(g), nil
	}
	if yi.Do != nil {
		return instr.NoNode, fmt.Errorf("phase=parse path=%s: %s takes no 'do' block", path, verbs[0])
	}
	ins, err := b.instruction(verbs[0], yi, path)
	if err != nil {
		return instr.NoNode, err
	}
	return tree.NewNode(ins), nil
}

func (b *builder) verbs(yi yamlInstruction) []string {
	var out []string
	for _, v := range []struct {
		name string
		set  bool
	}{
		{"create", yi.Create != nil},
		{"translate", yi.Translate != nil},
		{"rotate", yi.Rotate != nil},
		{"scale", yi.Scale != nil},
		{"morph", yi.Morph != nil},
		{"repeat", yi.Repeat.Kind != 0},
		{"if", yi.If.Kind != 0},
		{"each", yi.Each != nil},
		{"sequence", yi.Sequence != nil},
	} {
		if v.set {
			out = append(out, v.name)
		}
	}
	return out
}

func isGroupVerb(v string) bool {
	switch v {
	case "repeat", "if", "each", "sequence":
		return true
	}
	return false
}

// ---- Groups ----------------------------------------------------------------

func (b *builder) group(verb string, yi yamlInstruction, path string) (instr.GroupInstruction, error) {
	switch verb {
	case "sequence":
		return instr.Sequence{Name: *yi.Sequence}, nil
	case "repeat":
		e, err := b.expression(&yi.Repeat)
		if err != nil {
			return nil, fmt.Errorf("phase=parse path=%s.repeat: %w", path, err)
		}
		return instr.ForLoop{Count: e}, nil
	case "if":
		e, err := b.expression(&yi.If)
		if err != nil {
			return nil, fmt.Errorf("phase=parse path=%s.if: %w", path, err)
		}
		return instr.IfCondition{Condition: e}, nil
	}
	return b.iterator(yi, path)
}

// iterator builds an each block. The proxy takes the kind of the first form
// and is declared for the body only.
func (b *builder) iterator(yi yamlInstruction, path string) (instr.GroupInstruction, error) {
	if len(yi.Each) == 0 {
		return nil, fmt.Errorf("phase=parse path=%s.each: no forms", path)
	}
	if yi.As == "" {
		return nil, fmt.Errorf("phase=parse path=%s: each needs 'as'", path)
	}
	ids := make([]form.ID, len(yi.Each))
	var first form.Form
	for i, name := range yi.Each {
		f, err := b.form(name, fmt.Sprintf("%s.each[%d]", path, i))
		if err != nil {
			return nil, err
		}
		if first == nil {
			first = f
		}
		ids[i] = f.Identifier()
	}
	proxy, err := b.declare(yi.As, Kind(first), path+".as")
	if err != nil {
		return nil, err
	}
	return instr.FormIterator{Proxy: proxy, Forms: ids}, nil
}

// ---- Instructions ----------------------------------------------------------

func (b *builder) instruction(verb string, yi yamlInstruction, path string) (instr.Instruction, error) {
	switch verb {
	case "create":
		return b.create(yi, path)
	case "translate":
		f, err := b.form(*yi.Translate, path+".translate")
		if err != nil {
			return nil, err
		}
		d, err := b.distance(yi, path)
		if err != nil {
			return nil, err
		}
		return instr.Translate{Form: f, Distance: d}, nil
	case "morph":
		f, err := b.form(*yi.Morph, path+".morph")
		if err != nil {
			return nil, err
		}
		if _, ok := form.FindAnchor(f, form.AnchorID(yi.Anchor)); !ok {
			return nil, fmt.Errorf("phase=parse path=%s.anchor: %s has no anchor %q", path, f.Name(), yi.Anchor)
		}
		d, err := b.distance(yi, path)
		if err != nil {
			return nil, err
		}
		return instr.Morph{Form: f, Anchor: form.AnchorID(yi.Anchor), Distance: d}, nil
	case "rotate":
		f, err := b.form(*yi.Rotate, path+".rotate")
		if err != nil {
			return nil, err
		}
		fix, err := b.fixPoint(f, &yi.Around, path+".around")
		if err != nil {
			return nil, err
		}
		a, err := b.angle(yi, fix, path)
		if err != nil {
			return nil, err
		}
		return instr.Rotate{Form: f, Angle: a, FixPoint: fix}, nil
	}

	f, err := b.form(*yi.Scale, path+".scale")
	if err != nil {
		return nil, err
	}
	fix, err := b.fixPoint(f, &yi.Around, path+".around")
	if err != nil {
		return nil, err
	}
	factor, err := b.factor(yi, fix, path)
	if err != nil {
		return nil, err
	}
	axis, err := parseAxis(yi.Axis)
	if err != nil {
		return nil, fmt.Errorf("phase=parse path=%s.axis: %w", path, err)
	}
	return instr.Scale{Form: f, Factor: factor, FixPoint: fix, Axis: axis}, nil
}

// create resolves the destination. A form that was not declared up front is
// declared here when the instruction names its type.
func (b *builder) create(yi yamlInstruction, path string) (instr.Instruction, error) {
	name := *yi.Create
	f, ok := b.forms[name]
	if !ok {
		if yi.Type == "" {
			return nil, fmt.Errorf("phase=parse path=%s.create: unknown form %q (declare it under forms or set type)", path, name)
		}
		var err error
		if f, err = b.declare(name, yi.Type, path+".create"); err != nil {
			return nil, err
		}
	}
	align := instr.Leading
	if yi.Centered {
		align = instr.Centered
	}

	if yi.At.Kind != 0 {
		if yi.From.Kind != 0 || yi.To.Kind != 0 {
			return nil, fmt.Errorf("phase=parse path=%s: use either at/size or from/to", path)
		}
		origin, err := b.point(&yi.At, path+".at")
		if err != nil {
			return nil, err
		}
		if len(yi.Size) != 2 {
			return nil, fmt.Errorf("phase=parse path=%s.size: expected [width, height]", path)
		}
		size := form.Vec2{X: yi.Size[0], Y: yi.Size[1]}
		return instr.Create{Form: f, Destination: instr.FixSizeDestination{Origin: origin, Size: size, Align: align}}, nil
	}

	from, err := b.point(&yi.From, path+".from")
	if err != nil {
		return nil, err
	}
	to, err := b.point(&yi.To, path+".to")
	if err != nil {
		return nil, err
	}
	return instr.Create{Form: f, Destination: instr.RelativeDestination{From: from, To: to, Align: align}}, nil
}

// distance reads "by: [dx, dy]" or a from/to pair. Numeric components give
// a constant distance; anything else is compiled against the sheet.
func (b *builder) distance(yi yamlInstruction, path string) (instr.Distance, error) {
	if yi.By.Kind == 0 {
		from, err := b.point(&yi.From, path+".from")
		if err != nil {
			return nil, err
		}
		to, err := b.point(&yi.To, path+".to")
		if err != nil {
			return nil, err
		}
		return instr.RelativeDistance{From: from, To: to}, nil
	}
	x, y, err := pair(&yi.By)
	if err != nil {
		return nil, fmt.Errorf("phase=parse path=%s.by: %w", path, err)
	}
	if v, ok := numbers(x, y); ok {
		return instr.ConstantDistance{Delta: v}, nil
	}
	ex, err := b.parse(x.Value)
	if err != nil {
		return nil, fmt.Errorf("phase=parse path=%s.by[0]: %w", path, err)
	}
	ey, err := b.parse(y.Value)
	if err != nil {
		return nil, fmt.Errorf("phase=parse path=%s.by[1]: %w", path, err)
	}
	return instr.ExprDistance{X: ex, Y: ey}, nil
}

// angle reads "angle: <degrees>" or a from/to pair swept around fix.
func (b *builder) angle(yi yamlInstruction, fix instr.Point, path string) (instr.Angle, error) {
	if yi.Angle.Kind == 0 {
		from, to, err := b.sweep(yi, path)
		if err != nil {
			return nil, err
		}
		return instr.RelativeAngle{Center: fix, From: from, To: to}, nil
	}
	if deg, ok := number(&yi.Angle); ok {
		return instr.ConstantAngle{Radians: deg * math.Pi / 180}, nil
	}
	e, err := b.expression(&yi.Angle)
	if err != nil {
		return nil, fmt.Errorf("phase=parse path=%s.angle: %w", path, err)
	}
	return instr.ExprAngle{Degrees: e}, nil
}

func (b *builder) factor(yi yamlInstruction, fix instr.Point, path string) (instr.Factor, error) {
	if yi.Factor.Kind == 0 {
		from, to, err := b.sweep(yi, path)
		if err != nil {
			return nil, err
		}
		return instr.RelativeFactor{Center: fix, From: from, To: to}, nil
	}
	if f, ok := number(&yi.Factor); ok {
		return instr.ConstantFactor{Value: f}, nil
	}
	e, err := b.expression(&yi.Factor)
	if err != nil {
		return nil, fmt.Errorf("phase=parse path=%s.factor: %w", path, err)
	}
	return instr.ExprFactor{Expr: e}, nil
}

func (b *builder) sweep(yi yamlInstruction, path string) (instr.Point, instr.Point, error) {
	if yi.From.Kind == 0 || yi.To.Kind == 0 {
		return nil, nil, fmt.Errorf("phase=parse path=%s: missing amount (or from/to)", path)
	}
	from, err := b.point(&yi.From, path+".from")
	if err != nil {
		return nil, nil, err
	}
	to, err := b.point(&yi.To, path+".to")
	if err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

// fixPoint defaults to the center of f.
func (b *builder) fixPoint(f form.Form, node *yaml.Node, path string) (instr.Point, error) {
	if node.Kind == 0 {
		return instr.AnchorPoint{Form: f, Anchor: form.AnchorCenter}, nil
	}
	return b.point(node, path)
}

// point reads "[x, y]" as a constant point or "form.anchor" as an anchor.
func (b *builder) point(node *yaml.Node, path string) (instr.Point, error) {
	switch node.Kind {
	case 0:
		return nil, fmt.Errorf("phase=parse path=%s: missing point", path)
	case yaml.SequenceNode:
		x, y, err := pair(node)
		if err != nil {
			return nil, fmt.Errorf("phase=parse path=%s: %w", path, err)
		}
		v, ok := numbers(x, y)
		if !ok {
			return nil, fmt.Errorf("phase=parse path=%s: point components must be numbers", path)
		}
		return instr.ConstantPoint{At: v}, nil
	case yaml.ScalarNode:
		name, anchor, ok := strings.Cut(node.Value, ".")
		if !ok {
			return nil, fmt.Errorf("phase=parse path=%s: expected form.anchor, got %q", path, node.Value)
		}
		f, err := b.form(name, path)
		if err != nil {
			return nil, err
		}
		if _, ok := form.FindAnchor(f, form.AnchorID(anchor)); !ok {
			return nil, fmt.Errorf("phase=parse path=%s: %s has no anchor %q", path, name, anchor)
		}
		return instr.AnchorPoint{Form: f, Anchor: form.AnchorID(anchor)}, nil
	}
	return nil, fmt.Errorf("phase=parse path=%s: expected [x, y] or form.anchor, got YAML kind %d", path, node.Kind)
}

func (b *builder) form(name, path string) (form.Form, error) {
	f, ok := b.forms[name]
	if !ok {
		return nil, fmt.Errorf("phase=parse path=%s: unknown form %q", path, name)
	}
	return f, nil
}

func (b *builder) expression(node *yaml.Node) (expr.Expression, error) {
	if node.Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("expected an expression, got YAML kind %d", node.Kind)
	}
	return b.parse(node.Value)
}

func (b *builder) parse(src string) (expr.Expression, error) {
	return b.parser.Parse(src)
}

// ---- Scalars ---------------------------------------------------------------

func pair(node *yaml.Node) (*yaml.Node, *yaml.Node, error) {
	if node.Kind != yaml.SequenceNode || len(node.Content) != 2 {
		return nil, nil, fmt.Errorf("expected a pair [x, y]")
	}
	return node.Content[0], node.Content[1], nil
}

// number reports the value of a numeric scalar. yaml.v3 tags plain numbers
// !!int or !!float.
func number(node *yaml.Node) (float64, bool) {
	if node.Kind != yaml.ScalarNode {
		return 0, false
	}
	switch node.ShortTag() {
	case "!!int", "!!float":
		f, err := strconv.ParseFloat(node.Value, 64)
		return f, err == nil
	}
	return 0, false
}

func numbers(x, y *yaml.Node) (form.Vec2, bool) {
	fx, okx := number(x)
	fy, oky := number(y)
	return form.Vec2{X: fx, Y: fy}, okx && oky
}

func parseAxis(s string) (form.Axis, error) {
	switch s {
	case "":
		return form.AxisNone, nil
	case "x", "horizontal":
		return form.AxisHorizontal, nil
	case "y", "vertical":
		return form.AxisVertical, nil
	}
	return form.AxisNone, fmt.Errorf("unknown axis %q (want x or y)", s)
}
