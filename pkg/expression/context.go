package expression

// Context is the flat set of variable bindings visible to an expression
// during evaluation. Build one with Sanitize or NewContextBuilder; both
// refuse denylisted names, so a Context can never carry a binding that the
// validator would reject as an identifier.
type Context map[string]Value

// deniedIdentifiers are names that must never appear in an expression or
// enter a context. The list targets host-environment escape hatches and
// object-graph traversal; matching is exact on whole identifiers, so a
// variable named e.g. "evaluationScore" is unaffected.
var deniedIdentifiers = map[string]struct{}{
	"eval":           {},
	"Function":       {},
	"window":         {},
	"document":       {},
	"process":        {},
	"global":         {},
	"globalThis":     {},
	"require":        {},
	"import":         {},
	"fetch":          {},
	"XMLHttpRequest": {},
	"setTimeout":     {},
	"setInterval":    {},
	"constructor":    {},
	"prototype":      {},
	"__proto__":      {},
	"navigator":      {},
	"location":       {},
}

func isDeniedIdentifier(name string) bool {
	_, denied := deniedIdentifiers[name]
	return denied
}

// Sanitize builds a Context from an arbitrary map, keeping only entries
// whose key is not denylisted and whose value is a primitive. Anything
// else -- functions, maps, slices, structs -- is dropped silently, so a
// caller-supplied object can never smuggle a callable or an object graph
// into evaluation.
func Sanitize(raw map[string]any) Context {
	ctx := make(Context, len(raw))
	for name, val := range raw {
		if isDeniedIdentifier(name) {
			continue
		}
		switch t := val.(type) {
		case nil:
			ctx[name] = Null()
		case bool:
			ctx[name] = Bool(t)
		case string:
			ctx[name] = String(t)
		case float64:
			ctx[name] = Number(t)
		case float32:
			ctx[name] = Number(float64(t))
		case int:
			ctx[name] = Number(float64(t))
		case int32:
			ctx[name] = Number(float64(t))
		case int64:
			ctx[name] = Number(float64(t))
		case uint:
			ctx[name] = Number(float64(t))
		case uint64:
			ctx[name] = Number(float64(t))
		case Value:
			ctx[name] = t
		}
	}
	return ctx
}

// ContextBuilder constructs a Context from typed values. It applies the same
// name filtering as Sanitize, making the "dangerous key" bug class
// unrepresentable rather than filtered after the fact.
type ContextBuilder struct {
	ctx Context
}

func NewContextBuilder() *ContextBuilder {
	return &ContextBuilder{ctx: make(Context)}
}

func (b *ContextBuilder) Number(name string, v float64) *ContextBuilder {
	return b.set(name, Number(v))
}

func (b *ContextBuilder) Bool(name string, v bool) *ContextBuilder {
	return b.set(name, Bool(v))
}

func (b *ContextBuilder) String(name string, v string) *ContextBuilder {
	return b.set(name, String(v))
}

func (b *ContextBuilder) Null(name string) *ContextBuilder {
	return b.set(name, Null())
}

func (b *ContextBuilder) Value(name string, v Value) *ContextBuilder {
	return b.set(name, v)
}

func (b *ContextBuilder) set(name string, v Value) *ContextBuilder {
	if !isDeniedIdentifier(name) {
		b.ctx[name] = v
	}
	return b
}

func (b *ContextBuilder) Build() Context {
	return b.ctx
}
