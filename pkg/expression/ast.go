package expression

// Node is a node in a parsed expression tree. The node set is closed: there
// is deliberately no representation for assignment, statement sequencing,
// member access, or string literals, so those constructs cannot survive
// parsing even if the lexical validator were bypassed.
type Node interface {
	exprNode()
}

// NumberLit is a numeric literal.
type NumberLit struct {
	Value float64
}

func (NumberLit) exprNode() {}

// BoolLit is a boolean literal (true or false).
type BoolLit struct {
	Value bool
}

func (BoolLit) exprNode() {}

// Ident is a variable reference, resolved against the context at
// evaluation time.
type Ident struct {
	Name string
}

func (Ident) exprNode() {}

// Unary is a prefix operation: ! or -.
type Unary struct {
	Op      string
	Operand Node
}

func (Unary) exprNode() {}

// Binary is an infix operation: arithmetic, comparison, equality, or
// logical and/or.
type Binary struct {
	Op    string
	Left  Node
	Right Node
}

func (Binary) exprNode() {}

// Call is an invocation of a whitelisted function.
type Call struct {
	Name string
	Args []Node
}

func (Call) exprNode() {}
