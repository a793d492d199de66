package tensor

// UnaryKind enumerates element-wise single-input kernels.
type UnaryKind uint8

// Unary kernels. The Scalar variants read UnaryOp.Scalar.
const (
	Neg UnaryKind = iota
	Exp
	Ln
	Sqrt
	Square
	Abs
	Sin
	Cos
	Tanh
	Sigmoid
	ReLU
	AddScalar
	MulScalar
	PowScalar
)

var unaryNames = [...]string{
	Neg:       "neg",
	Exp:       "exp",
	Ln:        "ln",
	Sqrt:      "sqrt",
	Square:    "square",
	Abs:       "abs",
	Sin:       "sin",
	Cos:       "cos",
	Tanh:      "tanh",
	Sigmoid:   "sigmoid",
	ReLU:      "relu",
	AddScalar: "add_scalar",
	MulScalar: "mul_scalar",
	PowScalar: "pow_scalar",
}

func (k UnaryKind) String() string {
	if int(k) < len(unaryNames) {
		return unaryNames[k]
	}
	return "unary?"
}

// UnaryOp selects a unary kernel and its scalar operand, if any.
type UnaryOp struct {
	Kind   UnaryKind
	Scalar float64
}

func (op UnaryOp) String() string {
	return op.Kind.String()
}

// BinaryOp enumerates element-wise two-input kernels.
type BinaryOp uint8

// Binary kernels.
const (
	Add BinaryOp = iota
	Sub
	Mul
	Div
	Minimum
	Maximum
)

var binaryNames = [...]string{
	Add:     "add",
	Sub:     "sub",
	Mul:     "mul",
	Div:     "div",
	Minimum: "minimum",
	Maximum: "maximum",
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryNames) {
		return binaryNames[op]
	}
	return "binary?"
}
