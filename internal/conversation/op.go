package conversation

// Op is a single store mutation. The concrete types are Append and ReplaceLast.
type Op interface {
	op()
}

// Append adds a message to the end of the transcript
type Append struct {
	Message Message
}

// ReplaceLast substitutes the final message, which must still be generating
type ReplaceLast struct {
	Message Message
}

func (Append) op()      {}
func (ReplaceLast) op() {}
