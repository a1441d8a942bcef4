package assembler

// Node is one statement that survived pass 1.
type Node struct {
	// Text is the statement after comment stripping, ABI hashing and variable resolution.
	Text string
	// Index is the emitted line number pass 1 assigned; defines and debug offsets use it.
	Index int
	// Line is the 1-based source line the statement came from.
	Line int
}
