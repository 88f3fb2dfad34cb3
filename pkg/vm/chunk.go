package vm

// Chunk is a compiled code record. The equality engine only ever uses
// *Chunk identity (same compilation, same source), never the contents.
type Chunk struct {
	Code      []byte
	Constants []Value
	Name      string
	Line      int
}

// NewChunk creates a new, empty chunk.
func NewChunk(name string, line int) *Chunk {
	return &Chunk{Name: name, Line: line}
}
