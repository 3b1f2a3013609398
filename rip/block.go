package rip

// DataBlock is one embedded data block lifted out of the command stream,
// in stream order. Offset is the absolute byte position of the payload
// within the file, useful for cross-referencing a hex dump.
type DataBlock struct {
	Type   uint8
	Offset int
	Data   []byte
}

// PadEven returns the block payload padded with a trailing zero byte when
// its length is odd. The original slice is never grown in place.
func (b DataBlock) PadEven() []byte {
	if len(b.Data)%2 == 0 {
		return b.Data
	}
	return append(b.Data[:len(b.Data):len(b.Data)], 0)
}
