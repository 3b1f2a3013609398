package export

import (
	"bufio"
	"fmt"
	"io"

	"github.com/FluffyKn1ght/mdfmvgmrip/vgm"
)

// Commands writes the decoded command stream as a text listing, one line
// per command prefixed with its absolute file offset. A malformed command
// ends the listing with an error line and is also returned.
func Commands(w io.Writer, f *vgm.File) error {
	bw := bufio.NewWriter(w)
	dec := f.Decoder()

	for {
		cmd, err := dec.Next()
		if err != nil {
			fmt.Fprintf(bw, "0x%08X: error: %v\n", dec.Pos(), err)
			if ferr := bw.Flush(); ferr != nil {
				return ferr
			}
			return err
		}

		if _, err := fmt.Fprintf(bw, "0x%08X: %v\n", cmd.Offset, cmd); err != nil {
			return err
		}

		switch cmd.Kind {
		case vgm.KindDataBlock:
			dec.Skip(int(cmd.BlockLen))
		case vgm.KindEnd:
			return bw.Flush()
		}
	}
}
