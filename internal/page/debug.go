package page

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"unicode"
)

func asciiPreview(b []byte) string {
	var buf bytes.Buffer
	for _, c := range b {
		r := rune(c)
		if unicode.IsPrint(r) && r != '\n' && r != '\r' && r != '\t' {
			buf.WriteRune(r)
		} else {
			buf.WriteByte('.')
		}
	}
	return buf.String()
}

// Dump prints the header, slot directory, and a hex/ASCII preview of
// every tuple to w. It is a debugging aid, not part of the on-disk
// format or the page's public contract.
func (p *Page) Dump(w io.Writer) {
	n := p.NumTuples()
	fmt.Fprintf(w, "=== Page Debug ===\n")
	fmt.Fprintf(w, "nextPageID=%d numTuples=%d minTupleOffset=%d\n", p.NextPageID(), n, p.minTupleOffset())

	fmt.Fprintln(w, "\n-- Slots --")
	if n == 0 {
		fmt.Fprintln(w, "(none)")
	}
	for i := uint16(0); i < n; i++ {
		offset, length, meta := p.readSlot(i)
		fmt.Fprintf(w, "[%d] offset=%d length=%d deleted=%v\n", i, offset, length, meta.Deleted)
	}

	fmt.Fprintln(w, "\n-- Tuples (preview) --")
	const maxPreview = 32
	for i := uint16(0); i < n; i++ {
		meta, data, err := p.GetTuple(i)
		if err != nil {
			fmt.Fprintf(w, "[%d] <error: %v>\n", i, err)
			continue
		}
		preview := data
		if len(preview) > maxPreview {
			preview = preview[:maxPreview]
		}
		fmt.Fprintf(w, "[%d] len=%d deleted=%v hex=%s ascii=%q\n",
			i, len(data), meta.Deleted, hex.EncodeToString(preview), asciiPreview(preview))
	}
	fmt.Fprintln(w, "=== End Page Debug ===")
}
