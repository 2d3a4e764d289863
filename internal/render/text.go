package render

import (
	"bufio"
	"fmt"
	"io"

	"github.com/dshills/econfctl/internal/keyfile"
)

// Text writes view in key file layout, one "key = value" per line.
func Text(w io.Writer, view *keyfile.File, origin Origin) error {
	bw := bufio.NewWriter(w)

	for i, group := range view.Groups() {
		if i > 0 {
			fmt.Fprintln(bw)
		}
		if group != keyfile.DefaultGroup {
			fmt.Fprintf(bw, "[%s]\n", group)
		}
		for _, key := range view.Keys(group) {
			value, _ := view.Get(group, key)
			if origin != nil {
				if src := origin(group, key); src != "" {
					fmt.Fprintf(bw, "%s = %s\t# %s\n", key, value, src)
					continue
				}
			}
			fmt.Fprintf(bw, "%s = %s\n", key, value)
		}
	}

	return bw.Flush()
}
