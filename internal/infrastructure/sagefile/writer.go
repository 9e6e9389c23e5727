package sagefile

import (
	"bufio"
	"fmt"
	"io"
)

// Write renders composed export lines to w, one per line with a trailing
// newline, matching the upstream system's expectations.
func Write(w io.Writer, lines []string) error {
	bw := bufio.NewWriter(w)
	for _, line := range lines {
		if _, err := bw.WriteString(line); err != nil {
			return fmt.Errorf("write export line: %w", err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return fmt.Errorf("write export line: %w", err)
		}
	}
	return bw.Flush()
}
