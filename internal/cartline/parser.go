package cartline

import (
	"log/slog"
	"strings"

	"github.com/ashureev/orderbot/internal/domain"
)

// Parse extracts the cart snapshot from a cart-format reply.
//
// The last non-blank line is the footer and is always excluded by position.
// Every remaining line that decodes becomes an entry, in reply order; lines
// that do not decode are skipped, as is a line repeating a position already
// taken. Empty input yields an empty snapshot.
func Parse(reply string) domain.CartSnapshot {
	lines := splitLines(reply)
	snap := domain.CartSnapshot{}
	if len(lines) <= 1 {
		return snap
	}

	seen := make(map[int]bool, len(lines))
	for _, line := range lines[:len(lines)-1] {
		entry, ok := Decode(line)
		if !ok {
			if strings.TrimSpace(line) != "" {
				slog.Debug("cart line did not match protocol", "line", line)
			}
			continue
		}
		if seen[entry.Position] {
			slog.Debug("cart line repeats a position", "position", entry.Position, "line", line)
			continue
		}
		seen[entry.Position] = true
		snap = append(snap, entry)
	}
	return snap
}

// EndsWithCart reports whether a reply finishes with a cart restatement:
// either the empty-cart sentence or a footer line.
func EndsWithCart(reply string) bool {
	lines := splitLines(reply)
	if len(lines) == 0 {
		return false
	}
	last := strings.TrimSpace(lines[len(lines)-1])
	return last == EmptyCartText || IsFooter(last)
}

func splitLines(reply string) []string {
	reply = strings.ReplaceAll(reply, "\r\n", "\n")
	reply = strings.TrimRight(reply, " \t\r\n")
	if reply == "" {
		return nil
	}
	return strings.Split(reply, "\n")
}
