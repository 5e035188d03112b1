// Package cartline implements the line-oriented cart text protocol.
//
// Each cart entry is rendered as
//
//	<position>. <quantity> x <size> <item name> -> $<price>
//
// and a cart reply is N such lines followed by exactly one footer line.
// Decoding is best effort: a line that does not match the grammar is reported
// as absent and callers drop it. Replies that carry a structured cart should be
// preferred over this text form; the codec remains for compatibility.
package cartline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ashureev/orderbot/internal/domain"
	"github.com/shopspring/decimal"
)

// EmptyCartText is the whole reply the backend sends for an empty cart.
const EmptyCartText = "Your cart is empty."

// The item name is the greedy remainder up to the last " -> $" before a
// two-digit price at end of line.
var (
	linePattern   = regexp.MustCompile(`^(\d+)\.\s+(\d+)\s+x\s+(\S+)\s+(\S+(?:\s+\S+)*)\s+->\s+\$(\d+\.\d{2})$`)
	footerPattern = regexp.MustCompile(`(?i)^total:\s+\$\d+\.\d{2}$`)
)

// Encode renders one entry in the protocol's line format.
func Encode(e domain.CartEntry) string {
	return fmt.Sprintf("%d. %d x %s %s -> $%s", e.Position, e.Quantity, e.Size, e.ItemName, e.Price.StringFixed(2))
}

// Decode parses one line. ok is false when the line does not follow the
// grammar; Decode never panics on malformed input.
func Decode(line string) (entry domain.CartEntry, ok bool) {
	m := linePattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return domain.CartEntry{}, false
	}

	position, err := strconv.Atoi(m[1])
	if err != nil || position <= 0 {
		return domain.CartEntry{}, false
	}
	quantity, err := strconv.Atoi(m[2])
	if err != nil || quantity <= 0 {
		return domain.CartEntry{}, false
	}
	price, err := decimal.NewFromString(m[5])
	if err != nil {
		return domain.CartEntry{}, false
	}

	return domain.CartEntry{
		Position: position,
		Quantity: quantity,
		Size:     m[3],
		ItemName: m[4],
		Price:    price,
	}, true
}

// FormatFooter renders the total line that terminates a cart reply.
func FormatFooter(total decimal.Decimal) string {
	return "TOTAL: $" + total.StringFixed(2)
}

// FormatCart renders a full cart reply: entry lines plus footer, or
// EmptyCartText when there is nothing in the cart.
func FormatCart(snap domain.CartSnapshot) string {
	if len(snap) == 0 {
		return EmptyCartText
	}
	var b strings.Builder
	for _, e := range snap {
		b.WriteString(Encode(e))
		b.WriteByte('\n')
	}
	b.WriteString(FormatFooter(snap.Total()))
	return b.String()
}

// IsFooter reports whether line is a total footer.
func IsFooter(line string) bool {
	return footerPattern.MatchString(strings.TrimSpace(line))
}
