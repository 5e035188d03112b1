// Package command turns user intents into the outbound message text understood
// by the order assistant. It performs no validation of items or sizes; the
// assistant owns the catalog.
package command

import (
	"strconv"
	"strings"
)

// Kind identifies what the user asked for.
type Kind int

const (
	// KindFreeForm sends the user's text unmodified.
	KindFreeForm Kind = iota
	// KindViewCart asks for the current cart.
	KindViewCart
	// KindAdd adds an item.
	KindAdd
	// KindRemove removes the entry at a cart position.
	KindRemove
	// KindUpdate changes size and/or quantity of the entry at a cart position.
	KindUpdate
	// KindClear empties the cart.
	KindClear
	// KindMenu asks for the menu.
	KindMenu
	// KindCheckout places the order.
	KindCheckout
)

// String returns a short name for logs.
func (k Kind) String() string {
	switch k {
	case KindFreeForm:
		return "free_form"
	case KindViewCart:
		return "view_cart"
	case KindAdd:
		return "add"
	case KindRemove:
		return "remove"
	case KindUpdate:
		return "update"
	case KindClear:
		return "clear"
	case KindMenu:
		return "menu"
	case KindCheckout:
		return "checkout"
	default:
		return "unknown"
	}
}

// Intent is a UI-level request. Only the fields relevant to Kind are read.
type Intent struct {
	Kind     Kind
	Text     string
	Quantity int
	Size     string
	ItemName string
	Position int
}

// ViewCart returns the intent for showing the cart.
func ViewCart() Intent { return Intent{Kind: KindViewCart} }

// Add returns the intent for adding quantity x size itemName.
func Add(quantity int, size, itemName string) Intent {
	return Intent{Kind: KindAdd, Quantity: quantity, Size: size, ItemName: itemName}
}

// Remove returns the intent for removing the entry at position.
func Remove(position int) Intent { return Intent{Kind: KindRemove, Position: position} }

// Update returns the intent for changing the entry at position. An empty size
// or a zero quantity leaves that attribute unchanged.
func Update(position int, size string, quantity int) Intent {
	return Intent{Kind: KindUpdate, Position: position, Size: size, Quantity: quantity}
}

// FreeForm returns the intent for sending text as typed.
func FreeForm(text string) Intent { return Intent{Kind: KindFreeForm, Text: text} }

// Clear returns the intent for emptying the cart.
func Clear() Intent { return Intent{Kind: KindClear} }

// Menu returns the intent for listing the menu.
func Menu() Intent { return Intent{Kind: KindMenu} }

// Checkout returns the intent for placing the order.
func Checkout() Intent { return Intent{Kind: KindCheckout} }

// AffectsCart reports whether the intent mutates the server-side cart.
func (i Intent) AffectsCart() bool {
	switch i.Kind {
	case KindAdd, KindRemove, KindUpdate, KindClear, KindCheckout:
		return true
	default:
		return false
	}
}

// IsCartView reports whether the intent is an explicit cart query.
func (i Intent) IsCartView() bool {
	return i.Kind == KindViewCart
}

// Build returns the single outbound message for the intent.
func Build(i Intent) string {
	switch i.Kind {
	case KindViewCart:
		return "cart"
	case KindAdd:
		return "add " + strconv.Itoa(i.Quantity) + " " + i.Size + " " + i.ItemName
	case KindRemove:
		return "remove " + strconv.Itoa(i.Position)
	case KindUpdate:
		parts := []string{"update", strconv.Itoa(i.Position)}
		if i.Size != "" {
			parts = append(parts, i.Size)
		}
		if i.Quantity > 0 {
			parts = append(parts, "qty", strconv.Itoa(i.Quantity))
		}
		return strings.Join(parts, " ")
	case KindClear:
		return "clear cart"
	case KindMenu:
		return "menu"
	case KindCheckout:
		return "checkout"
	default:
		return i.Text
	}
}
