package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeuristicParser(t *testing.T) {
	tests := []struct {
		in   string
		want ParsedIntent
	}{
		{"menu", ParsedIntent{Action: ActionMenu}},
		{"Show menu", ParsedIntent{Action: ActionMenu}},
		{"cart", ParsedIntent{Action: ActionShow}},
		{"show my cart", ParsedIntent{Action: ActionShow}},
		{"clear cart", ParsedIntent{Action: ActionClear}},
		{"clear", ParsedIntent{Action: ActionClear}},
		{"checkout", ParsedIntent{Action: ActionCheckout}},
		{"I'm ready to check out", ParsedIntent{Action: ActionCheckout}},
		{"My name is Alice", ParsedIntent{Action: ActionName, Name: "Alice"}},
		{"this is Bob Smith.", ParsedIntent{Action: ActionName, Name: "Bob Smith"}},
		{"Address: 123 Main St, Springfield", ParsedIntent{Action: ActionAddress, Address: "123 Main St, Springfield"}},
		{"deliver to 9 Elm Road", ParsedIntent{Action: ActionAddress, Address: "9 Elm Road"}},
		{"my address is 5 Oak Ave", ParsedIntent{Action: ActionAddress, Address: "5 Oak Ave"}},
		{"remove 2", ParsedIntent{Action: ActionRemove, Index: 2}},
		{"remove item 3", ParsedIntent{Action: ActionRemove, Index: 3}},
		{"update 1 size large", ParsedIntent{Action: ActionUpdate, Index: 1, Size: "large"}},
		{"update 1 large qty 3", ParsedIntent{Action: ActionUpdate, Index: 1, Size: "large", Qty: 3}},
		{"update 2 qty 4", ParsedIntent{Action: ActionUpdate, Index: 2, Qty: 4}},
		{"change item 1 to small", ParsedIntent{Action: ActionUpdate, Index: 1, Size: "small"}},
		{"add 2 medium Cheeseburger", ParsedIntent{Action: ActionAdd, Item: "Cheeseburger", Size: "medium", Qty: 2}},
		{"add a large cheeseburger", ParsedIntent{Action: ActionAdd, Item: "Cheeseburger", Size: "large", Qty: 1}},
		{"I want 2 medium cheeseburgers", ParsedIntent{Action: ActionAdd, Item: "Cheeseburgers", Size: "medium", Qty: 2}},
		{"i want to order a veggie wrap", ParsedIntent{Action: ActionAdd, Item: "Veggie Wrap", Size: "medium", Qty: 1}},
		{"i'd like a small caesar salad", ParsedIntent{Action: ActionAdd, Item: "Caesar Salad", Size: "small", Qty: 1}},
		{"order 3 large chicken tacos", ParsedIntent{Action: ActionAdd, Item: "Chicken Tacos", Size: "large", Qty: 3}},
		{"get me 2 medium pizzas", ParsedIntent{Action: ActionAdd, Item: "Pizzas", Size: "medium", Qty: 2}},
		{"add 1 small fried rice to my cart", ParsedIntent{Action: ActionAdd, Item: "Fried Rice", Size: "small", Qty: 1}},
		{"hello there", ParsedIntent{Action: ActionUnknown, Raw: "hello there"}},
		{"   ", ParsedIntent{Action: ActionUnknown}},
	}

	p := NewHeuristicParser()
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := p.Parse(context.Background(), tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Bbq Ribs", titleCase("bbq   RIBS"))
	assert.Equal(t, "", titleCase(""))
}
