// Package agent implements the order assistant backend: intent parsing, the
// cart/checkout conversation, and its HTTP and WebSocket surfaces.
package agent

// Action is the operation a chat message asks for.
type Action string

const (
	ActionMenu     Action = "menu"
	ActionShow     Action = "show"
	ActionClear    Action = "clear"
	ActionAdd      Action = "add"
	ActionRemove   Action = "remove"
	ActionUpdate   Action = "update"
	ActionName     Action = "name"
	ActionAddress  Action = "address"
	ActionCheckout Action = "checkout"
	ActionUnknown  Action = "unknown"
)

// Known reports whether a is an action the service dispatches.
func (a Action) Known() bool {
	switch a {
	case ActionMenu, ActionShow, ActionClear, ActionAdd, ActionRemove,
		ActionUpdate, ActionName, ActionAddress, ActionCheckout, ActionUnknown:
		return true
	default:
		return false
	}
}

// ParsedIntent is the structured reading of one chat message. Zero values mean
// "not given": Qty 0 on an update leaves the quantity alone.
type ParsedIntent struct {
	Action  Action `json:"action"`
	Item    string `json:"item,omitempty"`
	Size    string `json:"size,omitempty"`
	Qty     int    `json:"qty,omitempty"`
	Index   int    `json:"index,omitempty"`
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
	Raw     string `json:"raw,omitempty"`
}
