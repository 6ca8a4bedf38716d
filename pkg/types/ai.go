package types

// MessageContext is one prompt message handed to the completion provider.
type MessageContext struct {
	Role    MessageUserRole `json:"role"`
	Content string          `json:"content"`
}
