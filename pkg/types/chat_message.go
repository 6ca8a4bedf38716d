package types

type ChatMessage struct {
	ID        string          `json:"id" db:"id"`
	SessionID string          `json:"session_id" db:"session_id"`
	UserID    string          `json:"user_id" db:"user_id"`
	Role      MessageUserRole `json:"role" db:"role"`
	Message   string          `json:"message" db:"message"`
	SendTime  int64           `json:"send_time" db:"send_time"`
	Complete  MessageProgress `json:"complete" db:"complete"`
}

type MessageUserRole int8

const (
	USER_ROLE_UNKNOWN   MessageUserRole = 0
	USER_ROLE_USER      MessageUserRole = 1
	USER_ROLE_ASSISTANT MessageUserRole = 2
)

func (s MessageUserRole) String() string {
	switch s {
	case USER_ROLE_USER:
		return "user"
	case USER_ROLE_ASSISTANT:
		return "assistant"
	default:
		return "unknown"
	}
}

// WireSender is the client-facing name of the role.
func (s MessageUserRole) WireSender() string {
	if s == USER_ROLE_ASSISTANT {
		return "ai"
	}
	return "user"
}

func GetMessageUserRoleFromWire(sender string) MessageUserRole {
	switch sender {
	case "ai":
		return USER_ROLE_ASSISTANT
	case "user":
		return USER_ROLE_USER
	default:
		return USER_ROLE_UNKNOWN
	}
}

// MessageProgress tracks the lifecycle of an assistant answer:
// a placeholder is created GENERATING with empty content, rewritten while the
// stream runs and flipped to COMPLETE exactly once. FAILED marks a stream the
// provider reported an error for; the partial content is kept.
type MessageProgress int8

const (
	MESSAGE_PROGRESS_UNKNOWN    MessageProgress = 0
	MESSAGE_PROGRESS_COMPLETE   MessageProgress = 1
	MESSAGE_PROGRESS_GENERATING MessageProgress = 2
	MESSAGE_PROGRESS_FAILED     MessageProgress = 3
)
