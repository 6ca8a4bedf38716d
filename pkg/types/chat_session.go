package types

// ChatSession is a persisted multi-turn conversation owned by exactly one user.
// ResourceType/ResourceID bind a session to the job-application artifact it was
// opened from, when any.
type ChatSession struct {
	ID           string       `json:"id" db:"id"`
	UserID       string       `json:"user_id" db:"user_id"`
	ResourceType ResourceType `json:"resource_type" db:"resource_type"`
	ResourceID   string       `json:"resource_id" db:"resource_id"`
	Title        string       `json:"title" db:"title"`
	CreatedAt    int64        `json:"created_at" db:"created_at"`
	UpdatedAt    int64        `json:"updated_at" db:"updated_at"`
}

type ResourceType string

const (
	RESOURCE_TYPE_NONE        ResourceType = "none"
	RESOURCE_TYPE_RESUME      ResourceType = "resume"
	RESOURCE_TYPE_COVERLETTER ResourceType = "coverletter"
)

const DEFAULT_SESSION_TITLE = "New Chat"
