package protocol

import "net/http"

// Document chat multiplexes on channelName instead of an action field.
type DocChannel string

const (
	CHANNEL_RESUME_CHAT      DocChannel = "resume:chat"
	CHANNEL_COVERLETTER_CHAT DocChannel = "coverletter:chat"
	CHANNEL_UNKNOWN          DocChannel = ""
)

func ParseDocChannel(raw string) DocChannel {
	switch DocChannel(raw) {
	case CHANNEL_RESUME_CHAT, CHANNEL_COVERLETTER_CHAT:
		return DocChannel(raw)
	default:
		return CHANNEL_UNKNOWN
	}
}

type DocChatStatus string

const (
	DOC_CHAT_STATUS_PROGRESS  DocChatStatus = "progress"
	DOC_CHAT_STATUS_COMPLETED DocChatStatus = "completed"
	DOC_CHAT_STATUS_ERROR     DocChatStatus = "error"
)

type DocChatRequest struct {
	ChannelName string             `json:"channelName"`
	Data        DocChatRequestData `json:"data"`
}

type DocChatRequestData struct {
	ResumeID      string `json:"resumeId,omitempty"`
	CoverletterID string `json:"coverletterId,omitempty"`
	Query         string `json:"query"`
}

// DocChatResponse keeps the HTTP-flavored envelope the document chat clients
// branch on. It is a websocket payload, not a REST response; the boolean flags
// are derived from Status so callers never compare status codes.
type DocChatResponse struct {
	ChannelName    string              `json:"channelName"`
	Data           DocChatResponseData `json:"data"`
	Message        *string             `json:"message"`
	Success        bool                `json:"success"`
	Status         int                 `json:"status"`
	IsClientError  bool                `json:"isClientError"`
	IsServerError  bool                `json:"isServerError"`
	IsNotFound     bool                `json:"isNotFound"`
	IsUnauthorized bool                `json:"isUnauthorized"`
	IsForbidden    bool                `json:"isForbidden"`
}

type DocChatResponseData struct {
	Pages  []int         `json:"pages,omitempty"`
	Text   string        `json:"text"`
	Status DocChatStatus `json:"status"`
}

func NewDocChatSuccess(channel DocChannel, data DocChatResponseData) DocChatResponse {
	return DocChatResponse{
		ChannelName: string(channel),
		Data:        data,
		Success:     true,
		Status:      http.StatusOK,
	}
}

func NewDocChatError(channel DocChannel, status int, message string) DocChatResponse {
	return DocChatResponse{
		ChannelName:    string(channel),
		Data:           DocChatResponseData{Status: DOC_CHAT_STATUS_ERROR},
		Message:        &message,
		Success:        false,
		Status:         status,
		IsClientError:  status >= http.StatusBadRequest && status < http.StatusInternalServerError,
		IsServerError:  status >= http.StatusInternalServerError,
		IsNotFound:     status == http.StatusNotFound,
		IsUnauthorized: status == http.StatusUnauthorized,
		IsForbidden:    status == http.StatusForbidden,
	}
}
