package i18n

var ALLOW_LANG = map[string]bool{
	"en":    true,
	"zh-CN": true,
}

const DEFAULT_LANG = "en"

const (
	ERROR_INTERNAL        = "error.internal"
	ERROR_NOT_FOUND       = "error.notfound"
	ERROR_INVALIDARGUMENT = "error.invalidargument"
	ERROR_UNAUTHORIZED    = "error.unauthorized"
	ERROR_FORBIDDEN       = "error.forbidden"
	ERROR_EXIST           = "error.exist"

	ERROR_CHAT_SESSION_NOT_FOUND  = "error.chat.session.notfound"
	ERROR_CHAT_GENERATION_BUSY    = "error.chat.generation.busy"
	ERROR_CHAT_GENERATION_FAILED  = "error.chat.generation.failed"
	ERROR_DOCUMENT_NOT_FOUND      = "error.document.notfound"
	ERROR_DOCUMENT_EXTRACT_FAILED = "error.document.extract.failed"
	ERROR_AI_CHAT_MODEL_NOT_FOUND = "error.ai.chat.model.not.found"
	ERROR_AI_CHAT_RESPONSE_FAILED = "error.ai.chat.response.failed"
)
