package types

import "fmt"

type TableName string

func (s TableName) Name() string {
	return fmt.Sprintf("%s%s", TABLE_PREFIX, s)
}

const TABLE_PREFIX = "jobtrail_"

const (
	TABLE_CHAT_SESSION = TableName("chat_session")
	TABLE_CHAT_MESSAGE = TableName("chat_message")
	TABLE_DOCUMENT     = TableName("document")
)
