package models

// NoticeLevel classifies a user-facing notice.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a pending user-facing message. Notices are carried as explicit
// values on responses instead of process-wide toast state.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// SuccessNotice builds a success notice.
func SuccessNotice(message string) Notice {
	return Notice{Level: NoticeSuccess, Message: message}
}

// ErrorNotice builds an error notice.
func ErrorNotice(message string) Notice {
	return Notice{Level: NoticeError, Message: message}
}
