package convert

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPersonNotFound is returned by a Transformer when the schedule has no
	// rows for the requested person.
	ErrPersonNotFound = errors.New("person not found in schedule")

	// ErrUnreadableInput wraps failures to read the uploaded table.
	ErrUnreadableInput = errors.New("unreadable input")

	ErrNoFile          = errors.New("no file provided")
	ErrSurnameRequired = errors.New("surname required")
)

// UserMessage is the client-facing description of a conversion error.
type UserMessage struct {
	Message string
	Action  string
	Code    string
}

// sentinelMessages are checked with errors.Is before any text matching.
var sentinelMessages = []struct {
	err error
	msg UserMessage
}{
	{ErrPersonNotFound, UserMessage{
		Message: "Surname not found in the schedule",
		Action:  "Check the spelling of the surname as written in the file",
		Code:    "SCH001",
	}},
	{ErrSurnameRequired, UserMessage{
		Message: "No surname was entered",
		Action:  "Enter your full surname; case does not matter",
		Code:    "SCH002",
	}},
	{ErrNoFile, UserMessage{
		Message: "No file was selected",
		Action:  "Please select a CSV file to upload",
		Code:    "FILE004",
	}},
	{ErrBusy, UserMessage{
		Message: "System is busy processing another conversion",
		Action:  "Please wait a moment and try again",
		Code:    "UPL002",
	}},
}

// errorPatterns map lower-case error text to messages. First match wins.
var errorPatterns = []struct {
	pattern string
	msg     UserMessage
}{
	{"file too large", UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Upload only the sheet with your shifts",
		Code:    "FILE001",
	}},
	{"invalid csv", UserMessage{
		Message: "File is not a valid CSV",
		Action:  "Ensure file is comma-separated with consistent columns",
		Code:    "FILE002",
	}},
	{"invalid xlsx", UserMessage{
		Message: "File is not a valid Excel workbook",
		Action:  "Save the schedule as .xlsx or export it as CSV",
		Code:    "FILE006",
	}},
	{"encoding error", UserMessage{
		Message: "File contains invalid characters",
		Action:  "Save file as UTF-8 encoding",
		Code:    "FILE003",
	}},
	{"empty file", UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Please upload a CSV file with a header row",
		Code:    "FILE005",
	}},
	{"context canceled", UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL004",
	}},
	{"context deadline exceeded", UserMessage{
		Message: "Request timed out",
		Action:  "Try again with a smaller file",
		Code:    "UPL005",
	}},
	{"rate limit", UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts err to a user message. Unknown errors map to ERR000;
// nil maps to the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	for _, s := range sentinelMessages {
		if errors.Is(err, s.err) {
			return s.msg
		}
	}
	text := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(text, p.pattern) {
			return p.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: X). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	return err != nil && MapError(err).Code != defaultMessage.Code
}
