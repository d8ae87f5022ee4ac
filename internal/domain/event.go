package domain

import "time"

type EventType string

const (
	EventFileUploadReceived     EventType = "FILE_UPLOAD_RECEIVED"
	EventFileUploadSuccess      EventType = "FILE_UPLOAD_SUCCESS"
	EventFileUploadFailed       EventType = "FILE_UPLOAD_FAILED"
	EventCommandReceived        EventType = "COMMAND_RECEIVED"
	EventOracleParseError       EventType = "ORACLE_PARSE_ERROR"
	EventOracleCallFailed       EventType = "ORACLE_CALL_FAILED"
	EventAPICallInitiated       EventType = "API_CALL_INITIATED"
	EventAPICallCompleted       EventType = "API_CALL_COMPLETED"
	EventAPICallFailed          EventType = "API_CALL_FAILED"
	EventUnknownAPICall         EventType = "UNKNOWN_API_CALL"
	EventGeneralInquiryResponse EventType = "GENERAL_INQUIRY_RESPONSE"
	EventUnhandledCommand       EventType = "UNHANDLED_COMMAND"
	EventTaskCompleted          EventType = "TASK_COMPLETED"
	EventTaskFailed             EventType = "TASK_FAILED"
	EventTaskRecordError        EventType = "TASK_RECORD_ERROR"
	EventTaskUpdateError        EventType = "TASK_UPDATE_ERROR"
	EventUserConnected          EventType = "USER_CONNECTED"
	EventServerStart            EventType = "SERVER_START"
)

// Terminal reports whether t closes a task lifecycle.
func (t EventType) Terminal() bool {
	return t == EventTaskCompleted || t == EventTaskFailed
}

type Event struct {
	Type      EventType      `json:"type"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

func NewEvent(t EventType, payload map[string]any, at time.Time) Event {
	if payload == nil {
		payload = map[string]any{}
	}
	return Event{Type: t, Payload: payload, Timestamp: at}
}
