package bus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/arvosec/skywatch/internal/incident"
)

// AlertMessage is the wire form of an alert plus its initial activity
// trail. A trigger published from the CLI carries everything a running
// console needs to render the incident.
type AlertMessage struct {
	Alert      incident.Alert      `json:"alert"`
	Companion  *incident.Alert     `json:"companion,omitempty"`
	LogEntries []incident.LogEntry `json:"log_entries,omitempty"`
	Source     string              `json:"source"`
	Timestamp  time.Time           `json:"timestamp"`
}

// ActivityMessage is the wire form of a single activity log entry
type ActivityMessage struct {
	Entry     incident.LogEntry `json:"entry"`
	Source    string            `json:"source"`
	Timestamp time.Time         `json:"timestamp"`
}

func encodeAlertMessage(msg AlertMessage) (map[string]interface{}, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal alert message: %w", err)
	}
	return map[string]interface{}{
		"alert_id":  msg.Alert.ID,
		"site":      msg.Alert.Site,
		"severity":  string(msg.Alert.Severity),
		"source":    msg.Source,
		"timestamp": msg.Timestamp.Format(time.RFC3339),
		"payload":   string(payload),
	}, nil
}

func decodeAlertMessage(fields map[string]interface{}) (AlertMessage, error) {
	var msg AlertMessage
	payload, ok := fields["payload"].(string)
	if !ok || payload == "" {
		return msg, fmt.Errorf("alert message missing payload field")
	}
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return msg, fmt.Errorf("failed to unmarshal alert message: %w", err)
	}
	return msg, nil
}

func encodeActivityMessage(msg ActivityMessage) (map[string]interface{}, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal activity message: %w", err)
	}
	return map[string]interface{}{
		"entry_id":    msg.Entry.ID,
		"incident_id": msg.Entry.IncidentID,
		"action":      msg.Entry.Action,
		"source":      msg.Source,
		"timestamp":   msg.Timestamp.Format(time.RFC3339),
		"payload":     string(payload),
	}, nil
}
