package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arvosec/skywatch/internal/incident"
)

func TestAlertMessageRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	alert := incident.DemoAlert(now.UnixMilli())
	companion := incident.CompanionAlert(now.UnixMilli())

	msg := AlertMessage{
		Alert:      alert,
		Companion:  &companion,
		LogEntries: incident.TriggerLogEntries(now.UnixMilli(), alert.ID),
		Source:     "cli",
		Timestamp:  now,
	}

	fields, err := encodeAlertMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, alert.ID, fields["alert_id"])
	assert.Equal(t, alert.Site, fields["site"])

	got, err := decodeAlertMessage(fields)
	require.NoError(t, err)
	assert.Equal(t, alert, got.Alert)
	require.NotNil(t, got.Companion)
	assert.Equal(t, companion.ID, got.Companion.ID)
	assert.Len(t, got.LogEntries, 4)
	assert.Equal(t, "cli", got.Source)
}

func TestDecodeAlertMessageMissingPayload(t *testing.T) {
	_, err := decodeAlertMessage(map[string]interface{}{"alert_id": "INC-123456"})
	require.Error(t, err)
}
