package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNewStatusChange(t *testing.T) {
	c := NewStatusChange("Plaza X", "Working", "Full", 7)
	_, err := uuid.Parse(c.ID)
	require.NoError(t, err)
	require.False(t, c.At.IsZero())

	payload, err := Encode(c)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.Equal(t, "Plaza X", decoded["machine"])
	require.Equal(t, "Full", decoded["status"])
	require.Equal(t, "Working", decoded["previous"])
}

func TestNATSPublisherWithoutConnection(t *testing.T) {
	p := &NATSPublisher{subject: DefaultSubject}
	err := p.PublishStatusChange(context.Background(), NewStatusChange("A", "Working", "Full", 1))
	require.ErrorContains(t, err, "not connected")
	p.Close()
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = Nop{}
	require.NoError(t, p.PublishStatusChange(context.Background(), StatusChange{}))
	p.Close()
}
