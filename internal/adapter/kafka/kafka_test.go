package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/couchcryptid/flood-impact-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapMessageToRawEvent(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("key-1"),
		Value:     []byte(`{"id":"run-1"}`),
		Topic:     "flood-analysis-requests",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte("dashboard")},
		},
	}

	raw := mapMessageToRawEvent(msg)

	assert.Equal(t, []byte("key-1"), raw.Key)
	assert.JSONEq(t, `{"id":"run-1"}`, string(raw.Value))
	assert.Equal(t, "flood-analysis-requests", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "dashboard", raw.Headers["source"])
	assert.Nil(t, raw.Commit)
}

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2024, 3, 20, 15, 10, 0, 0, time.UTC)
	result := domain.AnalysisResult{
		ID:              "run-1",
		Status:          domain.StatusCompleted,
		FloodedHectares: 25,
		RegionHectares:  100,
		Classes:         []domain.ClassImpact{{Name: "cropland", Code: 40, AffectedHectares: 5, TotalHectares: 20}},
		CompletedAt:     now,
	}

	msg, err := serializeToMessage(result)
	require.NoError(t, err)

	assert.Equal(t, []byte("run-1"), msg.Key)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "status", msg.Headers[0].Key)
	assert.Equal(t, []byte("completed"), msg.Headers[0].Value)
	assert.Equal(t, "completed_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)

	var body struct {
		ID              string  `json:"id"`
		FloodedHectares float64 `json:"flooded_hectares"`
		Percentages     struct {
			Flooded float64            `json:"flooded"`
			Classes map[string]float64 `json:"classes"`
		} `json:"percentages"`
	}
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "run-1", body.ID)
	assert.Equal(t, 25.0, body.FloodedHectares)
	assert.Equal(t, 25.0, body.Percentages.Flooded)
	assert.Equal(t, 25.0, body.Percentages.Classes["cropland"])
}

func TestSerializeToMessage_FailedResult(t *testing.T) {
	result := domain.AnalysisResult{ID: "run-2"}
	result.Fail(&domain.EmptyInputError{Period: "before"})

	msg, err := serializeToMessage(result)
	require.NoError(t, err)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "error_kind", msg.Headers[2].Key)
	assert.Equal(t, []byte(domain.KindEmptyInput), msg.Headers[2].Value)
	assert.Contains(t, string(msg.Value), `"status":"failed"`)
}
