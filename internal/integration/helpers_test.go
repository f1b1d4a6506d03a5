//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/flood-impact-service/internal/analysis"
	"github.com/couchcryptid/flood-impact-service/internal/domain"
	"github.com/couchcryptid/flood-impact-service/internal/raster"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const kafkaImage = "confluentinc/confluent-local:7.5.0"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker for the lifetime of the test.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, kafkaImage, tckafka.WithClusterID("flood-impact-test"))
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start kafka container")

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// Study area for the fixture: a flat cropland plain whose backscatter doubles
// between the two scenes.
const (
	fixtureLat    = -19.83
	fixtureLon    = 34.84
	fixtureRadius = 500.0
)

var fixtureEvent = time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)

type fixtureSource struct {
	grid raster.Grid
}

func newFixtureSource(t *testing.T) *fixtureSource {
	t.Helper()
	extent, err := domain.NewRegion(fixtureLat, fixtureLon, fixtureRadius*1.2)
	require.NoError(t, err)
	return &fixtureSource{grid: raster.GridForBound(extent.Bound(), raster.CRSEqualArea, 20)}
}

func (s *fixtureSource) Scenes(_ context.Context, _ analysis.SceneQuery) ([]analysis.Scene, error) {
	meta := domain.SceneMetadata{
		InstrumentMode:   "IW",
		Polarisations:    []string{"VV", "VH"},
		OrbitPass:        "DESCENDING",
		ResolutionMeters: 10,
		Units:            domain.UnitsLinear,
	}
	return []analysis.Scene{
		{ID: "before", Acquired: fixtureEvent.AddDate(0, 0, -3), Metadata: meta, Raster: raster.NewFilled(s.grid, 0.05)},
		{ID: "after", Acquired: fixtureEvent.AddDate(0, 0, 2), Metadata: meta, Raster: raster.NewFilled(s.grid, 0.1)},
	}, nil
}

func (s *fixtureSource) Layer(_ context.Context, name analysis.Layer, _ domain.Region) (*raster.Raster, error) {
	switch name {
	case analysis.LayerPermanentWater:
		return raster.NewFilled(s.grid, 0), nil
	case analysis.LayerElevation:
		return raster.NewFilled(s.grid, 12), nil
	case analysis.LayerLandCover:
		return raster.NewFilled(s.grid, 40), nil
	default:
		return nil, analysis.ErrLayerNotFound
	}
}

func fixtureRequest(id string) domain.AnalysisRequest {
	lat, lon := fixtureLat, fixtureLon
	return domain.AnalysisRequest{
		ID:           id,
		Lat:          &lat,
		Lon:          &lon,
		RadiusMeters: fixtureRadius,
		Before:       domain.Period{Start: fixtureEvent.AddDate(0, 0, -7), End: fixtureEvent},
		After:        domain.Period{Start: fixtureEvent, End: fixtureEvent.AddDate(0, 0, 7)},
	}
}
