package ingest

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Faryzal2020/road-roughness-monitoring/internal/codec"
	"github.com/Faryzal2020/road-roughness-monitoring/internal/devicecache"
	"github.com/Faryzal2020/road-roughness-monitoring/internal/ingesterr"
	"github.com/Faryzal2020/road-roughness-monitoring/internal/repository"
	"github.com/Faryzal2020/road-roughness-monitoring/internal/segmentcache"
	"github.com/Faryzal2020/road-roughness-monitoring/internal/segmentresolver"
	"github.com/Faryzal2020/road-roughness-monitoring/pkg/schema"
)

type fakeRepo struct {
	repository.Repository
	inserted []*schema.TruckTelemetry
}

func (f *fakeRepo) FindTruckByIdentifier(identifier string) (*schema.Truck, error) {
	if identifier == "known" {
		return &schema.Truck{ID: 7, Identifier: identifier, Status: schema.TruckActive}, nil
	}
	return nil, nil
}

func (f *fakeRepo) InsertTelemetryBatch(rows []*schema.TruckTelemetry) (repository.InsertResult, error) {
	f.inserted = append(f.inserted, rows...)
	return repository.InsertResult{Inserted: len(rows)}, nil
}

func newService(repo repository.Repository) *Service {
	devices := devicecache.New(repo, 10, time.Minute, time.Second)
	segments := segmentcache.New(segmentresolver.NewStaticResolver(nil), 10, time.Minute, 50)
	return New(devices, segments, repo)
}

func samplePacket() *codec.Packet {
	din1 := uint64(1)
	axisZ := uint64(0xFFFFFE0C) // -500 as int32 two's complement
	return &codec.Packet{
		CodecID: codec.CodecID8,
		Records: []codec.Record{
			{
				Timestamp: time.UnixMilli(1_700_000_000_000).UTC(),
				Latitude:  10_000_000,
				Longitude: 20_000_000,
				Speed:     42,
				IOElements: []codec.IOElement{
					{ID: 1, Value: din1, Width: 1},
					{ID: 19, Value: axisZ, Width: 4},
				},
			},
		},
	}
}

func TestIngestUnauthorizedDevice(t *testing.T) {
	repo := &fakeRepo{}
	svc := newService(repo)

	_, err := svc.Ingest(samplePacket(), "unknown")
	require.True(t, errors.Is(err, ingesterr.ErrUnauthorizedDevice))
	require.Empty(t, repo.inserted)
}

func TestIngestPersistsEnrichedRow(t *testing.T) {
	repo := &fakeRepo{}
	svc := newService(repo)

	result, err := svc.Ingest(samplePacket(), "known")
	require.NoError(t, err)
	require.Equal(t, 1, result.RecordsProcessed)
	require.Len(t, repo.inserted, 1)

	row := repo.inserted[0]
	require.Equal(t, int64(7), row.TruckID)
	require.Equal(t, int32(-500), row.AxisZ)
	require.NotNil(t, row.IsLoaded)
	require.True(t, *row.IsLoaded)
	require.Nil(t, row.SegmentID)
}
