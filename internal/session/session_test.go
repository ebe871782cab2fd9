package session

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Faryzal2020/road-roughness-monitoring/internal/codec"
	"github.com/Faryzal2020/road-roughness-monitoring/internal/devicecache"
	"github.com/Faryzal2020/road-roughness-monitoring/internal/ingest"
	"github.com/Faryzal2020/road-roughness-monitoring/internal/repository"
	"github.com/Faryzal2020/road-roughness-monitoring/internal/segmentcache"
	"github.com/Faryzal2020/road-roughness-monitoring/internal/segmentresolver"
	"github.com/Faryzal2020/road-roughness-monitoring/pkg/schema"
)

type fakeRepo struct {
	repository.Repository
	inserted int
}

func (f *fakeRepo) FindTruckByIdentifier(identifier string) (*schema.Truck, error) {
	return &schema.Truck{ID: 1, Identifier: identifier, Status: schema.TruckActive}, nil
}

func (f *fakeRepo) InsertTelemetryBatch(rows []*schema.TruckTelemetry) (repository.InsertResult, error) {
	f.inserted += len(rows)
	return repository.InsertResult{Inserted: len(rows)}, nil
}

func encodeMinimalPacket(t *testing.T) []byte {
	t.Helper()

	var record []byte
	tsBuf := make([]byte, 8)
	binary.BigEndian.PutUint64(tsBuf, uint64(time.Now().UnixMilli()))
	record = append(record, tsBuf...)
	record = append(record, 1) // priority
	record = append(record, make([]byte, 15)...) // GPS element (zeroed)
	record = append(record, 0, 0)                // event-io id, total count
	record = append(record, 0)                   // 1-byte group count
	record = append(record, 0)                    // 2-byte group count
	record = append(record, 0)                    // 4-byte group count
	record = append(record, 0)                    // 8-byte group count

	region := []byte{codec.CodecID8, 1}
	region = append(region, record...)
	region = append(region, 1) // trailer record count

	crc := codec.CRC16(region)

	packet := make([]byte, 0, 8+len(region)+4)
	packet = append(packet, 0, 0, 0, 0)
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(region)))
	packet = append(packet, lenBuf...)
	packet = append(packet, region...)
	crcBuf := make([]byte, 4)
	binary.BigEndian.PutUint16(crcBuf[2:], crc)
	packet = append(packet, crcBuf...)
	return packet
}

func TestServeAcceptsIdentifierAndAcksPacket(t *testing.T) {
	repo := &fakeRepo{}
	devices := devicecache.New(repo, 10, time.Minute, time.Second)
	segments := segmentcache.New(segmentresolver.NewStaticResolver(nil), 10, time.Minute, 50)
	ingestor := ingest.New(devices, segments, repo)

	srv := New(Config{FrameCapBytes: 4096, IdleTimeout: time.Second, Workers: 2}, ingestor)
	defer srv.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go srv.Serve(ln)

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	identifier := "123456789012345"
	idLen := make([]byte, 2)
	binary.BigEndian.PutUint16(idLen, uint16(len(identifier)))
	_, err = conn.Write(append(idLen, []byte(identifier)...))
	require.NoError(t, err)

	ack := make([]byte, 1)
	_, err = conn.Read(ack)
	require.NoError(t, err)
	require.Equal(t, byte(0x01), ack[0])

	_, err = conn.Write(encodeMinimalPacket(t))
	require.NoError(t, err)

	packetAck := make([]byte, 4)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = conn.Read(packetAck)
	require.NoError(t, err)
	require.Equal(t, uint32(1), binary.BigEndian.Uint32(packetAck))
}
