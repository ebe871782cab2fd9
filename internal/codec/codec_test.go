package codec

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/Faryzal2020/road-roughness-monitoring/internal/ingesterr"
)

// testRecord is a minimal fixed-group-only record description used to
// build encoded test packets without duplicating Decode's logic.
type testRecord struct {
	timestamp time.Time
	priority  byte
	lon, lat  int32
	alt       int16
	heading   uint16
	sat       uint8
	speed     uint16
	groups    [4][]testIO // widths 1,2,4,8
}

type testIO struct {
	id  uint16
	val uint64
}

func encodePacket(codecID byte, recs []testRecord) []byte {
	iw, cw := 1, 1
	if codecID == CodecID8Extended {
		iw, cw = 2, 2
	}

	putN := func(buf []byte, width int, v uint64) []byte {
		tmp := make([]byte, width)
		for i := width - 1; i >= 0; i-- {
			tmp[i] = byte(v)
			v >>= 8
		}
		return append(buf, tmp...)
	}

	var region []byte
	region = append(region, codecID)
	region = putN(region, 1, uint64(len(recs)))

	for _, r := range recs {
		tsBuf := make([]byte, 8)
		binary.BigEndian.PutUint64(tsBuf, uint64(r.timestamp.UnixMilli()))
		region = append(region, tsBuf...)
		region = append(region, r.priority)

		gps := make([]byte, 15)
		binary.BigEndian.PutUint32(gps[0:4], uint32(r.lon))
		binary.BigEndian.PutUint32(gps[4:8], uint32(r.lat))
		binary.BigEndian.PutUint16(gps[8:10], uint16(r.alt))
		binary.BigEndian.PutUint16(gps[10:12], r.heading)
		gps[12] = r.sat
		binary.BigEndian.PutUint16(gps[13:15], r.speed)
		region = append(region, gps...)

		region = putN(region, iw, 0) // event io id
		total := 0
		for _, g := range r.groups {
			total += len(g)
		}
		region = putN(region, cw, uint64(total))

		widths := []int{1, 2, 4, 8}
		for gi, g := range r.groups {
			region = putN(region, cw, uint64(len(g)))
			for _, io := range g {
				region = putN(region, iw, uint64(io.id))
				region = putN(region, widths[gi], io.val)
			}
		}
	}

	region = putN(region, 1, uint64(len(recs)))

	dataLength := len(region)
	packet := make([]byte, 8)
	binary.BigEndian.PutUint32(packet[4:8], uint32(dataLength))
	packet = append(packet, region...)

	crc := CRC16(region)
	crcBuf := make([]byte, 4)
	binary.BigEndian.PutUint16(crcBuf[2:4], crc)
	packet = append(packet, crcBuf...)

	return packet
}

func minimalRecord() testRecord {
	return testRecord{
		timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		lon:       102_345_678,
		lat:       52_345_678,
		alt:       120,
		heading:   90,
		sat:       7,
		speed:     42,
		groups: [4][]testIO{
			{{id: 1, val: 1}},
			{{id: 17, val: 1500}, {id: 19, val: 3600}},
			nil,
			nil,
		},
	}
}

func TestDecodeMinimalPacket(t *testing.T) {
	recs := []testRecord{minimalRecord()}
	buf := encodePacket(CodecID8, recs)

	pkt, consumed, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if consumed != len(buf) {
		t.Errorf("bytesConsumed = %d, want %d", consumed, len(buf))
	}
	if len(pkt.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(pkt.Records))
	}
	rec := pkt.Records[0]
	if rec.Latitude != recs[0].lat || rec.Longitude != recs[0].lon {
		t.Errorf("GPS fix mismatch: got lat=%d lon=%d", rec.Latitude, rec.Longitude)
	}
	if len(rec.IOElements) != 3 {
		t.Errorf("got %d IO elements, want 3", len(rec.IOElements))
	}
}

func TestDecodeSplitFraming(t *testing.T) {
	buf := encodePacket(CodecID8, []testRecord{minimalRecord()})

	// Feeding only the first 10 bytes must not succeed; the session
	// layer is expected to keep buffering until the full frame arrives.
	if _, _, err := Decode(buf[:10]); err == nil {
		t.Fatalf("Decode of partial buffer unexpectedly succeeded")
	}

	pkt, consumed, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode of full buffer: %v", err)
	}
	if consumed != len(buf) {
		t.Errorf("consumed = %d, want %d", consumed, len(buf))
	}
	if len(pkt.Records) != 1 {
		t.Errorf("got %d records, want 1", len(pkt.Records))
	}
}

func TestDecodeBadCrc(t *testing.T) {
	buf := encodePacket(CodecID8, []testRecord{minimalRecord()})
	buf[len(buf)-1] ^= 0xFF
	buf[len(buf)-2] ^= 0xFF

	_, _, err := Decode(buf)
	if !errors.Is(err, ingesterr.ErrBadCrc) {
		t.Errorf("Decode with flipped CRC = %v, want ErrBadCrc", err)
	}
}

func TestDecodeBadPreamble(t *testing.T) {
	buf := encodePacket(CodecID8, []testRecord{minimalRecord()})
	buf[0] = 0x01

	_, _, err := Decode(buf)
	if !errors.Is(err, ingesterr.ErrBadPreamble) {
		t.Errorf("Decode with bad preamble = %v, want ErrBadPreamble", err)
	}
}

func TestDecodeUnsupportedCodec(t *testing.T) {
	buf := encodePacket(CodecID8, []testRecord{minimalRecord()})
	buf[8] = 0x01 // not 0x08 or 0x8E

	_, _, err := Decode(buf)
	if !errors.Is(err, ingesterr.ErrUnsupportedCodec) {
		t.Errorf("Decode with unsupported codec = %v, want ErrUnsupportedCodec", err)
	}
}

func TestDecodeRecordCountMismatch(t *testing.T) {
	buf := encodePacket(CodecID8, []testRecord{minimalRecord()})

	// The trailing record count sits immediately before the CRC field;
	// corrupt only that byte so header(1) != trailer(2), and recompute
	// the CRC so the mismatch isn't masked by a CRC failure instead.
	region := buf[8 : len(buf)-4]
	region[len(region)-1] = 2
	crc := CRC16(region)
	binary.BigEndian.PutUint16(buf[len(buf)-2:], crc)

	_, _, err := Decode(buf)
	if !errors.Is(err, ingesterr.ErrRecordCountMismatch) {
		t.Errorf("Decode with mismatched counts = %v, want ErrRecordCountMismatch", err)
	}
}

func TestDecodeExtendedCodecVariableGroup(t *testing.T) {
	iw, cw := 2, 2
	putN := func(buf []byte, width int, v uint64) []byte {
		tmp := make([]byte, width)
		for i := width - 1; i >= 0; i-- {
			tmp[i] = byte(v)
			v >>= 8
		}
		return append(buf, tmp...)
	}

	var region []byte
	region = append(region, CodecID8Extended)
	region = putN(region, 1, 1) // record count 1

	tsBuf := make([]byte, 8)
	binary.BigEndian.PutUint64(tsBuf, uint64(time.Now().UnixMilli()))
	region = append(region, tsBuf...)
	region = append(region, 0) // priority
	region = append(region, make([]byte, 15)...)

	region = putN(region, iw, 0) // event io id
	region = putN(region, cw, 0) // total io count

	for i := 0; i < 4; i++ {
		region = putN(region, cw, 0) // empty fixed groups
	}

	// variable-width group: one element, id=500, 3 raw bytes
	region = putN(region, cw, 1)
	region = putN(region, iw, 500)
	region = putN(region, 2, 3)
	region = append(region, []byte{0xAA, 0xBB, 0xCC}...)

	region = putN(region, 1, 1) // record count 2

	packet := make([]byte, 8)
	binary.BigEndian.PutUint32(packet[4:8], uint32(len(region)))
	packet = append(packet, region...)
	crc := CRC16(region)
	crcBuf := make([]byte, 4)
	binary.BigEndian.PutUint16(crcBuf[2:4], crc)
	packet = append(packet, crcBuf...)

	pkt, consumed, err := Decode(packet)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if consumed != len(packet) {
		t.Errorf("consumed = %d, want %d", consumed, len(packet))
	}
	if len(pkt.Records[0].IOElements) != 1 {
		t.Fatalf("got %d IO elements, want 1", len(pkt.Records[0].IOElements))
	}
	el := pkt.Records[0].IOElements[0]
	if el.ID != 500 || string(el.Raw) != string([]byte{0xAA, 0xBB, 0xCC}) {
		t.Errorf("variable group element mismatch: %+v", el)
	}
}

func TestHexDumpTruncatesLongFrames(t *testing.T) {
	data := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	if got := HexDump(data, 0); got != "deadbeef" {
		t.Errorf("HexDump(0) = %q, want %q", got, "deadbeef")
	}
	if got := HexDump(data, 2); got != "dead..." {
		t.Errorf("HexDump(2) = %q, want %q", got, "dead...")
	}
}
