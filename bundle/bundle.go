package bundle

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"

	"github.com/hupe1980/spdata/internal/compress"
	"github.com/hupe1980/spdata/model"
)

const (
	binaryMagic   = 0x53504442 // "SPDB"
	binaryVersion = 1
	headerSize    = 16
)

// Compression selects the payload compression of an artifact.
type Compression = compress.Type

// Supported payload compressions.
const (
	CompressionNone = compress.None
	CompressionLZ4  = compress.LZ4
	CompressionZSTD = compress.ZSTD
)

// ParseCompression parses "none", "lz4" or "zstd".
func ParseCompression(s string) (Compression, error) {
	return compress.ParseType(s)
}

// Size estimates the in-memory footprint of b in bytes.
func Size(b *model.Bundle) int64 {
	if b == nil {
		return 0
	}
	n := int64(64 + len(b.Name))
	if b.M1 != nil {
		n += int64(graphSize(b.M1))
	}
	if b.M2 != nil {
		n += int64(graphSize(b.M2))
	}
	return n
}

var (
	// ErrCorrupt is returned when an artifact fails magic, checksum or
	// structural validation.
	ErrCorrupt = errors.New("bundle: corrupt artifact")

	// ErrIncompatibleVersion is returned for an unknown format version.
	ErrIncompatibleVersion = errors.New("bundle: incompatible version")
)

// Encode serializes b, compressing the payload with c.
func Encode(b *model.Bundle, c Compression) ([]byte, error) {
	if b == nil || b.M1 == nil || b.M2 == nil {
		return nil, errors.New("bundle: incomplete bundle")
	}

	pb := newPayloadBuffer(make([]byte, 0, 64+graphSize(b.M1)+graphSize(b.M2)))
	pb.writeString(b.Name)
	pb.writeFloat64(b.Label)
	pb.writeGraph(b.M1)
	pb.writeGraph(b.M2)
	if pb.err != nil {
		return nil, pb.err
	}

	block, err := compress.Encode(pb.buf, c)
	if err != nil {
		return nil, err
	}

	out := make([]byte, headerSize, headerSize+len(block))
	binary.LittleEndian.PutUint32(out[0:4], binaryMagic)
	binary.LittleEndian.PutUint16(out[4:6], binaryVersion)
	out[6] = byte(c)
	binary.LittleEndian.PutUint32(out[8:12], crc32.ChecksumIEEE(block))
	binary.LittleEndian.PutUint32(out[12:16], uint32(len(block)))
	return append(out, block...), nil
}

// Decode parses an artifact produced by Encode.
func Decode(data []byte) (*model.Bundle, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrCorrupt, len(data))
	}
	if magic := binary.LittleEndian.Uint32(data[0:4]); magic != binaryMagic {
		return nil, fmt.Errorf("%w: invalid magic %x", ErrCorrupt, magic)
	}
	if version := binary.LittleEndian.Uint16(data[4:6]); version != binaryVersion {
		return nil, fmt.Errorf("%w: %d", ErrIncompatibleVersion, version)
	}
	c := compress.Type(data[6])
	checksum := binary.LittleEndian.Uint32(data[8:12])
	length := binary.LittleEndian.Uint32(data[12:16])

	block := data[headerSize:]
	if uint64(len(block)) != uint64(length) {
		return nil, fmt.Errorf("%w: block has %d bytes, header says %d", ErrCorrupt, len(block), length)
	}
	if crc32.ChecksumIEEE(block) != checksum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}

	payload, err := compress.Decode(block, c)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	pb := newPayloadBuffer(payload)
	b := &model.Bundle{}
	b.Name = pb.readString()
	b.Label = pb.readFloat64()
	b.M1 = pb.readGraph()
	b.M2 = pb.readGraph()
	if pb.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, pb.err)
	}
	if pb.pos != len(pb.buf) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(pb.buf)-pb.pos)
	}
	return b, nil
}

func graphSize(g *model.FeaturizedGraph) int {
	return 28 + 8*len(g.Features) + 16*g.NumEdges()
}

type payloadBuffer struct {
	buf []byte
	pos int
	err error
}

func newPayloadBuffer(b []byte) *payloadBuffer {
	return &payloadBuffer{buf: b}
}

func (p *payloadBuffer) writeUint64(v uint64) {
	if p.err != nil {
		return
	}
	p.buf = binary.LittleEndian.AppendUint64(p.buf, v)
}

func (p *payloadBuffer) writeUint32(v uint32) {
	if p.err != nil {
		return
	}
	p.buf = binary.LittleEndian.AppendUint32(p.buf, v)
}

func (p *payloadBuffer) writeFloat64(v float64) {
	p.writeUint64(math.Float64bits(v))
}

func (p *payloadBuffer) writeString(s string) {
	if p.err != nil {
		return
	}
	if len(s) > math.MaxUint16 {
		p.err = fmt.Errorf("bundle: string too long: %d", len(s))
		return
	}
	p.buf = binary.LittleEndian.AppendUint16(p.buf, uint16(len(s)))
	p.buf = append(p.buf, s...)
}

func (p *payloadBuffer) writeGraph(g *model.FeaturizedGraph) {
	if p.err != nil {
		return
	}
	if g.FeatureDim < 0 || uint64(g.FeatureDim) > math.MaxUint32 {
		p.err = fmt.Errorf("bundle: invalid feature dim %d", g.FeatureDim)
		return
	}
	if uint64(len(g.Features)) != g.NumNodes*uint64(g.FeatureDim) {
		p.err = fmt.Errorf("bundle: %d features for %d nodes of dim %d", len(g.Features), g.NumNodes, g.FeatureDim)
		return
	}
	if len(g.EdgeIndex[0]) != len(g.EdgeIndex[1]) {
		p.err = fmt.Errorf("bundle: edge index rows/cols length mismatch")
		return
	}

	p.writeUint64(g.NumNodes)
	p.writeUint32(uint32(g.FeatureDim))
	p.writeFloat64(g.Label)
	for _, f := range g.Features {
		p.writeFloat64(f)
	}
	p.writeUint64(uint64(len(g.EdgeIndex[0])))
	for _, r := range g.EdgeIndex[0] {
		p.writeUint64(r)
	}
	for _, c := range g.EdgeIndex[1] {
		p.writeUint64(c)
	}
}

func (p *payloadBuffer) need(n uint64) bool {
	if p.err != nil {
		return false
	}
	if n > uint64(len(p.buf)-p.pos) {
		p.err = io.ErrUnexpectedEOF
		return false
	}
	return true
}

func (p *payloadBuffer) readUint64() uint64 {
	if !p.need(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(p.buf[p.pos:])
	p.pos += 8
	return v
}

func (p *payloadBuffer) readUint32() uint32 {
	if !p.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(p.buf[p.pos:])
	p.pos += 4
	return v
}

func (p *payloadBuffer) readFloat64() float64 {
	return math.Float64frombits(p.readUint64())
}

func (p *payloadBuffer) readString() string {
	if !p.need(2) {
		return ""
	}
	l := binary.LittleEndian.Uint16(p.buf[p.pos:])
	p.pos += 2

	if !p.need(uint64(l)) {
		return ""
	}
	s := string(p.buf[p.pos : p.pos+int(l)])
	p.pos += int(l)
	return s
}

// readUint64s reads n values, checking the remaining length before allocating.
func (p *payloadBuffer) readUint64s(n uint64) []uint64 {
	if n > math.MaxInt/8 || !p.need(n*8) {
		if p.err == nil {
			p.err = io.ErrUnexpectedEOF
		}
		return nil
	}
	out := make([]uint64, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(p.buf[p.pos:])
		p.pos += 8
	}
	return out
}

func (p *payloadBuffer) readGraph() *model.FeaturizedGraph {
	g := &model.FeaturizedGraph{}
	g.NumNodes = p.readUint64()
	g.FeatureDim = int(p.readUint32())
	g.Label = p.readFloat64()
	if p.err != nil {
		return nil
	}

	if g.FeatureDim != 0 && g.NumNodes > math.MaxInt/8/uint64(g.FeatureDim) {
		p.err = fmt.Errorf("feature table %dx%d too large", g.NumNodes, g.FeatureDim)
		return nil
	}
	bits := p.readUint64s(g.NumNodes * uint64(g.FeatureDim))
	g.Features = make([]float64, len(bits))
	for i, b := range bits {
		g.Features[i] = math.Float64frombits(b)
	}

	numEdges := p.readUint64()
	g.EdgeIndex[0] = p.readUint64s(numEdges)
	g.EdgeIndex[1] = p.readUint64s(numEdges)
	if p.err != nil {
		return nil
	}
	return g
}
