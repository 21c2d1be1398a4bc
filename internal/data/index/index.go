// Package index builds and serves the random-access packet directory of a
// trace file.
//
// A PacketIndex is produced once by Build, which scans the file
// sequentially, and is immutable afterwards: Header and Record are plain
// slice reads and Body issues a positioned read, so any number of
// goroutines may use a built index without locking.
package index

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/penwyp/go-apitrace/internal/core/model"
	"github.com/penwyp/go-apitrace/internal/data/tracefile"
	"github.com/penwyp/go-apitrace/internal/util"
)

const (
	scanBufferSize          = 256 * 1024
	defaultProgressInterval = 4096
)

// Options tunes Build.
type Options struct {
	Logger util.LoggerInterface
	// Progress, when set, is called from the scanning goroutine with the
	// number of bytes consumed so far and the file size.
	Progress func(scanned, total int64)
	// ProgressInterval is the number of records between Progress calls.
	ProgressInterval int
}

// PacketIndex is the ordered directory of packets in one trace file.
type PacketIndex struct {
	src        io.ReaderAt
	closer     io.Closer
	size       int64
	path       string
	fileHeader model.FileHeader
	order      binary.ByteOrder
	records    []model.PacketRecord
	identity   Identity
}

// Identity is the state of the trace file when its index was built. Bytes
// appended later are not indexed, so a cache entry or change check must
// compare against this and not against a later stat.
type Identity struct {
	util.FileInfo
	Fingerprint string
}

// Open opens path and builds its index. The returned index owns the file
// handle; release it with Close.
func Open(ctx context.Context, path string, opts Options) (*PacketIndex, *model.LoadReport, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, &IOError{Op: "open", Err: err}
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, &IOError{Op: "stat", Err: err}
	}
	info, err := util.FileInfoOf(stat)
	if err != nil {
		file.Close()
		return nil, nil, &IOError{Op: "stat", Err: err}
	}
	fingerprint, err := util.FingerprintAt(file, info.Size)
	if err != nil {
		file.Close()
		return nil, nil, &IOError{Op: "read", Err: err}
	}

	idx, report, err := Build(ctx, file, info.Size, opts)
	if err != nil {
		file.Close()
		return nil, nil, err
	}
	idx.closer = file
	idx.path = path
	idx.identity = Identity{FileInfo: *info, Fingerprint: fingerprint}
	return idx, report, nil
}

// Build scans size bytes of src and returns the index plus the report of
// recoverable problems. A record whose declared size overruns the file, a
// truncated trailing header, or a size smaller than a packet header ends
// the scan at the last good record with a CorruptTrace issue. Read
// failures, a foreign file header and cancellation are fatal; no partial
// index is returned for them. ctx is checked between records only.
func Build(ctx context.Context, src io.ReaderAt, size int64, opts Options) (*PacketIndex, *model.LoadReport, error) {
	logger := util.OrNop(opts.Logger)
	report := model.NewLoadReport()

	fileHeader, err := readFileHeader(src, size)
	if err != nil {
		return nil, nil, err
	}

	idx := &PacketIndex{
		src:        src,
		size:       size,
		fileHeader: fileHeader,
		order:      tracefile.Order(fileHeader.ByteOrder),
		records:    make([]model.PacketRecord, 0, estimateRecords(size)),
	}

	interval := opts.ProgressInterval
	if interval <= 0 {
		interval = defaultProgressInterval
	}

	reader := bufio.NewReaderSize(io.NewSectionReader(src, model.FileHeaderSize, size-model.FileHeaderSize), scanBufferSize)
	var hdr [model.PacketHeaderSize]byte
	offset := int64(model.FileHeaderSize)

	for {
		if err := ctx.Err(); err != nil {
			logger.Debug("index build cancelled", util.F("rows", len(idx.records)), util.F("offset", offset))
			return nil, nil, err
		}

		remaining := size - offset
		if remaining == 0 {
			break
		}
		if remaining < model.PacketHeaderSize {
			report.Add(model.IssueCorruptTrace, -1, uint64(offset),
				"truncated packet header: %d of %d bytes present", remaining, model.PacketHeaderSize)
			break
		}

		if _, err := io.ReadFull(reader, hdr[:]); err != nil {
			return nil, nil, &IOError{Op: "read packet header", Offset: offset, Err: err}
		}
		h := tracefile.DecodePacketHeader(hdr[:], idx.order)

		if h.Size < model.PacketHeaderSize {
			report.Add(model.IssueCorruptTrace, -1, uint64(offset),
				"declared size %d is smaller than the %d byte packet header", h.Size, model.PacketHeaderSize)
			break
		}
		if int64(h.Size) > remaining {
			report.Add(model.IssueCorruptTrace, -1, uint64(offset),
				"declared size %d overruns end of file by %d bytes", h.Size, int64(h.Size)-remaining)
			break
		}

		row := len(idx.records)
		if row > 0 {
			if prev := idx.records[row-1].Header.GlobalIndex; h.GlobalIndex <= prev {
				report.Add(model.IssueNonMonotonicIndex, row, uint64(offset),
					"global index %d does not follow %d", h.GlobalIndex, prev)
			}
		}
		idx.records = append(idx.records, model.PacketRecord{FileOffset: uint64(offset), Header: h})

		if body := int(h.BodySize()); body > 0 {
			if _, err := reader.Discard(body); err != nil {
				return nil, nil, &IOError{Op: "skip packet body", Offset: offset + model.PacketHeaderSize, Err: err}
			}
		}
		offset += int64(h.Size)

		if opts.Progress != nil && len(idx.records)%interval == 0 {
			opts.Progress(offset, size)
		}
	}

	if opts.Progress != nil {
		opts.Progress(offset, size)
	}
	logger.Debug("index built",
		util.F("rows", len(idx.records)),
		util.F("bytes", offset),
		util.F("tracer", fileHeader.TracerID),
		util.F("issues", report.Len()))
	return idx, report, nil
}

// FromRecords rebuilds an index from records produced by an earlier Build
// of the same file, skipping the scan.
func FromRecords(src io.ReaderAt, size int64, fileHeader model.FileHeader, records []model.PacketRecord) (*PacketIndex, error) {
	for i := 1; i < len(records); i++ {
		if records[i].FileOffset <= records[i-1].FileOffset {
			return nil, fmt.Errorf("record %d offset %d does not follow %d", i, records[i].FileOffset, records[i-1].FileOffset)
		}
	}
	if n := len(records); n > 0 {
		last := records[n-1]
		if last.FileOffset+uint64(last.Header.Size) > uint64(size) {
			return nil, fmt.Errorf("record %d ends past file size %d", n-1, size)
		}
	}
	return &PacketIndex{
		src:        src,
		size:       size,
		fileHeader: fileHeader,
		order:      tracefile.Order(fileHeader.ByteOrder),
		records:    records,
	}, nil
}

// Adopt transfers ownership of closer (usually the *os.File behind src)
// to the index, so that Close releases it.
func (x *PacketIndex) Adopt(path string, closer io.Closer, identity Identity) {
	x.path = path
	x.closer = closer
	x.identity = identity
}

// Identity returns the file state the records describe. It is zero for
// indexes built from a bare reader.
func (x *PacketIndex) Identity() Identity { return x.identity }

func readFileHeader(src io.ReaderAt, size int64) (model.FileHeader, error) {
	if size < model.FileHeaderSize {
		return model.FileHeader{}, fmt.Errorf("%w: file is %d bytes", tracefile.ErrNotTrace, size)
	}
	var buf [model.FileHeaderSize]byte
	if n, err := src.ReadAt(buf[:], 0); n < len(buf) {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return model.FileHeader{}, &IOError{Op: "read file header", Err: err}
	}
	return tracefile.DecodeFileHeader(buf[:])
}

// estimateRecords guesses a starting capacity assuming small bodies.
func estimateRecords(size int64) int {
	n := (size - model.FileHeaderSize) / (model.PacketHeaderSize * 4)
	if n < 16 {
		return 16
	}
	if n > 1<<20 {
		return 1 << 20
	}
	return int(n)
}

// Len returns the number of indexed packets.
func (x *PacketIndex) Len() int { return len(x.records) }

// Header returns the header of row. It panics if row is out of range, like
// a slice access.
func (x *PacketIndex) Header(row int) model.PacketHeader { return x.records[row].Header }

// Record returns the record of row. It panics if row is out of range.
func (x *PacketIndex) Record(row int) model.PacketRecord { return x.records[row] }

// Records exposes the record slice. Callers must not modify it.
func (x *PacketIndex) Records() []model.PacketRecord { return x.records }

// FileHeader returns the trace's file header.
func (x *PacketIndex) FileHeader() model.FileHeader { return x.fileHeader }

// Size returns the byte length of the trace source.
func (x *PacketIndex) Size() int64 { return x.size }

// Path returns the file path for indexes created by Open, or "".
func (x *PacketIndex) Path() string { return x.path }

// IndexedBytes returns the offset just past the last good record.
func (x *PacketIndex) IndexedBytes() int64 {
	if len(x.records) == 0 {
		return model.FileHeaderSize
	}
	last := x.records[len(x.records)-1]
	return int64(last.FileOffset) + int64(last.Header.Size)
}

// Body reads the payload of row. Every call performs its own positioned
// read and allocates a fresh slice; nothing is cached.
func (x *PacketIndex) Body(row int) ([]byte, error) {
	if row < 0 || row >= len(x.records) {
		return nil, fmt.Errorf("%w: %d (len %d)", ErrRowOutOfRange, row, len(x.records))
	}
	rec := x.records[row]
	buf := make([]byte, rec.Header.BodySize())
	if len(buf) == 0 {
		return buf, nil
	}

	off := int64(rec.BodyOffset())
	n, err := x.src.ReadAt(buf, off)
	if n == len(buf) {
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return nil, &IOError{Op: "read packet body", Offset: off, Err: err}
}

// Close releases the underlying file for indexes created by Open.
func (x *PacketIndex) Close() error {
	if x.closer == nil {
		return nil
	}
	err := x.closer.Close()
	x.closer = nil
	return err
}
