package cache

import (
	"bufio"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
	"math"
	"os"
	"sync"
)

// [CRC32 4B] [Fingerprint 4B] [SimHash 4B] [Combo 1B] [Latency 8B]

const journalFrameSize = 4 + 4 + 4 + 1 + 8 // 21 Bytes

// feedbackJournal is an append-only log of feedback outcomes written
// between CSV flushes. After a crash the journal replays on top of the
// last flushed CSV, so no recorded latency is lost.
type feedbackJournal struct {
	file *os.File
	mu   sync.Mutex
	buf  *bufio.Writer
}

type journalEntry struct {
	fp      uint32
	sh      uint32
	combo   uint8
	latency float64
}

func openJournal(path string) (*feedbackJournal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &feedbackJournal{
		file: f,
		buf:  bufio.NewWriter(f),
	}, nil
}

func (j *feedbackJournal) append(fp, sh uint32, cb uint8, latency float64) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	frame := make([]byte, journalFrameSize)
	binary.LittleEndian.PutUint32(frame[4:8], fp)
	binary.LittleEndian.PutUint32(frame[8:12], sh)
	frame[12] = cb
	binary.LittleEndian.PutUint64(frame[13:21], math.Float64bits(latency))

	checksum := crc32.NewIEEE()
	checksum.Write(frame[4:])
	binary.LittleEndian.PutUint32(frame[0:4], checksum.Sum32())

	if _, err := j.buf.Write(frame); err != nil {
		return err
	}
	return j.buf.Flush()
}

// replay streams every intact frame to fn, stopping at the first
// corrupt or truncated one.
func (j *feedbackJournal) replay(fn func(journalEntry)) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.buf.Flush(); err != nil {
		return err
	}

	f, err := os.Open(j.file.Name())
	if err != nil {
		return err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	frame := make([]byte, journalFrameSize)
	for {
		if _, err := io.ReadFull(r, frame); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}
		storedCRC := binary.LittleEndian.Uint32(frame[0:4])
		checksum := crc32.NewIEEE()
		checksum.Write(frame[4:])
		if checksum.Sum32() != storedCRC {
			return errors.New("journal: crc mismatch")
		}
		fn(journalEntry{
			fp:      binary.LittleEndian.Uint32(frame[4:8]),
			sh:      binary.LittleEndian.Uint32(frame[8:12]),
			combo:   frame[12],
			latency: math.Float64frombits(binary.LittleEndian.Uint64(frame[13:21])),
		})
	}
}

// truncate discards all frames after a successful CSV flush.
func (j *feedbackJournal) truncate() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.buf.Flush(); err != nil {
		return err
	}
	path := j.file.Name()
	if err := j.file.Close(); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	j.file = f
	j.buf = bufio.NewWriter(f)
	return nil
}

func (j *feedbackJournal) close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.buf.Flush()
	return j.file.Close()
}
