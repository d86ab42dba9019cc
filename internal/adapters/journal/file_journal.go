package journal

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/ghalamif/TagSync/internal/domain"
	"github.com/ghalamif/TagSync/internal/ports"
)

const recordHeaderLen = 12

// File names inside a journal directory.
const (
	LogFileName  = "stimulations.log"
	metaFileName = "stimulations.meta"
)

// FileJournal appends emitted events to a single log file and tracks the
// committed position in a side file.
type FileJournal struct {
	mu        sync.Mutex
	path      string
	metaPath  string
	file      *os.File
	writer    *bufio.Writer
	nextID    ports.EntryID
	committed ports.EntryID
	truncated ports.EntryID
	sizeBytes int64
	closed    bool
}

func NewFileJournal(dir string) (*FileJournal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, LogFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	j := &FileJournal{
		path:     path,
		metaPath: filepath.Join(dir, metaFileName),
		file:     f,
		writer:   bufio.NewWriterSize(f, 64<<10),
	}
	if err := j.bootstrap(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return j, nil
}

func (j *FileJournal) bootstrap() error {
	if err := j.scanExisting(); err != nil {
		return err
	}
	if err := j.loadCommitted(); err != nil {
		return err
	}
	if j.nextID < j.committed {
		j.nextID = j.committed
	}
	_, err := j.file.Seek(0, io.SeekEnd)
	return err
}

// scanExisting finds the last complete record and cuts off a torn tail.
func (j *FileJournal) scanExisting() error {
	stat, err := j.file.Stat()
	if err != nil {
		return err
	}
	if stat.Size() == 0 {
		return nil
	}

	rf, err := os.Open(j.path)
	if err != nil {
		return err
	}
	defer rf.Close()

	reader := bufio.NewReader(rf)
	var (
		offset int64
		lastID ports.EntryID
	)

	for {
		var hdr [recordHeaderLen]byte
		if _, err := io.ReadFull(reader, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return fmt.Errorf("journal scan header: %w", err)
		}
		id := ports.EntryID(binary.BigEndian.Uint64(hdr[0:8]))
		length := binary.BigEndian.Uint32(hdr[8:12])

		if _, err := io.CopyN(io.Discard, reader, int64(length)); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return fmt.Errorf("journal scan body: %w", err)
		}
		offset += recordHeaderLen + int64(length)
		lastID = id
	}

	if offset != stat.Size() {
		if err := j.file.Truncate(offset); err != nil {
			return err
		}
	}
	j.sizeBytes = offset
	j.nextID = lastID
	return nil
}

func (j *FileJournal) loadCommitted() error {
	data, err := os.ReadFile(j.metaPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	val := strings.TrimSpace(string(data))
	if val == "" {
		return nil
	}
	u, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return fmt.Errorf("journal meta parse: %w", err)
	}
	j.committed = ports.EntryID(u)
	return nil
}

// Append assigns the next entry id to e.Seq and writes the event.
func (j *FileJournal) Append(e *domain.Event) (ports.EntryID, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return 0, os.ErrClosed
	}

	id := j.nextID + 1
	e.Seq = uint64(id)

	b, err := json.Marshal(e)
	if err != nil {
		return 0, err
	}

	// entry format: [8 bytes id][4 bytes len][len bytes json]
	var hdr [recordHeaderLen]byte
	binary.BigEndian.PutUint64(hdr[0:8], uint64(id))
	binary.BigEndian.PutUint32(hdr[8:12], uint32(len(b)))

	if _, err := j.writer.Write(hdr[:]); err != nil {
		return 0, err
	}
	if _, err := j.writer.Write(b); err != nil {
		return 0, err
	}

	j.nextID = id
	j.sizeBytes += int64(len(b) + len(hdr))
	return id, nil
}

func (j *FileJournal) Iterate(from ports.EntryID, fn func(id ports.EntryID, e domain.Event) error) error {
	j.mu.Lock()
	if !j.closed {
		if err := j.writer.Flush(); err != nil {
			j.mu.Unlock()
			return err
		}
	}
	j.mu.Unlock()

	return IterateFile(j.path, from, fn)
}

// IterateFile walks the journal file at path without opening it for writing.
func IterateFile(path string, from ports.EntryID, fn func(id ports.EntryID, e domain.Event) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for {
		var hdr [recordHeaderLen]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("journal truncated header: %w", err)
		}
		id := ports.EntryID(binary.BigEndian.Uint64(hdr[0:8]))
		l := binary.BigEndian.Uint32(hdr[8:12])

		b := make([]byte, l)
		if _, err := io.ReadFull(r, b); err != nil {
			return fmt.Errorf("corrupt journal: %w", err)
		}
		if id < from {
			continue
		}

		var e domain.Event
		if err := json.Unmarshal(b, &e); err != nil {
			return fmt.Errorf("corrupt journal entry %d: %w", id, err)
		}
		if err := fn(id, e); err != nil {
			return err
		}
	}
}

func (j *FileJournal) Commit(upto ports.EntryID) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if upto > j.committed {
		j.committed = upto
	}
	if j.closed {
		return nil
	}
	if err := j.writer.Flush(); err != nil {
		return err
	}
	return j.persistMetaLocked()
}

// TruncateCommitted rewrites the log without the entries at or below the
// commit watermark. It is a no-op until the watermark moves past the one of
// the previous truncation.
func (j *FileJournal) TruncateCommitted() (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return 0, os.ErrClosed
	}
	if j.committed <= j.truncated {
		return 0, nil
	}
	if err := j.writer.Flush(); err != nil {
		return 0, err
	}

	tmpPath := j.path + ".compact"
	kept, err := copyUncommitted(j.path, tmpPath, j.committed)
	if err != nil {
		_ = os.Remove(tmpPath)
		return 0, err
	}

	if err := j.file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return 0, err
	}
	renameErr := os.Rename(tmpPath, j.path)
	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		j.closed = true
		return 0, errors.Join(renameErr, err)
	}
	j.file = f
	j.writer = bufio.NewWriterSize(f, 64<<10)
	if renameErr != nil {
		_ = os.Remove(tmpPath)
		return 0, renameErr
	}

	freed := j.sizeBytes - kept
	j.sizeBytes = kept
	j.truncated = j.committed
	return freed, nil
}

// copyUncommitted writes every record of src with an id above committed to
// dst and returns the bytes written.
func copyUncommitted(src, dst string, committed ports.EntryID) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	r := bufio.NewReader(in)
	w := bufio.NewWriterSize(out, 64<<10)
	var kept int64
	for {
		var hdr [recordHeaderLen]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, fmt.Errorf("journal truncate header: %w", err)
		}
		id := ports.EntryID(binary.BigEndian.Uint64(hdr[0:8]))
		l := int64(binary.BigEndian.Uint32(hdr[8:12]))

		if id <= committed {
			if _, err := io.CopyN(io.Discard, r, l); err != nil {
				return 0, fmt.Errorf("journal truncate body: %w", err)
			}
			continue
		}
		if _, err := w.Write(hdr[:]); err != nil {
			return 0, err
		}
		if _, err := io.CopyN(w, r, l); err != nil {
			return 0, fmt.Errorf("journal truncate body: %w", err)
		}
		kept += recordHeaderLen + l
	}

	if err := w.Flush(); err != nil {
		return 0, err
	}
	if err := out.Sync(); err != nil {
		return 0, err
	}
	return kept, nil
}

func (j *FileJournal) Stats() ports.JournalStats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return ports.JournalStats{
		OldestUncommitted: j.committed + 1,
		LatestAppended:    j.nextID,
		SizeBytes:         j.sizeBytes,
	}
}

// Path returns the journal log file.
func (j *FileJournal) Path() string { return j.path }

func (j *FileJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	err := j.writer.Flush()
	if e := j.persistMetaLocked(); e != nil {
		err = errors.Join(err, e)
	}
	if e := j.file.Close(); e != nil {
		err = errors.Join(err, e)
	}
	return err
}

func (j *FileJournal) persistMetaLocked() error {
	data := []byte(fmt.Sprintf("%d\n", j.committed))
	return os.WriteFile(j.metaPath, data, 0o644)
}

var _ ports.Journal = (*FileJournal)(nil)
