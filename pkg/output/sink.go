package output

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Sumatoshi-tech/convsym/pkg/safeconv"
)

// StdoutPath selects standard output as the target.
const StdoutPath = "-"

const outputFileMode = 0o644

// SpliceMode selects how a payload is placed into the target file.
type SpliceMode int

// Splice modes.
const (
	// SpliceNone creates or truncates the target and writes from offset 0.
	SpliceNone SpliceMode = iota
	// SpliceEnd appends to the end of an existing file.
	SpliceEnd
	// SpliceAt overwrites an existing file starting at Target.Offset.
	SpliceAt
)

// String returns the mode name used in logs.
func (m SpliceMode) String() string {
	switch m {
	case SpliceNone:
		return "none"
	case SpliceEnd:
		return "end"
	case SpliceAt:
		return "at"
	default:
		return fmt.Sprintf("SpliceMode(%d)", int(m))
	}
}

// Target describes where a payload goes.
type Target struct {
	Path   string
	Mode   SpliceMode
	Offset uint32
	// Align pads SpliceEnd to an even base and warns on odd SpliceAt offsets.
	Align bool
	// PointerOffset, when non-zero, receives the splice base as a big-endian
	// 32-bit word. It is only honoured in splice modes.
	PointerOffset uint32
	// Stdout receives the payload for StdoutPath. Defaults to os.Stdout.
	Stdout io.Writer
}

// Commit reports where a payload was written.
type Commit struct {
	Base    int64
	Written int
	Stats   Stats
}

// Commit writes payload to the target and returns the base it was written at.
func (t Target) Commit(payload []byte, logger *slog.Logger) (Commit, error) {
	if t.Path == StdoutPath {
		if t.Mode != SpliceNone {
			return Commit{}, ErrSpliceStdout
		}

		w := t.Stdout
		if w == nil {
			w = os.Stdout
		}

		n, err := w.Write(payload)
		if err != nil {
			return Commit{}, fmt.Errorf("write stdout: %w", err)
		}

		return Commit{Written: n}, nil
	}

	if t.Mode == SpliceNone {
		err := os.WriteFile(t.Path, payload, outputFileMode)
		if err != nil {
			return Commit{}, fmt.Errorf("write %s: %w", t.Path, err)
		}

		return Commit{Written: len(payload)}, nil
	}

	return t.splice(payload, logger)
}

func (t Target) splice(payload []byte, logger *slog.Logger) (Commit, error) {
	f, err := os.OpenFile(t.Path, os.O_RDWR, 0)
	if err != nil {
		return Commit{}, fmt.Errorf("open %s for splicing: %w", t.Path, err)
	}
	defer f.Close()

	base, err := t.spliceBase(f, logger)
	if err != nil {
		return Commit{}, err
	}

	if t.PointerOffset != 0 {
		ptrValue, ok := safeconv.Int64ToUint32(base)
		if !ok {
			return Commit{}, fmt.Errorf("%w: 0x%X in %s", ErrPointerRange, base, t.Path)
		}

		var ptr [4]byte

		binary.BigEndian.PutUint32(ptr[:], ptrValue)

		_, err = f.WriteAt(ptr[:], int64(t.PointerOffset))
		if err != nil {
			return Commit{}, fmt.Errorf("write pointer at 0x%X: %w", t.PointerOffset, err)
		}
	}

	n, err := f.WriteAt(payload, base)
	if err != nil {
		return Commit{}, fmt.Errorf("write %s at 0x%X: %w", t.Path, base, err)
	}

	err = f.Close()
	if err != nil {
		return Commit{}, fmt.Errorf("close %s: %w", t.Path, err)
	}

	logger.Debug("spliced payload", "path", t.Path, "mode", t.Mode, "base", base, "bytes", n)

	return Commit{Base: base, Written: n}, nil
}

func (t Target) spliceBase(f *os.File, logger *slog.Logger) (int64, error) {
	if t.Mode == SpliceAt {
		if t.Align && t.Offset&1 != 0 {
			logger.Warn("splice offset is odd, the table may be unreadable on the target", "offset", fmt.Sprintf("0x%X", t.Offset))
		}

		return int64(t.Offset), nil
	}

	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("seek %s: %w", t.Path, err)
	}

	if !t.Align || size&1 == 0 {
		return size, nil
	}

	_, err = f.WriteAt([]byte{0}, size)
	if err != nil {
		return 0, fmt.Errorf("pad %s: %w", t.Path, err)
	}

	return size + 1, nil
}
