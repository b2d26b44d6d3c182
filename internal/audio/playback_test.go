package audio

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// writeTestWAV writes a short 16-bit mono PCM file and returns its path.
func writeTestWAV(t *testing.T) string {
	t.Helper()

	const dataLen = 64
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(44100))
	binary.Write(&buf, binary.LittleEndian, uint32(44100*2)) // byte rate
	binary.Write(&buf, binary.LittleEndian, uint16(2))       // block align
	binary.Write(&buf, binary.LittleEndian, uint16(16))      // bit depth
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(make([]byte, dataLen))

	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	return path
}

func TestOpenPlaybackRejectsUnsupportedType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.ogg")
	if err := os.WriteFile(path, []byte("not audio"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := OpenPlayback(path, false); err == nil {
		t.Fatal("OpenPlayback accepted an unsupported file type")
	}
}

func TestOpenPlaybackRejectsMissingFile(t *testing.T) {
	if _, err := OpenPlayback(filepath.Join(t.TempDir(), "absent.wav"), false); err == nil {
		t.Fatal("OpenPlayback accepted a missing file")
	}
}

func TestPlaybackCloseIsClean(t *testing.T) {
	p, err := OpenPlayback(writeTestWAV(t), false)
	if err != nil {
		t.Fatalf("OpenPlayback: %v", err)
	}
	// The decoder owns the backing file; closing the chain must not surface
	// a double-close error.
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestPlaybackInactiveBeforeFirstPlay(t *testing.T) {
	p, err := OpenPlayback(writeTestWAV(t), false)
	if err != nil {
		t.Fatalf("OpenPlayback: %v", err)
	}
	defer p.Close()

	if p.Active() {
		t.Fatal("session active before any user gesture")
	}
	bins := p.FrequencyData()
	if len(bins) != BinCount {
		t.Fatalf("snapshot length = %d, want %d", len(bins), BinCount)
	}
	for i, b := range bins {
		if b != 0 {
			t.Fatalf("idle session produced magnitude %d in bin %d", b, i)
		}
	}
}
