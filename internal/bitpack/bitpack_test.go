package bitpack

import (
	"errors"
	"testing"
)

// TestWriteBitsLSBFirst verifies bit order inside a byte
func TestWriteBitsLSBFirst(t *testing.T) {
	w := NewWriter(4)
	w.WriteBits(0b1010, 4)
	w.WriteBit(true)

	got := w.Bytes()
	if len(got) != 1 {
		t.Fatalf("Expected 1 byte, got %d", len(got))
	}
	if got[0] != 0b11010 {
		t.Errorf("Expected 0b11010, got %08b", got[0])
	}
}

// TestAlignedWriteFlushesBits verifies byte writes start on a fresh byte
func TestAlignedWriteFlushesBits(t *testing.T) {
	w := NewWriter(8)
	w.WriteBit(true)
	w.WriteUint16(0xBEEF)

	got := w.Bytes()
	want := []byte{0x01, 0xEF, 0xBE}
	if len(got) != len(want) {
		t.Fatalf("Expected %d bytes, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("byte %d: expected %#x, got %#x", i, want[i], got[i])
		}
	}
}

// TestReaderMirrorsWriter round-trips a mixed payload
func TestReaderMirrorsWriter(t *testing.T) {
	w := NewWriter(64)
	w.WriteBit(true)
	w.WriteBits(5, 3)
	w.WriteInt32(-42)
	w.WriteFloat32(1.5)
	w.WriteString("hello", 6)
	w.WriteBits(0xFFFFFFFF, 32)
	w.WriteUint64(1 << 40)

	r := NewReader(w.Bytes())
	if !r.ReadBit() {
		t.Error("Expected leading bit set")
	}
	if v := r.ReadBits(3); v != 5 {
		t.Errorf("Expected 5, got %d", v)
	}
	if v := r.ReadInt32(); v != -42 {
		t.Errorf("Expected -42, got %d", v)
	}
	if v := r.ReadFloat32(); v != 1.5 {
		t.Errorf("Expected 1.5, got %f", v)
	}
	if v := r.ReadString(6); v != "hello" {
		t.Errorf("Expected 'hello', got '%s'", v)
	}
	if v := r.ReadBits(32); v != 0xFFFFFFFF {
		t.Errorf("Expected all ones, got %#x", v)
	}
	r.ResetBitPos()
	if v := r.ReadUint64(); v != 1<<40 {
		t.Errorf("Expected 1<<40, got %d", v)
	}
	if r.Err() != nil {
		t.Errorf("Unexpected error: %v", r.Err())
	}
}

// TestReaderShortBuffer verifies sticky errors
func TestReaderShortBuffer(t *testing.T) {
	r := NewReader([]byte{1, 2})
	if v := r.ReadUint32(); v != 0 {
		t.Errorf("Expected zero value on short read, got %d", v)
	}
	if !errors.Is(r.Err(), ErrShortBuffer) {
		t.Fatalf("Expected ErrShortBuffer, got %v", r.Err())
	}
	if r.ReadUint8() != 0 {
		t.Error("Reads after an error should return zero")
	}
}

// TestWriteStringTooLongPanics verifies the length field is enforced
func TestWriteStringTooLongPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for oversized string")
		}
	}()
	NewWriter(0).WriteString("abcd", 2)
}

// TestPackedGUID covers empty and populated identities
func TestPackedGUID(t *testing.T) {
	tests := []struct {
		name string
		guid ObjectGUID
		size int
	}{
		{"empty", EmptyGUID, 2},
		{"creature", MakeGUID(HighCreature, 1234, 7), 2 + 1 + 3},
		{"player", MakeGUID(HighPlayer, 0, 0x0102030405060708), 2 + 8 + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWriter(32)
			w.WritePackedGUID(tt.guid)
			if w.Len() != tt.size {
				t.Errorf("Expected %d bytes, got %d", tt.size, w.Len())
			}
			if PackedGUIDSize(tt.guid) != tt.size {
				t.Errorf("PackedGUIDSize mismatch: %d", PackedGUIDSize(tt.guid))
			}
			r := NewReader(w.Bytes())
			if got := r.ReadPackedGUID(); got != tt.guid {
				t.Errorf("Expected %v, got %v", tt.guid, got)
			}
		})
	}
}

// TestGUIDAccessors verifies field extraction
func TestGUIDAccessors(t *testing.T) {
	g := MakeGUID(HighGameObject, 999, 55)
	if g.Type() != HighGameObject {
		t.Errorf("Expected HighGameObject, got %d", g.Type())
	}
	if g.Entry() != 999 {
		t.Errorf("Expected entry 999, got %d", g.Entry())
	}
	if g.Counter() != 55 {
		t.Errorf("Expected counter 55, got %d", g.Counter())
	}
	if g.IsEmpty() {
		t.Error("Populated GUID reported empty")
	}
}
