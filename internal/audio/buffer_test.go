package audio

import (
	"testing"
)

func TestRingBuffer_WriteRead(t *testing.T) {
	rb := NewRingBuffer(16)

	data := []int16{1, 2, 3, 4, 5}
	if written := rb.Write(data); written != 5 {
		t.Errorf("Expected 5 samples written, got %d", written)
	}
	if rb.Available() != 5 {
		t.Errorf("Expected 5 samples available, got %d", rb.Available())
	}

	out := make([]int16, 5)
	if read := rb.Read(out); read != 5 {
		t.Errorf("Expected 5 samples read, got %d", read)
	}
	for i := range data {
		if out[i] != data[i] {
			t.Errorf("Sample %d: expected %d, got %d", i, data[i], out[i])
		}
	}
	if !rb.IsEmpty() {
		t.Error("Expected buffer to be empty after draining")
	}
}

func TestRingBuffer_PartialRead(t *testing.T) {
	rb := NewRingBuffer(16)
	rb.Write([]int16{1, 2, 3})

	out := make([]int16, 8)
	if read := rb.Read(out); read != 3 {
		t.Errorf("Expected 3 samples read, got %d", read)
	}
}

func TestRingBuffer_Full(t *testing.T) {
	rb := NewRingBuffer(8) // holds 7 samples

	data := make([]int16, 10)
	for i := range data {
		data[i] = int16(i)
	}

	if written := rb.Write(data); written != 7 {
		t.Errorf("Expected 7 samples written into full buffer, got %d", written)
	}
	if rb.Space() != 0 {
		t.Errorf("Expected no space in full buffer, got %d", rb.Space())
	}
}

func TestRingBuffer_Wraparound(t *testing.T) {
	rb := NewRingBuffer(8)

	out := make([]int16, 4)
	// Cycle enough data through to wrap the indices several times
	for cycle := 0; cycle < 5; cycle++ {
		base := int16(cycle * 4)
		rb.Write([]int16{base, base + 1, base + 2, base + 3})
		rb.Read(out)
		for i := range out {
			if out[i] != base+int16(i) {
				t.Fatalf("Cycle %d sample %d: expected %d, got %d", cycle, i, base+int16(i), out[i])
			}
		}
	}
}

func TestRingBuffer_Clear(t *testing.T) {
	rb := NewRingBuffer(16)
	rb.Write([]int16{1, 2, 3})

	rb.Clear()
	if !rb.IsEmpty() {
		t.Error("Expected buffer to be empty after Clear")
	}
	if rb.Available() != 0 {
		t.Errorf("Expected 0 available after Clear, got %d", rb.Available())
	}
}
