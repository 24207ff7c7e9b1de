package server

import "testing"

func TestBlockRoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte("hello"),
		make([]byte, maxBlockLength+100),
	}
	for _, payload := range cases {
		encoded := encodeBlock(payload)
		decoded, err := decodeBlock(encoded)
		if err != nil {
			t.Fatalf("decodeBlock: %v", err)
		}
		if string(decoded) != string(payload) {
			t.Errorf("round trip mismatch: got %d bytes, want %d", len(decoded), len(payload))
		}
	}
}

func TestEncodeBlock_EmptyPayloadIsSingleEOFBlock(t *testing.T) {
	encoded := encodeBlock(nil)
	if len(encoded) != 3 {
		t.Fatalf("expected a 3-byte header with no payload, got %d bytes", len(encoded))
	}
	if encoded[0] != 0x40 {
		t.Errorf("expected EOF flag 0x40, got %#x", encoded[0])
	}
}

func TestEncodeBlock_LastChunkFlaggedEOFEvenWhenNonempty(t *testing.T) {
	payload := make([]byte, maxBlockLength+10)
	encoded := encodeBlock(payload)

	firstFlag := encoded[0]
	if firstFlag != 0x00 {
		t.Errorf("expected first block flag 0x00, got %#x", firstFlag)
	}

	secondHeaderOffset := 3 + maxBlockLength
	secondFlag := encoded[secondHeaderOffset]
	if secondFlag != 0x40 {
		t.Errorf("expected final block flag 0x40, got %#x", secondFlag)
	}
}

func TestDecodeBlock_TruncatedHeader(t *testing.T) {
	if _, err := decodeBlock([]byte{0x40, 0x00}); err == nil {
		t.Error("expected error for truncated header")
	}
}

func TestDecodeBlock_TruncatedPayload(t *testing.T) {
	if _, err := decodeBlock([]byte{0x40, 0x00, 0x05, 'a', 'b'}); err == nil {
		t.Error("expected error for truncated payload")
	}
}

func TestCompressedRoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte("hello world"),
		make([]byte, maxCompressedLiteral*3+7),
	}
	for _, payload := range cases {
		encoded := encodeCompressed(payload)
		decoded, err := decodeCompressed(encoded)
		if err != nil {
			t.Fatalf("decodeCompressed: %v", err)
		}
		if string(decoded) != string(payload) {
			t.Errorf("round trip mismatch: got %d bytes, want %d", len(decoded), len(payload))
		}
	}
}

func TestDecodeCompressed_ReplicatedByte(t *testing.T) {
	// descriptor 0x85 (10_000101) repeats the following byte 5 times.
	raw := []byte{0x85, 'x'}
	decoded, err := decodeCompressed(raw)
	if err != nil {
		t.Fatalf("decodeCompressed: %v", err)
	}
	if string(decoded) != "xxxxx" {
		t.Errorf("got %q, want %q", decoded, "xxxxx")
	}
}

func TestDecodeCompressed_FillerMarkerDiscarded(t *testing.T) {
	// descriptor 0xC3 (11_000011) discards the next 3 bytes.
	raw := append([]byte{0xC3, 1, 2, 3}, encodeCompressed([]byte("ok"))...)
	decoded, err := decodeCompressed(raw)
	if err != nil {
		t.Fatalf("decodeCompressed: %v", err)
	}
	if string(decoded) != "ok" {
		t.Errorf("got %q, want %q", decoded, "ok")
	}
}

func TestDecodeCompressed_TruncatedDescriptors(t *testing.T) {
	cases := [][]byte{
		{0x05, 'a'},       // literal run claims 5 bytes, only 1 present
		{0x85},            // replicated-byte descriptor missing its byte
		{0xC5, 1, 2, 3},   // filler claims 5 bytes, only 3 present
	}
	for _, raw := range cases {
		if _, err := decodeCompressed(raw); err == nil {
			t.Errorf("expected error decoding %v", raw)
		}
	}
}
