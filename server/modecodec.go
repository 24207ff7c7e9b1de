package server

import (
	"fmt"
)

// transferMode is the RFC 959 §3.4 framing applied to a data connection.
type transferMode byte

const (
	modeStream transferMode = iota
	modeBlock
	modeCompressed
)

func (m transferMode) String() string {
	switch m {
	case modeStream:
		return "Stream"
	case modeBlock:
		return "Block"
	case modeCompressed:
		return "Compressed"
	default:
		return "unknown"
	}
}

// encodeMode applies the wire framing for mode to payload, for sending out
// on a data connection.
func encodeMode(mode transferMode, payload []byte) []byte {
	switch mode {
	case modeBlock:
		return encodeBlock(payload)
	case modeCompressed:
		return encodeCompressed(payload)
	default:
		return payload
	}
}

// decodeMode strips the wire framing for mode from raw, as received on a
// data connection.
func decodeMode(mode transferMode, raw []byte) ([]byte, error) {
	switch mode {
	case modeBlock:
		return decodeBlock(raw)
	case modeCompressed:
		return decodeCompressed(raw)
	default:
		return raw, nil
	}
}

const maxBlockLength = 1<<16 - 1

// encodeBlock partitions payload into [flag:1][length:2][data:length]
// records of at most maxBlockLength bytes each, flagging the last one EOF
// (0x40) even when it is nonempty. An empty payload produces a single
// zero-length EOF block.
func encodeBlock(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+3)
	i := 0
	for {
		remaining := len(payload) - i
		n := remaining
		if n > maxBlockLength {
			n = maxBlockLength
		}
		chunk := payload[i : i+n]
		i += n
		last := i == len(payload)

		flag := byte(0x00)
		if last {
			flag = 0x40
		}
		out = append(out, flag, byte(n/256), byte(n%256))
		out = append(out, chunk...)

		if last {
			return out
		}
	}
}

// decodeBlock reads consecutive [flag:1][length:2][data:length] records
// until raw is exhausted. The flag byte's value is not inspected — EOF is
// implicit in reaching the end of raw.
func decodeBlock(raw []byte) ([]byte, error) {
	out := make([]byte, 0, len(raw))
	i := 0
	for i < len(raw) {
		if i+3 > len(raw) {
			return nil, fmt.Errorf("modecodec: truncated block header at offset %d", i)
		}
		length := int(raw[i+1])*256 + int(raw[i+2])
		i += 3
		if i+length > len(raw) {
			return nil, fmt.Errorf("modecodec: truncated block payload at offset %d", i)
		}
		out = append(out, raw[i:i+length]...)
		i += length
	}
	return out, nil
}

const maxCompressedLiteral = 1<<7 - 1

// encodeCompressed emits only literal descriptors (top bit clear, value =
// chunk length) followed by the chunk bytes, in runs of at most 127 bytes.
func encodeCompressed(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+len(payload)/maxCompressedLiteral+1)
	i := 0
	for i < len(payload) {
		n := len(payload) - i
		if n > maxCompressedLiteral {
			n = maxCompressedLiteral
		}
		out = append(out, byte(n))
		out = append(out, payload[i:i+n]...)
		i += n
	}
	return out
}

// decodeCompressed interprets each descriptor byte by its top two bits:
// 0x: literal run; 10: replicated byte; 11: filler/restart marker (discarded).
func decodeCompressed(raw []byte) ([]byte, error) {
	out := make([]byte, 0, len(raw))
	i := 0
	for i < len(raw) {
		d := raw[i]
		i++
		switch {
		case d&0x80 == 0:
			n := int(d)
			if i+n > len(raw) {
				return nil, fmt.Errorf("modecodec: truncated literal run at offset %d", i)
			}
			out = append(out, raw[i:i+n]...)
			i += n
		case d&0xC0 == 0x80:
			if i >= len(raw) {
				return nil, fmt.Errorf("modecodec: truncated replicated-byte descriptor at offset %d", i)
			}
			b := raw[i]
			i++
			count := int(d & 0x3F)
			for k := 0; k < count; k++ {
				out = append(out, b)
			}
		default: // d&0xC0 == 0xC0: filler / restart marker
			n := int(d & 0x3F)
			if i+n > len(raw) {
				return nil, fmt.Errorf("modecodec: truncated filler descriptor at offset %d", i)
			}
			i += n
		}
	}
	return out, nil
}
