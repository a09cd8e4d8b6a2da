package am2321

import "fmt"

// Reply frame layout (8 bytes):
//
//	[0] function code echo
//	[1] byte count
//	[2] humidity high / status on fault
//	[3] humidity low
//	[4] temperature high
//	[5] temperature low
//	[6] CRC low
//	[7] CRC high
const frameLen = 8

// crc16 bytes cover everything before the checksum itself.
const crcOffset = 6

// Reading holds the physical values derived from one valid frame.
// Values are never mutated after decoding.
type Reading struct {
	Temperature float32
	Humidity    float32
	Discomfort  float32
}

// crc16 computes the reflected CRC16 (polynomial 0xA001, init 0xFFFF) the
// device appends to every reply.
func crc16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for range 8 {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// checkCRC compares the computed checksum against the little-endian value
// transmitted in the last two frame bytes.
func checkCRC(frame []byte) error {
	received := uint16(frame[7])<<8 | uint16(frame[6])
	computed := crc16(frame[:crcOffset])
	if received != computed {
		return fmt.Errorf("%w: received %#04x, computed %#04x", ErrCRCMismatch, received, computed)
	}
	return nil
}

// checkStatus fails when the device flags an internal fault by setting the
// high bit of the humidity-high byte.
func checkStatus(frame []byte) error {
	if frame[2] >= 0x80 {
		return fmt.Errorf("%w: status %#02x", ErrDeviceFault, frame[2])
	}
	return nil
}

// decodeValue converts a register pair into a physical value. Both humidity
// and temperature are encoded as unsigned big-endian fixed-point tenths, so
// negative temperatures are not representable.
func decodeValue(high, low byte) float32 {
	return float32(uint16(high)<<8|uint16(low)) / 10.0
}

// discomfortIndex computes the empirical thermal discomfort score.
// See: http://ja.wikipedia.org/wiki/%E4%B8%8D%E5%BF%AB%E6%8C%87%E6%95%B0
func discomfortIndex(temp, hum float32) float32 {
	return 0.81*temp + 0.01*hum*(0.99*temp-14.3) + 46.3
}

// decodeFrame validates a raw frame (status, then CRC) and derives the
// physical values from it.
func decodeFrame(frame []byte) (Reading, error) {
	if len(frame) != frameLen {
		return Reading{}, fmt.Errorf("am2321: unexpected frame length %d", len(frame))
	}
	if err := checkStatus(frame); err != nil {
		return Reading{}, err
	}
	if err := checkCRC(frame); err != nil {
		return Reading{}, err
	}
	hum := decodeValue(frame[2], frame[3])
	temp := decodeValue(frame[4], frame[5])
	return Reading{
		Temperature: temp,
		Humidity:    hum,
		Discomfort:  discomfortIndex(temp, hum),
	}, nil
}
