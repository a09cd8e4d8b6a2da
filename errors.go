package am2321

import "errors"

// Failure taxonomy for one measurement request. Transport, device and CRC
// errors are fatal to a single attempt only; the retry controller converts
// them into retries. ErrMeasurementFailed means the retry budget ran out and
// is the only one surfaced to callers of MeasureWithRetry.
var (
	ErrTransport         = errors.New("am2321: transport failure")
	ErrDeviceFault       = errors.New("am2321: device reported internal fault")
	ErrCRCMismatch       = errors.New("am2321: crc mismatch")
	ErrMeasurementFailed = errors.New("am2321: measurement failed")
)
