package scale

import "sync"

// MockDriver is a test implementation of Driver that simulates the
// load-cell ADC without hardware.
//
// Readings are served from the Readings queue; once the queue is
// exhausted the last value repeats. If ReadErr is set it is returned
// instead.
type MockDriver struct {
	// Readings is the queue of raw values to serve, in order.
	Readings []int32

	// ReadErr, if set, is returned by every ReadRaw call.
	ReadErr error

	// ReadCount tracks the number of ReadRaw calls.
	ReadCount int

	mu   sync.Mutex
	next int
	last int32
}

// ReadRaw implements Driver.
func (d *MockDriver) ReadRaw() (int32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.ReadCount++
	if d.ReadErr != nil {
		return 0, d.ReadErr
	}

	if d.next < len(d.Readings) {
		d.last = d.Readings[d.next]
		d.next++
	}
	return d.last, nil
}
