package nfc

import "sync"

// MockDriver is a test implementation of CardDriver that simulates the
// NFC chip without hardware.
//
// PollCard serves results from the PollResults queue; once exhausted it
// keeps returning the last entry. FieldOn/FieldOff succeed unless their
// error fields are set. All calls are counted for verification.
type MockDriver struct {
	// PollResults is the queue of poll outcomes, in order.
	PollResults []PollResult

	// FieldOnErr, if set, is returned by FieldOn.
	FieldOnErr error

	// FieldOffErr, if set, is returned by FieldOff.
	FieldOffErr error

	// Call counters.
	PollCalls     int
	FieldOnCalls  int
	FieldOffCalls int

	mu   sync.Mutex
	next int
}

// PollResult is one simulated poll outcome.
type PollResult struct {
	Card *Card
	Err  error
}

// PollCard implements CardDriver.
func (d *MockDriver) PollCard() (*Card, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.PollCalls++
	if len(d.PollResults) == 0 {
		return nil, nil
	}
	if d.next >= len(d.PollResults) {
		r := d.PollResults[len(d.PollResults)-1]
		return r.Card, r.Err
	}
	r := d.PollResults[d.next]
	d.next++
	return r.Card, r.Err
}

// FieldOn implements CardDriver.
func (d *MockDriver) FieldOn() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.FieldOnCalls++
	return d.FieldOnErr
}

// FieldOff implements CardDriver.
func (d *MockDriver) FieldOff() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.FieldOffCalls++
	return d.FieldOffErr
}
