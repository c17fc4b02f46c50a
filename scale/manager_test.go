package scale

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUninitializedManagerDefaults(t *testing.T) {
	m := NewManager()

	st := m.Status()
	assert.False(t, st.Initialized)
	assert.Equal(t, float32(0), st.WeightGrams)
	assert.Equal(t, int32(0), st.Raw)
	assert.False(t, st.Stable)
	assert.Equal(t, int32(0), st.TareOffset)
	assert.Equal(t, float32(1.0), st.CalFactor)

	// Operations degrade, never panic.
	m.Poll()
	assert.Error(t, m.Tare())
	assert.Error(t, m.Calibrate(100))
}

func TestPollUpdatesReading(t *testing.T) {
	m := NewManager()
	m.Init(&MockDriver{Readings: []int32{1000, 1010}})

	m.Poll()
	st := m.Status()
	assert.Equal(t, int32(1000), st.Raw)
	assert.False(t, st.Stable, "first reading has nothing to compare against")

	m.Poll()
	st = m.Status()
	assert.Equal(t, int32(1010), st.Raw)
	assert.True(t, st.Stable, "delta of 10 counts is within the stable threshold")
}

func TestPollPerformsOneDriverOperation(t *testing.T) {
	drv := &MockDriver{Readings: []int32{500}}
	m := NewManager()
	m.Init(drv)

	m.Poll()
	assert.Equal(t, 1, drv.ReadCount)
}

func TestPollDriverErrorKeepsPreviousReading(t *testing.T) {
	drv := &MockDriver{Readings: []int32{2000}}
	m := NewManager()
	m.Init(drv)
	m.Poll()

	drv.ReadErr = errors.New("bus fault")
	m.Poll()

	st := m.Status()
	assert.Equal(t, int32(2000), st.Raw)
}

func TestTareAndCalibrate(t *testing.T) {
	// Empty platform reads 1000, loaded platform reads 3000:
	// 100g reference => 20 counts/gram.
	readings := make([]int32, 0, 16)
	for i := 0; i < 8; i++ {
		readings = append(readings, 1000)
	}
	for i := 0; i < 8; i++ {
		readings = append(readings, 3000)
	}
	drv := &MockDriver{Readings: readings}

	m := NewManager()
	m.Init(drv)

	require.NoError(t, m.Tare())
	st := m.Status()
	assert.Equal(t, int32(1000), st.TareOffset)

	require.NoError(t, m.Calibrate(100))
	st = m.Status()
	assert.InDelta(t, 20.0, float64(st.CalFactor), 0.001)

	// A poll at the loaded reading now reports the reference weight.
	m.Poll()
	st = m.Status()
	assert.InDelta(t, 100.0, float64(st.WeightGrams), 0.01)
}

func TestTareFailureLeavesCalibrationUntouched(t *testing.T) {
	drv := &MockDriver{Readings: []int32{1000}}
	m := NewManager()
	m.Init(drv)
	require.NoError(t, m.Tare())

	drv.ReadErr = errors.New("bus fault")
	assert.Error(t, m.Tare())

	st := m.Status()
	assert.Equal(t, int32(1000), st.TareOffset)
}

func TestCalibrateRejectsBadReference(t *testing.T) {
	m := NewManager()
	m.Init(&MockDriver{Readings: []int32{1000}})

	assert.Error(t, m.Calibrate(0))
	assert.Error(t, m.Calibrate(-5))
}

func TestReinitResetsState(t *testing.T) {
	m := NewManager()
	m.Init(&MockDriver{Readings: []int32{4000}})
	m.Poll()
	require.Equal(t, int32(4000), m.Status().Raw)

	m.Init(&MockDriver{Readings: []int32{7}})
	st := m.Status()
	assert.True(t, st.Initialized)
	assert.Equal(t, int32(0), st.Raw, "re-init overwrites, it does not merge")
}

func TestConcurrentStatusReadsDuringPoll(t *testing.T) {
	m := NewManager()
	m.Init(&MockDriver{Readings: []int32{1, 2, 3, 4, 5}})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = m.Status()
			}
		}()
	}
	for j := 0; j < 100; j++ {
		m.Poll()
	}
	wg.Wait()
}
