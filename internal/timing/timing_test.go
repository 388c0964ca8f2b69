package timing

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances by step on every read.
type fakeClock struct {
	t    time.Time
	step time.Duration
}

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

func TestStatefulTimer_AccumulatesPerLabel(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0), step: 10 * time.Millisecond}
	timer := newStatefulTimer(clock.now)

	for i := 0; i < 3; i++ {
		timer.Checkpoint("propagate start")
		timer.Checkpoint("propagate end")
	}

	report := timer.Report()
	require.Len(t, report.Entries, 2)

	assert.Equal(t, "propagate start", report.Entries[0].Label)
	assert.Equal(t, 3, report.Entries[0].Count)
	assert.Equal(t, 30*time.Millisecond, report.Entries[0].Total)

	assert.Equal(t, "propagate end", report.Entries[1].Label)
	assert.Equal(t, 3, report.Entries[1].Count)
	assert.Equal(t, 10*time.Millisecond, report.Entries[1].Average)
}

func TestStatefulTimer_Reset(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0), step: time.Millisecond}
	timer := newStatefulTimer(clock.now)

	timer.Checkpoint("a")
	timer.Reset()
	assert.Empty(t, timer.Report().Entries)

	timer.Checkpoint("b")
	report := timer.Report()
	require.Len(t, report.Entries, 1)
	assert.Equal(t, "b", report.Entries[0].Label)
	assert.Equal(t, time.Millisecond, report.Entries[0].Total)
}

func TestReport_JSON(t *testing.T) {
	timer := NewStatefulTimer()
	timer.Checkpoint("x")

	data, err := timer.Report().JSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, timer.Session(), decoded["session"])
	assert.Len(t, decoded["entries"], 1)
}

func TestNop(t *testing.T) {
	var timer Timer = Nop{}
	timer.Checkpoint("ignored")
}
