package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClockElapsedAdvances(t *testing.T) {
	c := NewClock()

	// Updates before Start have no effect.
	c.Update()
	assert.Zero(t, c.Elapsed())

	c.Start()
	time.Sleep(5 * time.Millisecond)
	c.Update()
	first := c.ElapsedSeconds()
	assert.Greater(t, first, 0.0)

	time.Sleep(5 * time.Millisecond)
	c.Update()
	assert.Greater(t, c.ElapsedSeconds(), first)
}

func TestClockStopFreezesElapsed(t *testing.T) {
	c := NewClock()
	c.Start()
	time.Sleep(2 * time.Millisecond)
	c.Update()
	frozen := c.Elapsed()

	c.Stop()
	time.Sleep(2 * time.Millisecond)
	c.Update()
	assert.Equal(t, frozen, c.Elapsed())
}

func TestClockStartResetsElapsed(t *testing.T) {
	c := NewClock()
	c.Start()
	time.Sleep(2 * time.Millisecond)
	c.Update()
	assert.Greater(t, c.Elapsed(), 0.0)

	c.Start()
	assert.Zero(t, c.Elapsed())
}
