package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFake_AdvanceFiresDueTickers(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFake(start)
	tk := c.NewTicker(time.Hour)

	c.Advance(30 * time.Minute)
	select {
	case <-tk.C():
		t.Fatal("ticker fired early")
	default:
	}

	c.Advance(30 * time.Minute)
	select {
	case got := <-tk.C():
		assert.Equal(t, start.Add(time.Hour), got)
	default:
		t.Fatal("ticker did not fire")
	}
	assert.Equal(t, start.Add(time.Hour), c.Now())
}

func TestFake_DropsTicksForSlowReader(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	tk := c.NewTicker(time.Minute)

	c.Advance(time.Minute)
	c.Advance(time.Minute)
	c.Advance(time.Minute)

	<-tk.C()
	select {
	case <-tk.C():
		t.Fatal("expected a single buffered tick")
	default:
	}
}

func TestFake_StopUnsubscribes(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	tk := c.NewTicker(time.Second)
	require.Equal(t, 1, c.Tickers())

	tk.Stop()
	assert.Equal(t, 0, c.Tickers())

	c.Advance(time.Minute)
	select {
	case <-tk.C():
		t.Fatal("stopped ticker fired")
	default:
	}
}
