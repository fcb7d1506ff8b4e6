package scheduler

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRefresher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingRefresher) RefreshReferenceRate(context.Context) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return 21, c.err
}

func TestNew_InvalidSchedule(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	_, err := New("every now and then", &countingRefresher{}, log)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid refresh schedule")
}

func TestStartWarmsCache(t *testing.T) {
	log, hook := test.NewNullLogger()
	rates := &countingRefresher{}

	s, err := New("@hourly", rates, log)
	require.NoError(t, err)
	s.Start()
	s.Stop()

	assert.Equal(t, 1, rates.calls)
	var refreshed bool
	for _, e := range hook.AllEntries() {
		if e.Message == "Reference rate refreshed" {
			refreshed = true
			assert.Equal(t, 21.0, e.Data["key_rate"])
		}
	}
	assert.True(t, refreshed)
}

func TestRefreshFailureIsLogged(t *testing.T) {
	log, hook := test.NewNullLogger()
	rates := &countingRefresher{err: errors.New("upstream down")}

	s, err := New("*/5 * * * *", rates, log)
	require.NoError(t, err)
	s.refresh()

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Contains(t, hook.LastEntry().Message, "upstream down")
}
