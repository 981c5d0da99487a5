package harness

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShutdownOneWay(t *testing.T) {
	s := NewShutdown()
	assert.False(t, s.IsSet())
	select {
	case <-s.Done():
		t.Fatal("done closed before Set")
	default:
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Set()
		}()
	}
	wg.Wait()

	assert.True(t, s.IsSet())
	<-s.Done()
}

func TestProgressConcurrentInc(t *testing.T) {
	p := NewProgress(200)
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p.Inc(i%4 == 0)
		}(i)
	}
	wg.Wait()

	snap := p.Snapshot()
	assert.Equal(t, int64(200), snap.Total)
	assert.Equal(t, int64(200), snap.Completed)
	assert.Equal(t, int64(50), snap.Failed)
}
