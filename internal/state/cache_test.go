package state

import (
	"sync"
	"testing"

	"github.com/brookman/respeaker-go/internal/param"
)

func TestCacheGetSet(t *testing.T) {
	c := NewCache()

	if _, ok := c.Get(param.AGCGain); ok {
		t.Fatal("empty cache returned a value")
	}

	c.Set(param.AGCGain, param.Float(3))
	v, ok := c.Get(param.AGCGain)
	if !ok || !v.Equal(param.Float(3)) {
		t.Fatalf("Get = %v, %v; want 3, true", v, ok)
	}

	c.Set(param.AGCGain, param.Float(5))
	if v, _ := c.Get(param.AGCGain); !v.Equal(param.Float(5)) {
		t.Fatalf("Get after overwrite = %v, want 5", v)
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
}

func TestCacheSnapshotIsIsolated(t *testing.T) {
	c := NewCache()
	c.Set(param.HPFOnOff, param.Int(1))

	snap := c.Snapshot()
	snap[param.HPFOnOff] = param.Int(3)

	if v, _ := c.Get(param.HPFOnOff); !v.Equal(param.Int(1)) {
		t.Fatalf("mutating a snapshot leaked into the cache: %v", v)
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := NewCache()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				c.Set(param.DOAAngle, param.Int(int32(j)))
				c.Get(param.DOAAngle)
				c.Snapshot()
			}
		}(i)
	}
	wg.Wait()

	if _, ok := c.Get(param.DOAAngle); !ok {
		t.Fatal("value lost after concurrent writes")
	}
}
