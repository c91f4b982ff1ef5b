package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := New[int]()

	_, ok := r.Get("missing")
	assert.False(t, ok)

	r.Add("b", 2)
	r.Add("a", 1)
	v, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	got, loaded := r.GetOrAdd("a", func() int { return 100 })
	assert.True(t, loaded)
	assert.Equal(t, 1, got)

	got, loaded = r.GetOrAdd("c", func() int { return 3 })
	assert.False(t, loaded)
	assert.Equal(t, 3, got)

	assert.Equal(t, []string{"a", "b", "c"}, r.Names())
	assert.Equal(t, 3, r.Len())

	r.Del("b")
	assert.Equal(t, []string{"a", "c"}, r.Names())
}

func TestRegistry_Concurrent(t *testing.T) {
	r := New[string]()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := fmt.Sprintf("m%02d", i)
			r.Add(name, name)
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, r.Len())
	assert.Equal(t, "m00", r.Names()[0])
}
