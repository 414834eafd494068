package ringbuffer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCreateError(t *testing.T) {
	_, err := New[int](1000)
	require.EqualError(t, err, "size must be a power of two")
}

func TestPushBeforePull(t *testing.T) {
	r, err := New[[]byte](64)
	require.NoError(t, err)
	defer r.Close()

	r.Push([]byte{1, 2, 3, 4})

	ret, ok := r.Pull()
	require.Equal(t, true, ok)
	require.Equal(t, []byte{1, 2, 3, 4}, ret)
}

func TestPullBeforePush(t *testing.T) {
	r, err := New[[]byte](64)
	require.NoError(t, err)
	defer r.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		ret, ok := r.Pull()
		require.Equal(t, true, ok)
		require.Equal(t, []byte{1, 2, 3, 4}, ret)
	}()

	time.Sleep(100 * time.Millisecond)

	r.Push([]byte{1, 2, 3, 4})

	<-done
}

func TestOverwriteOldest(t *testing.T) {
	r, err := New[int](4)
	require.NoError(t, err)
	defer r.Close()

	for i := 0; i < 6; i++ {
		r.Push(i)
	}

	// 0 and 1 were overwritten by 4 and 5.
	v, ok := r.Pull()
	require.Equal(t, true, ok)
	require.Equal(t, 4, v)

	v, ok = r.Pull()
	require.Equal(t, true, ok)
	require.Equal(t, 5, v)

	v, ok = r.Pull()
	require.Equal(t, true, ok)
	require.Equal(t, 2, v)

	v, ok = r.Pull()
	require.Equal(t, true, ok)
	require.Equal(t, 3, v)
}

func TestClose(t *testing.T) {
	r, err := New[int](64)
	require.NoError(t, err)

	r.Push(1)
	r.Close()

	// items pushed before Close are still delivered.
	v, ok := r.Pull()
	require.Equal(t, true, ok)
	require.Equal(t, 1, v)

	_, ok = r.Pull()
	require.Equal(t, false, ok)
}
