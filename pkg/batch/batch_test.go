package batch

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoremi/kotor-go/pkg/codec"
)

func TestRunKeepsGoing(t *testing.T) {
	names := []string{"a.ncs", "bad.ncs", "c.ncs", "d.ncs"}
	rp := Run(context.Background(), 2, names, func(_ context.Context, name string) (int, error) {
		if strings.HasPrefix(name, "bad") {
			return 0, codec.Formatf("ncs: bad signature")
		}
		return len(name), nil
	})
	require.Len(t, rp.Results, 4)
	for i, r := range rp.Results {
		assert.Equal(t, names[i], r.Name)
	}
	assert.Equal(t, 3, rp.Succeeded())
	failed := rp.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, codec.KindFormat, failed[0].Kind())
	assert.Equal(t, 5, rp.Results[0].Value)
	assert.Contains(t, rp.Summary(), "3 ok, 1 failed")
}

func TestRunBoundsWorkers(t *testing.T) {
	var inFlight, peak int32
	names := make([]string, 20)
	for i := range names {
		names[i] = "f"
	}
	Run(context.Background(), 3, names, func(context.Context, string) (struct{}, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		atomic.AddInt32(&inFlight, -1)
		return struct{}{}, nil
	})
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls int32
	rp := Run(ctx, 1, []string{"a", "b"}, func(context.Context, string) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 1, nil
	})
	assert.Zero(t, atomic.LoadInt32(&calls))
	for _, r := range rp.Results {
		assert.True(t, errors.Is(r.Err, context.Canceled))
	}
}
