package bucket

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// BenchmarkAllowN measures single-threaded throughput
func BenchmarkAllowN(b *testing.B) {
	store := NewInMemoryBucketStore()
	ctx := context.Background()

	for b.Loop() {
		_, _ = store.AllowN(ctx, "bench-key", 1, 1000, time.Minute)
	}
}

// BenchmarkAllowN_Parallel measures concurrent throughput on one key
func BenchmarkAllowN_Parallel(b *testing.B) {
	store := NewInMemoryBucketStore()
	ctx := context.Background()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = store.AllowN(ctx, "bench-key", 1, 1000, time.Minute)
		}
	})
}

// BenchmarkAllowN_HighCardinality measures performance with many API keys
func BenchmarkAllowN_HighCardinality(b *testing.B) {
	store := NewInMemoryBucketStore()
	ctx := context.Background()

	for i := 0; b.Loop(); i++ {
		key := fmt.Sprintf("rl:key:%08x", i%65536)
		_, _ = store.AllowN(ctx, key, 1, 100, time.Minute)
	}
}
