package structure

import (
	"testing"
)

// Comparative benchmarks: LLRB Tree vs Skiplist
// These benchmarks simulate matching engine scenarios:
// 1. Insert: Adding new price levels
// 2. Search: Looking up a specific price
// 3. Delete: Removing price levels after full execution
// 4. DeleteMin: Iterating from best price (critical for matching)

const benchSize = 1000 // Simulating 1000 price levels

// ============= INSERT BENCHMARKS =============

func BenchmarkCompare_Insert_LLRB(b *testing.B) {
	prices := make([]int64, benchSize)
	for i := 0; i < benchSize; i++ {
		prices[i] = int64(i)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		tree := NewPriceLevelTree(int32(benchSize + 100))
		for _, p := range prices {
			tree.Insert(p)
		}
	}
}

// ============= SEARCH BENCHMARKS =============

func BenchmarkCompare_Search_LLRB(b *testing.B) {
	tree := NewPriceLevelTree(int32(benchSize + 100))
	for i := 0; i < benchSize; i++ {
		tree.Insert(int64(i))
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		tree.Contains(500)
	}
}

// ============= DELETE BENCHMARKS =============

func BenchmarkCompare_Delete_LLRB(b *testing.B) {
	prices := make([]int64, benchSize)
	for i := 0; i < benchSize; i++ {
		prices[i] = int64(i)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		tree := NewPriceLevelTree(int32(benchSize + 100))
		for _, p := range prices {
			tree.Insert(p)
		}
		b.StartTimer()

		for j := 0; j < benchSize/2; j++ {
			tree.Delete(prices[j])
		}
	}
}

// ============= DELETE MIN BENCHMARKS (Critical for matching) =============

func BenchmarkCompare_DeleteMin_LLRB(b *testing.B) {
	prices := make([]int64, benchSize)
	for i := 0; i < benchSize; i++ {
		prices[i] = int64(i)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		tree := NewPriceLevelTree(int32(benchSize + 100))
		for _, p := range prices {
			tree.Insert(p)
		}
		b.StartTimer()

		for tree.Count() > 0 {
			tree.DeleteMin()
		}
	}
}

// ============= MIXED WORKLOAD (Realistic Matching Scenario) =============
// Simulates: Insert new orders, search for price levels, delete executed orders

func BenchmarkCompare_MixedWorkload_LLRB(b *testing.B) {
	prices := make([]int64, benchSize)
	for i := 0; i < benchSize; i++ {
		prices[i] = int64(i)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		tree := NewPriceLevelTree(int32(benchSize + 100))

		for _, p := range prices {
			tree.Insert(p)
		}

		for j := 0; j < 100; j++ {
			tree.Contains(prices[j%benchSize])
			if tree.Count() > 0 {
				tree.DeleteMin()
			}
		}

		for j := benchSize / 2; j < benchSize; j++ {
			tree.Delete(prices[j])
		}
	}
}

// ============= POOLED SKIPLIST BENCHMARKS =============

func BenchmarkCompare_Insert_PooledSkiplist(b *testing.B) {
	prices := make([]int64, benchSize)
	for i := 0; i < benchSize; i++ {
		prices[i] = int64(i)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		sl := NewPooledSkiplist(int32(benchSize+100), int64(i))
		for _, p := range prices {
			sl.MustInsert(p)
		}
	}
}

func BenchmarkCompare_Search_PooledSkiplist(b *testing.B) {
	sl := NewPooledSkiplist(int32(benchSize+100), 42)
	for i := 0; i < benchSize; i++ {
		sl.Insert(int64(i))
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		sl.Contains(500)
	}
}

func BenchmarkCompare_Delete_PooledSkiplist(b *testing.B) {
	prices := make([]int64, benchSize)
	for i := 0; i < benchSize; i++ {
		prices[i] = int64(i)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		sl := NewPooledSkiplist(int32(benchSize+100), int64(i))
		for _, p := range prices {
			sl.MustInsert(p)
		}
		b.StartTimer()

		for j := 0; j < benchSize/2; j++ {
			sl.Delete(prices[j])
		}
	}
}

func BenchmarkCompare_DeleteMin_PooledSkiplist(b *testing.B) {
	prices := make([]int64, benchSize)
	for i := 0; i < benchSize; i++ {
		prices[i] = int64(i)
	}

	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		sl := NewPooledSkiplist(int32(benchSize+100), int64(i))
		for _, p := range prices {
			sl.MustInsert(p)
		}
		b.StartTimer()

		for sl.Count() > 0 {
			sl.DeleteMin()
		}
	}
}

func BenchmarkCompare_MixedWorkload_PooledSkiplist(b *testing.B) {
	prices := make([]int64, benchSize)
	for i := 0; i < benchSize; i++ {
		prices[i] = int64(i)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		sl := NewPooledSkiplist(int32(benchSize+100), int64(i))

		for _, p := range prices {
			sl.MustInsert(p)
		}

		for j := 0; j < 100; j++ {
			sl.Contains(prices[j%benchSize])
			if sl.Count() > 0 {
				sl.DeleteMin()
			}
		}

		for j := benchSize / 2; j < benchSize; j++ {
			sl.Delete(prices[j])
		}
	}
}
