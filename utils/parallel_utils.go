package utils

import (
	"runtime"
	"sync"
)

type ExecutionPolicy uint8

const (
	Serial ExecutionPolicy = iota
	Parallel
)

func (ep ExecutionPolicy) String() string {
	switch ep {
	case Serial:
		return "serial"
	default:
		return "parallel"
	}
}

var maxNumberOfThreads = runtime.NumCPU()

// SetMaxNumberOfThreads bounds the fan-out used by ParallelFor. Values below
// one are clamped to one, which makes every parallel loop run serially.
func SetMaxNumberOfThreads(n int) {
	if n < 1 {
		n = 1
	}
	maxNumberOfThreads = n
}

func MaxNumberOfThreads() int { return maxNumberOfThreads }

type PartitionMap struct {
	MaxIndex       int // MaxIndex is partitioned into ParallelDegree partitions
	ParallelDegree int
	Partitions     [][2]int // Beginning and end index of partitions
}

func NewPartitionMap(ParallelDegree, maxIndex int) (pm *PartitionMap) {
	if ParallelDegree < 1 {
		ParallelDegree = 1
	}
	pm = &PartitionMap{
		MaxIndex:       maxIndex,
		ParallelDegree: ParallelDegree,
		Partitions:     make([][2]int, ParallelDegree),
	}
	for n := 0; n < ParallelDegree; n++ {
		pm.Partitions[n] = pm.Split1D(n)
	}
	return
}

func (pm *PartitionMap) GetBucket(k int) (bucketNum, min, max int) {
	_, bucketNum, min, max = pm.getBucketWithTryCount(k)
	return
}

func (pm *PartitionMap) getBucketWithTryCount(k int) (tryCount, bucketNum, min, max int) {
	if pm.MaxIndex == 0 {
		return 0, -1, 0, 0
	}
	// Initial guess
	bucketNum = int(float64(pm.ParallelDegree*k) / float64(pm.MaxIndex))
	if bucketNum >= pm.ParallelDegree {
		bucketNum = pm.ParallelDegree - 1
	}
	for !(pm.Partitions[bucketNum][0] <= k && pm.Partitions[bucketNum][1] > k) {
		if pm.Partitions[bucketNum][0] > k {
			bucketNum--
		} else {
			bucketNum++
		}
		if bucketNum == -1 || bucketNum == pm.ParallelDegree {
			return 0, -1, 0, 0
		}
		tryCount++
	}
	min, max = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) GetBucketRange(bucketNum int) (kMin, kMax int) {
	kMin, kMax = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) GetBucketDimension(bn int) (kMax int) {
	if bn == -1 {
		kMax = pm.MaxIndex
		return
	}
	var (
		k1, k2 = pm.GetBucketRange(bn)
	)
	kMax = k2 - k1
	return
}

func (pm *PartitionMap) Split1D(threadNum int) (bucket [2]int) {
	// Splits one dimension into pm.ParallelDegree pieces, with a maximum imbalance of one item
	var (
		Npart            = pm.MaxIndex / (pm.ParallelDegree)
		startAdd, endAdd int
		remainder        int
	)
	remainder = pm.MaxIndex % pm.ParallelDegree
	if remainder != 0 { // spread the remainder over the first chunks evenly
		if threadNum+1 > remainder {
			startAdd = remainder
			endAdd = 0
		} else {
			startAdd = threadNum
			endAdd = 1
		}
	}
	bucket[0] = threadNum*Npart + startAdd
	bucket[1] = bucket[0] + Npart + endAdd
	return
}

// ParallelRangeFor splits [begin, end) into at most MaxNumberOfThreads()
// contiguous ranges and runs fn once per range, blocking until all are done.
func ParallelRangeFor(begin, end int, fn func(b, e int)) {
	if end <= begin {
		return
	}
	var (
		n  = end - begin
		np = maxNumberOfThreads
	)
	if np > n {
		np = n
	}
	if np <= 1 {
		fn(begin, end)
		return
	}
	var (
		pm = NewPartitionMap(np, n)
		wg = sync.WaitGroup{}
	)
	for bn := 0; bn < pm.ParallelDegree; bn++ {
		kMin, kMax := pm.GetBucketRange(bn)
		if kMax == kMin {
			continue
		}
		wg.Add(1)
		go func(b, e int) {
			defer wg.Done()
			fn(b, e)
		}(begin+kMin, begin+kMax)
	}
	wg.Wait()
}

// ParallelFor runs fn(i) for every i in [begin, end). Invocation order is
// unspecified; fn must not write state owned by another index.
func ParallelFor(begin, end int, fn func(i int)) {
	ParallelRangeFor(begin, end, func(b, e int) {
		for i := b; i < e; i++ {
			fn(i)
		}
	})
}

// ForPolicy dispatches to a plain loop or ParallelFor.
func ForPolicy(policy ExecutionPolicy, begin, end int, fn func(i int)) {
	if policy == Serial {
		for i := begin; i < end; i++ {
			fn(i)
		}
		return
	}
	ParallelFor(begin, end, fn)
}
