package cache

// bucketIndex maps key into [0, buckets) with an order-dependent rolling hash
// (h = h*31 + b). The arithmetic is unsigned, so the reduction can never
// produce a negative index regardless of how the hash overflows.
func bucketIndex(key string, buckets int) int {
	var h uint32
	for i := 0; i < len(key); i++ {
		h = (h << 5) - h + uint32(key[i])
	}
	return int(uint64(h) % uint64(buckets))
}
