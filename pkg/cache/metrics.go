package cache

// Metrics provides observability for descriptor cache traffic. Pass nil
// to disable collection with zero overhead.
type Metrics interface {
	// ObserveHit records a cache hit for a descriptor kind ("file" or
	// "chunk").
	ObserveHit(kind string)

	// ObserveMiss records a cache miss.
	ObserveMiss(kind string)

	// ObserveError records a cache operation failure ("get", "set",
	// "delete").
	ObserveError(op string)
}
