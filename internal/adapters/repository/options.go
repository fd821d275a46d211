package repository

// Option applies a configuration option to the ZoneStore.
type Option func(*ZoneStore)

// WithCapacity bounds the number of zones kept.
func WithCapacity(capacity int) Option {
	return func(s *ZoneStore) {
		if capacity > 0 {
			s.capacity = capacity
		}
	}
}

// WithMergeRadius sets the distance in km under which readings merge.
func WithMergeRadius(km float64) Option {
	return func(s *ZoneStore) {
		if km > 0 {
			s.mergeRadiusKm = km
		}
	}
}
