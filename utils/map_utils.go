package utils

func CloneMap[K comparable, V any](m map[K]V) map[K]V {
	cloneM := make(map[K]V, len(m))
	for k, v := range m {
		cloneM[k] = v
	}
	return cloneM
}

// MergeMaps copies every map into a new one in argument order,
// so a key present in a later map overrides the earlier value.
func MergeMaps[K comparable, V any](ms ...map[K]V) map[K]V {
	size := 0
	for _, m := range ms {
		size += len(m)
	}
	merged := make(map[K]V, size)
	for _, m := range ms {
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged
}
