package feature

// Filter returns the sub-collection whose value under key equals one of
// the allowed values. Equality is exact and type-sensitive: the number 5
// and the string "5" never match. An empty allowed set disables filtering
// and returns the input collection itself. An unknown key yields an empty
// result, not an error.
func Filter(c *Collection, key string, allowed []interface{}) *Collection {
	if len(allowed) == 0 {
		return c
	}

	out := &Collection{Keys: c.Keys}
	for _, f := range c.Features {
		v, ok := f.Properties[key]
		if !ok {
			continue
		}
		for _, want := range allowed {
			if scalarEqual(v, want) {
				out.Features = append(out.Features, f)
				break
			}
		}
	}
	return out
}

// scalarEqual compares property values. Only scalar values can match;
// composite values such as the merge center never do.
func scalarEqual(a, b interface{}) bool {
	switch a.(type) {
	case nil, string, float64, bool:
		return a == b
	}
	return false
}
