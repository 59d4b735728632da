package cascade

// Source provides the fetch function of a level by key.
type Source interface {
	Fetcher(level string) (FetchFunc, bool)
}

// SourceMap is a static Source.
type SourceMap map[string]FetchFunc

func (m SourceMap) Fetcher(level string) (FetchFunc, bool) {
	fetch, ok := m[level]
	return fetch, ok && fetch != nil
}

// Chain builds a Graph where each key depends on the one before it, binding every level to `src`.
func Chain(src Source, keys ...string) (*Graph, error) {
	levels := make([]Level, 0, len(keys))
	for i, key := range keys {
		fetch, ok := src.Fetcher(key)
		if !ok {
			return nil, &ConfigurationError{Level: key, Reason: "no fetch function in source"}
		}
		lvl := Level{Key: key, Fetch: fetch}
		if i > 0 {
			lvl.Parent = keys[i-1]
		}
		levels = append(levels, lvl)
	}
	return NewGraph(levels...)
}
