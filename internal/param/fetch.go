package param

import "context"

// Fetcher resolves a named value. A missing value is returned as "" with a
// nil error; only lookup failures are errors.
type Fetcher interface {
	Fetch(context.Context, string) (string, error)
}

// LookupFunc has the shape of os.LookupEnv.
type LookupFunc func(string) (string, bool)

type EnvFetcher struct {
	Lookup LookupFunc
}

func (f *EnvFetcher) Fetch(_ context.Context, name string) (string, error) {
	v, _ := f.Lookup(name)
	return v, nil
}

// MapLookup adapts a fixed set of values, mostly for tests.
func MapLookup(values map[string]string) LookupFunc {
	return func(name string) (string, bool) {
		v, ok := values[name]
		return v, ok
	}
}
