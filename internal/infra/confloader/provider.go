package confloader

import (
	"errors"

	"github.com/knadh/koanf/maps"
)

// overrideProvider is a koanf.Provider over dotted keys. Read expands them
// so "server.http.addr" merges into the file's server section instead of
// replacing it.
type overrideProvider map[string]any

func (p overrideProvider) Read() (map[string]any, error) {
	return maps.Unflatten(p, "."), nil
}

func (overrideProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("confloader: overrides are not a byte source")
}
