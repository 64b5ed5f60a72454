package am

import (
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/sharanvkt/insane-dashboard-v2/errors"
)

// UnknownKeys decodes a config file strictly and returns every key that does
// not map onto Config. Viper silently ignores such keys, so a typo like
// `[[access.grant]]` would otherwise drop every grant without warning.
func UnknownKeys(path string) ([]string, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}

	var keys []string
	for _, key := range md.Undecoded() {
		keys = append(keys, key.String())
	}
	sort.Strings(keys)
	return keys, nil
}
