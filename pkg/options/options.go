// Package options defines the contract shared by every configuration group
// and the flag naming helper.
package options

import (
	"strings"

	"github.com/spf13/pflag"
)

// Join builds a flag prefix from config key segments: Join("cache", "redis")
// yields "cache.redis.", so flag names match the keys in the config file.
func Join(prefixes ...string) string {
	joined := strings.Join(prefixes, ".")
	if joined != "" {
		joined += "."
	}
	return joined
}

// IOptions is implemented by every configuration group.
type IOptions interface {
	// Validate reports every invalid field, not just the first.
	Validate() []error

	// AddFlags registers the group's flags under the given prefixes.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

// Completable is a group that derives or normalizes values after loading
// and before validation.
type Completable interface {
	IOptions
	Complete() error
}
