package cmd

import (
	"fmt"

	"github.com/aqlanhadi/rentrecon/reconcile"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// replaceLists makes a configured list or map replace the default instead of
// being merged into it element by element.
func replaceLists(c *mapstructure.DecoderConfig) {
	c.ZeroFields = true
}

// loadOptions overlays the ledger, report, matcher and health config sections
// onto the package defaults.
func loadOptions(v *viper.Viper) (reconcile.Options, error) {
	opts := reconcile.DefaultOptions()

	sections := []struct {
		key    string
		target interface{}
	}{
		{"ledger", &opts.Ledger},
		{"report", &opts.Report},
		{"matcher", &opts.Matcher},
		{"health", &opts.Health},
	}
	for _, s := range sections {
		if !v.IsSet(s.key) {
			continue
		}
		if err := v.UnmarshalKey(s.key, s.target, replaceLists); err != nil {
			return opts, fmt.Errorf("invalid %s config: %w", s.key, err)
		}
	}
	return opts, nil
}
