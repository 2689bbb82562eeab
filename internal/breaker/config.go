package breaker

import (
	"os"

	"gopkg.in/yaml.v3"
)

// yamlFile is the on-disk shape of an optional per-breaker config
// file (expansion, see SPEC_FULL.md §3): a map of breaker name to
// threshold overrides. Any field left at zero keeps the documented
// default for that knob.
type yamlFile struct {
	Breakers map[string]yamlBreaker `yaml:"breakers"`
}

type yamlBreaker struct {
	FailureThreshold   int      `yaml:"failure_threshold"`
	SuccessThreshold   int      `yaml:"success_threshold"`
	TimeoutSeconds     float64  `yaml:"timeout_seconds"`
	ExcludedErrorKinds []string `yaml:"excluded_error_kinds"`
}

// LoadOverridesYAML reads a breaker-overrides file. A missing file is not
// an error: the caller gets an empty override map and every breaker falls
// back to DefaultConfig.
func LoadOverridesYAML(path string) (map[string]Config, error) {
	overrides := map[string]Config{}
	if path == "" {
		return overrides, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return overrides, nil
		}
		return nil, err
	}
	var f yamlFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	for name, b := range f.Breakers {
		cfg := DefaultConfig(name)
		if b.FailureThreshold > 0 {
			cfg.FailureThreshold = b.FailureThreshold
		}
		if b.SuccessThreshold > 0 {
			cfg.SuccessThreshold = b.SuccessThreshold
		}
		if b.TimeoutSeconds > 0 {
			cfg.TimeoutSeconds = b.TimeoutSeconds
		}
		if len(b.ExcludedErrorKinds) > 0 {
			cfg.ExcludedErrorKinds = make(map[string]struct{}, len(b.ExcludedErrorKinds))
			for _, k := range b.ExcludedErrorKinds {
				cfg.ExcludedErrorKinds[k] = struct{}{}
			}
		}
		overrides[name] = cfg
	}
	return overrides, nil
}
