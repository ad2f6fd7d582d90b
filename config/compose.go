package config

import "github.com/landlock-lsm/landlockconfig/lcerror"

// Compose implements §4.4: merging an ordered sequence of pre-models
// (one per TOML file in a directory) into a single pre-model, which
// the caller must still run through Validate. Variable expansion has
// already happened per document by the time a pre-model reaches here
// (spec §4.4: "cross-document variable reference is not supported"),
// so composition only concatenates rule lists and takes the minimum
// of the declared abi values.
func Compose(models []*Policy) (*Policy, error) {
	if len(models) == 0 {
		return nil, lcerror.New(lcerror.Composition, "", "no documents to compose")
	}

	merged := &Policy{}
	haveABI := false
	minABI := 0
	for _, m := range models {
		if m.ABI != 0 {
			if !haveABI || m.ABI < minABI {
				minABI = m.ABI
				haveABI = true
			}
		}
		merged.Ruleset = append(merged.Ruleset, m.Ruleset...)
		merged.PathBeneath = append(merged.PathBeneath, m.PathBeneath...)
		merged.NetPort = append(merged.NetPort, m.NetPort...)
	}
	if haveABI {
		merged.ABI = minABI
	}
	return merged, nil
}
