package sdk

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Module is a loaded SDK bundle.
type Module struct {
	Name    string
	Version string

	InitSDK        func(ctx context.Context) (bool, error)
	CreateInstance func(ctx context.Context, cfg InstanceConfig) (Instance, error)
	SepoliaConfig  *NetworkConfig

	// Initialized mirrors the bundle's __initialized__ marker. A non-nil true
	// value means the bundle arrives already initialised.
	Initialized *bool
}

// Validate checks that every entry point the creator relies on is present.
// It reports all problems at once as a *ShapeError.
func (m *Module) Validate() error {
	if m == nil {
		return &ShapeError{Subject: "module", Problems: []Problem{{Field: "module", Expected: "object", Got: "nil"}}}
	}
	var problems []Problem
	if m.InitSDK == nil {
		problems = append(problems, Problem{Field: "initSDK", Expected: "function", Got: "nil"})
	}
	if m.CreateInstance == nil {
		problems = append(problems, Problem{Field: "createInstance", Expected: "function", Got: "nil"})
	}
	if m.SepoliaConfig == nil {
		problems = append(problems, Problem{Field: "SepoliaConfig", Expected: "object", Got: "nil"})
	} else {
		problems = append(problems, m.SepoliaConfig.problems("SepoliaConfig")...)
	}
	if len(problems) > 0 {
		return &ShapeError{Subject: "module", Problems: problems}
	}
	return nil
}

func (c *NetworkConfig) problems(prefix string) []Problem {
	var out []Problem
	check := func(field string, addr common.Address) {
		if addr == (common.Address{}) {
			out = append(out, Problem{Field: prefix + "." + field, Expected: "non-zero address", Got: addr.Hex()})
		}
	}
	check("aclContractAddress", c.ACLContractAddress)
	check("kmsContractAddress", c.KMSVerifierAddress)
	check("inputVerifierContractAddress", c.InputVerifierAddress)
	return out
}

// initialised reports the module's own marker.
func (m *Module) initialised() bool {
	return m != nil && m.Initialized != nil && *m.Initialized
}
