package sdk

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Manifest is the JSON document a CDN serves in place of a script bundle.
//
//	{
//	  "name": "relayer-sdk",
//	  "version": "0.1.2",
//	  "driver": "relayer",
//	  "SepoliaConfig": { "chainId": 11155111, "aclContractAddress": "0x..", ... },
//	  "__initialized__": false,
//	  "options": { ... driver specific ... }
//	}
type Manifest struct {
	Name          string          `json:"name"`
	Version       string          `json:"version"`
	Driver        string          `json:"driver"`
	SepoliaConfig NetworkConfig   `json:"SepoliaConfig"`
	Initialized   *bool           `json:"__initialized__,omitempty"`
	Options       json.RawMessage `json:"options,omitempty"`

	// Source is the URL the manifest was fetched from. Not serialised.
	Source string `json:"-"`
}

// ParseManifest decodes data and checks its shape: driver must be a
// non-empty string, SepoliaConfig an object with valid addresses and
// __initialized__, when present, strictly a boolean.
func ParseManifest(data []byte) (*Manifest, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return nil, &ShapeError{Subject: "manifest", Problems: []Problem{{Field: "manifest", Expected: "JSON object", Got: jsonKind(data)}}}
	}

	var (
		m        Manifest
		problems []Problem
	)

	stringField := func(name string, required bool, dst *string) {
		v, ok := raw[name]
		if !ok {
			if required {
				problems = append(problems, Problem{Field: name, Expected: "string", Got: "missing"})
			}
			return
		}
		if jsonKind(v) != "string" {
			problems = append(problems, Problem{Field: name, Expected: "string", Got: jsonKind(v)})
			return
		}
		_ = json.Unmarshal(v, dst)
		if required && strings.TrimSpace(*dst) == "" {
			problems = append(problems, Problem{Field: name, Expected: "non-empty string", Got: "empty string"})
		}
	}
	stringField("name", false, &m.Name)
	stringField("version", false, &m.Version)
	stringField("driver", true, &m.Driver)

	switch v, ok := raw["SepoliaConfig"]; {
	case !ok:
		problems = append(problems, Problem{Field: "SepoliaConfig", Expected: "object", Got: "missing"})
	case jsonKind(v) != "object":
		problems = append(problems, Problem{Field: "SepoliaConfig", Expected: "object", Got: jsonKind(v)})
	default:
		if err := json.Unmarshal(v, &m.SepoliaConfig); err != nil {
			problems = append(problems, Problem{Field: "SepoliaConfig", Expected: "network config", Got: err.Error()})
		} else {
			problems = append(problems, m.SepoliaConfig.problems("SepoliaConfig")...)
		}
	}

	if v, ok := raw["__initialized__"]; ok {
		if jsonKind(v) != "boolean" {
			problems = append(problems, Problem{Field: "__initialized__", Expected: "boolean", Got: jsonKind(v)})
		} else {
			var b bool
			_ = json.Unmarshal(v, &b)
			m.Initialized = &b
		}
	}

	if v, ok := raw["options"]; ok && jsonKind(v) != "null" {
		m.Options = append(json.RawMessage(nil), v...)
	}

	if len(problems) > 0 {
		return nil, &ShapeError{Subject: "manifest", Problems: problems}
	}
	return &m, nil
}

// jsonKind names the JSON type of v the way a shape diagnostic should
// report it.
func jsonKind(v []byte) string {
	v = bytes.TrimSpace(v)
	if len(v) == 0 {
		return "empty"
	}
	switch v[0] {
	case '"':
		return "string"
	case '{':
		return "object"
	case '[':
		return "array"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	}
	if v[0] == '-' || (v[0] >= '0' && v[0] <= '9') {
		return "number"
	}
	return "invalid JSON"
}
