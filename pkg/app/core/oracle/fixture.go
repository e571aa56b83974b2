package oracle

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/uhyunpark/bilateral/pkg/app/core/registry"
)

// Fixture seeds the in-memory oracles, typically for a devnet.
//
//	{
//	  "attributes": {"addr1": ["kyc.pb"]},
//	  "registry":   [{"address": "m1", "denom": "d", "status": "active", "coins": [...], "permissions": [...]}]
//	}
type Fixture struct {
	Attributes map[string][]string `json:"attributes"`
	Registry   []registry.Entry    `json:"registry"`
}

// LoadFixture reads a fixture file and builds both oracles from it.
func LoadFixture(path string) (*MemoryRegistry, *MemoryAttributes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read oracle fixture: %w", err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("failed to parse oracle fixture: %w", err)
	}
	return f.Build()
}

// Build registers every fixture entry into fresh oracles.
func (f Fixture) Build() (*MemoryRegistry, *MemoryAttributes, error) {
	reg := NewMemoryRegistry()
	for _, e := range f.Registry {
		if err := reg.RegisterEntry(e); err != nil {
			return nil, nil, err
		}
	}
	attrs := NewMemoryAttributes()
	for addr, names := range f.Attributes {
		attrs.SetAttributes(addr, names...)
	}
	return reg, attrs, nil
}
