// Package loader reads questionnaire chart definitions from YAML or JSON
// documents.
//
// A document is a MachineConfig with two optional extra keys:
//
//	tasks:  [about, children]     # task ids in order; defaults to the top-level states
//	guards: {isBaz: "q1 = baz"}   # named rule-expression guards
//
// State types may be omitted: a state with children is compound, one
// without is atomic.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/comalice/formchart/internal/primitives"
)

// ErrEmptyDocument is returned for a document with no content.
var ErrEmptyDocument = errors.New("empty definition document")

// Definition is a decoded document.
type Definition struct {
	primitives.MachineConfig `mapstructure:",squash"`

	Tasks  []string          `mapstructure:"tasks"`
	Guards map[string]string `mapstructure:"guards"`
}

// TaskIDs returns the declared tasks, or the top-level state ids when none
// are declared.
func (d Definition) TaskIDs() []string {
	if len(d.Tasks) > 0 {
		return d.Tasks
	}
	ids := make([]string, len(d.MachineConfig.States))
	for i, s := range d.MachineConfig.States {
		ids[i] = s.ID
	}
	return ids
}

// LoadFile reads and decodes the definition at path.
func LoadFile(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("read definition: %w", err)
	}
	def, err := Parse(data)
	if err != nil {
		return Definition{}, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Load decodes a definition from r.
func Load(r io.Reader) (Definition, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Definition{}, fmt.Errorf("read definition: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML or JSON document (JSON is read as YAML), fills in
// omitted state types and validates the result.
func Parse(data []byte) (Definition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Definition{}, ErrEmptyDocument
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Definition{}, fmt.Errorf("decode definition: %w", err)
	}

	var def Definition
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &def,
	})
	if err != nil {
		return Definition{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Definition{}, fmt.Errorf("decode definition: %w", err)
	}

	inferTypes(def.MachineConfig.States)
	if err := def.MachineConfig.Validate(); err != nil {
		return Definition{}, fmt.Errorf("invalid definition: %w", err)
	}
	if err := def.checkTasks(); err != nil {
		return Definition{}, fmt.Errorf("invalid definition: %w", err)
	}
	return def, nil
}

func inferTypes(states []*primitives.StateConfig) {
	for _, s := range states {
		if s == nil {
			continue
		}
		if s.Type == "" {
			if len(s.Children) > 0 {
				s.Type = primitives.Compound
			} else {
				s.Type = primitives.Atomic
			}
		}
		inferTypes(s.Children)
	}
}

func (d Definition) checkTasks() error {
	seen := make(map[string]bool, len(d.Tasks))
	for _, id := range d.Tasks {
		if seen[id] {
			return fmt.Errorf("duplicate task %q", id)
		}
		seen[id] = true
		if _, err := d.MachineConfig.FindState(id); err != nil {
			return fmt.Errorf("task %q: %w", id, err)
		}
	}
	return nil
}
