package mapping

import (
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/malweka/GoliathData-sub001/utils"
)

// MetadataAttribute a free-form annotation. An empty Activation means the
// attribute is active; a value strconv.ParseBool rejects means inactive.
type MetadataAttribute struct {
	Name       string `yaml:"name"`
	Value      string `yaml:"value"`
	Activation string `yaml:"activation,omitempty"`
}

// LoadMetadata reads metadata entries keyed by "Entity", "Entity.Property" or "*.Property"
func LoadMetadata(r io.Reader) (map[string][]MetadataAttribute, error) {
	entries := map[string][]MetadataAttribute{}
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil && err != io.EOF {
		return nil, &MappingSerializationError{Element: "metadata", Err: err}
	}
	return entries, nil
}

// MergeMetadata distributes entries onto entities and properties. Exact keys
// are applied before wildcard keys and no value overwrites an attribute that
// is already set. Keys naming unknown entities or properties are ignored.
// Returns the number of attributes applied.
func (m *Model) MergeMetadata(entries map[string][]MetadataAttribute) int {
	var exact, wildcard []string
	for key := range entries {
		if strings.HasPrefix(key, "*") {
			wildcard = append(wildcard, key)
		} else {
			exact = append(exact, key)
		}
	}
	sort.Strings(exact)
	sort.Strings(wildcard)

	applied := 0
	for _, key := range exact {
		entity, property := m.splitMetadataKey(key)
		if entity == nil {
			continue
		}
		applied += applyMetadata(entity, property, entries[key])
	}

	for _, key := range wildcard {
		property := strings.TrimPrefix(strings.TrimPrefix(key, "*"), ".")
		for _, entity := range m.entities {
			if property != "" {
				if _, ok := entity.GetProperty(property); !ok {
					continue
				}
			}
			applied += applyMetadata(entity, property, entries[key])
		}
	}
	return applied
}

// splitMetadataKey resolves the longest entity name prefix of key; the rest is
// the property name
func (m *Model) splitMetadataKey(key string) (*Entity, string) {
	if e, ok := m.GetEntity(key); ok {
		return e, ""
	}
	idx := strings.LastIndex(key, ".")
	if idx <= 0 {
		return nil, ""
	}
	if e, ok := m.GetEntity(key[:idx]); ok {
		return e, key[idx+1:]
	}
	return nil, ""
}

func applyMetadata(e *Entity, property string, attrs []MetadataAttribute) int {
	set := e.SetMeta
	if property != "" {
		p, ok := e.GetProperty(property)
		if !ok {
			return 0
		}
		set = p.setMeta
	}

	applied := 0
	for _, attr := range attrs {
		if !utils.ParseActivation(attr.Activation) {
			continue
		}
		if set(attr.Name, attr.Value) {
			applied++
		}
	}
	return applied
}
