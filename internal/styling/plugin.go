package styling

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// PluginRef denotes an extension module the build tool should load.
// In configuration files a reference may be written either as a bare string
// (the plugin name) or as a mapping with a name and an options table.
type PluginRef struct {
	Name    string         `yaml:"name" json:"name"`
	Options map[string]any `yaml:"options,omitempty" json:"options,omitempty"`
}

// UnmarshalYAML accepts both the scalar and mapping forms of a plugin
// reference.
func (p *PluginRef) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		return value.Decode(&p.Name)
	case yaml.MappingNode:
		type plain PluginRef
		var ref plain
		if err := value.Decode(&ref); err != nil {
			return err
		}
		*p = PluginRef(ref)
		return nil
	default:
		return fmt.Errorf("styling: plugin reference must be a string or mapping (line %d)", value.Line)
	}
}

// UnmarshalJSON accepts both the string and object forms of a plugin
// reference.
func (p *PluginRef) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &p.Name)
	}

	type plain PluginRef
	var ref plain
	if err := json.Unmarshal(data, &ref); err != nil {
		return err
	}
	*p = PluginRef(ref)
	return nil
}
