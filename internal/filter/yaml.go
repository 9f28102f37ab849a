package filter

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Parse decodes a YAML document of the form
//
//	image:
//	  s: {convert: image/png, fit: [5, 5]}
//	  copy: {clone: copy}
//
// keeping the order of versions and instructions as written.
func Parse(data []byte) (Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse filters: %w", err)
	}
	cfg := Config{}
	if len(doc.Content) == 0 {
		return cfg, nil
	}
	if err := cfg.UnmarshalYAML(doc.Content[0]); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads and parses a filter file.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read filters %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// UnmarshalYAML implements yaml.Unmarshaler. Plain map decoding would lose
// the order versions are generated in, so the node tree is walked directly.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	if *c == nil {
		*c = Config{}
	}
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: filters must be a mapping of category to versions", node.Line)
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		category, versions := node.Content[i].Value, node.Content[i+1]
		if versions.Kind == yaml.ScalarNode && versions.Tag == "!!null" {
			continue
		}
		if versions.Kind != yaml.MappingNode {
			return fmt.Errorf("line %d: category %s must map version ids to instructions", versions.Line, category)
		}
		for j := 0; j+1 < len(versions.Content); j += 2 {
			id, body := versions.Content[j].Value, versions.Content[j+1]
			set, err := decodeInstructions(body)
			if err != nil {
				return fmt.Errorf("line %d: version %s/%s: %w", body.Line, category, id, err)
			}
			if err := c.Add(category, id, set); err != nil {
				return fmt.Errorf("line %d: %w", versions.Content[j].Line, err)
			}
		}
	}
	return nil
}

func decodeInstructions(node *yaml.Node) (InstructionSet, error) {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return InstructionSet{}, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("instructions must be a mapping of operation to argument")
	}
	set := make(InstructionSet, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var arg any
		if err := node.Content[i+1].Decode(&arg); err != nil {
			return nil, fmt.Errorf("operation %s: %w", node.Content[i].Value, err)
		}
		set = append(set, Instruction{Name: node.Content[i].Value, Arg: arg})
	}
	return set, nil
}

// MarshalYAML implements yaml.Marshaler, emitting categories sorted by name
// and versions in configured order.
func (c Config) MarshalYAML() (any, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, category := range c.Categories() {
		versions := &yaml.Node{Kind: yaml.MappingNode}
		for _, v := range c[category] {
			body := &yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle}
			for _, in := range v.Instructions {
				var arg yaml.Node
				if err := arg.Encode(in.Arg); err != nil {
					return nil, fmt.Errorf("version %s/%s: operation %s: %w", category, v.ID, in.Name, err)
				}
				body.Content = append(body.Content, scalar(in.Name), &arg)
			}
			versions.Content = append(versions.Content, scalar(v.ID), body)
		}
		root.Content = append(root.Content, scalar(category), versions)
	}
	return root, nil
}

func scalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}
