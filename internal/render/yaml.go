package render

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/dshills/econfctl/internal/keyfile"
)

// YAML writes view as a YAML mapping. Origins become line comments.
func YAML(w io.Writer, view *keyfile.File, origin Origin) error {
	if err := checkConflicts(view); err != nil {
		return err
	}

	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, group := range view.Groups() {
		target := root
		if group != keyfile.DefaultGroup {
			target = &yaml.Node{Kind: yaml.MappingNode}
			root.Content = append(root.Content, stringNode(group), target)
		}
		for _, key := range view.Keys(group) {
			value, _ := view.Get(group, key)
			v := stringNode(value)
			if origin != nil {
				v.LineComment = origin(group, key)
			}
			target.Content = append(target.Content, stringNode(key), v)
		}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if len(root.Content) == 0 {
		root.Style = yaml.FlowStyle
	}
	if err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}); err != nil {
		return err
	}
	return enc.Close()
}

func stringNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}
