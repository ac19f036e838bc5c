package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ParseYAML decodes a schema written in YAML:
//
//	nodes:
//	  Person:
//	    name: STRING
//	    age: INTEGER?
//	  "":
//	    note: STRING
//	relationships:
//	  KNOWS:
//	    since: INTEGER
//
// Node keys are label combinations in LabelKey form ("Admin:Person"). Keys are
// normalized, so "Person:Admin" is accepted too.
func ParseYAML(data []byte) (*Schema, error) {
	var raw Schema
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	s := New()
	for key, props := range raw.Nodes {
		labels := SplitLabelKey(key)
		s.AddLabelCombination(labels...)
		for k, t := range props {
			s.SetNodeProperty(labels, k, t)
		}
	}
	for relType, props := range raw.Relationships {
		s.AddRelationshipType(relType)
		for k, t := range props {
			s.SetRelationshipProperty(relType, k, t)
		}
	}
	return s, nil
}

// LoadFile reads a YAML schema file.
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseYAML(data)
}

// MarshalYAMLBytes renders s as YAML in the form ParseYAML accepts.
func (s *Schema) MarshalYAMLBytes() ([]byte, error) {
	out := New()
	if s != nil {
		out.Nodes = s.Nodes
		out.Relationships = s.Relationships
	}
	return yaml.Marshal(out)
}

// WriteFile writes s to path as YAML.
func (s *Schema) WriteFile(path string) error {
	data, err := s.MarshalYAMLBytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
