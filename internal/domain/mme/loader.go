package mme

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// TableFile is the on-disk layout of an extension table:
//
//	opioids:
//	  - id: levorphanol
//	    name: Levorphanol
//	    factor: 11
//	    routes: [oral]
type TableFile struct {
	Opioids []Entry `yaml:"opioids"`
}

// ParseTable decodes an extension table and merges it onto base
func ParseTable(data []byte, base *Table) (*Table, error) {
	var tf TableFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&tf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	return base.Extend(tf.Opioids)
}

// LoadTableFile reads an extension table from path and merges it onto base
func LoadTableFile(path string, base *Table) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read table file %q: %w", path, err)
	}
	t, err := ParseTable(data, base)
	if err != nil {
		return nil, fmt.Errorf("failed to parse table file %q: %w", path, err)
	}
	return t, nil
}
