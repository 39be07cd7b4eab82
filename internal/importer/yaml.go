package importer

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// decodeYAML reads a seed document. Unknown keys are rejected so that typos surface.
func decodeYAML(content []byte) (*seedFile, error) {
	var seed seedFile
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		if errors.Is(err, io.EOF) {
			return &seedFile{}, nil
		}
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	return &seed, nil
}
