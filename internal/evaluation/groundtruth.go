package evaluation

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/tradedocs-extractor/internal/common"
)

// FieldResolver maps a field name or display label to the canonical field name.
// *llm.Schema satisfies it.
type FieldResolver interface {
	Resolve(key string) (string, bool)
}

// GroundTruthEntry is the labelled expectation for one document batch.
type GroundTruthEntry struct {
	Filename  string         `json:"filename,omitempty" yaml:"filename,omitempty"`
	Filenames []string       `json:"filenames,omitempty" yaml:"filenames,omitempty"`
	Fields    map[string]any `json:"fields" yaml:"fields"`
}

// Files lists the batch's documents; Filenames wins over Filename.
func (e GroundTruthEntry) Files() []string {
	if len(e.Filenames) > 0 {
		return e.Filenames
	}
	if e.Filename != "" {
		return []string{e.Filename}
	}
	return nil
}

// DisplayName is how the batch is named in reports.
func (e GroundTruthEntry) DisplayName() string {
	return strings.Join(e.Files(), ", ")
}

// GroundTruth maps batch id to its entry.
type GroundTruth map[string]GroundTruthEntry

// IDs returns batch ids in sorted order.
func (g GroundTruth) IDs() []string {
	ids := make([]string, 0, len(g))
	for id := range g {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LoadGroundTruth reads a JSON or YAML (.yaml/.yml) ground truth file and
// rewrites every field key to its canonical name.
func LoadGroundTruth(path string, fields FieldResolver) (GroundTruth, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, common.GroundTruthMissingError("ground truth file "+path, err)
	}
	return ParseGroundTruth(b, filepath.Ext(path), fields)
}

// ParseGroundTruth decodes ground truth bytes; ext selects YAML when ".yaml" or ".yml".
func ParseGroundTruth(data []byte, ext string, fields FieldResolver) (GroundTruth, error) {
	var raw GroundTruth
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, common.NewAppError("GROUND_TRUTH_INVALID", "decode yaml ground truth", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, common.NewAppError("GROUND_TRUTH_INVALID", "decode json ground truth", err)
		}
		if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
			return nil, common.NewAppError("GROUND_TRUTH_INVALID", "trailing data after json ground truth", common.ErrInvalidInput)
		}
	}

	out := make(GroundTruth, len(raw))
	for id, entry := range raw {
		if len(entry.Files()) == 0 {
			return nil, common.NewAppError("GROUND_TRUTH_INVALID",
				fmt.Sprintf("entry %q names no filename", id), common.ErrInvalidInput)
		}
		resolved := make(map[string]any, len(entry.Fields))
		for key, v := range entry.Fields {
			name, ok := fields.Resolve(key)
			if !ok {
				return nil, common.NewAppError("GROUND_TRUTH_INVALID",
					fmt.Sprintf("entry %q: unknown field %q", id, key), common.ErrInvalidInput)
			}
			resolved[name] = v
		}
		entry.Fields = resolved
		out[id] = entry
	}
	return out, nil
}
