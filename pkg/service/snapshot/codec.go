package snapshot

import (
	"bytes"
	"encoding/json"
	"path"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/adsafe/pkg/domain/model"
	"gopkg.in/yaml.v3"
)

// Format is the serialization of a snapshot artifact
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from the file extension; anything other
// than .yaml or .yml is JSON.
func FormatFromPath(p string) Format {
	switch strings.ToLower(path.Ext(p)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Unmarshal decodes a snapshot. The artifact must be a list of rule records;
// anything else is rejected as a whole.
func Unmarshal(data []byte, format Format) ([]model.DecodedRule, error) {
	var rules []model.DecodedRule

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &rules); err != nil {
			return nil, goerr.Wrap(err, "failed to decode YAML snapshot")
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&rules); err != nil {
			return nil, goerr.Wrap(err, "failed to decode JSON snapshot")
		}
	}

	if rules == nil {
		return nil, goerr.New("snapshot is not a list of rules", goerr.V("format", format))
	}

	for i := range rules {
		if rules[i].Keywords == nil {
			rules[i].Keywords = []string{}
		}
		if rules[i].Regex == nil {
			rules[i].Regex = []string{}
		}
	}
	return rules, nil
}

// Marshal encodes rules in the given format
func Marshal(rules []model.DecodedRule, format Format) ([]byte, error) {
	if rules == nil {
		rules = []model.DecodedRule{}
	}

	switch format {
	case FormatYAML:
		data, err := yaml.Marshal(rules)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to encode YAML snapshot")
		}
		return data, nil
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rules); err != nil {
			return nil, goerr.Wrap(err, "failed to encode JSON snapshot")
		}
		return buf.Bytes(), nil
	}
}
