package sarif

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Version210 is the only SARIF version ingested without an upgrade.
const Version210 = "2.1.0"

// lastRTM is the final 2.1.0 release-to-manufacturing draft; earlier drafts
// share the version string but not the schema.
const lastRTM = 5

var schemaVersionRe = regexp.MustCompile(`sarif-(\d+\.\d+\.\d+)((?:-[a-z]+\.[0-9]+)*)`)

// SchemaVersion returns the declared version of the log, qualified with a
// draft suffix (e.g. "2.1.0-rtm.4") when the $schema names a draft.
// The bare "version" property wins over the $schema version; the draft suffix
// is only taken from $schema when both agree.
func (l *Log) SchemaVersion() string {
	if l == nil {
		return ""
	}
	base, draft := parseSchemaURI(l.Schema)
	version := strings.TrimSpace(l.Version)
	if version == "" {
		version = base
	}
	if version == "" {
		return ""
	}
	if draft != "" && base == version {
		return version + draft
	}
	return version
}

// IsSupported reports whether logs of version v can be ingested as-is.
func IsSupported(v string) bool {
	base, draft, _ := strings.Cut(v, "-")
	if base != Version210 {
		return false
	}
	if draft == "" {
		return true
	}
	// "rtm.N"
	kind, num, ok := strings.Cut(draft, ".")
	if !ok || kind != "rtm" {
		return false
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return false
	}
	return n >= lastRTM
}

func parseSchemaURI(uri string) (base, draft string) {
	if uri == "" {
		return "", ""
	}
	m := schemaVersionRe.FindStringSubmatch(strings.ToLower(uri))
	if m == nil {
		return "", ""
	}
	return m[1], m[2]
}

// Decode unmarshals a SARIF document.
func Decode(data []byte) (*Log, error) {
	var log Log
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("decode sarif: %w", err)
	}
	return &log, nil
}
