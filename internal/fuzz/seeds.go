package fuzztests

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

const (
	maxSeedBytes = 64 << 10 // ограничение для тестового корпуса
	maxFuzzInput = 1 << 16
)

var inlineSeeds = []string{
	``,
	`{}`,
	`[]`,
	`{"version":"2.1.0","runs":[]}`,
	`{"version":"2.1.0","runs":[{"tool":{"driver":{"name":"lint"}},"results":[{"ruleId":"R1","message":{"text":"boom"},"locations":[{"physicalLocation":{"artifactLocation":{"uri":"main.go"},"region":{"startLine":2,"startColumn":1,"endColumn":4}}}]}]}]}`,
	"\uFEFF{\"version\":\"2.1.0\",\"runs\":[{\"results\":[{\"message\":{\"text\":\"\U0001F600\"}}]}]}",
	`{"version":"2.0.0","$schema":"http://json.schemastore.org/sarif-2.0.0-csd.2.beta.2018-10-10","runs":[]}`,
	`{"runs":[{"results":[{"locations":[{"physicalLocation":{"region":{"charOffset":3,"charLength":2,"snippet":{"text":"ab"}}}}]}]}]}`,
	`{"a~b/c":{"x":[1,2,{"y":null}]}}`,
	`{"runs":[{"results":[{"analysisTarget":{"uri":"x"}}]}]}`,
}

func addCorpusSeeds(f *testing.F) {
	for _, s := range inlineSeeds {
		f.Add([]byte(s))
	}
	addTestdataSeeds(f)
}

// addTestdataSeeds подмешивает все *.sarif файлы из testdata пакетов.
func addTestdataSeeds(f *testing.F) {
	root := filepath.Join("..")
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() {
			return nil
		}
		if filepath.Ext(path) != ".sarif" {
			return nil
		}
		// #nosec G304 -- path comes from repository testdata walk
		src, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		f.Add(clampSeed(src))
		return nil
	})
}

func clampSeed(src []byte) []byte {
	if len(src) <= maxSeedBytes {
		return append([]byte(nil), src...)
	}
	return append([]byte(nil), src[:maxSeedBytes]...)
}

func clampInput(input []byte) []byte {
	if len(input) > maxFuzzInput {
		return append([]byte(nil), input[:maxFuzzInput]...)
	}
	return append([]byte(nil), input...)
}

// truncateForLog truncates input for logging purposes
func truncateForLog(input []byte, maxLen int) []byte {
	if len(input) <= maxLen {
		return input
	}
	return append(append([]byte(nil), input[:maxLen]...), "..."...)
}
