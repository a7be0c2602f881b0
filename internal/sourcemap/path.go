package sourcemap

import (
	"strconv"
	"strings"
)

var keyEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// emptyKey is the step of the key "". Escaping turns every other '~' into
// "~0", so a lone '~' is unambiguous and never collides with the root path.
const emptyKey = "~"

// EscapeKey escapes an object key for use as a path step.
func EscapeKey(key string) string {
	if key == "" {
		return emptyKey
	}
	if !strings.ContainsAny(key, "~/") {
		return key
	}
	return keyEscaper.Replace(key)
}

// Join appends steps to parent. Steps must already be escaped.
func Join(parent string, steps ...string) string {
	var b strings.Builder
	b.WriteString(parent)
	for _, s := range steps {
		if b.Len() > 0 {
			b.WriteByte('/')
		}
		b.WriteString(s)
	}
	return b.String()
}

func index(parent string, i int) string {
	return Join(parent, strconv.Itoa(i))
}

// ResultNodePath is the path of result j of run i.
func ResultNodePath(runIndex, resultIndex int) string {
	return "runs/" + strconv.Itoa(runIndex) + "/results/" + strconv.Itoa(resultIndex)
}

// RunPath is the path of run i.
func RunPath(runIndex int) string {
	return index("runs", runIndex)
}
