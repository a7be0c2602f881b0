package diagfmt

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeAuto shows paths relative to BaseDir when they live under it.
	PathModeAuto PathMode = iota
	// PathModeAbsolute always uses absolute paths.
	PathModeAbsolute
	PathModeRelative
	PathModeBasename
)

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color    bool
	Context  int // строк контекста вокруг первой строки региона
	PathMode PathMode
	BaseDir  string
	Width    int // максимальная ширина строки, 0 - не ограничено
	// ShowNotes adds related locations, code flow and fix counts.
	ShowNotes bool
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	PathMode       PathMode
	BaseDir        string
	Max            int // обрезка вывода, не Store
	IncludeRelated bool
	IncludeLog     bool
}
