package diag

import (
	"sarifnav/internal/nav"
	"sarifnav/internal/sarif"
)

// Key addresses a result in a log.
type Key struct {
	Document    string
	RunIndex    int
	ResultIndex int
}

type Diagnostic struct {
	Key
	RunID               int
	Severity            Severity
	RuleID              string
	RuleName            string
	Tool                string
	Kind                string
	BaselineState       string
	Message             sarif.RichText
	Location            nav.Location
	LocationInSarifFile nav.Location
	Locations           []nav.Location
	RelatedLocations    []nav.Location
	CodeFlowSteps       int
	Fixes               int
	// Node is the structural path of the result in the log.
	Node string
}

// InLog reports whether the assigned location points into the log itself.
func (d *Diagnostic) InLog() bool {
	return d.Location.URI == d.Document
}
