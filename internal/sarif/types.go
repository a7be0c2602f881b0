package sarif

// Log is the root object of a SARIF document. Only the subset needed for
// location mapping and result metadata is modelled.
type Log struct {
	Version string `json:"version,omitempty"`
	Schema  string `json:"$schema,omitempty"`
	Runs    []Run  `json:"runs"`
}

// Run is one execution of an analysis tool.
type Run struct {
	Tool                Tool                        `json:"tool"`
	Results             []Result                    `json:"results,omitempty"`
	Artifacts           []Artifact                  `json:"artifacts,omitempty"`
	OriginalURIBaseIDs  map[string]ArtifactLocation `json:"originalUriBaseIds,omitempty"`
	ThreadFlowLocations []ThreadFlowLocation        `json:"threadFlowLocations,omitempty"`
	LogicalLocations    []LogicalLocation           `json:"logicalLocations,omitempty"`
}

type Tool struct {
	Driver ToolComponent `json:"driver"`
}

type ToolComponent struct {
	Name            string                `json:"name"`
	Version         string                `json:"version,omitempty"`
	SemanticVersion string                `json:"semanticVersion,omitempty"`
	InformationURI  string                `json:"informationUri,omitempty"`
	Rules           []ReportingDescriptor `json:"rules,omitempty"`
}

// ReportingDescriptor describes a rule.
type ReportingDescriptor struct {
	ID                   string                  `json:"id"`
	Name                 string                  `json:"name,omitempty"`
	ShortDescription     *Message                `json:"shortDescription,omitempty"`
	FullDescription      *Message                `json:"fullDescription,omitempty"`
	HelpURI              string                  `json:"helpUri,omitempty"`
	DefaultConfiguration *ReportingConfiguration `json:"defaultConfiguration,omitempty"`
}

type ReportingConfiguration struct {
	Level string `json:"level,omitempty"`
}

// Result is one finding reported by a run.
type Result struct {
	RuleID           string            `json:"ruleId,omitempty"`
	RuleIndex        *int              `json:"ruleIndex,omitempty"`
	Level            string            `json:"level,omitempty"`
	Kind             string            `json:"kind,omitempty"`
	Message          Message           `json:"message"`
	Locations        []Location        `json:"locations,omitempty"`
	RelatedLocations []Location        `json:"relatedLocations,omitempty"`
	AnalysisTarget   *ArtifactLocation `json:"analysisTarget,omitempty"`
	CodeFlows        []CodeFlow        `json:"codeFlows,omitempty"`
	Fixes            []Fix             `json:"fixes,omitempty"`
	BaselineState    string            `json:"baselineState,omitempty"`
}

// Location is a physical and/or logical place a result refers to.
type Location struct {
	ID               *int              `json:"id,omitempty"`
	PhysicalLocation *PhysicalLocation `json:"physicalLocation,omitempty"`
	LogicalLocations []LogicalLocation `json:"logicalLocations,omitempty"`
	Message          *Message          `json:"message,omitempty"`
}

type PhysicalLocation struct {
	ArtifactLocation *ArtifactLocation `json:"artifactLocation,omitempty"`
	Region           *Region           `json:"region,omitempty"`
	ContextRegion    *Region           `json:"contextRegion,omitempty"`
}

// ArtifactLocation references a file by URI, optionally relative to a
// symbolic base (uriBaseId).
type ArtifactLocation struct {
	URI       string `json:"uri,omitempty"`
	URIBaseID string `json:"uriBaseId,omitempty"`
	Index     *int   `json:"index,omitempty"`
}

// Region addresses a part of an artifact. All numeric fields are 1-based
// (line/column) or 0-based (char offsets) as in SARIF; nil means absent.
type Region struct {
	StartLine   *int             `json:"startLine,omitempty"`
	StartColumn *int             `json:"startColumn,omitempty"`
	EndLine     *int             `json:"endLine,omitempty"`
	EndColumn   *int             `json:"endColumn,omitempty"`
	CharOffset  *int             `json:"charOffset,omitempty"`
	CharLength  *int             `json:"charLength,omitempty"`
	Snippet     *ArtifactContent `json:"snippet,omitempty"`
	Message     *Message         `json:"message,omitempty"`
}

type ArtifactContent struct {
	Text   *string `json:"text,omitempty"`
	Binary *string `json:"binary,omitempty"`
}

type LogicalLocation struct {
	Name               string `json:"name,omitempty"`
	FullyQualifiedName string `json:"fullyQualifiedName,omitempty"`
	Kind               string `json:"kind,omitempty"`
	Index              *int   `json:"index,omitempty"`
}

type Artifact struct {
	Location *ArtifactLocation `json:"location,omitempty"`
	Length   *int              `json:"length,omitempty"`
	MimeType string            `json:"mimeType,omitempty"`
	Contents *ArtifactContent  `json:"contents,omitempty"`
}

type CodeFlow struct {
	Message     *Message     `json:"message,omitempty"`
	ThreadFlows []ThreadFlow `json:"threadFlows"`
}

type ThreadFlow struct {
	ID        string               `json:"id,omitempty"`
	Locations []ThreadFlowLocation `json:"locations"`
}

// ThreadFlowLocation is one step of a thread flow. Index refers to
// run.threadFlowLocations when the step is shared.
type ThreadFlowLocation struct {
	Index          *int      `json:"index,omitempty"`
	Location       *Location `json:"location,omitempty"`
	Kinds          []string  `json:"kinds,omitempty"`
	NestingLevel   *int      `json:"nestingLevel,omitempty"`
	ExecutionOrder *int      `json:"executionOrder,omitempty"`
	Importance     string    `json:"importance,omitempty"`
}

type Fix struct {
	Description     *Message         `json:"description,omitempty"`
	ArtifactChanges []ArtifactChange `json:"artifactChanges"`
}

type ArtifactChange struct {
	ArtifactLocation ArtifactLocation `json:"artifactLocation"`
	Replacements     []Replacement    `json:"replacements"`
}

type Replacement struct {
	DeletedRegion   Region           `json:"deletedRegion"`
	InsertedContent *ArtifactContent `json:"insertedContent,omitempty"`
}

// Int returns a pointer to v. Handy for building regions in code and tests.
func Int(v int) *int { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }
