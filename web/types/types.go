package types

// AskRequest is the body of POST /ask.
type AskRequest struct {
	Query string `json:"query"`
	// UseSemantic overrides the configured default when set.
	UseSemantic *bool `json:"use_semantic,omitempty"`
	// Format is "text" (default) or "html".
	Format string `json:"format,omitempty"`
}

// AskResponse is returned for every answered query, including the
// no-information and LLM failure answers.
type AskResponse struct {
	Answer string `json:"answer"`
	Stage  string `json:"stage"`
	HTML   string `json:"html,omitempty"`
}

// SourceStatus reports one FAQ source in the health response.
type SourceStatus struct {
	Path    string `json:"path"`
	Status  string `json:"status"`
	Entries int    `json:"entries"`
	Skipped int    `json:"skipped,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status            string         `json:"status"`
	Entries           int            `json:"entries"`
	CorpusSize        int            `json:"corpus_size"`
	SemanticAvailable bool           `json:"semantic_available"`
	Sources           []SourceStatus `json:"sources"`
}
