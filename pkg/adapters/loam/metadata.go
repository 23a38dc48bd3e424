package loam

// SourceMetadata is the frontmatter of a TAGML source stored in a Loam repository.
// The TAGML text itself is the document body.
// It uses "mapstructure" tags to match standard Frontmatter/YAML keys.
type SourceMetadata struct {
	ID    string   `json:"id" mapstructure:"id"`
	Title string   `json:"title" mapstructure:"title"`
	Tags  []string `json:"tags" mapstructure:"tags"`

	// BranchConsistency overrides the engine's branch policy for this source ("strict" or "delta").
	BranchConsistency string `json:"branch_consistency" mapstructure:"branch_consistency"`

	// General Metadata
	Metadata map[string]any `json:"metadata" mapstructure:"metadata"`
}
