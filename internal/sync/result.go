package sync

// Result records what a single pipeline run did
type Result struct {
	Skipped  bool   // source and destination already identical
	Copied   bool   // destination was (re)written
	Commit   Commit // version-control outcome
	Deployed bool   // deployment CLI was invoked successfully

	SourceHash string // SHA256 of the source file
	DestHash   string // SHA256 of the destination before the run, "" if absent
}

// Commit describes the version-control publishing outcome
type Commit string

const (
	CommitSkipped Commit = "skipped" // git disabled or run skipped
	CommitNoop    Commit = "noop"    // nothing to commit, branch pushed
	CommitPushed  Commit = "pushed"  // committed and pushed
)
