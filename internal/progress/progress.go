// Package progress defines the typed update variants the Indexer emits on
// a caller-supplied channel so a UI (TUI, GUI, or a plain log sink) can
// observe an indexing run. The channel is not unbounded: the Indexer's send
// blocks while the channel's buffer is full.
package progress

// Phase is one stage of an indexing run's lifecycle.
type Phase string

const (
	PhaseStarting          Phase = "starting"
	PhaseProcessingFiles   Phase = "processing_files"
	PhaseIndexingConditions Phase = "indexing_conditions"
	PhaseIndexingTokens    Phase = "indexing_tokens"
	PhaseFinalizing        Phase = "finalizing"
	PhaseCompleted         Phase = "completed"
	PhaseFailed            Phase = "failed"
)

// Kind discriminates the Update tagged union.
type Kind string

const (
	KindFileStart      Kind = "file_start"
	KindMarketProcessed Kind = "market_processed"
	KindFileComplete   Kind = "file_complete"
	KindPhaseChange    Kind = "phase_change"
	KindEvent          Kind = "event"
	KindConditionCount Kind = "condition_count"
	KindTokenCount     Kind = "token_count"
	KindComplete       Kind = "complete"
	KindError          Kind = "error"
)

// Update is one message on the progress channel. Exactly the fields
// relevant to Kind are populated; the rest are zero.
type Update struct {
	Kind Kind

	// FileStart
	FileIndex   int
	TotalFiles  int
	FileName    string
	MarketCount int

	// MarketProcessed
	MarketsInBatch int

	// FileComplete
	Duplicates int

	// PhaseChange
	Phase      Phase
	FailureMsg string

	// Event / Error
	Message string

	// ConditionCount / TokenCount
	Count int
}

// FileStart reports the beginning of work on one chunk file.
func FileStart(fileIndex, totalFiles int, fileName string, marketCount int) Update {
	return Update{Kind: KindFileStart, FileIndex: fileIndex, TotalFiles: totalFiles, FileName: fileName, MarketCount: marketCount}
}

// MarketProcessed reports that a batch of markets has been committed.
func MarketProcessed(n int) Update {
	return Update{Kind: KindMarketProcessed, MarketsInBatch: n}
}

// FileComplete reports a finished file along with how many duplicate
// markets were skipped within it.
func FileComplete(duplicates int) Update {
	return Update{Kind: KindFileComplete, Duplicates: duplicates}
}

// PhaseChange reports a lifecycle transition. For PhaseFailed, msg carries
// the failure reason.
func PhaseChange(phase Phase, msg string) Update {
	return Update{Kind: KindPhaseChange, Phase: phase, FailureMsg: msg}
}

// Event is a free-form informational line.
func Event(msg string) Update { return Update{Kind: KindEvent, Message: msg} }

// ConditionCount reports the number of aggregated conditions written.
func ConditionCount(n int) Update { return Update{Kind: KindConditionCount, Count: n} }

// TokenCount reports the number of aggregated tokens written.
func TokenCount(n int) Update { return Update{Kind: KindTokenCount, Count: n} }

// Complete signals a successful end of the run.
func Complete() Update { return Update{Kind: KindComplete} }

// Error signals an unrecoverable failure.
func Error(msg string) Update { return Update{Kind: KindError, Message: msg} }
