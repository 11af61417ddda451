package embedding

// ContentKind represents what is being embedded.
type ContentKind string

const (
	KindBookChunk ContentKind = "book_chunk" // Career guidance PDF chunks
	KindQuery     ContentKind = "query"      // User chat messages used as search queries
	KindQuestion  ContentKind = "question"   // Direct questions answered from the books
	KindSnippet   ContentKind = "snippet"    // Web snippets compared for similarity
)

// SelectTaskType picks the GenAI task type for a kind of content.
func SelectTaskType(kind ContentKind) string {
	switch kind {
	case KindBookChunk:
		return "RETRIEVAL_DOCUMENT"
	case KindQuery:
		return "RETRIEVAL_QUERY"
	case KindQuestion:
		return "QUESTION_ANSWERING"
	default:
		return "SEMANTIC_SIMILARITY"
	}
}

var validTaskTypes = map[string]bool{
	"SEMANTIC_SIMILARITY":  true,
	"CLASSIFICATION":       true,
	"CLUSTERING":           true,
	"RETRIEVAL_DOCUMENT":   true,
	"RETRIEVAL_QUERY":      true,
	"CODE_RETRIEVAL_QUERY": true,
	"QUESTION_ANSWERING":   true,
	"FACT_VERIFICATION":    true,
}

// normalizeTaskType falls back to SEMANTIC_SIMILARITY for unknown values.
func normalizeTaskType(taskType string) string {
	if validTaskTypes[taskType] {
		return taskType
	}
	return "SEMANTIC_SIMILARITY"
}
