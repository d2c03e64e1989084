package rag

import (
	"context"
	"fmt"

	"coursetutor/internal/chunking"
	"coursetutor/internal/contextutil"
	"coursetutor/internal/vectorstore"
)

// Policy selects how the retriever searches.
type Policy string

// Retrieval policies.
const (
	// PolicySemantic runs one unfiltered similarity query.
	PolicySemantic Policy = "semantic"
	// PolicyIntent classifies the query first and searches with the intent's profile.
	PolicyIntent Policy = "intent"
)

// DefaultTopK is the semantic policy's result count.
const DefaultTopK = 10

// Retriever finds the chunks relevant to a question.
type Retriever struct {
	index      Index
	classifier *IntentClassifier
	policy     Policy
	topK       int
}

// NewRetriever creates a retriever. classifier may be nil for the semantic policy;
// with the intent policy a nil classifier always uses the default profile.
func NewRetriever(index Index, classifier *IntentClassifier, policy Policy, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if policy != PolicyIntent {
		policy = PolicySemantic
	}
	return &Retriever{index: index, classifier: classifier, policy: policy, topK: topK}
}

// Retrieve returns chunks closest first. An empty or missing collection yields no chunks and no error.
func (r *Retriever) Retrieve(ctx context.Context, courseID int64, query string, sc SessionContext) ([]chunking.RetrievedChunk, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if r.policy == PolicySemantic {
		chunks, err := r.index.Query(ctx, courseID, query, r.topK, nil)
		if err != nil {
			return nil, fmt.Errorf("semantic search: %w", err)
		}
		logger.DebugContext(ctx, "semantic retrieval", "course_id", courseID, "results", len(chunks))
		return chunks, nil
	}

	intent := r.classify(ctx, query, sc)
	profile := ProfileFor(intent)
	filter := profileFilter(profile, sc)

	chunks, err := r.index.Query(ctx, courseID, query, profile.TopK, filter)
	if err != nil {
		return nil, fmt.Errorf("intent search: %w", err)
	}

	// Uploaded units rarely carry the fine-grained levels a profile targets,
	// so an empty filtered result falls back to an unfiltered search.
	if len(chunks) == 0 && filter != nil {
		logger.DebugContext(ctx, "filtered retrieval empty, searching unfiltered", "course_id", courseID, "filter", filter.String())
		chunks, err = r.index.Query(ctx, courseID, query, profile.TopK, nil)
		if err != nil {
			return nil, fmt.Errorf("intent search: %w", err)
		}
	}

	logger.DebugContext(ctx, "intent retrieval",
		"course_id", courseID,
		"intent", intent,
		"top_k", profile.TopK,
		"results", len(chunks),
	)
	return chunks, nil
}

// classify returns the query's intent, substituting the default on any failure.
func (r *Retriever) classify(ctx context.Context, query string, sc SessionContext) Intent {
	if r.classifier == nil {
		return DefaultIntent
	}
	result, err := r.classifier.Classify(ctx, query, sc)
	if err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "intent classification failed, using default profile",
			"default_intent", DefaultIntent,
			"error", err,
		)
		return DefaultIntent
	}
	return result.Intent
}

// profileFilter restricts a search to the profile's levels and, when set, the session's current unit.
func profileFilter(p Profile, sc SessionContext) vectorstore.Filter {
	var conds []vectorstore.Filter
	if len(p.Levels) > 0 {
		levels := make([]any, len(p.Levels))
		for i, l := range p.Levels {
			levels[i] = l
		}
		conds = append(conds, vectorstore.In{Field: chunking.FieldHierarchyLevel, Values: levels})
	}
	if sc.CurrentUnitID != 0 {
		conds = append(conds, vectorstore.Eq{Field: chunking.FieldUnitID, Value: sc.CurrentUnitID})
	}
	return vectorstore.Conjoin(conds...)
}
