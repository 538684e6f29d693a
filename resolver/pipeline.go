package resolver

import (
	"context"
	"errors"
	"sort"
	"strings"

	"faq-assistant/embedding"
	apperrors "faq-assistant/errors"
	"faq-assistant/faq"
	"faq-assistant/prompts"
	"faq-assistant/sanitize"
	"faq-assistant/similarity"
	"faq-assistant/textutil"

	"go.uber.org/zap"
)

// ScoredCandidate is a semantic search result above the relevance floor.
// Its score is an embedding similarity.
type ScoredCandidate struct {
	Score float64
	Index int
	Entry faq.Entry
}

// HintCandidate is a lexical fallback result. Its score is a similarity
// ratio and is not comparable with ScoredCandidate scores.
type HintCandidate struct {
	Score float64
	Index int
	Entry faq.Entry
}

// Resolution describes how a query was answered.
type Resolution struct {
	Query  string
	Answer string
	Stage  Stage

	// Semantic is true when the semantic path produced the candidates.
	Semantic bool

	Reliable   []ScoredCandidate
	Additional []ScoredCandidate
	Hints      []HintCandidate

	Context string
	Prompt  string

	// Err is the LLM failure behind StageLLMError, or the invalid input
	// behind StageRejected.
	Err error
}

// ResolveDetailed runs the pipeline and reports every intermediate result.
func (r *Resolver) ResolveDetailed(ctx context.Context, query string, useSemantic bool) Resolution {
	res := Resolution{Query: query}

	folded := textutil.Fold(query)
	if folded == "" {
		res.Stage = StageRejected
		res.Answer = NoInformationAnswer
		res.Err = apperrors.WrapError(apperrors.ErrInvalidInput, "blank query")
		return res
	}

	if i := r.exactMatch(folded); i >= 0 {
		r.logger.Debug("Exact FAQ title match", zap.String("question", r.store.At(i).Question))
		res.Stage = StageExact
		res.Answer = r.store.At(i).Answer
		return res
	}

	semantic := useSemantic && r.semantic
	if semantic {
		hits, err := r.searcher.Search(ctx, query, r.corpus, r.opts.SemanticTopK)
		if err != nil {
			r.logger.Warn("Semantic search failed, using lexical fallback", zap.Error(err))
			semantic = false
		} else {
			res.Semantic = true
			if done := r.semanticStage(folded, hits, &res); done {
				return res
			}
		}
	}

	if !semantic {
		res.Hints = r.hintCandidates(query)
		if len(res.Hints) == 0 {
			res.Stage = StageNoInformation
			res.Answer = NoInformationAnswer
			return res
		}
		res.Context = hintContext(res.Hints)
	}

	r.delegate(ctx, &res)
	return res
}

// exactMatch returns the index of the first entry whose folded question
// equals the folded query, or failing that the first one where either
// contains the other. It returns -1 when nothing matches.
func (r *Resolver) exactMatch(folded string) int {
	for i, title := range r.folded {
		if title == folded {
			return i
		}
	}
	for i, title := range r.folded {
		if textutil.MatchesTitle(folded, title) {
			return i
		}
	}
	return -1
}

// semanticStage filters hits, handles the terminal outcomes and otherwise
// fills the tiers and the context. It reports whether res is final.
func (r *Resolver) semanticStage(folded string, hits []embedding.Hit, res *Resolution) bool {
	candidates := r.relevant(hits)
	for _, c := range candidates {
		r.logger.Debug("Semantic match", zap.Float64("score", c.Score), zap.String("question", c.Entry.Question))
	}

	if len(candidates) == 0 {
		res.Stage = StageNoInformation
		res.Answer = NoInformationAnswer
		return true
	}

	if directHit(folded, candidates) {
		res.Stage = StageSemanticDirect
		res.Answer = candidates[0].Entry.Answer
		return true
	}

	res.Reliable, res.Additional = tiers(candidates, r.opts.ReliableThreshold, r.opts.MaxAdditional)
	res.Context = semanticContext(res.Reliable, res.Additional)
	return false
}

// relevant orders hits by descending score, keeps the top K, drops those at
// or below the relevance floor and resolves them to entries.
func (r *Resolver) relevant(hits []embedding.Hit) []ScoredCandidate {
	ordered := make([]embedding.Hit, len(hits))
	copy(ordered, hits)
	sort.SliceStable(ordered, func(a, b int) bool {
		return ordered[a].Score > ordered[b].Score
	})
	if len(ordered) > r.opts.SemanticTopK {
		ordered = ordered[:r.opts.SemanticTopK]
	}

	candidates := make([]ScoredCandidate, 0, len(ordered))
	for _, hit := range ordered {
		if hit.Score <= r.opts.RelevanceFloor {
			continue
		}
		if hit.Index < 0 || hit.Index >= r.store.Len() {
			r.logger.Warn("Search hit outside the FAQ store", zap.Int("index", hit.Index))
			continue
		}
		candidates = append(candidates, ScoredCandidate{
			Score: hit.Score,
			Index: hit.Index,
			Entry: r.store.At(hit.Index),
		})
	}
	return candidates
}

// directHit reports whether the best candidate's question is the query.
func directHit(folded string, candidates []ScoredCandidate) bool {
	return len(candidates) > 0 && textutil.Fold(candidates[0].Entry.Question) == folded
}

// tiers splits descending candidates into at most one reliable candidate and
// at most maxAdditional others below the threshold.
func tiers(candidates []ScoredCandidate, threshold float64, maxAdditional int) (reliable, additional []ScoredCandidate) {
	for _, c := range candidates {
		if c.Score >= threshold {
			if len(reliable) == 0 {
				reliable = append(reliable, c)
			}
			continue
		}
		if len(additional) < maxAdditional {
			additional = append(additional, c)
		}
	}
	return reliable, additional
}

func semanticContext(reliable, additional []ScoredCandidate) string {
	var parts []string
	if len(reliable) > 0 {
		best := reliable[0].Entry
		parts = append(parts, "Надёжный источник:\nЕсли вы интересуетесь, "+
			strings.ToLower(best.Question)+", вот ответ:\n"+best.Answer)
	}
	if len(additional) > 0 {
		parts = append(parts, "Дополнительная информация:")
		for _, c := range additional {
			parts = append(parts, "– "+c.Entry.Question+"\n  "+c.Entry.Answer)
		}
	}
	return strings.Join(parts, "\n\n")
}

// hintCandidates scores every entry's question and answer against the query
// and returns the best HintTopK with any overlap at all.
func (r *Resolver) hintCandidates(query string) []HintCandidate {
	var scored []HintCandidate
	for i := 0; i < r.store.Len(); i++ {
		entry := r.store.At(i)
		score := similarity.Score(entry.Text(), query)
		if score > 0 {
			scored = append(scored, HintCandidate{Score: score, Index: i, Entry: entry})
		}
	}
	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})
	if len(scored) > r.opts.HintTopK {
		scored = scored[:r.opts.HintTopK]
	}
	return scored
}

func hintContext(hints []HintCandidate) string {
	parts := make([]string, len(hints))
	for i, h := range hints {
		parts[i] = "Возможно вы хотите узнать: «" + h.Entry.Question + "». Вот ответ на вашу тему:\n" + h.Entry.Answer
	}
	return strings.Join(parts, "\n\n")
}

var errNoCompleter = errors.New("LLM client is not configured")

// delegate asks the LLM with the assembled context. Failures become the
// answer text.
func (r *Resolver) delegate(ctx context.Context, res *Resolution) {
	res.Prompt = prompts.BuildAnswerPrompt(res.Context, res.Query)
	r.logger.Debug("Final prompt", zap.String("prompt", res.Prompt))

	var (
		raw string
		err error
	)
	if r.llm == nil {
		err = errNoCompleter
	} else {
		raw, err = r.llm.Complete(ctx, res.Prompt)
	}
	if err != nil {
		if apperrors.IsLLMCommunication(err) {
			r.logger.Warn("LLM call failed", zap.Error(err))
		} else {
			r.logger.Error("LLM client unavailable", zap.Error(err))
		}
		res.Stage = StageLLMError
		res.Err = err
		res.Answer = LLMErrorPrefix + err.Error()
		return
	}

	res.Stage = StageLLM
	res.Answer = sanitize.Clean(raw)
	if res.Answer == "" {
		res.Answer = NotFoundAnswer
	}
}
