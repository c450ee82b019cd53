package reconcile

import (
	"context"

	"github.com/ppiankov/categora/internal/embed"
	"github.com/ppiankov/categora/internal/label"
	"github.com/ppiankov/categora/internal/model"
	"github.com/ppiankov/categora/internal/score"
)

// Input is what every strategy sees
type Input struct {
	Proposed   string            // trimmed proposal
	Key        string            // normalized proposal
	Existing   []label.Candidate // deduplicated, first-seen order
	Thresholds model.Thresholds
}

// Match is a successful strategy outcome
type Match struct {
	Label  string
	Method model.Method
}

// Strategy is one stage of the cascade. Attempt records what it tried in the
// trace and reports a match, or ok=false to fall through.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, in *Input, tr *model.Trace) (Match, bool)
}

// Exact matches on equal normalized keys
type Exact struct{}

func (Exact) Name() string { return string(model.MethodExact) }

func (Exact) Attempt(_ context.Context, in *Input, tr *model.Trace) (Match, bool) {
	for _, c := range in.Existing {
		if c.Key == in.Key {
			tr.Record(model.Attempt{Stage: "exact", Outcome: model.OutcomeMatched, Candidate: c.Label, Score: model.Score(1)})
			return Match{Label: c.Label, Method: model.MethodExact}, true
		}
	}
	tr.Record(model.Attempt{Stage: "exact", Outcome: model.OutcomeNoMatch})
	return Match{}, false
}

// Synonym maps the key through a synonym family
type Synonym struct {
	Synonyms *label.Synonyms
}

func (Synonym) Name() string { return "synonym" }

func (s Synonym) Attempt(_ context.Context, in *Input, tr *model.Trace) (Match, bool) {
	if s.Synonyms == nil {
		tr.Record(model.Attempt{Stage: "synonym", Outcome: model.OutcomeSkipped, Reason: "no synonym table"})
		return Match{}, false
	}
	res, ok := s.Synonyms.Resolve(in.Key, in.Existing)
	tr.Family = res.Family
	if !ok {
		reason := ""
		if res.Family != "" {
			reason = "family " + res.Family + " not in existing labels"
		}
		tr.Record(model.Attempt{Stage: "synonym", Outcome: model.OutcomeNoMatch, Reason: reason})
		return Match{}, false
	}

	method := model.MethodSynonymExisting
	if res.Created {
		method = model.MethodSynonymNew
	}
	tr.Record(model.Attempt{Stage: "synonym", Outcome: model.OutcomeMatched, Candidate: res.Label, Reason: string(method)})
	return Match{Label: res.Label, Method: method}, true
}

// Semantic compares sentence embeddings of the keys
type Semantic struct {
	Backend *embed.Backend
}

func (Semantic) Name() string { return string(model.MethodModel) }

func (s Semantic) Attempt(ctx context.Context, in *Input, tr *model.Trace) (Match, bool) {
	if s.Backend == nil || in.Key == "" {
		tr.Record(model.Attempt{Stage: "model", Outcome: model.OutcomeSkipped, Reason: "nothing to encode"})
		return Match{}, false
	}

	texts := make([]string, 0, len(in.Existing)+1)
	texts = append(texts, in.Key)
	for _, c := range in.Existing {
		texts = append(texts, c.Key)
	}
	vecs, ok := s.Backend.Encode(ctx, texts)
	if !ok {
		tr.Record(model.Attempt{Stage: "model", Outcome: model.OutcomeSkipped, Reason: "embedding backend unavailable"})
		return Match{}, false
	}
	tr.ModelID = s.Backend.ModelID(ctx)

	best, idx := bestOf(len(in.Existing), func(i int) float64 {
		return score.Semantic(vecs[0], vecs[i+1])
	})
	tr.Semantic = model.Score(best)
	return accept(tr, "model", model.MethodModel, in, idx, best, in.Thresholds.Semantic)
}

// Fuzzy compares keys by sequence alignment
type Fuzzy struct{}

func (Fuzzy) Name() string { return string(model.MethodFuzzy) }

func (Fuzzy) Attempt(_ context.Context, in *Input, tr *model.Trace) (Match, bool) {
	if in.Key == "" {
		tr.Record(model.Attempt{Stage: "fuzzy", Outcome: model.OutcomeSkipped, Reason: "empty key"})
		return Match{}, false
	}
	best, idx := bestOf(len(in.Existing), func(i int) float64 {
		return score.Fuzzy(in.Key, in.Existing[i].Key)
	})
	tr.Fuzzy = model.Score(best)
	return accept(tr, "fuzzy", model.MethodFuzzy, in, idx, best, in.Thresholds.Fuzzy)
}

// bestOf returns the highest score and its index; ties keep the earliest
func bestOf(n int, scoreAt func(i int) float64) (float64, int) {
	best, idx := 0.0, -1
	for i := 0; i < n; i++ {
		s := scoreAt(i)
		if idx < 0 || s > best {
			best, idx = s, i
		}
	}
	return best, idx
}

func accept(tr *model.Trace, stage string, method model.Method, in *Input, idx int, best, threshold float64) (Match, bool) {
	if idx < 0 {
		tr.Record(model.Attempt{Stage: stage, Outcome: model.OutcomeNoMatch})
		return Match{}, false
	}
	cand := in.Existing[idx].Label
	if best >= threshold {
		tr.Record(model.Attempt{Stage: stage, Outcome: model.OutcomeMatched, Score: model.Score(best), Candidate: cand})
		return Match{Label: cand, Method: method}, true
	}
	tr.Record(model.Attempt{Stage: stage, Outcome: model.OutcomeNoMatch, Score: model.Score(best), Candidate: cand})
	return Match{}, false
}
