// Package search ranks recorded sessions against a free-text query with TF
// cosine scoring. Purely lexical: no embeddings, no external calls.
package search

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"ai-recorder-be/internal/entity"
	"ai-recorder-be/pkg/similarity"
)

// CompressedPrefixLimit bounds how many compressed-log descriptions feed a
// session's searchable text, so huge sessions stay cheap to vectorize.
const CompressedPrefixLimit = 50

const vectorCacheSize = 512

// Ranker scores sessions against queries. Session vectors are cached keyed
// by id and update stamp, so an edited session is re-vectorized on its next
// ranking.
type Ranker struct {
	cache *lru.Cache[string, similarity.Vector]
}

func NewRanker() *Ranker {
	cache, _ := lru.New[string, similarity.Vector](vectorCacheSize)
	return &Ranker{cache: cache}
}

// Rank scores every session in [0,1] against the query. An empty (or
// punctuation-only) query computes nothing and returns no entries.
func (r *Ranker) Rank(sessions []*entity.Session, query string) map[uuid.UUID]float64 {
	queryVec := similarity.TermVector(similarity.TokenizeStrict(query)).Normalize()
	if len(queryVec) == 0 {
		return map[uuid.UUID]float64{}
	}

	scores := make(map[uuid.UUID]float64, len(sessions))
	for _, session := range sessions {
		scores[session.Id] = similarity.Cosine(queryVec, r.sessionVector(session))
	}
	return scores
}

// BestMatch returns the highest-scoring session id. Ties keep the first
// session encountered. ok is false when there is nothing to rank.
func (r *Ranker) BestMatch(sessions []*entity.Session, query string) (uuid.UUID, bool) {
	scores := r.Rank(sessions, query)
	if len(scores) == 0 {
		return uuid.Nil, false
	}

	best := uuid.Nil
	bestScore := -1.0
	for _, session := range sessions {
		if score := scores[session.Id]; score > bestScore {
			best = session.Id
			bestScore = score
		}
	}
	return best, true
}

func (r *Ranker) sessionVector(session *entity.Session) similarity.Vector {
	key := session.Id.String() + "@" + strconv.FormatInt(session.UpdatedAt.UnixNano(), 10)
	if vec, ok := r.cache.Get(key); ok {
		return vec
	}

	vec := similarity.TermVector(similarity.TokenizeStrict(searchText(session))).Normalize()
	r.cache.Add(key, vec)
	return vec
}

// searchText concatenates the parts of a session the ranker looks at: title,
// description, highlights and a bounded prefix of the compressed log.
func searchText(session *entity.Session) string {
	var b strings.Builder
	b.WriteString(session.Title)

	if session.Description != nil {
		b.WriteByte(' ')
		b.WriteString(*session.Description)
	}
	for _, highlight := range session.Highlights {
		b.WriteByte(' ')
		b.WriteString(highlight)
	}

	limit := len(session.CompressedLog)
	if limit > CompressedPrefixLimit {
		limit = CompressedPrefixLimit
	}
	for _, event := range session.CompressedLog[:limit] {
		b.WriteByte(' ')
		b.WriteString(event.Description)
	}
	return b.String()
}
