package linkscore

import (
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/alvmarrod/link-oracle/internal/storage"
)

// featureDim is the size of the hashed feature space. Collisions at this
// size are rare enough for link-shaped inputs.
const featureDim = 1 << 18

// Term is one non-zero component of a sparse feature vector.
type Term struct {
	Index uint32
	Value float64
}

// Vector is a sparse feature vector with terms sorted by index.
type Vector []Term

// Vectorizer maps raw link feature records to fixed-size sparse vectors via
// feature hashing. It is stateless: no fit step is required, so links can be
// scored before any classifier has seen data.
type Vectorizer struct {
	useDomain bool
}

// NewVectorizer creates a hashing vectorizer. When useDomain is set, a
// per-domain identity token is added so classifiers can learn a domain-level
// intercept in addition to link-shape signals.
func NewVectorizer(useDomain bool) *Vectorizer {
	return &Vectorizer{useDomain: useDomain}
}

// Transform vectorizes a batch of link records. Output order matches input
// order. Each vector is L2-normalized.
func (v *Vectorizer) Transform(records []*storage.LinkRecord) []Vector {
	out := make([]Vector, len(records))
	for i, rec := range records {
		out[i] = v.transformOne(rec)
	}
	return out
}

func (v *Vectorizer) transformOne(rec *storage.LinkRecord) Vector {
	acc := make(map[uint32]float64)

	add := func(token string) {
		if token == "" {
			return
		}
		h := fnv.New32a()
		h.Write([]byte(token))
		sum := h.Sum32()
		idx := sum % featureDim
		// Alternate the sign on one hash bit so collisions tend to
		// cancel instead of accumulate.
		if sum&0x80000000 != 0 {
			acc[idx] -= 1.0
		} else {
			acc[idx] += 1.0
		}
	}

	for _, tok := range tokenize(rec.Text) {
		add("text:" + tok)
	}
	for _, tok := range urlTokens(rec.URL) {
		add("url:" + tok)
	}
	for _, cls := range rec.Classes {
		add("class:" + strings.ToLower(cls))
	}
	if rec.ElemID != "" {
		add("id:" + strings.ToLower(rec.ElemID))
	}
	if rec.Rel != "" {
		add("rel:" + strings.ToLower(rec.Rel))
	}
	for _, tok := range tokenize(rec.Title) {
		add("title:" + tok)
	}
	if v.useDomain && rec.Domain != "" {
		add("domain:" + strings.ToLower(rec.Domain))
	}

	vec := make(Vector, 0, len(acc))
	var norm float64
	for idx, val := range acc {
		if val == 0 {
			continue
		}
		vec = append(vec, Term{Index: idx, Value: val})
		norm += val * val
	}

	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i].Value /= norm
		}
	}

	sort.Slice(vec, func(i, j int) bool { return vec[i].Index < vec[j].Index })
	return vec
}

// tokenize lowercases and splits on non-alphanumeric runes.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// urlTokens tokenizes the path and query of a link URL. The host is left
// out on purpose: domain identity is a separate, optional feature.
func urlTokens(rawURL string) []string {
	s := rawURL
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[i:]
	} else {
		return nil
	}
	return tokenize(s)
}
