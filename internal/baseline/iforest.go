package baseline

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/ANIKETSHETTY47/structural-health-twin/internal/domain"
)

const (
	defaultTrees      = 200
	maxSampleSize     = 256
	defaultSeed       = 42
	defaultName       = "iforest"
	eulerGamma        = 0.5772156649015329
	defaultContamRate = 0.01
)

// Config controls isolation forest training.
type Config struct {
	Name     string
	Features []string
	Trees    int
	// SampleSize is the per-tree subsample; 0 means min(256, len(corpus)).
	SampleSize int
	// Contamination is the share of the training corpus allowed to fall
	// outside the decision boundary.
	Contamination float64
	Seed          int64
}

// DefaultConfig mirrors the reference training run.
func DefaultConfig() Config {
	return Config{
		Name:          defaultName,
		Features:      append([]string(nil), DefaultFeatures...),
		Trees:         defaultTrees,
		Contamination: defaultContamRate,
		Seed:          defaultSeed,
	}
}

func (c Config) validate() error {
	if err := validateFeatures(c.Features); err != nil {
		return err
	}
	if c.Trees <= 0 {
		return fmt.Errorf("trees must be > 0, got %d", c.Trees)
	}
	if c.SampleSize < 0 {
		return fmt.Errorf("sample size must be >= 0, got %d", c.SampleSize)
	}
	if c.Contamination <= 0 || c.Contamination > 0.5 {
		return fmt.Errorf("contamination must be in (0, 0.5], got %g", c.Contamination)
	}
	return nil
}

// Node is one split (or leaf) of an isolation tree.
type Node struct {
	Feature   int     `json:"f,omitempty"`
	Threshold float64 `json:"t,omitempty"`
	Left      *Node   `json:"l,omitempty"`
	Right     *Node   `json:"r,omitempty"`
	Size      int     `json:"n,omitempty"`
}

func (n *Node) leaf() bool { return n.Left == nil || n.Right == nil }

// IsolationForest is an ensemble of random isolation trees. Points that are
// isolated in few splits are outliers.
type IsolationForest struct {
	Name          string
	Version       string
	CreatedAt     time.Time
	Contamination float64
	SampleSize    int
	Offset        float64
	Trees         []*Node

	features []string
}

var _ Model = (*IsolationForest)(nil)

// Fit trains a forest on a corpus of normal feature vectors. The corpus is
// put in canonical order first so the result does not depend on how the
// vectors were supplied.
func Fit(corpus []domain.FeatureVector, cfg Config) (*IsolationForest, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("baseline config: %w", err)
	}
	if len(corpus) == 0 {
		return nil, fmt.Errorf("baseline: empty training corpus")
	}

	rows := make([][]float64, len(corpus))
	for i, fv := range corpus {
		x, err := fv.Select(cfg.Features)
		if err != nil {
			return nil, fmt.Errorf("baseline: corpus row %d: %w", i, err)
		}
		rows[i] = x
	}
	sortRows(rows)

	psi := cfg.SampleSize
	if psi == 0 {
		psi = maxSampleSize
	}
	if psi > len(rows) {
		psi = len(rows)
	}

	b := &treeBuilder{
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		maxDepth: int(math.Ceil(math.Log2(math.Max(float64(psi), 2)))),
		dims:     len(cfg.Features),
	}

	name := cfg.Name
	if name == "" {
		name = defaultName
	}
	f := &IsolationForest{
		Name:          name,
		CreatedAt:     time.Now().UTC(),
		Contamination: cfg.Contamination,
		SampleSize:    psi,
		Trees:         make([]*Node, cfg.Trees),
		features:      append([]string(nil), cfg.Features...),
	}
	f.Version = f.CreatedAt.Format("20060102T150405Z")

	for t := range f.Trees {
		idx := b.rng.Perm(len(rows))[:psi]
		sample := make([][]float64, psi)
		for i, j := range idx {
			sample[i] = rows[j]
		}
		f.Trees[t] = b.grow(sample, 0)
	}

	scores := make([]float64, len(rows))
	for i, x := range rows {
		scores[i] = f.scoreSamples(x)
	}
	sort.Float64s(scores)
	f.Offset = stat.Quantile(cfg.Contamination, stat.LinInterp, scores, nil)

	return f, nil
}

// Features returns the feature ordering the forest was trained on.
func (f *IsolationForest) Features() []string {
	return append([]string(nil), f.features...)
}

// Score returns the decision score: negative means outside the boundary.
func (f *IsolationForest) Score(x []float64) (float64, bool) {
	score := f.scoreSamples(x) - f.Offset
	return score, score < 0
}

// scoreSamples is the negated isolation anomaly score, in [-1, 0).
func (f *IsolationForest) scoreSamples(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	var total float64
	for _, t := range f.Trees {
		total += pathLength(t, x)
	}
	mean := total / float64(len(f.Trees))
	return -math.Pow(2, -mean/averagePathLength(f.SampleSize))
}

func pathLength(n *Node, x []float64) float64 {
	depth := 0.0
	for !n.leaf() {
		if x[n.Feature] < n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
		depth++
	}
	return depth + averagePathLength(n.Size)
}

// averagePathLength is the expected path length of an unsuccessful search in
// a binary search tree of n points.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
}

type treeBuilder struct {
	rng      *rand.Rand
	maxDepth int
	dims     int
}

func (b *treeBuilder) grow(rows [][]float64, depth int) *Node {
	if depth >= b.maxDepth || len(rows) <= 1 {
		return &Node{Size: len(rows)}
	}
	for _, feature := range b.rng.Perm(b.dims) {
		lo, hi := rows[0][feature], rows[0][feature]
		for _, r := range rows[1:] {
			lo = math.Min(lo, r[feature])
			hi = math.Max(hi, r[feature])
		}
		if hi <= lo {
			continue
		}
		threshold := lo + b.rng.Float64()*(hi-lo)
		if threshold <= lo || threshold >= hi {
			threshold = lo + (hi-lo)/2
		}
		var left, right [][]float64
		for _, r := range rows {
			if r[feature] < threshold {
				left = append(left, r)
			} else {
				right = append(right, r)
			}
		}
		return &Node{
			Feature:   feature,
			Threshold: threshold,
			Left:      b.grow(left, depth+1),
			Right:     b.grow(right, depth+1),
		}
	}
	// every feature is constant in this node
	return &Node{Size: len(rows)}
}

func sortRows(rows [][]float64) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})
}
