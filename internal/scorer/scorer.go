// Package scorer applies a pre-trained standardisation and logistic
// regression model to feature vectors.
package scorer

import (
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/selimozcann/qrlens/internal/features"
	"github.com/selimozcann/qrlens/internal/model"
)

const (
	MultiClassOVR         = "ovr"
	MultiClassMultinomial = "multinomial"
)

// ErrInvalidArtifact is returned when a model artifact is inconsistent.
var ErrInvalidArtifact = errors.New("invalid model artifact")

// Scaler holds the standardisation parameters fitted with the classifier.
type Scaler struct {
	Mean  []float64 `yaml:"mean"`
	Scale []float64 `yaml:"scale"`
}

// Artifact is the versioned, serialised model produced by offline training.
// Binary models carry a single coefficient row for Classes[1].
type Artifact struct {
	Version    string      `yaml:"version"`
	Features   []string    `yaml:"features"`
	Scaler     Scaler      `yaml:"scaler"`
	Classes    []string    `yaml:"classes"`
	Coef       [][]float64 `yaml:"coef"`
	Intercept  []float64   `yaml:"intercept"`
	MultiClass string      `yaml:"multi_class"`
}

// Scorer classifies feature vectors. It is immutable after construction.
type Scorer struct {
	art Artifact
}

// Load reads and validates an artifact from path.
func Load(path string) (*Scorer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML artifact.
func Parse(data []byte) (*Scorer, error) {
	var a Artifact
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	return New(a)
}

// New validates a and returns a Scorer over it.
func New(a Artifact) (*Scorer, error) {
	if a.MultiClass == "" {
		a.MultiClass = MultiClassOVR
	}
	if err := validate(a); err != nil {
		return nil, err
	}
	return &Scorer{art: a}, nil
}

func validate(a Artifact) error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidArtifact, fmt.Sprintf(format, args...))
	}
	if !slices.Equal(a.Features, features.Names) {
		return invalid("features %v do not match %v", a.Features, features.Names)
	}
	if len(a.Scaler.Mean) != features.Size || len(a.Scaler.Scale) != features.Size {
		return invalid("scaler needs %d means and scales", features.Size)
	}
	if len(a.Classes) < 2 {
		return invalid("need at least two classes, got %d", len(a.Classes))
	}
	if a.MultiClass != MultiClassOVR && a.MultiClass != MultiClassMultinomial {
		return invalid("unknown multi_class %q", a.MultiClass)
	}
	rows := len(a.Classes)
	if rows == 2 && len(a.Coef) == 1 {
		rows = 1
	}
	if len(a.Coef) != rows || len(a.Intercept) != rows {
		return invalid("expected %d coefficient rows and intercepts, got %d and %d", rows, len(a.Coef), len(a.Intercept))
	}
	for i, row := range a.Coef {
		if len(row) != features.Size {
			return invalid("coefficient row %d has %d weights", i, len(row))
		}
	}
	return nil
}

// Version returns the artifact version.
func (s *Scorer) Version() string { return s.art.Version }

// Classes returns the class labels in artifact order.
func (s *Scorer) Classes() []string { return slices.Clone(s.art.Classes) }

// Score classifies v. The winning class is the one with the highest
// probability, the first class winning ties. Probabilities are rounded to
// three decimals.
func (s *Scorer) Score(v features.Vector) model.ScoreResult {
	start := time.Now()

	var z features.Vector
	for i := range v {
		scale := s.art.Scaler.Scale[i]
		if scale == 0 {
			scale = 1
		}
		z[i] = (v[i] - s.art.Scaler.Mean[i]) / scale
	}

	probs := s.probabilities(z)
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}

	res := model.ScoreResult{
		Label:         s.art.Classes[best],
		Verdict:       model.ParseVerdict(s.art.Classes[best]),
		Probabilities: make(map[string]float64, len(probs)),
		ModelVersion:  s.art.Version,
	}
	for i, p := range probs {
		res.Probabilities[s.art.Classes[i]] = round3(p)
	}
	res.Confidence = res.Probabilities[res.Label]
	res.Elapsed = time.Since(start)
	return res
}

func (s *Scorer) probabilities(z features.Vector) []float64 {
	decision := make([]float64, len(s.art.Coef))
	for k, row := range s.art.Coef {
		d := s.art.Intercept[k]
		for i, w := range row {
			d += w * z[i]
		}
		decision[k] = d
	}

	if len(decision) == 1 {
		p := sigmoid(decision[0])
		return []float64{1 - p, p}
	}

	probs := make([]float64, len(decision))
	if strings.EqualFold(s.art.MultiClass, MultiClassMultinomial) {
		maxD := slices.Max(decision)
		var sum float64
		for k, d := range decision {
			probs[k] = math.Exp(d - maxD)
			sum += probs[k]
		}
		for k := range probs {
			probs[k] /= sum
		}
		return probs
	}

	var sum float64
	for k, d := range decision {
		probs[k] = sigmoid(d)
		sum += probs[k]
	}
	for k := range probs {
		probs[k] /= sum
	}
	return probs
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func round3(p float64) float64 {
	return math.Round(p*1000) / 1000
}
