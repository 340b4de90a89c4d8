package ml

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/mikey/email-classifier/internal/nlp"
)

func trainedPipeline(t *testing.T) *Pipeline {
	t.Helper()
	n := nlp.NewNormalizer()
	texts := []string{
		"Reunião marcada para amanhã às 10h.",
		"Feliz Natal a todos!",
		"Pode me enviar os arquivos do projeto?",
		"Parabéns pelo trabalho realizado!",
	}
	labels := []string{"Produtivo", "Improdutivo", "Produtivo", "Improdutivo"}

	corpus := make([][]string, len(texts))
	for i, s := range texts {
		corpus[i] = n.Normalize(s)
	}
	vocab := FitVocabulary(corpus, 0)
	features := make([]FeatureVector, len(corpus))
	for i, d := range corpus {
		features[i] = vocab.Transform(d)
	}
	model, _, err := FitLogistic(features, labels, DefaultFitConfig())
	if err != nil {
		t.Fatal(err)
	}
	p, err := NewPipeline(n, vocab, model)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestArtifactRoundTrip(t *testing.T) {
	p := trainedPipeline(t)
	path := filepath.Join(t.TempDir(), "models", "classifier.json")

	if err := SaveArtifact(path, p, TrainingInfo{Documents: 4, Accuracy: 1}); err != nil {
		t.Fatalf("SaveArtifact: %v", err)
	}
	loaded, info, err := LoadArtifact(path)
	if err != nil {
		t.Fatalf("LoadArtifact: %v", err)
	}
	if info.Version != ArtifactVersion || info.Training.Documents != 4 {
		t.Errorf("unexpected info %+v", info)
	}

	heldOut := []string{
		"Podemos remarcar a reunião de amanhã?",
		"Bom dia! Feliz Natal a todos.",
		"Existe alguma previsão para a entrega do documento?",
		"",
		"12345",
	}
	for _, text := range heldOut {
		before, err := p.Classify(text)
		if err != nil {
			t.Fatal(err)
		}
		after, err := loaded.Classify(text)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(before, after) {
			t.Errorf("%q: before %+v, after %+v", text, before, after)
		}
	}

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp-*"))
	if len(matches) != 0 {
		t.Errorf("temporary files left behind: %v", matches)
	}
}

func TestLoadArtifactErrors(t *testing.T) {
	dir := t.TempDir()

	if _, _, err := LoadArtifact(filepath.Join(dir, "missing.json")); !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("missing file: got %v, want ErrModelUnavailable", err)
	}

	tests := []struct {
		name    string
		content string
		target  error
	}{
		{"wrong version", `{"format_version": 99}`, ErrArtifactVersion},
		{
			"mismatched pair",
			`{"format_version":1,"vocabulary":{"terms":["a","b"],"idf":[1,1]},
			  "classifier":{"classes":["x","y"],"coef":[[0.5]],"intercept":[0]}}`,
			ErrDimensionMismatch,
		},
		{"truncated", `{"format_version":1,"vocabulary":{"terms":["a"`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			p, info, err := LoadArtifact(path)
			if err == nil || p != nil || info != nil {
				t.Fatalf("expected failure without partial state, got %v %v %v", p, info, err)
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("got %v, want %v", err, tt.target)
			}
		})
	}
}
