package logreg

import (
	"math"
	"reflect"
	"testing"

	"github.com/cognicore/triage/pkg/triage/tfidf"
)

func fitCorpus(t *testing.T) (*tfidf.Vectorizer, []tfidf.Vector, []string) {
	t.Helper()
	docs := []string{
		"invoice charge refund", "rechnung gebuehr", "invoice wrong amount", "rechnung zu hoch",
		"internet slow", "kein netz", "wifi drops", "verbindung langsam",
		"screen broken", "handy defekt", "router overheats", "sim karte defekt",
	}
	labels := []string{
		"billing", "billing", "billing", "billing",
		"network", "network", "network", "network",
		"device", "device", "device", "device",
	}
	v, err := tfidf.Fit(docs, tfidf.DefaultOptions())
	if err != nil {
		t.Fatalf("tfidf.Fit: %v", err)
	}
	return v, v.Transform(docs), labels
}

func TestFitSeparatesClasses(t *testing.T) {
	v, X, labels := fitCorpus(t)

	clf, err := Fit(X, labels, v.Len(), DefaultOptions())
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	if !reflect.DeepEqual(clf.Classes(), []string{"billing", "device", "network"}) {
		t.Errorf("Classes = %v", clf.Classes())
	}

	pred := clf.Predict(X)
	for i := range pred {
		if pred[i] != labels[i] {
			t.Errorf("training sample %d predicted %s, want %s", i, pred[i], labels[i])
		}
	}

	unseen := v.Transform([]string{"rechnung", "netz", "defekt"})
	got := clf.Predict(unseen)
	want := []string{"billing", "network", "device"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Predict(unseen) = %v, want %v", got, want)
	}
}

func TestFitDeterministic(t *testing.T) {
	v, X, labels := fitCorpus(t)

	a, err := Fit(X, labels, v.Len(), DefaultOptions())
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	b, err := Fit(X, labels, v.Len(), DefaultOptions())
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	if !reflect.DeepEqual(a.State(), b.State()) {
		t.Error("identical inputs should give identical coefficients")
	}
}

func TestPredictProbaSumsToOne(t *testing.T) {
	v, X, labels := fitCorpus(t)
	clf, err := Fit(X, labels, v.Len(), DefaultOptions())
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	for _, p := range clf.PredictProba(X) {
		var sum float64
		for _, x := range p {
			if x < 0 || x > 1 {
				t.Errorf("probability %f out of range", x)
			}
			sum += x
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("probabilities sum to %f", sum)
		}
	}
}

func TestEmptyRowPredictsByIntercept(t *testing.T) {
	v, X, labels := fitCorpus(t)
	clf, err := Fit(X, labels, v.Len(), DefaultOptions())
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	out := clf.Predict([]tfidf.Vector{{}})
	if len(out) != 1 || out[0] == "" {
		t.Errorf("empty row should still yield a class, got %v", out)
	}
}

func TestFitErrors(t *testing.T) {
	row := tfidf.Vector{Index: []int{0}, Value: []float64{1}}

	if _, err := Fit(nil, nil, 1, DefaultOptions()); err == nil {
		t.Error("expected error for no samples")
	}
	if _, err := Fit([]tfidf.Vector{row}, []string{"a", "b"}, 1, DefaultOptions()); err == nil {
		t.Error("expected error for label mismatch")
	}
	if _, err := Fit([]tfidf.Vector{row, row}, []string{"a", "a"}, 1, DefaultOptions()); err == nil {
		t.Error("expected error for a single class")
	}
}

func TestStateRoundTrip(t *testing.T) {
	v, X, labels := fitCorpus(t)
	clf, err := Fit(X, labels, v.Len(), DefaultOptions())
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	restored, err := FromState(clf.State())
	if err != nil {
		t.Fatalf("FromState: %v", err)
	}
	if !reflect.DeepEqual(clf.Predict(X), restored.Predict(X)) {
		t.Error("restored classifier should predict identically")
	}

	bad := clf.State()
	bad.Coef = bad.Coef[:1]
	if _, err := FromState(bad); err == nil {
		t.Error("expected error for truncated coefficients")
	}
}
