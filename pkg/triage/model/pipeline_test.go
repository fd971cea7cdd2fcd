package model

import (
	"errors"
	"reflect"
	"testing"

	"github.com/cognicore/triage/pkg/triage/internalerr"
)

var (
	trainTexts = []string{
		"rechnung falsch", "invoice double charge", "gebuehren zu hoch", "refund payment",
		"internet slow", "kein netz", "wifi drops signal", "verbindung bricht ab",
		"screen broken", "handy startet", "router overheats", "sim karte funktioniert",
		"cancel contract", "vertrag kuendigen", "extend subscription", "vertragslaufzeit",
		"opening hours", "allgemeine frage", "friendly staff", "filiale finden",
	}
	trainLabels = []string{
		"billing", "billing", "billing", "billing",
		"network", "network", "network", "network",
		"device", "device", "device", "device",
		"contract", "contract", "contract", "contract",
		"other", "other", "other", "other",
	}
	heldOut = []string{"internet slow", "rechnung", "vertrag", "sim karte", "frage"}
)

func TestPredictBeforeFit(t *testing.T) {
	p := New(DefaultOptions())

	_, err := p.Predict([]string{"internet"})
	if !errors.Is(err, internalerr.ErrNotFitted) {
		t.Errorf("expected ErrNotFitted, got %v", err)
	}
	var nf *internalerr.NotFittedError
	if !errors.As(err, &nf) {
		t.Errorf("expected *NotFittedError, got %T", err)
	}

	var nilPipeline *Pipeline
	if _, err := nilPipeline.Predict(nil); !errors.Is(err, internalerr.ErrNotFitted) {
		t.Errorf("nil pipeline: expected ErrNotFitted, got %v", err)
	}
	if _, err := p.PredictProba([]string{"x"}); !errors.Is(err, internalerr.ErrNotFitted) {
		t.Errorf("PredictProba: expected ErrNotFitted, got %v", err)
	}
}

func TestFitReturnsNewPipeline(t *testing.T) {
	base := New(DefaultOptions())
	fitted, err := base.Fit(trainTexts, trainLabels)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	if base.Fitted() {
		t.Error("Fit must not modify the receiver")
	}
	if !fitted.Fitted() {
		t.Error("returned pipeline should be fitted")
	}

	again, err := fitted.Fit(trainTexts[:8], trainLabels[:8])
	if err != nil {
		t.Fatalf("refit: %v", err)
	}
	if len(fitted.Classes()) != 5 || len(again.Classes()) != 2 {
		t.Errorf("refit should not touch the old pipeline: %v vs %v", fitted.Classes(), again.Classes())
	}
}

func TestPredict(t *testing.T) {
	p, err := New(DefaultOptions()).Fit(trainTexts, trainLabels)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	got, err := p.Predict(heldOut)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	want := []string{"network", "billing", "contract", "device", "other"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Predict = %v, want %v", got, want)
	}
}

func TestFitDeterministic(t *testing.T) {
	a, err := New(DefaultOptions()).Fit(trainTexts, trainLabels)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	b, err := New(DefaultOptions()).Fit(trainTexts, trainLabels)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	if !reflect.DeepEqual(a.Vectorizer().State(), b.Vectorizer().State()) {
		t.Error("vocabularies differ between identical fits")
	}
	if !reflect.DeepEqual(a.Classifier().State(), b.Classifier().State()) {
		t.Error("coefficients differ between identical fits")
	}

	pa, _ := a.Predict(heldOut)
	pb, _ := b.Predict(heldOut)
	if !reflect.DeepEqual(pa, pb) {
		t.Errorf("predictions differ: %v vs %v", pa, pb)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	p, err := New(DefaultOptions()).Fit(trainTexts, trainLabels)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	data, err := p.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	restored, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	want, _ := p.Predict(heldOut)
	got, _ := restored.Predict(heldOut)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("restored predictions %v, want %v", got, want)
	}
}

func TestMarshalUnfitted(t *testing.T) {
	if _, err := New(DefaultOptions()).MarshalJSON(); !errors.Is(err, internalerr.ErrNotFitted) {
		t.Errorf("expected ErrNotFitted, got %v", err)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte("not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if _, err := Decode([]byte(`{"version": 99}`)); err == nil {
		t.Error("expected error for unknown version")
	}
}

func TestFitLengthMismatch(t *testing.T) {
	if _, err := New(DefaultOptions()).Fit([]string{"a"}, nil); err == nil {
		t.Error("expected error for mismatched lengths")
	}
}
