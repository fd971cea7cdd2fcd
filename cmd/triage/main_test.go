package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cognicore/triage/internal/fixtures"
	"github.com/cognicore/triage/pkg/triage"
)

func fakeClassify(calls *[]string) classifyFunc {
	return func(ctx context.Context, text string) (triage.Prediction, error) {
		*calls = append(*calls, text)
		return triage.Prediction{Category: "network"}, nil
	}
}

func TestInteractiveRepromptsOnEmptyInput(t *testing.T) {
	var calls []string
	in := strings.NewReader("\n   \nMy internet is very slow\nn\n")
	var out bytes.Buffer

	if err := interactive(context.Background(), in, &out, fakeClassify(&calls), false); err != nil {
		t.Fatalf("interactive: %v", err)
	}

	if len(calls) != 1 || calls[0] != "My internet is very slow" {
		t.Errorf("calls = %q", calls)
	}
	if n := strings.Count(out.String(), "Please enter some text."); n != 2 {
		t.Errorf("expected 2 re-prompts, got %d", n)
	}
	if !strings.Contains(out.String(), `"My internet is very slow" -> network`) {
		t.Errorf("missing prediction in %q", out.String())
	}
}

func TestInteractiveContinues(t *testing.T) {
	var calls []string
	in := strings.NewReader("first\ny\nsecond\nYES\nthird\nno\nignored\n")

	if err := interactive(context.Background(), in, &bytes.Buffer{}, fakeClassify(&calls), false); err != nil {
		t.Fatalf("interactive: %v", err)
	}
	if strings.Join(calls, ",") != "first,second,third" {
		t.Errorf("calls = %q", calls)
	}
}

func TestInteractiveEndOfInput(t *testing.T) {
	var calls []string
	if err := interactive(context.Background(), strings.NewReader("only\n"), &bytes.Buffer{}, fakeClassify(&calls), false); err != nil {
		t.Fatalf("interactive: %v", err)
	}
	if len(calls) != 1 {
		t.Errorf("calls = %q", calls)
	}
}

func run(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("triage %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestTrainClassifyRuns(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "tickets.csv")
	if err := os.WriteFile(data, fixtures.CSV(fixtures.Tickets(80)), 0o644); err != nil {
		t.Fatal(err)
	}
	prom := filepath.Join(dir, "triage.prom")
	common := []string{"--store", "sqlite", "--store-path", filepath.Join(dir, "triage.db"), "--log-level", "error"}

	out := run(t, "", append([]string{"train", "--data", data, "--metrics-textfile", prom}, common...)...)
	for _, want := range []string{"Classification report", "Confusion matrix", "Business insights", "macro avg"} {
		if !strings.Contains(out, want) {
			t.Errorf("train output missing %q", want)
		}
	}
	if _, err := os.Stat(prom); err != nil {
		t.Errorf("metrics textfile not written: %v", err)
	}

	out = run(t, "", append([]string{"classify", "--text", "SIM-Karte funktioniert nicht"}, common...)...)
	if !strings.Contains(out, "-> device") {
		t.Errorf("classify output = %q", out)
	}

	out = run(t, "Kein Netz seit gestern\nn\n", append([]string{"classify"}, common...)...)
	if !strings.Contains(out, "Example predictions") || !strings.Contains(out, `"Kein Netz seit gestern" -> network`) {
		t.Errorf("interactive output = %q", out)
	}

	out = run(t, "", append([]string{"runs"}, common...)...)
	if strings.Contains(out, "No training runs found.") {
		t.Errorf("expected a recorded run, got %q", out)
	}

	out = run(t, "", append([]string{"distribution", "--data", data}, common...)...)
	if !strings.Contains(out, "20.0%") {
		t.Errorf("distribution output = %q", out)
	}
}
