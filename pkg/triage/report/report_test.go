package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/triage/pkg/triage/eval"
	"github.com/cognicore/triage/pkg/triage/store"
)

var labels = []string{"billing", "contract", "device", "network", "other"}

// sampleReport has perfect billing and network, one device ticket predicted
// as network, and otherwise correct predictions.
func sampleReport(t *testing.T) (eval.Confusion, eval.Report) {
	t.Helper()
	yTrue := []string{"billing", "billing", "contract", "device", "device", "network", "other"}
	yPred := []string{"billing", "billing", "contract", "device", "network", "network", "other"}
	m, err := eval.NewConfusion(yTrue, yPred, labels)
	require.NoError(t, err)
	return m, eval.Metrics(m)
}

func TestMetricsTable(t *testing.T) {
	_, r := sampleReport(t)

	var buf bytes.Buffer
	MetricsTable(&buf, r)
	out := buf.String()

	for _, want := range []string{"billing", "other", "accuracy", "macro avg", "weighted avg", "0.857"} {
		assert.Contains(t, out, want)
	}
}

func TestConfusionTable(t *testing.T) {
	m, _ := sampleReport(t)

	var buf bytes.Buffer
	ConfusionTable(&buf, m)

	lines := strings.Split(buf.String(), "\n")
	var deviceRow string
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "device") {
			deviceRow = l
		}
	}
	require.NotEmpty(t, deviceRow)
	var cells []string
	for _, f := range strings.Fields(deviceRow) {
		if f != "|" {
			cells = append(cells, f)
		}
	}
	assert.Equal(t, []string{"device", "0", "0", "1", "1", "0"}, cells)
}

func TestDistributionTable(t *testing.T) {
	var buf bytes.Buffer
	DistributionTable(&buf, map[string]int{"billing": 30, "network": 10})
	out := buf.String()

	assert.Contains(t, out, "75.0%")
	assert.Contains(t, out, "25.0%")
	assert.Less(t, strings.Index(out, "billing"), strings.Index(out, "network"))
}

func TestRunsTable(t *testing.T) {
	var buf bytes.Buffer
	RunsTable(&buf, []store.Run{{
		ID:        "01HZX3Q6W7",
		StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Duration:  2 * time.Second,
		TrainSize: 300,
		TestSize:  100,
		Accuracy:  0.91,
		Converged: true,
	}})

	out := buf.String()
	assert.Contains(t, out, "01HZX3Q6W7")
	assert.Contains(t, out, "0.910")
	assert.Contains(t, out, "300")
}

func TestProbabilityTableOrder(t *testing.T) {
	var buf bytes.Buffer
	ProbabilityTable(&buf, []string{"billing", "network"}, []float64{0.2, 0.8})
	out := buf.String()
	assert.Less(t, strings.Index(out, "network"), strings.Index(out, "billing"))
}

func TestInsights(t *testing.T) {
	_, r := sampleReport(t)

	insights := Insights(r)
	require.Len(t, insights, len(labels))

	byCat := map[string]Insight{}
	for _, in := range insights {
		byCat[in.Category] = in
	}
	assert.True(t, byCat["billing"].Reliable)
	assert.False(t, byCat["device"].Reliable, "device recall is 0.5")
	assert.Contains(t, byCat["device"].String(), "lower recall may cause misrouting delays")
	assert.Contains(t, byCat["network"].String(), "reliably detected")

	var buf bytes.Buffer
	WriteInsights(&buf, r)
	assert.Equal(t, len(labels), strings.Count(buf.String(), "\n"))
}

func TestWriteTextfile(t *testing.T) {
	_, r := sampleReport(t)
	path := filepath.Join(t.TempDir(), "triage.prom")

	run := store.Run{StartedAt: time.Unix(1700000000, 0), Duration: 1500 * time.Millisecond}
	require.NoError(t, WriteTextfile(path, r, run))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, `triage_class_recall{category="device"} 0.5`)
	assert.Contains(t, out, `triage_class_support{category="billing"} 2`)
	assert.Contains(t, out, "triage_train_duration_seconds 1.5")
	assert.Contains(t, out, "# TYPE triage_accuracy gauge")
}
