package metrics

import (
	"math"
	"strings"
	"testing"
)

func TestCounter_SameKeyReturnsSameCounter(t *testing.T) {
	c := NewMetricsCollector()
	a := c.Counter("x_total", "help", `rule="length"`)
	b := c.Counter("x_total", "help", `rule="length"`)
	other := c.Counter("x_total", "help", `rule="newlines"`)

	a.Inc()
	b.Add(2)
	if a.Value() != 3 {
		t.Errorf("value = %d, want 3", a.Value())
	}
	if other.Value() != 0 {
		t.Errorf("different labels must not share a counter")
	}
}

func TestHistogram_CumulativeBuckets(t *testing.T) {
	c := NewMetricsCollector()
	h := c.Histogram("len", "help", "", []float64{100, 10, math.Inf(1)})
	for _, v := range []float64{5, 50, 500} {
		h.Observe(v)
	}
	if h.Count() != 3 {
		t.Fatalf("count = %d", h.Count())
	}

	var sb strings.Builder
	if err := c.WriteText(&sb); err != nil {
		t.Fatal(err)
	}
	out := sb.String()
	for _, want := range []string{
		`len_bucket{le="10"} 1`,
		`len_bucket{le="100"} 2`,
		`len_bucket{le="+Inf"} 3`,
		"len_count 3",
		"# TYPE len histogram",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteText_CountersSortedWithSingleHelp(t *testing.T) {
	c := NewMetricsCollector()
	c.Counter("removed_total", "Removed", `rule="repetition"`).Inc()
	c.Counter("removed_total", "Removed", `rule="length"`).Add(4)

	var sb strings.Builder
	if err := c.WriteText(&sb); err != nil {
		t.Fatal(err)
	}
	out := sb.String()

	if strings.Count(out, "# HELP removed_total") != 1 {
		t.Errorf("HELP line should appear once:\n%s", out)
	}
	li := strings.Index(out, `removed_total{rule="length"} 4`)
	ri := strings.Index(out, `removed_total{rule="repetition"} 1`)
	if li < 0 || ri < 0 || li > ri {
		t.Errorf("counters missing or out of order:\n%s", out)
	}
}
