package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestUploadsRecord(t *testing.T) {
	m := NewUploads("intake")
	reg := prometheus.NewRegistry()
	m.MustRegister(reg)

	m.Started("candidate")
	m.Started("candidate")
	m.Failed("reserve", "")
	m.Completed("s3", 2048, 150*time.Millisecond)

	if got := testutil.ToFloat64(m.Attempts.WithLabelValues("candidate")); got != 2 {
		t.Fatalf("attempts = %v", got)
	}
	if got := testutil.ToFloat64(m.Failures.WithLabelValues("reserve", "none")); got != 1 {
		t.Fatalf("failures = %v", got)
	}
	if got := testutil.ToFloat64(m.Bytes.WithLabelValues("s3")); got != 2048 {
		t.Fatalf("bytes = %v", got)
	}

	path := filepath.Join(t.TempDir(), "intake.prom")
	if err := WriteTextfile(reg, path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "intake_upload_complete_total{provider=\"s3\"} 1") {
		t.Fatalf("textfile missing completion counter:\n%s", data)
	}
}

func TestNilUploadsIsNoop(t *testing.T) {
	var m *Uploads
	m.Started("recruiter")
	m.Failed("upload", "local")
	m.Completed("local", 1, time.Second)
}
