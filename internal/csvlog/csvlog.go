// Package csvlog persists cycle records as flat CSV files: a dense per-cycle
// controller trace and a sparse climate log sampled every few cycles.
package csvlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"hygrostat-ng/internal/control"
	"hygrostat-ng/internal/sensors"
)

// DenseHeader names the per-cycle controller trace fields, in record order.
var DenseHeader = []string{"humidity", "humidify_duty", "proportional_err", "integral_err"}

// SparseHeader names the climate log fields, in record order.
var SparseHeader = []string{"humidity", "temperature"}

// Writer appends records to one CSV target. Whether the target still needs
// its header row is decided once at Open by looking at the file size — an
// explicit capability check, not a probe-open-and-catch.
//
// Not safe for concurrent use.
type Writer struct {
	f  *os.File
	cw *csv.Writer
}

func Open(path string, header []string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("csvlog: open %s: %w", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csvlog: stat %s: %w", path, err)
	}
	w := &Writer{f: f, cw: csv.NewWriter(f)}
	if fi.Size() == 0 {
		if err := w.Append(header...); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Writer) Append(fields ...string) error {
	if err := w.cw.Write(fields); err != nil {
		return fmt.Errorf("csvlog: append: %w", err)
	}
	w.cw.Flush()
	if err := w.cw.Error(); err != nil {
		return fmt.Errorf("csvlog: flush: %w", err)
	}
	return nil
}

func (w *Writer) Close() error {
	if w == nil || w.f == nil {
		return nil
	}
	w.cw.Flush()
	err := w.f.Close()
	w.f = nil
	return err
}

// Recorder implements the control loop's logging contract over the two CSV
// targets.
type Recorder struct {
	dense  *Writer
	sparse *Writer
}

func NewRecorder(dense, sparse *Writer) *Recorder {
	return &Recorder{dense: dense, sparse: sparse}
}

func (r *Recorder) RecordDense(rd sensors.Reading, out control.Output, st control.State) error {
	return r.dense.Append(
		formatFloat(rd.Humidity),
		formatFloat(out.HumidifyDuty),
		formatFloat(out.ProportionalErr),
		formatFloat(st.IntegralErr),
	)
}

func (r *Recorder) RecordSparse(rd sensors.Reading) error {
	return r.sparse.Append(formatFloat(rd.Humidity), formatFloat(rd.Temperature))
}

func (r *Recorder) Close() error {
	err1 := r.dense.Close()
	err2 := r.sparse.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
