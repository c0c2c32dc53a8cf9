// Package query implements the read-side query facade (spec §4.4, §4.6):
// point reads by absolute path, buffered-history reads, and the min/max/
// mean/stddev aggregates over a resolved time window.
package query

import (
	"math"
	"strings"

	"github.com/jtchitty/legatoDataHub/internal/errs"
	"github.com/jtchitty/legatoDataHub/internal/resource"
	"github.com/jtchitty/legatoDataHub/internal/sample"
	"github.com/jtchitty/legatoDataHub/internal/tree"
)

// secondsIn30Years is the startAfter magnitude boundary between "relative
// seconds" and "absolute epoch seconds" (spec §4.4).
const secondsIn30Years = 30 * 365.25 * 24 * 3600

// Facade exposes the read-side operations over t.
type Facade struct {
	tree *tree.Tree
}

// New creates a Facade over t.
func New(t *tree.Tree) *Facade {
	return &Facade{tree: t}
}

// resolve looks up path and returns its resource state, applying the
// not-found/unsupported/unavailable classification shared by every facade
// read (spec §4.6).
func (f *Facade) resolve(path string) (*tree.Entry, *resource.State, error) {
	e, err := f.tree.FindAtAbsolute(path)
	if err != nil {
		return nil, nil, errs.ErrNotFound
	}
	if e.Role == tree.RoleNamespace {
		return nil, nil, errs.ErrUnsupported
	}
	st := resource.Of(e)
	if st == nil {
		return e, nil, errs.ErrUnavailable
	}
	return e, st, nil
}

func (f *Facade) current(path string) (*tree.Entry, *resource.State, *sample.Sample, error) {
	f.tree.Lock()
	defer f.tree.Unlock()

	e, st, err := f.resolve(path)
	if err != nil {
		return nil, nil, nil, err
	}
	cur, ok := st.CurrentOrDefault()
	if !ok {
		return e, st, nil, errs.ErrUnavailable
	}
	return e, st, cur, nil
}

// GetDataType returns the dataType of the resource at path.
func (f *Facade) GetDataType(path string) (sample.Kind, error) {
	f.tree.Lock()
	defer f.tree.Unlock()
	_, st, err := f.resolve(path)
	if err != nil {
		return 0, err
	}
	return st.DataType, nil
}

// GetUnits returns the units string of the resource at path.
func (f *Facade) GetUnits(path string) (string, error) {
	f.tree.Lock()
	defer f.tree.Unlock()
	_, st, err := f.resolve(path)
	if err != nil {
		return "", err
	}
	return st.Units, nil
}

// GetTimestamp returns the current value's timestamp.
func (f *Facade) GetTimestamp(path string) (float64, error) {
	_, _, cur, err := f.current(path)
	if err != nil {
		return 0, err
	}
	return cur.Timestamp(), nil
}

// GetBoolean returns the current value as Boolean (spec §4.6: format-error
// if the resource's dataType isn't Boolean).
func (f *Facade) GetBoolean(path string) (bool, error) {
	_, st, cur, err := f.current(path)
	if err != nil {
		return false, err
	}
	if st.DataType != sample.Boolean {
		return false, errs.ErrFormatError
	}
	v, _ := cur.Bool()
	return v, nil
}

// GetNumeric returns the current value as Numeric.
func (f *Facade) GetNumeric(path string) (float64, error) {
	_, st, cur, err := f.current(path)
	if err != nil {
		return 0, err
	}
	if st.DataType != sample.Numeric {
		return 0, errs.ErrFormatError
	}
	v, _ := cur.Float()
	return v, nil
}

// GetString returns the current value as String.
func (f *Facade) GetString(path string) (string, error) {
	_, st, cur, err := f.current(path)
	if err != nil {
		return "", err
	}
	if st.DataType != sample.String {
		return "", errs.ErrFormatError
	}
	v, _ := cur.Text()
	return v, nil
}

// GetJSON projects the current value to its JSON representation,
// regardless of dataType (spec §4.2, §4.6: "getJson ... projects any
// kind").
func (f *Facade) GetJSON(path string) (string, error) {
	_, _, cur, err := f.current(path)
	if err != nil {
		return "", err
	}
	return cur.JSONValue(), nil
}

// resolveStartAfter implements the startAfter resolution rules (spec
// §4.4): NaN means "whole buffer"; non-positive is a contract violation;
// below the 30-year boundary is relative-to-now seconds; at or above it is
// an absolute epoch timestamp.
func resolveStartAfter(startAfter, now float64) (threshold float64, whole bool, err error) {
	if math.IsNaN(startAfter) {
		return 0, true, nil
	}
	if startAfter <= 0 {
		return 0, false, errs.NewViolation("startAfter must be positive or NaN")
	}
	if startAfter < secondsIn30Years {
		return now - startAfter, false, nil
	}
	return startAfter, false, nil
}

// ReadBufferJSON returns the buffered samples at path with timestamp at or
// after the resolved startAfter, rendered as a JSON array of buffer-entry
// objects (spec §4.2, §4.4's readBufferJson). Unlike the source's
// sink/onCompletion callback shape, this returns the rendered array
// synchronously: the push pipeline this module implements is itself
// synchronous (spec §5), so there is no "writing proceeds asynchronously"
// case to model — the whole-transaction guarantee the source calls for is
// satisfied for free by building the array under the tree lock.
func (f *Facade) ReadBufferJSON(path string, startAfter, now float64) (string, error) {
	f.tree.Lock()
	defer f.tree.Unlock()

	_, st, err := f.resolve(path)
	if err != nil {
		return "", err
	}
	if st.Buffer == nil {
		return "", errs.ErrUnsupported
	}

	threshold, whole, err := resolveStartAfter(startAfter, now)
	if err != nil {
		return "", err
	}

	var entries []*sample.Sample
	if whole {
		entries = st.Buffer.Entries()
	} else {
		entries = st.Buffer.Since(threshold)
	}

	var b strings.Builder
	b.WriteByte('[')
	for i, s := range entries {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s.BufferEntryJSON())
	}
	b.WriteByte(']')
	return b.String(), nil
}

// aggregateSource returns the numeric samples at path with timestamp at or
// after the resolved startAfter.
func (f *Facade) aggregateSource(path string, startAfter, now float64) ([]float64, error) {
	f.tree.Lock()
	defer f.tree.Unlock()

	_, st, err := f.resolve(path)
	if err != nil {
		return nil, err
	}
	if st.Buffer == nil {
		return nil, errs.ErrUnsupported
	}
	threshold, whole, err := resolveStartAfter(startAfter, now)
	if err != nil {
		return nil, err
	}

	var entries []*sample.Sample
	if whole {
		entries = st.Buffer.Entries()
	} else {
		entries = st.Buffer.Since(threshold)
	}

	out := make([]float64, 0, len(entries))
	for _, s := range entries {
		if v, ok := s.Float(); ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// Min returns the minimum numeric value in the resolved window, or NaN if
// the buffer is empty or non-numeric (spec §4.4).
func (f *Facade) Min(path string, startAfter, now float64) (float64, error) {
	vs, err := f.aggregateSource(path, startAfter, now)
	if err != nil {
		return math.NaN(), err
	}
	if len(vs) == 0 {
		return math.NaN(), nil
	}
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m, nil
}

// Max returns the maximum numeric value in the resolved window.
func (f *Facade) Max(path string, startAfter, now float64) (float64, error) {
	vs, err := f.aggregateSource(path, startAfter, now)
	if err != nil {
		return math.NaN(), err
	}
	if len(vs) == 0 {
		return math.NaN(), nil
	}
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m, nil
}

// Mean returns the arithmetic mean of the numeric values in the resolved
// window.
func (f *Facade) Mean(path string, startAfter, now float64) (float64, error) {
	vs, err := f.aggregateSource(path, startAfter, now)
	if err != nil {
		return math.NaN(), err
	}
	if len(vs) == 0 {
		return math.NaN(), nil
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs)), nil
}

// StdDev returns the population standard deviation (N denominator) of the
// numeric values in the resolved window, matching the spec's stated
// preference for low-sample-count sensor use (spec §4.4) — see DESIGN.md
// for the sample-vs-population choice.
func (f *Facade) StdDev(path string, startAfter, now float64) (float64, error) {
	vs, err := f.aggregateSource(path, startAfter, now)
	if err != nil {
		return math.NaN(), err
	}
	if len(vs) == 0 {
		return math.NaN(), nil
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	mean := sum / float64(len(vs))

	var sq float64
	for _, v := range vs {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(vs))), nil
}
