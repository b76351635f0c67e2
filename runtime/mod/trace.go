package mod

import (
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pixiebrix/pixiebrix-extension-sub012/core/errors"
	"github.com/pixiebrix/pixiebrix-extension-sub012/core/pipeline"
	"github.com/pixiebrix/pixiebrix-extension-sub012/runtime/analysis"
)

// ParseTrace decodes a trace file: a JSON or YAML mapping from brick
// position to the template context the brick ran with.
func ParseTrace(data []byte) (map[string]analysis.TraceRecord, error) {
	var raw map[string]map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errors.ErrTraceParse, "invalid trace file", err)
	}

	traces := make(map[string]analysis.TraceRecord, len(raw))
	root := pipeline.RootPosition.String()
	for pos, ctx := range raw {
		if pos != root && !strings.HasPrefix(pos, root+".") {
			return nil, errors.Newf(errors.ErrTraceParse, "trace key %q is not a pipeline position", pos).
				WithContext("position", pos)
		}
		record := make(analysis.TraceRecord, len(ctx))
		for name, v := range ctx {
			if !strings.HasPrefix(name, "@") {
				return nil, errors.Newf(errors.ErrTraceParse, "trace variable %q must start with @", name).
					WithContext("position", pos)
			}
			record[name] = normalize(v)
		}
		traces[pos] = record
	}
	return traces, nil
}

// LoadTrace reads a trace file from r.
func LoadTrace(r io.Reader) (map[string]analysis.TraceRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrTraceParse, "failed to read trace", err)
	}
	return ParseTrace(data)
}

// LoadTraceFile reads a trace file, or standard input for "-".
func LoadTraceFile(path string) (map[string]analysis.TraceRecord, error) {
	data, err := readPath(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrTraceParse, "failed to read trace", err).
			WithContext("path", path)
	}
	traces, err := ParseTrace(data)
	if err != nil {
		if ae, ok := err.(*errors.AnalysisError); ok {
			return nil, ae.WithContext("path", path)
		}
		return nil, err
	}
	return traces, nil
}
