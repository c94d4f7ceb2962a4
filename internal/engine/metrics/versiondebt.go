package metrics

import (
	"context"
	"fmt"
	"strings"
)

// Timeline is an ordered list of platform versions, oldest first.
type Timeline struct {
	Name     string   `toml:"name" yaml:"name" json:"name"`
	Versions []string `toml:"versions" yaml:"versions" json:"versions"`
}

// DefaultTimelines covers the platform tags emitted by common project
// formats. Configuration may replace them.
func DefaultTimelines() []Timeline {
	return []Timeline{
		{Name: "dotnet", Versions: []string{
			"net20", "net35", "net40", "net45", "net451", "net452", "net46", "net461", "net462",
			"net47", "net471", "net472", "net48", "net481",
			"netcoreapp1.0", "netcoreapp1.1", "netcoreapp2.0", "netcoreapp2.1", "netcoreapp2.2",
			"netcoreapp3.0", "netcoreapp3.1", "net5.0", "net6.0", "net7.0", "net8.0", "net9.0",
		}},
		{Name: "netstandard", Versions: []string{
			"netstandard1.0", "netstandard1.1", "netstandard1.2", "netstandard1.3", "netstandard1.4",
			"netstandard1.5", "netstandard1.6", "netstandard2.0", "netstandard2.1",
		}},
		{Name: "go", Versions: []string{
			"go1.16", "go1.17", "go1.18", "go1.19", "go1.20", "go1.21", "go1.22", "go1.23", "go1.24",
		}},
		{Name: "python", Versions: []string{
			"python3.7", "python3.8", "python3.9", "python3.10", "python3.11", "python3.12", "python3.13",
		}},
		{Name: "java", Versions: []string{"java8", "java11", "java17", "java21"}},
	}
}

// VersionDebtCalculator places a module's platform tag on its timeline:
// the newest version scores 0 and the oldest 100.
type VersionDebtCalculator struct {
	Timelines []Timeline
}

func (c VersionDebtCalculator) Kind() Kind { return KindVersionDebt }

func (c VersionDebtCalculator) Calculate(_ context.Context, in Input) Result {
	res := Result{Kind: KindVersionDebt, Module: in.Node.Name, Platform: in.Node.Platform}
	timelines := c.Timelines
	if len(timelines) == 0 {
		timelines = DefaultTimelines()
	}

	found := false
	for _, tag := range platformTags(in.Node.Platform) {
		timeline, version, score, ok := locate(timelines, tag)
		if !ok {
			continue
		}
		// Multi-targeted modules are held back by their oldest target.
		if !found || score > res.Score {
			res.Score = score
			res.Version = version
			res.Timeline = timeline
		}
		found = true
	}
	if !found {
		res.Score = NeutralScore
		res.Fallback = true
		if strings.TrimSpace(in.Node.Platform) == "" {
			res.Reason = "no platform tag"
		} else {
			res.Reason = fmt.Sprintf("unknown platform %q", in.Node.Platform)
		}
	}
	return res
}

// platformTags splits a multi-target tag and strips OS suffixes such as
// "-windows10.0.19041".
func platformTags(platform string) []string {
	fields := strings.FieldsFunc(strings.ToLower(platform), func(r rune) bool {
		return r == ';' || r == ',' || r == ' '
	})
	tags := make([]string, 0, len(fields))
	for _, f := range fields {
		if idx := strings.IndexByte(f, '-'); idx > 0 {
			f = f[:idx]
		}
		if f != "" {
			tags = append(tags, f)
		}
	}
	return tags
}

// locate matches tag exactly or as a patch release of a listed version.
func locate(timelines []Timeline, tag string) (string, string, float64, bool) {
	for _, t := range timelines {
		n := len(t.Versions)
		for i, v := range t.Versions {
			v = strings.ToLower(strings.TrimSpace(v))
			if tag != v && !strings.HasPrefix(tag, v+".") {
				continue
			}
			if n == 1 {
				return t.Name, v, 0, true
			}
			return t.Name, v, float64(n-1-i) / float64(n-1) * 100, true
		}
	}
	return "", "", 0, false
}
