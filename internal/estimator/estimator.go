package estimator

import (
	"regexp"
	"sort"
)

// FeatureSet is the normalized description of a request's detected
// characteristics. Two FeatureSets with equal content are interchangeable;
// construction order never matters (list fields are kept sorted).
type FeatureSet struct {
	Fields      []string `json:"fields"`
	Responsive  bool     `json:"responsive"`
	Interactive bool     `json:"interactive"`
	Styling     []string `json:"styling"`
	Layout      []string `json:"layout"`
}

// Empty reports whether nothing was detected.
func (f FeatureSet) Empty() bool {
	return len(f.Fields) == 0 && !f.Responsive && !f.Interactive &&
		len(f.Styling) == 0 && len(f.Layout) == 0
}

// Result is the outcome of analyzing one request text.
type Result struct {
	Score    int
	Features FeatureSet
	Hints    []string
}

// Optimization hints appended per detected concern. Consumers treat these as
// opaque tokens.
const (
	HintParallelResponsiveCSS    = "parallel_responsive_css"
	HintSeparateJSGeneration     = "separate_js_generation"
	HintParallelDialogGeneration = "parallel_dialog_generation"
	HintCacheInteractivePatterns = "cache_interactive_patterns"
)

var fieldWeights = map[string]int{
	"text":       1,
	"textarea":   1,
	"richtext":   2,
	"number":     1,
	"checkbox":   1,
	"select":     2,
	"multifield": 3,
	"image":      2,
	"pathfield":  2,
}

const (
	responsiveWeight  = 2
	interactiveWeight = 3
)

type fieldPattern struct {
	kind string
	re   *regexp.Regexp
}

// Declaration order is fixed so detected field lists are stable.
var fieldPatterns = []fieldPattern{
	{"text", regexp.MustCompile(`(?i)text\s+field|title|label|heading`)},
	{"textarea", regexp.MustCompile(`(?i)textarea|description|long text`)},
	{"richtext", regexp.MustCompile(`(?i)rich\s*text|rte|formatted text`)},
	{"number", regexp.MustCompile(`(?i)number|count|quantity`)},
	{"checkbox", regexp.MustCompile(`(?i)checkbox|toggle|boolean`)},
	{"select", regexp.MustCompile(`(?i)select|dropdown|choice`)},
	{"multifield", regexp.MustCompile(`(?i)multifield|multiple|repeatable|carousel|gallery|list of`)},
	{"image", regexp.MustCompile(`(?i)image|picture|photo|carousel`)},
	{"pathfield", regexp.MustCompile(`(?i)path|link|url`)},
}

var (
	responsiveRe  = regexp.MustCompile(`(?i)responsive|mobile|tablet|desktop|breakpoint`)
	interactiveRe = regexp.MustCompile(`(?i)click|hover|animation|transition|lightbox|lazy|loading`)
)

var stylingPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"theme", regexp.MustCompile(`(?i)theme`)},
	{"style", regexp.MustCompile(`(?i)style`)},
	{"color", regexp.MustCompile(`(?i)color`)},
	{"background", regexp.MustCompile(`(?i)background`)},
	{"border", regexp.MustCompile(`(?i)border`)},
	{"shadow", regexp.MustCompile(`(?i)shadow`)},
}

var layoutPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"grid", regexp.MustCompile(`(?i)grid`)},
	{"flex", regexp.MustCompile(`(?i)flex`)},
	{"position", regexp.MustCompile(`(?i)position`)},
	{"alignment", regexp.MustCompile(`(?i)alignment`)},
	{"spacing", regexp.MustCompile(`(?i)spacing`)},
}

// Estimate derives a complexity score and feature set from request text.
// It is pure and total: identical text always yields an identical result,
// and text with no matches yields score 0 with an empty FeatureSet.
func Estimate(text string) Result {
	var out Result

	for _, fp := range fieldPatterns {
		if fp.re.MatchString(text) {
			out.Features.Fields = append(out.Features.Fields, fp.kind)
			w, ok := fieldWeights[fp.kind]
			if !ok {
				w = 1
			}
			out.Score += w
		}
	}
	sort.Strings(out.Features.Fields)

	if responsiveRe.MatchString(text) {
		out.Features.Responsive = true
		out.Score += responsiveWeight
		out.Hints = append(out.Hints, HintParallelResponsiveCSS)
	}
	if interactiveRe.MatchString(text) {
		out.Features.Interactive = true
		out.Score += interactiveWeight
		out.Hints = append(out.Hints, HintSeparateJSGeneration)
	}

	for _, sp := range stylingPatterns {
		if sp.re.MatchString(text) {
			out.Features.Styling = append(out.Features.Styling, sp.name)
		}
	}
	sort.Strings(out.Features.Styling)
	out.Score += len(out.Features.Styling)

	for _, lp := range layoutPatterns {
		if lp.re.MatchString(text) {
			out.Features.Layout = append(out.Features.Layout, lp.name)
		}
	}
	sort.Strings(out.Features.Layout)
	out.Score += len(out.Features.Layout)

	if len(out.Features.Fields) > 3 {
		out.Hints = append(out.Hints, HintParallelDialogGeneration)
	}
	if out.Features.Interactive {
		out.Hints = append(out.Hints, HintCacheInteractivePatterns)
	}

	return out
}
