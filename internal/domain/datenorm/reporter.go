package datenorm

// Reporter receives data-quality findings from date-ordered computations.
// A cell whose date cannot be parsed is still "observed"; it is only left
// out of ordering and cumulative counting, and reported here.
type Reporter interface {
	ReportUnparseable(species, observer, raw string)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(species, observer, raw string)

// ReportUnparseable calls f.
func (f ReporterFunc) ReportUnparseable(species, observer, raw string) { f(species, observer, raw) }

// Discard drops every report.
var Discard Reporter = ReporterFunc(func(string, string, string) {})
