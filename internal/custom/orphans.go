package custom

import (
	"strings"

	"github.com/fyrsmithlabs/pipeforge/internal/yamldoc"
)

// CollectOrphans returns copies of the jobs in doc that are neither managed
// nor listed in exclude, in document order. Marker comments are removed
// from the copies.
func CollectOrphans(doc *yamldoc.Document, managed, exclude []string) []yamldoc.Pair {
	if doc == nil {
		return nil
	}
	skip := toSet(managed, exclude)
	var orphans []yamldoc.Pair
	for _, p := range yamldoc.Pairs(doc.Jobs()) {
		if skip[p.Name()] {
			continue
		}
		key, value := yamldoc.Clone(p.Key), yamldoc.Clone(p.Value)
		yamldoc.FilterComments(key, IsMarker)
		yamldoc.FilterComments(value, IsMarker)
		orphans = append(orphans, yamldoc.Pair{Key: key, Value: value})
	}
	return orphans
}

// StripUnmanaged returns a copy of doc whose jobs mapping holds managed
// jobs only.
func StripUnmanaged(doc *yamldoc.Document, managed []string) *yamldoc.Document {
	out := doc.Clone()
	jobs := out.Jobs()
	if jobs == nil {
		return out
	}
	keep := toSet(managed)
	for _, name := range yamldoc.Keys(jobs) {
		if !keep[name] {
			yamldoc.Delete(jobs, name)
		}
	}
	return out
}

// StripSectionJobs returns a copy of doc without the jobs declared between
// the custom markers of text, the source doc was parsed from.
func StripSectionJobs(doc *yamldoc.Document, text string) *yamldoc.Document {
	out := doc.Clone()
	first, last, ok := span(splitLines(text))
	jobs := out.Jobs()
	if !ok || jobs == nil {
		return out
	}
	kept := jobs.Content[:0]
	for i := 0; i+1 < len(jobs.Content); i += 2 {
		line := jobs.Content[i].Line - 1
		if line > first && line < last {
			continue
		}
		kept = append(kept, jobs.Content[i], jobs.Content[i+1])
	}
	jobs.Content = kept
	return out
}

// StripMarkers returns a copy of doc with every marker comment line removed.
func StripMarkers(doc *yamldoc.Document) *yamldoc.Document {
	out := doc.Clone()
	yamldoc.FilterComments(out.Node(), IsMarker)
	return out
}

// RenderPairs encodes job entries as they appear inside a jobs mapping,
// two spaces deep.
func RenderPairs(pairs []yamldoc.Pair) (string, error) {
	if len(pairs) == 0 {
		return "", nil
	}
	doc := yamldoc.New()
	jobs := yamldoc.NewMapping()
	for _, p := range pairs {
		jobs.Content = append(jobs.Content, yamldoc.Clone(p.Key), yamldoc.Clone(p.Value))
	}
	yamldoc.Set(doc.Root(), "jobs", jobs)

	out, err := doc.Encode()
	if err != nil {
		return "", err
	}
	lines := splitLines(strings.TrimRight(string(out), "\n"))
	return strings.Join(trimBlank(lines[1:]), "\n"), nil
}

// Compose joins a sanitized section and rendered orphans into one block.
func Compose(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}

func toSet(lists ...[]string) map[string]bool {
	set := map[string]bool{}
	for _, list := range lists {
		for _, s := range list {
			set[s] = true
		}
	}
	return set
}
