package pipeline_manager

import (
	"github.com/ecopia-map/las_merger/internal/filter"
	"github.com/ecopia-map/las_merger/internal/transform"
)

// Owns the filter and the transform applied to a merge job
type PipelineManager interface {
	// nil when no criterion was configured
	GetFilter() *filter.Filter
	// nil when no operation was configured
	GetTransform() *transform.Pipeline
	// Logs what the filter dropped and which operations overflowed
	Report()
	Close()
}

// ExtractCommands pulls the transform and filter tokens out of an argument vector. It
// returns them as command strings together with the tokens neither of them recognized.
// Transform tokens are taken first since a filtered transform owns the criteria that follow.
func ExtractCommands(args []string) (filterCommand string, transformCommand string, rest []string, err error) {
	tokens := append([]string(nil), args...)

	t := transform.NewPipeline()
	defer t.Close()
	consumed, err := t.Parse(tokens)
	if err != nil {
		return "", "", nil, err
	}
	blank(tokens, consumed)

	f := filter.NewFilter()
	consumed, err = f.Parse(tokens)
	if err != nil {
		return "", "", nil, err
	}
	blank(tokens, consumed)

	for _, token := range tokens {
		if token != "" {
			rest = append(rest, token)
		}
	}
	return f.Unparse(), t.Unparse(), rest, nil
}

func blank(tokens []string, consumed []int) {
	for _, i := range consumed {
		tokens[i] = ""
	}
}
