package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/kpbench/pkg/kpbench/config"
	"github.com/cognicore/kpbench/pkg/kpbench/internalerr"
)

// preset is a named method: the components of a run, minus the corpus.
type preset struct {
	summary    string
	components map[string]any
}

var topK = map[string]any{"type": "unredundant_topk", "k": 10}

var presets = map[string]preset{
	"tfidf": {
		summary: "n-grams ranked by TF-IDF",
		components: map[string]any{
			"candidate_extractor": "ngram",
			"ranker":              "tfidf",
			"selector":            topK,
		},
	},
	"first_position": {
		summary: "noun phrases ranked by first occurrence",
		components: map[string]any{
			"candidate_extractor": "pattern",
			"ranker":              "first_position",
			"selector":            topK,
		},
	},
	"textrank": {
		summary: "noun phrases over the TextRank word graph",
		components: map[string]any{
			"candidate_extractor": "pattern",
			"ranker":              "textrank",
			"selector":            topK,
		},
	},
	"singlerank": {
		summary: "noun phrases over the weighted co-occurrence graph",
		components: map[string]any{
			"candidate_extractor": "pattern",
			"ranker":              "singlerank",
			"selector":            topK,
		},
	},
	"complete": {
		summary: "noun phrases over the distance weighted complete graph",
		components: map[string]any{
			"candidate_extractor": "pattern",
			"ranker":              "complete",
			"selector":            topK,
		},
	},
	"topicrank": {
		summary: "clustered noun phrases over the topic graph",
		components: map[string]any{
			"candidate_extractor": "pattern",
			"candidate_clusterer": "hac",
			"ranker":              "topicrank",
			"selector":            topK,
		},
	},
	"topicrank++": {
		summary: "topic graph biased by domain knowledge from the training references",
		components: map[string]any{
			"candidate_extractor": "pattern",
			"candidate_clusterer": "hac",
			"ranker":              "topicrank++",
			"selector":            topK,
		},
	},
	"clarit96": {
		summary: "CLARIT'96 lexical atoms ranked by TF-IDF",
		components: map[string]any{
			"candidate_extractor": "clarit96",
			"ranker":              "tfidf",
			"selector":            topK,
		},
	},
	"core_words": {
		summary: "expanded core words over the weighted co-occurrence graph",
		components: map[string]any{
			"candidate_extractor": "core_words",
			"ranker":              "singlerank",
			"selector":            topK,
		},
	},
}

func presetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// presetFile builds a one-run file applying the method to the corpus.
func presetFile(method string, corpus config.CorpusSpec) (*config.File, error) {
	p, ok := presets[method]
	if !ok {
		return nil, internalerr.Configf("method", "unknown method %q (known: %v)", method, presetNames())
	}
	if corpus.Path == "" {
		return nil, internalerr.Configf("corpus", "no corpus given")
	}
	run := map[string]any{
		"name":                method,
		"corpus_builder":      corpus,
		"keyphrase_consumers": []string{"prfm", "text", "sqlite"},
	}
	for k, v := range p.components {
		run[k] = v
	}
	data, err := yaml.Marshal(map[string]any{"runs": []any{run}})
	if err != nil {
		return nil, err
	}
	return config.Parse(data)
}

func newMethodsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "methods",
		Short: "List the built-in method presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, name := range presetNames() {
				fmt.Fprintf(tw, "%s\t%s\n", name, presets[name].summary)
			}
			return tw.Flush()
		},
	}
}
