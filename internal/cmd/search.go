package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/masahif/termspider/internal/rank"
	"github.com/masahif/termspider/internal/textproc"
)

// errNoQueryTerms is returned when every query word is a stopword.
var errNoQueryTerms = errors.New("query has no searchable terms")

var searchCmd = &cobra.Command{
	Use:   "search <terms...>",
	Short: "Rank stored pages against query terms",
	Long: `Search stems the query terms the same way pages are indexed and lists
stored pages ordered by the summed weight of the matching terms.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntP("top", "n", 20, "Maximum number of results")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	stopwords := textproc.DefaultStopwords()
	if cfg.StopwordsPath != "" {
		if stopwords, err = textproc.LoadStopwords(cfg.StopwordsPath); err != nil {
			return err
		}
	}

	terms := queryTerms(args, textproc.NewPorter2(), stopwords)
	if len(terms) == 0 {
		return errNoQueryTerms
	}

	store, err := openExistingStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	top, _ := cmd.Flags().GetInt("top")
	results, err := store.Search(commandContext(cmd), terms, top)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintf(out, "No pages match %s\n", strings.Join(terms, ", "))
		return nil
	}

	t := newTable(out)
	t.AppendHeader(table.Row{"#", "URL", "Title", "Score", "Matched"})
	for i, r := range results {
		t.AppendRow(table.Row{i + 1, r.URL, r.Title, fmt.Sprintf("%.4f", r.Score), fmt.Sprintf("%d/%d", r.Matched, len(terms))})
	}
	t.Render()
	return nil
}

// queryTerms splits the query words the way page text is indexed, then
// stems them, dropping stopwords and duplicates.
func queryTerms(args []string, stemmer textproc.Stemmer, stopwords *textproc.StopwordSet) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, arg := range args {
		for _, word := range rank.Words(arg) {
			if stopwords.Contains(word) {
				continue
			}
			term := stemmer.Stem(word)
			if _, dup := seen[term]; dup {
				continue
			}
			seen[term] = struct{}{}
			terms = append(terms, term)
		}
	}
	return terms
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}
