package crawler

import (
	"context"

	"github.com/masahif/termspider/internal/parser"
	"github.com/masahif/termspider/internal/rank"
)

// pageProcessor runs the content steps of a crawl cycle over a fetched body.
type pageProcessor struct {
	ranker Ranker
	tagger rank.Tagger
}

func (p *pageProcessor) extract(link, body string) *parser.Document {
	return parser.Parse(body, link)
}

// discover returns the distinct outgoing links of doc in first-seen order.
func (p *pageProcessor) discover(doc *parser.Document) []string {
	seen := make(map[string]struct{})
	var links []string
	for _, link := range doc.OutgoingLinks() {
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}
		links = append(links, link)
	}
	return links
}

// rank builds the text vector and folds in image tags when a tagger is set.
func (p *pageProcessor) rank(ctx context.Context, doc *parser.Document) (rank.Vector, error) {
	vector, err := p.ranker.Build(doc)
	if err != nil {
		return nil, err
	}

	if p.tagger == nil {
		return vector, nil
	}
	images := doc.Images()
	if len(images) == 0 {
		return vector, nil
	}

	return rank.Merge(vector, rank.BuildFromImages(ctx, p.tagger, images)), nil
}
