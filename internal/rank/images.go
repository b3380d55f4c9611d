package rank

import "context"

// Tagger labels the content of an image. A nil result means no tags.
type Tagger interface {
	TagsFor(ctx context.Context, imageURL string) []string
}

// BuildFromImages credits ImageWeight to every tag the tagger returns,
// summed across all images.
func BuildFromImages(ctx context.Context, tagger Tagger, images map[string]string) Vector {
	v := make(Vector)
	if tagger == nil {
		return v
	}

	for imageURL := range images {
		if ctx.Err() != nil {
			break
		}
		for _, tag := range tagger.TagsFor(ctx, imageURL) {
			if tag == "" {
				continue
			}
			v[tag] = round4(v[tag] + ImageWeight)
		}
	}

	return v
}
