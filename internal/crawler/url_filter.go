package crawler

import (
	"fmt"
	"regexp"

	"github.com/masahif/termspider/internal/linknorm"
)

// LinkFilter decides which discovered links enter the queue. Without
// patterns and with external hosts allowed, every link passes.
type LinkFilter struct {
	followExternal bool
	hosts          map[string]struct{}
	include        []*regexp.Regexp
	exclude        []*regexp.Regexp
}

// NewLinkFilter compiles the include and exclude patterns. When
// followExternal is false only hosts of the seed links are allowed.
func NewLinkFilter(seeds, include, exclude []string, followExternal bool) (*LinkFilter, error) {
	f := &LinkFilter{
		followExternal: followExternal,
		hosts:          make(map[string]struct{}),
	}

	for _, seed := range seeds {
		link, ok := linknorm.Normalize("", seed)
		if !ok {
			continue
		}
		if host, ok := linknorm.Host(link); ok {
			f.hosts[host] = struct{}{}
		}
	}

	var err error
	if f.include, err = compilePatterns(include); err != nil {
		return nil, err
	}
	if f.exclude, err = compilePatterns(exclude); err != nil {
		return nil, err
	}
	return f, nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid URL pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// Allow reports whether link may be queued. Exclude patterns win over
// include patterns.
func (f *LinkFilter) Allow(link string) bool {
	if !f.followExternal {
		host, ok := linknorm.Host(link)
		if !ok {
			return false
		}
		if _, ok := f.hosts[host]; !ok {
			return false
		}
	}

	if len(f.include) > 0 {
		matched := false
		for _, re := range f.include {
			if re.MatchString(link) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	for _, re := range f.exclude {
		if re.MatchString(link) {
			return false
		}
	}
	return true
}

// FilteredFrontier forwards only links accepted by a LinkFilter.
type FilteredFrontier struct {
	next   Frontier
	filter *LinkFilter
}

// NewFilteredFrontier wraps next. A nil filter forwards everything.
func NewFilteredFrontier(next Frontier, filter *LinkFilter) *FilteredFrontier {
	return &FilteredFrontier{next: next, filter: filter}
}

// Push forwards the links the filter allows and returns what the wrapped
// frontier accepted of them.
func (f *FilteredFrontier) Push(links ...string) []string {
	if f.filter == nil {
		return f.next.Push(links...)
	}

	allowed := make([]string, 0, len(links))
	for _, link := range links {
		if f.filter.Allow(link) {
			allowed = append(allowed, link)
		}
	}
	return f.next.Push(allowed...)
}
