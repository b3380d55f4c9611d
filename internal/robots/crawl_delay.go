package robots

import (
	"time"

	"github.com/temoto/robotstxt"
)

// CrawlDelay returns the Crawl-delay that robots.txt text sets for every
// agent, or zero when the text has none or cannot be parsed.
func CrawlDelay(text string) time.Duration {
	data, err := robotstxt.FromString(text)
	if err != nil {
		return 0
	}

	group := data.FindGroup("*")
	if group == nil {
		return 0
	}
	return group.CrawlDelay
}
