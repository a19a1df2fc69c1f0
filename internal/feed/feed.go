// Package feed renders the blog's RSS 2.0 feed.
package feed

import (
	"fmt"
	"time"

	"github.com/aphexes/flaskblog/internal/models"
	"github.com/beevik/etree"
)

// Build serializes the given posts, newest first, as an RSS 2.0 document.
func Build(baseURL string, posts []models.Post) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	rss := doc.CreateElement("rss")
	rss.CreateAttr("version", "2.0")

	channel := rss.CreateElement("channel")
	channel.CreateElement("title").SetText("Flask Blog")
	channel.CreateElement("link").SetText(baseURL)
	channel.CreateElement("description").SetText("Latest posts")

	for _, p := range posts {
		item := channel.CreateElement("item")
		item.CreateElement("title").SetText(p.Title)
		item.CreateElement("link").SetText(fmt.Sprintf("%s/post/%d", baseURL, p.ID))
		item.CreateElement("guid").SetText(fmt.Sprintf("%s/post/%d", baseURL, p.ID))
		item.CreateElement("author").SetText(p.Author)
		item.CreateElement("description").SetText(p.Content)
		item.CreateElement("pubDate").SetText(p.CreatedAt.Format(time.RFC1123Z))
	}

	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize feed: %w", err)
	}
	return out, nil
}
