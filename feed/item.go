package feed

import (
	"net/url"

	"github.com/briangreenhill/photofeed/decode"
)

// JSON keys of a feed item object.
const (
	KeyAlbumID      = "albumId"
	KeyID           = "id"
	KeyTitle        = "title"
	KeyURL          = "url"
	KeyThumbnailURL = "thumbnailUrl"
)

// Item is one photo in the feed.
type Item struct {
	AlbumID            int    `json:"albumId"`
	ID                 int    `json:"id"`
	Title              string `json:"title"`
	PhotoURLString     string `json:"url"`
	ThumbnailURLString string `json:"thumbnailUrl"`
}

// Schema is the decode schema for Item. All five keys are required.
var Schema = decode.NewSchema(
	decode.IntField(KeyAlbumID, func(it *Item, v int) { it.AlbumID = v }),
	decode.IntField(KeyID, func(it *Item, v int) { it.ID = v }),
	decode.StringField(KeyTitle, func(it *Item, v string) { it.Title = v }),
	decode.StringField(KeyURL, func(it *Item, v string) { it.PhotoURLString = v }),
	decode.StringField(KeyThumbnailURL, func(it *Item, v string) { it.ThumbnailURLString = v }),
)

// PhotoURL returns the full-size photo URL, or nil if the string is not a
// usable absolute URL.
func (it Item) PhotoURL() *url.URL {
	return parseURL(it.PhotoURLString)
}

// ThumbnailURL returns the thumbnail URL, or nil if the string is not a
// usable absolute URL.
func (it Item) ThumbnailURL() *url.URL {
	return parseURL(it.ThumbnailURLString)
}

func parseURL(s string) *url.URL {
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil
	}
	return u
}
