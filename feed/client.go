package feed

import (
	"github.com/rs/zerolog"

	"github.com/briangreenhill/photofeed/client"
	"github.com/briangreenhill/photofeed/transport"
)

// PhotosPath is the collection resource on the feed origin.
const PhotosPath = "photos"

// Client is the typed feed client.
type Client = client.Client[Item]

// NewClient binds tr to the photos collection. onePath, when set, is the
// single-item resource; leave it empty when the origin has none.
func NewClient(tr *transport.Transport, onePath string, maxConcurrent int64, log zerolog.Logger) (*Client, error) {
	return client.New(tr, Schema, client.Config{
		ManyPath:      PhotosPath,
		OnePath:       onePath,
		MaxConcurrent: maxConcurrent,
		Logger:        log,
	})
}
