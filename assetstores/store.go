package assetstores

import (
	"fmt"
	"io"

	"github.com/studymall/studymall/conf"
)

// Store turns a product's file key into a time-limited download URL.
type Store interface {
	SignURL(key string) (string, error)
}

// Streamer is implemented by stores that serve the asset bytes
// directly instead of handing out a URL. The download gate
// type-asserts for it and streams with a Content-Disposition header.
type Streamer interface {
	Open(key string) (io.ReadCloser, int64, error)
}

// NewStore creates the asset store selected by the configuration.
func NewStore(config *conf.Configuration) (Store, error) {
	switch config.Downloads.Provider {
	case "netlify":
		return newNetlifyProvider(config.Downloads.NetlifyToken)
	case "local":
		return newLocalProvider(config.Downloads.LocalRoot)
	case "":
		return newNoopProvider()
	default:
		return nil, fmt.Errorf("Unknown asset store provider '%v'", config.Downloads.Provider)
	}
}
