package snapshot

import "context"

// Store persists the latest document. Put always replaces the whole document.
type Store interface {
	Put(ctx context.Context, doc Document, encoded []byte) error
	Latest(ctx context.Context) (Document, bool, error)
}

// Mirror receives a copy of every published document, e.g. object storage.
type Mirror interface {
	Upload(ctx context.Context, doc Document, encoded []byte) error
}
