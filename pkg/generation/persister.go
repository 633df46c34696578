package generation

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"ai-interior-design-be/pkg/blob"

	"github.com/google/uuid"
)

const maxResultBytes = 20 << 20

// Persister copies a provider output into our own blob storage so the result
// outlives the provider's temporary URL.
type Persister struct {
	store      blob.Store
	httpClient *http.Client
}

func NewPersister(store blob.Store, timeout time.Duration) *Persister {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Persister{
		store:      store,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Persist returns the durable URL of the stored copy. Every failure is a *PersistenceError.
func (p *Persister) Persist(ctx context.Context, sourceURL string, ownerId, designId uuid.UUID) (string, error) {
	fail := func(err error) (string, error) {
		return "", &PersistenceError{SourceURL: sourceURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return fail(err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fail(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResultBytes+1))
	if err != nil {
		return fail(err)
	}
	if len(data) == 0 {
		return fail(fmt.Errorf("empty body"))
	}
	if len(data) > maxResultBytes {
		return fail(fmt.Errorf("result larger than %d bytes", maxResultBytes))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	key := fmt.Sprintf("results/%s/%s%s", ownerId, designId, blob.ExtensionFor(contentType))
	url, err := p.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		return fail(err)
	}
	return url, nil
}
