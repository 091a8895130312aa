package acquisition

import (
	"context"
	"sync"

	"overlayserver/internal/models"
)

// Source fetches raw bytes for a URL.
type Source interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Acquirer fans out one fetch per catalog entry.
type Acquirer struct {
	source        Source
	decoder       Decoder
	physicalWidth float64
}

// NewAcquirer creates an acquirer. physicalWidth is the real-world width in
// meters given to every reference image.
func NewAcquirer(source Source, decoder Decoder, physicalWidth float64) *Acquirer {
	if physicalWidth <= 0 {
		physicalWidth = models.DefaultPhysicalWidth
	}
	return &Acquirer{
		source:        source,
		decoder:       decoder,
		physicalWidth: physicalWidth,
	}
}

// Acquire starts one goroutine per descriptor and returns immediately. sink
// is called once per descriptor, from the fetching goroutine, in completion
// order. There is no concurrency cap and nothing cancels an issued fetch
// except ctx.
func (a *Acquirer) Acquire(ctx context.Context, descriptors []models.ContentDescriptor, sink func(Result)) {
	a.acquire(ctx, descriptors, sink, nil)
}

// AcquireAll fetches every descriptor and waits for all of them to settle.
// Results are indexed by tag.
func (a *Acquirer) AcquireAll(ctx context.Context, descriptors []models.ContentDescriptor) []Result {
	results := make([]Result, len(descriptors))
	var wg sync.WaitGroup
	a.acquire(ctx, descriptors, func(r Result) { results[r.Tag] = r }, &wg)
	wg.Wait()
	return results
}

func (a *Acquirer) acquire(ctx context.Context, descriptors []models.ContentDescriptor, sink func(Result), wg *sync.WaitGroup) {
	for tag, descriptor := range descriptors {
		if wg != nil {
			wg.Add(1)
		}
		go func(tag int, url string) {
			if wg != nil {
				defer wg.Done()
			}
			sink(a.fetchOne(ctx, tag, url))
		}(tag, descriptor.Thumbnail())
	}
}

func (a *Acquirer) fetchOne(ctx context.Context, tag int, url string) Result {
	data, err := a.source.Fetch(ctx, url)
	if err != nil {
		return Result{Tag: tag, URL: url, Err: &FetchError{Tag: tag, URL: url, Stage: StageFetch, Err: err}}
	}

	pixels, err := a.decoder.Decode(data)
	if err == nil && pixels == nil {
		err = errDecodedEmpty
	}
	if err != nil {
		return Result{Tag: tag, URL: url, Err: &FetchError{Tag: tag, URL: url, Stage: StageDecode, Err: err}}
	}

	return Result{
		Tag: tag,
		URL: url,
		Image: &models.RecognizableImage{
			Pixels:        pixels,
			PhysicalWidth: a.physicalWidth,
			Tag:           tag,
		},
	}
}
