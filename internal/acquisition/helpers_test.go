package acquisition

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"overlayserver/internal/models"
)

// pngBytes encodes a w×h image for serving from test servers.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode png: %v", err)
	}
	return buf.Bytes()
}

var pngDecoder = DecoderFunc(func(data []byte) (image.Image, error) {
	return png.Decode(bytes.NewReader(data))
})

// thumbServer serves a png for every path except those starting with /missing
// or /garbage.
func thumbServer(t *testing.T) *httptest.Server {
	t.Helper()
	body := pngBytes(t, 40, 20)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/missing"):
			http.NotFound(w, r)
		case strings.HasPrefix(r.URL.Path, "/garbage"):
			w.Write([]byte("not an image"))
		default:
			w.Write(body)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func descriptor(t *testing.T, title, thumb, movie string) models.ContentDescriptor {
	t.Helper()
	tu, err := url.Parse(thumb)
	if err != nil {
		t.Fatalf("bad thumb url: %v", err)
	}
	mu, err := url.Parse(movie)
	if err != nil {
		t.Fatalf("bad movie url: %v", err)
	}
	return models.ContentDescriptor{Title: title, ThumbnailURL: tu, VideoURL: mu}
}

func okResult(tag int) Result {
	return Result{
		Tag: tag,
		URL: "u",
		Image: &models.RecognizableImage{
			Pixels:        image.NewGray(image.Rect(0, 0, 4, 2)),
			PhysicalWidth: models.DefaultPhysicalWidth,
			Tag:           tag,
		},
	}
}

func failedResult(tag int) Result {
	return Result{Tag: tag, URL: "u", Err: &FetchError{Tag: tag, URL: "u", Stage: StageFetch, Err: http.ErrHandlerTimeout}}
}

type fixture struct {
	title, thumb, movie string
}

type fixtureList []fixture

func (l fixtureList) build(t *testing.T) []models.ContentDescriptor {
	t.Helper()
	out := make([]models.ContentDescriptor, len(l))
	for i, f := range l {
		out[i] = descriptor(t, f.title, f.thumb, f.movie)
	}
	return out
}
