package acquisition

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"
)

func TestAcquirer_AcquireAll(t *testing.T) {
	srv := thumbServer(t)
	descriptors := fixtureList{
		{"A", srv.URL + "/u1.png", "v1"},
		{"B", srv.URL + "/missing/u2.png", "v2"},
		{"C", srv.URL + "/garbage/u3.png", "v3"},
	}.build(t)

	a := NewAcquirer(NewFetcher(0), pngDecoder, 0)
	results := a.AcquireAll(context.Background(), descriptors)

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}

	if !results[0].OK() {
		t.Fatalf("Expected tag 0 to succeed, got %v", results[0].Err)
	}
	if results[0].Image.Tag != 0 {
		t.Errorf("Expected tag 0, got %d", results[0].Image.Tag)
	}
	if results[0].Image.PhysicalWidth != 0.1 {
		t.Errorf("Expected default physical width 0.1, got %v", results[0].Image.PhysicalWidth)
	}
	w, h := results[0].Image.PhysicalSize()
	if w != 0.1 || h != 0.05 {
		t.Errorf("Expected physical size 0.1x0.05, got %vx%v", w, h)
	}

	var fetchErr *FetchError
	if !errors.As(results[1].Err, &fetchErr) || fetchErr.Stage != StageFetch {
		t.Errorf("Expected fetch-stage error for tag 1, got %v", results[1].Err)
	}
	if !errors.Is(results[1].Err, ErrFetch) {
		t.Errorf("Expected ErrFetch for tag 1, got %v", results[1].Err)
	}
	if !errors.As(results[2].Err, &fetchErr) || fetchErr.Stage != StageDecode {
		t.Errorf("Expected decode-stage error for tag 2, got %v", results[2].Err)
	}
}

func TestAcquirer_FeedsBarrier(t *testing.T) {
	srv := thumbServer(t)
	descriptors := fixtureList{
		{"A", srv.URL + "/u1.png", "v1"},
		{"B", srv.URL + "/u2.png", "v2"},
	}.build(t)

	b := NewBarrier(len(descriptors), PolicySettled)
	done := make(chan Snapshot, 1)

	a := NewAcquirer(NewFetcher(0), pngDecoder, 0.2)
	a.Acquire(context.Background(), descriptors, func(r Result) {
		if snap, ok := b.Record(r); ok {
			done <- snap
		}
	})

	select {
	case snap := <-done:
		if snap.Len() != 2 {
			t.Errorf("Expected 2 images, got %d", snap.Len())
		}
		for _, img := range snap.Images() {
			if img.PhysicalWidth != 0.2 {
				t.Errorf("Expected physical width 0.2, got %v", img.PhysicalWidth)
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Barrier never fired")
	}
}

func TestAcquirer_NilDecodeIsAnError(t *testing.T) {
	srv := thumbServer(t)
	descriptors := fixtureList{{"A", srv.URL + "/u1.png", "v1"}}.build(t)

	nilDecoder := DecoderFunc(func([]byte) (image.Image, error) { return nil, nil })
	results := NewAcquirer(NewFetcher(0), nilDecoder, 0).AcquireAll(context.Background(), descriptors)

	if results[0].OK() {
		t.Fatal("Expected failure for empty decode")
	}
}
