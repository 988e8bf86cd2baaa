package thumbnails

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"mediasync/internal/domain"
	"mediasync/internal/imaging"
	"mediasync/internal/staging/stagingtest"
)

type stubEncoder struct {
	calls int
	err   error
}

func (s *stubEncoder) Encode(src []byte) (*imaging.Derivatives, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &imaging.Derivatives{
		ThumbnailJPEG: append([]byte("tj:"), src...),
		ThumbnailWebP: append([]byte("tw:"), src...),
		LargeJPEG:     append([]byte("lj:"), src...),
		LargeWebP:     append([]byte("lw:"), src...),
	}, nil
}

func TestGenerateStagesFourFilesAndReturnsPublicPaths(t *testing.T) {
	store := stagingtest.New()
	gen := NewGenerator(&stubEncoder{}, store, "images/")

	paths, err := gen.Generate(context.Background(), strings.NewReader("png"), "3-dragon")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := domain.DerivativePaths{
		Thumbnail:     "/images/thumbnails/3-dragon.jpg",
		ThumbnailWebp: "/images/thumbnails/3-dragon.webp",
		Large:         "/images/large/3-dragon.jpg",
		LargeWebp:     "/images/large/3-dragon.webp",
	}
	if paths != want {
		t.Fatalf("paths = %+v, want %+v", paths, want)
	}
	if store.Writes != 4 {
		t.Fatalf("writes = %d, want 4", store.Writes)
	}
	data, ok := store.Data(domain.ClassLarge, "3-dragon.webp")
	if !ok || !bytes.Equal(data, []byte("lw:png")) {
		t.Fatalf("large webp content = %q", data)
	}
}

func TestGenerateAlwaysReencodes(t *testing.T) {
	enc := &stubEncoder{}
	gen := NewGenerator(enc, stagingtest.New(), "/images")

	for i := 0; i < 2; i++ {
		if _, err := gen.Generate(context.Background(), strings.NewReader("png"), "1-a"); err != nil {
			t.Fatalf("Generate: %v", err)
		}
	}
	if enc.calls != 2 {
		t.Fatalf("encoder calls = %d, want 2", enc.calls)
	}
}

func TestGeneratePropagatesDecodeFailure(t *testing.T) {
	store := stagingtest.New()
	gen := NewGenerator(&stubEncoder{err: imaging.ErrUnsupportedImage}, store, "/images")

	_, err := gen.Generate(context.Background(), strings.NewReader("garbage"), "1-a")
	if !errors.Is(err, imaging.ErrUnsupportedImage) {
		t.Fatalf("expected ErrUnsupportedImage, got %v", err)
	}
	if store.Writes != 0 {
		t.Fatalf("expected nothing staged, got %d writes", store.Writes)
	}
}

func TestGenerateRejectsOversizedSource(t *testing.T) {
	gen := NewGenerator(&stubEncoder{}, stagingtest.New(), "/images")
	gen.maxSourceBytes = 4

	_, err := gen.Generate(context.Background(), strings.NewReader("12345"), "1-a")
	if !errors.Is(err, ErrSourceTooLarge) {
		t.Fatalf("expected ErrSourceTooLarge, got %v", err)
	}
}

func TestGenerateSurfacesStagingFailure(t *testing.T) {
	store := stagingtest.New()
	store.WriteErr = errors.New("disk full")
	gen := NewGenerator(&stubEncoder{}, store, "/images")

	if _, err := gen.Generate(context.Background(), strings.NewReader("png"), "1-a"); err == nil {
		t.Fatalf("expected staging error")
	}
}

func TestBaseName(t *testing.T) {
	cases := map[string]domain.MediaItem{
		"12-red-dragon":   {ID: 12, OriginalURL: "/uploads/Red Dragon.PNG"},
		"5-hero_portrait": {ID: 5, OriginalURL: "https://cdn.example.com/a/hero_portrait.jpeg?v=2"},
		"7-media":         {ID: 7, OriginalURL: "/uploads/.png"},
		"9-media":         {ID: 9},
	}
	for want, item := range cases {
		if got := BaseName(item); got != want {
			t.Fatalf("BaseName(%q) = %q, want %q", item.OriginalURL, got, want)
		}
	}
}
