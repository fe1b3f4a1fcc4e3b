package services

import (
  "bytes"
  "image"
  "image/color"
  "image/png"
  "testing"
)

func solidPNG(t *testing.T, c color.RGBA, w, h int) []byte {
  t.Helper()
  img := image.NewRGBA(image.Rect(0, 0, w, h))
  for y := 0; y < h; y++ {
    for x := 0; x < w; x++ {
      img.Set(x, y, c)
    }
  }
  var buf bytes.Buffer
  if err := png.Encode(&buf, img); err != nil {
    t.Fatalf("png encode: %v", err)
  }
  return buf.Bytes()
}

func TestDominantColorSolidImage(t *testing.T) {
  data := solidPNG(t, color.RGBA{R: 255, G: 0, B: 0, A: 255}, 64, 64)
  got, err := DominantColor(data)
  if err != nil {
    t.Fatalf("dominant color: %v", err)
  }
  if got != "#FF0000" {
    t.Fatalf("got %s, want #FF0000", got)
  }
}

func TestDominantColorTinyImage(t *testing.T) {
  data := solidPNG(t, color.RGBA{R: 0, G: 128, B: 255, A: 255}, 2, 2)
  got, err := DominantColor(data)
  if err != nil {
    t.Fatalf("dominant color: %v", err)
  }
  if got != "#0080FF" {
    t.Fatalf("got %s, want #0080FF", got)
  }
}

func TestDominantColorRejectsGarbage(t *testing.T) {
  if _, err := DominantColor([]byte("not an image")); err == nil {
    t.Fatal("expected decode error")
  }
}

func TestImageMime(t *testing.T) {
  for mime, want := range map[string]bool{
    "image/png":       true,
    "image/jpeg":      true,
    "image/webp":      true,
    "video/mp4":       false,
    "application/pdf": false,
  } {
    if got := ImageMime(mime); got != want {
      t.Errorf("ImageMime(%q) = %v, want %v", mime, got, want)
    }
  }
}
