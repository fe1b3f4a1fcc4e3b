package services

import (
  "bytes"
  "fmt"
  "image"
  _ "image/gif"
  _ "image/jpeg"
  _ "image/png"
  "strings"

  _ "golang.org/x/image/webp"
)

// ImageMime reports whether the mime type is an image we can decode.
func ImageMime(mimeType string) bool {
  switch strings.ToLower(strings.TrimSpace(mimeType)) {
  case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
    return true
  }
  return false
}

// DominantColor samples the image on a coarse grid and averages the
// samples into a single hex color. Best effort: the result is cosmetic
// and a decode failure should never fail asset processing.
func DominantColor(data []byte) (string, error) {
  img, _, err := image.Decode(bytes.NewReader(data))
  if err != nil {
    return "", fmt.Errorf("image decode: %w", err)
  }

  bounds := img.Bounds()
  w := bounds.Dx()
  h := bounds.Dy()
  if w == 0 || h == 0 {
    return "", fmt.Errorf("empty image")
  }

  const grid = 16
  stepX := w / grid
  stepY := h / grid
  if stepX < 1 {
    stepX = 1
  }
  if stepY < 1 {
    stepY = 1
  }

  var rSum, gSum, bSum, n uint64
  for y := bounds.Min.Y; y < bounds.Max.Y; y += stepY {
    for x := bounds.Min.X; x < bounds.Max.X; x += stepX {
      r, g, b, a := img.At(x, y).RGBA()
      if a == 0 {
        continue
      }
      rSum += uint64(r >> 8)
      gSum += uint64(g >> 8)
      bSum += uint64(b >> 8)
      n++
    }
  }
  if n == 0 {
    return "", fmt.Errorf("no opaque pixels sampled")
  }

  return fmt.Sprintf("#%02X%02X%02X", uint8(rSum/n), uint8(gSum/n), uint8(bSum/n)), nil
}
