// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package worker

import (
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
)

func writeTestFrame(t *testing.T, fill func(x, y int) color.Gray) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetGray(x, y, fill(x, y))
		}
	}
	path := filepath.Join(t.TempDir(), "frame.jpg")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create frame: %v", err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 100}); err != nil {
		t.Fatalf("encode frame: %v", err)
	}
	return path
}

func TestAverageHashIdenticalFramesMatch(t *testing.T) {
	path := writeTestFrame(t, func(x, y int) color.Gray {
		if x < 4 {
			return color.Gray{Y: 0}
		}
		return color.Gray{Y: 255}
	})

	h1, err := averageHash(path)
	if err != nil {
		t.Fatalf("averageHash() failed: %v", err)
	}
	h2, err := averageHash(path)
	if err != nil {
		t.Fatalf("averageHash() failed: %v", err)
	}
	if h1 != h2 {
		t.Errorf("hash of identical frame differs: %x vs %x", h1, h2)
	}
	if hammingDistance(h1, h2) != 0 {
		t.Errorf("hammingDistance of identical hashes = %d, want 0", hammingDistance(h1, h2))
	}
}

func TestAverageHashDistinguishesDifferentFrames(t *testing.T) {
	darkHalf := writeTestFrame(t, func(x, y int) color.Gray {
		if x < 4 {
			return color.Gray{Y: 0}
		}
		return color.Gray{Y: 255}
	})
	inverted := writeTestFrame(t, func(x, y int) color.Gray {
		if x < 4 {
			return color.Gray{Y: 255}
		}
		return color.Gray{Y: 0}
	})

	h1, err := averageHash(darkHalf)
	if err != nil {
		t.Fatalf("averageHash() failed: %v", err)
	}
	h2, err := averageHash(inverted)
	if err != nil {
		t.Fatalf("averageHash() failed: %v", err)
	}
	if hammingDistance(h1, h2) == 0 {
		t.Error("expected distinct hashes for inverted frames")
	}
}
