package ioutils

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	_ "image/png" // PNG decoder registration

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // covers on the CDN are sometimes webp
)

// ImageService prepares album covers for embedding in recorded files.
//
// Example usage:
//
//	svc := NewImageService()
//
//	cover, _ := httpClient.DownloadBytes(ctx, song.AlbumArtURL())
//	jpegCover, err := svc.PrepareCover(ctx, cover, 500)
type ImageService struct {
	// Quality is the JPEG quality used when encoding.
	Quality int
}

// NewImageService creates a new ImageService with JPEG quality 90.
func NewImageService() *ImageService {
	return &ImageService{Quality: 90}
}

// PrepareCover scales the image down to fit within maxSize x maxSize and
// encodes it as JPEG. maxSize <= 0 only re-encodes.
func (s *ImageService) PrepareCover(ctx context.Context, data []byte, maxSize int) ([]byte, error) {
	if maxSize <= 0 {
		return s.ConvertToJPEG(ctx, data)
	}
	return s.ResizeImage(ctx, data, maxSize, maxSize)
}

// ResizeImage resizes an image to fit within the specified maximum dimensions.
//
// The aspect ratio is preserved and images already within bounds keep their
// size. The result is JPEG-encoded. Catmull-Rom is used for scaling.
//
// Example:
//
//	// A 1500x1000 cover becomes 1000x667
//	resized, err := svc.ResizeImage(ctx, imageData, 1000, 1000)
func (s *ImageService) ResizeImage(ctx context.Context, data []byte, maxWidth, maxHeight int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	width, height := fitWithin(img.Bounds().Dx(), img.Bounds().Dy(), maxWidth, maxHeight)

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	return s.encode(dst)
}

// ConvertToJPEG re-encodes an image (JPEG, PNG, WebP) as JPEG.
func (s *ImageService) ConvertToJPEG(ctx context.Context, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return s.encode(img)
}

func (s *ImageService) encode(img image.Image) ([]byte, error) {
	quality := s.Quality
	if quality <= 0 {
		quality = jpeg.DefaultQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fitWithin scales width x height down to fit the bounds, keeping the ratio.
func fitWithin(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= maxWidth && height <= maxHeight {
		return width, height
	}

	ratio := float64(width) / float64(height)
	if float64(maxWidth)/float64(maxHeight) > ratio {
		// Height is the limiting factor
		return max(1, int(float64(maxHeight)*ratio)), maxHeight
	}
	// Width is the limiting factor
	return maxWidth, max(1, int(float64(maxWidth)/ratio))
}
