package export

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/alde/mangaview/pkg/display"
)

// PageProcessor encodes rendered page images for a display target.
type PageProcessor struct {
	profile display.Profile
	tempDir string
}

// NewPageProcessor creates a page processor writing into tempDir.
func NewPageProcessor(profile display.Profile, tempDir string) *PageProcessor {
	return &PageProcessor{
		profile: profile,
		tempDir: tempDir,
	}
}

// ProcessPage fits a rendered page to the profile and encodes it.
// Returns the written file path and its size in bytes.
func (pp *PageProcessor) ProcessPage(img image.Image, page int) (string, int64, error) {
	settings := pp.profile.ImageSettings()

	// Fit within the profile's bounds
	img = pp.resizeImage(img, settings)

	// Convert to grayscale if needed
	if settings.Grayscale {
		img = imaging.Grayscale(img)
	}

	// Determine output format
	outputFormat := pp.selectOptimalFormat(settings)

	outputPath := pp.pagePath(page, outputFormat)

	if err := pp.saveImage(img, outputPath, outputFormat, settings); err != nil {
		return "", 0, fmt.Errorf("failed to save page image: %w", err)
	}

	stat, err := os.Stat(outputPath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to stat page image: %w", err)
	}

	return outputPath, stat.Size(), nil
}

// resizeImage resizes a page to fit display constraints
func (pp *PageProcessor) resizeImage(img image.Image, settings display.ImageSettings) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	// Check if resizing is needed
	if width <= settings.MaxWidth && height <= settings.MaxHeight {
		return img
	}

	// Calculate new dimensions maintaining aspect ratio
	ratio := float64(width) / float64(height)

	var newWidth, newHeight int
	if ratio > float64(settings.MaxWidth)/float64(settings.MaxHeight) {
		// Width is the limiting factor
		newWidth = settings.MaxWidth
		newHeight = int(float64(settings.MaxWidth) / ratio)
	} else {
		// Height is the limiting factor
		newHeight = settings.MaxHeight
		newWidth = int(float64(settings.MaxHeight) * ratio)
	}

	// Use high-quality resampling
	return imaging.Resize(img, newWidth, newHeight, imaging.Lanczos)
}

// selectOptimalFormat chooses the best image format for the display
func (pp *PageProcessor) selectOptimalFormat(settings display.ImageSettings) string {
	// Check if the display supports WebP (best compression)
	for _, format := range pp.profile.Capabilities.SupportedImageFormats {
		if format == "webp" {
			return "webp"
		}
	}

	// Fall back to preferred format
	return settings.Format
}

// pagePath builds the output path for an encoded page
func (pp *PageProcessor) pagePath(page int, format string) string {
	var ext string
	switch format {
	case "webp":
		ext = ".webp"
	case "png":
		ext = ".png"
	default:
		ext = ".jpg"
	}

	return filepath.Join(pp.tempDir, fmt.Sprintf("page_%04d%s", page, ext))
}

// saveImage saves an image in the specified format with optimization
func (pp *PageProcessor) saveImage(img image.Image, outputPath, format string, settings display.ImageSettings) error {
	outFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer outFile.Close()

	switch format {
	case "webp":
		return pp.saveAsWebP(img, outFile, settings)

	case "png":
		return pp.saveAsPNG(img, outFile)

	default: // JPEG
		return pp.saveAsJPEG(img, outFile, settings)
	}
}

// saveAsJPEG saves an image as JPEG with specified quality
func (pp *PageProcessor) saveAsJPEG(img image.Image, file *os.File, settings display.ImageSettings) error {
	quality := settings.Quality

	// Adjust quality based on compression level
	if pp.profile.Capabilities.AggressiveCompression {
		switch settings.CompressionLevel {
		case "high":
			quality = min(quality, 75) // Very aggressive for file size
		case "medium":
			quality = min(quality, 85)
		}
	}

	options := &jpeg.Options{Quality: quality}
	return jpeg.Encode(file, img, options)
}

// saveAsWebP saves an image as WebP with high compression
func (pp *PageProcessor) saveAsWebP(img image.Image, file *os.File, settings display.ImageSettings) error {
	quality := float32(settings.Quality)

	// Adjust quality for WebP - it's more efficient so we can use higher values
	if pp.profile.Capabilities.AggressiveCompression {
		switch settings.CompressionLevel {
		case "high":
			quality = 70 // Very aggressive for WebP
		case "medium":
			quality = 80
		default:
			quality = 75
		}
	}

	options := &webp.Options{
		Lossless: false,
		Quality:  quality,
	}

	return webp.Encode(file, img, options)
}

// saveAsPNG saves an image as PNG
func (pp *PageProcessor) saveAsPNG(img image.Image, file *os.File) error {
	encoder := &png.Encoder{
		CompressionLevel: png.BestCompression, // Always use best compression for file size
	}
	return encoder.Encode(file, img)
}

// Cleanup removes the temporary page images
func (pp *PageProcessor) Cleanup() error {
	if pp.tempDir == "" {
		return nil
	}
	return os.RemoveAll(pp.tempDir)
}

// ImageStats contains statistics about page encoding
type ImageStats struct {
	TotalImages      int
	ProcessedImages  int
	OriginalSize     int64
	OptimizedSize    int64
	CompressionRatio float64
}

// CalculateImageStats calculates compression statistics
func CalculateImageStats(originalSizes, optimizedSizes []int64) ImageStats {
	var totalOriginal, totalOptimized int64

	for _, size := range originalSizes {
		totalOriginal += size
	}

	for _, size := range optimizedSizes {
		totalOptimized += size
	}

	ratio := 0.0
	if totalOriginal > 0 {
		ratio = float64(totalOptimized) / float64(totalOriginal)
	}

	return ImageStats{
		TotalImages:      len(originalSizes),
		ProcessedImages:  len(optimizedSizes),
		OriginalSize:     totalOriginal,
		OptimizedSize:    totalOptimized,
		CompressionRatio: ratio,
	}
}
