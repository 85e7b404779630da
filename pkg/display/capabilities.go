package display

// Capabilities describes the display hardware a document is rendered or
// exported for.
type Capabilities struct {
	// Screen specifications
	ScreenWidth  int // Width in pixels
	ScreenHeight int // Height in pixels
	DPI          int // Dots per inch

	// Color support
	SupportsColor bool
	ColorDepth    int // Bits per pixel (8 for 256 grays, 24 for full color)

	// Page image preferences
	MaxImageWidth  int // Maximum recommended page width in pixels
	MaxImageHeight int // Maximum recommended page height in pixels
	ImageQuality   int // JPEG/WebP quality (1-100, higher = better quality)

	// Format preferences
	SupportedImageFormats []string // Supported formats in order of preference
	PreferredImageFormat  string   // Primary format to use

	// Size optimization settings
	CompressionLevel      string // "low", "medium", "high" - file size vs quality
	AggressiveCompression bool   // Use maximum compression for file size
	OptimizeForSize       bool   // Prioritize file size over quality
}

// Profile represents a complete display target profile.
type Profile struct {
	Name         string
	Manufacturer string
	Model        string
	Capabilities Capabilities
}

// Viewport returns the screen dimensions pages are framed against.
func (p *Profile) Viewport() (int, int) {
	return p.Capabilities.ScreenWidth, p.Capabilities.ScreenHeight
}

// ImageSettings returns the page encoding parameters for this profile.
func (p *Profile) ImageSettings() ImageSettings {
	return ImageSettings{
		MaxWidth:         p.Capabilities.MaxImageWidth,
		MaxHeight:        p.Capabilities.MaxImageHeight,
		Quality:          p.Capabilities.ImageQuality,
		Format:           p.Capabilities.PreferredImageFormat,
		Grayscale:        !p.Capabilities.SupportsColor,
		CompressionLevel: p.Capabilities.CompressionLevel,
	}
}

// ImageSettings contains page encoding parameters.
type ImageSettings struct {
	MaxWidth         int
	MaxHeight        int
	Quality          int    // JPEG/WebP quality 1-100
	Format           string // "webp", "jpeg", "png"
	Grayscale        bool
	CompressionLevel string
}
