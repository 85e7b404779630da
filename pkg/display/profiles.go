package display

import (
	"fmt"
	"strings"
)

// Available display profiles
var profiles = map[string]Profile{
	"kobo": {
		Name:         "Kobo Libra Colour",
		Manufacturer: "Kobo",
		Model:        "Libra Colour",
		Capabilities: Capabilities{
			ScreenWidth:  1264,
			ScreenHeight: 1680,
			DPI:          300,

			SupportsColor: true,
			ColorDepth:    24,

			MaxImageWidth:  1200, // Slightly smaller than screen for margins
			MaxImageHeight: 1600,
			ImageQuality:   85, // Good balance for color panels

			SupportedImageFormats: []string{"webp", "jpeg", "png"},
			PreferredImageFormat:  "webp", // WebP for best compression

			CompressionLevel:      "high",
			AggressiveCompression: true,
			OptimizeForSize:       true,
		},
	},
	"kobo-bw": {
		Name:         "Kobo Clara/Libra (B&W)",
		Manufacturer: "Kobo",
		Model:        "Clara/Libra B&W",
		Capabilities: Capabilities{
			ScreenWidth:  1264,
			ScreenHeight: 1680,
			DPI:          300,

			SupportsColor: false,
			ColorDepth:    8,

			MaxImageWidth:  1200,
			MaxImageHeight: 1600,
			ImageQuality:   90, // Screentone detail needs the extra quality

			SupportedImageFormats: []string{"webp", "jpeg", "png"},
			PreferredImageFormat:  "webp",

			CompressionLevel:      "high",
			AggressiveCompression: true,
			OptimizeForSize:       true,
		},
	},
	"kindle": {
		Name:         "Kindle Paperwhite",
		Manufacturer: "Amazon",
		Model:        "Paperwhite",
		Capabilities: Capabilities{
			ScreenWidth:  1236,
			ScreenHeight: 1648,
			DPI:          300,

			SupportsColor: false,
			ColorDepth:    8,

			MaxImageWidth:  1200,
			MaxImageHeight: 1600,
			ImageQuality:   85,

			SupportedImageFormats: []string{"jpeg", "png"}, // Kindle doesn't support WebP
			PreferredImageFormat:  "jpeg",

			CompressionLevel:      "high",
			AggressiveCompression: true,
			OptimizeForSize:       true,
		},
	},
	"tablet": {
		Name:         "Color Tablet",
		Manufacturer: "Generic",
		Model:        "10-inch Tablet",
		Capabilities: Capabilities{
			ScreenWidth:  1600,
			ScreenHeight: 2560,
			DPI:          264,

			SupportsColor: true,
			ColorDepth:    24,

			MaxImageWidth:  1600,
			MaxImageHeight: 2560,
			ImageQuality:   90, // Storage is cheap on tablets

			SupportedImageFormats: []string{"webp", "jpeg", "png"},
			PreferredImageFormat:  "webp",

			CompressionLevel:      "low",
			AggressiveCompression: false,
			OptimizeForSize:       false,
		},
	},
	"generic": {
		Name:         "Generic E-Reader",
		Manufacturer: "Generic",
		Model:        "Standard",
		Capabilities: Capabilities{
			ScreenWidth:  800,
			ScreenHeight: 1200,
			DPI:          200,

			SupportsColor: false,
			ColorDepth:    8,

			MaxImageWidth:  750,
			MaxImageHeight: 1100,
			ImageQuality:   75,

			SupportedImageFormats: []string{"jpeg", "png"}, // Conservative format support
			PreferredImageFormat:  "jpeg",

			CompressionLevel:      "high",
			AggressiveCompression: true,
			OptimizeForSize:       true,
		},
	},
}

// GetProfile returns a display profile by name
func GetProfile(name string) (Profile, error) {
	normalizedName := strings.ToLower(strings.TrimSpace(name))

	if profile, exists := profiles[normalizedName]; exists {
		return profile, nil
	}

	// Return available profiles in error
	var available []string
	for key := range profiles {
		available = append(available, key)
	}

	return Profile{}, fmt.Errorf("unknown display profile '%s'. Available profiles: %v", name, available)
}

// ListProfiles returns all available display profiles
func ListProfiles() map[string]Profile {
	return profiles
}
