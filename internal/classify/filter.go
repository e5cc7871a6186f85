package classify

import "strings"

// skipContentExtensions are never fetched for content analysis
var skipContentExtensions = map[string]bool{
	// binaries
	".exe": true, ".dll": true, ".bin": true, ".so": true, ".dylib": true, ".a": true, ".lib": true,
	// images
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true, ".ico": true, ".svg": true,
	// documents
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true, ".ppt": true, ".pptx": true,
	// archives
	".zip": true, ".rar": true, ".7z": true, ".tar": true, ".gz": true, ".bz2": true,
	// media
	".mp3": true, ".mp4": true, ".wav": true, ".avi": true, ".mov": true, ".wmv": true,
	// fonts
	".ttf": true, ".otf": true, ".woff": true, ".woff2": true,
	// lock, log, temp
	".lock": true, ".log": true, ".tmp": true, ".temp": true,
	// cache and editor backups
	".cache": true, ".bak": true, ".swp": true, ".swo": true,
}

var skipContentSuffixes = []string{".min.js", ".min.css"}

// skipContentPatterns match vendored, generated or migration paths
var skipContentPatterns = []string{
	"vendor/", "node_modules/", "packages/", "libs/", "third-party/",
	"generated", "auto-generated", "autogenerated",
	".designer.", ".generated.",
	"migration", "migrations",
}

// ShouldFetchContent reports whether content for path is worth fetching.
// Binary, media, minified, vendored and generated files are skipped.
func ShouldFetchContent(filePath string) bool {
	if filePath == "" {
		return false
	}

	lower := strings.ToLower(filePath)
	if skipContentExtensions[Ext(lower)] {
		return false
	}
	for _, s := range skipContentSuffixes {
		if strings.HasSuffix(lower, s) {
			return false
		}
	}
	return !containsAny(lower, skipContentPatterns)
}
