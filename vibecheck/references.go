package vibecheck

import (
	"os"
	"path/filepath"
	"strings"
)

// maxReferences bounds how many promotional references are sent to the
// model per call (spec §4.8 step 1/4: "load up to five references").
const maxReferences = 5

// recognisedImageSuffixes is the closed set of file extensions treated as
// promotional images, recovered from the original implementation's format
// check.
var recognisedImageSuffixes = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".avif": true,
}

// discoverReferences walks data/<guild>/<event>/<user>/promotion/* looking
// for recognised image files, returning up to maxReferences in the order
// encountered (spec §4.8 step 1).
func discoverReferences(root, guildID, eventID string) ([][]byte, error) {
	eventDir := filepath.Join(root, guildID, eventID)
	userDirs, err := os.ReadDir(eventDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var refs [][]byte
	for _, userDir := range userDirs {
		if !userDir.IsDir() {
			continue
		}
		promotionDir := filepath.Join(eventDir, userDir.Name(), "promotion")
		files, err := os.ReadDir(promotionDir)
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			if !recognisedImageSuffixes[strings.ToLower(filepath.Ext(f.Name()))] {
				continue
			}
			data, err := os.ReadFile(filepath.Join(promotionDir, f.Name()))
			if err != nil {
				continue
			}
			refs = append(refs, data)
			if len(refs) >= maxReferences {
				return refs, nil
			}
		}
	}
	return refs, nil
}
