package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	playFilePrefix = "play_"
	jsonExt        = ".json"
	zstdExt        = ".zst"
)

// PlayFilename returns the file name a play worker uses for a game id.
func PlayFilename(id string, compressed bool) string {
	var name = playFilePrefix + id + jsonExt
	if compressed {
		name += zstdExt
	}
	return name
}

// GameFiles lists game files in folderPath oldest first.
// Game ids are timestamps so lexicographic order is creation order.
// A folder that does not exist yet has no games.
func GameFiles(folderPath string) ([]string, error) {
	dirs, err := os.ReadDir(folderPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read game folder %v: %w", folderPath, err)
	}
	var names []string
	for _, de := range dirs {
		if !de.IsDir() && isGameFile(de.Name()) {
			names = append(names, de.Name())
		}
	}
	sort.Strings(names)
	var result = make([]string, len(names))
	for i, name := range names {
		result[i] = filepath.Join(folderPath, name)
	}
	return result, nil
}

func isGameFile(name string) bool {
	if !strings.HasPrefix(name, playFilePrefix) {
		return false
	}
	return strings.HasSuffix(name, jsonExt) || strings.HasSuffix(name, jsonExt+zstdExt)
}
