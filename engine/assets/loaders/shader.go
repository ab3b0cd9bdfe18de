package loaders

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadShaderSource reads a GLSL fragment file, resolving #include lines
// relative to the including file. Includes nest up to 8 levels.
func LoadShaderSource(path string) (string, error) {
	return loadShaderSource(path, 0)
}

const maxIncludeDepth = 8

func loadShaderSource(path string, depth int) (string, error) {
	if depth > maxIncludeDepth {
		return "", fmt.Errorf("shader %s: include depth exceeds %d", path, maxIncludeDepth)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("shader %s: %w", path, err)
	}

	var sb strings.Builder
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if name, ok := includeTarget(trimmed); ok {
			included, err := loadShaderSource(filepath.Join(filepath.Dir(path), name), depth+1)
			if err != nil {
				return "", err
			}
			sb.WriteString(included)
			sb.WriteByte('\n')
			continue
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

func includeTarget(line string) (string, bool) {
	if !strings.HasPrefix(line, "#include") {
		return "", false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(line, "#include"))
	if len(rest) < 2 || rest[0] != '"' {
		return "", false
	}
	end := strings.IndexByte(rest[1:], '"')
	if end < 0 {
		return "", false
	}
	return rest[1 : 1+end], true
}
