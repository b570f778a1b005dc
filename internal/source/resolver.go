package source

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Resolve produces the ordered source descriptors for a run. When manifest is
// non-empty it is read line by line; otherwise dir is scanned for PDFs.
// Returns ErrInvalidInput when the chosen input cannot be read or yields
// nothing to merge.
func Resolve(dir, manifest string) ([]Descriptor, error) {
	if manifest != "" {
		return FromManifest(manifest)
	}
	return FromDir(dir)
}

// FromDir scans dir for entries whose name ends in the PDF extension
// (case-insensitive) and returns them ordered by name, with numeric suffixes
// compared numerically so part-2 sorts before part-10.
func FromDir(dir string) ([]Descriptor, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: reading directory %s: %v", ErrInvalidInput, dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if HasPDFExtension(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no PDF files in %s", ErrInvalidInput, dir)
	}

	names = sortPDFsByNumber(names)

	descriptors := make([]Descriptor, len(names))
	for i, name := range names {
		descriptors[i] = Descriptor{
			Origin:     filepath.Join(dir, name),
			Kind:       KindLocalPath,
			OrderIndex: i,
		}
	}
	return descriptors, nil
}

// FromManifest reads a newline-delimited manifest and returns one descriptor
// per non-blank line, preserving line order. Lines matching a URL scheme
// become remote descriptors; everything else is a local path.
func FromManifest(path string) ([]Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading manifest %s: %v", ErrInvalidInput, path, err)
	}
	defer f.Close()

	var descriptors []Descriptor
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		kind := KindLocalPath
		if IsURL(line) {
			kind = KindRemoteURL
		}
		descriptors = append(descriptors, Descriptor{
			Origin:     line,
			Kind:       kind,
			OrderIndex: len(descriptors),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading manifest %s: %v", ErrInvalidInput, path, err)
	}
	if len(descriptors) == 0 {
		return nil, fmt.Errorf("%w: manifest %s is empty", ErrInvalidInput, path)
	}
	return descriptors, nil
}

// sortPDFsByNumber sorts PDF names by their numeric suffix.
// e.g., ["book-2.pdf", "book-1.pdf", "book-10.pdf"] -> ["book-1.pdf", "book-2.pdf", "book-10.pdf"]
func sortPDFsByNumber(names []string) []string {
	sorted := make([]string, len(names))
	copy(sorted, names)

	re := regexp.MustCompile(`-(\d+)\.pdf$`)

	sort.Slice(sorted, func(i, j int) bool {
		li, lj := strings.ToLower(sorted[i]), strings.ToLower(sorted[j])
		mi := re.FindStringSubmatch(li)
		mj := re.FindStringSubmatch(lj)

		// If both share a prefix and carry numbers, sort numerically
		if len(mi) > 1 && len(mj) > 1 && strings.TrimSuffix(li, mi[0]) == strings.TrimSuffix(lj, mj[0]) {
			ni, _ := strconv.Atoi(mi[1])
			nj, _ := strconv.Atoi(mj[1])
			if ni != nj {
				return ni < nj
			}
		}

		// Otherwise sort lexicographically, case-insensitive like the
		// extension match; raw names break exact ties
		if li != lj {
			return li < lj
		}
		return sorted[i] < sorted[j]
	})

	return sorted
}
