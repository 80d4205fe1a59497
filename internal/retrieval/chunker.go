package retrieval

import "strings"

// SplitText splits text into windows of at most size characters with the
// given overlap between consecutive windows. A window prefers to end at a
// sentence or line boundary when one exists past its midpoint, so chunks
// do not sever semantic units at arbitrary offsets.
func SplitText(text string, size, overlap int) []string {
	if size <= 0 {
		return nil
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + size
		if end >= len(text) {
			end = len(text)
		} else {
			if cut := boundaryAfter(text, start+size/2, end); cut > 0 {
				end = cut
			}
		}

		chunk := strings.TrimSpace(text[start:end])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end == len(text) {
			break
		}
		start = end - overlap
	}
	return chunks
}

// boundaryAfter returns the index just past the last sentence or line
// boundary in text[mid:end], or 0 if there is none.
func boundaryAfter(text string, mid, end int) int {
	for i := end - 1; i >= mid; i-- {
		if text[i] == '.' || text[i] == '\n' {
			return i + 1
		}
	}
	return 0
}
