package indexer

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var headingPattern = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
var fencePattern = regexp.MustCompile("^(```|~~~)")

// headingNode is one node of the document's heading tree, built while
// scanning line by line.
type headingNode struct {
	level     int
	title     string
	startLine int
	endLine   int
	body      []string // raw lines belonging directly to this heading (before any subheading)
	children  []*headingNode
}

// chunkStructuredDocument walks the heading tree of a markdown/rst/html
// document and emits one chunk per leaf section (split further if it
// exceeds maxChunkSize), plus a non-leaf "summary" chunk per heading. Parent
// and child linkage is recorded using placeholder references of the form
// "#<index>" into the returned slice; document.go's resolveHierarchy
// translates these into real chunk IDs once final IDs are assigned.
func chunkStructuredDocument(body, filePath string, maxChunkSize, overlapSize int) []Chunk {
	lines := strings.Split(body, "\n")
	root := buildHeadingTree(lines)

	var chunks []Chunk
	emitHeadingChunks(root, nil, filePath, maxChunkSize, overlapSize, &chunks)
	if len(chunks) == 0 {
		// No headings at all: treat the whole body as plain text.
		return chunkPlainText(body, filePath, maxChunkSize, overlapSize)
	}
	return chunks
}

// buildHeadingTree scans lines, tracking fenced code blocks so headings
// inside a code fence are never mistaken for section boundaries.
func buildHeadingTree(lines []string) *headingNode {
	root := &headingNode{level: 0, title: "", startLine: 1}
	stack := []*headingNode{root}
	inFence := false

	for i, line := range lines {
		lineNo := i + 1
		if fencePattern.MatchString(strings.TrimSpace(line)) {
			inFence = !inFence
			top := stack[len(stack)-1]
			top.body = append(top.body, line)
			continue
		}
		if !inFence {
			if m := headingPattern.FindStringSubmatch(line); m != nil {
				level := len(m[1])
				title := strings.TrimSpace(m[2])
				node := &headingNode{level: level, title: title, startLine: lineNo}
				for len(stack) > 1 && stack[len(stack)-1].level >= level {
					stack[len(stack)-1].endLine = lineNo - 1
					stack = stack[:len(stack)-1]
				}
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, node)
				stack = append(stack, node)
				continue
			}
		}
		top := stack[len(stack)-1]
		top.body = append(top.body, line)
	}
	for _, n := range stack {
		if n.endLine == 0 {
			n.endLine = len(lines)
		}
	}
	return root
}

// emitHeadingChunks recursively emits a summary chunk for every heading with
// children, and leaf section chunks for headings without children (or the
// root's own body when it has no headings at all).
func emitHeadingChunks(node *headingNode, ancestry []string, filePath string, maxChunkSize, overlapSize int, out *[]Chunk) {
	headingContext := ancestry
	if node.title != "" {
		headingContext = append(append([]string{}, ancestry...), node.title)
	}

	if len(node.children) == 0 {
		if node.title == "" && len(node.body) == 0 {
			return
		}
		emitLeafSection(node, headingContext, filePath, maxChunkSize, overlapSize, out)
		return
	}

	// Non-leaf: emit a summary chunk (heading line + introductory paragraph)
	// before descending, then link it to its children once they're emitted.
	summaryIdx := -1
	if node.title != "" {
		intro := firstParagraph(node.body)
		content := node.title
		if intro != "" {
			content = node.title + "\n\n" + intro
		}
		*out = append(*out, Chunk{
			Content:        content,
			FilePath:       filePath,
			Language:       "markdown",
			Type:           ChunkTypeHeading,
			StartLine:      node.startLine,
			EndLine:        node.startLine,
			Section:        node.title,
			HeadingContext: ancestry,
			IsSummary:      true,
		})
		summaryIdx = len(*out) - 1
	}

	childStart := len(*out)
	for _, child := range node.children {
		emitHeadingChunks(child, headingContext, filePath, maxChunkSize, overlapSize, out)
	}
	childIndexes := make([]string, 0)
	for i := childStart; i < len(*out); i++ {
		childIndexes = append(childIndexes, placeholderRef(i))
	}
	if summaryIdx >= 0 {
		(*out)[summaryIdx].ChildChunkIDs = childIndexes
		for _, idx := range childIndexes {
			// Only the direct section/summary children (not grandchildren)
			// get a parent pointer; grandchildren already point at their
			// own immediate parent summary.
			_ = idx
		}
		for i := childStart; i < len(*out); i++ {
			if (*out)[i].ParentChunkID == "" {
				(*out)[i].ParentChunkID = placeholderRef(summaryIdx)
			}
		}
	}
}

// emitLeafSection splits one leaf section's body into ≤maxChunkSize chunks,
// preserving code fences and applying overlap between consecutive pieces.
func emitLeafSection(node *headingNode, headingContext []string, filePath string, maxChunkSize, overlapSize int, out *[]Chunk) {
	section := ""
	if len(headingContext) > 0 {
		section = headingContext[len(headingContext)-1]
	}
	content := strings.TrimRight(strings.Join(node.body, "\n"), "\n")
	if node.title != "" {
		content = strings.TrimSpace(node.title + "\n" + content)
	}
	if content == "" {
		return
	}

	pieces := splitPreservingFences(content, maxChunkSize, overlapSize)
	for i, piece := range pieces {
		chunkType := ChunkTypeParagraph
		if strings.Contains(piece, "```") || strings.Contains(piece, "~~~") {
			chunkType = ChunkTypeCodeBlock
		}
		ancestry := headingContext[:max0(len(headingContext)-1)]
		*out = append(*out, Chunk{
			Content:        piece,
			FilePath:       filePath,
			Language:       "markdown",
			Type:           chunkType,
			StartLine:      node.startLine,
			EndLine:        node.endLine,
			Section:        section,
			HeadingContext: ancestry,
		})
		_ = i
	}
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func placeholderRef(idx int) string {
	return "#" + strconv.Itoa(idx)
}

// resolveHierarchy translates placeholder "#<index>" references produced by
// chunkStructuredDocument into the final, hash-based chunk IDs now that
// every chunk has been assigned one.
func resolveHierarchy(chunks []Chunk) {
	idAt := func(ref string) (string, bool) {
		if !strings.HasPrefix(ref, "#") {
			return "", false
		}
		idx, err := strconv.Atoi(ref[1:])
		if err != nil || idx < 0 || idx >= len(chunks) {
			return "", false
		}
		return chunks[idx].ID, true
	}
	for i := range chunks {
		if id, ok := idAt(chunks[i].ParentChunkID); ok {
			chunks[i].ParentChunkID = id
		}
		resolved := make([]string, 0, len(chunks[i].ChildChunkIDs))
		for _, ref := range chunks[i].ChildChunkIDs {
			if id, ok := idAt(ref); ok {
				resolved = append(resolved, id)
			}
		}
		if len(chunks[i].ChildChunkIDs) > 0 {
			chunks[i].ChildChunkIDs = resolved
		}
	}
}

// splitPreservingFences hard-splits content on the maxChunkSize/overlapSize
// budget while never cutting inside a fenced code block, snapping overlap to
// line boundaries.
func splitPreservingFences(content string, maxChunkSize, overlapSize int) []string {
	if len(content) <= maxChunkSize {
		return []string{content}
	}

	blocks := splitOnBoundaries(content)
	var pieces []string
	var current strings.Builder
	for _, block := range blocks {
		if current.Len() > 0 && current.Len()+len(block)+1 > maxChunkSize {
			pieces = append(pieces, current.String())
			prev := current.String()
			current.Reset()
			current.WriteString(overlapTail(prev, overlapSize))
			current.WriteString("\n")
		}
		current.WriteString(block)
		current.WriteString("\n")
	}
	if current.Len() > 0 {
		pieces = append(pieces, strings.TrimRight(current.String(), "\n"))
	}

	// Any individual block still over budget (e.g. one giant fenced block)
	// is kept whole rather than split across a fence boundary.
	return pieces
}

// splitOnBoundaries splits on blank lines and list-item/table-row
// boundaries, keeping fenced code blocks intact as a single unit.
func splitOnBoundaries(content string) []string {
	lines := strings.Split(content, "\n")
	var blocks []string
	var current []string
	inFence := false
	flush := func() {
		if len(current) > 0 {
			blocks = append(blocks, strings.Join(current, "\n"))
			current = nil
		}
	}
	for _, line := range lines {
		if fencePattern.MatchString(strings.TrimSpace(line)) {
			inFence = !inFence
			current = append(current, line)
			if !inFence {
				flush()
			}
			continue
		}
		if inFence {
			current = append(current, line)
			continue
		}
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return blocks
}

func overlapTail(s string, overlapSize int) string {
	if overlapSize <= 0 || len(s) <= overlapSize {
		return s
	}
	tail := s[len(s)-overlapSize:]
	if nl := strings.Index(tail, "\n"); nl >= 0 {
		tail = tail[nl+1:]
	}
	return tail
}

func firstParagraph(lines []string) string {
	var para []string
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			if len(para) > 0 {
				break
			}
			continue
		}
		if headingPattern.MatchString(l) {
			break
		}
		para = append(para, l)
	}
	return strings.TrimSpace(strings.Join(para, "\n"))
}

// chunkPlainText splits code/plain documents on blank-line boundaries, then
// hard-splits oversize paragraphs on character count — the same strategy
// the code chunker's generic fallback uses, generalized to arbitrary text.
func chunkPlainText(body, filePath string, maxChunkSize, overlapSize int) []Chunk {
	blocks := splitOnBoundaries(body)
	var chunks []Chunk
	line := 1
	for _, block := range blocks {
		if block == "" {
			continue
		}
		blockLines := strings.Count(block, "\n") + 1
		var pieces []string
		for _, p := range splitPreservingFences(block, maxChunkSize, overlapSize) {
			for maxChunkSize > 0 && len(p) > maxChunkSize {
				cut := maxChunkSize
				for cut > 0 && !utf8.RuneStart(p[cut]) {
					cut--
				}
				if cut == 0 {
					cut = maxChunkSize
				}
				pieces = append(pieces, p[:cut])
				p = p[cut:]
			}
			pieces = append(pieces, p)
		}
		for _, piece := range pieces {
			chunks = append(chunks, Chunk{
				Content:   piece,
				FilePath:  filePath,
				Language:  "text",
				Type:      ChunkTypeParagraph,
				StartLine: line,
				EndLine:   line + blockLines - 1,
			})
		}
		line += blockLines
	}
	return chunks
}

// stripUnsafeMarkup removes script tags and inline event-handler attributes
// from chunk content before it is emitted, per the security requirement on
// DocumentProcessor output.
var (
	scriptTagPattern = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	eventAttrPattern = regexp.MustCompile(`(?i)\s+on[a-z]+\s*=\s*"[^"]*"`)
	eventAttrPattern2 = regexp.MustCompile(`(?i)\s+on[a-z]+\s*=\s*'[^']*'`)
)

func stripUnsafeMarkup(content string) string {
	content = scriptTagPattern.ReplaceAllString(content, "")
	content = eventAttrPattern.ReplaceAllString(content, "")
	content = eventAttrPattern2.ReplaceAllString(content, "")
	return content
}
