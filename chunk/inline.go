package chunk

// Layout applies output targeting to a finished chunk tree. Chunked
// mode forces the root onto index.html and folds section chunks nested
// deeper than depth levels into their parent pages; single-file mode
// folds the entire tree below the root into one page. Must run before
// BuildIndex: inlining rewrites chunk paths.
func Layout(root *Chunk, chunked bool, depth int) {
	if root == nil {
		return
	}
	if chunked {
		root.Path = "index.html"
		for c := root; c != nil; c = c.Next() {
			InlineSections(c, depth)
		}
		return
	}
	for c := root; c != nil; c = c.Next() {
		InlineAll(c)
	}
}

// InlineSections folds section chunks nested deeper than depth section
// levels into their parents. depth 0 folds every section into its
// nearest non-section ancestor's page.
func InlineSections(c *Chunk, depth int) {
	if c.Contents.IsElement("section") && depth > 0 {
		depth--
	}

	// When depth runs out, inline the leading run of section children.
	it := c.FirstChild()
	if depth == 0 {
		for ; it != nil && it.Contents.IsElement("section"); it = it.Next() {
			InlineChunks(it)
		}
	}

	for ; it != nil; it = it.Next() {
		InlineSections(it, depth)
	}
}

// InlineAll folds every descendant of c into c's page.
func InlineAll(c *Chunk) {
	for it := c.FirstChild(); it != nil; it = it.Next() {
		InlineChunks(it)
	}
}

// InlineChunks marks c and its whole subtree inline. Every node in the
// subtree inherits the parent page's path: once a chunk is inlined no
// descendant can be a separate page.
func InlineChunks(c *Chunk) {
	c.Inline = true
	c.Path = c.Parent().Path
	for it := c.FirstChild(); it != nil; it = it.Next() {
		InlineChunks(it)
	}
}
