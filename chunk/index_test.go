package chunk

import (
	"testing"

	"go.uber.org/zap/zaptest"

	"bbhtml/xmlparse"
)

func TestBuildIndexChunkIDs(t *testing.T) {
	root := chunkTree(t, `<book id="b"><chapter id="c1"><section id="s1"><para>x</para></section></chapter></book>`)
	Layout(root, true, 0) // sections fold into their chapter
	idx := BuildIndex(root, zaptest.NewLogger(t))

	tests := []struct {
		id  string
		url string
	}{
		{"b", "index.html"},
		{"c1", "c1.html"},
		{"s1", "c1.html#s1"}, // inlined: page plus fragment
	}
	for _, tt := range tests {
		loc, ok := idx[tt.id]
		if !ok {
			t.Errorf("id %q missing from index", tt.id)
			continue
		}
		if loc.URL() != tt.url {
			t.Errorf("index[%q].URL() = %q, want %q", tt.id, loc.URL(), tt.url)
		}
	}
}

func TestBuildIndexElementIDs(t *testing.T) {
	root := chunkTree(t, `<book id="b"><chapter id="c1"><title id="t1">One</title><para id="p1">Hi <anchor id="a1"/></para></chapter></book>`)
	Layout(root, true, 2)
	idx := BuildIndex(root, zaptest.NewLogger(t))

	for id, want := range map[string]string{
		"t1": "c1.html#t1", // id inside the detached title
		"p1": "c1.html#p1",
		"a1": "c1.html#a1", // nested inside contents
	} {
		loc, ok := idx[id]
		if !ok {
			t.Errorf("id %q missing from index", id)
			continue
		}
		if loc.URL() != want {
			t.Errorf("index[%q].URL() = %q, want %q", id, loc.URL(), want)
		}
	}
}

func TestBuildIndexCompleteness(t *testing.T) {
	src := `<book id="b"><chapter id="c1"><chapterinfo id="i1"/><para id="p1">x</para><section id="s1"><para id="p2"/></section></chapter></book>`
	doc := parse(t, src)

	// Collect every id present in the source.
	var ids []string
	var collect func(n *xmlparse.Node)
	collect = func(n *xmlparse.Node) {
		for it := n; it != nil; it = it.Next() {
			if id, ok := it.Attribute("id"); ok {
				ids = append(ids, id)
			}
			collect(it.FirstChild())
		}
	}
	collect(doc)

	root := Document(doc, zaptest.NewLogger(t))
	Layout(root, true, 2)
	idx := BuildIndex(root, zaptest.NewLogger(t))

	for _, id := range ids {
		if _, ok := idx[id]; !ok {
			t.Errorf("source id %q missing from index", id)
		}
	}
}

func TestBuildIndexDuplicateFirstWins(t *testing.T) {
	t.Run("across chunks", func(t *testing.T) {
		root := chunkTree(t, `<book id="b"><chapter id="c1"><para id="dup"/></chapter><chapter id="c2"><para id="dup"/></chapter></book>`)
		Layout(root, true, 2)
		idx := BuildIndex(root, zaptest.NewLogger(t))

		if loc := idx["dup"]; loc.Path != "c1.html" {
			t.Errorf("index[dup] = %+v, want the first occurrence in c1.html", loc)
		}
	})

	t.Run("chunk id beats element id", func(t *testing.T) {
		root := chunkTree(t, `<chapter id="x"><para id="x"/></chapter>`)
		Layout(root, true, 2)
		idx := BuildIndex(root, zaptest.NewLogger(t))

		if loc := idx["x"]; loc.Fragment != "" {
			t.Errorf("index[x] = %+v, want the chunk location without fragment", loc)
		}
	})
}
