package html

import (
	"fmt"
	"strings"
	"testing"
)

func calloutChapter(id string) string {
	return fmt.Sprintf(`<chapter id="%[1]s"><title>T</title>
<programlisting>x = 1; <co id="%[1]s-co1" linkends="%[1]s-cl1"/>
y = 2; <co id="%[1]s-co2" linkends="%[1]s-cl2"/></programlisting>
<calloutlist>
<callout id="%[1]s-cl1"><para>first</para></callout>
<callout id="%[1]s-cl2"><para>second</para></callout>
</calloutlist>
</chapter>`, id)
}

func TestCalloutNumbering(t *testing.T) {
	p := renderBody(t, `<programlisting>a <co id="co1" linkends="cl1"/>
b <co id="co2" linkends="cl2"/></programlisting>
<calloutlist>
<callout id="cl1"><para>first</para></callout>
<callout id="cl2"><para>second</para></callout>
</calloutlist>`)

	// markers inside the listing link to the explanations
	wantContains(t, p, `<a id="co1" href="#cl1">(1)</a>`)
	wantContains(t, p, `<a id="co2" href="#cl2">(2)</a>`)

	// explanations carry their number and link back to the marker
	wantContains(t, p, `<div class="calloutlist">`)
	wantContains(t, p, `<div id="cl1" class="callout"><a href="#co1">(1)</a> <p>first</p>`)
	wantContains(t, p, `<div id="cl2" class="callout"><a href="#co2">(2)</a> <p>second</p>`)
}

func TestCalloutNumberingRestartsPerList(t *testing.T) {
	src := `<book id="b"><title>B</title>` + calloutChapter("c1") + calloutChapter("c2") + `</book>`
	pages := render(t, src, true, 2, Options{})

	c1 := page(t, pages, "c1.html")
	wantContains(t, c1, `<a id="c1-co1" href="#c1-cl1">(1)</a>`)
	wantContains(t, c1, `<a id="c1-co2" href="#c1-cl2">(2)</a>`)

	// the second chapter's list starts over at (1)
	c2 := page(t, pages, "c2.html")
	wantContains(t, c2, `<a id="c2-co1" href="#c2-cl1">(1)</a>`)
	wantContains(t, c2, `<a id="c2-co2" href="#c2-cl2">(2)</a>`)
}

func TestCalloutTwoListsInOneChunk(t *testing.T) {
	p := renderBody(t, `<calloutlist>
<callout id="a1"><para>x</para></callout>
<callout id="a2"><para>y</para></callout>
</calloutlist>
<calloutlist>
<callout id="b1"><para>z</para></callout>
</calloutlist>`)

	wantContains(t, p, `<div id="a1" class="callout">(1) `)
	wantContains(t, p, `<div id="a2" class="callout">(2) `)
	wantContains(t, p, `<div id="b1" class="callout">(1) `)
}

func TestCalloutWithoutID(t *testing.T) {
	p := renderBody(t, `<calloutlist>
<callout><para>x</para></callout>
<callout><para>y</para></callout>
</calloutlist>`)

	wantContains(t, p, `<div class="callout">(1) <p>x</p>`)
	wantContains(t, p, `<div class="callout">(2) <p>y</p>`)
}

func TestCalloutUnresolvedReference(t *testing.T) {
	p := renderBody(t, `<programlisting>a <co id="co1" linkends="missing"/></programlisting>`)
	wantNotContains(t, p, "(1)")
}

func TestCalloutGraphics(t *testing.T) {
	pages := render(t, `<chapter id="c"><title>T</title><calloutlist>`+
		`<callout id="cl1"><para>x</para></callout></calloutlist></chapter>`,
		true, 2, Options{Graphics: "images"})

	p := page(t, pages, "index.html")
	wantContains(t, p, `<img src="images/callouts/1.svg" alt="(1)"/>`)
}

func TestCalloutGraphicsFallsBackToText(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < MaxCalloutGraphic+1; i++ {
		sb.WriteString(`<callout><para>x</para></callout>`)
	}
	pages := render(t, `<chapter id="c"><title>T</title><calloutlist>`+
		sb.String()+`</calloutlist></chapter>`,
		true, 2, Options{Graphics: "images"})

	p := page(t, pages, "index.html")
	wantContains(t, p, `<img src="images/callouts/15.svg" alt="(15)"/>`)
	wantContains(t, p, "(16) ")
	wantNotContains(t, p, "callouts/16.svg")
}
