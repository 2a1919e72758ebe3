package arxiv

import "encoding/xml"

// Feed is the Atom response of the arXiv export API.
type Feed struct {
	XMLName xml.Name `xml:"feed"`
	Entries []Entry  `xml:"entry"`
}

// Entry is one paper entry in the Atom feed.
type Entry struct {
	ID        string   `xml:"id"`
	Title     string   `xml:"title"`
	Summary   string   `xml:"summary"`
	Published string   `xml:"published"`
	Authors   []Author `xml:"author"`
	Links     []Link   `xml:"link"`
}

// Author is a paper author.
type Author struct {
	Name string `xml:"name"`
}

// Link is an alternate/pdf link on an entry.
type Link struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}
