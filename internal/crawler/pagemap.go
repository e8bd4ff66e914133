package crawler

// Element types reported by the page scan.
const (
	TypeButton = "button"
	TypeLink   = "link"
	TypeInput  = "input"
)

// PageMap is one raw, unfiltered scan of the current page
type PageMap struct {
	URL      string    `json:"url"`
	Title    string    `json:"title"`
	Headings []string  `json:"headings,omitempty"`
	Elements []Element `json:"elements"`
	IsSPA    bool      `json:"isSPA"`
}

// Element represents an interactive element on the page
type Element struct {
	Type        string `json:"type"` // button, link, input
	Text        string `json:"text,omitempty"`
	Href        string `json:"href,omitempty"`
	Selector    string `json:"selector"`
	IsLink      bool   `json:"isLink"`
	TagName     string `json:"tagName"`
	DOMIndex    int    `json:"domIndex,omitempty"`
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	InputType   string `json:"inputType,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Visible     bool   `json:"visible"`
}

// Label is the best human-readable description of the element.
func (e Element) Label() string {
	switch {
	case e.Text != "":
		return e.Text
	case e.Placeholder != "":
		return e.Placeholder
	case e.Name != "":
		return e.Name
	default:
		return e.Selector
	}
}
