package tree

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/sakif/xeenux-portal/internal/model"
)

// RenderText writes the tree as an indented outline for terminals.
func RenderText(w io.Writer, v View) error {
	if v.Root == nil {
		return nil
	}
	var b strings.Builder
	if v.CanReset() {
		fmt.Fprintf(&b, "(viewing #%d; run without --root to return to #%d)\n", v.Root.UserID, v.ViewerID)
	}
	writeTextNode(&b, v.Root, "", "")
	_, err := io.WriteString(w, b.String())
	return err
}

func writeTextNode(b *strings.Builder, n *Node, prefix, childPrefix string) {
	b.WriteString(prefix)
	b.WriteString(textLabel(n))
	b.WriteByte('\n')

	if n.Expanded {
		d := n.Data
		fmt.Fprintf(b, "%s  count L %d / R %d, carry-forward L %s / R %s, total L %s / R %s\n",
			childPrefix, d.LeftCount, d.RightCount,
			d.LeftCarryForward, d.RightCarryForward,
			d.TotalLeftVolume, d.TotalRightVolume)
	}

	children := n.Children()
	for i, c := range children {
		tag := "L: "
		if c.Position == model.PositionRight {
			tag = "R: "
		}
		if i == len(children)-1 {
			writeTextNode(b, c, childPrefix+"└── "+tag, childPrefix+"    ")
		} else {
			writeTextNode(b, c, childPrefix+"├── "+tag, childPrefix+"│   ")
		}
	}
}

func textLabel(n *Node) string {
	switch n.State {
	case StateEmpty:
		return "(empty)"
	case StateErrored:
		return fmt.Sprintf("#%d error: %s", n.UserID, n.ErrorMessage())
	}
	name := n.Data.Name
	if name == "" {
		name = "-"
	}
	return fmt.Sprintf("#%d %s  volume L %s | R %s", n.UserID, name, n.Data.LeftVolume, n.Data.RightVolume)
}

//go:embed templates/*.html
var templateFS embed.FS

var htmlTemplate = template.Must(template.New("tree.html").Funcs(template.FuncMap{
	"root": func(d htmlData) nodeData {
		return nodeData{Node: d.Root, Base: d.Base, RootID: d.Root.UserID}
	},
	"child": func(n *Node, parent nodeData) nodeData {
		return nodeData{Node: n, Base: parent.Base, RootID: parent.RootID}
	},
}).ParseFS(templateFS, "templates/tree.html"))

// RenderHTML writes the tree as nested lists. expandBase is the URL that
// expand/collapse and drill-down links are built on (e.g. "/tree").
func RenderHTML(w io.Writer, v View, expandBase string) error {
	if v.Root == nil {
		return nil
	}
	return htmlTemplate.ExecuteTemplate(w, "tree", htmlData{View: v, Base: expandBase})
}

// HTML renders the tree into a fragment for embedding in a page.
func HTML(v View, expandBase string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := RenderHTML(&buf, v, expandBase); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

type htmlData struct {
	View
	Base string
}

// nodeData carries the base URL and root down the recursive template.
type nodeData struct {
	*Node
	Base   string
	RootID int64
}
