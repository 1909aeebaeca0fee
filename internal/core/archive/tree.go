package archive

import (
	"strings"
)

type treeNode struct {
	name     string
	children []*treeNode
}

func (n *treeNode) child(name string) *treeNode {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	c := &treeNode{name: name}
	n.children = append(n.children, c)
	return c
}

// Tree renders the project layout as an indented tree, directories first,
// entries otherwise in write order:
//
//	my-react-app/
//	├── public/
//	│   └── index.html
//	└── package.json
func (a Archive) Tree() string {
	root := &treeNode{name: a.Root}
	for _, e := range a.Entries {
		rel := strings.TrimPrefix(e.Path, a.Root+"/")
		node := root
		for _, part := range strings.Split(rel, "/") {
			node = node.child(part)
		}
	}

	var b strings.Builder
	b.WriteString(a.Root + "/\n")
	writeChildren(&b, root, "")
	return b.String()
}

func writeChildren(b *strings.Builder, n *treeNode, prefix string) {
	ordered := make([]*treeNode, 0, len(n.children))
	for _, c := range n.children {
		if len(c.children) > 0 {
			ordered = append(ordered, c)
		}
	}
	for _, c := range n.children {
		if len(c.children) == 0 {
			ordered = append(ordered, c)
		}
	}

	for i, c := range ordered {
		last := i == len(ordered)-1
		branch, indent := "├── ", "│   "
		if last {
			branch, indent = "└── ", "    "
		}
		name := c.name
		if len(c.children) > 0 {
			name += "/"
		}
		b.WriteString(prefix + branch + name + "\n")
		if len(c.children) > 0 {
			writeChildren(b, c, prefix+indent)
		}
	}
}
