package content

// MaxCategoryDepth bounds parent walks. The store does not prevent cycles.
const MaxCategoryDepth = 32

type categoryNode struct {
	id       int64
	parentID int64
	name     string
	slug     string
}

// CategoryTree is an arena of categories keyed by id.
type CategoryTree struct {
	nodes map[int64]categoryNode
}

func NewCategoryTree(categories []Grouping) *CategoryTree {
	t := &CategoryTree{nodes: make(map[int64]categoryNode, len(categories))}
	for _, c := range categories {
		t.nodes[c.ID] = categoryNode{id: c.ID, parentID: c.ParentID, name: c.Name, slug: c.Slug}
	}
	return t
}

func (t *CategoryTree) Name(id int64) (string, bool) {
	n, ok := t.nodes[id]
	return n.name, ok
}

// Path returns category names from the root down to id. Unknown ids yield nil.
// The walk stops at MaxCategoryDepth or at the first repeated id.
func (t *CategoryTree) Path(id int64) []string {
	var reversed []string
	visited := make(map[int64]bool)

	cur := id
	for depth := 0; depth < MaxCategoryDepth && cur != 0; depth++ {
		if visited[cur] {
			break
		}
		n, ok := t.nodes[cur]
		if !ok {
			break
		}
		visited[cur] = true
		reversed = append(reversed, n.name)
		cur = n.parentID
	}

	path := make([]string, len(reversed))
	for i, name := range reversed {
		path[len(reversed)-1-i] = name
	}
	if len(path) == 0 {
		return nil
	}
	return path
}
