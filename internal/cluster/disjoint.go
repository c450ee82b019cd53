package cluster

// DisjointSet is a union-find over the integers [0, n)
type DisjointSet struct {
	parent []int
	size   []int
}

func NewDisjointSet(n int) *DisjointSet {
	d := &DisjointSet{parent: make([]int, n), size: make([]int, n)}
	for i := range d.parent {
		d.parent[i] = i
		d.size[i] = 1
	}
	return d
}

// Find returns the representative of x, compressing the path behind it
func (d *DisjointSet) Find(x int) int {
	root := x
	for d.parent[root] != root {
		root = d.parent[root]
	}
	for d.parent[x] != root {
		next := d.parent[x]
		d.parent[x] = root
		x = next
	}
	return root
}

// Union merges the sets of a and b and reports whether they were distinct
func (d *DisjointSet) Union(a, b int) bool {
	ra, rb := d.Find(a), d.Find(b)
	if ra == rb {
		return false
	}
	// larger set absorbs the smaller; ties keep the lower index as root
	if d.size[ra] < d.size[rb] || (d.size[ra] == d.size[rb] && rb < ra) {
		ra, rb = rb, ra
	}
	d.parent[rb] = ra
	d.size[ra] += d.size[rb]
	return true
}

// Components lists every set, ordered by smallest member, members ascending
func (d *DisjointSet) Components() [][]int {
	index := make(map[int]int)
	var out [][]int
	for i := range d.parent {
		root := d.Find(i)
		pos, ok := index[root]
		if !ok {
			pos = len(out)
			index[root] = pos
			out = append(out, nil)
		}
		out[pos] = append(out[pos], i)
	}
	return out
}
