package network

// disjointSet is a union-find over dense integer ids with path compression.
type disjointSet struct {
	parent []int
}

func newDisjointSet(n int) *disjointSet {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &disjointSet{parent: parent}
}

func (d *disjointSet) root(x int) int {
	r := x
	for d.parent[r] != r {
		r = d.parent[r]
	}
	for d.parent[x] != r {
		d.parent[x], x = r, d.parent[x]
	}
	return r
}

// union joins the sets of x and y; the smaller root wins so cluster ids are
// stable regardless of union order.
func (d *disjointSet) union(x, y int) {
	rx, ry := d.root(x), d.root(y)
	if rx == ry {
		return
	}
	if rx < ry {
		d.parent[ry] = rx
	} else {
		d.parent[rx] = ry
	}
}
