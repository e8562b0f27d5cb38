// Package elkb implements the exclusion-logic knowledge base from spec
// §4.6: a trie of `/`-and-`!` labeled paths with exclusive-subtree
// semantics. A node is reached by a path like /a/b or /c!d; storing
// through a `!`-labeled edge replaces the entire subtree rooted at that
// edge, realizing "only one of these alternatives may hold at a time"
// without an explicit negation-as-failure rule.
//
// The KB is immutable (store/delete return a new root), so it can live
// inside a state.Map value exactly like a fluent (spec §4.6 "stored as a
// state element"), getting backtracking for free the same way state
// elements do.
package elkb

// Segment is one step of a path: a Key plus whether the edge into it is
// Exclusive ("!") or Inclusive ("/").
type Segment struct {
	Key       string
	Exclusive bool
}

// Node is one node of the trie. Children are keyed by segment Key; Node
// itself doesn't track whether the edge leading to it was exclusive — that
// is a property of the edge, stored in the parent's children map.
type Node struct {
	children map[string]*edge
}

type edge struct {
	exclusive bool
	target    *Node
}

// Empty is the knowledge base with no stored paths.
var Empty = &Node{}

// Store inserts path into the trie rooted at n, returning the new root. If
// a segment is exclusive (`!KEY`), storing it replaces the entire set of
// children previously reachable at that point — every sibling, inclusive
// or exclusive, that existed under the parent is discarded and only the
// new key survives (spec §4.6, §8 scenario 5: writing `/c!d` then `/c!e`
// leaves only `/c!e`, since the second exclusive write wipes out the
// first). A plain (`/KEY`) segment only ever adds or descends into its own
// key, leaving siblings untouched.
func Store(n *Node, path []Segment) *Node {
	if len(path) == 0 {
		if n == nil {
			return &Node{}
		}
		return n
	}
	seg := path[0]
	newChildren := map[string]*edge{}
	if !seg.Exclusive && n != nil {
		for k, e := range n.children {
			newChildren[k] = e
		}
	}
	var childTarget *Node
	if existing, ok := newChildren[seg.Key]; ok {
		childTarget = existing.target
	}
	newChildren[seg.Key] = &edge{exclusive: seg.Exclusive, target: Store(childTarget, path[1:])}
	return &Node{children: newChildren}
}

// Delete removes the subtree rooted at path, returning the new root. If
// path does not exist, n is returned unchanged.
func Delete(n *Node, path []Segment) *Node {
	if n == nil {
		return nil
	}
	if len(path) == 0 {
		return nil
	}
	seg := path[0]
	existing, ok := n.children[seg.Key]
	if !ok {
		return n
	}
	newChildren := map[string]*edge{}
	for k, e := range n.children {
		newChildren[k] = e
	}
	if len(path) == 1 {
		delete(newChildren, seg.Key)
	} else {
		pruned := Delete(existing.target, path[1:])
		if pruned == nil {
			delete(newChildren, seg.Key)
		} else {
			newChildren[seg.Key] = &edge{exclusive: existing.exclusive, target: pruned}
		}
	}
	if len(newChildren) == 0 {
		return nil
	}
	return &Node{children: newChildren}
}

// Has reports whether path is reachable in the trie: true for a stored path
// and also for any prefix of one (after storing /a/b, /a holds too).
func Has(n *Node, path []Segment) bool {
	cur := n
	for _, seg := range path {
		if cur == nil {
			return false
		}
		e, ok := cur.children[seg.Key]
		if !ok {
			return false
		}
		cur = e.target
	}
	return cur != nil || len(path) == 0
}

// Paths enumerates every complete path stored in the trie, rendered in the
// traditional /a/b, /c!e syntax, for use by tests and by the reflection
// primitives that print a KB's contents.
func Paths(n *Node) []string {
	var out []string
	var walk func(cur *Node, prefix string)
	walk = func(cur *Node, prefix string) {
		if cur == nil {
			return
		}
		if len(cur.children) == 0 && prefix != "" {
			out = append(out, prefix)
			return
		}
		for k, e := range cur.children {
			sep := "/"
			if e.exclusive {
				sep = "!"
			}
			next := prefix + sep + k
			if e.target == nil || len(e.target.children) == 0 {
				out = append(out, next)
			} else {
				walk(e.target, next)
			}
		}
	}
	walk(n, "")
	return out
}
