package rasterpool

import "image"

// lruNode is one pooled raster in the recency list.
type lruNode struct {
	img  *image.RGBA
	prev *lruNode
	next *lruNode
}

// lruList is a doubly-linked list of pooled rasters.
// The head is the most recently returned, the tail the least recently
// returned. The list is not thread-safe.
type lruList struct {
	head *lruNode
	tail *lruNode
	len  int
}

// pushFront adds img at the front and returns its node.
func (l *lruList) pushFront(img *image.RGBA) *lruNode {
	n := &lruNode{img: img}
	if l.head == nil {
		l.head = n
		l.tail = n
	} else {
		n.next = l.head
		l.head.prev = n
		l.head = n
	}
	l.len++
	return n
}

// oldest returns the tail node, or nil for an empty list.
func (l *lruList) oldest() *lruNode {
	return l.tail
}

// remove unlinks n.
func (l *lruList) remove(n *lruNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev = nil
	n.next = nil
	l.len--
}

func (l *lruList) clear() {
	l.head = nil
	l.tail = nil
	l.len = 0
}
