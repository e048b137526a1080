// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package pagecache

import "slices"

// Changeset is the set of pages pinned on behalf of one operation. A page is
// pinned at most once per changeset; Clear releases all pins.
type Changeset struct {
	cache *Cache
	pages []*Page
}

// Contains returns true if the page is pinned by the changeset.
func (cs *Changeset) Contains(p *Page) bool {
	return slices.Contains(cs.pages, p)
}

// Len returns the number of pinned pages.
func (cs *Changeset) Len() int {
	return len(cs.pages)
}

// Pages returns the pinned pages.
func (cs *Changeset) Pages() []*Page {
	return cs.pages
}

// add pins p. Requires cache.mu.
func (cs *Changeset) add(c *Cache, p *Page) {
	if cs.cache == nil {
		cs.cache = c
	}
	if cs.Contains(p) {
		return
	}
	p.pins++
	cs.pages = append(cs.pages, p)
}

// Clear unpins every page of the changeset.
func (cs *Changeset) Clear() {
	if len(cs.pages) == 0 {
		return
	}
	c := cs.cache
	c.mu.Lock()
	for _, p := range cs.pages {
		p.pins--
	}
	c.mu.Unlock()
	clear(cs.pages)
	cs.pages = cs.pages[:0]
}
