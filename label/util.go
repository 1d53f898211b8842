// Copyright 2026 The tfdata Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package label

import "sort"

type stringSet map[string]struct{}

func (set stringSet) Add(s string) {
	set[s] = struct{}{}
}

// Sorted returns the members in lexicographic order.
func (set stringSet) Sorted() []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
