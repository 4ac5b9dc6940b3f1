// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ir

import "fmt"

// uniqueNames generates unique names for the arguments of a graph.
type uniqueNames struct {
	next map[string]int
}

func newUniqueNames() *uniqueNames {
	return &uniqueNames{next: make(map[string]int)}
}

// name returns root if it has not been used yet.
// Otherwise, a unique suffix is appended.
func (n *uniqueNames) name(root string) string {
	if root == "" {
		root = "arg"
	}
	nextIndex, ok := n.next[root]
	if !ok {
		n.next[root] = 1
		return root
	}
	n.next[root] = nextIndex + 1
	return fmt.Sprintf("%s%d", root, nextIndex)
}
