// Package tree 把扁平的对象 key 构造成目录树.
package tree

import (
	"sort"
	"strings"

	"github.com/yeisme/codespace/pkg/internal/filetype"
)

// NodeType 节点类型.
type NodeType string

const (
	File   NodeType = "file"
	Folder NodeType = "folder"
)

// FileNode 目录树节点，仅在请求期间构造.
type FileNode struct {
	Name     string      `json:"name"`
	Path     string      `json:"path"`
	Type     NodeType    `json:"type"`
	Children []*FileNode `json:"children,omitempty"`
}

// Build 由 key 集合构造目录树，保留 key 被过滤.
// 目录节点按累计路径记忆，同一目录只创建一次；子节点保持首次出现的顺序，
// 输入有序则输出确定.
func Build(keys []string, reserved filetype.Reserved) []*FileNode {
	root := &FileNode{Type: Folder}
	folders := map[string]*FileNode{"": root}
	files := make(map[string]struct{})

	for _, key := range keys {
		if key == "" || reserved.Match(key) {
			continue
		}

		parts := strings.Split(strings.Trim(key, "/"), "/")
		parent := root
		cum := ""

		for i, name := range parts {
			if name == "" {
				continue
			}

			if cum == "" {
				cum = name
			} else {
				cum += "/" + name
			}

			// 以 / 结尾的 key 是目录占位
			last := i == len(parts)-1 && !strings.HasSuffix(key, "/")
			if last {
				if _, ok := files[cum]; ok {
					break
				}

				files[cum] = struct{}{}
				parent.Children = append(parent.Children, &FileNode{Name: name, Path: cum, Type: File})

				break
			}

			dir, ok := folders[cum]
			if !ok {
				dir = &FileNode{Name: name, Path: cum, Type: Folder, Children: []*FileNode{}}
				folders[cum] = dir
				parent.Children = append(parent.Children, dir)
			}

			parent = dir
		}
	}

	return root.Children
}

// Sort 递归排序：目录在前，同类按名称字典序.
func Sort(nodes []*FileNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Type != nodes[j].Type {
			return nodes[i].Type == Folder
		}

		return nodes[i].Name < nodes[j].Name
	})

	for _, n := range nodes {
		if n.Type == Folder {
			Sort(n.Children)
		}
	}
}

// BuildSorted Build 后 Sort，结果与输入顺序无关.
func BuildSorted(keys []string, reserved filetype.Reserved) []*FileNode {
	nodes := Build(keys, reserved)
	Sort(nodes)

	return nodes
}

// Walk 深度优先遍历.
func Walk(nodes []*FileNode, fn func(*FileNode)) {
	for _, n := range nodes {
		fn(n)
		Walk(n.Children, fn)
	}
}
