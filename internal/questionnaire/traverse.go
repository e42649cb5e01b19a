package questionnaire

import "strings"

// Visit is one step of a pre-order walk.
type Visit struct {
	Question Question
	Path     Path
	Depth    int
}

// Walk visits every node in pre-order, depth first, in display order. It uses
// an explicit stack so very deep trees do not grow the goroutine stack.
// Returning false from fn stops the walk.
func Walk(root []Question, fn func(Visit) bool) {
	type frame struct {
		list  []Question
		index int
		path  Path
	}
	stack := []frame{{list: root}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.index >= len(top.list) {
			stack = stack[:len(stack)-1]
			continue
		}
		node := top.list[top.index]
		path := top.path.Child(top.index)
		top.index++

		if !fn(Visit{Question: node, Path: path, Depth: len(path) - 1}) {
			return
		}
		if len(node.Children) > 0 {
			stack = append(stack, frame{list: node.Children, path: path})
		}
	}
}

// Row is a flattened node in render order; Depth drives indentation.
type Row struct {
	Path        Path       `json:"path"`
	Key         string     `json:"key"`
	Depth       int        `json:"depth"`
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	AnswerType  AnswerType `json:"answerType"`
	Required    bool       `json:"required"`
	ChildCount  int        `json:"childCount"`
}

func Flatten(root []Question) []Row {
	rows := make([]Row, 0, CountTotal(root))
	Walk(root, func(v Visit) bool {
		rows = append(rows, Row{
			Path:        v.Path,
			Key:         v.Path.Key(),
			Depth:       v.Depth,
			ID:          v.Question.ID,
			Title:       v.Question.Title,
			Description: v.Question.Description,
			AnswerType:  v.Question.AnswerType,
			Required:    v.Question.Required,
			ChildCount:  len(v.Question.Children),
		})
		return true
	})
	return rows
}

// CountTotal counts every node in the document.
func CountTotal(root []Question) int {
	total := 0
	stack := [][]Question{root}
	for len(stack) > 0 {
		list := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		total += len(list)
		for _, q := range list {
			if len(q.Children) > 0 {
				stack = append(stack, q.Children)
			}
		}
	}
	return total
}

// FindByID returns the current path of the node with the given id.
func FindByID(root []Question, id string) (Path, bool) {
	var found Path
	Walk(root, func(v Visit) bool {
		if v.Question.ID == id {
			found = v.Path
			return false
		}
		return true
	})
	return found, found != nil
}

// CollectIDs lists every id in pre-order.
func CollectIDs(root []Question) []string {
	ids := make([]string, 0, CountTotal(root))
	Walk(root, func(v Visit) bool {
		ids = append(ids, v.Question.ID)
		return true
	})
	return ids
}

// SearchText joins the trimmed titles and descriptions of every question in
// pre-order, one per line. It is the only question text either search
// backend indexes; keys and answer types are never included.
func SearchText(root []Question) string {
	var lines []string
	Walk(root, func(v Visit) bool {
		if title := strings.TrimSpace(v.Question.Title); title != "" {
			lines = append(lines, title)
		}
		if description := strings.TrimSpace(v.Question.Description); description != "" {
			lines = append(lines, description)
		}
		return true
	})
	return strings.Join(lines, "\n")
}
