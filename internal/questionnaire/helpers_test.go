package questionnaire

import (
	"fmt"
	"reflect"
	"testing"
)

func node(id string, children ...Question) Question {
	return Question{
		ID:         id,
		Title:      "Title " + id,
		AnswerType: AnswerBoolean,
		Children:   children,
	}
}

func sequentialIDs(prefix string) IDFunc {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func ids(list []Question) []string {
	out := make([]string, len(list))
	for i, q := range list {
		out[i] = q.ID
	}
	return out
}

// sampleTree is R{A{A1,A2},B}, S{C}.
func sampleTree() []Question {
	return []Question{
		node("R",
			node("A", node("A1"), node("A2")),
			node("B"),
		),
		node("S", node("C")),
	}
}

func assertUnchanged(t *testing.T, before, after []Question) {
	t.Helper()
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("tree changed:\nbefore %+v\nafter  %+v", before, after)
	}
}
