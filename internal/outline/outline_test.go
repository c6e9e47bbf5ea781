package outline

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromPlainTree_AssignsIdsInTextualOrder(t *testing.T) {
	input := `[{"content":"a"},{"content":"b","children":[{"content":"c"}]}]`

	root, err := FromPlainTree([]byte(input))
	require.NoError(t, err)

	want := &Node{ID: "0", Content: "", Children: []*Node{
		{ID: "1", Content: "a"},
		{ID: "2", Content: "b", Children: []*Node{
			{ID: "3", Content: "c"},
		}},
	}}
	assert.Equal(t, want, root)
}

func TestFromPlainTree_DeepBeforeSibling(t *testing.T) {
	input := `[
	  {"content":"a","children":[
	    {"content":"a1","children":[{"content":"a1x"}]},
	    {"content":"a2"}
	  ]},
	  {"content":"b"}
	]`

	root, err := FromPlainTree([]byte(input))
	require.NoError(t, err)

	var ids, contents []string
	require.NoError(t, Walk(root, func(n, _ *Node, _ int) error {
		ids = append(ids, n.ID)
		contents = append(contents, n.Content)
		return nil
	}))
	assert.Equal(t, []string{"0", "1", "2", "3", "4", "5"}, ids)
	assert.Equal(t, []string{"", "a", "a1", "a1x", "a2", "b"}, contents)
}

func TestFromPlainTree_IgnoresExistingIds(t *testing.T) {
	root, err := FromPlainTree([]byte(`[{"id":"zz","content":"a"}]`))
	require.NoError(t, err)
	assert.Equal(t, "1", root.Children[0].ID)
}

func TestFromPlainTree_ChildrenBeforeContentKey(t *testing.T) {
	root, err := FromPlainTree([]byte(`[{"children":[{"content":"inner"}],"content":"outer"}]`))
	require.NoError(t, err)

	require.Len(t, root.Children, 1)
	assert.Equal(t, "1", root.Children[0].ID)
	assert.Equal(t, "outer", root.Children[0].Content)
	assert.Equal(t, "2", root.Children[0].Children[0].ID)
}

func TestFromPlainTree_EmptyArray(t *testing.T) {
	root, err := FromPlainTree([]byte(`[]`))
	require.NoError(t, err)
	assert.Equal(t, RootID, root.ID)
	assert.Empty(t, root.Children)
}

func TestFromPlainTree_Invalid(t *testing.T) {
	cases := map[string]string{
		"truncated":     `[{"content":"a"}`,
		"object":        `{"content":"a"}`,
		"bad-type":      `[{"content":5}]`,
		"not-json":      `hello`,
		"empty-file":    ``,
		"trailing-data": "[{\"content\":\"a\"}] junk",
		"second-value":  "[{\"content\":\"a\"}]\n{\"x\":",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromPlainTree([]byte(input))
			assert.Error(t, err)
		})
	}
}

func TestNode_JSONShape(t *testing.T) {
	root, err := FromPlainTree([]byte(`[{"content":"a"}]`))
	require.NoError(t, err)

	data, err := json.Marshal(root)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"0","content":"","children":[{"id":"1","content":"a"}]}`, string(data))
}

func TestWalk_StopsOnError(t *testing.T) {
	root, err := FromPlainTree([]byte(`[{"content":"a"},{"content":"b"}]`))
	require.NoError(t, err)

	stop := errors.New("stop")
	visited := 0
	err = Walk(root, func(n, _ *Node, _ int) error {
		visited++
		if n.ID == "1" {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, visited)
}

func TestWalk_ReportsParentAndPosition(t *testing.T) {
	root, err := FromPlainTree([]byte(`[{"content":"a"},{"content":"b","children":[{"content":"c"}]}]`))
	require.NoError(t, err)

	parents := map[string]string{}
	positions := map[string]int{}
	require.NoError(t, Walk(root, func(n, parent *Node, pos int) error {
		if parent != nil {
			parents[n.ID] = parent.ID
		}
		positions[n.ID] = pos
		return nil
	}))
	assert.Equal(t, map[string]string{"1": "0", "2": "0", "3": "2"}, parents)
	assert.Equal(t, 1, positions["2"])
	assert.Equal(t, 0, positions["3"])
}

func TestCount(t *testing.T) {
	root, err := FromPlainTree([]byte(`[{"content":"a"},{"content":"b","children":[{"content":"c"}]}]`))
	require.NoError(t, err)
	assert.Equal(t, 4, Count(root))
	assert.Equal(t, 0, Count(nil))
}

func TestRender(t *testing.T) {
	root, err := FromPlainTree([]byte(`[{"content":"a"},{"content":"b\nmore","children":[{"content":"c"}]}]`))
	require.NoError(t, err)

	out := Render("notes", root)

	assert.Contains(t, out, "notes")
	assert.Contains(t, out, "[1] a")
	assert.Contains(t, out, "[2] b")
	assert.Contains(t, out, "[3] c")
	assert.NotContains(t, out, "more")
}
