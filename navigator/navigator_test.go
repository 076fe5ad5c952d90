package navigator

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go_branch_chat/models"
	"go_branch_chat/pkg/apperr"
)

type fakeTree struct {
	nodes   map[string]*models.ConversationNode
	root    string
	current string
	failGet bool
}

func newFakeTree(root string) *fakeTree {
	return &fakeTree{
		nodes:   map[string]*models.ConversationNode{root: {ID: root, Role: models.RoleSystem}},
		root:    root,
		current: root,
	}
}

func (f *fakeTree) add(parent, id string, role models.Role) {
	f.nodes[id] = &models.ConversationNode{ID: id, ParentID: parent, Role: role, Content: id}
	f.nodes[parent].ChildIDs = append(f.nodes[parent].ChildIDs, id)
}

func (f *fakeTree) GetCurrentPath() ([]models.ConversationNode, error) {
	if f.failGet {
		return nil, errors.New("boom")
	}
	var path []models.ConversationNode
	for id := f.current; id != ""; id = f.nodes[id].ParentID {
		path = append([]models.ConversationNode{*f.nodes[id]}, path...)
	}
	return path, nil
}

func (f *fakeTree) GetChildNodes(nodeID string) ([]string, error) {
	node, ok := f.nodes[nodeID]
	if !ok {
		return nil, apperr.NodeNotFound(nodeID)
	}
	return append([]string(nil), node.ChildIDs...), nil
}

func (f *fakeTree) SwitchToNode(nodeID string) error {
	if _, ok := f.nodes[nodeID]; !ok {
		return apperr.NodeNotFound(nodeID)
	}
	f.current = nodeID
	return nil
}

func (f *fakeTree) GetCurrentNodeID() string { return f.current }
func (f *fakeTree) GetRootNodeID() string    { return f.root }

// root -> u1 -> {a, b, c}; b -> d
func branchedTree(t *testing.T) (*fakeTree, *Navigator) {
	tree := newFakeTree("root")
	tree.add("root", "u1", models.RoleUser)
	tree.add("u1", "a", models.RoleAssistant)
	tree.add("u1", "b", models.RoleAssistant)
	tree.add("u1", "c", models.RoleAssistant)
	tree.add("b", "d", models.RoleUser)
	tree.current = "a"
	nav := New(tree)
	require.NoError(t, nav.Refresh())
	return tree, nav
}

func ids(path []models.ConversationNode) []string {
	res := make([]string, 0, len(path))
	for _, n := range path {
		res = append(res, n.ID)
	}
	return res
}

func TestPath(t *testing.T) {
	_, nav := branchedTree(t)
	assert.Equal(t, []string{"root", "u1", "a"}, ids(nav.Path()))
}

func TestPathIsASnapshot(t *testing.T) {
	tree, nav := branchedTree(t)
	path := nav.Path()
	path[1].ChildIDs[0] = "mutated"
	assert.Equal(t, "a", nav.Path()[1].ChildIDs[0])

	tree.nodes["u1"].Content = "changed in service"
	assert.Equal(t, "u1", nav.Path()[1].Content)
	require.NoError(t, nav.Refresh())
	assert.Equal(t, "changed in service", nav.Path()[1].Content)
}

func TestVariantPosition(t *testing.T) {
	tree, nav := branchedTree(t)

	index, total, err := nav.VariantPosition("a")
	require.NoError(t, err)
	assert.Equal(t, 0, index)
	assert.Equal(t, 3, total)

	tree.current = "b"
	require.NoError(t, nav.Refresh())
	index, total, err = nav.VariantPosition("b")
	require.NoError(t, err)
	assert.Equal(t, 1, index)
	assert.Equal(t, 3, total)
	assert.Equal(t, "2/3", nav.VariantLabel("b"))

	index, total, err = nav.VariantPosition("root")
	require.NoError(t, err)
	assert.Equal(t, 0, index)
	assert.Equal(t, 1, total)
	assert.Equal(t, "1/1", nav.VariantLabel("root"))
}

func TestVariantPositionUnknownNode(t *testing.T) {
	_, nav := branchedTree(t)
	_, _, err := nav.VariantPosition("nope")
	assert.True(t, errors.Is(err, apperr.ErrNodeNotFound))
	assert.Equal(t, "1/1", nav.VariantLabel("nope"))
	assert.Equal(t, "1/1", nav.VariantLabel(""))
}

func TestVariantLookupIsLimitedToDisplayedPath(t *testing.T) {
	_, nav := branchedTree(t)
	_, _, err := nav.VariantPosition("b")
	assert.True(t, errors.Is(err, apperr.ErrNodeNotFound), "b exists but is not displayed")
	assert.False(t, nav.CanSwitchVariant("b", Previous))
	assert.Equal(t, "1/1", nav.VariantLabel("b"))
}

func TestCanSwitchVariant(t *testing.T) {
	tree, nav := branchedTree(t)
	assert.False(t, nav.CanSwitchVariant("a", Previous))
	assert.True(t, nav.CanSwitchVariant("a", Next))
	assert.False(t, nav.CanSwitchVariant("root", Next))
	assert.False(t, nav.CanSwitchVariant("u1", Next))
	assert.False(t, nav.CanSwitchVariant("a", 2))
	assert.False(t, nav.CanSwitchVariant("missing", Next))

	tree.current = "c"
	require.NoError(t, nav.Refresh())
	assert.True(t, nav.CanSwitchVariant("c", Previous))
	assert.False(t, nav.CanSwitchVariant("c", Next))
}

func TestSwitchVariantLandsOnLeftmostDescendant(t *testing.T) {
	tree, nav := branchedTree(t)
	require.NoError(t, nav.SwitchVariant("a", Next))
	assert.Equal(t, "d", tree.current)
	assert.Equal(t, []string{"root", "u1", "b", "d"}, ids(nav.Path()))

	require.NoError(t, nav.SwitchVariant("b", Previous))
	assert.Equal(t, "a", tree.current)
}

func TestSwitchVariantOutOfRangeKeepsPath(t *testing.T) {
	tree, nav := branchedTree(t)
	err := nav.SwitchVariant("a", Previous)
	require.Error(t, err)
	assert.Equal(t, "a", tree.current)
	assert.Equal(t, []string{"root", "u1", "a"}, ids(nav.Path()))
}

func TestSwitchToNode(t *testing.T) {
	tree, nav := branchedTree(t)
	require.NoError(t, nav.SwitchToNode("u1"))
	assert.Equal(t, []string{"root", "u1"}, ids(nav.Path()))

	err := nav.SwitchToNode("ghost")
	assert.True(t, errors.Is(err, apperr.ErrNodeNotFound))
	assert.Equal(t, "u1", tree.current)
	assert.Equal(t, []string{"root", "u1"}, ids(nav.Path()))
}

func TestRefreshFailureKeepsLastGoodPath(t *testing.T) {
	tree, nav := branchedTree(t)
	tree.failGet = true
	err := nav.Refresh()
	assert.True(t, errors.Is(err, apperr.ErrServiceUnavailable))
	assert.Equal(t, []string{"root", "u1", "a"}, ids(nav.Path()))
}

func TestSlicePathFrom(t *testing.T) {
	_, nav := branchedTree(t)
	assert.Equal(t, []string{"u1", "a"}, ids(nav.SlicePathFrom("u1")))
	assert.Equal(t, []string{"root", "u1", "a"}, ids(nav.SlicePathFrom("zzz")))
	assert.Equal(t, []string{"root", "u1", "a"}, ids(nav.SlicePathFrom("")))
}

func TestLeftmostDescendant(t *testing.T) {
	tree, nav := branchedTree(t)
	tree.add("d", "e", models.RoleAssistant)
	tree.add("d", "f", models.RoleAssistant)
	leaf, err := nav.LeftmostDescendant("u1")
	require.NoError(t, err)
	assert.Equal(t, "a", leaf)
	leaf, err = nav.LeftmostDescendant("b")
	require.NoError(t, err)
	assert.Equal(t, "e", leaf)
}
