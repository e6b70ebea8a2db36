package graph

import (
	"testing"

	"github.com/loomwork/loom/pkg/models"
)

func singleNode(id string, deps ...string) *models.TaskNode {
	return &models.TaskNode{
		ID:          id,
		Description: "task " + id,
		Kind:        models.NodeKindSingle,
		DependsOn:   deps,
		Single: &models.SingleSpec{
			Profile: models.Profile{
				TaskType:   models.TaskTypeSearch,
				Complexity: models.ComplexityQuick,
			},
		},
	}
}

func TestNewGraphEmpty(t *testing.T) {
	g := New()
	if g.Size() != 0 {
		t.Errorf("expected empty graph, got size %d", g.Size())
	}
	if g.Validated() {
		t.Error("new graph should not be validated")
	}
}

func TestAddNodeOverwrite(t *testing.T) {
	g := New()
	g.AddNode(singleNode("A"))
	g.AddNode(singleNode("A"))
	if g.Size() != 1 {
		t.Errorf("expected size 1 after overwrite, got %d", g.Size())
	}
}

func TestValidateAcceptsDiamond(t *testing.T) {
	// {A:[], B:[], C:[A], D:[A], E:[C,D]}
	g := New()
	g.AddNode(singleNode("A"))
	g.AddNode(singleNode("B"))
	g.AddNode(singleNode("C", "A"))
	g.AddNode(singleNode("D", "A"))
	g.AddNode(singleNode("E", "C", "D"))

	ok, errs := g.Validate()
	if !ok {
		t.Fatalf("expected diamond graph to validate, got errors: %v", errs)
	}
	if !g.Validated() {
		t.Error("graph should report validated after clean Validate")
	}
}

func TestValidateRejectsSelfReference(t *testing.T) {
	g := New()
	g.AddNode(singleNode("A", "A"))

	ok, errs := g.Validate()
	if ok {
		t.Fatal("expected self-referencing node to fail validation")
	}
	if len(errs) == 0 {
		t.Fatal("expected at least one error")
	}
}

func TestValidateRejectsTwoCycle(t *testing.T) {
	g := New()
	g.AddNode(singleNode("A", "B"))
	g.AddNode(singleNode("B", "A"))

	ok, _ := g.Validate()
	if ok {
		t.Fatal("expected A->B->A cycle to fail validation")
	}
}

func TestValidateRejectsDanglingDependency(t *testing.T) {
	g := New()
	g.AddNode(singleNode("A", "missing"))

	ok, errs := g.Validate()
	if ok {
		t.Fatal("expected dangling dependency to fail validation")
	}
	if len(errs) != 1 {
		t.Errorf("expected exactly 1 error, got %d: %v", len(errs), errs)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	// Two dangling references and one cycle: three errors total.
	g := New()
	g.AddNode(singleNode("A", "ghost1"))
	g.AddNode(singleNode("B", "ghost2"))
	g.AddNode(singleNode("C", "D"))
	g.AddNode(singleNode("D", "C"))

	ok, errs := g.Validate()
	if ok {
		t.Fatal("expected validation failure")
	}
	if len(errs) != 3 {
		t.Errorf("expected 3 errors (2 missing deps + cycle), got %d: %v", len(errs), errs)
	}
}

func TestAddNodeClearsValidation(t *testing.T) {
	g := New()
	g.AddNode(singleNode("A"))
	if ok, _ := g.Validate(); !ok {
		t.Fatal("single node should validate")
	}
	g.AddNode(singleNode("B"))
	if g.Validated() {
		t.Error("adding a node should clear the validated flag")
	}
}

func TestReadyNodesRespectsDependencies(t *testing.T) {
	g := New()
	g.AddNode(singleNode("A"))
	g.AddNode(singleNode("B", "A"))
	g.AddNode(singleNode("C", "A", "B"))

	ready := g.ReadyNodes(map[string]bool{})
	if len(ready) != 1 || ready[0].ID != "A" {
		t.Fatalf("expected only A ready, got %v", readyIDs(ready))
	}

	ready = g.ReadyNodes(map[string]bool{"A": true})
	if len(ready) != 1 || ready[0].ID != "B" {
		t.Fatalf("expected only B ready after A, got %v", readyIDs(ready))
	}

	ready = g.ReadyNodes(map[string]bool{"A": true, "B": true})
	if len(ready) != 1 || ready[0].ID != "C" {
		t.Fatalf("expected only C ready after A,B, got %v", readyIDs(ready))
	}
}

func TestReadyNodesMonotonic(t *testing.T) {
	// A node ready under S must stay ready under any superset of S that
	// does not contain the node itself.
	g := New()
	g.AddNode(singleNode("A"))
	g.AddNode(singleNode("B"))
	g.AddNode(singleNode("C", "A"))

	small := map[string]bool{"A": true}
	larger := map[string]bool{"A": true, "B": true}

	if !containsID(g.ReadyNodes(small), "C") {
		t.Fatal("C should be ready once A completes")
	}
	if !containsID(g.ReadyNodes(larger), "C") {
		t.Error("C must remain ready under a superset completion state")
	}
}

func TestReadyNodesInsertionOrder(t *testing.T) {
	g := New()
	g.AddNode(singleNode("z"))
	g.AddNode(singleNode("a"))
	g.AddNode(singleNode("m"))

	ready := g.ReadyNodes(map[string]bool{})
	ids := readyIDs(ready)
	want := []string{"z", "a", "m"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected insertion order %v, got %v", want, ids)
		}
	}
}

func TestFinalNodes(t *testing.T) {
	g := New()
	g.AddNode(singleNode("A"))
	g.AddNode(singleNode("B", "A"))
	g.AddNode(singleNode("C", "A"))
	g.AddNode(singleNode("D", "B", "C"))

	final := g.FinalNodes()
	if len(final) != 1 || !final["D"] {
		t.Errorf("expected only D final, got %v", final)
	}
}

func TestFinalNodesDisconnected(t *testing.T) {
	g := New()
	g.AddNode(singleNode("A"))
	g.AddNode(singleNode("B"))

	final := g.FinalNodes()
	if len(final) != 2 {
		t.Errorf("expected both isolated nodes final, got %v", final)
	}
}

func readyIDs(nodes []*models.TaskNode) []string {
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

func containsID(nodes []*models.TaskNode, id string) bool {
	for _, n := range nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}
